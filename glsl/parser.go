// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"
	"strconv"

	"github.com/gogpu/oil/diag"
	"github.com/gogpu/oil/ir"
)

// File is the item structure of one GLSL source.
type File struct {
	Items []*ir.Item
	// Directives holds "#extension" and "precision" lines in source order.
	Directives []string
}

// Parse splits preprocessed GLSL into top-level items. The function named
// main becomes an entry point of the given stage. Prototypes are skipped;
// the definition carries the item.
func Parse(source, path string, stage ir.ShaderStage) (*File, error) {
	p := &parser{source: source, path: path, stage: stage, toks: tokenize(source)}
	return p.parse()
}

type parser struct {
	source string
	path   string
	stage  ir.ShaderStage
	toks   []token
	cur    int
}

func (p *parser) parse() (*File, error) {
	file := &File{}
	for p.peek().kind != tokenEOF {
		tok := p.peek()
		switch {
		case tok.kind == tokenDirective:
			file.Directives = append(file.Directives, tok.lexeme)
			p.cur++
		case tok.is(";"):
			p.cur++
		case tok.kind == tokenIdent && tok.lexeme == "precision":
			end, err := p.skipPast(";")
			if err != nil {
				return nil, err
			}
			file.Directives = append(file.Directives, p.source[tok.offset:p.toks[end].end()])
		case tok.kind == tokenIdent && (tok.lexeme == "virtual" || tok.lexeme == "override"):
			return nil, diag.Errorf(diag.KindLanguageUnsupported,
				"%q functions are only supported in WGSL modules", tok.lexeme).At(p.span(p.cur, p.cur), p.source)
		default:
			it, err := p.item()
			if err != nil {
				return nil, err
			}
			if it != nil {
				file.Items = append(file.Items, it)
			}
		}
	}
	return file, nil
}

// layout holds the arguments of a layout(...) qualifier that matter to
// composition.
type layout struct {
	set, binding int
	bindingTok   int
}

// item parses one declaration. It returns nil for function prototypes.
func (p *parser) item() (*ir.Item, error) {
	first := p.cur
	nameIdx := -1
	isConst := false
	var lay *layout

	for {
		tok := p.peek()
		switch {
		case tok.kind == tokenEOF:
			return nil, p.errorAt(first, "unexpected end of input in declaration")
		case tok.kind == tokenIdent && tok.lexeme == "layout" && p.toks[p.cur+1].is("("):
			closeIdx := p.matchingParen(p.cur + 1)
			if closeIdx < 0 {
				return nil, p.errorAt(p.cur, "unclosed layout qualifier")
			}
			lay = p.layout(p.cur+2, closeIdx)
			p.cur = closeIdx + 1
		case tok.kind == tokenIdent && tok.lexeme == "struct" && nameIdx < 0:
			return p.structItem(first)
		case tok.kind == tokenIdent:
			if tok.lexeme == "const" {
				isConst = true
			}
			_, last := p.qualified(p.cur)
			nameIdx = last
			p.cur = last + 1
		case tok.is("("):
			if nameIdx < 0 {
				return nil, p.errorAt(p.cur, "expected function name before '('")
			}
			return p.function(first, nameIdx)
		case tok.is("{"):
			if nameIdx < 0 {
				return nil, p.errorAt(p.cur, "expected block name before '{'")
			}
			return p.block(first, nameIdx, lay)
		case tok.is("=") || tok.is(";") || tok.is("["):
			if nameIdx < 0 {
				return nil, p.errorAt(p.cur, "expected declaration")
			}
			return p.variable(first, nameIdx, isConst, lay)
		default:
			return nil, p.errorAt(p.cur, "unexpected %q in declaration", tok.lexeme)
		}
	}
}

func (p *parser) function(first, nameIdx int) (*ir.Item, error) {
	if nameIdx > 0 && p.toks[nameIdx-1].kind == tokenColonColon {
		return nil, diag.Errorf(diag.KindLanguageUnsupported,
			"function overrides are only supported in WGSL modules").At(p.span(nameIdx, nameIdx), p.source)
	}
	open := p.cur
	closeIdx := p.matchingParen(open)
	if closeIdx < 0 {
		return nil, p.errorAt(open, "unclosed parameter list")
	}
	if p.toks[closeIdx+1].is(";") {
		p.cur = closeIdx + 2
		return nil, nil
	}
	if !p.toks[closeIdx+1].is("{") {
		return nil, p.errorAt(closeIdx+1, "expected function body")
	}
	bodyClose := p.matchingBrace(closeIdx + 1)
	if bodyClose < 0 {
		return nil, p.errorAt(closeIdx+1, "unclosed function body")
	}
	p.cur = bodyClose + 1

	s := newScanner(p)
	s.scan(first, nameIdx, scanExpr)
	s.scan(open, bodyClose+1, scanBody)

	it := p.lower(ir.ItemFunction, first, bodyClose, nameIdx, s.refs)
	base := p.toks[first].offset
	it.Signature = p.signature(open, closeIdx, base)
	if nameIdx > first {
		it.Signature.ResultRange = ir.Range{Start: 0, End: p.toks[nameIdx-1].end() - base}
	}
	if p.toks[nameIdx].lexeme == "main" {
		it.Stage = p.stage
	}
	return it, nil
}

// signature splits the parameter list between open and closeIdx.
func (p *parser) signature(open, closeIdx, base int) ir.Signature {
	var sig ir.Signature
	start, depth := open+1, 0
	for i := open + 1; i <= closeIdx; i++ {
		tok := p.toks[i]
		switch {
		case tok.is("(") || tok.is("["):
			depth++
		case (tok.is(")") || tok.is("]")) && i < closeIdx:
			depth--
		case tok.is(",") && depth == 0, i == closeIdx:
			if prm, ok := p.param(start, i, base); ok {
				sig.Params = append(sig.Params, prm)
			}
			start = i + 1
		}
	}
	return sig
}

func (p *parser) param(from, to, base int) (ir.Param, bool) {
	if from >= to || to-from == 1 && p.toks[from].lexeme == "void" {
		return ir.Param{}, false
	}
	typeStart := from
	for typeStart < to && p.toks[typeStart].kind == tokenIdent && isQualifier(p.toks[typeStart].lexeme) {
		typeStart++
	}
	nameIdx := -1
	for i := typeStart + 1; i < to && !p.toks[i].is("["); i++ {
		if p.toks[i].kind == tokenIdent && p.toks[i-1].kind != tokenColonColon {
			nameIdx = i
		}
	}
	prm := ir.Param{}
	typeEnd := to - 1
	if nameIdx >= 0 {
		prm.Name = p.toks[nameIdx].lexeme
		typeEnd = nameIdx - 1
	}
	if typeStart <= typeEnd {
		prm.TypeRange = ir.Range{Start: p.toks[typeStart].offset - base, End: p.toks[typeEnd].end() - base}
	}
	return prm, true
}

// block parses an interface block: "uniform Name { members } [instance];".
func (p *parser) block(first, nameIdx int, lay *layout) (*ir.Item, error) {
	open := p.cur
	closeIdx := p.matchingBrace(open)
	if closeIdx < 0 {
		return nil, p.errorAt(open, "unclosed block")
	}
	s := newScanner(p)
	s.scan(first, nameIdx, scanExpr)
	s.scan(open+1, closeIdx, scanStruct)

	p.cur = closeIdx + 1
	anonymous := true
	if p.peek().kind == tokenIdent {
		nameIdx = p.cur
		s.skip = nameIdx
		anonymous = false
	}
	end, err := p.skipPast(";")
	if err != nil {
		return nil, err
	}
	s.scan(closeIdx+1, end, scanExpr)

	it := p.lower(ir.ItemGlobal, first, end, nameIdx, s.refs)
	if anonymous {
		it.Members = p.memberNames(open+1, closeIdx)
	}
	p.bind(it, first, lay)
	return it, nil
}

// memberNames returns the declared names among toks[from:to]: identifiers
// directly followed by ';', ',' or '['.
func (p *parser) memberNames(from, to int) []string {
	var names []string
	depth := 0
	for i := from; i < to; i++ {
		tok := p.toks[i]
		switch {
		case tok.is("(") || tok.is("["):
			depth++
		case tok.is(")") || tok.is("]"):
			depth--
		case tok.kind == tokenIdent && depth == 0:
			if next := p.toks[i+1]; next.is(";") || next.is(",") || next.is("[") {
				names = append(names, tok.lexeme)
			}
		}
	}
	return names
}

func (p *parser) variable(first, nameIdx int, isConst bool, lay *layout) (*ir.Item, error) {
	end, err := p.skipPast(";")
	if err != nil {
		return nil, err
	}
	s := newScanner(p)
	s.skip = nameIdx
	s.scan(first, end, scanExpr)

	kind := ir.ItemGlobal
	if isConst {
		kind = ir.ItemConstant
	}
	it := p.lower(kind, first, end, nameIdx, s.refs)
	p.bind(it, first, lay)
	return it, nil
}

func (p *parser) structItem(first int) (*ir.Item, error) {
	nameIdx := p.cur + 1
	if p.toks[nameIdx].kind != tokenIdent {
		return nil, p.errorAt(nameIdx, "expected struct name")
	}
	open := nameIdx + 1
	if !p.toks[open].is("{") {
		return nil, p.errorAt(open, "expected '{' after struct name")
	}
	closeIdx := p.matchingBrace(open)
	if closeIdx < 0 {
		return nil, p.errorAt(open, "unclosed struct")
	}
	p.cur = closeIdx + 1
	end, err := p.skipPast(";")
	if err != nil {
		return nil, err
	}
	s := newScanner(p)
	s.scan(open+1, closeIdx, scanStruct)
	return p.lower(ir.ItemStruct, first, end, nameIdx, s.refs), nil
}

func (p *parser) layout(from, to int) *layout {
	lay := &layout{binding: -1, bindingTok: -1}
	for i := from; i+2 < to+1; i++ {
		key := p.toks[i]
		if key.kind != tokenIdent || !p.toks[i+1].is("=") || p.toks[i+2].kind != tokenNumber {
			continue
		}
		n, err := strconv.Atoi(p.toks[i+2].lexeme)
		if err != nil {
			continue
		}
		switch key.lexeme {
		case "set":
			lay.set = n
		case "binding":
			lay.binding = n
			lay.bindingTok = i + 2
		}
	}
	return lay
}

func (p *parser) bind(it *ir.Item, first int, lay *layout) {
	if lay == nil || lay.bindingTok < 0 {
		return
	}
	base := p.toks[first].offset
	tok := p.toks[lay.bindingTok]
	it.Binding = &ir.Binding{
		Group:      lay.set,
		Binding:    lay.binding,
		ValueRange: ir.Range{Start: tok.offset - base, End: tok.end() - base},
	}
}

// lower builds an item from tokens first..last.
func (p *parser) lower(kind ir.ItemKind, first, last, nameIdx int, refs []ir.Reference) *ir.Item {
	base := p.toks[first].offset
	name := p.toks[nameIdx]
	it := &ir.Item{
		Kind:      kind,
		Name:      ir.Name{Item: name.lexeme},
		Text:      p.source[base:p.toks[last].end()],
		NameRange: ir.Range{Start: name.offset - base, End: name.end() - base},
		Span:      p.span(first, last),
	}
	for _, ref := range refs {
		ref.Range = ir.Range{Start: ref.Range.Start - base, End: ref.Range.End - base}
		it.Refs = append(it.Refs, ref)
	}
	return it
}

// qualified reads ident(::ident)* at i and returns its segments and last index.
func (p *parser) qualified(i int) ([]string, int) {
	segs := []string{p.toks[i].lexeme}
	for i+2 < len(p.toks) && p.toks[i+1].kind == tokenColonColon && p.toks[i+2].kind == tokenIdent {
		segs = append(segs, p.toks[i+2].lexeme)
		i += 2
	}
	return segs, i
}

func (p *parser) matchingParen(open int) int {
	return p.matching(open, "(", ")")
}

func (p *parser) matchingBrace(open int) int {
	return p.matching(open, "{", "}")
}

func (p *parser) matching(open int, left, right string) int {
	depth := 0
	for i := open; i < len(p.toks); i++ {
		switch {
		case p.toks[i].is(left):
			depth++
		case p.toks[i].is(right):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// skipPast advances past the next punct at nesting depth zero and returns
// its index.
func (p *parser) skipPast(punct string) (int, error) {
	start := p.cur
	depth := 0
	for ; p.cur < len(p.toks) && p.toks[p.cur].kind != tokenEOF; p.cur++ {
		tok := p.toks[p.cur]
		switch {
		case tok.is("(") || tok.is("{") || tok.is("["):
			depth++
		case tok.is(")") || tok.is("}") || tok.is("]"):
			depth--
		case tok.is(punct) && depth <= 0:
			p.cur++
			return p.cur - 1, nil
		}
	}
	return 0, p.errorAt(start, "expected %q", punct)
}

func (p *parser) peek() token {
	return p.toks[p.cur]
}

func (p *parser) span(first, last int) diag.Span {
	a, b := p.toks[first], p.toks[last]
	return diag.Span{
		Path:  p.path,
		Start: diag.Position{Line: a.line, Column: a.column, Offset: a.offset},
		End:   diag.Position{Line: b.line, Column: b.column + len(b.lexeme), Offset: b.end()},
	}
}

func (p *parser) errorAt(i int, format string, args ...any) *diag.Error {
	return diag.Errorf(diag.KindParse, "%s", fmt.Sprintf(format, args...)).At(p.span(i, i), p.source)
}
