package wgsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/oil/diag"
	"github.com/gogpu/oil/ir"
)

// File is the item structure of one WGSL source.
type File struct {
	Items []*ir.Item
	// Directives holds global directives such as "enable f16;".
	Directives []string
}

// Parser splits WGSL tokens into top-level items. It reads declarations,
// signatures and the names each item refers to; expressions and
// statements are only scanned, never built into a tree.
type Parser struct {
	source  string
	path    string
	tokens  []Token
	current int
	asserts int
}

// NewParser creates a parser for source. path names the source in spans.
func NewParser(source, path string) *Parser {
	return &Parser{
		source: source,
		path:   path,
		tokens: NewLexer(source).Tokenize(),
	}
}

// Parse is shorthand for NewParser(source, path).Parse().
func Parse(source, path string) (*File, error) {
	return NewParser(source, path).Parse()
}

// attribute is one @name or @name(args).
type attribute struct {
	name string
	// start and end are token indices; end is exclusive.
	start, end int
	// args holds the token index range inside the parentheses.
	argStart, argEnd int
}

// Parse reads all top-level items.
func (p *Parser) Parse() (*File, error) {
	file := &File{}

	for !p.isAtEnd() {
		switch p.peek().Kind {
		case TokenSemicolon:
			p.advance()
		case TokenEnable, TokenRequires, TokenDiagnostic:
			start := p.advance()
			end, err := p.skipPast(TokenSemicolon)
			if err != nil {
				return nil, err
			}
			file.Directives = append(file.Directives, p.source[start.Offset:end.End()])
		default:
			item, err := p.item()
			if err != nil {
				return nil, err
			}
			file.Items = append(file.Items, item)
		}
	}

	return file, nil
}

// item parses one declaration with its leading attributes.
func (p *Parser) item() (*ir.Item, error) {
	first := p.current
	attrs := p.attributes()

	var d *decl
	var err error
	switch {
	case p.check(TokenVirtual) && p.checkNext(TokenFn):
		d, err = p.functionDecl(first, attrs)
	case p.check(TokenOverride) && p.checkNext(TokenFn):
		d, err = p.functionDecl(first, attrs)
	case p.check(TokenFn):
		d, err = p.functionDecl(first, attrs)
	case p.check(TokenStruct):
		d, err = p.structDecl(first)
	case p.check(TokenVar):
		d, err = p.varDecl(first, attrs)
	case p.check(TokenConst):
		d, err = p.valueDecl(first, attrs, ir.ItemConstant)
	case p.check(TokenOverride):
		d, err = p.valueDecl(first, attrs, ir.ItemOverrideConstant)
	case p.check(TokenAlias):
		d, err = p.aliasDecl(first)
	case p.check(TokenConstAssert):
		d, err = p.assertDecl(first)
	case p.check(TokenLet):
		return nil, p.errorAt(p.peek(), "'let' is not allowed at module scope")
	default:
		tok := p.peek()
		return nil, p.errorAt(tok, "unexpected %s %q, expected declaration", tok.Kind, tok.Lexeme)
	}
	if err != nil {
		return nil, err
	}
	return d.lower(p), nil
}

// decl is a parsed declaration in absolute source coordinates.
type decl struct {
	kind       ir.ItemKind
	name       string
	nameRange  ir.Range
	first      int // token index of the first token
	last       int // token index of the last token
	refs       []ir.Reference
	params     []ir.Param
	result     ir.Range
	stage      ir.ShaderStage
	entry      []ir.Range
	strip      []ir.Range
	virtual    bool
	override   *ir.Name
	binding    *ir.Binding
}

func (p *Parser) functionDecl(first int, attrs []attribute) (*decl, error) {
	d := &decl{kind: ir.ItemFunction, first: first}

	for _, a := range attrs {
		switch a.name {
		case "vertex":
			d.stage = ir.StageVertex
		case "fragment":
			d.stage = ir.StageFragment
		case "compute":
			d.stage = ir.StageCompute
		case "workgroup_size":
		default:
			continue
		}
		d.entry = append(d.entry, p.attrRange(a))
	}

	if p.check(TokenVirtual) {
		d.virtual = true
		d.strip = append(d.strip, p.keywordRange(p.current))
		p.advance()
	}
	isOverride := p.check(TokenOverride)
	if isOverride {
		d.strip = append(d.strip, p.keywordRange(p.current))
		p.advance()
	}
	p.advance() // fn

	nameTok := p.peek()
	if nameTok.Kind != TokenIdent {
		return nil, p.errorAt(nameTok, "expected function name")
	}
	path, last := p.pathAt(p.current)
	p.current = last + 1
	d.nameRange = ir.Range{Start: nameTok.Offset, End: p.tokens[last].End()}
	if isOverride {
		if len(path) < 2 {
			return nil, p.errorAt(nameTok, "override must name its target as module::function, found %q", nameTok.Lexeme)
		}
		d.override = &ir.Name{Module: strings.Join(path[:len(path)-1], "::"), Item: path[len(path)-1]}
		d.name = d.override.String()
	} else {
		if len(path) > 1 {
			return nil, p.errorAt(nameTok, "qualified function name %q requires 'override'", strings.Join(path, "::"))
		}
		d.name = nameTok.Lexeme
	}

	s := newRefScanner(p)
	if err := p.expect(TokenLeftParen, "'(' after function name"); err != nil {
		return nil, err
	}
	for !p.check(TokenRightParen) && !p.isAtEnd() {
		for _, a := range p.attributes() {
			if isIOAttribute(a.name) {
				d.entry = append(d.entry, p.attrRange(a))
			}
			s.scan(a.argStart, a.argEnd, scanExpr)
		}
		name := p.peek()
		if name.Kind != TokenIdent {
			return nil, p.errorAt(name, "expected parameter name")
		}
		p.advance()
		if err := p.expect(TokenColon, "':' after parameter name"); err != nil {
			return nil, err
		}
		typeStart := p.current
		typeEnd := p.typeExtent()
		if typeEnd == typeStart {
			return nil, p.errorAt(p.peek(), "expected parameter type")
		}
		s.scan(typeStart, typeEnd, scanExpr)
		d.params = append(d.params, ir.Param{
			Name:      name.Lexeme,
			TypeRange: ir.Range{Start: p.tokens[typeStart].Offset, End: p.tokens[typeEnd-1].End()},
		})
		s.declare(name.Lexeme)
		if !p.match(TokenComma) {
			break
		}
	}
	if err := p.expect(TokenRightParen, "')' after parameters"); err != nil {
		return nil, err
	}

	if p.match(TokenArrow) {
		for _, a := range p.attributes() {
			if isIOAttribute(a.name) {
				d.entry = append(d.entry, p.attrRange(a))
			}
			s.scan(a.argStart, a.argEnd, scanExpr)
		}
		typeStart := p.current
		typeEnd := p.typeExtent()
		if typeEnd == typeStart {
			return nil, p.errorAt(p.peek(), "expected return type after '->'")
		}
		s.scan(typeStart, typeEnd, scanExpr)
		d.result = ir.Range{Start: p.tokens[typeStart].Offset, End: p.tokens[typeEnd-1].End()}
	}

	if !p.check(TokenLeftBrace) {
		return nil, p.errorAt(p.peek(), "expected function body")
	}
	open := p.current
	closeIdx, err := p.matchingBrace(open)
	if err != nil {
		return nil, err
	}
	s.scan(open, closeIdx+1, scanBody)
	p.current = closeIdx + 1

	p.scanAttrArgs(s, attrs)
	d.last = closeIdx
	d.refs = s.refs
	return d, nil
}

func (p *Parser) structDecl(first int) (*decl, error) {
	p.advance() // struct
	name := p.peek()
	if name.Kind != TokenIdent {
		return nil, p.errorAt(name, "expected struct name")
	}
	p.advance()
	if !p.check(TokenLeftBrace) {
		return nil, p.errorAt(p.peek(), "expected '{' after struct name")
	}
	open := p.current
	closeIdx, err := p.matchingBrace(open)
	if err != nil {
		return nil, err
	}
	s := newRefScanner(p)
	s.scan(open+1, closeIdx, scanStruct)
	p.current = closeIdx + 1

	return &decl{
		kind:      ir.ItemStruct,
		name:      name.Lexeme,
		nameRange: ir.Range{Start: name.Offset, End: name.End()},
		first:     first,
		last:      closeIdx,
		refs:      s.refs,
	}, nil
}

func (p *Parser) varDecl(first int, attrs []attribute) (*decl, error) {
	p.advance() // var
	s := newRefScanner(p)
	if p.check(TokenLess) {
		end := p.templateEnd(p.current)
		if end < 0 {
			return nil, p.errorAt(p.peek(), "unterminated template list after 'var'")
		}
		s.scan(p.current+1, end, scanExpr)
		p.current = end + 1
	}
	d, err := p.namedValue(first, ir.ItemGlobal, s)
	if err != nil {
		return nil, err
	}

	var group, binding *attribute
	for i := range attrs {
		switch attrs[i].name {
		case "group":
			group = &attrs[i]
		case "binding":
			binding = &attrs[i]
		}
	}
	if binding != nil {
		b := &ir.Binding{Group: -1, Binding: -1}
		if group != nil {
			b.Group = p.literalArg(*group)
		}
		if binding.argEnd-binding.argStart == 1 {
			tok := p.tokens[binding.argStart]
			b.ValueRange = ir.Range{Start: tok.Offset, End: tok.End()}
			if tok.Lexeme == "auto" {
				b.Auto = true
			} else {
				b.Binding = p.literalArg(*binding)
			}
		}
		d.binding = b
	}

	// "auto" is a placeholder, not a name.
	for _, a := range attrs {
		if a.name == "binding" && d.binding != nil && d.binding.Auto {
			continue
		}
		s.scan(a.argStart, a.argEnd, scanExpr)
	}
	d.refs = s.refs
	return d, nil
}

// valueDecl parses const and pipeline-override declarations.
func (p *Parser) valueDecl(first int, attrs []attribute, kind ir.ItemKind) (*decl, error) {
	p.advance() // const / override
	s := newRefScanner(p)
	d, err := p.namedValue(first, kind, s)
	if err != nil {
		return nil, err
	}
	p.scanAttrArgs(s, attrs)
	d.refs = s.refs
	return d, nil
}

// namedValue parses "name [: type] [= init] ;".
func (p *Parser) namedValue(first int, kind ir.ItemKind, s *refScanner) (*decl, error) {
	name := p.peek()
	if name.Kind != TokenIdent {
		return nil, p.errorAt(name, "expected name in %s declaration", kind)
	}
	p.advance()
	bodyStart := p.current
	if _, err := p.skipPast(TokenSemicolon); err != nil {
		return nil, err
	}
	s.scan(bodyStart, p.current-1, scanExpr)
	return &decl{
		kind:      kind,
		name:      name.Lexeme,
		nameRange: ir.Range{Start: name.Offset, End: name.End()},
		first:     first,
		last:      p.current - 1,
	}, nil
}

func (p *Parser) aliasDecl(first int) (*decl, error) {
	p.advance() // alias
	nameIdx := p.current
	s := newRefScanner(p)
	d, err := p.namedValue(first, ir.ItemAlias, s)
	if err != nil {
		return nil, err
	}
	// The aliased type is kept as the result so it can be compared
	// through the alias.
	if eq, semi := nameIdx+1, p.current-1; p.tokens[eq].Kind == TokenEqual && eq+1 < semi {
		d.result = ir.Range{Start: p.tokens[eq+1].Offset, End: p.tokens[semi-1].End()}
	}
	d.refs = s.refs
	return d, nil
}

func (p *Parser) assertDecl(first int) (*decl, error) {
	p.advance() // const_assert
	bodyStart := p.current
	if _, err := p.skipPast(TokenSemicolon); err != nil {
		return nil, err
	}
	s := newRefScanner(p)
	s.scan(bodyStart, p.current-1, scanExpr)
	p.asserts++
	return &decl{
		kind:  ir.ItemAssert,
		name:  "const_assert#" + strconv.Itoa(p.asserts),
		first: first,
		last:  p.current - 1,
		refs:  s.refs,
	}, nil
}

// lower converts absolute coordinates into an item-relative ir.Item.
func (d *decl) lower(p *Parser) *ir.Item {
	startTok, endTok := p.tokens[d.first], p.tokens[d.last]
	base := startTok.Offset
	rel := func(r ir.Range) ir.Range {
		if r.Empty() {
			return ir.Range{}
		}
		return ir.Range{Start: r.Start - base, End: r.End - base}
	}

	it := &ir.Item{
		Kind:      d.kind,
		Name:      ir.Name{Item: d.name},
		Text:      p.source[base:endTok.End()],
		NameRange: rel(d.nameRange),
		Stage:     d.stage,
		Virtual:   d.virtual,
		Override:  d.override,
		Span: diag.Span{
			Path:  p.path,
			Start: diag.Position{Line: startTok.Line, Column: startTok.Column, Offset: startTok.Offset},
			End:   diag.Position{Line: endTok.Line, Column: endTok.Column + len(endTok.Lexeme), Offset: endTok.End()},
		},
	}
	for _, r := range d.entry {
		it.EntryRanges = append(it.EntryRanges, rel(r))
	}
	for _, r := range d.strip {
		it.StripRanges = append(it.StripRanges, rel(r))
	}
	for _, ref := range d.refs {
		ref.Range = rel(ref.Range)
		it.Refs = append(it.Refs, ref)
	}
	for _, prm := range d.params {
		prm.TypeRange = rel(prm.TypeRange)
		it.Signature.Params = append(it.Signature.Params, prm)
	}
	it.Signature.ResultRange = rel(d.result)
	if d.binding != nil {
		b := *d.binding
		b.ValueRange = rel(b.ValueRange)
		it.Binding = &b
	}
	return it
}

// attributes parses a run of @name(args) attributes.
func (p *Parser) attributes() []attribute {
	var attrs []attribute
	for p.check(TokenAt) {
		a := attribute{start: p.current}
		p.advance()
		name := p.peek()
		if name.Kind != TokenIdent && name.Kind != TokenKeyword && name.Kind != TokenConst && name.Kind != TokenDiagnostic {
			a.end = p.current
			attrs = append(attrs, a)
			continue
		}
		p.advance()
		a.name = name.Lexeme
		a.argStart, a.argEnd = p.current, p.current
		if p.check(TokenLeftParen) {
			closeIdx := p.matchingParen(p.current)
			if closeIdx < 0 {
				closeIdx = len(p.tokens) - 2
			}
			a.argStart, a.argEnd = p.current+1, closeIdx
			p.current = closeIdx + 1
		}
		a.end = p.current
		attrs = append(attrs, a)
	}
	return attrs
}

func (p *Parser) scanAttrArgs(s *refScanner, attrs []attribute) {
	for _, a := range attrs {
		s.scan(a.argStart, a.argEnd, scanExpr)
	}
}

// attrRange covers an attribute and the whitespace after it.
func (p *Parser) attrRange(a attribute) ir.Range {
	return ir.Range{Start: p.tokens[a.start].Offset, End: p.tokens[a.end].Offset}
}

// keywordRange covers the token at i and the whitespace after it.
func (p *Parser) keywordRange(i int) ir.Range {
	return ir.Range{Start: p.tokens[i].Offset, End: p.tokens[i+1].Offset}
}

func (p *Parser) literalArg(a attribute) int {
	if a.argEnd-a.argStart != 1 {
		return -1
	}
	lex := strings.TrimRight(p.tokens[a.argStart].Lexeme, "iu")
	n, err := strconv.Atoi(lex)
	if err != nil {
		return -1
	}
	return n
}

func isIOAttribute(name string) bool {
	switch name {
	case "location", "builtin", "interpolate", "invariant", "blend_src":
		return true
	}
	return false
}

// pathAt reads ident(::ident)* starting at token i and returns the segments
// and the index of the last token.
func (p *Parser) pathAt(i int) ([]string, int) {
	segs := []string{p.tokens[i].Lexeme}
	for i+2 < len(p.tokens) && p.tokens[i+1].Kind == TokenColonColon && p.tokens[i+2].Kind == TokenIdent {
		segs = append(segs, p.tokens[i+2].Lexeme)
		i += 2
	}
	return segs, i
}

// typeExtent advances over a type and returns the index just past it.
// A type ends at ',', ')', '{', '=' or ';' outside any template list.
func (p *Parser) typeExtent() int {
	depth := 0
	for !p.isAtEnd() {
		switch p.peek().Kind {
		case TokenLess:
			depth++
		case TokenGreater:
			if depth == 0 {
				return p.current
			}
			depth--
		case TokenComma, TokenRightParen:
			if depth == 0 {
				return p.current
			}
		case TokenLeftBrace, TokenEqual, TokenSemicolon:
			return p.current
		}
		p.advance()
	}
	return p.current
}

// templateEnd returns the index of the '>' closing the '<' at i, or -1.
func (p *Parser) templateEnd(i int) int {
	depth := 0
	for ; i < len(p.tokens); i++ {
		switch p.tokens[i].Kind {
		case TokenLess:
			depth++
		case TokenGreater:
			depth--
			if depth == 0 {
				return i
			}
		case TokenSemicolon, TokenLeftBrace, TokenEOF:
			return -1
		}
	}
	return -1
}

func (p *Parser) matchingBrace(open int) (int, error) {
	depth := 0
	for i := open; i < len(p.tokens); i++ {
		switch p.tokens[i].Kind {
		case TokenLeftBrace:
			depth++
		case TokenRightBrace:
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, p.errorAt(p.tokens[open], "unclosed '{'")
}

func (p *Parser) matchingParen(open int) int {
	depth := 0
	for i := open; i < len(p.tokens); i++ {
		switch p.tokens[i].Kind {
		case TokenLeftParen:
			depth++
		case TokenRightParen:
			depth--
			if depth == 0 {
				return i
			}
		case TokenEOF:
			return -1
		}
	}
	return -1
}

// skipPast advances past the next kind token at bracket depth zero.
func (p *Parser) skipPast(kind TokenKind) (Token, error) {
	start := p.peek()
	depth := 0
	for !p.isAtEnd() {
		tok := p.advance()
		switch tok.Kind {
		case TokenLeftParen, TokenLeftBrace, TokenLeftBracket:
			depth++
		case TokenRightParen, TokenRightBrace, TokenRightBracket:
			depth--
		}
		if tok.Kind == kind && depth <= 0 {
			return tok, nil
		}
	}
	return Token{}, p.errorAt(start, "expected %s", kind)
}

func (p *Parser) expect(kind TokenKind, what string) error {
	if !p.match(kind) {
		return p.errorAt(p.peek(), "expected %s", what)
	}
	return nil
}

func (p *Parser) match(kind TokenKind) bool {
	if p.check(kind) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) check(kind TokenKind) bool {
	return p.peek().Kind == kind
}

func (p *Parser) checkNext(kind TokenKind) bool {
	if p.current+1 >= len(p.tokens) {
		return false
	}
	return p.tokens[p.current+1].Kind == kind
}

func (p *Parser) advance() Token {
	tok := p.tokens[p.current]
	if !p.isAtEnd() {
		p.current++
	}
	return tok
}

func (p *Parser) peek() Token {
	return p.tokens[p.current]
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Kind == TokenEOF
}

func (p *Parser) errorAt(tok Token, format string, args ...any) *diag.Error {
	span := diag.Span{
		Path:  p.path,
		Start: diag.Position{Line: tok.Line, Column: tok.Column, Offset: tok.Offset},
		End:   diag.Position{Line: tok.Line, Column: tok.Column + max(len(tok.Lexeme), 1), Offset: tok.End()},
	}
	return diag.Errorf(diag.KindParse, "%s", fmt.Sprintf(format, args...)).At(span, p.source)
}
