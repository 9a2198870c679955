// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package preprocess

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/gogpu/oil/diag"
)

// Options configures a Preprocessor.
type Options struct {
	// AllowDefines permits #define. Only final shaders may define defs;
	// importable modules get their defs from the registry.
	AllowDefines bool

	// Path names the source in diagnostics.
	Path string

	// Logger receives debug output. Defaults to a null logger.
	Logger hclog.Logger
}

// Preprocessor evaluates directives in shader source.
type Preprocessor struct {
	opts   Options
	logger hclog.Logger
}

// New creates a Preprocessor.
func New(opts Options) *Preprocessor {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Preprocessor{opts: opts, logger: logger}
}

// Output is the result of Preprocess.
type Output struct {
	// Source is the directive-free body. It has the same number of lines as
	// the input; removed lines are empty.
	Source string

	// Name is the #define_import_path value, if any.
	Name string

	// Imports lists the imports in live regions, in source order.
	Imports []ImportDecl

	// Version is the GLSL #version, or 0.
	Version int
}

// Metadata is what can be learned from a source without choosing branches.
type Metadata struct {
	Name string

	// Imports lists every #import and #from, live or not.
	Imports []ImportDecl

	// Defines holds #define values.
	Defines ShaderDefs

	// UsedDefs lists, sorted and unique, every def the source tests or substitutes.
	UsedDefs []string

	Version int
}

type lineKind uint8

const (
	lineCode lineKind = iota
	linePassthrough
)

type retainedLine struct {
	index int
	kind  lineKind
}

// Preprocess selects conditional branches, strips directives and
// substitutes #NAME and #{NAME} tokens using defs.
//
// Branch selection runs first over the whole source; substitution then runs
// only over retained lines, so tokens in discarded branches never need a value.
func (p *Preprocessor) Preprocess(source string, defs ShaderDefs) (*Output, error) {
	lines := strings.Split(source, "\n")
	views := make([]string, len(lines))
	var blank commentBlanker
	for i, l := range lines {
		views[i] = blank.next(l)
	}

	out := &Output{}
	var cond condStack
	var keep []retainedLine

	for i, code := range views {
		lineNo := i + 1
		d, ok := parseDirective(code)
		if !ok {
			if !cond.Active() {
				continue
			}
			if w := leadingHashWord(code); w != "" {
				if _, defined := defs[w]; !defined {
					return nil, p.errorAt(diag.KindUnknownDirective, lineNo, firstNonSpace(code), lines,
						"unknown directive #%s", w)
				}
			}
			keep = append(keep, retainedLine{index: i})
			continue
		}

		switch d.cmd {
		case "ifdef", "ifndef", "if":
			if d.chained && cond.Depth() == 0 {
				return nil, p.errorAt(diag.KindUnbalancedDirective, lineNo, d.col, lines, "#else without #if")
			}
			if d.chained && cond.ElseSeen() {
				return nil, p.errorAt(diag.KindUnbalancedDirective, lineNo, d.col, lines, "#else %s after #else", d.cmd)
			}
			evaluate := cond.Active()
			if d.chained {
				evaluate = cond.Undecided()
			}
			var taken bool
			if evaluate {
				var err error
				taken, err = p.evaluate(d, defs, lineNo, lines)
				if err != nil {
					return nil, err
				}
			}
			if d.chained {
				cond.Elif(taken)
			} else {
				cond.Push(taken, lineNo)
			}
		case "else":
			if cond.Depth() == 0 {
				return nil, p.errorAt(diag.KindUnbalancedDirective, lineNo, d.col, lines, "#else without #if")
			}
			if d.arg != "" {
				return nil, p.errorAt(diag.KindUnknownDirective, lineNo, d.col, lines,
					"unexpected %q after #else", d.arg)
			}
			if cond.ElseSeen() {
				return nil, p.errorAt(diag.KindUnbalancedDirective, lineNo, d.col, lines, "second #else in one block")
			}
			cond.Else()
		case "endif":
			if cond.Depth() == 0 {
				return nil, p.errorAt(diag.KindUnbalancedDirective, lineNo, d.col, lines, "#endif without #if")
			}
			cond.Pop()
		default:
			if !cond.Active() {
				continue
			}
			passthrough, err := p.declaration(d, out, lineNo, lines)
			if err != nil {
				return nil, err
			}
			if passthrough {
				keep = append(keep, retainedLine{index: i, kind: linePassthrough})
			}
		}
	}

	if cond.Depth() != 0 {
		line := cond.UnclosedLine()
		return nil, p.errorAt(diag.KindUnbalancedDirective, line, firstNonSpace(views[line-1]), lines,
			"unterminated conditional block")
	}

	body := make([]string, len(lines))
	for _, r := range keep {
		if r.kind == linePassthrough {
			body[r.index] = lines[r.index]
			continue
		}
		text, err := p.substitute(lines[r.index], views[r.index], defs, r.index+1, lines)
		if err != nil {
			return nil, err
		}
		body[r.index] = text
	}
	out.Source = strings.Join(body, "\n")

	p.logger.Trace("preprocessed", "path", p.opts.Path, "lines", len(lines), "retained", len(keep))
	return out, nil
}

// declaration handles the non-conditional directives of a live region and
// reports whether the line passes through to the output.
func (p *Preprocessor) declaration(d directive, out *Output, lineNo int, lines []string) (bool, error) {
	switch d.cmd {
	case "import", "from":
		decl, err := p.importDecl(d, lineNo, lines)
		if err != nil {
			return false, err
		}
		out.Imports = append(out.Imports, decl)
	case "define_import_path":
		name, _, ok := parseModulePath(d.arg)
		if !ok {
			return false, p.errorAt(diag.KindImportParse, lineNo, d.col, lines,
				"expected module path after #define_import_path")
		}
		out.Name = name
	case "define":
		if _, err := p.define(d, lineNo, lines); err != nil {
			return false, err
		}
	case "version":
		v, err := p.version(d, lineNo, lines)
		if err != nil {
			return false, err
		}
		out.Version = v
	case "extension", "pragma":
		return true, nil
	}
	return false, nil
}

func (p *Preprocessor) importDecl(d directive, lineNo int, lines []string) (ImportDecl, error) {
	var decl ImportDecl
	var err error
	if d.cmd == "import" {
		decl, err = parseImport(d.arg)
	} else {
		decl, err = parseFrom(d.arg)
	}
	if err != nil {
		return ImportDecl{}, p.errorAt(diag.KindImportParse, lineNo, d.col, lines, "%v", err)
	}
	decl.Span = diag.LineSpan(p.opts.Path, lineNo, len(lines[lineNo-1]))
	decl.Span.Start.Column = d.col + 1
	return decl, nil
}

func (p *Preprocessor) define(d directive, lineNo int, lines []string) (string, error) {
	if !p.opts.AllowDefines {
		return "", p.errorAt(diag.KindDefineNotAllowed, lineNo, d.col, lines,
			"#define is only allowed in the top-level shader")
	}
	name, rest := splitIdent(d.arg)
	if name == "" {
		return "", p.errorAt(diag.KindParse, lineNo, d.col, lines, "expected a name after #define")
	}
	if _, err := ParseShaderDefValue(rest); err != nil {
		return "", p.errorAt(diag.KindParse, lineNo, d.col, lines, "%v", err)
	}
	return name, nil
}

func (p *Preprocessor) version(d directive, lineNo int, lines []string) (int, error) {
	word, _ := splitWord(d.arg)
	v, err := strconv.Atoi(word)
	if err != nil || (v != 440 && v != 450) {
		return 0, p.errorAt(diag.KindInvalidVersion, lineNo, d.col, lines,
			"GLSL #version must be 440 or 450, found %q", d.arg)
	}
	return v, nil
}

// evaluate decides an #ifdef, #ifndef or #if condition.
func (p *Preprocessor) evaluate(d directive, defs ShaderDefs, lineNo int, lines []string) (bool, error) {
	if d.cmd != "if" {
		name, rest := splitIdent(d.arg)
		if name == "" || strings.TrimSpace(rest) != "" {
			return false, p.errorAt(diag.KindUnknownDirective, lineNo, d.col, lines,
				"#%s expects a single def name", d.cmd)
		}
		_, present := defs[name]
		return present == (d.cmd == "ifdef"), nil
	}

	c, ok := parseCondition(d.arg)
	if !ok {
		return false, p.errorAt(diag.KindUnknownDirective, lineNo, d.col, lines,
			"malformed #if %q, expected DEF op VALUE", d.arg)
	}
	if !validOperator(c.op) {
		return false, p.errorAt(diag.KindUnknownOperator, lineNo, d.col, lines,
			"unknown operator %q in #if", c.op)
	}
	v, ok := defs[c.def]
	if !ok {
		return false, p.errorAt(diag.KindUndefinedShaderDef, lineNo, d.col, lines,
			"shader def %s is not defined", c.def)
	}
	taken, err := v.compare(c.op, c.lit)
	switch {
	case errors.Is(err, errOperator):
		return false, p.errorAt(diag.KindUnknownOperator, lineNo, d.col, lines,
			"unknown operator %q in #if", c.op)
	case err != nil:
		return false, p.errorAt(diag.KindTypeMismatchInCondition, lineNo, d.col, lines,
			"cannot compare %s def %s with %q: %v", v.Kind(), c.def, c.lit, err)
	}
	return taken, nil
}

// substitute replaces #NAME and #{NAME} in the code parts of line.
func (p *Preprocessor) substitute(line, code string, defs ShaderDefs, lineNo int, lines []string) (string, error) {
	if !strings.Contains(code, "#") {
		return line, nil
	}
	var sb strings.Builder
	last := 0
	for i := 0; i < len(code); i++ {
		if code[i] != '#' {
			continue
		}
		start, end := i+1, i+1
		braced := end < len(code) && code[end] == '{'
		if braced {
			start++
			end++
		}
		for end < len(code) && isIdentPart(code[end]) {
			end++
		}
		name := code[start:end]
		if name == "" || !isIdentStart(name[0]) {
			continue
		}
		if braced {
			if end >= len(code) || code[end] != '}' {
				continue
			}
			end++
		}
		v, ok := defs[name]
		if !ok {
			return "", p.errorAt(diag.KindUndefinedShaderDef, lineNo, i, lines,
				"shader def %s is not defined", name).Suggest(name, defs.Names())
		}
		sb.WriteString(line[last:i])
		sb.WriteString(v.String())
		last = end
		i = end - 1
	}
	sb.WriteString(line[last:])
	text := sb.String()
	if len(text) > len(line) {
		p.logger.Warn("substitution lengthened line; later columns on it are shifted",
			"path", p.opts.Path, "line", lineNo)
	}
	return text, nil
}

// Metadata scans source without evaluating conditions.
func (p *Preprocessor) Metadata(source string) (*Metadata, error) {
	lines := strings.Split(source, "\n")
	meta := &Metadata{Defines: ShaderDefs{}}
	used := make(map[string]bool)
	var blank commentBlanker

	for i, l := range lines {
		lineNo := i + 1
		code := blank.next(l)
		d, ok := parseDirective(code)
		if !ok {
			collectTokens(code, used)
			continue
		}
		switch d.cmd {
		case "ifdef", "ifndef":
			if name, _ := splitIdent(d.arg); name != "" {
				used[name] = true
			}
		case "if":
			if c, ok := parseCondition(d.arg); ok {
				used[c.def] = true
			}
		case "import", "from":
			decl, err := p.importDecl(d, lineNo, lines)
			if err != nil {
				return nil, err
			}
			meta.Imports = append(meta.Imports, decl)
		case "define_import_path":
			if name, _, ok := parseModulePath(d.arg); ok {
				meta.Name = name
			}
		case "define":
			name, err := p.define(d, lineNo, lines)
			if err != nil {
				return nil, err
			}
			_, rest := splitIdent(d.arg)
			v, _ := ParseShaderDefValue(rest)
			meta.Defines[name] = v
		case "version":
			v, err := p.version(d, lineNo, lines)
			if err != nil {
				return nil, err
			}
			meta.Version = v
		}
	}

	for name := range used {
		meta.UsedDefs = append(meta.UsedDefs, name)
	}
	sort.Strings(meta.UsedDefs)
	return meta, nil
}

// collectTokens records the names of #NAME and #{NAME} tokens in code.
func collectTokens(code string, used map[string]bool) {
	for i := 0; i < len(code); i++ {
		if code[i] != '#' {
			continue
		}
		rest := code[i+1:]
		rest = strings.TrimPrefix(rest, "{")
		if name, _ := splitIdent(rest); name != "" && rest[0] != ' ' {
			used[name] = true
		}
	}
}

func (p *Preprocessor) errorAt(kind diag.Kind, lineNo, col int, lines []string, format string, args ...any) *diag.Error {
	span := diag.Span{Path: p.opts.Path}
	if lineNo > 0 && lineNo <= len(lines) {
		span = diag.LineSpan(p.opts.Path, lineNo, len(lines[lineNo-1]))
		span.Start.Column = max(col, 0) + 1
	}
	return diag.Errorf(kind, format, args...).At(span, strings.Join(lines, "\n"))
}
