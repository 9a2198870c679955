package wgsl

import (
	"github.com/gogpu/oil/diag"
	"github.com/gogpu/oil/ir"
)

type scanMode uint8

const (
	// scanExpr reads types, initializers and attribute arguments.
	scanExpr scanMode = iota
	// scanBody reads a function body and tracks local declarations.
	scanBody
	// scanStruct reads struct members; member names are not references.
	scanStruct
)

// refScanner collects the non-local names an item uses. Ranges are in
// absolute source offsets until the declaration is lowered.
type refScanner struct {
	p       *Parser
	scopes  []map[string]struct{}
	pending []string
	refs    []ir.Reference
	// loops holds the scope depth of each open for-loop header.
	loops []int
}

func newRefScanner(p *Parser) *refScanner {
	return &refScanner{
		p:      p,
		scopes: []map[string]struct{}{make(map[string]struct{})},
	}
}

func (s *refScanner) declare(name string) {
	s.scopes[len(s.scopes)-1][name] = struct{}{}
}

func (s *refScanner) isLocal(name string) bool {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if _, ok := s.scopes[i][name]; ok {
			return true
		}
	}
	return false
}

// flush declares locals whose declaration statement just ended. A local
// is visible only after its own initializer.
func (s *refScanner) flush() {
	for _, name := range s.pending {
		s.declare(name)
	}
	s.pending = s.pending[:0]
}

// closeLoop drops a for-loop header scope once its body has closed.
func (s *refScanner) closeLoop() {
	if n := len(s.loops); n > 0 && s.loops[n-1] == len(s.scopes) && len(s.scopes) > 1 {
		s.scopes = s.scopes[:len(s.scopes)-1]
		s.loops = s.loops[:n-1]
	}
}

// scan walks tokens[from:to].
func (s *refScanner) scan(from, to int, mode scanMode) {
	toks := s.p.tokens
	for i := from; i < to; i++ {
		tok := toks[i]
		switch tok.Kind {
		case TokenLeftBrace:
			if mode == scanBody {
				s.flush()
				s.scopes = append(s.scopes, make(map[string]struct{}))
			}
		case TokenRightBrace:
			if mode == scanBody && len(s.scopes) > 1 {
				s.flush()
				s.scopes = s.scopes[:len(s.scopes)-1]
				s.closeLoop()
			}
		case TokenKeyword:
			if mode == scanBody && tok.Lexeme == "for" {
				// Header locals live until the end of the loop body.
				s.flush()
				s.scopes = append(s.scopes, make(map[string]struct{}))
				s.loops = append(s.loops, len(s.scopes))
			}
		case TokenSemicolon:
			if mode == scanBody {
				s.flush()
			}
		case TokenLet, TokenConst, TokenVar:
			if mode != scanBody {
				continue
			}
			j := i + 1
			if tok.Kind == TokenVar && j < to && toks[j].Kind == TokenLess {
				// var<function> takes enumerants, never user names.
				if end := s.p.templateEnd(j); end > 0 && end < to {
					j = end + 1
				}
			}
			if j < to && toks[j].Kind == TokenIdent {
				s.pending = append(s.pending, toks[j].Lexeme)
				i = j
			}
		case TokenAt:
			// The attribute name is not a reference; its arguments are.
			if i+1 < to {
				i++
			}
		case TokenIdent:
			if i > 0 && toks[i-1].Kind == TokenDot {
				continue
			}
			if mode == scanStruct && i+1 < to && toks[i+1].Kind == TokenColon {
				continue
			}
			path, last := s.p.pathAt(i)
			if len(path) == 1 && s.isLocal(path[0]) {
				i = last
				continue
			}
			ref := ir.Reference{
				Path:  path,
				Range: ir.Range{Start: tok.Offset, End: toks[last].End()},
				Span: diag.Span{
					Path:  s.p.path,
					Start: diag.Position{Line: tok.Line, Column: tok.Column, Offset: tok.Offset},
					End:   diag.Position{Line: toks[last].Line, Column: toks[last].Column + len(toks[last].Lexeme), Offset: toks[last].End()},
				},
			}
			k := last + 1
			if k < len(toks) && toks[k].Kind == TokenLess && len(path) == 1 {
				if _, ok := templateGenerators[path[0]]; ok {
					if end := s.p.templateEnd(k); end > 0 {
						k = end + 1
					}
				}
			}
			if k < len(toks) && toks[k].Kind == TokenLeftParen {
				ref.Call = true
				ref.Args = s.p.countArgs(k)
			}
			s.refs = append(s.refs, ref)
			i = last
		}
	}
	s.flush()
}

// countArgs counts the arguments of the call whose '(' is at open.
func (p *Parser) countArgs(open int) int {
	closeIdx := p.matchingParen(open)
	if closeIdx < 0 || closeIdx == open+1 {
		return 0
	}
	args := 1
	depth, tmpl := 0, 0
	for i := open + 1; i < closeIdx; i++ {
		tok := p.tokens[i]
		switch tok.Kind {
		case TokenLeftParen, TokenLeftBracket, TokenLeftBrace:
			depth++
		case TokenRightParen, TokenRightBracket, TokenRightBrace:
			depth--
		case TokenIdent:
			if _, ok := templateGenerators[tok.Lexeme]; ok && p.tokens[i+1].Kind == TokenLess {
				tmpl++
				i++
			}
		case TokenGreater:
			if tmpl > 0 {
				tmpl--
			}
		case TokenComma:
			if depth == 0 && tmpl == 0 && i+1 < closeIdx {
				args++
			}
		}
	}
	return args
}
