// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import "github.com/gogpu/oil/ir"

type scanMode uint8

const (
	scanExpr scanMode = iota
	scanBody
	scanStruct
)

// scanner collects module-scope names used by an item. A declaration is
// recognized by its shape: a type name directly followed by the declared
// identifier.
type scanner struct {
	p       *parser
	skip    int
	scopes  []map[string]struct{}
	pending []string
	refs    []ir.Reference
	loops   []loopScope
}

// loopScope is an open for-loop header scope. A braced body closes it at
// the brace that returns to depth; a single-statement body at token end.
type loopScope struct {
	depth int
	end   int
}

func newScanner(p *parser) *scanner {
	return &scanner{p: p, skip: -1, scopes: []map[string]struct{}{{}}}
}

func (s *scanner) flush() {
	for _, name := range s.pending {
		s.scopes[len(s.scopes)-1][name] = struct{}{}
	}
	s.pending = s.pending[:0]
}

func (s *scanner) openLoop(i int) {
	s.flush()
	s.scopes = append(s.scopes, map[string]struct{}{})
	loop := loopScope{depth: len(s.scopes), end: -1}
	if closeIdx := s.p.matchingParen(i + 1); closeIdx > 0 && !s.p.toks[closeIdx+1].is("{") {
		for j := closeIdx + 1; j < len(s.p.toks); j++ {
			if tok := s.p.toks[j]; tok.is("(") {
				if c := s.p.matchingParen(j); c > 0 {
					j = c
				}
			} else if tok.is(";") {
				loop.end = j
				break
			}
		}
	}
	s.loops = append(s.loops, loop)
}

// closeLoop drops the header scopes of the loops the token at i ends.
// brace is set after a '}' has popped a block.
func (s *scanner) closeLoop(i int, brace bool) {
	for n := len(s.loops); n > 0 && len(s.scopes) > 1; n = len(s.loops) {
		loop := s.loops[n-1]
		if loop.end != i && !(brace && loop.end < 0 && loop.depth == len(s.scopes)) {
			return
		}
		s.flush()
		s.scopes = s.scopes[:len(s.scopes)-1]
		s.loops = s.loops[:n-1]
		brace = false
	}
}

func (s *scanner) isLocal(name string) bool {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if _, ok := s.scopes[i][name]; ok {
			return true
		}
	}
	return false
}

// declares reports whether the identifier at i is being declared.
func (s *scanner) declares(i int) bool {
	if i == 0 {
		return false
	}
	prev := s.p.toks[i-1]
	if prev.kind != tokenIdent {
		return false
	}
	return isBuiltinType(prev.lexeme) || !isKeyword(prev.lexeme)
}

func (s *scanner) scan(from, to int, mode scanMode) {
	toks := s.p.toks
	for i := from; i < to; i++ {
		tok := toks[i]
		switch {
		case tok.is("{"):
			if mode == scanBody {
				s.flush()
				s.scopes = append(s.scopes, map[string]struct{}{})
			}
		case tok.is("}"):
			if mode == scanBody && len(s.scopes) > 1 {
				s.flush()
				s.scopes = s.scopes[:len(s.scopes)-1]
				s.closeLoop(i, true)
			}
		case tok.is(";") || tok.is(","):
			if mode == scanBody {
				s.flush()
				if tok.is(";") {
					s.closeLoop(i, false)
				}
			}
		case tok.kind == tokenIdent && tok.lexeme == "for" && toks[i+1].is("("):
			if mode == scanBody {
				s.openLoop(i)
			}
		case tok.kind == tokenIdent:
			if tok.lexeme == "layout" && toks[i+1].is("(") {
				if closeIdx := s.p.matchingParen(i + 1); closeIdx > 0 {
					i = closeIdx
				}
				continue
			}
			if i == s.skip || i > 0 && toks[i-1].is(".") {
				continue
			}
			path, last := s.p.qualified(i)
			if len(path) == 1 {
				name := path[0]
				if s.declares(i) {
					if mode == scanBody {
						s.pending = append(s.pending, name)
					}
					continue
				}
				if isKeyword(name) || s.isLocal(name) {
					continue
				}
			}
			ref := ir.Reference{
				Path:  path,
				Range: ir.Range{Start: tok.offset, End: toks[last].end()},
				Span:  s.p.span(i, last),
			}
			if toks[last+1].is("(") {
				ref.Call = true
				ref.Args = s.p.countArgs(last + 1)
			}
			s.refs = append(s.refs, ref)
			i = last
		}
	}
	s.flush()
}

func (p *parser) countArgs(open int) int {
	closeIdx := p.matchingParen(open)
	if closeIdx < 0 || closeIdx == open+1 {
		return 0
	}
	args, depth := 1, 0
	for i := open + 1; i < closeIdx; i++ {
		switch tok := p.toks[i]; {
		case tok.is("(") || tok.is("[") || tok.is("{"):
			depth++
		case tok.is(")") || tok.is("]") || tok.is("}"):
			depth--
		case tok.is(",") && depth == 0:
			args++
		}
	}
	return args
}
