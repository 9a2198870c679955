// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"unicode"
	"unicode/utf8"
)

// tokenKind classifies GLSL tokens. Punctuation is told apart by lexeme.
type tokenKind uint8

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenNumber
	tokenPunct
	tokenColonColon
	// tokenDirective is a whole "#extension ..." line left by the preprocessor.
	tokenDirective
)

type token struct {
	kind   tokenKind
	lexeme string
	line   int
	column int
	offset int
}

func (t token) end() int {
	return t.offset + len(t.lexeme)
}

func (t token) is(punct string) bool {
	return t.kind == tokenPunct && t.lexeme == punct
}

// tokenize splits source into tokens, dropping comments and whitespace.
func tokenize(source string) []token {
	l := &lexer{source: source, line: 1, column: 1, lineStart: true}
	for l.pos < len(source) {
		l.next()
	}
	l.tokens = append(l.tokens, token{kind: tokenEOF, line: l.line, column: l.column, offset: len(source)})
	return l.tokens
}

type lexer struct {
	source    string
	pos       int
	line      int
	column    int
	lineStart bool
	tokens    []token
}

func (l *lexer) next() {
	start, line, col := l.pos, l.line, l.column
	r := l.advance()

	switch {
	case r == '\n':
		l.line++
		l.column = 1
		l.lineStart = true
		return
	case r == ' ' || r == '\t' || r == '\r':
		return
	case r == '#' && l.lineStart:
		for l.pos < len(l.source) && l.source[l.pos] != '\n' {
			l.advance()
		}
		l.emit(tokenDirective, start, line, col)
		return
	}
	l.lineStart = false

	switch {
	case r == '/' && l.peek() == '/':
		for l.pos < len(l.source) && l.source[l.pos] != '\n' {
			l.advance()
		}
	case r == '/' && l.peek() == '*':
		l.advance()
		for l.pos < len(l.source) && !(l.source[l.pos] == '*' && l.pos+1 < len(l.source) && l.source[l.pos+1] == '/') {
			if l.advance() == '\n' {
				l.line++
				l.column = 1
			}
		}
		l.advance()
		l.advance()
	case r == ':' && l.peek() == ':':
		l.advance()
		l.emit(tokenColonColon, start, line, col)
	case r == '_' || unicode.IsLetter(r):
		for l.pos < len(l.source) {
			c, _ := utf8.DecodeRuneInString(l.source[l.pos:])
			if c != '_' && !unicode.IsLetter(c) && !unicode.IsDigit(c) {
				break
			}
			l.advance()
		}
		l.emit(tokenIdent, start, line, col)
	case unicode.IsDigit(r) || (r == '.' && unicode.IsDigit(l.peek())):
		for l.pos < len(l.source) {
			c := l.source[l.pos]
			if (c == '+' || c == '-') && (l.source[l.pos-1] == 'e' || l.source[l.pos-1] == 'E') {
				l.advance()
				continue
			}
			if c != '.' && c != '_' && !isAlnum(c) {
				break
			}
			l.advance()
		}
		l.emit(tokenNumber, start, line, col)
	default:
		l.emit(tokenPunct, start, line, col)
	}
}

func (l *lexer) emit(kind tokenKind, start, line, col int) {
	l.tokens = append(l.tokens, token{kind: kind, lexeme: l.source[start:l.pos], line: line, column: col, offset: start})
}

func (l *lexer) advance() rune {
	if l.pos >= len(l.source) {
		return 0
	}
	r, size := utf8.DecodeRuneInString(l.source[l.pos:])
	l.pos += size
	l.column++
	return r
}

func (l *lexer) peek() rune {
	if l.pos >= len(l.source) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.source[l.pos:])
	return r
}

func isAlnum(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
