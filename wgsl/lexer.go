package wgsl

import (
	"unicode"
	"unicode/utf8"
)

// Lexer tokenizes WGSL source code.
type Lexer struct {
	source string
	pos    int
	line   int
	column int
	start  int
	// startLine and startColumn locate the token being scanned.
	startLine   int
	startColumn int
	tokens      []Token
}

// NewLexer creates a new lexer for the given source.
func NewLexer(source string) *Lexer {
	// Estimate ~1 token per 6 characters of source.
	estTokens := max(len(source)/6, 16)
	return &Lexer{
		source: source,
		line:   1,
		column: 1,
		tokens: make([]Token, 0, estTokens),
	}
}

// Tokenize returns all tokens from the source. Comments and whitespace are
// dropped; unknown characters become TokenError tokens.
func (l *Lexer) Tokenize() []Token {
	for !l.isAtEnd() {
		l.start = l.pos
		l.startLine, l.startColumn = l.line, l.column
		l.scanToken()
	}

	l.tokens = append(l.tokens, Token{
		Kind:   TokenEOF,
		Line:   l.line,
		Column: l.column,
		Offset: len(l.source),
	})
	return l.tokens
}

func (l *Lexer) scanToken() {
	r := l.advance()

	switch r {
	case '(':
		l.addToken(TokenLeftParen)
	case ')':
		l.addToken(TokenRightParen)
	case '{':
		l.addToken(TokenLeftBrace)
	case '}':
		l.addToken(TokenRightBrace)
	case '[':
		l.addToken(TokenLeftBracket)
	case ']':
		l.addToken(TokenRightBracket)
	case ',':
		l.addToken(TokenComma)
	case '.':
		if isDigit(l.peek()) {
			l.number()
			return
		}
		l.addToken(TokenDot)
	case ';':
		l.addToken(TokenSemicolon)
	case '@':
		l.addToken(TokenAt)
	case ':':
		if l.match(':') {
			l.addToken(TokenColonColon)
		} else {
			l.addToken(TokenColon)
		}
	case '-':
		if l.match('>') {
			l.addToken(TokenArrow)
		} else {
			l.match('-')
			l.match('=')
			l.addToken(TokenOperator)
		}
	case '=':
		if l.match('=') {
			l.addToken(TokenOperator)
		} else {
			l.addToken(TokenEqual)
		}
	// Angle brackets stay single characters so template lists nest.
	case '<':
		if l.match('=') {
			l.addToken(TokenOperator)
		} else {
			l.addToken(TokenLess)
		}
	case '>':
		if l.match('=') {
			l.addToken(TokenOperator)
		} else {
			l.addToken(TokenGreater)
		}
	case '/':
		switch {
		case l.match('/'):
			for l.peek() != '\n' && !l.isAtEnd() {
				l.advance()
			}
		case l.match('*'):
			l.blockComment()
		default:
			l.match('=')
			l.addToken(TokenOperator)
		}
	case '+', '*', '%', '^', '~', '!', '&', '|':
		if (r == '+' || r == '&' || r == '|') && l.peek() == r {
			l.advance()
		}
		l.match('=')
		l.addToken(TokenOperator)

	case ' ', '\r', '\t':
	case '\n':
		l.line++
		l.column = 1

	default:
		switch {
		case isDigit(r):
			l.number()
		case isAlpha(r) || r == '_':
			l.identifier()
		default:
			l.addToken(TokenError)
		}
	}
}

func (l *Lexer) blockComment() {
	depth := 1
	for depth > 0 && !l.isAtEnd() {
		switch {
		case l.peek() == '/' && l.peekNext() == '*':
			l.advance()
			l.advance()
			depth++
		case l.peek() == '*' && l.peekNext() == '/':
			l.advance()
			l.advance()
			depth--
		default:
			if l.advance() == '\n' {
				l.line++
				l.column = 1
			}
		}
	}
}

// number scans decimal, hex and float literals with their suffixes.
func (l *Lexer) number() {
	if l.source[l.start] == '0' && (l.peek() == 'x' || l.peek() == 'X') {
		l.advance()
		for isHexDigit(l.peek()) || l.peek() == '.' {
			l.advance()
		}
		if l.peek() == 'p' || l.peek() == 'P' {
			l.exponent()
			l.floatSuffix()
			l.addToken(TokenFloatLiteral)
			return
		}
		if l.peek() == 'i' || l.peek() == 'u' {
			l.advance()
		}
		l.addToken(TokenIntLiteral)
		return
	}

	float := l.source[l.start] == '.'
	for isDigit(l.peek()) {
		l.advance()
	}

	// "1." is a float; "1.x" is member access on an int.
	if !float && l.peek() == '.' && !isAlpha(l.peekNext()) && l.peekNext() != '_' {
		float = true
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		float = true
		l.exponent()
	}
	if l.peek() == 'f' || l.peek() == 'h' {
		l.advance()
		l.addToken(TokenFloatLiteral)
		return
	}
	if float {
		l.addToken(TokenFloatLiteral)
		return
	}
	if l.peek() == 'i' || l.peek() == 'u' {
		l.advance()
	}
	l.addToken(TokenIntLiteral)
}

func (l *Lexer) exponent() {
	l.advance()
	if l.peek() == '+' || l.peek() == '-' {
		l.advance()
	}
	for isDigit(l.peek()) {
		l.advance()
	}
}

func (l *Lexer) floatSuffix() {
	if l.peek() == 'f' || l.peek() == 'h' {
		l.advance()
	}
}

func (l *Lexer) identifier() {
	for isAlphaNumeric(l.peek()) || l.peek() == '_' {
		l.advance()
	}
	l.addToken(lookupKeyword(l.source[l.start:l.pos]))
}

var keywords = map[string]TokenKind{
	"alias":        TokenAlias,
	"const":        TokenConst,
	"const_assert": TokenConstAssert,
	"diagnostic":   TokenDiagnostic,
	"enable":       TokenEnable,
	"fn":           TokenFn,
	"let":          TokenLet,
	"override":     TokenOverride,
	"requires":     TokenRequires,
	"struct":       TokenStruct,
	"var":          TokenVar,
	"virtual":      TokenVirtual,

	"break":      TokenKeyword,
	"case":       TokenKeyword,
	"continue":   TokenKeyword,
	"continuing": TokenKeyword,
	"default":    TokenKeyword,
	"discard":    TokenKeyword,
	"else":       TokenKeyword,
	"false":      TokenKeyword,
	"for":        TokenKeyword,
	"if":         TokenKeyword,
	"loop":       TokenKeyword,
	"return":     TokenKeyword,
	"switch":     TokenKeyword,
	"true":       TokenKeyword,
	"while":      TokenKeyword,
}

func lookupKeyword(text string) TokenKind {
	if kind, ok := keywords[text]; ok {
		return kind
	}
	return TokenIdent
}

func (l *Lexer) addToken(kind TokenKind) {
	l.tokens = append(l.tokens, Token{
		Kind:   kind,
		Lexeme: l.source[l.start:l.pos],
		Line:   l.startLine,
		Column: l.startColumn,
		Offset: l.start,
	})
}

func (l *Lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(l.source[l.pos:])
	l.pos += size
	l.column++
	return r
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.source[l.pos:])
	return r
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	_, size := utf8.DecodeRuneInString(l.source[l.pos:])
	r, _ := utf8.DecodeRuneInString(l.source[l.pos+size:])
	return r
}

func (l *Lexer) match(expected rune) bool {
	if l.isAtEnd() {
		return false
	}
	r, size := utf8.DecodeRuneInString(l.source[l.pos:])
	if r != expected {
		return false
	}
	l.pos += size
	l.column++
	return true
}

func (l *Lexer) isAtEnd() bool {
	return l.pos >= len(l.source)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func isAlpha(r rune) bool {
	return unicode.IsLetter(r)
}

func isAlphaNumeric(r rune) bool {
	return isAlpha(r) || isDigit(r)
}
