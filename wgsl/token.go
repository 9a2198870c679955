package wgsl

// TokenKind represents the type of token.
type TokenKind uint8

const (
	TokenEOF TokenKind = iota
	TokenError

	// Literals
	TokenIdent
	TokenIntLiteral
	TokenFloatLiteral

	// Punctuation the item scanner cares about
	TokenColonColon // ::
	TokenColon      // :
	TokenSemicolon  // ;
	TokenComma      // ,
	TokenDot        // .
	TokenAt         // @
	TokenArrow      // ->
	TokenEqual      // =
	TokenLess       // <
	TokenGreater    // >
	TokenOperator   // any other operator

	// Delimiters
	TokenLeftParen    // (
	TokenRightParen   // )
	TokenLeftBrace    // {
	TokenRightBrace   // }
	TokenLeftBracket  // [
	TokenRightBracket // ]

	// Declaration keywords
	TokenAlias
	TokenConst
	TokenConstAssert
	TokenDiagnostic
	TokenEnable
	TokenFn
	TokenLet
	TokenOverride
	TokenRequires
	TokenStruct
	TokenVar
	TokenVirtual

	// Other keywords and reserved words
	TokenKeyword
)

var kindNames = map[TokenKind]string{
	TokenEOF:          "EOF",
	TokenError:        "Error",
	TokenIdent:        "Ident",
	TokenIntLiteral:   "IntLiteral",
	TokenFloatLiteral: "FloatLiteral",
	TokenColonColon:   "::",
	TokenColon:        ":",
	TokenSemicolon:    ";",
	TokenComma:        ",",
	TokenDot:          ".",
	TokenAt:           "@",
	TokenArrow:        "->",
	TokenEqual:        "=",
	TokenLess:         "<",
	TokenGreater:      ">",
	TokenOperator:     "operator",
	TokenLeftParen:    "(",
	TokenRightParen:   ")",
	TokenLeftBrace:    "{",
	TokenRightBrace:   "}",
	TokenLeftBracket:  "[",
	TokenRightBracket: "]",
	TokenAlias:        "alias",
	TokenConst:        "const",
	TokenConstAssert:  "const_assert",
	TokenDiagnostic:   "diagnostic",
	TokenEnable:       "enable",
	TokenFn:           "fn",
	TokenLet:          "let",
	TokenOverride:     "override",
	TokenRequires:     "requires",
	TokenStruct:       "struct",
	TokenVar:          "var",
	TokenVirtual:      "virtual",
	TokenKeyword:      "keyword",
}

// String returns the string representation of the token kind.
func (k TokenKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// Token represents a lexical token.
type Token struct {
	Kind   TokenKind
	Lexeme string
	Line   int
	Column int
	// Offset is the byte offset of the first character.
	Offset int
}

// End returns the byte offset just past the token.
func (t Token) End() int {
	return t.Offset + len(t.Lexeme)
}
