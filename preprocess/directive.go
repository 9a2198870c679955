// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package preprocess

import (
	"errors"
	"strings"
)

var (
	errMismatch    = errors.New("literal type does not match def type")
	errOrderedBool = errors.New("bool defs only support == and !=")
	errOperator    = errors.New("unknown operator")
)

// directive is one parsed #-line.
type directive struct {
	cmd string
	// chained is set for "#else ifdef X", "#else ifndef X" and "#else if X op V".
	chained bool
	arg     string
	// col is the zero-based byte column of the '#'.
	col int
}

var directiveNames = map[string]bool{
	"ifdef":              true,
	"ifndef":             true,
	"if":                 true,
	"else":               true,
	"endif":              true,
	"import":             true,
	"from":               true,
	"define_import_path": true,
	"define":             true,
	"version":            true,
	"extension":          true,
	"pragma":             true,
}

// parseDirective recognizes a directive in a comment-free line. Lines that
// start with '#' followed by anything else are left to substitution.
func parseDirective(code string) (directive, bool) {
	col := firstNonSpace(code)
	if col < 0 || code[col] != '#' {
		return directive{}, false
	}
	rest := strings.TrimLeft(code[col+1:], " \t")
	cmd, arg := splitWord(rest)
	if !directiveNames[cmd] {
		return directive{}, false
	}
	d := directive{cmd: cmd, arg: strings.TrimSpace(arg), col: col}
	if cmd == "else" && d.arg != "" {
		next, narg := splitWord(d.arg)
		switch next {
		case "ifdef", "ifndef", "if":
			d.cmd, d.arg, d.chained = next, strings.TrimSpace(narg), true
		}
	}
	return d, true
}

// leadingHashWord returns the identifier after a line-leading '#', if any.
func leadingHashWord(code string) string {
	col := firstNonSpace(code)
	if col < 0 || code[col] != '#' {
		return ""
	}
	rest := code[col+1:]
	if strings.HasPrefix(rest, "{") {
		return ""
	}
	word, _ := splitWord(rest)
	return word
}

// condition is the parsed operand list of #if.
type condition struct {
	def, op, lit string
}

// parseCondition splits "DEF op LIT". The operator is any run of the
// characters =!<>, validated later so that unknown operators get their own error.
func parseCondition(arg string) (condition, bool) {
	name, rest := splitIdent(arg)
	if name == "" {
		return condition{}, false
	}
	rest = strings.TrimLeft(rest, " \t")
	i := 0
	for i < len(rest) && strings.IndexByte("=!<>", rest[i]) >= 0 {
		i++
	}
	op := rest[:i]
	lit := strings.TrimSpace(rest[i:])
	if op == "" || lit == "" || strings.ContainsAny(lit, " \t") {
		return condition{}, false
	}
	return condition{def: name, op: op, lit: lit}, true
}

func validOperator(op string) bool {
	switch op {
	case "==", "!=", "<", "<=", ">", ">=":
		return true
	}
	return false
}

func splitWord(s string) (word, rest string) {
	i := 0
	for i < len(s) && isIdentPart(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

func splitIdent(s string) (ident, rest string) {
	s = strings.TrimLeft(s, " \t")
	if s == "" || !isIdentStart(s[0]) {
		return "", s
	}
	return splitWord(s)
}

func firstNonSpace(s string) int {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\r':
		default:
			return i
		}
	}
	return -1
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}

// condStack tracks nested conditional regions.
type condStack struct {
	stack []condFrame
}

type condFrame struct {
	parentActive bool
	taken        bool
	active       bool
	elseSeen     bool
	line         int
}

func (c *condStack) Depth() int { return len(c.stack) }

func (c *condStack) Active() bool {
	if len(c.stack) == 0 {
		return true
	}
	return c.stack[len(c.stack)-1].active
}

func (c *condStack) Push(cond bool, line int) {
	parent := c.Active()
	active := parent && cond
	c.stack = append(c.stack, condFrame{
		parentActive: parent,
		taken:        active,
		active:       active,
		line:         line,
	})
}

// Undecided reports whether the next #else branch of the innermost block
// could still be taken, i.e. whether its condition must be evaluated.
func (c *condStack) Undecided() bool {
	if len(c.stack) == 0 {
		return false
	}
	top := c.stack[len(c.stack)-1]
	return top.parentActive && !top.taken
}

func (c *condStack) Elif(cond bool) {
	top := &c.stack[len(c.stack)-1]
	if !top.parentActive || top.taken {
		top.active = false
		return
	}
	top.active = cond
	top.taken = cond
}

// ElseSeen reports whether the innermost block already had a plain #else.
func (c *condStack) ElseSeen() bool {
	return len(c.stack) > 0 && c.stack[len(c.stack)-1].elseSeen
}

func (c *condStack) Else() {
	top := &c.stack[len(c.stack)-1]
	top.elseSeen = true
	if !top.parentActive {
		top.active = false
		return
	}
	top.active = !top.taken
	top.taken = true
}

func (c *condStack) Pop() {
	c.stack = c.stack[:len(c.stack)-1]
}

func (c *condStack) UnclosedLine() int {
	if len(c.stack) == 0 {
		return 0
	}
	return c.stack[len(c.stack)-1].line
}
