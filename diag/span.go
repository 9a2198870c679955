// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package diag

import "fmt"

// Position represents a position in source code.
type Position struct {
	Line   int
	Column int
	Offset int
}

// String formats the position as line:column.
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span represents a source code location span.
type Span struct {
	// Path is the file path or module name the span points into.
	Path  string
	Start Position
	End   Position
}

// IsZero reports whether the span carries no location.
func (s Span) IsZero() bool {
	return s.Start.Line == 0
}

// String formats the span as path:line:column.
func (s Span) String() string {
	if s.IsZero() {
		return s.Path
	}
	if s.Path == "" {
		return s.Start.String()
	}
	return s.Path + ":" + s.Start.String()
}

// LineSpan returns a span covering the given one-based line.
func LineSpan(path string, line, length int) Span {
	return Span{
		Path:  path,
		Start: Position{Line: line, Column: 1},
		End:   Position{Line: line, Column: length + 1},
	}
}
