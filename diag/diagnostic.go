// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package diag

import (
	"fmt"
	"sort"

	"github.com/agext/levenshtein"
	"github.com/hashicorp/go-multierror"
)

// Severity ranks a diagnostic.
type Severity uint8

const (
	// SeverityError marks a diagnostic that makes the result unusable.
	SeverityError Severity = iota
	// SeverityWarning marks a diagnostic the caller may ignore.
	SeverityWarning
)

// String returns the lower-case severity name.
func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic is one message produced while composing.
type Diagnostic struct {
	Severity Severity
	Kind     Kind
	Span     Span
	Message  string
}

// String formats the diagnostic on one line.
func (d Diagnostic) String() string {
	if d.Span.IsZero() && d.Span.Path == "" {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Span, d.Severity, d.Message)
}

// AsError converts the diagnostic into an *Error.
func (d Diagnostic) AsError() *Error {
	return &Error{Kind: d.Kind, Span: d.Span, Message: d.Message}
}

// List is an ordered sequence of diagnostics.
type List []Diagnostic

// Errorf appends an error diagnostic.
func (l *List) Errorf(kind Kind, span Span, format string, args ...any) {
	*l = append(*l, Diagnostic{
		Severity: SeverityError,
		Kind:     kind,
		Span:     span,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Warnf appends a warning diagnostic.
func (l *List) Warnf(kind Kind, span Span, format string, args ...any) {
	*l = append(*l, Diagnostic{
		Severity: SeverityWarning,
		Kind:     kind,
		Span:     span,
		Message:  fmt.Sprintf(format, args...),
	})
}

// HasErrors reports whether any diagnostic has error severity.
func (l List) HasErrors() bool {
	for _, d := range l {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only the error-severity diagnostics.
func (l List) Errors() List {
	var out List
	for _, d := range l {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// Err folds the error-severity diagnostics into a single error, or nil.
func (l List) Err() error {
	var result *multierror.Error
	for _, d := range l {
		if d.Severity == SeverityError {
			result = multierror.Append(result, d.AsError())
		}
	}
	return result.ErrorOrNil()
}

// maxSuggestDistance bounds how different a suggestion may be.
const maxSuggestDistance = 3

// Closest returns the candidate nearest to name by edit distance, or ""
// when nothing is close enough to be a plausible typo.
func Closest(name string, candidates []string) string {
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)

	best, bestDist := "", maxSuggestDistance+1
	for _, c := range sorted {
		if c == name {
			continue
		}
		d := levenshtein.Distance(name, c, nil)
		if d < bestDist && d < len(name) {
			best, bestDist = c, d
		}
	}
	return best
}
