// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes composition errors.
type Kind uint8

const (
	// KindParse indicates a front end could not read a module body.
	KindParse Kind = iota

	// KindImportNotFound indicates an import names a module absent from the registry.
	KindImportNotFound

	// KindImportCycle indicates an import would close a cycle.
	KindImportCycle

	// KindImportParse indicates a malformed #import or #from directive.
	KindImportParse

	// KindDuplicateDefinition indicates two items share one qualified name.
	KindDuplicateDefinition

	// KindDuplicateModule indicates a re-add that the registry policy rejects.
	KindDuplicateModule

	// KindNotFound indicates a lookup of an unregistered module.
	KindNotFound

	// KindInUse indicates removal of a module that others still import.
	KindInUse

	// KindNoModuleName indicates a module without a name or #define_import_path.
	KindNoModuleName

	// KindUnresolvedReference indicates a name that is not in scope.
	KindUnresolvedReference

	// KindUnresolvedModule indicates a qualified reference to a module that was not imported.
	KindUnresolvedModule

	// KindOverrideSignatureMismatch indicates an override whose shape differs from its base.
	KindOverrideSignatureMismatch

	// KindOverrideNotVirtual indicates an override of a function not marked virtual.
	KindOverrideNotVirtual

	// KindLanguageUnsupported indicates a construct the module's language cannot express.
	KindLanguageUnsupported

	// KindUndefinedShaderDef indicates a directive or substitution naming an unknown def.
	KindUndefinedShaderDef

	// KindTypeMismatchInCondition indicates an #if literal of the wrong type.
	KindTypeMismatchInCondition

	// KindUnknownOperator indicates an #if comparison operator that is not supported.
	KindUnknownOperator

	// KindUnbalancedDirective indicates mismatched #if/#else/#endif nesting.
	KindUnbalancedDirective

	// KindUnknownDirective indicates an unrecognized directive in a live region.
	KindUnknownDirective

	// KindDefineNotAllowed indicates #define inside an importable module.
	KindDefineNotAllowed

	// KindInvalidVersion indicates an unsupported GLSL #version.
	KindInvalidVersion

	// KindInconsistentShaderDef indicates a composition def that conflicts with a module's bound def.
	KindInconsistentShaderDef

	// KindDecorationInSource indicates source text that already contains a mangled symbol.
	KindDecorationInSource

	// KindValidation indicates a post-merge structural check failed.
	KindValidation
)

var kindNames = [...]string{
	KindParse:                     "Parse",
	KindImportNotFound:            "ImportNotFound",
	KindImportCycle:               "ImportCycle",
	KindImportParse:               "ImportParse",
	KindDuplicateDefinition:       "DuplicateDefinition",
	KindDuplicateModule:           "DuplicateModule",
	KindNotFound:                  "NotFound",
	KindInUse:                     "InUse",
	KindNoModuleName:              "NoModuleName",
	KindUnresolvedReference:       "UnresolvedReference",
	KindUnresolvedModule:          "UnresolvedModule",
	KindOverrideSignatureMismatch: "OverrideSignatureMismatch",
	KindOverrideNotVirtual:        "OverrideNotVirtual",
	KindLanguageUnsupported:       "LanguageUnsupported",
	KindUndefinedShaderDef:        "UndefinedShaderDef",
	KindTypeMismatchInCondition:   "TypeMismatchInCondition",
	KindUnknownOperator:           "UnknownOperator",
	KindUnbalancedDirective:       "UnbalancedDirective",
	KindUnknownDirective:          "UnknownDirective",
	KindDefineNotAllowed:          "DefineNotAllowed",
	KindInvalidVersion:            "InvalidVersion",
	KindInconsistentShaderDef:     "InconsistentShaderDef",
	KindDecorationInSource:        "DecorationInSource",
	KindValidation:                "Validation",
}

// String returns a human-readable error kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "Unknown"
}

// Error is a composition error. Every failure surfaced by the preprocessor,
// registry, builder and composer is an *Error, possibly wrapped.
type Error struct {
	// Kind categorizes the error.
	Kind Kind

	// Module names the module being processed, if known.
	Module string

	// Span optionally identifies the source location.
	Span Span

	// Message provides details about the error.
	Message string

	// Suggestion is a close match for a misspelled name, if any.
	Suggestion string

	// Source is the text Span refers to, used by FormatWithContext.
	Source string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if e.Module != "" {
		fmt.Fprintf(&sb, " in %s", e.Module)
	}
	if !e.Span.IsZero() {
		fmt.Fprintf(&sb, " at %s", e.Span.Start)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Suggestion != "" {
		fmt.Fprintf(&sb, " (did you mean %q?)", e.Suggestion)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// FormatWithContext returns the error message with source context.
// Shows the problematic line with a caret pointing to the error location.
func (e *Error) FormatWithContext() string {
	if e.Source == "" || e.Span.Start.Line == 0 {
		return e.Error()
	}

	lines := strings.Split(e.Source, "\n")
	lineNum := e.Span.Start.Line
	if lineNum > len(lines) {
		return e.Error()
	}

	line := lines[lineNum-1]
	col := max(e.Span.Start.Column, 1)
	col = min(col, len(line)+1)

	width := 1
	if e.Span.End.Line == lineNum && e.Span.End.Column > col {
		width = e.Span.End.Column - col
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "error[%s]: %s\n", e.Kind, e.Message)
	if e.Span.Path != "" {
		fmt.Fprintf(&sb, "  --> %s:%d:%d\n", e.Span.Path, lineNum, col)
	} else {
		fmt.Fprintf(&sb, "  --> line %d:%d\n", lineNum, col)
	}
	sb.WriteString("   |\n")
	fmt.Fprintf(&sb, "%3d| %s\n", lineNum, line)
	fmt.Fprintf(&sb, "   | %s%s\n", strings.Repeat(" ", col-1), strings.Repeat("^", width))
	if e.Suggestion != "" {
		fmt.Fprintf(&sb, "   = help: did you mean %q?\n", e.Suggestion)
	}

	return sb.String()
}

// Errorf creates a new Error with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// At attaches a span and the source it points into.
func (e *Error) At(span Span, source string) *Error {
	e.Span = span
	e.Source = source
	return e
}

// In records the module the error belongs to, unless one is already set.
func (e *Error) In(module string) *Error {
	if e.Module == "" {
		e.Module = module
	}
	return e
}

// Suggest attaches the closest candidate to name, if one is close enough.
func (e *Error) Suggest(name string, candidates []string) *Error {
	e.Suggestion = Closest(name, candidates)
	return e
}

// Wrap records the underlying cause.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Is reports whether err's chain contains an *Error of the given kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

// InModule sets the module on err if it is an *Error without one.
func InModule(err error, module string) error {
	var e *Error
	if errors.As(err, &e) {
		e.In(module)
	}
	return err
}
