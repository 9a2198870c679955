// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package preprocess

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/oil/diag"
)

func lines(s ...string) string {
	return strings.Join(s, "\n")
}

func TestPreprocessBranches(t *testing.T) {
	bigNumber := lines(
		"fn f() -> f32 {",
		"#ifdef BIG_NUMBER",
		"    return 999.0;",
		"#else",
		"    return 0.999;",
		"#endif",
		"}",
	)
	level := lines(
		"#if LEVEL >= 3",
		"high",
		"#else",
		"low",
		"#endif",
	)
	chain := lines(
		"#ifdef A",
		"a",
		"#else ifdef B",
		"b",
		"#else if C == true",
		"c",
		"#else",
		"none",
		"#endif",
	)

	tests := []struct {
		name   string
		source string
		defs   ShaderDefs
		want   string
	}{
		{
			name:   "ifdef present",
			source: bigNumber,
			defs:   ShaderDefs{"BIG_NUMBER": Bool(true)},
			want:   lines("fn f() -> f32 {", "", "    return 999.0;", "", "", "", "}"),
		},
		{
			name:   "ifdef tests presence not value",
			source: bigNumber,
			defs:   ShaderDefs{"BIG_NUMBER": Bool(false)},
			want:   lines("fn f() -> f32 {", "", "    return 999.0;", "", "", "", "}"),
		},
		{
			name:   "ifdef absent",
			source: bigNumber,
			want:   lines("fn f() -> f32 {", "", "", "", "    return 0.999;", "", "}"),
		},
		{
			name:   "uint comparison true",
			source: level,
			defs:   ShaderDefs{"LEVEL": Uint(5)},
			want:   lines("", "high", "", "", ""),
		},
		{
			name:   "uint comparison false",
			source: level,
			defs:   ShaderDefs{"LEVEL": Uint(1)},
			want:   lines("", "", "", "low", ""),
		},
		{
			name:   "signed comparison",
			source: level,
			defs:   ShaderDefs{"LEVEL": Int(-4)},
			want:   lines("", "", "", "low", ""),
		},
		{
			name:   "else chain first",
			source: chain,
			defs:   ShaderDefs{"A": Bool(true), "B": Bool(true)},
			want:   lines("", "a", "", "", "", "", "", "", ""),
		},
		{
			name:   "else chain second",
			source: chain,
			defs:   ShaderDefs{"B": Bool(true)},
			want:   lines("", "", "", "b", "", "", "", "", ""),
		},
		{
			name:   "else chain comparison",
			source: chain,
			defs:   ShaderDefs{"C": Bool(true)},
			want:   lines("", "", "", "", "", "c", "", "", ""),
		},
		{
			name:   "else chain fallthrough",
			source: chain,
			defs:   ShaderDefs{"C": Bool(false)},
			want:   lines("", "", "", "", "", "", "", "none", ""),
		},
		{
			name: "dead region is not evaluated",
			source: lines(
				"#ifdef MISSING",
				"#if UNDEFINED > 3",
				"#frobnicate",
				"x = #NOPE;",
				"#endif",
				"#endif",
				"kept",
			),
			want: lines("", "", "", "", "", "", "kept"),
		},
		{
			name: "nested",
			source: lines(
				"#ifndef OUTER",
				"#ifdef INNER",
				"inner",
				"#endif",
				"outer",
				"#endif",
			),
			defs: ShaderDefs{"INNER": Bool(true)},
			want: lines("", "", "inner", "", "outer", ""),
		},
		{
			name:   "comments are not directives",
			source: lines("// #ifdef NOPE", "/* #UNDEFINED", "#endif */ code"),
			want:   lines("// #ifdef NOPE", "/* #UNDEFINED", "#endif */ code"),
		},
		{
			name:   "glsl passthrough",
			source: lines("#version 450", "#extension GL_EXT_foo : enable", "void main() {}"),
			want:   lines("", "#extension GL_EXT_foo : enable", "void main() {}"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := New(Options{}).Preprocess(tt.source, tt.defs)
			if err != nil {
				t.Fatalf("Preprocess failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, out.Source); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPreprocessSubstitution(t *testing.T) {
	defs := ShaderDefs{
		"SCALE":  Uint(2),
		"OFFSET": Int(-1),
		"ON":     Bool(true),
	}
	source := lines(
		"let x = #SCALE + #{OFFSET};",
		"let y = #{ON}; // #NOT_A_DEF",
		"#SCALE",
		"let z = a # b;",
	)
	want := lines(
		"let x = 2 + -1;",
		"let y = true; // #NOT_A_DEF",
		"2",
		"let z = a # b;",
	)

	out, err := New(Options{}).Preprocess(source, defs)
	if err != nil {
		t.Fatalf("Preprocess failed: %v", err)
	}
	if diff := cmp.Diff(want, out.Source); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestPreprocessDeclarations(t *testing.T) {
	source := lines(
		"#define_import_path my::module",
		"#import common::math",
		"#import common::lighting as light",
		"#ifdef SHADOWS",
		"#from common::shadows import sample_shadow, ShadowParams",
		"#endif",
		"fn f() {}",
	)

	out, err := New(Options{Path: "m.wgsl"}).Preprocess(source, ShaderDefs{"SHADOWS": Bool(true)})
	if err != nil {
		t.Fatalf("Preprocess failed: %v", err)
	}
	if out.Name != "my::module" {
		t.Errorf("Name = %q, want %q", out.Name, "my::module")
	}

	type imp struct {
		Path, Alias string
		Items       []string
	}
	var got []imp
	for _, d := range out.Imports {
		got = append(got, imp{d.Path, d.Alias, d.Items})
	}
	want := []imp{
		{Path: "common::math"},
		{Path: "common::lighting", Alias: "light"},
		{Path: "common::shadows", Items: []string{"sample_shadow", "ShadowParams"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("imports mismatch (-want +got):\n%s", diff)
	}
	if out.Imports[1].Span.Start.Line != 3 {
		t.Errorf("import span line = %d, want 3", out.Imports[1].Span.Start.Line)
	}
	if got := strings.Count(out.Source, "\n"); got != 6 {
		t.Errorf("line count changed: got %d newlines, want 6", got)
	}

	out, err = New(Options{}).Preprocess(source, nil)
	if err != nil {
		t.Fatalf("Preprocess failed: %v", err)
	}
	if len(out.Imports) != 2 {
		t.Errorf("Expected 2 live imports, got %d", len(out.Imports))
	}
}

func TestPreprocessErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		defs   ShaderDefs
		opts   Options
		kind   diag.Kind
		line   int
	}{
		{"undefined in if", "#if LEVEL >= 3\n#endif", nil, Options{}, diag.KindUndefinedShaderDef, 1},
		{"bool against int", "#if FLAG == 3\n#endif", ShaderDefs{"FLAG": Bool(true)}, Options{}, diag.KindTypeMismatchInCondition, 1},
		{"negative against uint", "#if N > -1\n#endif", ShaderDefs{"N": Uint(1)}, Options{}, diag.KindTypeMismatchInCondition, 1},
		{"ordered bool", "#if FLAG < true\n#endif", ShaderDefs{"FLAG": Bool(true)}, Options{}, diag.KindTypeMismatchInCondition, 1},
		{"unknown operator", "#if N =< 3\n#endif", ShaderDefs{"N": Uint(1)}, Options{}, diag.KindUnknownOperator, 1},
		{"stray endif", "a\n#endif", nil, Options{}, diag.KindUnbalancedDirective, 2},
		{"stray else", "#else", nil, Options{}, diag.KindUnbalancedDirective, 1},
		{"unterminated", "x\n#ifdef A\ny", nil, Options{}, diag.KindUnbalancedDirective, 2},
		{"second else", "#ifdef A\na\n#else\nb\n#else\nc\n#endif", nil, Options{}, diag.KindUnbalancedDirective, 5},
		{"else ifdef after else", "#ifdef A\na\n#else\nb\n#else ifdef B\nc\n#endif", nil, Options{}, diag.KindUnbalancedDirective, 5},
		{"second else in dead block", "#ifdef A\n#ifdef B\n#else\n#else\n#endif\n#endif", nil, Options{}, diag.KindUnbalancedDirective, 4},
		{"unknown directive", "#frobnicate now", nil, Options{}, diag.KindUnknownDirective, 1},
		{"undefined substitution", "\nlet x = #NOPE;", nil, Options{}, diag.KindUndefinedShaderDef, 2},
		{"define in module", "#define X 1", nil, Options{}, diag.KindDefineNotAllowed, 1},
		{"bad version", "#version 330", nil, Options{}, diag.KindInvalidVersion, 1},
		{"bad import", "#import 3d", nil, Options{}, diag.KindImportParse, 1},
		{"bad from", "#from a::b using c", nil, Options{}, diag.KindImportParse, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts).Preprocess(tt.source, tt.defs)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !diag.Is(err, tt.kind) {
				t.Fatalf("Expected %s, got %v", tt.kind, err)
			}
			var derr *diag.Error
			if e, ok := err.(*diag.Error); ok {
				derr = e
			}
			if derr == nil || derr.Span.Start.Line != tt.line {
				t.Errorf("Expected error on line %d, got %v", tt.line, err)
			}
		})
	}
}

func TestUndefinedSubstitutionSuggests(t *testing.T) {
	_, err := New(Options{}).Preprocess("x = #LEVLE;", ShaderDefs{"LEVEL": Uint(1)})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	e := err.(*diag.Error)
	if e.Suggestion != "LEVEL" {
		t.Errorf("Suggestion = %q, want LEVEL", e.Suggestion)
	}
}

func TestDefinesInShader(t *testing.T) {
	source := lines(
		"#define NOW_DEFINED",
		"#define DEFUINT 1",
		"#define DEFINT -1",
		"#define DEFBOOL false",
		"#ifdef NOW_DEFINED",
		"defined",
		"#endif",
	)
	p := New(Options{AllowDefines: true})
	meta, err := p.Metadata(source)
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}
	want := ShaderDefs{
		"NOW_DEFINED": Bool(true),
		"DEFUINT":     Uint(1),
		"DEFINT":      Int(-1),
		"DEFBOOL":     Bool(false),
	}
	if !want.Equal(meta.Defines) {
		t.Errorf("Defines = %s, want %s", meta.Defines.Key(), want.Key())
	}

	out, err := p.Preprocess(source, meta.Defines)
	if err != nil {
		t.Fatalf("Preprocess failed: %v", err)
	}
	if !strings.Contains(out.Source, "defined") || strings.Contains(out.Source, "#define") {
		t.Errorf("unexpected output %q", out.Source)
	}
}

func TestMetadata(t *testing.T) {
	source := lines(
		"#define_import_path a::b",
		"#ifdef X",
		"#import one",
		"#else",
		"#import two as t",
		"#endif",
		"#if LEVEL > 2",
		"#endif",
		"let v = #{SCALE} + #X;",
		"// #IN_COMMENT",
	)
	meta, err := New(Options{}).Metadata(source)
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}
	if meta.Name != "a::b" {
		t.Errorf("Name = %q, want a::b", meta.Name)
	}
	var paths []string
	for _, d := range meta.Imports {
		paths = append(paths, d.Name())
	}
	if diff := cmp.Diff([]string{"one", "t"}, paths); diff != "" {
		t.Errorf("imports mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"LEVEL", "SCALE", "X"}, meta.UsedDefs); diff != "" {
		t.Errorf("used defs mismatch (-want +got):\n%s", diff)
	}
}

func TestParseShaderDefValue(t *testing.T) {
	tests := []struct {
		in   string
		want ShaderDefValue
	}{
		{"", Bool(true)},
		{"7", Uint(7)},
		{"-7", Int(-7)},
		{"false", Bool(false)},
		{"4294967295", Uint(4294967295)},
	}
	for _, tt := range tests {
		got, err := ParseShaderDefValue(tt.in)
		if err != nil {
			t.Errorf("ParseShaderDefValue(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseShaderDefValue(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseShaderDefValue("maybe"); err == nil {
		t.Error("Expected error for non-literal value")
	}
	if v, err := ParseTypedValue("3i"); err != nil || v != Int(3) {
		t.Errorf("ParseTypedValue(3i) = %#v, %v", v, err)
	}
}

func TestShaderDefsMerge(t *testing.T) {
	base := ShaderDefs{"A": Uint(1), "B": Bool(true)}
	merged, conflict := base.Merge(ShaderDefs{"B": Bool(true), "C": Int(2)})
	if conflict != "" {
		t.Errorf("unexpected conflict %q", conflict)
	}
	if len(merged) != 3 || len(base) != 2 {
		t.Errorf("Merge mutated or lost entries: merged=%s base=%s", merged.Key(), base.Key())
	}
	if _, conflict := base.Merge(ShaderDefs{"A": Int(1)}); conflict != "A" {
		t.Errorf("conflict = %q, want A", conflict)
	}
	if got, want := base.Key(), "A=Uint(1);B=Bool(true)"; got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
}
