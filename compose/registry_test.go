// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package compose

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/oil/diag"
	"github.com/gogpu/oil/ir"
	"github.com/gogpu/oil/preprocess"
)

const twiceModule = `#define_import_path x
#import numbers
fn twice() -> f32 { return numbers::big() * 2.0; }
`

func TestAddImportNotFoundLeavesRegistryUnchanged(t *testing.T) {
	r := NewRegistry(Options{})
	if _, err := r.Add(ModuleDescriptor{Source: "#define_import_path lighting\nfn l() -> f32 { return 1.0; }"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	_, err := r.Add(ModuleDescriptor{Source: "#define_import_path scene\n#import lightin\nfn s() {}"})
	if !diag.Is(err, diag.KindImportNotFound) {
		t.Fatalf("got %v, want kind ImportNotFound", err)
	}
	var e *diag.Error
	if errors.As(err, &e) && e.Suggestion != "lighting" {
		t.Errorf("Suggestion = %q, want %q", e.Suggestion, "lighting")
	}
	if r.Contains("scene") {
		t.Error("failed module was registered")
	}
	if diff := cmp.Diff([]string{"lighting"}, r.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestAddChecksImportsInEveryBranch(t *testing.T) {
	r := NewRegistry(Options{})
	_, err := r.Add(ModuleDescriptor{Source: `#define_import_path scene
#ifdef SHADOWS
#import shadows
#endif
fn s() {}
`})
	if !diag.Is(err, diag.KindImportNotFound) {
		t.Errorf("got %v, want kind ImportNotFound", err)
	}
}

func TestAddOverrideSignatureMismatch(t *testing.T) {
	r := NewRegistry(Options{})
	if _, err := r.Add(ModuleDescriptor{Source: "#define_import_path a\nvirtual fn f(x: f32) -> f32 { return x; }"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	tests := []struct {
		name   string
		source string
		kind   diag.Kind
	}{
		{"extra parameter", "override fn a::f(x: f32, y: f32) -> f32 { return x + y; }", diag.KindOverrideSignatureMismatch},
		{"parameter type", "override fn a::f(x: i32) -> f32 { return f32(x); }", diag.KindOverrideSignatureMismatch},
		{"result type", "override fn a::f(x: f32) -> u32 { return 0u; }", diag.KindOverrideSignatureMismatch},
		{"missing base", "override fn a::g(x: f32) -> f32 { return x; }", diag.KindUnresolvedReference},
		{"module not imported", "override fn other::f(x: f32) -> f32 { return x; }", diag.KindUnresolvedModule},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Add(ModuleDescriptor{Source: "#define_import_path b\n#import a\n" + tt.source})
			if !diag.Is(err, tt.kind) {
				t.Fatalf("got %v, want kind %v", err, tt.kind)
			}
			if r.Contains("b") {
				t.Error("failed module was registered")
			}
		})
	}
}

func TestAddOverrideShorthandTypesMatch(t *testing.T) {
	r := NewRegistry(Options{})
	if _, err := r.Add(ModuleDescriptor{Source: "#define_import_path a\nvirtual fn f(c: vec3<f32>) -> vec4<f32> { return vec4<f32>(c, 1.0); }"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := r.Add(ModuleDescriptor{Source: "#define_import_path b\n#import a\noverride fn a::f(color: vec3f) -> vec4f { return vec4f(color, 0.5); }"}); err != nil {
		t.Errorf("override with shorthand types rejected: %v", err)
	}
}

func TestAddOverrideAliasTypesMatch(t *testing.T) {
	r := NewRegistry(Options{})
	if _, err := r.Add(ModuleDescriptor{Source: `#define_import_path a
alias F = f32;
alias V = vec3<F>;
virtual fn f(x: F, c: V) -> F { return x * c.x; }
`}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	tests := []struct {
		name    string
		source  string
		wantErr bool
	}{
		{"underlying types", "override fn a::f(x: f32, c: vec3f) -> f32 { return x; }", false},
		{"imported aliases", "override fn a::f(x: a::F, c: a::V) -> a::F { return x; }", false},
		{"own alias", "alias G = f32;\noverride fn a::f(x: G, c: vec3<G>) -> G { return x; }", false},
		{"alias of another type", "alias G = i32;\noverride fn a::f(x: G, c: a::V) -> f32 { return 1.0; }", true},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := fmt.Sprintf("#define_import_path b%d\n#import a\n%s", i, tt.source)
			_, err := r.Add(ModuleDescriptor{Source: source})
			if tt.wantErr {
				if !diag.Is(err, diag.KindOverrideSignatureMismatch) {
					t.Errorf("got %v, want kind OverrideSignatureMismatch", err)
				}
				return
			}
			if err != nil {
				t.Errorf("override rejected: %v", err)
			}
		})
	}
}

func TestAddRequireVirtual(t *testing.T) {
	base := "#define_import_path a\nfn f() -> f32 { return 1.0; }"
	override := "#define_import_path b\n#import a\noverride fn a::f() -> f32 { return 2.0; }"

	lenient := NewRegistry(Options{})
	if _, err := lenient.Add(ModuleDescriptor{Source: base}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := lenient.Add(ModuleDescriptor{Source: override}); err != nil {
		t.Errorf("override of plain function rejected: %v", err)
	}

	strict := NewRegistry(Options{RequireVirtual: true})
	if _, err := strict.Add(ModuleDescriptor{Source: base}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := strict.Add(ModuleDescriptor{Source: override}); !diag.Is(err, diag.KindOverrideNotVirtual) {
		t.Errorf("got %v, want kind OverrideNotVirtual", err)
	}
}

func TestAddErrors(t *testing.T) {
	tests := []struct {
		name string
		desc ModuleDescriptor
		kind diag.Kind
	}{
		{"no name", ModuleDescriptor{Source: "fn f() {}", FilePath: "f.wgsl"}, diag.KindNoModuleName},
		{"self import", ModuleDescriptor{Source: "#define_import_path a\n#import a\nfn f() {}"}, diag.KindImportCycle},
		{"define", ModuleDescriptor{Source: "#define_import_path a\n#define X 1\nfn f() {}"}, diag.KindDefineNotAllowed},
		{"decoration", ModuleDescriptor{Source: "#define_import_path a\nfn _oil_vrt_x() {}"}, diag.KindDecorationInSource},
		{"parse", ModuleDescriptor{Source: "#define_import_path a\nfn f( {}"}, diag.KindParse},
		{"unresolved", ModuleDescriptor{Source: "#define_import_path a\nfn f() -> f32 { return g(); }"}, diag.KindUnresolvedReference},
		{"glsl override", ModuleDescriptor{Source: "#define_import_path a\noverride float f() { return 1.0; }", Language: ir.LanguageGLSL}, diag.KindLanguageUnsupported},
		{"bad version", ModuleDescriptor{Source: "#define_import_path a\n#version 300\nvoid f() {}", Language: ir.LanguageGLSL}, diag.KindInvalidVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(Options{})
			if _, err := r.Add(tt.desc); !diag.Is(err, tt.kind) {
				t.Errorf("got %v, want kind %v", err, tt.kind)
			}
			if len(r.Names()) != 0 {
				t.Errorf("registry holds %v after a failed Add", r.Names())
			}
		})
	}
}

func TestAddDeferredBuild(t *testing.T) {
	r := NewRegistry(Options{})
	m, err := r.Add(ModuleDescriptor{Source: "#define_import_path q\nfn quality() -> u32 { return #QUALITY; }"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if m.Compiled != nil {
		t.Error("module needing QUALITY was built without it")
	}
	if diff := cmp.Diff([]string{"QUALITY"}, m.EffectiveDefs); diff != "" {
		t.Errorf("effective defs mismatch (-want +got):\n%s", diff)
	}

	m, err = r.Add(ModuleDescriptor{
		Name:   "q2",
		Source: "fn quality() -> u32 { return #QUALITY; }",
		Defs:   preprocess.ShaderDefs{"QUALITY": preprocess.Uint(2)},
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if m.Compiled == nil || !strings.Contains(m.Compiled.Items[0].Text, "return 2;") {
		t.Errorf("bound def was not substituted: %+v", m.Compiled)
	}
}

func TestReAdd(t *testing.T) {
	r := NewRegistry(Options{})
	first, err := r.Add(ModuleDescriptor{Source: numbersModule})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	x, err := r.Add(ModuleDescriptor{Source: twiceModule})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	other, err := r.Add(ModuleDescriptor{Source: "#define_import_path other\nfn o() -> f32 { return 0.0; }"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	same, err := r.Add(ModuleDescriptor{Source: numbersModule})
	if err != nil || same != first {
		t.Fatalf("identical re-add: got %p, %v; want the registered module", same, err)
	}

	second, err := r.Add(ModuleDescriptor{Source: numbersModule, Defs: preprocess.ShaderDefs{"BIG_NUMBER": preprocess.Bool(true)}})
	if err != nil {
		t.Fatalf("re-add failed: %v", err)
	}
	if second.Generation != 2 {
		t.Errorf("Generation = %d, want 2", second.Generation)
	}
	if !strings.Contains(second.Compiled.Items[0].Text, "999.0") {
		t.Errorf("rebuilt module:\n%s", second.Compiled.Items[0].Text)
	}

	x2, _ := r.Get("x")
	if x2 == x || x2.Generation != 2 {
		t.Errorf("dependent was not rebuilt: generation %d", x2.Generation)
	}
	if got := x2.BoundDefs["BIG_NUMBER"]; got != preprocess.Bool(true) {
		t.Errorf("dependent bound BIG_NUMBER = %v", got)
	}
	other2, _ := r.Get("other")
	if other2 != other || other2.Generation != 1 {
		t.Error("unrelated module was rebuilt")
	}
}

func TestReAddFailureLeavesRegistryUnchanged(t *testing.T) {
	r := NewRegistry(Options{})
	numbers, _ := r.Add(ModuleDescriptor{Source: numbersModule})
	x, err := r.Add(ModuleDescriptor{Source: twiceModule})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	_, err = r.Add(ModuleDescriptor{Source: "#define_import_path numbers\nfn small() -> f32 { return 0.5; }"})
	if !diag.Is(err, diag.KindUnresolvedReference) {
		t.Fatalf("got %v, want UnresolvedReference from the dependent", err)
	}
	if got, _ := r.Get("numbers"); got != numbers {
		t.Error("failed re-add replaced the module")
	}
	if got, _ := r.Get("x"); got != x {
		t.Error("failed re-add replaced a dependent")
	}
}

func TestReAddCycle(t *testing.T) {
	r := NewRegistry(Options{})
	if _, err := r.Add(ModuleDescriptor{Source: numbersModule}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := r.Add(ModuleDescriptor{Source: twiceModule}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	_, err := r.Add(ModuleDescriptor{Source: "#define_import_path numbers\n#import x\nfn big() -> f32 { return 1.0; }"})
	if !diag.Is(err, diag.KindImportCycle) {
		t.Errorf("got %v, want kind ImportCycle", err)
	}
}

func TestDuplicateReject(t *testing.T) {
	r := NewRegistry(Options{DuplicatePolicy: DuplicateReject})
	if _, err := r.Add(ModuleDescriptor{Source: numbersModule}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := r.Add(ModuleDescriptor{Source: numbersModule}); !diag.Is(err, diag.KindDuplicateModule) {
		t.Errorf("got %v, want kind DuplicateModule", err)
	}
}

func TestInconsistentBoundDefs(t *testing.T) {
	r := NewRegistry(Options{})
	if _, err := r.Add(ModuleDescriptor{Source: numbersModule, Defs: preprocess.ShaderDefs{"BIG_NUMBER": preprocess.Bool(true)}}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	_, err := r.Add(ModuleDescriptor{Source: twiceModule, Defs: preprocess.ShaderDefs{"BIG_NUMBER": preprocess.Bool(false)}})
	if !diag.Is(err, diag.KindInconsistentShaderDef) {
		t.Errorf("got %v, want kind InconsistentShaderDef", err)
	}
}

func TestRemove(t *testing.T) {
	r := NewRegistry(Options{})
	for _, src := range []string{numbersModule, twiceModule, "#define_import_path y\n#import x\nfn y() {}"} {
		if _, err := r.Add(ModuleDescriptor{Source: src}); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	err := r.Remove("numbers")
	if !diag.Is(err, diag.KindInUse) || !strings.Contains(err.Error(), "x") {
		t.Errorf("got %v, want InUse naming x", err)
	}
	if err := r.Remove("nope"); !diag.Is(err, diag.KindNotFound) {
		t.Errorf("got %v, want kind NotFound", err)
	}
	if err := r.Remove("y"); err != nil {
		t.Errorf("Remove(y) failed: %v", err)
	}

	removed, err := r.RemoveTree("numbers")
	if err != nil {
		t.Fatalf("RemoveTree failed: %v", err)
	}
	if diff := cmp.Diff([]string{"numbers", "x"}, removed); diff != "" {
		t.Errorf("removed mismatch (-want +got):\n%s", diff)
	}
	if len(r.Names()) != 0 {
		t.Errorf("registry still holds %v", r.Names())
	}
}

func TestGetNotFound(t *testing.T) {
	r := NewRegistry(Options{})
	if _, err := r.Add(ModuleDescriptor{Source: numbersModule}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	_, err := r.Get("number")
	var e *diag.Error
	if !errors.As(err, &e) || e.Kind != diag.KindNotFound || e.Suggestion != "numbers" {
		t.Errorf("got %v, want NotFound suggesting numbers", err)
	}
}

func TestImportTree(t *testing.T) {
	r := NewRegistry(Options{})
	for _, src := range []string{
		numbersModule,
		twiceModule,
		"#define_import_path scene\n#import x\n#import numbers as n\n#from x import twice\nfn s() {}",
	} {
		if _, err := r.Add(ModuleDescriptor{Source: src}); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	tree, err := r.ImportTree("scene")
	if err != nil {
		t.Fatalf("ImportTree failed: %v", err)
	}
	numbers := &ImportNode{Name: "numbers"}
	want := &ImportNode{Name: "scene", Children: []*ImportNode{
		{Name: "x", Children: []*ImportNode{numbers}},
		{Name: "numbers", Alias: "n"},
		{Name: "x", Partial: true, Children: []*ImportNode{numbers}},
	}}
	if diff := cmp.Diff(want, tree); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestAdditionalImports(t *testing.T) {
	r := NewRegistry(Options{})
	if _, err := r.Add(ModuleDescriptor{Source: numbersModule}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	m, err := r.Add(ModuleDescriptor{
		Name:              "implicit",
		Source:            "fn g() -> f32 { return numbers::big(); }",
		AdditionalImports: []preprocess.ImportDecl{{Path: "numbers"}},
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	var got ir.Name
	for _, ref := range m.Compiled.Items[0].Refs {
		if ref.Written() == "numbers::big" {
			got = ref.Target
		}
	}
	if got != (ir.Name{Module: "numbers", Item: "big"}) {
		t.Errorf("numbers::big resolves to %s", got)
	}
	if _, err := r.Add(ModuleDescriptor{
		Name:              "broken",
		Source:            "fn g() {}",
		AdditionalImports: []preprocess.ImportDecl{{Path: "missing"}},
	}); !diag.Is(err, diag.KindImportNotFound) {
		t.Errorf("got %v, want kind ImportNotFound", err)
	}
}
