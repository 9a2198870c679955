// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package prune

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/oil/ir"
)

func item(name string, kind ir.ItemKind, refs ...string) *ir.Item {
	it := &ir.Item{Kind: kind, Name: ir.Name{Module: "m", Item: name}, Symbol: name}
	for _, r := range refs {
		it.Refs = append(it.Refs, ir.Reference{Path: []string{r}, Target: ir.Name{Module: "m", Item: r}})
	}
	return it
}

func names(m *ir.Module) []string {
	var out []string
	for _, it := range m.Items {
		out = append(out, it.Name.Item)
	}
	return out
}

func TestModule(t *testing.T) {
	main := item("main", ir.ItemFunction, "helper")
	main.Stage = ir.StageFragment
	builtin := item("helper", ir.ItemFunction, "Light")
	builtin.Refs = append(builtin.Refs, ir.Reference{Path: []string{"sin"}, Builtin: true})

	m := &ir.Module{Name: "m", Items: []*ir.Item{
		item("Light", ir.ItemStruct),
		item("unused", ir.ItemFunction, "Light"),
		item("const_assert#0", ir.ItemAssert, "LIMIT"),
		item("LIMIT", ir.ItemConstant),
		item("const_assert#1", ir.ItemAssert, "Light"),
		builtin,
		main,
	}}

	got := names(Module(m))
	want := []string{"Light", "const_assert#1", "helper", "main"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("kept items mismatch (-want +got):\n%s", diff)
	}
	if len(m.Items) != 7 {
		t.Errorf("input module was modified: %d items", len(m.Items))
	}
}

func TestModuleWithoutEntryPoints(t *testing.T) {
	m := &ir.Module{Items: []*ir.Item{item("a", ir.ItemFunction), item("b", ir.ItemConstant)}}
	if got := Module(m); got != m {
		t.Error("module without entry points was rebuilt")
	}
}

func TestModuleDemotedEntryIsNotRoot(t *testing.T) {
	demoted := item("vs", ir.ItemFunction, "a")
	demoted.Stage = ir.StageVertex
	demoted.Demoted = true
	main := item("main", ir.ItemFunction)
	main.Stage = ir.StageCompute

	got := names(Module(&ir.Module{Items: []*ir.Item{item("a", ir.ItemConstant), demoted, main}}))
	if diff := cmp.Diff([]string{"main"}, got); diff != "" {
		t.Errorf("kept items mismatch (-want +got):\n%s", diff)
	}
}
