// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package compose

import (
	"strings"
	"testing"

	"github.com/gogpu/oil/ir"
)

func TestDecorate(t *testing.T) {
	tests := []struct {
		module, item string
	}{
		{"a", "f"},
		{"bevy_pbr::mesh_functions", "get_model_matrix"},
		{"lib", "with_m_inside"},
	}
	for _, tt := range tests {
		sym := Decorate(tt.module, tt.item)
		if !strings.HasPrefix(sym, modulePrefix) || !strings.HasSuffix(sym, itemSeparator+tt.item) {
			t.Errorf("Decorate(%q, %q) = %q", tt.module, tt.item, sym)
		}
		if strings.Contains(sym, ":") {
			t.Errorf("Decorate(%q, %q) = %q is not an identifier", tt.module, tt.item, sym)
		}
		if got, want := Undecorate(sym), tt.module+"::"+tt.item; got != want {
			t.Errorf("Undecorate(%q) = %q, want %q", sym, got, want)
		}
	}
}

func TestDecorateOverride(t *testing.T) {
	sym := DecorateOverride("pbr::custom", ir.Name{Module: "pbr::lighting", Item: "shade"})
	if !strings.HasPrefix(sym, overridePrefix) {
		t.Errorf("DecorateOverride = %q", sym)
	}
	if got, want := Undecorate(sym), "pbr::lighting::shade@pbr::custom"; got != want {
		t.Errorf("Undecorate(%q) = %q, want %q", sym, got, want)
	}
}

func TestUndecorateText(t *testing.T) {
	msg := "error: call to " + Decorate("util", "double") + " in " + DecorateOverride("b", ir.Name{Module: "a", Item: "f"}) + " has 2 arguments"
	want := "error: call to util::double in a::f@b has 2 arguments"
	if got := Undecorate(msg); got != want {
		t.Errorf("Undecorate = %q, want %q", got, want)
	}
	if got := Undecorate("plain text"); got != "plain text" {
		t.Errorf("Undecorate changed plain text: %q", got)
	}
}
