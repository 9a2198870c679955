// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"testing"

	"github.com/gogpu/oil/ir"
)

func TestWrite(t *testing.T) {
	file := mustParse(t, "float helper() { return 1.0; }\nvoid main() { gl_FragDepth = helper(); }")
	helper, main := file.Items[0], file.Items[1]
	helper.Name = ir.Name{Module: "util", Item: "helper"}
	helper.Symbol = "X_helper"
	main.Symbol = "main"
	main.Refs[0].Target = helper.Name

	got, err := Write(&ir.Module{
		Name:       "main",
		Language:   ir.LanguageGLSL,
		Version:    450,
		Directives: []string{"precision highp float;", "precision highp float;"},
		Items:      file.Items,
	})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	want := `#version 450
precision highp float;

float X_helper() { return 1.0; }

void main() { gl_FragDepth = X_helper(); }
`
	if got != want {
		t.Errorf("Write output:\n%s\nwant:\n%s", got, want)
	}
}

func TestWriteRejectsWGSL(t *testing.T) {
	if _, err := Write(&ir.Module{Name: "m", Language: ir.LanguageWGSL}); err == nil {
		t.Error("expected error for WGSL module")
	}
}
