// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package glsl reads and writes the item structure of GLSL modules.
//
// Parse splits preprocessed GLSL 440/450 source into top-level items:
// functions (prototypes are skipped), structs, constants, global
// variables with their layout bindings, and interface blocks. References
// to module-scope names, including qualified module::item paths, are
// recorded by byte range so the composer can rename them. Identifiers
// that resolve to nothing known are treated as GLSL builtins.
//
// Function overrides are a WGSL-only feature; "virtual" and "override"
// declarations fail with diag.KindLanguageUnsupported.
//
// # Usage
//
//	file, err := glsl.Parse(source, "lib/noise.glsl", ir.StageFragment)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Write renders a composed ir.Module back to GLSL text, restoring the
// #version line the preprocessor stripped.
package glsl
