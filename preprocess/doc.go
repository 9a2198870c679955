// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package preprocess evaluates the directive layer of composable shaders.
//
// Supported directives:
//
//	#define_import_path some::module
//	#import some::module [as alias]
//	#from some::module import a, b
//	#ifdef DEF / #ifndef DEF / #if DEF op VALUE
//	#else [ifdef DEF | ifndef DEF | if DEF op VALUE]
//	#endif
//	#define DEF [VALUE]       (top-level shaders only)
//	#version 450             (GLSL only)
//
// Outside directives, #DEF and #{DEF} are replaced by the def's value.
// Text inside comments is never treated as a directive or a token.
package preprocess
