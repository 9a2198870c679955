// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package compose links shader modules into complete shaders.
//
// A Registry holds importable modules. Each module is added once with the
// shader defs bound to it; Add checks that every import exists, rejects
// cycles and builds the module eagerly so that resolution and override
// errors surface before any shader uses it:
//
//	c := compose.NewComposer(compose.Options{Logger: logger})
//	_, err := c.Add(compose.ModuleDescriptor{
//	    Source:   lightingSource, // #define_import_path lighting
//	    FilePath: "shaders/lighting.wgsl",
//	})
//
// Compose then merges an entry shader with everything it imports:
//
//	res, err := c.Compose(compose.ComposeDescriptor{
//	    Source:   mainSource,
//	    FilePath: "shaders/main.wgsl",
//	    Defs:     preprocess.ShaderDefs{"SHADOWS": preprocess.Bool(true)},
//	    Validate: compose.ValidateCollect,
//	})
//	text, err := res.Text()
//
// # Names
//
// Items of imported modules are emitted under decorated symbols so that
// modules cannot collide. Decorate and DecorateOverride build them;
// Undecorate turns them back into module::item form for messages from
// downstream compilers.
//
// # Overrides
//
// A WGSL module may replace a function of a module it imports with
// "override fn module::f". Overrides of one base form a chain ordered by
// a post-order walk of the entry's imports. Outside the chain every call
// to the base reaches the last link; inside link k it reaches link k-1,
// and link 0 calls the original function.
//
// # Variants
//
// Modules are rebuilt for each distinct set of defs that can affect them.
// Built variants are kept in an LRU cache keyed by the module, its build
// generation and those defs.
package compose
