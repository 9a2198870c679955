// Package wgsl reads and writes the item structure of WGSL modules.
//
// The parser does not build a syntax tree. It splits a preprocessed module
// into top-level items (functions, structs, global variables, constants,
// pipeline overrides, aliases and const_asserts) and records, for each item,
// the byte ranges composition needs to rewrite: the declared name, every
// reference to a module-scope name, resource bindings and entry point
// attributes. Names declared inside function bodies are tracked by scope so
// that locals and parameters are never mistaken for references.
//
// Two extensions to WGSL are accepted:
//
//	virtual fn shade(c: vec4f) -> vec4f { ... }
//	override fn lighting::shade(c: vec4f) -> vec4f { ... }
//
// and @binding(auto), which the composer replaces with the next free binding
// in the variable's group.
//
// # Usage
//
//	file, err := wgsl.Parse(source, "shaders/lighting.wgsl")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, it := range file.Items {
//	    fmt.Println(it.Kind, it.Name.Item)
//	}
//
// Write renders a composed ir.Module back to WGSL text.
package wgsl
