// Package ir defines the composition IR.
//
// A composed shader is a flat list of top-level items (functions, structs,
// constants, global variables, aliases) taken from many modules. Each Item
// keeps its declaration text together with an overlay of byte ranges: the
// declared name, every reference to another item, the resource binding and
// the attributes that only entry points may carry. Composition never edits
// the text; it resolves references to qualified Names and assigns emitted
// symbols, and Render splices the overlay into final source.
//
// # Structure
//
//   - Module: the items of one compiled module or of a composed shader
//   - Item: one declaration with its Refs, Signature and Binding
//   - Header: the signature-only surface used to compile dependents
//   - ItemRegistry: deduplicating item collection used while merging
//   - Validate: structural checks over a composed Module
package ir
