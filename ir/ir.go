// Package ir defines the composition IR shared by the front ends,
// the composer and the writers.
package ir

import (
	"strings"

	"github.com/gogpu/oil/diag"
)

// Language tags the source language of a module.
type Language uint8

const (
	LanguageWGSL Language = iota
	LanguageGLSL
)

// String returns the language name.
func (l Language) String() string {
	if l == LanguageGLSL {
		return "glsl"
	}
	return "wgsl"
}

// ShaderStage represents a shader stage.
type ShaderStage uint8

const (
	StageNone ShaderStage = iota
	StageVertex
	StageFragment
	StageCompute
)

// String returns the WGSL attribute name of the stage.
func (s ShaderStage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	default:
		return "none"
	}
}

// ItemKind is the kind of a top-level item.
type ItemKind uint8

const (
	ItemFunction ItemKind = iota
	ItemStruct
	ItemConstant
	// ItemOverrideConstant is a pipeline-overridable constant (WGSL "override x: f32").
	ItemOverrideConstant
	ItemGlobal
	ItemAlias
	// ItemAssert is an unnamed const_assert.
	ItemAssert
)

// String returns the item kind name.
func (k ItemKind) String() string {
	switch k {
	case ItemFunction:
		return "function"
	case ItemStruct:
		return "struct"
	case ItemConstant:
		return "constant"
	case ItemOverrideConstant:
		return "override constant"
	case ItemGlobal:
		return "global variable"
	case ItemAlias:
		return "alias"
	case ItemAssert:
		return "assertion"
	default:
		return "unknown"
	}
}

// Name is the qualified identity of an item: the module it is defined in
// and its name there.
type Name struct {
	Module string
	Item   string
}

// String formats the name as module::item.
func (n Name) String() string {
	if n.Module == "" {
		return n.Item
	}
	return n.Module + "::" + n.Item
}

// IsZero reports whether n is the zero name.
func (n Name) IsZero() bool {
	return n.Module == "" && n.Item == ""
}

// SplitPath splits "a::b::c" into its segments.
func SplitPath(path string) []string {
	return strings.Split(path, "::")
}

// Range is a half-open byte range into an item's Text.
type Range struct {
	Start int
	End   int
}

// Empty reports whether the range covers nothing.
func (r Range) Empty() bool {
	return r.End <= r.Start
}

// Reference is one use of a non-local name inside an item.
type Reference struct {
	// Path is the name as written, split on "::".
	Path []string

	// Range locates the whole path in the item text.
	Range Range

	// Call is set when the reference is immediately called.
	Call bool

	// Args is the argument count of a call.
	Args int

	// Target is the resolved item; zero for builtins.
	Target Name

	// Builtin is set when the name resolved to a language builtin.
	Builtin bool

	Span diag.Span
}

// Written returns the reference as it appears in source.
func (r Reference) Written() string {
	return strings.Join(r.Path, "::")
}

// Param is one function parameter. Type is the canonical type text,
// filled in once references are resolved.
type Param struct {
	Name      string
	TypeRange Range
	Type      string
}

// Signature is the callable shape of a function. An alias keeps the type
// it names as Result.
type Signature struct {
	Params      []Param
	ResultRange Range
	Result      string
}

// Equal compares parameter types and result; parameter names are ignored.
func (s Signature) Equal(other Signature) bool {
	if len(s.Params) != len(other.Params) || s.Result != other.Result {
		return false
	}
	for i := range s.Params {
		if s.Params[i].Type != other.Params[i].Type {
			return false
		}
	}
	return true
}

// String renders the signature as (T1, T2) -> R.
func (s Signature) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, p := range s.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Type)
	}
	sb.WriteByte(')')
	if s.Result != "" {
		sb.WriteString(" -> ")
		sb.WriteString(s.Result)
	}
	return sb.String()
}

// Binding is a resource binding of a global variable.
type Binding struct {
	// Group is -1 when the group is not a literal.
	Group int
	// Binding is -1 when unknown; assigned at merge time for auto bindings.
	Binding int
	// Auto marks @binding(auto).
	Auto bool
	// ValueRange locates the binding argument in the item text.
	ValueRange Range
}

// Item is one top-level declaration.
type Item struct {
	Kind ItemKind
	Name Name

	// Symbol is the identifier emitted for the item.
	Symbol string

	// Text is the declaration as written, attributes included.
	Text string

	// NameRange locates the declared name in Text. For overrides it covers
	// the whole target path.
	NameRange Range

	Refs      []Reference
	Signature Signature

	Stage ShaderStage
	// EntryRanges covers the attributes that only entry points may carry.
	EntryRanges []Range
	// Demoted marks an entry point turned into a plain function.
	Demoted bool
	// StripRanges covers source-only keywords such as "virtual".
	StripRanges []Range

	// Virtual marks a function that may be overridden.
	Virtual bool
	// Override is the base function replaced by this item.
	Override *Name

	Binding *Binding

	// Members lists the names an anonymous GLSL interface block puts in
	// module scope.
	Members []string

	Span diag.Span
}

// IsEntryPoint reports whether the item is a live entry point.
func (it *Item) IsEntryPoint() bool {
	return it.Stage != StageNone && !it.Demoted
}

// Clone returns a copy whose slices can be modified independently.
func (it *Item) Clone() *Item {
	c := *it
	c.Refs = append([]Reference(nil), it.Refs...)
	c.Signature.Params = append([]Param(nil), it.Signature.Params...)
	c.EntryRanges = append([]Range(nil), it.EntryRanges...)
	c.StripRanges = append([]Range(nil), it.StripRanges...)
	c.Members = append([]string(nil), it.Members...)
	if it.Override != nil {
		o := *it.Override
		c.Override = &o
	}
	if it.Binding != nil {
		b := *it.Binding
		c.Binding = &b
	}
	return &c
}

// Module is a set of items, either one compiled module or a composed shader.
type Module struct {
	Name     string
	Language Language

	// Directives are module-level lines emitted before any item, such as
	// WGSL "enable f16;" or GLSL "precision highp float;".
	Directives []string

	// Version is the GLSL version, or 0.
	Version int

	Items []*Item
}

// Lookup finds an item by qualified name.
func (m *Module) Lookup(name Name) (*Item, bool) {
	for _, it := range m.Items {
		if it.Name == name {
			return it, true
		}
	}
	return nil, false
}

// EntryPoints returns the live entry points in order.
func (m *Module) EntryPoints() []*Item {
	var out []*Item
	for _, it := range m.Items {
		if it.IsEntryPoint() {
			out = append(out, it)
		}
	}
	return out
}

// Symbols maps each item name to its emitted symbol.
func (m *Module) Symbols() map[Name]string {
	out := make(map[Name]string, len(m.Items))
	for _, it := range m.Items {
		out[it.Name] = it.Symbol
	}
	return out
}

// HeaderItem is the public surface of one item.
type HeaderItem struct {
	Kind      ItemKind
	Name      string
	Signature Signature
	Virtual   bool
}

// Header is the signature-only view of a module used to compile dependents.
type Header struct {
	Module   string
	Language Language
	Items    []HeaderItem
	index    map[string]int
}

// NewHeader builds a header from a module's items. Override bodies are
// not part of the public surface.
func NewHeader(module string, lang Language, items []*Item) *Header {
	h := &Header{Module: module, Language: lang, index: make(map[string]int)}
	for _, it := range items {
		if it.Override != nil || it.Kind == ItemAssert {
			continue
		}
		h.index[it.Name.Item] = len(h.Items)
		h.Items = append(h.Items, HeaderItem{
			Kind:      it.Kind,
			Name:      it.Name.Item,
			Signature: it.Signature,
			Virtual:   it.Virtual,
		})
	}
	return h
}

// Lookup finds an item by its unqualified name.
func (h *Header) Lookup(name string) (HeaderItem, bool) {
	i, ok := h.index[name]
	if !ok {
		return HeaderItem{}, false
	}
	return h.Items[i], true
}

// Names lists the item names in declaration order.
func (h *Header) Names() []string {
	names := make([]string, len(h.Items))
	for i, it := range h.Items {
		names[i] = it.Name
	}
	return names
}
