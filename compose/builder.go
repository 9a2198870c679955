// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package compose

import (
	"sort"
	"strings"
	"unicode"

	"github.com/hashicorp/go-hclog"

	"github.com/gogpu/oil/diag"
	"github.com/gogpu/oil/glsl"
	"github.com/gogpu/oil/ir"
	"github.com/gogpu/oil/preprocess"
	"github.com/gogpu/oil/wgsl"
)

// Compiled is one variant of a module: its items built for a specific
// def set, namespaced and resolved against the headers of its imports.
type Compiled struct {
	Module   string
	Language ir.Language

	// Defs is the def set the variant was built with.
	Defs preprocess.ShaderDefs

	// Imports lists the imports live under Defs, in directive order.
	Imports []preprocess.ImportDecl

	Items      []*ir.Item
	Header     *ir.Header
	Overrides  []OverrideDecl
	Directives []string
	Version    int
}

// OverrideDecl records that Function, declared in Module, replaces Base.
type OverrideDecl struct {
	Module   string
	Base     ir.Name
	Function ir.Name
}

// unit is the input of one build.
type unit struct {
	name       string
	path       string
	source     string
	language   ir.Language
	stage      ir.ShaderStage
	defs       preprocess.ShaderDefs
	additional []preprocess.ImportDecl
	// entry units keep bare symbols and their entry points.
	entry bool
}

// loadFunc returns the compiled variant of an imported module.
type loadFunc func(imp preprocess.ImportDecl) (*Compiled, error)

type builder struct {
	logger         hclog.Logger
	requireVirtual bool
}

// build preprocesses, parses and resolves one unit.
func (b *builder) build(u unit, load loadFunc) (*Compiled, error) {
	if containsDecoration(u.source) {
		return nil, diag.Errorf(diag.KindDecorationInSource,
			"source uses the reserved symbol prefix %q or %q", modulePrefix, overridePrefix).In(u.name)
	}

	pre := preprocess.New(preprocess.Options{AllowDefines: u.entry, Path: u.path, Logger: b.logger})
	out, err := pre.Preprocess(u.source, u.defs)
	if err != nil {
		return nil, diag.InModule(err, u.name)
	}

	c := &Compiled{
		Module:   u.name,
		Language: u.language,
		Defs:     u.defs,
		Imports:  mergeImports(out.Imports, u.additional),
		Version:  out.Version,
	}

	items, err := b.parse(u, out.Source, c)
	if err != nil {
		return nil, diag.InModule(err, u.name)
	}

	r := &resolver{
		builder:  b,
		unit:     u,
		compiled: c,
		source:   out.Source,
		imports:  make(map[string]*Compiled, len(c.Imports)),
		own:      make(map[string]*ir.Item, len(items)),
		from:     make(map[string]string),
	}
	if err := r.loadImports(load); err != nil {
		return nil, diag.InModule(err, u.name)
	}
	if err := r.namespace(items); err != nil {
		return nil, diag.InModule(err, u.name)
	}
	r.collectMembers(items)
	for _, it := range items {
		if err := r.resolveItem(it); err != nil {
			return nil, diag.InModule(err, u.name)
		}
	}
	for _, it := range items {
		r.canonicalize(it)
	}
	for _, it := range items {
		if it.Override == nil {
			continue
		}
		if err := r.checkOverride(it); err != nil {
			return nil, diag.InModule(err, u.name)
		}
		c.Overrides = append(c.Overrides, OverrideDecl{Module: u.name, Base: *it.Override, Function: it.Name})
	}

	c.Items = items
	c.Header = ir.NewHeader(u.name, u.language, items)
	b.logger.Trace("built module", "module", u.name, "items", len(items), "overrides", len(c.Overrides), "defs", u.defs.Key())
	return c, nil
}

// parse runs the language front end.
func (b *builder) parse(u unit, source string, c *Compiled) ([]*ir.Item, error) {
	switch u.language {
	case ir.LanguageGLSL:
		stage := ir.StageNone
		if u.entry {
			stage = u.stage
		}
		file, err := glsl.Parse(source, u.path, stage)
		if err != nil {
			return nil, err
		}
		c.Directives = file.Directives
		return file.Items, nil
	default:
		file, err := wgsl.Parse(source, u.path)
		if err != nil {
			return nil, err
		}
		c.Directives = file.Directives
		return file.Items, nil
	}
}

// mergeImports appends additional imports not already present.
func mergeImports(live, additional []preprocess.ImportDecl) []preprocess.ImportDecl {
	out := append([]preprocess.ImportDecl(nil), live...)
	for _, add := range additional {
		dup := false
		for _, have := range out {
			if have.Path == add.Path && have.Alias == add.Alias && !have.Partial() && !add.Partial() {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, add)
		}
	}
	return out
}

type resolver struct {
	*builder
	unit     unit
	compiled *Compiled
	source   string

	// imports maps module name to its compiled variant.
	imports map[string]*Compiled
	// own maps item name to the unit's own non-override items.
	own map[string]*ir.Item
	// from maps a #from-imported item name to its module.
	from map[string]string
	// expanding guards alias expansion against alias cycles.
	expanding map[string]bool
	// members holds the names of anonymous GLSL block members in scope.
	members map[string]bool
}

func (r *resolver) loadImports(load loadFunc) error {
	for _, imp := range r.compiled.Imports {
		if imp.Path == r.unit.name {
			return diag.Errorf(diag.KindImportCycle, "module imports itself").At(imp.Span, r.source)
		}
		if _, ok := r.imports[imp.Path]; !ok {
			dep, err := load(imp)
			if err != nil {
				return err
			}
			if dep.Language != r.unit.language {
				return diag.Errorf(diag.KindLanguageUnsupported,
					"%s module cannot import %s module %q", r.unit.language, dep.Language, imp.Path).At(imp.Span, r.source)
			}
			r.imports[imp.Path] = dep
		}
		if !imp.Partial() {
			continue
		}
		header := r.imports[imp.Path].Header
		for _, name := range imp.Items {
			if _, ok := header.Lookup(name); !ok {
				return diag.Errorf(diag.KindUnresolvedReference,
					"module %q has no item %q", imp.Path, name).At(imp.Span, r.source).Suggest(name, header.Names())
			}
			if prev, dup := r.from[name]; dup && prev != imp.Path {
				return diag.Errorf(diag.KindDuplicateDefinition,
					"%q is imported from both %q and %q", name, prev, imp.Path).At(imp.Span, r.source)
			}
			r.from[name] = imp.Path
		}
	}
	return nil
}

// namespace assigns qualified names and symbols and rejects duplicates.
func (r *resolver) namespace(items []*ir.Item) error {
	seen := make(map[string]*ir.Item, len(items))
	for _, it := range items {
		if it.Kind == ir.ItemAssert {
			it.Name = ir.Name{Module: r.unit.name, Item: it.Name.Item}
			continue
		}
		key := it.Name.Item
		var base ir.Name
		if it.Override != nil {
			var err error
			if base, err = r.overrideBase(it); err != nil {
				return err
			}
			key = "override " + base.String()
		}
		if prev, dup := seen[key]; dup {
			return diag.Errorf(diag.KindDuplicateDefinition,
				"%q is already defined at line %d", it.Name.Item, prev.Span.Start.Line).At(it.Span, r.source)
		}
		seen[key] = it

		if it.Override != nil {
			it.Override = &base
			it.Name = ir.Name{Module: r.unit.name, Item: base.String()}
			it.Symbol = DecorateOverride(r.unit.name, base)
			continue
		}

		if _, clash := r.from[it.Name.Item]; clash {
			return diag.Errorf(diag.KindDuplicateDefinition,
				"%q is both defined here and imported from %q", it.Name.Item, r.from[it.Name.Item]).At(it.Span, r.source)
		}
		r.own[it.Name.Item] = it
		it.Name = ir.Name{Module: r.unit.name, Item: it.Name.Item}
		if r.unit.entry {
			it.Symbol = it.Name.Item
		} else {
			it.Symbol = Decorate(r.unit.name, it.Name.Item)
			if it.Stage != ir.StageNone {
				it.Demoted = true
			}
		}
	}
	return nil
}

// overrideBase resolves the written target of an override to the base
// function's qualified name.
func (r *resolver) overrideBase(it *ir.Item) (ir.Name, error) {
	span := it.Span
	imp, err := r.importFor(it.Override.Module, span)
	if err != nil {
		return ir.Name{}, err
	}
	header := r.imports[imp.Path].Header
	base, ok := header.Lookup(it.Override.Item)
	if !ok || base.Kind != ir.ItemFunction {
		return ir.Name{}, diag.Errorf(diag.KindUnresolvedReference,
			"override target %s::%s is not a function of %q", it.Override.Module, it.Override.Item, imp.Path).
			At(span, r.source).Suggest(it.Override.Item, functionNames(header))
	}
	if r.requireVirtual && !base.Virtual {
		return ir.Name{}, diag.Errorf(diag.KindOverrideNotVirtual,
			"%s::%s is not declared virtual", imp.Path, base.Name).At(span, r.source)
	}
	return ir.Name{Module: imp.Path, Item: base.Name}, nil
}

func functionNames(h *ir.Header) []string {
	var out []string
	for _, it := range h.Items {
		if it.Kind == ir.ItemFunction {
			out = append(out, it.Name)
		}
	}
	return out
}

// importFor finds the import a qualifier refers to: an alias, or the path
// of an import without one.
func (r *resolver) importFor(qualifier string, span diag.Span) (preprocess.ImportDecl, error) {
	for _, imp := range r.compiled.Imports {
		if imp.Alias == qualifier {
			return imp, nil
		}
	}
	for _, imp := range r.compiled.Imports {
		if imp.Alias == "" && imp.Path == qualifier {
			return imp, nil
		}
	}
	var names []string
	for _, imp := range r.compiled.Imports {
		names = append(names, imp.Name())
	}
	return preprocess.ImportDecl{}, diag.Errorf(diag.KindUnresolvedModule,
		"%q does not name an imported module", qualifier).At(span, r.source).Suggest(qualifier, names)
}

func (r *resolver) resolveItem(it *ir.Item) error {
	for i := range it.Refs {
		ref := &it.Refs[i]
		span := ref.Span
		if len(ref.Path) == 1 {
			name := ref.Path[0]
			if own, ok := r.own[name]; ok {
				ref.Target = own.Name
				continue
			}
			if module, ok := r.from[name]; ok {
				ref.Target = ir.Name{Module: module, Item: name}
				continue
			}
			if r.isBuiltin(name) {
				ref.Builtin = true
				continue
			}
			return diag.Errorf(diag.KindUnresolvedReference,
				"unknown name %q", name).At(span, r.source).Suggest(name, r.visibleNames())
		}

		qualifier := strings.Join(ref.Path[:len(ref.Path)-1], "::")
		name := ref.Path[len(ref.Path)-1]
		imp, err := r.importFor(qualifier, span)
		if err != nil {
			return err
		}
		header := r.imports[imp.Path].Header
		if _, ok := header.Lookup(name); !ok {
			return diag.Errorf(diag.KindUnresolvedReference,
				"module %q has no item %q", imp.Path, name).At(span, r.source).Suggest(name, header.Names())
		}
		if imp.Partial() && !contains(imp.Items, name) {
			return diag.Errorf(diag.KindUnresolvedReference,
				"%q is not among the items imported from %q", name, imp.Path).At(span, r.source).Suggest(name, imp.Items)
		}
		ref.Target = ir.Name{Module: imp.Path, Item: name}
	}
	return nil
}

// collectMembers records the members of anonymous interface blocks
// declared by the unit or its imports. They are used bare and are never
// decorated.
func (r *resolver) collectMembers(items []*ir.Item) {
	if r.unit.language != ir.LanguageGLSL {
		return
	}
	r.members = make(map[string]bool)
	add := func(items []*ir.Item) {
		for _, it := range items {
			for _, m := range it.Members {
				r.members[m] = true
			}
		}
	}
	add(items)
	for _, dep := range r.imports {
		add(dep.Items)
	}
}

// isBuiltin reports whether an unresolved bare name belongs to the
// language.
func (r *resolver) isBuiltin(name string) bool {
	if r.unit.language == ir.LanguageGLSL {
		return glsl.IsBuiltin(name) || r.members[name]
	}
	return wgsl.IsPredeclared(name)
}

func (r *resolver) visibleNames() []string {
	names := make([]string, 0, len(r.own)+len(r.from))
	for name := range r.own {
		names = append(names, name)
	}
	for name := range r.from {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// canonicalize fills the signature's canonical type strings: type text
// with aliases expanded, other names replaced by their qualified targets
// and whitespace removed.
func (r *resolver) canonicalize(it *ir.Item) {
	if it.Kind == ir.ItemAlias {
		it.Signature.Result = r.canonicalType(it, it.Signature.ResultRange)
		return
	}
	if it.Kind != ir.ItemFunction {
		return
	}
	for i := range it.Signature.Params {
		it.Signature.Params[i].Type = r.canonicalType(it, it.Signature.Params[i].TypeRange)
	}
	it.Signature.Result = r.canonicalType(it, it.Signature.ResultRange)
}

func (r *resolver) canonicalType(it *ir.Item, rng ir.Range) string {
	if rng.Empty() {
		return ""
	}
	var sb strings.Builder
	cursor := rng.Start
	for _, ref := range it.Refs {
		if ref.Range.Start < rng.Start || ref.Range.End > rng.End {
			continue
		}
		sb.WriteString(it.Text[cursor:ref.Range.Start])
		switch {
		case !ref.Builtin:
			if aliased := r.aliasedType(ref.Target); aliased != "" {
				sb.WriteString(aliased)
			} else {
				sb.WriteString(ref.Target.String())
			}
		case r.unit.language == ir.LanguageWGSL:
			sb.WriteString(wgsl.ExpandShorthand(ref.Written()))
		default:
			sb.WriteString(ref.Written())
		}
		cursor = ref.Range.End
	}
	sb.WriteString(it.Text[cursor:rng.End])
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, sb.String())
}

// aliasedType returns the canonical type an alias item names, or "" when
// target is not an alias.
func (r *resolver) aliasedType(target ir.Name) string {
	if own, ok := r.own[target.Item]; ok && own.Name == target {
		if own.Kind != ir.ItemAlias || r.expanding[target.Item] {
			return ""
		}
		if r.expanding == nil {
			r.expanding = make(map[string]bool)
		}
		r.expanding[target.Item] = true
		defer delete(r.expanding, target.Item)
		return r.canonicalType(own, own.Signature.ResultRange)
	}
	dep, ok := r.imports[target.Module]
	if !ok {
		return ""
	}
	if hi, ok := dep.Header.Lookup(target.Item); ok && hi.Kind == ir.ItemAlias {
		return hi.Signature.Result
	}
	return ""
}

// checkOverride compares an override's signature with its base.
func (r *resolver) checkOverride(it *ir.Item) error {
	base := *it.Override
	header := r.imports[base.Module].Header
	baseItem, _ := header.Lookup(base.Item)
	if !baseItem.Signature.Equal(it.Signature) {
		return diag.Errorf(diag.KindOverrideSignatureMismatch,
			"override of %s has signature %s, base has %s", base, it.Signature, baseItem.Signature).At(it.Span, r.source)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
