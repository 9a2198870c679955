// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package compose

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/oil/diag"
	"github.com/gogpu/oil/glsl"
	"github.com/gogpu/oil/ir"
	"github.com/gogpu/oil/preprocess"
	"github.com/gogpu/oil/prune"
	"github.com/gogpu/oil/wgsl"
)

// ValidateMode selects what happens to validation diagnostics.
type ValidateMode uint8

const (
	// ValidateNone skips validation.
	ValidateNone ValidateMode = iota
	// ValidateFatal fails the composition on the first error diagnostic.
	ValidateFatal
	// ValidateCollect returns the diagnostics with the composed module.
	ValidateCollect
)

// String returns the mode name used by the CLI.
func (v ValidateMode) String() string {
	switch v {
	case ValidateFatal:
		return "fatal"
	case ValidateCollect:
		return "collect"
	default:
		return "none"
	}
}

// ParseValidateMode reads a mode name.
func ParseValidateMode(s string) (ValidateMode, error) {
	switch s {
	case "", "none":
		return ValidateNone, nil
	case "fatal":
		return ValidateFatal, nil
	case "collect":
		return ValidateCollect, nil
	}
	return ValidateNone, fmt.Errorf("unknown validation mode %q", s)
}

// ComposeDescriptor describes one shader to compose. Exactly one of
// Source and ModuleName is set.
type ComposeDescriptor struct {
	Source string
	// ModuleName composes a registered module as the entry.
	ModuleName string
	FilePath   string
	Language   ir.Language
	// ShaderType is the stage of a GLSL entry's main function.
	ShaderType ir.ShaderStage

	Defs              preprocess.ShaderDefs
	AdditionalImports []preprocess.ImportDecl

	Validate ValidateMode
	// Prune drops items no entry point reaches.
	Prune bool
}

// Result is a composed shader.
type Result struct {
	Module      *ir.Module
	Diagnostics diag.List
}

// Text renders the composed shader in its language.
func (res *Result) Text() (string, error) {
	if res.Module.Language == ir.LanguageGLSL {
		return glsl.Write(res.Module)
	}
	return wgsl.Write(res.Module)
}

// Composer merges registered modules into complete shaders.
type Composer struct {
	*Registry
}

// NewComposer creates a Composer with an empty registry.
func NewComposer(opts Options) *Composer {
	return &Composer{Registry: NewRegistry(opts)}
}

// Compose builds one shader. Errors abort without a partial result.
func (c *Composer) Compose(desc ComposeDescriptor) (*Result, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.compose(desc)
}

// ComposeAll composes several shaders concurrently against one snapshot
// of the registry. Results are in descriptor order.
func (c *Composer) ComposeAll(ctx context.Context, descs []ComposeDescriptor) ([]*Result, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	results := make([]*Result, len(descs))
	g, ctx := errgroup.WithContext(ctx)
	for i := range descs {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := c.compose(descs[i])
			if err != nil {
				return fmt.Errorf("compose %s: %w", entryLabel(descs[i]), err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func entryLabel(desc ComposeDescriptor) string {
	switch {
	case desc.ModuleName != "":
		return desc.ModuleName
	case desc.FilePath != "":
		return desc.FilePath
	default:
		return "shader"
	}
}

// entry is the resolved top-level unit of a composition.
type entry struct {
	unit
	module *Module
}

// compose runs with the read lock held.
func (c *Composer) compose(desc ComposeDescriptor) (*Result, error) {
	e, err := c.entry(desc)
	if err != nil {
		return nil, err
	}
	log := c.logger.With("entry", entryLabel(desc))

	defs, err := c.compositionDefs(e)
	if err != nil {
		return nil, diag.InModule(err, e.name)
	}
	log.Debug("composing", "defs", defs.Key())

	s := c.newSession(c.modules, defs)
	var top *Compiled
	if e.module != nil {
		top, err = s.variant(e.module, true, desc.ShaderType)
	} else {
		e.defs = defs
		top, err = c.builder.build(e.unit, s.load)
	}
	if err != nil {
		return nil, err
	}

	order, err := walk(top, s)
	if err != nil {
		return nil, err
	}
	chains := buildChains(order)
	module, err := merge(top, order, chains)
	if err != nil {
		return nil, diag.InModule(err, e.name)
	}
	if desc.Prune {
		module = prune.Module(module)
	}
	log.Debug("composed", "modules", len(order), "items", len(module.Items), "overridden", len(chains))

	res := &Result{Module: module}
	if desc.Validate == ValidateNone {
		return res, nil
	}
	diags, err := ir.Validate(module)
	if err != nil {
		return nil, err
	}
	if desc.Validate == ValidateFatal && diags.HasErrors() {
		first := diags.Errors()[0]
		return nil, diag.Errorf(diag.KindValidation, "%s", first.Message).At(first.Span, "").In(e.name).Wrap(diags.Err())
	}
	res.Diagnostics = diags
	return res, nil
}

// entry resolves the descriptor to a build unit. #define values in an
// entry source replace the caller's defs of the same name.
func (c *Composer) entry(desc ComposeDescriptor) (*entry, error) {
	if desc.ModuleName != "" {
		if desc.Source != "" {
			return nil, fmt.Errorf("compose: both Source and ModuleName are set")
		}
		m, ok := c.modules[desc.ModuleName]
		if !ok {
			return nil, diag.Errorf(diag.KindNotFound, "module %q is not registered", desc.ModuleName).
				Suggest(desc.ModuleName, c.names())
		}
		if len(desc.AdditionalImports) > 0 {
			return nil, fmt.Errorf("compose: additional imports of registered module %q must be given at Add", m.Name)
		}
		return &entry{
			unit: unit{
				name:     m.Name,
				path:     m.FilePath,
				source:   m.Source,
				language: m.Language,
				stage:    desc.ShaderType,
				defs:     desc.Defs.Clone(),
				entry:    true,
			},
			module: m,
		}, nil
	}

	pre := preprocess.New(preprocess.Options{AllowDefines: true, Path: desc.FilePath, Logger: c.logger})
	meta, err := pre.Metadata(desc.Source)
	if err != nil {
		return nil, err
	}
	defs := desc.Defs.Clone()
	for name, v := range meta.Defines {
		defs[name] = v
	}
	return &entry{unit: unit{
		name:       meta.Name,
		path:       desc.FilePath,
		source:     desc.Source,
		language:   desc.Language,
		stage:      desc.ShaderType,
		defs:       defs,
		additional: desc.AdditionalImports,
		entry:      true,
	}}, nil
}

// compositionDefs extends the entry defs with the bound defs of its
// direct imports. A def bound to two values is InconsistentShaderDef.
func (c *Composer) compositionDefs(e *entry) (preprocess.ShaderDefs, error) {
	defs := e.defs
	var imports []preprocess.ImportDecl
	if e.module != nil {
		var conflict string
		if defs, conflict = defs.Merge(e.module.BoundDefs); conflict != "" {
			return nil, diag.Errorf(diag.KindInconsistentShaderDef,
				"shader def %s is %s here but bound to %s by module %q",
				conflict, e.defs[conflict], e.module.BoundDefs[conflict], e.module.Name)
		}
		imports = e.module.AllImports
	} else {
		pre := preprocess.New(preprocess.Options{AllowDefines: true, Path: e.path, Logger: c.logger})
		out, err := pre.Preprocess(e.source, defs)
		if err != nil {
			return nil, err
		}
		imports = mergeImports(out.Imports, e.additional)
	}

	for _, imp := range imports {
		dep, ok := c.modules[imp.Path]
		if !ok {
			return nil, diag.Errorf(diag.KindImportNotFound, "module %q is not registered", imp.Path).
				At(imp.Span, e.source).Suggest(imp.Path, c.names())
		}
		merged, conflict := defs.Merge(dep.BoundDefs)
		if conflict != "" {
			return nil, diag.Errorf(diag.KindInconsistentShaderDef,
				"shader def %s is %s here but bound to %s by module %q",
				conflict, defs[conflict], dep.BoundDefs[conflict], dep.Name).At(imp.Span, e.source)
		}
		defs = merged
	}
	return defs, nil
}

// walk lists the modules of a composition in post-order: each module
// after its imports, imports in directive order, the entry last.
func walk(top *Compiled, s *session) ([]*Compiled, error) {
	var order []*Compiled
	visited := make(map[string]bool)
	var visit func(c *Compiled) error
	visit = func(c *Compiled) error {
		for _, imp := range c.Imports {
			if visited[imp.Path] {
				continue
			}
			visited[imp.Path] = true
			dep, err := s.load(imp)
			if err != nil {
				return err
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		order = append(order, c)
		return nil
	}
	if err := visit(top); err != nil {
		return nil, err
	}
	return order, nil
}

// merge selects the items the entry needs and emits them in module order.
func merge(top *Compiled, order []*Compiled, chains overrideChains) (*ir.Module, error) {
	items := make(map[ir.Name]*ir.Item)
	for _, c := range order {
		for _, it := range c.Items {
			items[it.Name] = it
		}
	}

	selected := make(map[ir.Name]bool)
	var queue []*ir.Item
	include := func(name ir.Name) {
		it, ok := items[name]
		if !ok || selected[name] {
			return
		}
		selected[name] = true
		queue = append(queue, it)
	}

	for _, it := range top.Items {
		include(it.Name)
	}
	for _, c := range order {
		for _, imp := range c.Imports {
			if imp.Partial() {
				for _, item := range imp.Items {
					include(ir.Name{Module: imp.Path, Item: item})
				}
				continue
			}
			for _, it := range byModule(order, imp.Path).Items {
				include(it.Name)
			}
		}
		for _, o := range c.Overrides {
			include(o.Function)
		}
	}
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		for _, ref := range it.Refs {
			if ref.Builtin {
				continue
			}
			include(chains.target(it, ref.Target))
		}
	}

	reg := ir.NewItemRegistry()
	var directives []string
	version := 0
	for _, c := range order {
		directives = append(directives, c.Directives...)
		version = max(version, c.Version)
		for _, it := range c.Items {
			if !selected[it.Name] {
				continue
			}
			out := chains.redirect(it)
			if out == it {
				out = it.Clone()
			}
			if _, _, err := reg.GetOrAdd(out); err != nil {
				return nil, err
			}
		}
	}

	module := &ir.Module{
		Name:       top.Module,
		Language:   top.Language,
		Directives: directives,
		Version:    entryVersion(top, version),
		Items:      reg.Items(),
	}
	if err := assignBindings(module); err != nil {
		return nil, err
	}
	return module, nil
}

// entryVersion prefers the entry's #version over the highest imported one.
func entryVersion(top *Compiled, highest int) int {
	if top.Version != 0 {
		return top.Version
	}
	return highest
}

func byModule(order []*Compiled, name string) *Compiled {
	for _, c := range order {
		if c.Module == name {
			return c
		}
	}
	return &Compiled{Module: name}
}

// assignBindings gives each @binding(auto) global the lowest binding
// number its group does not use yet. Explicit bindings are reserved first.
func assignBindings(m *ir.Module) error {
	used := make(map[int]map[int]bool)
	reserve := func(group, binding int) {
		if used[group] == nil {
			used[group] = make(map[int]bool)
		}
		used[group][binding] = true
	}
	for _, it := range m.Items {
		if b := it.Binding; b != nil && !b.Auto && b.Group >= 0 && b.Binding >= 0 {
			reserve(b.Group, b.Binding)
		}
	}
	for _, it := range m.Items {
		b := it.Binding
		if b == nil || !b.Auto {
			continue
		}
		if b.Group < 0 {
			return diag.Errorf(diag.KindValidation,
				"%s uses @binding(auto) with a group that is not an integer literal", it.Name).At(it.Span, "")
		}
		next := 0
		for used[b.Group][next] {
			next++
		}
		b.Binding = next
		reserve(b.Group, next)
	}
	return nil
}
