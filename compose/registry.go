// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package compose

import (
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	lru "github.com/hashicorp/golang-lru"

	"github.com/gogpu/oil/diag"
	"github.com/gogpu/oil/ir"
	"github.com/gogpu/oil/preprocess"
)

// DuplicatePolicy decides what Add does with a name that is already registered.
type DuplicatePolicy uint8

const (
	// DuplicateAllow treats an identical re-add as a no-op and rebuilds the
	// module and its dependents when the source or defs changed.
	DuplicateAllow DuplicatePolicy = iota

	// DuplicateReject fails any re-add with KindDuplicateModule.
	DuplicateReject
)

// DefaultCacheSize is the number of compiled variants kept when
// Options.CacheSize is zero.
const DefaultCacheSize = 256

// Options configures a Registry.
type Options struct {
	// Logger receives debug output. Defaults to a null logger.
	Logger hclog.Logger

	DuplicatePolicy DuplicatePolicy

	// RequireVirtual rejects overrides of functions not declared virtual.
	RequireVirtual bool

	// CacheSize bounds the compiled-variant cache. Zero selects
	// DefaultCacheSize; a negative value disables caching.
	CacheSize int
}

// ImportDecl is an #import or #from directive.
type ImportDecl = preprocess.ImportDecl

// ShaderDefs maps shader def names to their values.
type ShaderDefs = preprocess.ShaderDefs

// ModuleDescriptor describes a module to register.
type ModuleDescriptor struct {
	// Name overrides #define_import_path.
	Name     string
	Source   string
	FilePath string
	Language ir.Language

	// Defs are bound to the module for every composition that uses it.
	Defs preprocess.ShaderDefs

	// AdditionalImports are imported as if written in the source.
	AdditionalImports []preprocess.ImportDecl
}

// Module is a registered module.
type Module struct {
	Name              string
	Source            string
	FilePath          string
	Language          ir.Language
	Defs              preprocess.ShaderDefs
	AdditionalImports []preprocess.ImportDecl

	// AllImports lists every import in the source, live or not, followed
	// by the additional imports.
	AllImports []preprocess.ImportDecl

	// EffectiveDefs lists the defs the source tests or substitutes.
	EffectiveDefs []string

	// BoundDefs is Defs together with the bound defs of every import.
	BoundDefs preprocess.ShaderDefs

	// Generation starts at 1 and grows on every rebuild.
	Generation uint64

	// Compiled is the variant built with BoundDefs. It is nil when the
	// source tests a def that only a composition can supply.
	Compiled *Compiled

	// closure lists the defs that can change this module or any module
	// it imports.
	closure []string
	epoch   uint64
}

// Registry holds modules available for import. It is safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	opts    Options
	logger  hclog.Logger
	builder *builder
	modules map[string]*Module

	// cache holds compiled variants; nil when disabled.
	cache *lru.Cache
	// epoch is never reused so a failed Add cannot leave entries that a
	// later module would hit.
	epoch uint64
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts Options) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	r := &Registry{
		opts:    opts,
		logger:  logger,
		builder: &builder{logger: logger.Named("builder"), requireVirtual: opts.RequireVirtual},
		modules: make(map[string]*Module),
	}
	size := opts.CacheSize
	if size == 0 {
		size = DefaultCacheSize
	}
	if size > 0 {
		cache, err := lru.New(size)
		if err != nil {
			panic(err)
		}
		r.cache = cache
	}
	return r
}

// Add registers a module. All of its imports, in any conditional branch,
// must already be registered. On error the registry is unchanged.
func (r *Registry) Add(desc ModuleDescriptor) (*Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pre := preprocess.New(preprocess.Options{Path: desc.FilePath, Logger: r.logger})
	meta, err := pre.Metadata(desc.Source)
	if err != nil {
		return nil, diag.InModule(err, desc.Name)
	}
	name := desc.Name
	if name == "" {
		name = meta.Name
	}
	if name == "" {
		return nil, diag.Errorf(diag.KindNoModuleName,
			"module %q has no name and no #define_import_path", desc.FilePath)
	}
	if containsDecoration(desc.Source) {
		return nil, diag.Errorf(diag.KindDecorationInSource,
			"source uses the reserved symbol prefix %q or %q", modulePrefix, overridePrefix).In(name)
	}

	prev, exists := r.modules[name]
	if exists {
		if r.opts.DuplicatePolicy == DuplicateReject {
			return nil, diag.Errorf(diag.KindDuplicateModule, "module %q is already registered", name)
		}
		if prev.sameAs(desc) {
			r.logger.Debug("module unchanged", "module", name)
			return prev, nil
		}
	}

	imports := append(append([]preprocess.ImportDecl(nil), meta.Imports...), desc.AdditionalImports...)
	for _, imp := range imports {
		if imp.Path == name {
			return nil, diag.Errorf(diag.KindImportCycle, "module %q imports itself", name).
				At(imp.Span, desc.Source).In(name)
		}
		if _, ok := r.modules[imp.Path]; !ok {
			return nil, diag.Errorf(diag.KindImportNotFound, "module %q is not registered", imp.Path).
				At(imp.Span, desc.Source).In(name).Suggest(imp.Path, r.names())
		}
		if r.reaches(r.modules, imp.Path, name) {
			return nil, diag.Errorf(diag.KindImportCycle,
				"importing %q closes a cycle back to %q", imp.Path, name).At(imp.Span, desc.Source).In(name)
		}
	}

	staged := make(map[string]*Module, len(r.modules)+1)
	for k, v := range r.modules {
		staged[k] = v
	}

	m := &Module{
		Name:              name,
		Source:            desc.Source,
		FilePath:          desc.FilePath,
		Language:          desc.Language,
		Defs:              desc.Defs.Clone(),
		AdditionalImports: append([]preprocess.ImportDecl(nil), desc.AdditionalImports...),
		AllImports:        imports,
		EffectiveDefs:     meta.UsedDefs,
		Generation:        1,
	}
	if exists {
		m.Generation = prev.Generation + 1
	}
	staged[name] = m
	if err := r.compile(staged, m); err != nil {
		return nil, err
	}

	if exists {
		for _, dep := range r.dependents(staged, name) {
			rebuilt := dep.rebuild()
			staged[dep.Name] = rebuilt
			if err := r.compile(staged, rebuilt); err != nil {
				r.logger.Debug("dependent failed to rebuild", "module", dep.Name, "changed", name, "error", err)
				return nil, err
			}
		}
	}

	r.modules = staged
	r.logger.Debug("added module", "module", name, "generation", m.Generation,
		"imports", len(m.AllImports), "effective_defs", strings.Join(m.EffectiveDefs, ","))
	return m, nil
}

// compile fills in the def sets of m and builds its own variant.
func (r *Registry) compile(modules map[string]*Module, m *Module) error {
	r.epoch++
	m.epoch = r.epoch

	bound := m.Defs.Clone()
	closure := make(map[string]bool)
	for _, d := range m.EffectiveDefs {
		closure[d] = true
	}
	for _, imp := range m.AllImports {
		dep := modules[imp.Path]
		for _, d := range dep.closure {
			closure[d] = true
		}
		merged, conflict := bound.Merge(dep.BoundDefs)
		if conflict != "" {
			return diag.Errorf(diag.KindInconsistentShaderDef,
				"shader def %s is bound to %s here and to %s by %q",
				conflict, bound[conflict], dep.BoundDefs[conflict], dep.Name).At(imp.Span, m.Source).In(m.Name)
		}
		bound = merged
	}
	m.BoundDefs = bound
	m.closure = make([]string, 0, len(closure))
	for d := range closure {
		m.closure = append(m.closure, d)
	}
	sort.Strings(m.closure)

	s := r.newSession(modules, bound)
	c, err := s.variant(m, false, ir.StageNone)
	switch {
	case err == nil:
		m.Compiled = c
	case diag.Is(err, diag.KindUndefinedShaderDef):
		r.logger.Debug("build deferred to composition", "module", m.Name, "reason", err)
	default:
		return err
	}
	return nil
}

// rebuild returns a fresh copy of m to be compiled against changed imports.
func (m *Module) rebuild() *Module {
	return &Module{
		Name:              m.Name,
		Source:            m.Source,
		FilePath:          m.FilePath,
		Language:          m.Language,
		Defs:              m.Defs,
		AdditionalImports: m.AdditionalImports,
		AllImports:        m.AllImports,
		EffectiveDefs:     m.EffectiveDefs,
		Generation:        m.Generation + 1,
	}
}

func (m *Module) sameAs(desc ModuleDescriptor) bool {
	if m.Source != desc.Source || m.FilePath != desc.FilePath || m.Language != desc.Language {
		return false
	}
	if !m.Defs.Equal(desc.Defs) || len(m.AdditionalImports) != len(desc.AdditionalImports) {
		return false
	}
	for i, imp := range desc.AdditionalImports {
		if !sameImport(m.AdditionalImports[i], imp) {
			return false
		}
	}
	return true
}

func sameImport(a, b preprocess.ImportDecl) bool {
	if a.Path != b.Path || a.Alias != b.Alias || a.Partial() != b.Partial() || len(a.Items) != len(b.Items) {
		return false
	}
	for i := range a.Items {
		if a.Items[i] != b.Items[i] {
			return false
		}
	}
	return true
}

// reaches reports whether from imports target, directly or transitively.
func (r *Registry) reaches(modules map[string]*Module, from, target string) bool {
	seen := make(map[string]bool)
	var walk func(name string) bool
	walk = func(name string) bool {
		if name == target {
			return true
		}
		if seen[name] {
			return false
		}
		seen[name] = true
		m, ok := modules[name]
		if !ok {
			return false
		}
		for _, imp := range m.AllImports {
			if walk(imp.Path) {
				return true
			}
		}
		return false
	}
	return walk(from)
}

// dependents returns the modules that import name directly or
// transitively, each after the modules it imports.
func (r *Registry) dependents(modules map[string]*Module, name string) []*Module {
	var out []*Module
	visited := make(map[string]bool)
	var visit func(m *Module)
	visit = func(m *Module) {
		if visited[m.Name] {
			return
		}
		visited[m.Name] = true
		for _, imp := range m.AllImports {
			visit(modules[imp.Path])
		}
		if m.Name != name && r.reaches(modules, m.Name, name) {
			out = append(out, m)
		}
	}
	for _, n := range sortedKeys(modules) {
		visit(modules[n])
	}
	return out
}

func sortedKeys(modules map[string]*Module) []string {
	names := make([]string, 0, len(modules))
	for n := range modules {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Get returns a registered module.
func (r *Registry) Get(name string) (*Module, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[name]
	if !ok {
		return nil, diag.Errorf(diag.KindNotFound, "module %q is not registered", name).Suggest(name, r.names())
	}
	return m, nil
}

// Contains reports whether name is registered.
func (r *Registry) Contains(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.modules[name]
	return ok
}

// Names returns the registered module names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names()
}

func (r *Registry) names() []string {
	return sortedKeys(r.modules)
}

// Remove unregisters a module that no other module imports.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modules[name]; !ok {
		return diag.Errorf(diag.KindNotFound, "module %q is not registered", name).Suggest(name, r.names())
	}
	if users := r.importers(name); len(users) > 0 {
		return diag.Errorf(diag.KindInUse, "module %q is imported by %s", name, strings.Join(users, ", "))
	}
	delete(r.modules, name)
	r.logger.Debug("removed module", "module", name)
	return nil
}

// RemoveTree unregisters a module and every module that imports it,
// directly or transitively. It returns the removed names, sorted.
func (r *Registry) RemoveTree(name string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modules[name]; !ok {
		return nil, diag.Errorf(diag.KindNotFound, "module %q is not registered", name).Suggest(name, r.names())
	}
	removed := []string{name}
	for _, dep := range r.dependents(r.modules, name) {
		removed = append(removed, dep.Name)
	}
	for _, n := range removed {
		delete(r.modules, n)
	}
	sort.Strings(removed)
	r.logger.Debug("removed module tree", "module", name, "removed", len(removed))
	return removed, nil
}

// importers lists the modules that import name directly, sorted.
func (r *Registry) importers(name string) []string {
	var out []string
	for _, n := range r.names() {
		for _, imp := range r.modules[n].AllImports {
			if imp.Path == name {
				out = append(out, n)
				break
			}
		}
	}
	return out
}

// ImportNode is one module in an import tree.
type ImportNode struct {
	Name     string
	Alias    string
	Partial  bool
	Children []*ImportNode
}

// ImportTree returns the imports of name in directive order, following
// every conditional branch.
func (r *Registry) ImportTree(name string) (*ImportNode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.modules[name]; !ok {
		return nil, diag.Errorf(diag.KindNotFound, "module %q is not registered", name).Suggest(name, r.names())
	}
	var build func(imp preprocess.ImportDecl) *ImportNode
	build = func(imp preprocess.ImportDecl) *ImportNode {
		node := &ImportNode{Name: imp.Path, Alias: imp.Alias, Partial: imp.Partial()}
		for _, child := range r.modules[imp.Path].AllImports {
			node.Children = append(node.Children, build(child))
		}
		return node
	}
	return build(preprocess.ImportDecl{Path: name}), nil
}

// variantKey identifies a cached compiled variant.
type variantKey struct {
	entry  bool
	stage  ir.ShaderStage
	module string
	epoch  uint64
	defs   string
}

// session builds the variants one def set needs. Each module is built
// at most once per session.
type session struct {
	r        *Registry
	modules  map[string]*Module
	defs     preprocess.ShaderDefs
	compiled map[string]*Compiled
}

func (r *Registry) newSession(modules map[string]*Module, defs preprocess.ShaderDefs) *session {
	return &session{r: r, modules: modules, defs: defs, compiled: make(map[string]*Compiled)}
}

// load resolves an import to its variant.
func (s *session) load(imp preprocess.ImportDecl) (*Compiled, error) {
	if c, ok := s.compiled[imp.Path]; ok {
		return c, nil
	}
	m, ok := s.modules[imp.Path]
	if !ok {
		return nil, diag.Errorf(diag.KindImportNotFound, "module %q is not registered", imp.Path).
			Suggest(imp.Path, sortedKeys(s.modules))
	}
	c, err := s.variant(m, false, ir.StageNone)
	if err != nil {
		return nil, err
	}
	s.compiled[imp.Path] = c
	return c, nil
}

// variant returns m built with the session defs that can affect it.
func (s *session) variant(m *Module, entry bool, stage ir.ShaderStage) (*Compiled, error) {
	defs := s.defs.Restrict(m.closure)
	key := variantKey{entry: entry, stage: stage, module: m.Name, epoch: m.epoch, defs: defs.Key()}
	if s.r.cache != nil {
		if v, ok := s.r.cache.Get(key); ok {
			return v.(*Compiled), nil
		}
	}
	c, err := s.r.builder.build(unit{
		name:       m.Name,
		path:       m.FilePath,
		source:     m.Source,
		language:   m.Language,
		stage:      stage,
		defs:       defs,
		additional: m.AdditionalImports,
		entry:      entry,
	}, s.load)
	if err != nil {
		return nil, err
	}
	if s.r.cache != nil {
		s.r.cache.Add(key, c)
	}
	return c, nil
}
