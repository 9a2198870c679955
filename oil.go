// Package oil composes shader modules into complete shaders.
//
// Modules are WGSL or GLSL sources that name themselves with
// #define_import_path and pull in other modules with #import or #from.
// The composer resolves imports, evaluates #ifdef/#if conditionals against
// shader defs, applies function overrides and emits one self-contained
// shader.
//
// Example usage:
//
//	const lib = `
//	#define_import_path util
//	fn double(x: f32) -> f32 { return x * 2.0; }
//	`
//	const main = `
//	#import util
//	@fragment
//	fn main() -> @location(0) vec4<f32> { return vec4<f32>(util::double(0.25)); }
//	`
//	text, err := oil.ComposeWGSL(main, lib)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// For long-lived registries, use NewComposer and the compose package:
//
//	c := oil.NewComposer(oil.WithLogger(logger))
//	_, err := c.Add(compose.ModuleDescriptor{Source: lib})
//	res, err := c.Compose(compose.ComposeDescriptor{Source: main})
package oil

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/gogpu/oil/compose"
	"github.com/gogpu/oil/diag"
	"github.com/gogpu/oil/preprocess"
)

// Version is the library version.
const Version = "0.1.0-dev"

// Option configures a Composer.
type Option func(*compose.Options)

// WithLogger sets the logger used by the registry and composer.
func WithLogger(logger hclog.Logger) Option {
	return func(o *compose.Options) { o.Logger = logger }
}

// WithDuplicatePolicy sets what happens when a module name is added twice.
func WithDuplicatePolicy(p compose.DuplicatePolicy) Option {
	return func(o *compose.Options) { o.DuplicatePolicy = p }
}

// WithRequireVirtual makes overriding a function not declared virtual an error.
func WithRequireVirtual(require bool) Option {
	return func(o *compose.Options) { o.RequireVirtual = require }
}

// WithCacheSize bounds the compiled-variant cache. A negative size disables it.
func WithCacheSize(n int) Option {
	return func(o *compose.Options) { o.CacheSize = n }
}

// DefaultOptions returns sensible default options.
func DefaultOptions() compose.Options {
	return compose.Options{
		Logger:          hclog.NewNullLogger(),
		DuplicatePolicy: compose.DuplicateAllow,
		CacheSize:       compose.DefaultCacheSize,
	}
}

// NewComposer creates a Composer with an empty registry.
func NewComposer(opts ...Option) *compose.Composer {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return compose.NewComposer(o)
}

// AddModules registers modules in dependency order, so callers need not
// sort them. It stops at the first failure.
func AddModules(c *compose.Composer, modules []compose.ModuleDescriptor) error {
	ordered, err := SortModules(modules)
	if err != nil {
		return err
	}
	for _, desc := range ordered {
		if _, err := c.Add(desc); err != nil {
			return fmt.Errorf("add %s: %w", moduleLabel(desc), err)
		}
	}
	return nil
}

// SortModules orders modules so that every module follows the modules it
// imports. Imports of modules outside the list are ignored; ties keep
// input order. Modules without a name sort where they were given.
func SortModules(modules []compose.ModuleDescriptor) ([]compose.ModuleDescriptor, error) {
	type node struct {
		desc    compose.ModuleDescriptor
		name    string
		imports []string
	}
	nodes := make([]node, len(modules))
	byName := make(map[string]int, len(modules))
	for i, desc := range modules {
		meta, err := preprocess.New(preprocess.Options{Path: desc.FilePath}).Metadata(desc.Source)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", moduleLabel(desc), err)
		}
		name := desc.Name
		if name == "" {
			name = meta.Name
		}
		n := node{desc: desc, name: name}
		for _, imp := range append(meta.Imports, desc.AdditionalImports...) {
			n.imports = append(n.imports, imp.Path)
		}
		nodes[i] = n
		if name != "" {
			byName[name] = i
		}
	}

	const (
		visiting = iota + 1
		done
	)
	state := make([]int, len(nodes))
	ordered := make([]compose.ModuleDescriptor, 0, len(nodes))
	var stack []string

	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case done:
			return nil
		case visiting:
			start := 0
			for k, name := range stack {
				if name == nodes[i].name {
					start = k
				}
			}
			cycle := append(stack[start:len(stack):len(stack)], nodes[i].name)
			return diag.Errorf(diag.KindImportCycle, "import cycle: %s",
				strings.Join(cycle, " -> ")).In(nodes[i].name)
		}
		state[i] = visiting
		stack = append(stack, nodes[i].name)
		for _, path := range nodes[i].imports {
			j, ok := byName[path]
			if !ok || j == i {
				continue
			}
			if err := visit(j); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[i] = done
		ordered = append(ordered, nodes[i].desc)
		return nil
	}
	for i := range nodes {
		if err := visit(i); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}

// Compose registers modules in a fresh composer and composes entry.
func Compose(modules []compose.ModuleDescriptor, entry compose.ComposeDescriptor, opts ...Option) (*compose.Result, error) {
	c := NewComposer(opts...)
	if err := AddModules(c, modules); err != nil {
		return nil, err
	}
	return c.Compose(entry)
}

// ComposeWGSL composes a WGSL entry source against WGSL module sources and
// returns the shader text. Validation errors fail the composition.
func ComposeWGSL(source string, modules ...string) (string, error) {
	descs := make([]compose.ModuleDescriptor, len(modules))
	for i, m := range modules {
		descs[i] = compose.ModuleDescriptor{Source: m}
	}
	res, err := Compose(descs, compose.ComposeDescriptor{
		Source:   source,
		Validate: compose.ValidateFatal,
	})
	if err != nil {
		return "", err
	}
	return res.Text()
}

func moduleLabel(desc compose.ModuleDescriptor) string {
	switch {
	case desc.Name != "":
		return desc.Name
	case desc.FilePath != "":
		return desc.FilePath
	default:
		return "module"
	}
}
