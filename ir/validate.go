package ir

import (
	"fmt"

	"github.com/gogpu/oil/diag"
)

// Validator runs structural checks over a composed module.
type Validator struct {
	module *Module
	items  map[Name]*Item
	diags  diag.List
}

// Validate checks the module for problems that composition can introduce:
// dangling references, call arity, colliding symbols and bindings, and
// recursion. Returns the diagnostics found, or an error if module is nil.
func Validate(module *Module) (diag.List, error) {
	if module == nil {
		return nil, fmt.Errorf("module is nil")
	}

	v := &Validator{
		module: module,
		items:  make(map[Name]*Item, len(module.Items)),
	}
	for _, it := range module.Items {
		v.items[it.Name] = it
	}

	v.ValidateModule()
	return v.diags, nil
}

// ValidateModule validates the complete module.
func (v *Validator) ValidateModule() {
	v.validateSymbols()
	v.validateReferences()
	v.validateBindings()
	v.validateRecursion()
	v.validateEntryPoints()
}

func (v *Validator) validateSymbols() {
	seen := make(map[string]*Item, len(v.module.Items))
	for _, it := range v.module.Items {
		if it.Kind == ItemAssert {
			continue
		}
		if prev, ok := seen[it.Symbol]; ok {
			v.diags.Errorf(diag.KindDuplicateDefinition, it.Span,
				"symbol %q is emitted for both %s and %s", it.Symbol, prev.Name, it.Name)
			continue
		}
		seen[it.Symbol] = it
	}
}

func (v *Validator) validateReferences() {
	for _, it := range v.module.Items {
		for _, ref := range it.Refs {
			if ref.Builtin {
				continue
			}
			target, ok := v.items[ref.Target]
			if !ok {
				v.diags.Errorf(diag.KindUnresolvedReference, ref.Span,
					"%s refers to %s, which is not part of the composed shader", it.Name, ref.Written())
				continue
			}
			if !ref.Call || target.Kind != ItemFunction {
				continue
			}
			if want := len(target.Signature.Params); ref.Args != want {
				v.diags.Errorf(diag.KindValidation, ref.Span,
					"call to %s passes %d argument(s), expected %d", target.Name, ref.Args, want)
			}
		}
	}
}

func (v *Validator) validateBindings() {
	type slot struct{ group, binding int }
	used := make(map[slot]*Item)
	for _, it := range v.module.Items {
		b := it.Binding
		if b == nil || b.Group < 0 || b.Binding < 0 {
			continue
		}
		s := slot{b.Group, b.Binding}
		if prev, ok := used[s]; ok {
			v.diags.Errorf(diag.KindValidation, it.Span,
				"@group(%d) @binding(%d) is used by both %s and %s", b.Group, b.Binding, prev.Name, it.Name)
			continue
		}
		used[s] = it
	}
}

// validateRecursion reports call cycles, which shading languages forbid.
func (v *Validator) validateRecursion() {
	const (
		unvisited = iota
		active
		done
	)
	state := make(map[Name]int, len(v.module.Items))
	reported := make(map[Name]bool)

	var visit func(it *Item, path []Name)
	visit = func(it *Item, path []Name) {
		state[it.Name] = active
		path = append(path, it.Name)
		for _, ref := range it.Refs {
			if !ref.Call || ref.Builtin {
				continue
			}
			callee, ok := v.items[ref.Target]
			if !ok || callee.Kind != ItemFunction {
				continue
			}
			switch state[callee.Name] {
			case active:
				if !reported[callee.Name] {
					reported[callee.Name] = true
					v.diags.Errorf(diag.KindValidation, ref.Span,
						"recursive call cycle through %s", cyclePath(path, callee.Name))
				}
			case unvisited:
				visit(callee, path)
			}
		}
		state[it.Name] = done
	}

	for _, it := range v.module.Items {
		if it.Kind == ItemFunction && state[it.Name] == unvisited {
			visit(it, nil)
		}
	}
}

func cyclePath(path []Name, back Name) string {
	start := 0
	for i, n := range path {
		if n == back {
			start = i
			break
		}
	}
	s := ""
	for _, n := range path[start:] {
		s += n.String() + " -> "
	}
	return s + back.String()
}

func (v *Validator) validateEntryPoints() {
	if len(v.module.EntryPoints()) == 0 {
		v.diags.Warnf(diag.KindValidation, diag.Span{Path: v.module.Name},
			"composed shader has no entry points")
	}
}
