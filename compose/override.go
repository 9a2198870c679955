// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package compose

import (
	"github.com/gogpu/oil/ir"
)

// overrideChains maps each overridden base function to its links, the
// override bodies in rank order. Rank 0 was declared first in the
// post-order walk of the import tree.
type overrideChains map[ir.Name][]ir.Name

// buildChains collects the overrides of modules given in post-order,
// entry last. A module contributes at most one link per base.
func buildChains(order []*Compiled) overrideChains {
	chains := make(overrideChains)
	for _, c := range order {
		for _, o := range c.Overrides {
			if chains.hasLink(o.Base, o.Module) {
				continue
			}
			chains[o.Base] = append(chains[o.Base], o.Function)
		}
	}
	return chains
}

func (oc overrideChains) hasLink(base ir.Name, module string) bool {
	for _, link := range oc[base] {
		if link.Module == module {
			return true
		}
	}
	return false
}

// target returns what a reference to name inside item resolves to. Inside
// link k of name's chain it is link k-1, or the base itself for link 0.
// Anywhere else it is the last link.
func (oc overrideChains) target(item *ir.Item, name ir.Name) ir.Name {
	links, ok := oc[name]
	if !ok || len(links) == 0 {
		return name
	}
	if item.Override != nil && *item.Override == name {
		for k, link := range links {
			if link != item.Name {
				continue
			}
			if k == 0 {
				return name
			}
			return links[k-1]
		}
	}
	return links[len(links)-1]
}

// redirect returns a copy of item with its references pointed at the
// active links. The item is returned unchanged when nothing moves.
func (oc overrideChains) redirect(item *ir.Item) *ir.Item {
	var out *ir.Item
	for i, ref := range item.Refs {
		if ref.Builtin {
			continue
		}
		t := oc.target(item, ref.Target)
		if t == ref.Target {
			continue
		}
		if out == nil {
			out = item.Clone()
		}
		out.Refs[i].Target = t
	}
	if out == nil {
		return item
	}
	return out
}
