// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package prune removes items of a composed module that no entry point
// can reach.
package prune

import (
	"github.com/gogpu/oil/ir"
)

// Module returns m without the items unreachable from its entry points.
// Assertions are kept when every item they refer to is kept. A module
// without entry points is returned unchanged.
func Module(m *ir.Module) *ir.Module {
	entries := m.EntryPoints()
	if len(entries) == 0 {
		return m
	}

	byName := make(map[ir.Name]*ir.Item, len(m.Items))
	for _, it := range m.Items {
		byName[it.Name] = it
	}

	live := make(map[ir.Name]bool, len(m.Items))
	queue := append([]*ir.Item(nil), entries...)
	for _, it := range entries {
		live[it.Name] = true
	}
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		for _, ref := range it.Refs {
			if ref.Builtin || live[ref.Target] {
				continue
			}
			target, ok := byName[ref.Target]
			if !ok {
				continue
			}
			live[ref.Target] = true
			queue = append(queue, target)
		}
	}

	out := *m
	out.Items = make([]*ir.Item, 0, len(live))
	for _, it := range m.Items {
		if live[it.Name] || (it.Kind == ir.ItemAssert && assertLive(it, live)) {
			out.Items = append(out.Items, it)
		}
	}
	return &out
}

func assertLive(it *ir.Item, live map[ir.Name]bool) bool {
	for _, ref := range it.Refs {
		if !ref.Builtin && !live[ref.Target] {
			return false
		}
	}
	return true
}
