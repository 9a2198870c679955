// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package compose

import (
	"encoding/base32"
	"regexp"
	"strings"

	"github.com/gogpu/oil/ir"
)

const (
	modulePrefix   = "_oil_mod_"
	overridePrefix = "_oil_vrt_"
	itemSeparator  = "_m_"
)

// moduleEncoding keeps module names identifier-safe: the alphabet is A-Z
// and 2-7, so it never contains the '_' separators.
var moduleEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Decorate returns the emitted symbol of item in module.
func Decorate(module, item string) string {
	return modulePrefix + moduleEncoding.EncodeToString([]byte(module)) + itemSeparator + item
}

// DecorateOverride returns the emitted symbol of the override of base
// declared in module.
func DecorateOverride(module string, base ir.Name) string {
	return overridePrefix +
		moduleEncoding.EncodeToString([]byte(module)) + "_" +
		moduleEncoding.EncodeToString([]byte(base.Module)) + itemSeparator + base.Item
}

var (
	moduleSymbol   = regexp.MustCompile(`_oil_mod_([A-Z2-7]+)_m_([A-Za-z0-9_]+)`)
	overrideSymbol = regexp.MustCompile(`_oil_vrt_([A-Z2-7]+)_([A-Z2-7]+)_m_([A-Za-z0-9_]+)`)
)

// Undecorate rewrites decorated symbols in text back to readable names:
// module::item for items and base::item@module for overrides. Use it on
// validator and downstream compiler messages.
func Undecorate(text string) string {
	text = overrideSymbol.ReplaceAllStringFunc(text, func(sym string) string {
		m := overrideSymbol.FindStringSubmatch(sym)
		decl, ok1 := decodeModule(m[1])
		base, ok2 := decodeModule(m[2])
		if !ok1 || !ok2 {
			return sym
		}
		return base + "::" + m[3] + "@" + decl
	})
	return moduleSymbol.ReplaceAllStringFunc(text, func(sym string) string {
		m := moduleSymbol.FindStringSubmatch(sym)
		module, ok := decodeModule(m[1])
		if !ok {
			return sym
		}
		return module + "::" + m[2]
	})
}

func decodeModule(s string) (string, bool) {
	b, err := moduleEncoding.DecodeString(s)
	if err != nil {
		return "", false
	}
	return string(b), true
}

// containsDecoration reports whether source already uses the reserved
// symbol prefixes.
func containsDecoration(source string) bool {
	return strings.Contains(source, modulePrefix) || strings.Contains(source, overridePrefix)
}
