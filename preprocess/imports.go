// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package preprocess

import (
	"fmt"
	"strings"

	"github.com/gogpu/oil/diag"
)

// ImportDecl is one #import or #from directive.
type ImportDecl struct {
	// Path is the imported module's name.
	Path string
	// Alias is the "as" name of a whole-module import.
	Alias string
	// Items lists the names of a #from import; nil for #import.
	Items []string
	Span  diag.Span
}

// Name returns the qualifier the importing module uses for this import.
func (d ImportDecl) Name() string {
	if d.Alias != "" {
		return d.Alias
	}
	return d.Path
}

// Partial reports whether this is a #from import.
func (d ImportDecl) Partial() bool {
	return d.Items != nil
}

// String renders the directive back in source form.
func (d ImportDecl) String() string {
	switch {
	case d.Partial():
		return fmt.Sprintf("#from %s import %s", d.Path, strings.Join(d.Items, ", "))
	case d.Alias != "":
		return fmt.Sprintf("#import %s as %s", d.Path, d.Alias)
	default:
		return "#import " + d.Path
	}
}

// parseModulePath reads a path such as "bevy_pbr::mesh_view_types".
func parseModulePath(s string) (path, rest string, ok bool) {
	s = strings.TrimLeft(s, " \t")
	var sb strings.Builder
	for {
		ident, r := splitIdent(s)
		if ident == "" {
			return "", s, false
		}
		sb.WriteString(ident)
		if !strings.HasPrefix(r, "::") {
			return sb.String(), r, true
		}
		sb.WriteString("::")
		s = r[2:]
	}
}

// parseImport handles the argument of "#import path [as alias]".
func parseImport(arg string) (ImportDecl, error) {
	path, rest, ok := parseModulePath(arg)
	if !ok {
		return ImportDecl{}, fmt.Errorf("expected module path after #import, found %q", arg)
	}
	decl := ImportDecl{Path: path}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return decl, nil
	}
	kw, r := splitIdent(rest)
	if kw != "as" {
		return ImportDecl{}, fmt.Errorf("unexpected %q after import path", rest)
	}
	alias, r := splitIdent(r)
	if alias == "" || strings.TrimSpace(r) != "" {
		return ImportDecl{}, fmt.Errorf("expected a single alias identifier after 'as'")
	}
	decl.Alias = alias
	return decl, nil
}

// parseFrom handles the argument of "#from path import a, b".
func parseFrom(arg string) (ImportDecl, error) {
	path, rest, ok := parseModulePath(arg)
	if !ok {
		return ImportDecl{}, fmt.Errorf("expected module path after #from, found %q", arg)
	}
	kw, rest := splitIdent(rest)
	if kw != "import" {
		return ImportDecl{}, fmt.Errorf("expected 'import' after #from %s", path)
	}
	decl := ImportDecl{Path: path, Items: []string{}}
	seen := make(map[string]bool)
	for _, field := range strings.Split(rest, ",") {
		item, r := splitIdent(field)
		if item == "" || strings.TrimSpace(r) != "" {
			return ImportDecl{}, fmt.Errorf("invalid item %q in #from %s", strings.TrimSpace(field), path)
		}
		if !seen[item] {
			seen[item] = true
			decl.Items = append(decl.Items, item)
		}
	}
	return decl, nil
}
