// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"
	"strings"

	"github.com/gogpu/oil/ir"
)

// Write renders a composed module as GLSL source: the #version line when
// the module carries one, then deduplicated directives, then the items.
func Write(m *ir.Module) (string, error) {
	if m == nil {
		return "", fmt.Errorf("glsl: module is nil")
	}
	if m.Language != ir.LanguageGLSL {
		return "", fmt.Errorf("glsl: cannot write %s module %q", m.Language, m.Name)
	}

	var sb strings.Builder
	if m.Version != 0 {
		fmt.Fprintf(&sb, "#version %d\n", m.Version)
	}
	seen := make(map[string]struct{}, len(m.Directives))
	for _, line := range m.Directives {
		line = strings.TrimSpace(line)
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	symbols := m.Symbols()
	for i, it := range m.Items {
		if i > 0 || sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(strings.TrimSpace(ir.Render(it, symbols)))
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}
