package wgsl

import (
	"fmt"
	"strings"

	"github.com/gogpu/oil/ir"
)

// Write renders a composed module as WGSL source. Global directives come
// first, deduplicated, followed by the items in module order.
func Write(m *ir.Module) (string, error) {
	if m == nil {
		return "", fmt.Errorf("wgsl: module is nil")
	}
	if m.Language != ir.LanguageWGSL {
		return "", fmt.Errorf("wgsl: cannot write %s module %q", m.Language, m.Name)
	}

	w := &writer{symbols: m.Symbols()}
	w.directives(m.Directives)
	for _, it := range m.Items {
		w.item(it)
	}
	return w.out.String(), nil
}

type writer struct {
	out     strings.Builder
	symbols map[ir.Name]string
	started bool
}

func (w *writer) directives(lines []string) {
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		w.out.WriteString(line)
		w.out.WriteByte('\n')
		w.started = true
	}
}

func (w *writer) item(it *ir.Item) {
	if w.started {
		w.out.WriteByte('\n')
	}
	w.started = true
	w.out.WriteString(strings.TrimSpace(ir.Render(it, w.symbols)))
	w.out.WriteByte('\n')
}
