package ir

import (
	"github.com/gogpu/oil/diag"
)

// ItemRegistry collects the items of a merged build. Each qualified name
// is admitted once; a second, different item with the same name is a
// DuplicateDefinition.
type ItemRegistry struct {
	items   []*Item
	byName  map[Name]int
	symbols map[string]Name
}

// NewItemRegistry creates an empty registry.
func NewItemRegistry() *ItemRegistry {
	return &ItemRegistry{
		items:   make([]*Item, 0, 32),
		byName:  make(map[Name]int, 32),
		symbols: make(map[string]Name, 32),
	}
}

// GetOrAdd admits it unless an item with the same name is present.
// It reports whether it was newly added.
func (r *ItemRegistry) GetOrAdd(it *Item) (*Item, bool, error) {
	if i, exists := r.byName[it.Name]; exists {
		prev := r.items[i]
		if prev.Text != it.Text {
			return nil, false, diag.Errorf(diag.KindDuplicateDefinition,
				"%s is defined twice in one build", it.Name).At(it.Span, "")
		}
		return prev, false, nil
	}
	if it.Kind != ItemAssert {
		if owner, clash := r.symbols[it.Symbol]; clash {
			return nil, false, diag.Errorf(diag.KindDuplicateDefinition,
				"%s and %s both emit symbol %q", owner, it.Name, it.Symbol).At(it.Span, "")
		}
		r.symbols[it.Symbol] = it.Name
	}
	r.byName[it.Name] = len(r.items)
	r.items = append(r.items, it)
	return it, true, nil
}

// Contains reports whether name has been admitted.
func (r *ItemRegistry) Contains(name Name) bool {
	_, ok := r.byName[name]
	return ok
}

// Lookup finds an admitted item.
func (r *ItemRegistry) Lookup(name Name) (*Item, bool) {
	i, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.items[i], true
}

// Items returns the admitted items in admission order.
func (r *ItemRegistry) Items() []*Item {
	return r.items
}

// Count returns the number of admitted items.
func (r *ItemRegistry) Count() int {
	return len(r.items)
}
