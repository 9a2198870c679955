package ir

import (
	"sort"
	"strconv"
	"strings"
)

// Edit replaces a range of an item's text.
type Edit struct {
	Range Range
	Text  string
}

// ApplyEdits splices edits into text. Edits that start inside an earlier
// edit's range are dropped, so removing an attribute also drops the
// reference rewrites inside it.
func ApplyEdits(text string, edits []Edit) string {
	sort.SliceStable(edits, func(i, j int) bool {
		if edits[i].Range.Start != edits[j].Range.Start {
			return edits[i].Range.Start < edits[j].Range.Start
		}
		return edits[i].Range.End > edits[j].Range.End
	})

	var sb strings.Builder
	sb.Grow(len(text))
	cursor := 0
	for _, e := range edits {
		if e.Range.Start < cursor || e.Range.End > len(text) {
			continue
		}
		sb.WriteString(text[cursor:e.Range.Start])
		sb.WriteString(e.Text)
		cursor = e.Range.End
	}
	sb.WriteString(text[cursor:])
	return sb.String()
}

// Render produces the final text of an item: the declared name becomes the
// item's symbol, resolved references become their targets' symbols, auto
// bindings get their assigned numbers and demoted entry attributes vanish.
// References whose target has no symbol are left as written.
func Render(it *Item, symbols map[Name]string) string {
	edits := make([]Edit, 0, len(it.Refs)+4)
	if !it.NameRange.Empty() && it.Symbol != "" {
		edits = append(edits, Edit{Range: it.NameRange, Text: it.Symbol})
	}
	for _, r := range it.StripRanges {
		edits = append(edits, Edit{Range: r})
	}
	if it.Demoted {
		for _, r := range it.EntryRanges {
			edits = append(edits, Edit{Range: r})
		}
	}
	for _, ref := range it.Refs {
		if ref.Builtin {
			continue
		}
		if sym, ok := symbols[ref.Target]; ok {
			edits = append(edits, Edit{Range: ref.Range, Text: sym})
		}
	}
	if b := it.Binding; b != nil && b.Auto && b.Binding >= 0 {
		edits = append(edits, Edit{Range: b.ValueRange, Text: strconv.Itoa(b.Binding)})
	}
	return ApplyEdits(it.Text, edits)
}
