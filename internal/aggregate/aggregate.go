// Package aggregate flattens multi-day summaries into per-category totals.
package aggregate

import (
	"sort"

	"github.com/HerrChaos/obsidian-waka-box/internal/model"
)

// Aggregate walks the days of s in order and collects the entries of the
// selected dimension by name. A name seen again replaces the stored total
// (the latest day wins); new names are appended, so the result keeps
// first-seen order. Days without entries for dim contribute nothing.
func Aggregate(s *model.Summary, dim model.Dimension) []model.Item {
	if s == nil {
		return nil
	}
	var items []model.Item
	index := map[string]int{}
	for _, day := range s.Data {
		for _, c := range day.Of(dim) {
			if i, ok := index[c.Name]; ok {
				items[i].TotalSeconds = c.TotalSeconds
				continue
			}
			index[c.Name] = len(items)
			items = append(items, model.Item{Name: c.Name, TotalSeconds: c.TotalSeconds})
		}
	}
	return items
}

// Sorted returns a copy of items ordered by total descending. Equal totals
// keep their input order.
func Sorted(items []model.Item) []model.Item {
	out := append([]model.Item(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalSeconds > out[j].TotalSeconds
	})
	return out
}

// ForChart aggregates and sorts in one step.
func ForChart(s *model.Summary, dim model.Dimension) []model.Item {
	return Sorted(Aggregate(s, dim))
}

// Total sums the item totals.
func Total(items []model.Item) float64 {
	var sum float64
	for _, it := range items {
		sum += it.TotalSeconds
	}
	return sum
}
