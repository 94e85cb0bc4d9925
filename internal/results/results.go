// Package results presents a FilterResult as three category views and saves
// exported reports to disk.
package results

import (
	"fmt"
	"iter"

	"github.com/mkguldan/speakerfilter/internal/backend"
)

// Categories lists the views in display order.
var Categories = []backend.Category{backend.Confirmed, backend.Intended, backend.Endorsed}

// View yields the records of category c in arrival order, with 1-based
// positions. The sequence is restartable and never mutates r.
func View(r *backend.FilterResult, c backend.Category) iter.Seq2[int, backend.Speaker] {
	return func(yield func(int, backend.Speaker) bool) {
		if r == nil {
			return
		}
		for i, s := range r.Speakers(c) {
			if !yield(i+1, s) {
				return
			}
		}
	}
}

// Len returns the number of records in category c.
func Len(r *backend.FilterResult, c backend.Category) int {
	if r == nil {
		return 0
	}
	return len(r.Speakers(c))
}

// At returns the record at zero-based index i of category c.
func At(r *backend.FilterResult, c backend.Category, i int) (backend.Speaker, bool) {
	if r == nil {
		return backend.Speaker{}, false
	}
	list := r.Speakers(c)
	if i < 0 || i >= len(list) {
		return backend.Speaker{}, false
	}
	return list[i], true
}

// TabLabel returns e.g. "Confirmed (2)".
func TabLabel(r *backend.FilterResult, c backend.Category) string {
	n := 0
	if r != nil {
		n = r.Count(c)
	}
	return fmt.Sprintf("%s (%d)", c.Title(), n)
}

// SummaryLabels returns the aggregate chips: total first, then each category.
func SummaryLabels(r *backend.FilterResult) []string {
	if r == nil {
		return nil
	}
	labels := []string{fmt.Sprintf("Total: %d", r.Summary.TotalCount)}
	for _, c := range Categories {
		labels = append(labels, fmt.Sprintf("%s: %d", c.Title(), r.Count(c)))
	}
	return labels
}

// EmptyMessage is shown for a category with no records.
func EmptyMessage(c backend.Category) string {
	return fmt.Sprintf("No %s speakers found", c)
}
