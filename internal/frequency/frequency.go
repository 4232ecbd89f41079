// Package frequency turns an occurrence list into a relative-frequency table.
package frequency

import (
	"errors"
	"sort"
)

// DefaultTopN is the number of products shown in the ranked chart.
const DefaultTopN = 20

// ErrEmpty is returned by operations that need at least one product.
var ErrEmpty = errors.New("no frequency data: the occurrence list is empty")

// Entry is one product's share of all item occurrences.
type Entry struct {
	Product  string  `json:"product"`
	Count    int     `json:"count"`
	Relative float64 `json:"relative_frequency"`
}

// Table is the frequency table in display order: descending relative
// frequency, ties broken by product name.
type Table struct {
	Entries []Entry `json:"entries"`

	// Total is the number of item occurrences the table was computed from.
	Total int `json:"total"`
}

// Compute counts each distinct item and divides by the total occurrence count.
// An empty list yields an empty table.
func Compute(items []string) *Table {
	counts := make(map[string]int)
	for _, item := range items {
		counts[item]++
	}
	return fromCounts(counts)
}

// fromCounts builds the table from counts. Non-positive counts are ignored.
func fromCounts(counts map[string]int) *Table {
	total := 0
	for _, c := range counts {
		if c > 0 {
			total += c
		}
	}

	t := &Table{Total: total, Entries: make([]Entry, 0, len(counts))}
	if total == 0 {
		return t
	}

	for product, c := range counts {
		if c <= 0 {
			continue
		}
		t.Entries = append(t.Entries, Entry{
			Product:  product,
			Count:    c,
			Relative: float64(c) / float64(total),
		})
	}
	sortEntries(t.Entries)
	return t
}

// sortEntries orders entries by descending relative frequency, then by product name.
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Relative != entries[j].Relative {
			return entries[i].Relative > entries[j].Relative
		}
		return entries[i].Product < entries[j].Product
	})
}

// Empty reports whether the table has no products.
func (t *Table) Empty() bool {
	return t == nil || len(t.Entries) == 0
}

// Len returns the number of distinct products.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Entries)
}

// Top returns the first n entries in display order. n <= 0 means DefaultTopN.
func (t *Table) Top(n int) []Entry {
	if t.Empty() {
		return nil
	}
	if n <= 0 {
		n = DefaultTopN
	}
	if n > len(t.Entries) {
		n = len(t.Entries)
	}
	return t.Entries[:n]
}
