// Package extract finds the item data in a transaction table and flattens it
// into an occurrence list: one entry per (transaction, item) pair.
//
// The dataset's schema is unreliable, so the item column is located by an
// ordered list of named strategies. The first strategy that matches wins and
// the rest are never consulted.
//
// Items are trimmed of surrounding whitespace whichever strategy wins, and
// items that are empty after trimming are dropped. This holds for slot cells
// as well as for the pieces of a concatenated list.
package extract

import (
	"errors"
	"strconv"
	"strings"

	"github.com/JonMunkholm/basketfreq/internal/dataset"
)

// Layout constants of the grocery dataset: ID, freq, F1..F164, concat.
const (
	// MarkerColumn is the name of the concatenated item-list column.
	MarkerColumn = "concat"

	// SlotCount is the number of positional item-slot columns F1..F164.
	SlotCount = 164

	// PositionalIndex is where the item-list column sits when the header is
	// intact: ID, freq and the 164 slots come first.
	PositionalIndex = 2 + SlotCount

	// ItemSeparator splits a concatenated item list.
	ItemSeparator = ","
)

// ErrNoItemData is returned when no strategy locates an item column.
var ErrNoItemData = errors.New("no item data found: no concat column and no item slot columns")

// Result is the flattened item data of one table.
type Result struct {
	// Strategy is the name of the strategy that matched.
	Strategy string

	// Columns are the table columns the items were read from.
	Columns []string

	// Items is the occurrence list, in row order.
	Items []string

	// Transactions is the number of rows that contributed at least one item.
	Transactions int
}

// Strategy locates item columns in a table and flattens them.
type Strategy interface {
	// Name identifies the strategy in logs, metrics and the run history.
	Name() string

	// Match returns the columns this strategy would read, or false.
	Match(t *dataset.Table) ([]int, bool)

	// Flatten appends the items found in cols to a new occurrence list.
	Flatten(t *dataset.Table, cols []int) (items []string, transactions int)
}

// DefaultStrategies returns the detection order used by Extract.
func DefaultStrategies() []Strategy {
	return []Strategy{
		namedColumn{name: "marker-artifact", match: artifactNames},
		namedColumn{name: "marker", match: normalizedMarker},
		positional{index: PositionalIndex},
		slots{count: SlotCount},
	}
}

// Strategies returns the names of the default strategies, in order.
func Strategies() []string {
	defs := DefaultStrategies()
	names := make([]string, len(defs))
	for i, s := range defs {
		names[i] = s.Name()
	}
	return names
}

// Extract runs the default strategies against t.
func Extract(t *dataset.Table) (*Result, error) {
	return ExtractWith(t, DefaultStrategies())
}

// ExtractWith tries each strategy in order and flattens with the first match.
// It returns ErrNoItemData when none matches.
func ExtractWith(t *dataset.Table, strategies []Strategy) (*Result, error) {
	if t == nil {
		return nil, ErrNoItemData
	}

	for _, s := range strategies {
		cols, ok := s.Match(t)
		if !ok {
			continue
		}

		items, tx := s.Flatten(t, cols)
		names := make([]string, len(cols))
		for i, c := range cols {
			names[i] = t.Columns[c]
		}
		return &Result{
			Strategy:     s.Name(),
			Columns:      names,
			Items:        items,
			Transactions: tx,
		}, nil
	}

	return nil, ErrNoItemData
}

// SplitItems splits a concatenated cell into trimmed, non-empty item names.
func SplitItems(cell string) []string {
	parts := strings.Split(cell, ItemSeparator)
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			items = append(items, p)
		}
	}
	return items
}

// flattenList reads one concatenated column, skipping missing cells.
func flattenList(t *dataset.Table, col int) ([]string, int) {
	var items []string
	tx := 0
	for _, row := range t.Rows {
		cell := row[col]
		if cell.Missing {
			continue
		}
		pieces := SplitItems(cell.Value)
		if len(pieces) == 0 {
			continue
		}
		items = append(items, pieces...)
		tx++
	}
	return items, tx
}

// artifactNames are the literal names a trailing delimiter can leave on the
// marker column. One or two stray delimiters are equally plausible.
var artifactNames = []string{MarkerColumn + ";;", MarkerColumn + ";"}

// normalizedMarker is the corrected marker name; headers are also compared
// after trimming and case folding.
var normalizedMarker = []string{MarkerColumn}

// namedColumn matches the first column whose name is in match.
type namedColumn struct {
	name  string
	match []string
}

func (s namedColumn) Name() string { return s.name }

func (s namedColumn) Match(t *dataset.Table) ([]int, bool) {
	for _, want := range s.match {
		if i, ok := t.ColumnIndex(want); ok {
			return []int{i}, true
		}
	}
	for i, col := range t.Columns {
		folded := strings.ToLower(strings.TrimSpace(col))
		for _, want := range s.match {
			if folded == want {
				return []int{i}, true
			}
		}
	}
	return nil, false
}

func (s namedColumn) Flatten(t *dataset.Table, cols []int) ([]string, int) {
	return flattenList(t, cols[0])
}

// positional picks the column at a fixed index when the table is wide enough.
type positional struct {
	index int
}

func (positional) Name() string { return "positional" }

func (s positional) Match(t *dataset.Table) ([]int, bool) {
	if t.NumColumns() > s.index {
		return []int{s.index}, true
	}
	return nil, false
}

func (positional) Flatten(t *dataset.Table, cols []int) ([]string, int) {
	return flattenList(t, cols[0])
}

// slots reads the wide-format F1..Fn columns that are present. Each
// non-missing cell is trimmed and kept only if something remains.
type slots struct {
	count int
}

func (slots) Name() string { return "slots" }

func (s slots) Match(t *dataset.Table) ([]int, bool) {
	var cols []int
	for i := 1; i <= s.count; i++ {
		if idx, ok := t.ColumnIndex("F" + strconv.Itoa(i)); ok {
			cols = append(cols, idx)
		}
	}
	return cols, len(cols) > 0
}

func (slots) Flatten(t *dataset.Table, cols []int) ([]string, int) {
	var items []string
	tx := 0
	for _, row := range t.Rows {
		n := len(items)
		for _, c := range cols {
			cell := row[c]
			if cell.Missing {
				continue
			}
			if v := strings.TrimSpace(cell.Value); v != "" {
				items = append(items, v)
			}
		}
		if len(items) > n {
			tx++
		}
	}
	return items, tx
}
