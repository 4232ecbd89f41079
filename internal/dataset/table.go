// Package dataset loads the semicolon-delimited transaction file into an
// in-memory Table.
//
// The file's schema is not trusted: the header may carry trailing delimiters
// (yielding unnamed columns), names may repeat, and rows may be shorter than
// the header. Table normalizes all of that so the item extractor can look
// columns up by name or position.
package dataset

import (
	"fmt"
	"strconv"
)

// Cell is one field of a transaction row.
// Missing is set for empty fields and the usual NA spellings.
type Cell struct {
	Value   string
	Missing bool
}

// Table is the raw transaction table: one row per purchase record.
type Table struct {
	// Source is the path or name the table was read from.
	Source string

	// Columns are the normalized header names, unique within the table.
	Columns []string

	// Rows are padded to len(Columns).
	Rows [][]Cell

	// BytesRead is the size of the decoded input.
	BytesRead int64

	index map[string]int
}

// NewTable builds a table from a header and raw string rows.
// Header names are normalized the same way Read does; missing values are
// detected with IsMissing. Rows longer than the header are rejected.
func NewTable(source string, header []string, records [][]string) (*Table, error) {
	t := &Table{
		Source:  source,
		Columns: normalizeHeader(header),
		Rows:    make([][]Cell, 0, len(records)),
	}
	t.buildIndex()

	for i, rec := range records {
		row, err := t.makeRow(rec)
		if err != nil {
			return nil, fmt.Errorf("invalid csv: row %d: %w", i+1, err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.Columns) }

// NumRows returns the number of transaction rows.
func (t *Table) NumRows() int { return len(t.Rows) }

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	if t.index == nil {
		t.buildIndex()
	}
	i, ok := t.index[name]
	return i, ok
}

func (t *Table) buildIndex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, name := range t.Columns {
		t.index[name] = i
	}
}

// makeRow converts a record to cells, padding short records with missing
// cells. Extra trailing fields are tolerated only when they are all empty,
// which is what a stray trailing delimiter produces.
func (t *Table) makeRow(rec []string) ([]Cell, error) {
	width := len(t.Columns)
	if len(rec) > width {
		for _, extra := range rec[width:] {
			if extra != "" {
				return nil, fmt.Errorf("expected %d fields, saw %d", width, len(rec))
			}
		}
		rec = rec[:width]
	}

	row := make([]Cell, width)
	for i := range row {
		if i >= len(rec) {
			row[i] = Cell{Missing: true}
			continue
		}
		row[i] = Cell{Value: rec[i], Missing: IsMissing(rec[i])}
	}
	return row, nil
}

// normalizeHeader gives every column a unique, non-empty name.
// Blank names become "Unnamed: <index>"; repeats get ".1", ".2", ... appended.
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	taken := make(map[string]bool, len(header))

	for i, name := range header {
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		candidate := name
		for taken[candidate] {
			seen[name]++
			candidate = name + "." + strconv.Itoa(seen[name])
		}
		taken[candidate] = true
		out[i] = candidate
	}
	return out
}

// naTokens are the field values treated as missing, besides the empty string.
var naTokens = map[string]bool{
	"#N/A": true, "#N/A N/A": true, "#NA": true,
	"-1.#IND": true, "-1.#QNAN": true, "1.#IND": true, "1.#QNAN": true,
	"-NaN": true, "-nan": true, "NaN": true, "nan": true,
	"<NA>": true, "N/A": true, "n/a": true, "NA": true,
	"NULL": true, "null": true, "None": true,
}

// IsMissing reports whether a raw field value counts as a missing value.
func IsMissing(v string) bool {
	return v == "" || naTokens[v]
}
