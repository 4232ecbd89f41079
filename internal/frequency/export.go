package frequency

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CSV header of the export file.
const (
	HeaderProduct  = "Product"
	HeaderRelative = "Relative Frequency"
)

// ContentType is the media type of the export.
const ContentType = "text/csv; charset=utf-8"

// FormatRelative renders a frequency in its shortest round-trip form.
func FormatRelative(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteCSV writes the full table, comma-delimited, with the
// "Product,Relative Frequency" header. Entries keep display order.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{HeaderProduct, HeaderRelative}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if t != nil {
		for _, e := range t.Entries {
			if err := cw.Write([]string{e.Product, FormatRelative(e.Relative)}); err != nil {
				return fmt.Errorf("write csv row %q: %w", e.Product, err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses an export produced by WriteCSV. Counts are not part of the
// export, so the returned entries carry only product and relative frequency.
func ReadCSV(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("invalid csv: empty export")
	}
	if err != nil {
		return nil, fmt.Errorf("invalid csv: header: %w", err)
	}
	if strings.TrimPrefix(header[0], "\ufeff") != HeaderProduct || header[1] != HeaderRelative {
		return nil, fmt.Errorf("invalid csv: unexpected header %q", header)
	}

	var entries []Entry
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}
		v, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q for product %q: %w", rec[1], rec[0], err)
		}
		entries = append(entries, Entry{Product: rec[0], Relative: v})
	}
	return entries, nil
}
