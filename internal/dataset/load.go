package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// DefaultDelimiter separates fields in the grocery dataset.
const DefaultDelimiter = ';'

// ErrEmptyFile is returned when the input has no header row.
var ErrEmptyFile = errors.New("empty file: dataset has no header row")

// ErrNotFound is returned (wrapped with fs.ErrNotExist) when the dataset path does not exist.
var ErrNotFound = errors.New("dataset not found")

// Options controls how the file is parsed.
type Options struct {
	// Delimiter is the field separator. Zero means DefaultDelimiter.
	Delimiter rune
}

func (o Options) delimiter() rune {
	if o.Delimiter == 0 {
		return DefaultDelimiter
	}
	return o.Delimiter
}

// Load opens path and reads it as a transaction table.
// A missing file yields an error matching both ErrNotFound and fs.ErrNotExist.
func Load(path string, opts Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, path, err)
		}
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer f.Close()

	t, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	t.Source = path
	return t, nil
}

// Read parses a delimited stream into a Table. The first record is the header.
func Read(r io.Reader, opts Options) (*Table, error) {
	src := wrapSource(r)

	cr := csv.NewReader(src)
	cr.Comma = opts.delimiter()
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("invalid csv: header: %w", err)
	}

	var records [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}
		records = append(records, rec)
	}

	t, err := NewTable("", header, records)
	if err != nil {
		return nil, err
	}
	t.BytesRead = src.bytesRead
	return t, nil
}
