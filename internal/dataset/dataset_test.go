package dataset

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSkipBOM(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"file with BOM", append([]byte{0xEF, 0xBB, 0xBF}, "ID;freq"...), "ID;freq"},
		{"file without BOM", []byte("ID;freq"), "ID;freq"},
		{"empty file", []byte{}, ""},
		{"only BOM", []byte{0xEF, 0xBB, 0xBF}, ""},
		{"partial BOM at start", []byte{0xEF, 0xBB, 'a'}, string([]byte{0xEF, 0xBB, 'a'})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(skipBOM(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestUTF8Validator(t *testing.T) {
	tests := []struct {
		name       string
		input      []byte
		expected   string
		wantOffset int64 // -1 for valid input
	}{
		{"valid ASCII", []byte("whole milk"), "whole milk", -1},
		{"valid multibyte", []byte("caffè,crème"), "caffè,crème", -1},
		{"empty input", []byte{}, "", -1},
		{"invalid byte", []byte{'m', 'i', 0x80, 'k'}, "mi", 2},
		{"latin-1 e acute", []byte("caf\xe9"), "caf", 3},
		{"truncated sequence at end", []byte{'a', 0xE2, 0x82}, "a", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(newUTF8Validator(skipBOM(bytes.NewReader(tt.input))))
			if string(got) != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}

			if tt.wantOffset < 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var invalid *InvalidUTF8Error
			if !errors.As(err, &invalid) {
				t.Fatalf("error = %v, want InvalidUTF8Error", err)
			}
			if invalid.Offset != tt.wantOffset {
				t.Errorf("offset = %d, want %d", invalid.Offset, tt.wantOffset)
			}
			if !errors.Is(err, ErrInvalidUTF8) {
				t.Error("error should match ErrInvalidUTF8")
			}
		})
	}
}

func TestUTF8Validator_SmallBuffer(t *testing.T) {
	// A one-byte buffer forces every multibyte rune through the pending path.
	v := newUTF8Validator(skipBOM(strings.NewReader("€uro")))
	var out []byte
	buf := make([]byte, 1)
	for {
		n, err := v.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if string(out) != "€uro" {
		t.Errorf("got %q, want %q", out, "€uro")
	}
}

func TestRead_Latin1Rejected(t *testing.T) {
	// café and cafî must not collapse into one product.
	_, err := Read(strings.NewReader("ID;concat\n1;caf\xe9\n2;caf\xee\n"), Options{})
	if err == nil {
		t.Fatal("Read() expected error for Latin-1 input")
	}
	if !errors.Is(err, ErrInvalidUTF8) {
		t.Errorf("error = %v, want ErrInvalidUTF8", err)
	}
	if want := "invalid csv: invalid UTF-8 at byte 15"; err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestRead_Latin1HeaderRejected(t *testing.T) {
	_, err := Read(strings.NewReader("ID;conc\xe0t\n1;milk\n"), Options{})
	if !errors.Is(err, ErrInvalidUTF8) {
		t.Fatalf("error = %v, want ErrInvalidUTF8", err)
	}
	if !strings.HasPrefix(err.Error(), "invalid csv: header:") {
		t.Errorf("error = %q, want invalid csv header error", err.Error())
	}
}

func TestWrapSource_CountsBytes(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, "ab;c"...)
	src := wrapSource(bytes.NewReader(input))
	got, err := io.ReadAll(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "ab;c" {
		t.Errorf("got %q", got)
	}
	if src.bytesRead != 4 {
		t.Errorf("bytesRead = %d, want 4", src.bytesRead)
	}
}

func TestNormalizeHeader(t *testing.T) {
	got := normalizeHeader([]string{"ID", "freq", "concat", "", "", "F1", "F1", "F1.1"})
	want := []string{"ID", "freq", "concat", "Unnamed: 3", "Unnamed: 4", "F1", "F1.1", "F1.1.1"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestIsMissing(t *testing.T) {
	for _, v := range []string{"", "NaN", "nan", "NA", "N/A", "null", "NULL", "None", "#N/A", "<NA>"} {
		if !IsMissing(v) {
			t.Errorf("IsMissing(%q) = false, want true", v)
		}
	}
	for _, v := range []string{" ", "whole milk", "0", "none", "Nan"} {
		if IsMissing(v) {
			t.Errorf("IsMissing(%q) = true, want false", v)
		}
	}
}

func TestRead_TrailingDelimiterArtifacts(t *testing.T) {
	input := "ID;freq;F1;F2;concat;;\n" +
		"1;2;whole milk;pastry;whole milk,pastry;;\n" +
		"2;1;rolls/buns;;rolls/buns\n"

	table, err := Read(strings.NewReader(input), Options{})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	wantCols := []string{"ID", "freq", "F1", "F2", "concat", "Unnamed: 5", "Unnamed: 6"}
	if table.NumColumns() != len(wantCols) {
		t.Fatalf("NumColumns() = %d, want %d (%v)", table.NumColumns(), len(wantCols), table.Columns)
	}
	for i, c := range wantCols {
		if table.Columns[i] != c {
			t.Errorf("column %d = %q, want %q", i, table.Columns[i], c)
		}
	}

	if table.NumRows() != 2 {
		t.Fatalf("NumRows() = %d, want 2", table.NumRows())
	}

	idx, ok := table.ColumnIndex("concat")
	if !ok {
		t.Fatal("concat column not found")
	}
	if got := table.Rows[0][idx]; got.Value != "whole milk,pastry" || got.Missing {
		t.Errorf("row 0 concat = %+v", got)
	}

	// Short row is padded with missing cells.
	if len(table.Rows[1]) != len(wantCols) {
		t.Fatalf("row 1 width = %d", len(table.Rows[1]))
	}
	if !table.Rows[1][3].Missing {
		t.Errorf("row 1 F2 should be missing: %+v", table.Rows[1][3])
	}
	if !table.Rows[1][6].Missing {
		t.Errorf("row 1 padding should be missing: %+v", table.Rows[1][6])
	}
}

func TestRead_ExtraEmptyFieldsTolerated(t *testing.T) {
	table, err := Read(strings.NewReader("ID;concat\n1;milk;;\n"), Options{})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(table.Rows[0]) != 2 {
		t.Errorf("row width = %d, want 2", len(table.Rows[0]))
	}
}

func TestRead_ExtraNonEmptyFieldsRejected(t *testing.T) {
	_, err := Read(strings.NewReader("ID;concat\n1;milk;bread\n"), Options{})
	if err == nil {
		t.Fatal("Read() expected error for row wider than header")
	}
	if !strings.Contains(err.Error(), "invalid csv") {
		t.Errorf("error = %v, want invalid csv", err)
	}
}

func TestRead_CustomDelimiter(t *testing.T) {
	table, err := Read(strings.NewReader("ID,concat\n1,\"milk, bread\"\n"), Options{Delimiter: ','})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got := table.Rows[0][1].Value; got != "milk, bread" {
		t.Errorf("concat = %q", got)
	}
}

func TestRead_EmptyFile(t *testing.T) {
	_, err := Read(strings.NewReader(""), Options{})
	if !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("Read() error = %v, want ErrEmptyFile", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "Groceries_dataset.csv"), Options{})
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error should match ErrNotFound: %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error should match fs.ErrNotExist: %v", err)
	}
}

func TestLoad_SetsSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Groceries_dataset.csv")
	if err := os.WriteFile(path, []byte("ID;concat\n1;milk\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if table.Source != path {
		t.Errorf("Source = %q, want %q", table.Source, path)
	}
	if table.BytesRead == 0 {
		t.Error("BytesRead should be > 0")
	}
}
