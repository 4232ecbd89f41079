package extract

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/JonMunkholm/basketfreq/internal/dataset"
)

func mustTable(t *testing.T, header []string, rows ...[]string) *dataset.Table {
	t.Helper()
	table, err := dataset.NewTable("test", header, rows)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	return table
}

// wideHeader builds ID, freq, F1..F164 followed by extra.
func wideHeader(extra ...string) []string {
	h := []string{"ID", "freq"}
	for i := 1; i <= SlotCount; i++ {
		h = append(h, "F"+strconv.Itoa(i))
	}
	return append(h, extra...)
}

func TestSplitItems(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"milk, bread", []string{"milk", "bread"}},
		{"bread", []string{"bread"}},
		{" pastry ,salty snack,whole milk ", []string{"pastry", "salty snack", "whole milk"}},
		{"milk,,bread,", []string{"milk", "bread"}},
		{" , ", []string{}},
	}
	for _, tt := range tests {
		got := SplitItems(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitItems(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtract_ConcatDropsMissingRows(t *testing.T) {
	table := mustTable(t, []string{"ID", "concat"},
		[]string{"1", "milk, bread"},
		[]string{"2", "bread"},
		[]string{"3", "NaN"},
	)

	res, err := Extract(table)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Strategy != "marker" {
		t.Errorf("Strategy = %q, want marker", res.Strategy)
	}
	want := []string{"milk", "bread", "bread"}
	if !reflect.DeepEqual(res.Items, want) {
		t.Errorf("Items = %q, want %q", res.Items, want)
	}
	if res.Transactions != 2 {
		t.Errorf("Transactions = %d, want 2", res.Transactions)
	}
}

func TestExtract_Precedence(t *testing.T) {
	tests := []struct {
		name         string
		header       []string
		row          []string
		wantStrategy string
		wantColumns  []string
		wantItems    []string
	}{
		{
			name:         "double artifact beats everything",
			header:       []string{"ID", "F1", "concat", "concat;;"},
			row:          []string{"1", "slot", "plain", "artifact,two"},
			wantStrategy: "marker-artifact",
			wantColumns:  []string{"concat;;"},
			wantItems:    []string{"artifact", "two"},
		},
		{
			name:         "single artifact accepted",
			header:       []string{"ID", "F1", "concat;"},
			row:          []string{"1", "slot", "artifact"},
			wantStrategy: "marker-artifact",
			wantColumns:  []string{"concat;"},
			wantItems:    []string{"artifact"},
		},
		{
			name:         "marker beats slots",
			header:       []string{"ID", "F1", "F2", "concat"},
			row:          []string{"1", "slot a", "slot b", "whole milk,yogurt"},
			wantStrategy: "marker",
			wantColumns:  []string{"concat"},
			wantItems:    []string{"whole milk", "yogurt"},
		},
		{
			name:         "marker matched after trim and case fold",
			header:       []string{"ID", " Concat "},
			row:          []string{"1", "soda"},
			wantStrategy: "marker",
			wantColumns:  []string{" Concat "},
			wantItems:    []string{"soda"},
		},
		{
			name:         "slots when no list column",
			header:       []string{"ID", "freq", "F1", "F2", "F3"},
			row:          []string{"1", "2", "rolls/buns", "", "soda"},
			wantStrategy: "slots",
			wantColumns:  []string{"F1", "F2", "F3"},
			wantItems:    []string{"rolls/buns", "soda"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Extract(mustTable(t, tt.header, tt.row))
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if res.Strategy != tt.wantStrategy {
				t.Errorf("Strategy = %q, want %q", res.Strategy, tt.wantStrategy)
			}
			if !reflect.DeepEqual(res.Columns, tt.wantColumns) {
				t.Errorf("Columns = %q, want %q", res.Columns, tt.wantColumns)
			}
			if !reflect.DeepEqual(res.Items, tt.wantItems) {
				t.Errorf("Items = %q, want %q", res.Items, tt.wantItems)
			}
		})
	}
}

func TestExtract_PositionalFallback(t *testing.T) {
	// The list column lost its name; the header has more than 166 columns.
	header := wideHeader("items", "")
	row := make([]string, len(header))
	row[0] = "1"
	row[2] = "ignored slot"
	row[PositionalIndex] = "citrus fruit, margarine"

	res, err := Extract(mustTable(t, header, row))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Strategy != "positional" {
		t.Fatalf("Strategy = %q, want positional", res.Strategy)
	}
	if !reflect.DeepEqual(res.Columns, []string{"items"}) {
		t.Errorf("Columns = %q", res.Columns)
	}
	if !reflect.DeepEqual(res.Items, []string{"citrus fruit", "margarine"}) {
		t.Errorf("Items = %q", res.Items)
	}
}

func TestExtract_SlotsInColumnOrder(t *testing.T) {
	// Exactly ID, freq, F1..F164: not wide enough for the positional strategy.
	header := wideHeader()
	rowA := make([]string, len(header))
	rowA[0], rowA[2], rowA[3], rowA[4] = "1", "tropical fruit", "NA", "yogurt"
	rowB := make([]string, len(header))
	rowB[0], rowB[len(header)-1] = "2", "coffee"
	rowC := make([]string, len(header))
	rowC[0] = "3"

	res, err := Extract(mustTable(t, header, rowA, rowB, rowC))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Strategy != "slots" {
		t.Fatalf("Strategy = %q, want slots", res.Strategy)
	}
	if len(res.Columns) != SlotCount {
		t.Errorf("len(Columns) = %d, want %d", len(res.Columns), SlotCount)
	}
	want := []string{"tropical fruit", "yogurt", "coffee"}
	if !reflect.DeepEqual(res.Items, want) {
		t.Errorf("Items = %q, want %q", res.Items, want)
	}
	if res.Transactions != 2 {
		t.Errorf("Transactions = %d, want 2", res.Transactions)
	}
}

func TestExtract_SlotValuesTrimmed(t *testing.T) {
	header := wideHeader()
	row := make([]string, len(header))
	row[0], row[2], row[3], row[4] = "1", "  whole milk ", "   ", "whole milk"

	res, err := Extract(mustTable(t, header, row))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	want := []string{"whole milk", "whole milk"}
	if !reflect.DeepEqual(res.Items, want) {
		t.Errorf("Items = %q, want %q", res.Items, want)
	}
	if res.Transactions != 1 {
		t.Errorf("Transactions = %d, want 1", res.Transactions)
	}
}

func TestExtract_NoItemData(t *testing.T) {
	_, err := Extract(mustTable(t, []string{"ID", "freq"}, []string{"1", "2"}))
	if !errors.Is(err, ErrNoItemData) {
		t.Fatalf("Extract() error = %v, want ErrNoItemData", err)
	}
	if !strings.Contains(err.Error(), "no item data") {
		t.Errorf("error text = %q", err.Error())
	}

	if _, err := Extract(nil); !errors.Is(err, ErrNoItemData) {
		t.Errorf("Extract(nil) error = %v, want ErrNoItemData", err)
	}
}

func TestExtract_MatchedColumnWithoutItems(t *testing.T) {
	res, err := Extract(mustTable(t, []string{"ID", "concat"}, []string{"1", ""}, []string{"2", " , "}))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(res.Items) != 0 {
		t.Errorf("Items = %q, want empty", res.Items)
	}
}

func TestStrategies_Order(t *testing.T) {
	want := []string{"marker-artifact", "marker", "positional", "slots"}
	if got := Strategies(); !reflect.DeepEqual(got, want) {
		t.Errorf("Strategies() = %q, want %q", got, want)
	}
}

type stubStrategy struct {
	name    string
	matches bool
	called  *int
}

func (s stubStrategy) Name() string { return s.name }

func (s stubStrategy) Match(*dataset.Table) ([]int, bool) {
	*s.called++
	return []int{0}, s.matches
}

func (s stubStrategy) Flatten(*dataset.Table, []int) ([]string, int) {
	return []string{s.name}, 1
}

func TestExtractWith_ShortCircuits(t *testing.T) {
	var first, second, third int
	res, err := ExtractWith(mustTable(t, []string{"x"}, []string{"1"}), []Strategy{
		stubStrategy{name: "a", called: &first},
		stubStrategy{name: "b", matches: true, called: &second},
		stubStrategy{name: "c", matches: true, called: &third},
	})
	if err != nil {
		t.Fatalf("ExtractWith() error = %v", err)
	}
	if res.Strategy != "b" {
		t.Errorf("Strategy = %q, want b", res.Strategy)
	}
	if first != 1 || second != 1 || third != 0 {
		t.Errorf("match calls = %d/%d/%d, want 1/1/0", first, second, third)
	}
}
