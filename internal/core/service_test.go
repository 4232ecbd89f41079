package core

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/basketfreq/internal/dataset"
	"github.com/JonMunkholm/basketfreq/internal/extract"
	"github.com/JonMunkholm/basketfreq/internal/frequency"
	"github.com/JonMunkholm/basketfreq/internal/history"
)

const milkBread = "Member_number;Date;concat\n" +
	"1;01-01-2015;milk, bread\n" +
	"2;02-01-2015;bread\n" +
	"3;03-01-2015;NaN\n"

func writeDataset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Groceries_dataset.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newTestService(t *testing.T, path string, store history.Store) *Service {
	t.Helper()
	svc, err := NewService(Options{DatasetPath: path, History: store})
	require.NoError(t, err)
	return svc
}

func TestNewService_RequiresPath(t *testing.T) {
	_, err := NewService(Options{})
	assert.Error(t, err)
}

func TestNewService_Defaults(t *testing.T) {
	svc := newTestService(t, "x.csv", nil)
	assert.Equal(t, frequency.DefaultTopN, svc.TopN())
	assert.False(t, svc.HistoryEnabled())
	assert.Equal(t, "x.csv", svc.DatasetPath())
}

func TestAnalyze_MilkBread(t *testing.T) {
	svc := newTestService(t, writeDataset(t, milkBread), nil)

	a, err := svc.Analyze(context.Background())
	require.NoError(t, err)

	assert.False(t, a.Empty())
	assert.Empty(t, a.Warning())
	assert.Equal(t, 3, a.Rows)
	assert.Equal(t, "marker", a.Extraction.Strategy)
	assert.Equal(t, []string{"concat"}, a.Extraction.Columns)
	assert.Equal(t, []string{"milk", "bread", "bread"}, a.Extraction.Items)
	assert.NotEmpty(t, a.RunID)
	assert.False(t, a.Recorded)

	top := a.Top()
	require.Len(t, top, 2)
	assert.Equal(t, "bread", top[0].Product)
	assert.Equal(t, 2, top[0].Count)
	assert.InDelta(t, 2.0/3.0, top[0].Relative, 1e-9)
	assert.Equal(t, "milk", top[1].Product)
	assert.InDelta(t, 1.0/3.0, top[1].Relative, 1e-9)
}

func TestAnalyze_RecomputesEveryCall(t *testing.T) {
	path := writeDataset(t, milkBread)
	svc := newTestService(t, path, nil)

	first, err := svc.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Frequencies.Len())

	require.NoError(t, os.WriteFile(path, []byte("concat\neggs\n"), 0o600))

	second, err := svc.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, second.Frequencies.Len())
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestAnalyze_MissingDataset(t *testing.T) {
	svc := newTestService(t, filepath.Join(t.TempDir(), "missing.csv"), nil)

	_, err := svc.Analyze(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Equal(t, "FILE001", MapError(err).Code)
}

func TestAnalyze_EmptyFile(t *testing.T) {
	svc := newTestService(t, writeDataset(t, ""), nil)

	_, err := svc.Analyze(context.Background())
	require.Error(t, err)
	assert.Equal(t, "FILE003", MapError(err).Code)
}

func TestAnalyze_NonUTF8Dataset(t *testing.T) {
	svc := newTestService(t, writeDataset(t, "ID;concat\n1;caf\xe9\n2;caf\xee\n"), nil)

	a, err := svc.Analyze(context.Background())
	require.Error(t, err)
	assert.Nil(t, a)
	assert.ErrorIs(t, err, dataset.ErrInvalidUTF8)
	assert.Equal(t, "FILE002", MapError(err).Code)
}

func TestAnalyze_NoItemData(t *testing.T) {
	svc := newTestService(t, writeDataset(t, "Member_number;Date\n1;01-01-2015\n"), nil)

	_, err := svc.Analyze(context.Background())
	require.ErrorIs(t, err, extract.ErrNoItemData)
	assert.Equal(t, "ITEM001", MapError(err).Code)
}

func TestAnalyze_EmptyItemColumn(t *testing.T) {
	svc := newTestService(t, writeDataset(t, "Member_number;concat\n1;\n2;NaN\n"), nil)

	a, err := svc.Analyze(context.Background())
	require.NoError(t, err)
	assert.True(t, a.Empty())
	assert.Equal(t, EmptyWarning, a.Warning())
	assert.Nil(t, a.Top())

	var buf bytes.Buffer
	assert.ErrorIs(t, a.WriteCSV(&buf), frequency.ErrEmpty)
	assert.Zero(t, buf.Len())
}

func TestAnalyze_CancelledContext(t *testing.T) {
	svc := newTestService(t, writeDataset(t, milkBread), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Analyze(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "REQ001", MapError(err).Code)
}

func TestAnalysis_WriteCSV(t *testing.T) {
	svc := newTestService(t, writeDataset(t, milkBread), nil)

	a, err := svc.Analyze(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, a.WriteCSV(&buf))

	entries, err := frequency.ReadCSV(&buf)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "bread", entries[0].Product)
}

func TestAnalyze_RecordsHistory(t *testing.T) {
	store, err := history.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "history.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc := newTestService(t, writeDataset(t, milkBread), store)
	require.True(t, svc.HistoryEnabled())

	ctx := ContextWithClientIP(context.Background(), "198.51.100.4")
	a, err := svc.Analyze(ctx)
	require.NoError(t, err)
	assert.True(t, a.Recorded)

	runs, err := svc.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, a.RunID, runs[0].ID)
	assert.Equal(t, "marker", runs[0].Strategy)
	assert.Equal(t, "bread", runs[0].TopProduct)
	assert.Equal(t, "198.51.100.4", runs[0].ClientIP)
	assert.Equal(t, 3, runs[0].Occurrences)

	entries, err := svc.RunEntries(context.Background(), a.RunID)
	require.NoError(t, err)
	assert.Equal(t, a.Top(), entries)
}

func TestVerify_DoesNotRecordHistory(t *testing.T) {
	store, err := history.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "history.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc := newTestService(t, writeDataset(t, milkBread), store)

	a, err := svc.Verify(context.Background())
	require.NoError(t, err)
	assert.False(t, a.Recorded)
	assert.Equal(t, 3, a.Frequencies.Total)

	runs, err := svc.History(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)

	_, err = svc.Analyze(context.Background())
	require.NoError(t, err)
	runs, err = svc.History(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestAnalyze_EmptyRunNotRecorded(t *testing.T) {
	store, err := history.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "history.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc := newTestService(t, writeDataset(t, "concat\n\n"), store)

	a, err := svc.Analyze(context.Background())
	require.NoError(t, err)
	assert.True(t, a.Empty())
	assert.False(t, a.Recorded)

	runs, err := svc.History(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

type failingStore struct{ history.Nop }

func (failingStore) Record(context.Context, *history.Run) error {
	return errors.New("connection refused")
}

func (failingStore) Recent(context.Context, int) ([]history.Run, error) {
	return nil, errors.New("connection refused")
}

func TestAnalyze_HistoryFailureDoesNotFailRun(t *testing.T) {
	svc := newTestService(t, writeDataset(t, milkBread), failingStore{})

	a, err := svc.Analyze(context.Background())
	require.NoError(t, err)
	assert.False(t, a.Recorded)
	assert.False(t, a.Empty())

	_, err = svc.History(context.Background(), 10)
	require.Error(t, err)
	assert.Equal(t, "HIST001", MapError(err).Code)
}

func TestRunEntries_NotFound(t *testing.T) {
	svc := newTestService(t, "x.csv", nil)

	_, err := svc.RunEntries(context.Background(), "nope")
	assert.ErrorIs(t, err, history.ErrRunNotFound)
	assert.Equal(t, "HIST002", MapError(err).Code)
}
