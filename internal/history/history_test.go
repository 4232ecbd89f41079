package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/JonMunkholm/basketfreq/internal/config"
	"github.com/JonMunkholm/basketfreq/internal/frequency"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRun(createdAt time.Time, top ...frequency.Entry) *Run {
	r := &Run{
		ID:           uuid.NewString(),
		Dataset:      "Groceries_dataset.csv",
		Strategy:     "marker",
		Columns:      []string{"concat"},
		Transactions: 2,
		Occurrences:  3,
		Products:     len(top),
		ClientIP:     "203.0.113.7",
		CreatedAt:    createdAt,
		Top:          top,
	}
	if len(top) > 0 {
		r.TopProduct = top[0].Product
		r.TopRelative = top[0].Relative
	}
	return r
}

func openSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "history.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_RecordAndRecent(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)

	base := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	older := newRun(base, frequency.Entry{Product: "bread", Count: 2, Relative: 2.0 / 3.0},
		frequency.Entry{Product: "milk", Count: 1, Relative: 1.0 / 3.0})
	newer := newRun(base.Add(1500*time.Millisecond), frequency.Entry{Product: "soda", Count: 1, Relative: 1})
	newest := newRun(base.Add(2 * time.Second))

	require.NoError(t, store.Record(ctx, older))
	require.NoError(t, store.Record(ctx, newer))
	require.NoError(t, store.Record(ctx, newest))

	runs, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	assert.Equal(t, newest.ID, runs[0].ID)
	assert.Equal(t, newer.ID, runs[1].ID)
	assert.Equal(t, older.ID, runs[2].ID)

	got := runs[2]
	assert.Equal(t, "Groceries_dataset.csv", got.Dataset)
	assert.Equal(t, "marker", got.Strategy)
	assert.Equal(t, []string{"concat"}, got.Columns)
	assert.Equal(t, 3, got.Occurrences)
	assert.Equal(t, "203.0.113.7", got.ClientIP)
	assert.Equal(t, "bread", got.TopProduct)
	assert.InDelta(t, 2.0/3.0, got.TopRelative, 1e-12)
	assert.True(t, got.CreatedAt.Equal(base), "created_at = %v, want %v", got.CreatedAt, base)
	assert.Empty(t, got.Top, "Recent should not load entries")

	limited, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, newest.ID, limited[0].ID)
}

func TestSQLiteStore_Entries(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)

	run := newRun(time.Now(),
		frequency.Entry{Product: "bread", Count: 2, Relative: 2.0 / 3.0},
		frequency.Entry{Product: "milk", Count: 1, Relative: 1.0 / 3.0},
	)
	require.NoError(t, store.Record(ctx, run))

	entries, err := store.Entries(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Top, entries)

	_, err = store.Entries(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSQLiteStore_DuplicateIDRollsBack(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)

	run := newRun(time.Now(), frequency.Entry{Product: "soda", Count: 1, Relative: 1})
	require.NoError(t, store.Record(ctx, run))
	require.Error(t, store.Record(ctx, run))

	runs, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSQLiteStore_ReopenKeepsRuns(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.sqlite")

	first, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	run := newRun(time.Now())
	require.NoError(t, first.Record(ctx, run))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer second.Close()

	runs, err := second.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, config.HistoryConfig{Driver: config.HistoryNone})
	require.NoError(t, err)
	assert.False(t, Enabled(store))

	store, err = Open(ctx, config.HistoryConfig{
		Driver:     config.HistorySQLite,
		SQLitePath: filepath.Join(t.TempDir(), "h.sqlite"),
	})
	require.NoError(t, err)
	defer store.Close()
	assert.True(t, Enabled(store))

	_, err = Open(ctx, config.HistoryConfig{Driver: "mongo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history store unavailable")

	_, err = Open(ctx, config.HistoryConfig{Driver: config.HistoryPostgres, DatabaseURL: "postgres://%zz"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history store unavailable")
}

func TestNop(t *testing.T) {
	ctx := context.Background()
	var s Store = Nop{}

	require.NoError(t, s.Record(ctx, newRun(time.Now())))
	runs, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
	_, err = s.Entries(ctx, "x")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.NoError(t, s.Close())
	assert.False(t, Enabled(nil))
}

func TestPostgresStore_EntriesMalformedID(t *testing.T) {
	// A nil pool proves the id is rejected before any query is issued.
	s := &PostgresStore{}
	for _, id := range []string{"", "not-a-uuid", "1; DROP TABLE analysis_runs"} {
		_, err := s.Entries(context.Background(), id)
		assert.ErrorIs(t, err, ErrRunNotFound, "id %q", id)
	}
}
