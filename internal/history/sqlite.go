package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/basketfreq/internal/frequency"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS analysis_runs (
	id            TEXT PRIMARY KEY,
	dataset       TEXT NOT NULL,
	strategy      TEXT NOT NULL,
	columns       TEXT NOT NULL,
	transactions  INTEGER NOT NULL,
	occurrences   INTEGER NOT NULL,
	products      INTEGER NOT NULL,
	top_product   TEXT NOT NULL DEFAULT '',
	top_relative  REAL NOT NULL DEFAULT 0,
	client_ip     TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analysis_runs_created_at ON analysis_runs(created_at);
CREATE TABLE IF NOT EXISTS analysis_run_entries (
	run_id    TEXT NOT NULL REFERENCES analysis_runs(id) ON DELETE CASCADE,
	rank      INTEGER NOT NULL,
	product   TEXT NOT NULL,
	count     INTEGER NOT NULL,
	relative  REAL NOT NULL,
	PRIMARY KEY (run_id, rank)
);
`

// sqliteTime is fixed-width so created_at sorts chronologically as text.
const sqliteTime = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore keeps the history in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history store unavailable: open sqlite %s: %w", path, err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history store unavailable: create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Record implements Store.
func (s *SQLiteStore) Record(ctx context.Context, run *Run) error {
	cols, err := json.Marshal(run.Columns)
	if err != nil {
		return fmt.Errorf("encode columns: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO analysis_runs
		(id, dataset, strategy, columns, transactions, occurrences, products, top_product, top_relative, client_ip, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Dataset, run.Strategy, string(cols),
		run.Transactions, run.Occurrences, run.Products,
		run.TopProduct, run.TopRelative, run.ClientIP, run.CreatedAt.UTC().Format(sqliteTime),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO analysis_run_entries
		(run_id, rank, product, count, relative) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare entries: %w", err)
	}
	defer stmt.Close()

	for i, e := range run.Top {
		if _, err := stmt.ExecContext(ctx, run.ID, i+1, e.Product, e.Count, e.Relative); err != nil {
			return fmt.Errorf("insert entry %d: %w", i+1, err)
		}
	}

	return tx.Commit()
}

// Recent implements Store.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		id, dataset, strategy, columns, transactions, occurrences, products, top_product, top_relative, client_ip, created_at
		FROM analysis_runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			r         Run
			cols      string
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.Dataset, &r.Strategy, &cols, &r.Transactions,
			&r.Occurrences, &r.Products, &r.TopProduct, &r.TopRelative, &r.ClientIP, &createdAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(cols), &r.Columns); err != nil {
			return nil, fmt.Errorf("decode columns of run %s: %w", r.ID, err)
		}
		if r.CreatedAt, err = time.Parse(sqliteTime, createdAt); err != nil {
			return nil, fmt.Errorf("decode created_at of run %s: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Entries implements Store.
func (s *SQLiteStore) Entries(ctx context.Context, runID string) ([]frequency.Entry, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM analysis_runs WHERE id = ?`, runID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT product, count, relative
		FROM analysis_run_entries WHERE run_id = ? ORDER BY rank`, runID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []frequency.Entry{}
	for rows.Next() {
		var e frequency.Entry
		if err := rows.Scan(&e.Product, &e.Count, &e.Relative); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
