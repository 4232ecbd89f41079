package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/basketfreq/internal/config"
	"github.com/JonMunkholm/basketfreq/internal/frequency"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS analysis_runs (
	id            UUID PRIMARY KEY,
	dataset       TEXT NOT NULL,
	strategy      TEXT NOT NULL,
	columns       TEXT[] NOT NULL,
	transactions  INTEGER NOT NULL,
	occurrences   INTEGER NOT NULL,
	products      INTEGER NOT NULL,
	top_product   TEXT NOT NULL DEFAULT '',
	top_relative  DOUBLE PRECISION NOT NULL DEFAULT 0,
	client_ip     TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analysis_runs_created_at ON analysis_runs(created_at DESC);
CREATE TABLE IF NOT EXISTS analysis_run_entries (
	run_id    UUID NOT NULL REFERENCES analysis_runs(id) ON DELETE CASCADE,
	rank      INTEGER NOT NULL,
	product   TEXT NOT NULL,
	count     INTEGER NOT NULL,
	relative  DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, rank)
);
`

// PostgresStore keeps the history in PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects, verifies the connection and creates the schema.
func OpenPostgres(ctx context.Context, cfg config.HistoryConfig) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("history store unavailable: parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("history store unavailable: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history store unavailable: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history store unavailable: create schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Record implements Store.
func (s *PostgresStore) Record(ctx context.Context, run *Run) error {
	id, err := uuid.Parse(run.ID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", run.ID, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `INSERT INTO analysis_runs
		(id, dataset, strategy, columns, transactions, occurrences, products, top_product, top_relative, client_ip, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, run.Dataset, run.Strategy, run.Columns,
		run.Transactions, run.Occurrences, run.Products,
		run.TopProduct, run.TopRelative, run.ClientIP, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if len(run.Top) > 0 {
		rows := make([][]any, len(run.Top))
		for i, e := range run.Top {
			rows[i] = []any{id, i + 1, e.Product, e.Count, e.Relative}
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"analysis_run_entries"},
			[]string{"run_id", "rank", "product", "count", "relative"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("copy entries: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Recent implements Store.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.pool.Query(ctx, `SELECT
		id::text, dataset, strategy, columns, transactions, occurrences, products, top_product, top_relative, client_ip, created_at
		FROM analysis_runs ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Dataset, &r.Strategy, &r.Columns, &r.Transactions,
			&r.Occurrences, &r.Products, &r.TopProduct, &r.TopRelative, &r.ClientIP, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Entries implements Store. An id that is not a UUID cannot name a run.
func (s *PostgresStore) Entries(ctx context.Context, runID string) ([]frequency.Entry, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return nil, ErrRunNotFound
	}

	var exists bool
	err = s.pool.QueryRow(ctx, `SELECT true FROM analysis_runs WHERE id = $1`, id).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup run: %w", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT product, count, relative
		FROM analysis_run_entries WHERE run_id = $1 ORDER BY rank`, id)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (frequency.Entry, error) {
		var e frequency.Entry
		err := row.Scan(&e.Product, &e.Count, &e.Relative)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan entries: %w", err)
	}
	return entries, nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
