// Package history records every successful analysis run.
//
// The history is append-only and is never read back into a computation: the
// dashboard always recomputes from the dataset. It exists so operators can
// see what was computed, from which column, and when.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/basketfreq/internal/config"
	"github.com/JonMunkholm/basketfreq/internal/frequency"
)

// ErrRunNotFound is returned by Entries for an unknown run id.
var ErrRunNotFound = errors.New("history run not found")

// Run summarizes one analysis.
type Run struct {
	ID           string    `json:"id"`
	Dataset      string    `json:"dataset"`
	Strategy     string    `json:"strategy"`
	Columns      []string  `json:"columns"`
	Transactions int       `json:"transactions"`
	Occurrences  int       `json:"occurrences"`
	Products     int       `json:"products"`
	TopProduct   string    `json:"top_product,omitempty"`
	TopRelative  float64   `json:"top_relative_frequency,omitempty"`
	ClientIP     string    `json:"client_ip,omitempty"`
	CreatedAt    time.Time `json:"created_at"`

	// Top holds the ranked entries shown in the chart. Recent leaves it empty;
	// use Entries to load it.
	Top []frequency.Entry `json:"top,omitempty"`
}

// Store persists runs.
type Store interface {
	// Record appends a run and its top entries.
	Record(ctx context.Context, run *Run) error

	// Recent returns up to limit runs, newest first, without entries.
	Recent(ctx context.Context, limit int) ([]Run, error)

	// Entries returns the ranked entries recorded for a run.
	Entries(ctx context.Context, runID string) ([]frequency.Entry, error)

	// Close releases the underlying connections.
	Close() error
}

// Open returns the store selected by cfg.Driver and makes sure its schema
// exists. Persistent stores are wrapped in a circuit breaker.
func Open(ctx context.Context, cfg config.HistoryConfig) (Store, error) {
	var (
		store Store
		err   error
	)
	switch cfg.Driver {
	case "", config.HistoryNone:
		return Nop{}, nil
	case config.HistoryPostgres:
		store, err = OpenPostgres(ctx, cfg)
	case config.HistorySQLite:
		store, err = OpenSQLite(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("history store unavailable: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	return WithBreaker(store, BreakerSettings{
		MaxFailures: uint32(cfg.BreakerFailures),
		OpenTimeout: cfg.BreakerTimeout,
	}), nil
}

// Nop discards runs. It is used when no history driver is configured.
type Nop struct{}

// Record implements Store.
func (Nop) Record(context.Context, *Run) error { return nil }

// Recent implements Store.
func (Nop) Recent(context.Context, int) ([]Run, error) { return []Run{}, nil }

// Entries implements Store.
func (Nop) Entries(context.Context, string) ([]frequency.Entry, error) {
	return nil, ErrRunNotFound
}

// Close implements Store.
func (Nop) Close() error { return nil }

// Enabled reports whether s actually persists runs.
func Enabled(s Store) bool {
	_, nop := s.(Nop)
	return s != nil && !nop
}
