package history

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/JonMunkholm/basketfreq/internal/frequency"
)

// BreakerSettings tunes the circuit breaker around a Store.
type BreakerSettings struct {
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures uint32

	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

// Breaker fails fast while the wrapped store keeps failing, so a dead
// database does not cost every analysis a full record timeout.
type Breaker struct {
	store Store
	cb    *gobreaker.CircuitBreaker
}

// WithBreaker wraps s. Nop stores are returned unchanged.
func WithBreaker(s Store, settings BreakerSettings) Store {
	if !Enabled(s) {
		return s
	}
	if settings.MaxFailures == 0 {
		settings.MaxFailures = 3
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "history",
		Timeout: settings.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= settings.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrRunNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("history breaker state changed", "from", from.String(), "to", to.String())
		},
	})
	return &Breaker{store: s, cb: cb}
}

// State returns the breaker state, e.g. "closed" or "open".
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// Record implements Store.
func (b *Breaker) Record(ctx context.Context, run *Run) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.store.Record(ctx, run)
	})
	return err
}

// Recent implements Store.
func (b *Breaker) Recent(ctx context.Context, limit int) ([]Run, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.store.Recent(ctx, limit)
	})
	if err != nil {
		return nil, err
	}
	return v.([]Run), nil
}

// Entries implements Store.
func (b *Breaker) Entries(ctx context.Context, runID string) ([]frequency.Entry, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.store.Entries(ctx, runID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]frequency.Entry), nil
}

// Close implements Store.
func (b *Breaker) Close() error {
	return b.store.Close()
}
