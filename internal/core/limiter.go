package core

// limiter.go bounds how many analyses read the dataset at the same time.
//
// Every dashboard request recomputes from the file, so a burst of requests
// would otherwise load the dataset once per request in parallel. When all
// slots are taken a request waits up to maxWait before failing with
// ErrTooManyAnalyses. WaitForDrain lets shutdown wait for running analyses.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyAnalyses is returned when no analysis slot frees up in time.
var ErrTooManyAnalyses = errors.New("too many concurrent analyses, please try again later")

// DefaultMaxConcurrentAnalyses is the default limit for parallel analyses.
const DefaultMaxConcurrentAnalyses = 4

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 10 * time.Second

// AnalysisLimiter is a counting semaphore over analysis runs.
type AnalysisLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewAnalysisLimiter allows at most maxConcurrent simultaneous analyses.
// Non-positive arguments fall back to the defaults.
func NewAnalysisLimiter(maxConcurrent int, maxWait time.Duration) *AnalysisLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentAnalyses
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &AnalysisLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire takes a slot. The caller must call Release when done.
// It returns ctx.Err() if ctx ends first and ErrTooManyAnalyses on timeout.
func (l *AnalysisLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-ctx.Done():
		return ctx.Err()

	case <-timer.C:
		return ErrTooManyAnalyses
	}
}

// Release frees a slot taken by Acquire.
func (l *AnalysisLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of running analyses.
func (l *AnalysisLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// MaxConcurrent returns the slot count.
func (l *AnalysisLimiter) MaxConcurrent() int {
	return cap(l.semaphore)
}

// Available returns the number of free slots.
func (l *AnalysisLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until no analysis is running or ctx is done.
func (l *AnalysisLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
