package core

// export_limiter.go caps how many CSV exports run at once.
//
// Exports are rendered into memory before the response is written, so a
// burst of exports of a large view multiplies the snapshot in memory. When
// every slot is busy a new export waits up to maxWait, then fails with
// ErrTooManyExports.
//
// WaitForDrain lets shutdown wait for running exports to finish.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTooManyExports is returned when all export slots stay occupied for the
// whole wait. Clients should retry after a short delay.
var ErrTooManyExports = errors.New("too many concurrent exports")

// DefaultMaxConcurrentExports is the default limit for parallel exports.
const DefaultMaxConcurrentExports = 4

// DefaultExportWait is how long to wait for a slot before rejecting.
const DefaultExportWait = 10 * time.Second

// ExportLimiter is a weighted semaphore with a bounded wait.
type ExportLimiter struct {
	sem     *semaphore.Weighted
	max     int64
	maxWait time.Duration
	active  atomic.Int64
}

// NewExportLimiter allows at most maxConcurrent exports. Non-positive values
// take the defaults.
func NewExportLimiter(maxConcurrent int, maxWait time.Duration) *ExportLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentExports
	}
	if maxWait <= 0 {
		maxWait = DefaultExportWait
	}
	return &ExportLimiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		max:     int64(maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire waits for a slot. It returns ctx.Err() when ctx ends first and
// ErrTooManyExports when the wait times out. Callers must Release.
func (l *ExportLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyExports
	}
	l.active.Add(1)
	return nil
}

// TryAcquire takes a slot only if one is free.
func (l *ExportLimiter) TryAcquire() bool {
	if !l.sem.TryAcquire(1) {
		return false
	}
	l.active.Add(1)
	return true
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *ExportLimiter) Release() {
	l.active.Add(-1)
	l.sem.Release(1)
}

// WaitForDrain blocks until no export is running or ctx ends. New exports
// queue behind it while it waits.
func (l *ExportLimiter) WaitForDrain(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, l.max); err != nil {
		return err
	}
	l.sem.Release(l.max)
	return nil
}

// ExportLimiterStatus is a point-in-time view of the limiter.
type ExportLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

// Status reports current usage.
func (l *ExportLimiter) Status() ExportLimiterStatus {
	active := int(l.active.Load())
	return ExportLimiterStatus{
		Active:        active,
		Available:     int(l.max) - active,
		MaxConcurrent: int(l.max),
	}
}
