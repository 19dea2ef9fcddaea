package core

// snapshot.go caches the full record set of each view. The query pipeline
// runs over an in-memory snapshot, so sorting and paging a table never hits
// the backend. A snapshot older than its TTL is refetched on the next read;
// if that fetch fails the old snapshot is served and marked stale.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/JonMunkholm/lexia/internal/tablequery"
)

// refreshConcurrency bounds parallel fetches during RefreshAll.
const refreshConcurrency = 4

// DefaultFetchTimeout bounds one shared fetch when no timeout is configured.
const DefaultFetchTimeout = 30 * time.Second

// SnapshotInfo describes where a result's records came from.
type SnapshotInfo struct {
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetchedAt"`
	Rows      int       `json:"rows"`
	Stale     bool      `json:"stale"`
	LastError string    `json:"lastError,omitempty"`
}

type snapshot struct {
	records   []tablequery.Record
	fetchedAt time.Time
	lastErr   error
}

// Observer receives timing and outcome events from the service.
// Implemented by the metrics package; nil-safe through nopObserver.
type Observer interface {
	FetchCompleted(view string, d time.Duration, err error)
	StaleServed(view string)
	QueryCompleted(view string, matched int, d time.Duration)
	ExportCompleted(view string, rows int)
}

type nopObserver struct{}

func (nopObserver) FetchCompleted(string, time.Duration, error) {}
func (nopObserver) StaleServed(string)                          {}
func (nopObserver) QueryCompleted(string, int, time.Duration)   {}
func (nopObserver) ExportCompleted(string, int)                 {}

// SnapshotCache holds one snapshot per view key.
type SnapshotCache struct {
	source       Source
	ttl          time.Duration
	fetchTimeout time.Duration
	observer     Observer
	now          func() time.Time

	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]*snapshot
}

// NewSnapshotCache creates a cache over source. A ttl <= 0 refetches on
// every read. fetchTimeout bounds each backend fetch; <= 0 takes
// DefaultFetchTimeout.
func NewSnapshotCache(source Source, ttl, fetchTimeout time.Duration, observer Observer) *SnapshotCache {
	if observer == nil {
		observer = nopObserver{}
	}
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	return &SnapshotCache{
		source:       source,
		ttl:          ttl,
		fetchTimeout: fetchTimeout,
		observer:     observer,
		now:          time.Now,
		entries:      make(map[string]*snapshot),
	}
}

// Records returns the view's records, fetching when the snapshot is missing
// or expired. Concurrent readers of the same view share one fetch.
func (c *SnapshotCache) Records(ctx context.Context, def ViewDefinition) ([]tablequery.Record, SnapshotInfo, error) {
	key := def.Info.Key

	c.mu.RLock()
	entry := c.entries[key]
	c.mu.RUnlock()

	if entry != nil && c.fresh(entry) {
		return entry.records, c.info(entry, false), nil
	}

	fetched, err := c.fetch(ctx, def)
	if err == nil {
		return fetched.records, c.info(fetched, false), nil
	}
	// The caller gave up; the shared fetch may still succeed for others.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, SnapshotInfo{Source: c.source.Name()}, ctxErr
	}

	if entry == nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, SnapshotInfo{Source: c.source.Name()}, err
		}
		if !errors.Is(err, ErrSourceUnavailable) && !errors.Is(err, ErrMalformedData) {
			err = fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		return nil, SnapshotInfo{Source: c.source.Name(), LastError: err.Error()}, err
	}

	slog.Warn("serving stale snapshot",
		"view", key,
		"fetched_at", entry.fetchedAt,
		"error", err,
	)
	c.observer.StaleServed(key)

	c.mu.Lock()
	entry.lastErr = err
	info := c.info(entry, true)
	c.mu.Unlock()

	return entry.records, info, nil
}

// Refresh refetches one view regardless of age.
func (c *SnapshotCache) Refresh(ctx context.Context, def ViewDefinition) error {
	_, err := c.fetch(ctx, def)
	return err
}

// RefreshAll refetches every view concurrently. Each failure is logged;
// the first one is returned.
func (c *SnapshotCache) RefreshAll(ctx context.Context, defs []ViewDefinition) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshConcurrency)

	for _, def := range defs {
		g.Go(func() error {
			if err := c.Refresh(gctx, def); err != nil {
				slog.Error("snapshot refresh failed", "view", def.Info.Key, "error", err)
				return fmt.Errorf("refresh %s: %w", def.Info.Key, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Invalidate drops the snapshot of one view.
func (c *SnapshotCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Info reports the current snapshot state of a view without fetching.
func (c *SnapshotCache) Info(key string) (SnapshotInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok {
		return SnapshotInfo{Source: c.source.Name()}, false
	}
	return c.info(entry, entry.lastErr != nil), true
}

// fetch loads one view through the singleflight group. The shared fetch is
// detached from the caller that started it and bounded by fetchTimeout, so
// one canceled request does not fail the others waiting on the same view.
// Each caller still stops waiting when its own ctx ends.
func (c *SnapshotCache) fetch(ctx context.Context, def ViewDefinition) (*snapshot, error) {
	key := def.Info.Key
	ch := c.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		start := time.Now()
		records, err := c.source.Fetch(fetchCtx, def)
		c.observer.FetchCompleted(key, time.Since(start), err)
		if err != nil {
			return nil, err
		}

		entry := &snapshot{records: records, fetchedAt: c.now()}
		c.mu.Lock()
		c.entries[key] = entry
		c.mu.Unlock()

		slog.Debug("snapshot fetched",
			"view", key,
			"source", c.source.Name(),
			"records", len(records),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return entry, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*snapshot), nil
	}
}

func (c *SnapshotCache) fresh(entry *snapshot) bool {
	return c.ttl > 0 && c.now().Sub(entry.fetchedAt) < c.ttl
}

func (c *SnapshotCache) info(entry *snapshot, stale bool) SnapshotInfo {
	info := SnapshotInfo{
		Source:    c.source.Name(),
		FetchedAt: entry.fetchedAt,
		Rows:      len(entry.records),
		Stale:     stale,
	}
	if stale && entry.lastErr != nil {
		info.LastError = entry.lastErr.Error()
	}
	return info
}
