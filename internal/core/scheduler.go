package core

// scheduler.go keeps view snapshots warm in the background.
//
// The refresh job refetches every registered view on a cron schedule so
// that page loads are served from memory. It runs once on start, then on
// every tick. A failed refresh is logged and the old snapshots keep serving.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// StartRefreshScheduler refreshes all views immediately, then on every tick
// of cronExpr evaluated in the service timezone. It blocks until ctx is
// cancelled and waits for a running refresh to finish before returning.
func (s *Service) StartRefreshScheduler(ctx context.Context, cronExpr string) error {
	sched, err := ParseSchedule(cronExpr, s.loc)
	if err != nil {
		return fmt.Errorf("refresh scheduler: %w", err)
	}

	slog.Info("refresh scheduler started",
		"cron", cronExpr,
		"timezone", s.loc.String(),
		"views", ViewCount(),
	)

	// Run immediately on startup
	s.runRefreshJob(ctx)

	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	c.Schedule(sched, cron.FuncJob(func() { s.runRefreshJob(ctx) }))
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	slog.Info("refresh scheduler stopped")
	return nil
}

// runRefreshJob performs one refresh of every view.
func (s *Service) runRefreshJob(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, RefreshTimeout)
	defer cancel()

	start := time.Now()
	if err := s.RefreshAll(ctx); err != nil {
		slog.Error("refresh job failed",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return
	}
	slog.Info("refresh job completed",
		"views", ViewCount(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
