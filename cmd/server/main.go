package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	_ "time/tzdata"

	"github.com/JonMunkholm/lexia/internal/config"
	"github.com/JonMunkholm/lexia/internal/core"
	_ "github.com/JonMunkholm/lexia/internal/core/views" // Register all views
	"github.com/JonMunkholm/lexia/internal/logging"
	"github.com/JonMunkholm/lexia/internal/metrics"
	"github.com/JonMunkholm/lexia/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"source", cfg.Source.Kind,
		"snapshot_ttl", cfg.Source.SnapshotTTL,
		"timezone", cfg.Schedule.Timezone,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	if err := core.LoadViewOverrides(cfg.Query.ViewsFile); err != nil {
		slog.Error("failed to load view overrides", "file", cfg.Query.ViewsFile, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	source, closeSource, err := openSource(ctx, cfg)
	if err != nil {
		slog.Error("failed to open data source", "kind", cfg.Source.Kind, "error", err)
		os.Exit(1)
	}
	defer closeSource()

	collector := metrics.NewCollector(nil)

	service, err := core.NewService(source, core.Options{
		DefaultPageSize: cfg.Query.DefaultPageSize,
		MaxPageSize:     cfg.Query.MaxPageSize,
		SnapshotTTL:     cfg.Source.SnapshotTTL,
		FetchTimeout:    cfg.Source.Timeout,
		ExecutionCron:   cfg.Schedule.ExecutionCron,
		Location:        cfg.Schedule.Location(),
		Observer:        collector,

		MaxConcurrentExports: cfg.Query.MaxConcurrentExports,
		ExportWait:           cfg.Query.ExportWait,
	})
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	// Log registered views
	slog.Info("views registered",
		"count", core.ViewCount(),
		"groups", len(core.Groups()),
	)
	for _, group := range core.Groups() {
		slog.Debug("view group", "group", group, "views", len(core.ByGroup(group)))
	}

	server := web.NewServer(service, cfg, collector)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	jobsDone := make(chan struct{})

	go func() {
		defer close(jobsDone)
		if err := service.StartRefreshScheduler(jobCtx, cfg.Schedule.RefreshCron); err != nil {
			slog.Error("refresh scheduler failed", "error", err)
		}
	}()

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Stop background jobs and wait for a running refresh
		cancelJobs()
		select {
		case <-jobsDone:
		case <-shutdownCtx.Done():
			slog.Warn("refresh job did not stop in time")
		}

		// Wait for running exports to finish writing
		if status := service.ExportStatus(); status.Active > 0 {
			slog.Info("waiting for exports to complete", "active", status.Active)
			if err := service.WaitForExports(shutdownCtx); err != nil {
				slog.Warn("exports did not complete in time", "error", err)
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	// Start server (uses addr from config internally)
	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openSource connects the configured record source. The returned func
// releases it.
func openSource(ctx context.Context, cfg *config.Config) (core.Source, func(), error) {
	if cfg.Source.Kind == "http" {
		slog.Info("reading from backend API", "url", cfg.Source.BackendURL)
		return core.NewHTTPSource(cfg.Source.BackendURL, cfg.Source.BackendToken, cfg.Source.Timeout), func() {}, nil
	}

	// Parse and configure connection pool
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}

	// Apply pool configuration from config
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, err
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	return core.NewPostgresSource(pool), pool.Close, nil
}
