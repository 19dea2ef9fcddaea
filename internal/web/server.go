// Package web provides the HTTP server and handlers for the monitoring UI
// and its JSON API.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/lexia/internal/config"
	"github.com/JonMunkholm/lexia/internal/core"
	"github.com/JonMunkholm/lexia/internal/metrics"
	mw "github.com/JonMunkholm/lexia/internal/web/middleware"
)

// limiterTTL is how long an idle client's rate bucket is kept.
const limiterTTL = 15 * time.Minute

// Server is the HTTP server for the monitoring UI.
type Server struct {
	service *core.Service
	cfg     *config.Config
	metrics *metrics.Collector
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a new Server. collector may be nil to disable metrics.
func NewServer(service *core.Service, cfg *config.Config, collector *metrics.Collector) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		metrics: collector,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware)
	}
	s.router.Use(middleware.Compress(5))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(mw.SecurityHeaders(s.cfg.Security.EnableCSP))
	s.router.Use(mw.Session(s.cfg.Security.SessionCookie, s.cfg.Security.SecureCookies))

	if s.cfg.Rate.Enabled {
		limiter := mw.NewRateLimiter(s.cfg.Rate.RequestsPerMinute, s.cfg.Rate.RequestsPerMinute, limiterTTL)
		s.router.Use(limiter.Middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil && s.cfg.Metrics.Enabled {
		s.router.Handle(s.cfg.Metrics.Path, s.metrics.Handler())
	}

	// Pages
	s.router.Get("/", s.handleDashboard)
	s.router.Get("/table/{viewKey}", s.handleTableView)
	s.router.Get("/analytics/{viewKey}", s.handleAnalyticsPage)
	s.router.Get("/partials/next-run", s.handleNextRunPartial)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/views", s.handleListViews)
		r.Get("/views/{viewKey}", s.handleViewData)
		r.Get("/schedule", s.handleSchedule)
		r.Get("/analytics/{viewKey}", s.handleAnalytics)
		r.Post("/refresh/{viewKey}", s.handleRefresh)
		r.Get("/state/{viewKey}/watch", s.handleWatchState)

		// Exports scan the whole snapshot, so they get a tighter budget.
		r.Group(func(r chi.Router) {
			if s.cfg.Rate.Enabled {
				limiter := mw.NewRateLimiter(s.cfg.Rate.ExportLimit, s.cfg.Rate.ExportLimit, limiterTTL)
				r.Use(limiter.Middleware)
			}
			r.Get("/export/{viewKey}", s.handleExport)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
