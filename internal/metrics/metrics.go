// Package metrics exposes Prometheus metrics for snapshot fetches, table
// queries, CSV exports and HTTP requests.
//
// A Collector owns a private registry so tests and multiple servers in one
// process do not collide on the global default registry.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/lexia/internal/core"
)

const namespace = "lexia"

// Collector records service and HTTP metrics. It implements core.Observer.
type Collector struct {
	registry *prometheus.Registry

	fetchesTotal   *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	staleServed    *prometheus.CounterVec
	queriesTotal   *prometheus.CounterVec
	queryDuration  *prometheus.HistogramVec
	queryMatched   *prometheus.HistogramVec
	exportsTotal   *prometheus.CounterVec
	exportRows     *prometheus.CounterVec
	requestsTotal  *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

var _ core.Observer = (*Collector)(nil)

// NewCollector creates a collector and registers its metrics with registry.
// A nil registry gets a fresh one with the Go and process collectors.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	c := &Collector{
		registry: registry,

		fetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "snapshot",
				Name:      "fetches_total",
				Help:      "Source fetches by view and outcome",
			},
			[]string{"view", "status"},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "snapshot",
				Name:      "fetch_duration_seconds",
				Help:      "Duration of source fetches in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"view"},
		),
		staleServed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "snapshot",
				Name:      "stale_served_total",
				Help:      "Reads answered from a stale snapshot after a failed fetch",
			},
			[]string{"view"},
		),
		queriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "table",
				Name:      "queries_total",
				Help:      "Table queries by view",
			},
			[]string{"view"},
		),
		queryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "table",
				Name:      "query_duration_seconds",
				Help:      "Duration of filter, sort and paginate in seconds",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"view"},
		),
		queryMatched: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "table",
				Name:      "query_matched_rows",
				Help:      "Rows left after search and filters",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
			},
			[]string{"view"},
		),
		exportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "export",
				Name:      "requests_total",
				Help:      "CSV exports by view",
			},
			[]string{"view"},
		),
		exportRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "export",
				Name:      "rows_total",
				Help:      "Rows written to CSV exports",
			},
			[]string{"view"},
		),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		requestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		c.fetchesTotal,
		c.fetchDuration,
		c.staleServed,
		c.queriesTotal,
		c.queryDuration,
		c.queryMatched,
		c.exportsTotal,
		c.exportRows,
		c.requestsTotal,
		c.requestLatency,
	)

	return c
}

// Registry returns the registry the collector writes to.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// FetchCompleted records one source fetch.
func (c *Collector) FetchCompleted(view string, d time.Duration, err error) {
	c.fetchesTotal.WithLabelValues(view, fetchStatus(err)).Inc()
	c.fetchDuration.WithLabelValues(view).Observe(d.Seconds())
}

// StaleServed counts a read served from an expired snapshot.
func (c *Collector) StaleServed(view string) {
	c.staleServed.WithLabelValues(view).Inc()
}

// QueryCompleted records one table query.
func (c *Collector) QueryCompleted(view string, matched int, d time.Duration) {
	c.queriesTotal.WithLabelValues(view).Inc()
	c.queryDuration.WithLabelValues(view).Observe(d.Seconds())
	c.queryMatched.WithLabelValues(view).Observe(float64(matched))
}

// ExportCompleted records one CSV export.
func (c *Collector) ExportCompleted(view string, rows int) {
	c.exportsTotal.WithLabelValues(view).Inc()
	c.exportRows.WithLabelValues(view).Add(float64(rows))
}

// fetchStatus buckets fetch errors into a small label set.
func fetchStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, core.ErrMalformedData):
		return "malformed"
	default:
		return "error"
	}
}

// Middleware records request counts and latency labelled by the chi route
// pattern, so path parameters do not explode cardinality.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		c.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.requestLatency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
