package metrics

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/JonMunkholm/lexia/internal/core"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	return NewCollector(prometheus.NewRegistry())
}

// =============================================================================
// Observer
// =============================================================================

func TestCollector_FetchCompleted(t *testing.T) {
	c := newTestCollector(t)

	c.FetchCompleted("solicitudes", 120*time.Millisecond, nil)
	c.FetchCompleted("solicitudes", 80*time.Millisecond, errors.New("connection refused"))
	c.FetchCompleted("solicitudes", 10*time.Millisecond, fmt.Errorf("decode: %w", core.ErrMalformedData))

	tests := []struct {
		status string
		want   float64
	}{
		{"success", 1},
		{"error", 1},
		{"malformed", 1},
	}
	for _, tt := range tests {
		got := testutil.ToFloat64(c.fetchesTotal.WithLabelValues("solicitudes", tt.status))
		if got != tt.want {
			t.Errorf("fetches_total{status=%q} = %v, want %v", tt.status, got, tt.want)
		}
	}

	if n := testutil.CollectAndCount(c.fetchDuration); n != 1 {
		t.Errorf("fetch_duration_seconds series = %d, want 1", n)
	}
}

func TestCollector_QueryAndExport(t *testing.T) {
	c := newTestCollector(t)

	c.QueryCompleted("historial", 42, 2*time.Millisecond)
	c.QueryCompleted("historial", 0, time.Millisecond)
	c.ExportCompleted("historial", 150)
	c.ExportCompleted("historial", 50)
	c.StaleServed("historial")

	if got := testutil.ToFloat64(c.queriesTotal.WithLabelValues("historial")); got != 2 {
		t.Errorf("queries_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.exportsTotal.WithLabelValues("historial")); got != 2 {
		t.Errorf("export requests_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.exportRows.WithLabelValues("historial")); got != 200 {
		t.Errorf("export rows_total = %v, want 200", got)
	}
	if got := testutil.ToFloat64(c.staleServed.WithLabelValues("historial")); got != 1 {
		t.Errorf("stale_served_total = %v, want 1", got)
	}
}

// =============================================================================
// HTTP
// =============================================================================

func TestCollector_MiddlewareUsesRoutePattern(t *testing.T) {
	c := newTestCollector(t)

	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Get("/api/views/{viewKey}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, key := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/views/"+key, nil))
	}

	got := testutil.ToFloat64(c.requestsTotal.WithLabelValues("GET", "/api/views/{viewKey}", "404"))
	if got != 3 {
		t.Errorf("requests_total = %v, want 3 under one route label", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := newTestCollector(t)
	c.ExportCompleted("solicitudes", 3)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `lexia_export_rows_total{view="solicitudes"} 3`) {
		t.Errorf("metrics output missing export rows:\n%s", body)
	}
}

func TestNewCollector_DefaultRegistry(t *testing.T) {
	c := NewCollector(nil)
	if c.Registry() == nil {
		t.Fatal("Registry() = nil")
	}
	families, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	var sawGo bool
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "go_") {
			sawGo = true
			break
		}
	}
	if !sawGo {
		t.Error("default registry should include Go runtime metrics")
	}
}
