package web

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/lexia/internal/core"
	"github.com/JonMunkholm/lexia/internal/logging"
	"github.com/JonMunkholm/lexia/internal/tablequery"
)

// ViewDataResponse is the JSON shape of /api/views/{viewKey}.
type ViewDataResponse struct {
	*core.TableDataResult
	StartRow int `json:"startRow"`
	EndRow   int `json:"endRow"`
}

// ScheduleResponse is the JSON shape of /api/schedule.
type ScheduleResponse struct {
	Now     time.Time    `json:"now"`
	NextRun core.NextRun `json:"nextRun"`
}

// AnalyticsResponse is the JSON shape of /api/analytics/{viewKey}.
type AnalyticsResponse struct {
	core.HistorialSummary
	Snapshot core.SnapshotInfo `json:"snapshot"`
}

// StateResponse is the JSON shape of /api/state/{viewKey}/watch.
type StateResponse struct {
	Page     int                 `json:"page"`
	PageSize int                 `json:"pageSize,omitempty"`
	Sort     tablequery.SortSpec `json:"sort"`
	Search   string              `json:"search,omitempty"`
	Filters  map[string]string   `json:"filters,omitempty"`
}

// stateWaitMax bounds how long a watch request is held open.
const stateWaitMax = 30 * time.Second

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"views":   core.ViewCount(),
		"exports": s.service.ExportStatus(),
	})
}

// handleListViews returns all views organized by group.
func (s *Server) handleListViews(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.ListViewsByGroup())
}

// handleViewData returns one page of a view as JSON.
func (s *Server) handleViewData(w http.ResponseWriter, r *http.Request) {
	viewKey := chi.URLParam(r, "viewKey")

	def, err := s.service.View(viewKey)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	tq, err := s.tableQueryFor(r, def)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.service.GetTableData(r.Context(), viewKey, tq)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.saveTableState(r, viewKey, tq, result)

	writeJSON(w, http.StatusOK, ViewDataResponse{
		TableDataResult: result,
		StartRow:        result.StartRow(),
		EndRow:          result.EndRow(),
	})
}

// handleExport streams the filtered and sorted rows of a view as CSV.
// Query parameters are the same as the table view; page is ignored.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	viewKey := chi.URLParam(r, "viewKey")

	def, err := s.service.View(viewKey)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	tq, err := parseTableQuery(r.URL.Query(), def)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	// Buffer so a failed load still gets a proper error status.
	var buf bytes.Buffer
	rows, err := s.service.ExportTable(r.Context(), viewKey, tq, &buf)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	filename := fmt.Sprintf("%s_%s.csv", viewKey, s.service.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("X-Export-Rows", fmt.Sprint(rows))
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Warn("export write failed", "view", viewKey, "error", err)
	}
}

// handleSchedule reports the next scheduled execution.
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ScheduleResponse{
		Now:     s.service.Now(),
		NextRun: s.service.NextExecution(true),
	})
}

// handleAnalytics returns the historial summary of a view as JSON.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	viewKey := chi.URLParam(r, "viewKey")

	tf, err := core.ParseTimeframe(r.URL.Query().Get("timeframe"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	sum, snap, err := s.service.Analytics(r.Context(), viewKey, tf)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AnalyticsResponse{HistorialSummary: sum, Snapshot: snap})
}

// handleRefresh refetches one view's snapshot immediately.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	viewKey := chi.URLParam(r, "viewKey")

	if err := s.service.Refresh(r.Context(), viewKey); err != nil {
		s.respondError(w, r, err)
		return
	}
	info, _ := s.service.SnapshotInfo(viewKey)
	writeJSON(w, http.StatusOK, info)
}

// handleWatchState holds the request until the session's saved state for a
// view changes, so another tab of the same session can follow it. It
// answers 204 when nothing changed within the wait.
func (s *Server) handleWatchState(w http.ResponseWriter, r *http.Request) {
	viewKey := chi.URLParam(r, "viewKey")
	if _, err := s.service.View(viewKey); err != nil {
		s.respondError(w, r, err)
		return
	}
	sessionID := core.SessionIDFromContext(r.Context())
	if sessionID == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	wait := stateWaitMax
	if d, err := time.ParseDuration(r.URL.Query().Get("wait")); err == nil && d > 0 {
		wait = min(wait, d)
	}
	if d := s.cfg.Server.RequestTimeout; d > 0 {
		wait = min(wait, d/2)
	}

	updates, cancel := s.service.States().Subscribe(core.StateKey(sessionID, viewKey))
	defer cancel()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case tq, ok := <-updates:
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, StateResponse{
			Page:     tq.Page,
			PageSize: tq.PageSize,
			Sort:     tq.Sort,
			Search:   tq.Search,
			Filters:  tq.FilterMap(),
		})
	case <-timer.C:
		w.WriteHeader(http.StatusNoContent)
	case <-r.Context().Done():
	}
}
