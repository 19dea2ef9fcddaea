package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/lexia/internal/core"
	"github.com/JonMunkholm/lexia/internal/logging"
	"github.com/JonMunkholm/lexia/internal/web/templates"
)

// handleDashboard renders the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var cards []templates.ViewCard
	for _, info := range s.service.ListViews() {
		snap, loaded := s.service.SnapshotInfo(info.Key)
		cards = append(cards, templates.ViewCard{Info: info, Snapshot: snap, Loaded: loaded})
	}

	data := templates.DashboardData{
		Cards:   cards,
		NextRun: s.service.NextExecution(true),
		Now:     s.service.Now(),
	}
	if err := templates.Dashboard(s.sidebarParams(""), data).Render(ctx, w); err != nil {
		logging.FromContext(ctx).Error("render dashboard", "error", err)
	}
}

// handleTableView renders a view as an HTML table; HTMX requests get only
// the table partial.
func (s *Server) handleTableView(w http.ResponseWriter, r *http.Request) {
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

	data := templates.TableData{
		Result:  result,
		Columns: visibleFields(def),
		Now:     s.service.Now(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	var renderErr error
	if isHTMX(r) {
		renderErr = templates.TablePartial(data).Render(r.Context(), w)
	} else {
		renderErr = templates.TableView(s.sidebarParams(viewKey), data).Render(r.Context(), w)
	}
	if renderErr != nil {
		logging.FromContext(r.Context()).Error("render table", "view", viewKey, "error", renderErr)
	}
}

// handleAnalyticsPage renders the historial summary of a view.
func (s *Server) handleAnalyticsPage(w http.ResponseWriter, r *http.Request) {
	viewKey := chi.URLParam(r, "viewKey")

	tf, err := core.ParseTimeframe(r.URL.Query().Get("timeframe"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	sum, _, err := s.service.Analytics(r.Context(), viewKey, tf)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	def, err := s.service.View(viewKey)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	var renderErr error
	if isHTMX(r) {
		renderErr = templates.AnalyticsPartial(def.Info, sum).Render(r.Context(), w)
	} else {
		renderErr = templates.AnalyticsPage(s.sidebarParams(viewKey), def.Info, sum).Render(r.Context(), w)
	}
	if renderErr != nil {
		logging.FromContext(r.Context()).Error("render analytics", "view", viewKey, "error", renderErr)
	}
}

// handleNextRunPartial renders the countdown panel polled by the dashboard.
func (s *Server) handleNextRunPartial(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.NextRunPanel(s.service.NextExecution(true)).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render next run", "error", err)
	}
}
