package web

// handlers_common.go contains request parsing shared by the page and API
// handlers.

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/JonMunkholm/lexia/internal/core"
	"github.com/JonMunkholm/lexia/internal/logging"
	"github.com/JonMunkholm/lexia/internal/tablequery"
	"github.com/JonMunkholm/lexia/internal/web/templates"
)

// tableParams are the query parameters that describe table state.
var tableParams = []string{"page", "page_size", "search", "sort", "dir"}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(q url.Values, name string, defaultVal int) int {
	val := q.Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// parseSort reads sort and dir. Column validity is checked by the service.
func parseSort(q url.Values) tablequery.SortSpec {
	key := strings.TrimSpace(q.Get("sort"))
	if key == "" {
		return tablequery.SortSpec{}
	}
	return tablequery.SortSpec{Key: key, Direction: tablequery.ParseDirection(q.Get("dir"))}
}

// rawFilters collects filter[col]=op:value parameters.
func rawFilters(q url.Values) map[string]string {
	raw := make(map[string]string)
	for key, values := range q {
		if !strings.HasPrefix(key, "filter[") || !strings.HasSuffix(key, "]") {
			continue
		}
		col := key[len("filter[") : len(key)-1]
		if col == "" || len(values) == 0 {
			continue
		}
		raw[col] = values[len(values)-1]
	}
	return raw
}

// hasTableState reports whether the request carries any table parameter.
func hasTableState(q url.Values) bool {
	for _, p := range tableParams {
		if q.Has(p) {
			return true
		}
	}
	return len(rawFilters(q)) > 0
}

// parseTableQuery builds the table state from the query string.
func parseTableQuery(q url.Values, def core.ViewDefinition) (core.TableQuery, error) {
	filters, err := core.BuildFilters(def, rawFilters(q))
	if err != nil {
		return core.TableQuery{}, err
	}
	return core.TableQuery{
		Page:     parseIntParam(q, "page", 1),
		PageSize: parseIntParam(q, "page_size", 0),
		Sort:     parseSort(q),
		Search:   strings.TrimSpace(q.Get("search")),
		Filters:  filters,
	}, nil
}

// tableQueryFor resolves the table state of a request. A request without
// table parameters reopens the session's last state for the view; any
// other request replaces it.
func (s *Server) tableQueryFor(r *http.Request, def core.ViewDefinition) (core.TableQuery, error) {
	q := r.URL.Query()
	key := core.StateKey(core.SessionIDFromContext(r.Context()), def.Info.Key)

	if !hasTableState(q) {
		if saved, ok := s.service.States().Get(key); ok {
			logging.FromContext(r.Context()).Debug("restored table state", "view", def.Info.Key)
			return saved, nil
		}
	}

	tq, err := parseTableQuery(q, def)
	if err != nil {
		return core.TableQuery{}, err
	}
	return tq, nil
}

// saveTableState stores the state actually served, with the page clamped.
func (s *Server) saveTableState(r *http.Request, viewKey string, tq core.TableQuery, res *core.TableDataResult) {
	sessionID := core.SessionIDFromContext(r.Context())
	if sessionID == "" {
		return
	}
	tq.Page = res.Page
	tq.Sort = res.Sort
	s.service.States().Set(core.StateKey(sessionID, viewKey), tq)
}

// sidebarParams builds the navigation from the view registry.
func (s *Server) sidebarParams(active string) templates.SidebarParams {
	byGroup := s.service.ListViewsByGroup()
	p := templates.SidebarParams{ActiveView: active}
	for _, name := range core.Groups() {
		p.Groups = append(p.Groups, templates.NavGroup{Name: name, Views: byGroup[name]})
	}
	return p
}

// visibleFields returns the specs of the view's rendered columns in order.
func visibleFields(def core.ViewDefinition) []core.FieldSpec {
	cols := def.VisibleColumns()
	specs := make([]core.FieldSpec, 0, len(cols))
	for _, c := range cols {
		if f, ok := def.Field(c); ok {
			specs = append(specs, f)
		}
	}
	return specs
}
