// Package templates renders the monitoring UI as templ components.
//
// Components live in the .templ files; the *_templ.go files are generated
// by running `templ generate` at the repository root. Every page has a
// partial form used for HTMX swaps; the full page wraps the partial in
// Layout. Search hits are wrapped in <mark>.
package templates

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/lexia/internal/core"
	"github.com/JonMunkholm/lexia/internal/tablequery"
	"github.com/JonMunkholm/lexia/internal/textnorm"
)

// NavGroup is one section of the sidebar.
type NavGroup struct {
	Name  string
	Views []core.ViewInfo
}

// SidebarParams holds the sidebar navigation state.
type SidebarParams struct {
	Groups     []NavGroup
	ActiveView string
}

// ViewCard summarizes one view on the dashboard.
type ViewCard struct {
	Info     core.ViewInfo
	Snapshot core.SnapshotInfo
	Loaded   bool // false until the first fetch
}

// DashboardData holds the dashboard contents.
type DashboardData struct {
	Cards   []ViewCard
	NextRun core.NextRun
	Now     time.Time
}

// TableData is everything the table partial renders.
type TableData struct {
	Result  *core.TableDataResult
	Columns []core.FieldSpec // Visible columns in display order
	Now     time.Time        // Display clock; its location formats dates
}

func highlightSegments(text, query string) []textnorm.Segment {
	return textnorm.Split(text, textnorm.HighlightRanges(text, query))
}

func badgeClass(v core.BadgeVariant) string {
	return "badge-" + string(v)
}

// =============================================================================
// Analytics
// =============================================================================

var timeframes = []core.Timeframe{core.Timeframe7d, core.Timeframe30d, core.Timeframe90d}

func analyticsTitle(view core.ViewInfo) string {
	return "Analítica de " + view.Label
}

func analyticsURL(view core.ViewInfo, tf core.Timeframe) string {
	return "/analytics/" + view.Key + "?timeframe=" + string(tf)
}

func formatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', 1, 64) + "%"
}

func dailyPeak(days []core.DayCount) int {
	peak := 0
	for _, d := range days {
		peak = max(peak, d.Total)
	}
	return peak
}

// barWidth scales total against the busiest day.
func barWidth(total, peak int) templ.SafeCSS {
	return templ.SafeCSS(fmt.Sprintf("width:%d%%", total*100/max(peak, 1)))
}

// =============================================================================
// Table
// =============================================================================

// linkQuery encodes the table state with sort replaced. A page of 0 is
// omitted, as in export links.
func linkQuery(res *core.TableDataResult, sort tablequery.SortSpec, page int) url.Values {
	q := url.Values{}
	if res.SearchQuery != "" {
		q.Set("search", res.SearchQuery)
	}
	if sort.Key != "" {
		q.Set("sort", sort.Key)
		q.Set("dir", string(sort.Direction))
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
		q.Set("page_size", strconv.Itoa(res.PageSize))
	}
	for col, f := range res.ActiveFilters {
		q.Set("filter["+col+"]", f)
	}
	return q
}

func tableURL(res *core.TableDataResult, sort tablequery.SortSpec, page int) string {
	if page == 0 {
		return "/table/" + res.View.Key
	}
	return "/table/" + res.View.Key + "?" + linkQuery(res, sort, page).Encode()
}

func exportURL(res *core.TableDataResult) string {
	return "/api/export/" + res.View.Key + "?" + linkQuery(res, res.Sort, 0).Encode()
}

// sortURL links a header to the next sort state for col; paging restarts.
func sortURL(res *core.TableDataResult, col string) string {
	return tableURL(res, tablequery.NextSortSpec(res.Sort, col), 1)
}

func removeFilterURL(res *core.TableDataResult, col string) string {
	q := linkQuery(res, res.Sort, 1)
	q.Del("filter[" + col + "]")
	return "/table/" + res.View.Key + "?" + q.Encode()
}

type hiddenField struct {
	Name  string
	Value string
}

// hiddenFields keeps sort and filters when the search changes; the page
// resets.
func hiddenFields(res *core.TableDataResult) []hiddenField {
	q := linkQuery(res, res.Sort, 0)
	q.Del("search")
	var fields []hiddenField
	for _, k := range sortedKeys(q) {
		for _, v := range q[k] {
			fields = append(fields, hiddenField{Name: k, Value: v})
		}
	}
	return fields
}

func ariaSort(s tablequery.SortSpec) string {
	if s.Direction == tablequery.Desc {
		return "descending"
	}
	return "ascending"
}

func searchableColumns(res *core.TableDataResult) map[string]bool {
	m := make(map[string]bool, len(res.View.SearchFields))
	for _, f := range res.View.SearchFields {
		m[f] = true
	}
	return m
}

// highlightQuery returns the search text to mark in col, or "" when the
// column is not searched.
func highlightQuery(res *core.TableDataResult, searchable map[string]bool, col core.FieldSpec) string {
	if !searchable[col.Name] {
		return ""
	}
	return res.SearchQuery
}

// dateTitle is the full timestamp shown on hover, or "" for values that are
// not dates.
func dateTitle(v any, now time.Time) string {
	t, ok := tablequery.ParseTime(v)
	if !ok {
		return ""
	}
	return core.FormatDateTime(t, now.Location())
}

func aggregateTotal(res *core.TableDataResult, col string) (string, bool) {
	agg, ok := res.Aggregations[col]
	if !ok || agg.Sum == nil {
		return "", false
	}
	return strconv.FormatFloat(*agg.Sum, 'f', -1, 64), true
}

func rangeLabel(res *core.TableDataResult) string {
	return fmt.Sprintf("Mostrando %d-%d de %d", res.StartRow(), res.EndRow(), res.TotalRows)
}

func pageLabel(res *core.TableDataResult) string {
	return fmt.Sprintf("Página %d de %d", res.Page, res.TotalPages)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
