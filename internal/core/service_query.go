package core

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/JonMunkholm/lexia/internal/tablequery"
	"github.com/JonMunkholm/lexia/internal/textnorm"
)

// GetTableData loads the view's snapshot and runs it through the query
// pipeline: search, filters, sort, paginate. The page is clamped to
// [1, TotalPages]; an unknown sort column falls back to the view default.
func (s *Service) GetTableData(ctx context.Context, viewKey string, q TableQuery) (*TableDataResult, error) {
	start := time.Now()

	def, err := s.View(viewKey)
	if err != nil {
		return nil, err
	}

	records, info, err := s.snapshots.Records(ctx, def)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", viewKey, err)
	}

	query, err := s.resolveQuery(def, q)
	if err != nil {
		return nil, err
	}
	matched := tablequery.Apply(records, query)

	pageSize := query.Page.PageSize
	totalPages := max(1, (len(matched)+pageSize-1)/pageSize)
	query.Page.Page = min(max(q.Page, 1), totalPages)

	page, err := tablequery.Paginate(matched, query.Page)
	if err != nil {
		return nil, err
	}

	result := &TableDataResult{
		View:          def.Info,
		Rows:          page.Items,
		TotalRows:     page.TotalItems,
		Page:          page.Page,
		PageSize:      page.PageSize,
		TotalPages:    page.TotalPages,
		Sort:          query.Sort,
		SearchQuery:   strings.TrimSpace(q.Search),
		ActiveFilters: activeFilters(q.Filters),
		Aggregations:  aggregate(def, matched),
		Snapshot:      info,
	}

	s.observer.QueryCompleted(viewKey, len(matched), time.Since(start))
	return result, nil
}

// ExportTable writes every row matching q, sorted but not paginated, as CSV
// with the view's columns. Returns the number of rows written.
func (s *Service) ExportTable(ctx context.Context, viewKey string, q TableQuery, w io.Writer) (int, error) {
	def, err := s.View(viewKey)
	if err != nil {
		return 0, err
	}

	if err := s.exports.Acquire(ctx); err != nil {
		return 0, fmt.Errorf("export %s: %w", viewKey, err)
	}
	defer s.exports.Release()

	records, _, err := s.snapshots.Records(ctx, def)
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", viewKey, err)
	}

	query, err := s.resolveQuery(def, q)
	if err != nil {
		return 0, err
	}
	matched := tablequery.Apply(records, query)

	if err := tablequery.WriteCSV(w, matched, def.Info.Columns); err != nil {
		return 0, fmt.Errorf("export %s: %w", viewKey, err)
	}

	s.observer.ExportCompleted(viewKey, len(matched))
	return len(matched), nil
}

// resolveQuery turns request state into an engine query for def.
func (s *Service) resolveQuery(def ViewDefinition, q TableQuery) (tablequery.Query, error) {
	preds := make(tablequery.Predicates, len(q.Filters))
	for _, f := range q.Filters {
		if !def.HasColumn(f.Column) {
			return tablequery.Query{}, fmt.Errorf("%w: unknown column %q", ErrInvalidFilter, f.Column)
		}
		if f.Kind == tablequery.KindAuto {
			spec, _ := def.Field(f.Column)
			f.Kind = spec.Type.Kind()
		}
		p, err := f.Predicate()
		if err != nil {
			return tablequery.Query{}, fmt.Errorf("%w: %s: %v", ErrInvalidFilter, f.Column, err)
		}
		preds[f.String()] = p
	}

	return tablequery.Query{
		Search:       q.Search,
		SearchFields: searchFields(def),
		Predicates:   preds,
		Sort:         s.resolveSort(def, q.Sort),
		Page:         tablequery.PageSpec{Page: q.Page, PageSize: s.PageSizeFor(def, q.PageSize)},
	}, nil
}

func (s *Service) resolveSort(def ViewDefinition, requested tablequery.SortSpec) tablequery.SortSpec {
	spec := requested
	if spec.Key == "" || !def.HasColumn(spec.Key) {
		spec = def.Info.DefaultSort
	}
	if spec.Key == "" {
		return spec
	}
	if spec.Direction == "" {
		spec.Direction = tablequery.Asc
	}
	if f, ok := def.Field(spec.Key); ok && spec.Kind == tablequery.KindAuto {
		spec.Kind = f.Type.Kind()
	}
	return spec
}

// searchFields returns the view's search fields, or its text and enum
// columns when none are configured.
func searchFields(def ViewDefinition) []string {
	if len(def.Info.SearchFields) > 0 {
		return def.Info.SearchFields
	}
	var fields []string
	for _, f := range def.FieldSpecs {
		if f.Type == FieldText || f.Type == FieldEnum {
			fields = append(fields, f.Name)
		}
	}
	return fields
}

func activeFilters(filters []tablequery.ColumnFilter) map[string]string {
	if len(filters) == 0 {
		return nil
	}
	out := make(map[string]string, len(filters))
	for _, f := range filters {
		out[f.Column] = string(f.Operator) + ":" + f.Value
	}
	return out
}

// aggregate computes sum, avg, min and max of every numeric column over rows.
// Columns without a single numeric value are omitted.
func aggregate(def ViewDefinition, rows []tablequery.Record) Aggregations {
	aggs := make(Aggregations)
	for _, spec := range def.FieldSpecs {
		if spec.Type != FieldNumeric {
			continue
		}
		var (
			agg    = &ColumnAggregation{Column: spec.Name}
			sum    float64
			lo, hi float64
		)
		for _, r := range rows {
			v, ok := tablequery.ParseFloat(r.Value(spec.Name))
			if !ok {
				continue
			}
			if agg.Count == 0 {
				lo, hi = v, v
			}
			lo, hi = min(lo, v), max(hi, v)
			sum += v
			agg.Count++
		}
		if agg.Count == 0 {
			continue
		}
		avg := sum / float64(agg.Count)
		agg.Sum, agg.Avg, agg.Min, agg.Max = &sum, &avg, &lo, &hi
		aggs[spec.Name] = agg
	}
	if len(aggs) == 0 {
		return nil
	}
	return aggs
}

// BuildFilters parses raw "column -> op:value" parameters into filters for
// def. A value without a known operator prefix means "contains" for text
// and "eq" for every other type. Empty values are skipped. Each filter is
// compiled once to reject values that do not fit the column type.
func BuildFilters(def ViewDefinition, raw map[string]string) ([]tablequery.ColumnFilter, error) {
	cols := make([]string, 0, len(raw))
	for col := range raw {
		cols = append(cols, col)
	}
	slices.Sort(cols)

	var filters []tablequery.ColumnFilter
	for _, col := range cols {
		value := strings.TrimSpace(raw[col])
		if value == "" {
			continue
		}
		spec, ok := def.Field(col)
		if !ok {
			return nil, fmt.Errorf("%w: unknown column %q", ErrInvalidFilter, col)
		}

		op := tablequery.OpContains
		if spec.Type != FieldText {
			op = tablequery.OpEquals
		}
		if prefix, rest, found := strings.Cut(value, ":"); found {
			if parsed, ok := tablequery.ParseOperator(prefix); ok {
				op, value = parsed, strings.TrimSpace(rest)
			}
		}
		if value == "" {
			continue
		}

		if spec.Type == FieldEnum && len(spec.EnumValues) > 0 && (op == tablequery.OpEquals || op == tablequery.OpIn) {
			for _, v := range strings.Split(value, ",") {
				if !enumAllows(spec.EnumValues, v) {
					return nil, fmt.Errorf("%w: %q is not a valid %s", ErrInvalidFilter, strings.TrimSpace(v), col)
				}
			}
		}

		f := tablequery.ColumnFilter{Column: col, Operator: op, Value: value, Kind: spec.Type.Kind()}
		if _, err := f.Predicate(); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFilter, col, err)
		}
		filters = append(filters, f)
	}
	return filters, nil
}

func enumAllows(allowed []string, v string) bool {
	n := textnorm.Normalize(v)
	if n == "" {
		return true
	}
	for _, a := range allowed {
		if textnorm.Normalize(a) == n {
			return true
		}
	}
	return false
}
