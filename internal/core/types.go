package core

import (
	"github.com/JonMunkholm/lexia/internal/tablequery"
)

// FieldType represents the data type of a view column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEnum
	FieldDate
	FieldNumeric
	FieldBool
)

func (t FieldType) String() string {
	switch t {
	case FieldEnum:
		return "enum"
	case FieldDate:
		return "date"
	case FieldNumeric:
		return "numeric"
	case FieldBool:
		return "bool"
	default:
		return "text"
	}
}

// Kind maps the field type to the comparison the query engine uses.
func (t FieldType) Kind() tablequery.Kind {
	switch t {
	case FieldDate:
		return tablequery.KindDate
	case FieldNumeric:
		return tablequery.KindNumber
	case FieldBool:
		return tablequery.KindBool
	default:
		return tablequery.KindText
	}
}

// Display selects how a cell is rendered in HTML. CSV export always
// writes the raw value.
type Display int

const (
	DisplayDefault  Display = iota
	DisplayRelative         // "Hace 3 días"
	DisplayDateOnly         // "02/01/2006"
	DisplayBadge            // Estado or Extraccion badge
	DisplayTruncate         // Shortened to 50 runes
)

// FieldSpec describes one column of a view.
type FieldSpec struct {
	Name       string    // Record key, dot paths allowed: "solicitud.alias"
	Label      string    // Column header
	Type       FieldType // Drives sorting, filtering and formatting
	EnumValues []string  // Allowed values for FieldEnum
	Hidden     bool      // Exported but not rendered
	Display    Display
}

// ViewInfo contains display information about a view.
type ViewInfo struct {
	Key          string              // Unique identifier: "solicitudes"
	Group        string              // Navigation group: "Monitoreo"
	Label        string              // Display name: "Solicitudes"
	Columns      []string            // Field names in display order
	SearchFields []string            // Fields searched by free text
	DefaultSort  tablequery.SortSpec // Applied when the request has none
	PageSize     int                 // 0 uses the configured default
	Path         string              // Backend API path: "solicitudes"
}

// ViewDefinition contains everything needed to serve a view.
type ViewDefinition struct {
	Info       ViewInfo
	FieldSpecs []FieldSpec

	// Query is the SQL the Postgres source runs. Column aliases become
	// record keys.
	Query string
}

// Field returns the spec for a column name.
func (d ViewDefinition) Field(name string) (FieldSpec, bool) {
	for _, f := range d.FieldSpecs {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// HasColumn reports whether name is a column of the view.
func (d ViewDefinition) HasColumn(name string) bool {
	_, ok := d.Field(name)
	return ok
}

// VisibleColumns returns the columns that are rendered in tables.
func (d ViewDefinition) VisibleColumns() []string {
	cols := make([]string, 0, len(d.Info.Columns))
	for _, c := range d.Info.Columns {
		if f, ok := d.Field(c); ok && f.Hidden {
			continue
		}
		cols = append(cols, c)
	}
	return cols
}

// TableQuery is the request-level state of one table: what the user typed,
// clicked and filtered.
type TableQuery struct {
	Page     int
	PageSize int
	Sort     tablequery.SortSpec
	Search   string
	Filters  []tablequery.ColumnFilter
}

// FilterMap returns the filters as column -> "op:value", the form used in
// query strings.
func (q TableQuery) FilterMap() map[string]string {
	return activeFilters(q.Filters)
}

// ColumnAggregation holds aggregated values for a single numeric column.
type ColumnAggregation struct {
	Column string   `json:"column"`
	Sum    *float64 `json:"sum,omitempty"`
	Avg    *float64 `json:"avg,omitempty"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Count  int64    `json:"count"` // Count of numeric values
}

// Aggregations maps column names to their aggregation results.
type Aggregations map[string]*ColumnAggregation

// TableDataResult is one rendered page of a view.
type TableDataResult struct {
	View          ViewInfo            `json:"view"`
	Rows          []tablequery.Record `json:"rows"`
	TotalRows     int                 `json:"totalRows"`
	Page          int                 `json:"page"`
	PageSize      int                 `json:"pageSize"`
	TotalPages    int                 `json:"totalPages"`
	Sort          tablequery.SortSpec `json:"sort"`
	SearchQuery   string              `json:"search,omitempty"`
	ActiveFilters map[string]string   `json:"filters,omitempty"`
	Aggregations  Aggregations        `json:"aggregations,omitempty"`
	Snapshot      SnapshotInfo        `json:"snapshot"`
}

// StartRow is the 1-based index of the first row on the page, 0 when empty.
func (r *TableDataResult) StartRow() int {
	if len(r.Rows) == 0 {
		return 0
	}
	return (r.Page-1)*r.PageSize + 1
}

// EndRow is the 1-based index of the last row on the page, 0 when empty.
func (r *TableDataResult) EndRow() int {
	if len(r.Rows) == 0 {
		return 0
	}
	return r.StartRow() + len(r.Rows) - 1
}
