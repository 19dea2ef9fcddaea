package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/lexia/internal/tablequery"
)

// queryFlags are the table state flags shared by query and export.
type queryFlags struct {
	search  string
	fields  []string
	filters []string
	sort    string
	dir     string
	kind    string
}

func (f *queryFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.search, "search", "s", "", "free-text search, accent and case insensitive")
	cmd.Flags().StringSliceVar(&f.fields, "fields", nil, "fields searched by --search (default: all)")
	cmd.Flags().StringArrayVar(&f.filters, "filter", nil, "column filter as column=op:value, repeatable")
	cmd.Flags().StringVar(&f.sort, "sort", "", "field to sort by")
	cmd.Flags().StringVar(&f.dir, "dir", "asc", "sort direction: asc, desc")
	cmd.Flags().StringVar(&f.kind, "kind", "", "sort comparison: text, number, date, bool (default: detect)")
}

// query builds the engine query. Search fields default to every field seen
// in records.
func (f *queryFlags) query(records []tablequery.Record) (tablequery.Query, error) {
	preds := make(tablequery.Predicates, len(f.filters))
	for _, raw := range f.filters {
		cf, err := parseFilterFlag(raw)
		if err != nil {
			return tablequery.Query{}, err
		}
		p, err := cf.Predicate()
		if err != nil {
			return tablequery.Query{}, fmt.Errorf("filter %q: %w", raw, err)
		}
		preds[cf.String()] = p
	}

	fields := f.fields
	if len(fields) == 0 {
		fields = allKeys(records)
	}

	q := tablequery.Query{Search: f.search, SearchFields: fields, Predicates: preds}
	if f.sort != "" {
		kind, err := parseKind(f.kind)
		if err != nil {
			return tablequery.Query{}, err
		}
		q.Sort = tablequery.SortSpec{Key: f.sort, Direction: tablequery.ParseDirection(f.dir), Kind: kind}
	}
	return q, nil
}

// parseFilterFlag reads "column=op:value". Without a known operator prefix
// the value is matched with contains.
func parseFilterFlag(raw string) (tablequery.ColumnFilter, error) {
	col, value, ok := strings.Cut(raw, "=")
	col = strings.TrimSpace(col)
	if !ok || col == "" {
		return tablequery.ColumnFilter{}, fmt.Errorf("%w: filter %q must be column=op:value", tablequery.ErrInvalidArgument, raw)
	}

	op := tablequery.OpContains
	if prefix, rest, found := strings.Cut(value, ":"); found {
		if parsed, ok := tablequery.ParseOperator(prefix); ok {
			op, value = parsed, rest
		}
	}
	f := tablequery.ColumnFilter{Column: col, Operator: op, Value: strings.TrimSpace(value)}

	switch op {
	case tablequery.OpGreater, tablequery.OpGreaterEq, tablequery.OpLess, tablequery.OpLessEq, tablequery.OpBetween:
		kind, err := orderingKind(f.Value)
		if err != nil {
			return tablequery.ColumnFilter{}, fmt.Errorf("filter %q: %w", raw, err)
		}
		f.Kind = kind
	}
	return f, nil
}

// orderingKind infers how an ordering filter compares from its bound. Raw
// files carry no column types.
func orderingKind(value string) (tablequery.Kind, error) {
	bound, _, _ := strings.Cut(value, ",")
	bound = strings.TrimSpace(bound)
	if _, ok := tablequery.ParseFloat(bound); ok {
		return tablequery.KindNumber, nil
	}
	if _, ok := tablequery.ParseTime(bound); ok {
		return tablequery.KindDate, nil
	}
	return "", fmt.Errorf("%w: %q is neither a number nor a date", tablequery.ErrInvalidArgument, bound)
}

func parseKind(s string) (tablequery.Kind, error) {
	switch k := tablequery.Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case tablequery.KindAuto, tablequery.KindText, tablequery.KindNumber, tablequery.KindDate, tablequery.KindBool:
		return k, nil
	case "auto":
		return tablequery.KindAuto, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", tablequery.ErrInvalidArgument, s)
}

// queryResult is the JSON written by the query command.
type queryResult struct {
	Matched int                                `json:"matched"`
	Sort    tablequery.SortSpec                `json:"sort"`
	Page    tablequery.Page[tablequery.Record] `json:"page"`
}

func newQueryCmd(root *rootOptions) *cobra.Command {
	var (
		flags    queryFlags
		page     int
		pageSize int
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Search, filter, sort and page records as JSON",
		Long: `Run the table pipeline over the records and print one page as JSON.

Filter operators: contains (default), eq, starts, ends, gt, gte, lt, lte,
in (comma list) and between (low,high).

A page past the last one prints no items; the totals still describe the
whole result.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := root.loadRecords(cmd)
			if err != nil {
				return err
			}
			q, err := flags.query(records)
			if err != nil {
				return err
			}
			q.Page = tablequery.PageSpec{Page: page, PageSize: pageSize}

			view, err := tablequery.Run(records, q)
			if err != nil {
				return err
			}
			root.logger(cmd).Info("query done", "records", len(records), "matched", len(view.Matched))

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(queryResult{Matched: len(view.Matched), Sort: q.Sort, Page: view.Page})
		},
	}

	flags.bind(cmd)
	cmd.Flags().IntVar(&page, "page", 1, "1-based page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 10, "rows per page")
	return cmd
}
