package tablequery

import (
	"strings"

	"github.com/JonMunkholm/lexia/internal/textnorm"
)

// FilterByText keeps the records where at least one of fields contains query,
// ignoring accents, case and whitespace variance. Only string values are
// searched. An empty or whitespace-only query returns records unchanged.
func FilterByText(records []Record, query string, fields []string) []Record {
	q := textnorm.Normalize(query)
	if q == "" {
		return records
	}

	out := make([]Record, 0, len(records))
	for _, rec := range records {
		for _, field := range fields {
			v := rec.Value(field)
			if v == nil {
				continue
			}
			if strings.Contains(textnorm.NormalizeValue(v), q) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

// Predicate decides whether a record passes one filter.
type Predicate func(Record) bool

// Predicates is a set of independent filters keyed by a caller-chosen name,
// usually the field they test. Nil entries are ignored.
type Predicates map[string]Predicate

// FilterByPredicates keeps the records that pass every non-nil predicate.
// An empty set returns records unchanged.
func FilterByPredicates(records []Record, predicates Predicates) []Record {
	active := make([]Predicate, 0, len(predicates))
	for _, p := range predicates {
		if p != nil {
			active = append(active, p)
		}
	}
	if len(active) == 0 {
		return records
	}

	out := make([]Record, 0, len(records))
next:
	for _, rec := range records {
		for _, p := range active {
			if !p(rec) {
				continue next
			}
		}
		out = append(out, rec)
	}
	return out
}
