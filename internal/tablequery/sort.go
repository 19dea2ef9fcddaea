package tablequery

import (
	"cmp"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Direction is a sort order.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection accepts "asc" or "desc" in any case; anything else is Asc.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

// Kind selects how values of a field compare.
type Kind string

const (
	KindAuto   Kind = ""
	KindText   Kind = "text"
	KindNumber Kind = "number"
	KindDate   Kind = "date"
	KindBool   Kind = "bool"
)

// SortSpec orders records by one field. An empty Key means no sort.
type SortSpec struct {
	Key       string    `json:"key,omitempty"`
	Direction Direction `json:"direction,omitempty"`
	Kind      Kind      `json:"kind,omitempty"`
}

// IsZero reports whether the spec applies no ordering.
func (s SortSpec) IsZero() bool { return s.Key == "" }

// NextSortSpec is the column-header click convention: clicking the current
// key flips the direction, clicking another key sorts it ascending.
func NextSortSpec(current SortSpec, clicked string) SortSpec {
	if clicked == "" {
		return SortSpec{}
	}
	if current.Key == clicked {
		next := current
		if current.Direction == Desc {
			next.Direction = Asc
		} else {
			next.Direction = Desc
		}
		return next
	}
	return SortSpec{Key: clicked, Direction: Asc}
}

// Sort returns a stably ordered copy of records. Nil values go last in both
// directions; Desc negates the comparison instead of reversing the result,
// so ties keep their input order either way. Under KindAuto the kind is
// inferred once for the whole column (see ColumnKind).
func Sort(records []Record, spec SortSpec) []Record {
	out := slices.Clone(records)
	if spec.IsZero() || len(out) < 2 {
		return out
	}

	kind := spec.Kind
	if kind == KindAuto {
		kind = ColumnKind(out, spec.Key)
	}
	desc := spec.Direction == Desc
	slices.SortStableFunc(out, func(a, b Record) int {
		av, bv := a.Value(spec.Key), b.Value(spec.Key)
		switch {
		case av == nil && bv == nil:
			return 0
		case av == nil:
			return 1
		case bv == nil:
			return -1
		}
		c := CompareValues(av, bv, kind)
		if desc {
			return -c
		}
		return c
	})
	return out
}

// ColumnKind infers how a field compares across records. A column whose
// non-nil values are all numbers is KindNumber, all booleans KindBool. A
// column of dates and strings where at least half the values parse as dates
// is KindDate, so the unparseable ones sort as the epoch. Anything else is
// KindAuto and compares per pair.
func ColumnKind(records []Record, key string) Kind {
	var total, numbers, bools, dates, strs int
	for _, r := range records {
		v := r.Value(key)
		if v == nil {
			continue
		}
		total++
		switch {
		case isNumber(v):
			numbers++
		case isBool(v):
			bools++
		default:
			if _, ok := ParseTime(v); ok {
				dates++
			} else if _, ok := v.(string); ok {
				strs++
			}
		}
	}

	switch {
	case total == 0:
		return KindAuto
	case numbers == total:
		return KindNumber
	case bools == total:
		return KindBool
	case dates > 0 && dates+strs == total && dates >= strs:
		return KindDate
	}
	return KindAuto
}

func isBool(v any) bool {
	_, ok := v.(bool)
	return ok
}

// CompareValues orders two non-nil values as kind dictates.
//
// Text uses Spanish collation, case-insensitive, with digit runs compared
// numerically. Dates compare by instant and an unparseable date counts as
// the Unix epoch. Non-numeric values under KindNumber compare as text.
// KindAuto infers per pair: two times or two date strings compare as dates,
// two numbers numerically, two booleans false first, the rest as text.
func CompareValues(a, b any, kind Kind) int {
	switch kind {
	case KindDate:
		return compareTime(a, b)
	case KindNumber:
		af, aok := ParseFloat(a)
		bf, bok := ParseFloat(b)
		if aok && bok {
			return compareFloat(af, bf)
		}
	case KindBool:
		ab, aok := ParseBool(a)
		bb, bok := ParseBool(b)
		if aok && bok {
			return compareBool(ab, bb)
		}
	case KindAuto:
		if isNumber(a) && isNumber(b) {
			af, _ := ParseFloat(a)
			bf, _ := ParseFloat(b)
			return compareFloat(af, bf)
		}
		if ab, ok := a.(bool); ok {
			if bb, ok := b.(bool); ok {
				return compareBool(ab, bb)
			}
		}
		if _, ok := ParseTime(a); ok {
			if _, ok := ParseTime(b); ok {
				return compareTime(a, b)
			}
		}
	}
	return compareText(Text(a), Text(b))
}

func compareTime(a, b any) int {
	at, _ := ParseTime(a)
	bt, _ := ParseTime(b)
	return epochIfZero(at).Compare(epochIfZero(bt))
}

func compareFloat(a, b float64) int {
	return cmp.Compare(a, b)
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

// collators pools Spanish collators; a collate.Collator keeps scratch
// buffers and is not safe for concurrent use.
var collators = sync.Pool{
	New: func() any {
		return collate.New(language.Spanish, collate.IgnoreCase, collate.Numeric)
	},
}

func compareText(a, b string) int {
	c := collators.Get().(*collate.Collator)
	defer collators.Put(c)
	return c.CompareString(a, b)
}
