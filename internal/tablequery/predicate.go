package tablequery

import (
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/lexia/internal/textnorm"
)

// DateRange passes records whose field falls within [from, to]. A zero bound
// is open. A to at midnight is a whole day and includes everything up to the
// end of that day. Records with a missing or unparseable date fail once any
// bound is set. Returns nil when both bounds are zero.
func DateRange(field string, from, to time.Time) Predicate {
	if from.IsZero() && to.IsZero() {
		return nil
	}
	to = endOfDay(to)
	return func(r Record) bool {
		t, ok := ParseTime(r.Value(field))
		if !ok {
			return false
		}
		if !from.IsZero() && t.Before(from) {
			return false
		}
		if !to.IsZero() && t.After(to) {
			return false
		}
		return true
	}
}

// OneOf passes records whose field equals any of values after normalization.
// Returns nil when values is empty.
func OneOf(field string, values ...string) Predicate {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if n := textnorm.Normalize(v); n != "" {
			set[n] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	return func(r Record) bool {
		_, ok := set[textnorm.Normalize(Text(r.Value(field)))]
		return ok
	}
}

// NumberRange passes records whose numeric field lies within [lo, hi].
// A nil bound is open. Returns nil when both bounds are nil.
func NumberRange(field string, lo, hi *float64) Predicate {
	if lo == nil && hi == nil {
		return nil
	}
	return func(r Record) bool {
		f, ok := ParseFloat(r.Value(field))
		if !ok {
			return false
		}
		if lo != nil && f < *lo {
			return false
		}
		if hi != nil && f > *hi {
			return false
		}
		return true
	}
}

// Operator is a column filter comparison.
type Operator string

const (
	OpContains   Operator = "contains"
	OpEquals     Operator = "eq"
	OpStartsWith Operator = "starts"
	OpEndsWith   Operator = "ends"
	OpGreaterEq  Operator = "gte"
	OpLessEq     Operator = "lte"
	OpGreater    Operator = "gt"
	OpLess       Operator = "lt"
	OpIn         Operator = "in"
	OpBetween    Operator = "between"
)

// ParseOperator validates an operator name.
func ParseOperator(s string) (Operator, bool) {
	switch op := Operator(strings.ToLower(strings.TrimSpace(s))); op {
	case OpContains, OpEquals, OpStartsWith, OpEndsWith,
		OpGreaterEq, OpLessEq, OpGreater, OpLess, OpIn, OpBetween:
		return op, true
	}
	return "", false
}

// ColumnFilter is a single operator filter on one field, as parsed from
// "filter[column]=op:value" query parameters. OpIn takes a comma-separated
// list; OpBetween takes "low,high".
type ColumnFilter struct {
	Column   string   `json:"column"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value"`
	Kind     Kind     `json:"kind"`
}

func (f ColumnFilter) String() string {
	return fmt.Sprintf("%s %s %q", f.Column, f.Operator, f.Value)
}

// Predicate compiles the filter. Text operators compare normalized text;
// ordering operators compare by Kind.
func (f ColumnFilter) Predicate() (Predicate, error) {
	col := f.Column
	switch f.Operator {
	case OpContains, OpEquals, OpStartsWith, OpEndsWith:
		want := textnorm.Normalize(f.Value)
		if f.Operator == OpEquals && f.Kind != KindText && f.Kind != KindAuto {
			return f.comparePredicate(func(c int) bool { return c == 0 })
		}
		match := textMatcher(f.Operator)
		return func(r Record) bool {
			return match(textnorm.Normalize(Text(r.Value(col))), want)
		}, nil

	case OpIn:
		pred := OneOf(col, splitList(f.Value)...)
		if pred == nil {
			return nil, fmt.Errorf("%w: empty list for %s", ErrInvalidArgument, col)
		}
		return pred, nil

	case OpGreaterEq:
		return f.comparePredicate(func(c int) bool { return c >= 0 })
	case OpLessEq:
		return f.comparePredicate(func(c int) bool { return c <= 0 })
	case OpGreater:
		return f.comparePredicate(func(c int) bool { return c > 0 })
	case OpLess:
		return f.comparePredicate(func(c int) bool { return c < 0 })

	case OpBetween:
		bounds := splitList(f.Value)
		if len(bounds) != 2 {
			return nil, fmt.Errorf("%w: between needs two values for %s", ErrInvalidArgument, col)
		}
		lo, err := ColumnFilter{Column: col, Operator: OpGreaterEq, Value: bounds[0], Kind: f.Kind}.Predicate()
		if err != nil {
			return nil, err
		}
		hi, err := ColumnFilter{Column: col, Operator: OpLessEq, Value: bounds[1], Kind: f.Kind}.Predicate()
		if err != nil {
			return nil, err
		}
		return func(r Record) bool { return lo(r) && hi(r) }, nil
	}
	return nil, fmt.Errorf("%w: unknown operator %q", ErrInvalidArgument, f.Operator)
}

func textMatcher(op Operator) func(have, want string) bool {
	switch op {
	case OpEquals:
		return func(have, want string) bool { return have == want }
	case OpStartsWith:
		return strings.HasPrefix
	case OpEndsWith:
		return strings.HasSuffix
	default:
		return strings.Contains
	}
}

// comparePredicate parses the filter value once according to Kind and
// returns a predicate applying ok to compare(field, value). Missing fields
// never pass.
func (f ColumnFilter) comparePredicate(ok func(int) bool) (Predicate, error) {
	col := f.Column
	switch f.Kind {
	case KindNumber:
		want, valid := ParseFloat(f.Value)
		if !valid {
			return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidArgument, f.Value)
		}
		return func(r Record) bool {
			have, valid := ParseFloat(r.Value(col))
			return valid && ok(compareFloat(have, want))
		}, nil

	case KindDate:
		want, valid := ParseTime(f.Value)
		if !valid {
			return nil, fmt.Errorf("%w: %q is not a date", ErrInvalidArgument, f.Value)
		}
		// "lte 2024-02-10" and "gt 2024-02-10" mean the whole day.
		if f.Operator == OpLessEq || f.Operator == OpGreater {
			want = endOfDay(want)
		}
		return func(r Record) bool {
			have, valid := ParseTime(r.Value(col))
			return valid && ok(have.Compare(want))
		}, nil

	case KindBool:
		want, valid := ParseBool(f.Value)
		if !valid {
			return nil, fmt.Errorf("%w: %q is not a boolean", ErrInvalidArgument, f.Value)
		}
		return func(r Record) bool {
			have, valid := ParseBool(r.Value(col))
			return valid && ok(compareBool(have, want))
		}, nil

	default:
		want := f.Value
		return func(r Record) bool {
			v := r.Value(col)
			return v != nil && ok(compareText(Text(v), want))
		}, nil
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
