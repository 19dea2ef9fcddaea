// Package tablequery implements the filter, sort, paginate and export
// pipeline shared by every data table.
//
// All functions are pure: they never mutate their input slices or records
// and keep no state between calls. Malformed records degrade to nil fields
// instead of failing.
package tablequery

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidArgument marks caller errors such as a non-positive page size.
var ErrInvalidArgument = errors.New("invalid argument")

// Record is an opaque row keyed by field name. Values are whatever the
// backend produced: strings, numbers, booleans, times, nested maps or nil.
type Record map[string]any

// Value resolves a dot-separated path ("user.profile.name") through nested
// records and maps. A missing key or a non-map intermediate yields nil.
func (r Record) Value(path string) any {
	if r == nil {
		return nil
	}
	if !strings.Contains(path, ".") {
		return r[path]
	}

	var cur any = r
	for _, key := range strings.Split(path, ".") {
		switch m := cur.(type) {
		case Record:
			cur = m[key]
		case map[string]any:
			cur = m[key]
		default:
			return nil
		}
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Text renders a record value for display and export. nil renders as "".
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case *string:
		if x == nil {
			return ""
		}
		return *x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		if x.IsZero() {
			return ""
		}
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	case map[string]any, Record, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}
