package tablequery

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order when a date field arrives as a string.
// Backend timestamps are ISO-8601; the day-first layouts cover values typed
// by Spanish-speaking users.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
	"2006/01/02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02.01.2006",
}

// ParseTime interprets v as an instant. It accepts time.Time, *time.Time
// and strings in any of the supported layouts.
func ParseTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case *time.Time:
		if x == nil || x.IsZero() {
			return time.Time{}, false
		}
		return *x, true
	case string:
		s := strings.TrimSpace(x)
		if len(s) < len("2006-1-2") {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// ParseFloat interprets v as a number. Strings are accepted when they parse
// cleanly; thousands separators are not stripped.
func ParseFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// isNumber reports whether v is a Go numeric type or json.Number.
// Numeric-looking strings do not count.
func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint32, uint64, json.Number:
		return true
	}
	return false
}

// ParseBool interprets common boolean spellings, Spanish included.
func ParseBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "t", "yes", "y", "1", "si", "sí":
			return true, true
		case "false", "f", "no", "n", "0":
			return false, true
		}
	}
	return false, false
}

var epoch = time.Unix(0, 0).UTC()

// epochIfZero maps a failed parse to the Unix epoch so malformed dates sort
// as the earliest real instant.
func epochIfZero(t time.Time) time.Time {
	if t.IsZero() {
		return epoch
	}
	return t
}

// endOfDay widens a midnight instant to the last nanosecond of its day.
// Other instants and the zero time are returned unchanged.
func endOfDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	if h, m, sec := t.Clock(); h != 0 || m != 0 || sec != 0 || t.Nanosecond() != 0 {
		return t
	}
	return t.AddDate(0, 0, 1).Add(-time.Nanosecond)
}
