package core

// convert.go turns the values pgx decodes into the plain Go values records
// carry: strings, int64, float64, bool, time.Time and nil. Invalid (NULL)
// pgtype values become nil so they sort last and export as empty cells.

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// RecordValue converts one pgx column value to a record value.
func RecordValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil

	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)

	case [16]byte:
		return uuid.UUID(x).String()
	case pgtype.UUID:
		if !x.Valid {
			return nil
		}
		return uuid.UUID(x.Bytes).String()

	case pgtype.Numeric:
		if !x.Valid || x.NaN {
			return nil
		}
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64

	case pgtype.Text:
		if !x.Valid {
			return nil
		}
		return x.String
	case pgtype.Bool:
		if !x.Valid {
			return nil
		}
		return x.Bool
	case pgtype.Int4:
		if !x.Valid {
			return nil
		}
		return int64(x.Int32)
	case pgtype.Int8:
		if !x.Valid {
			return nil
		}
		return x.Int64

	case pgtype.Date:
		if !x.Valid || x.InfinityModifier != pgtype.Finite {
			return nil
		}
		return x.Time
	case pgtype.Timestamp:
		if !x.Valid || x.InfinityModifier != pgtype.Finite {
			return nil
		}
		return x.Time
	case pgtype.Timestamptz:
		if !x.Valid || x.InfinityModifier != pgtype.Finite {
			return nil
		}
		return x.Time
	case pgtype.Time:
		if !x.Valid {
			return nil
		}
		return time.Time{}.Add(time.Duration(x.Microseconds) * time.Microsecond).Format(time.TimeOnly)

	case time.Time:
		if x.IsZero() {
			return nil
		}
		return x

	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = RecordValue(val)
		}
		return out

	default:
		return v
	}
}
