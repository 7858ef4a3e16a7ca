package repo

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// bindValue converts values produced by the resource layer into something every
// supported driver can bind. Pure dates and times of day are sent as text so
// one representation works for postgres, sqlite and mysql alike.
func bindValue(v any) any {
	switch x := v.(type) {
	case openapi_types.Date:
		return x.Format(openapi_types.DateFormat)
	case *openapi_types.Date:
		if x == nil {
			return nil
		}
		return x.Format(openapi_types.DateFormat)
	case pgtype.Time:
		if !x.Valid {
			return nil
		}
		return FormatClock(x)
	default:
		return v
	}
}

// FormatClock renders a time of day as HH:MM:SS, keeping fractional seconds
// only when present.
func FormatClock(t pgtype.Time) string {
	us := t.Microseconds
	h := us / int64(time.Hour/time.Microsecond)
	us -= h * int64(time.Hour/time.Microsecond)
	m := us / int64(time.Minute/time.Microsecond)
	us -= m * int64(time.Minute/time.Microsecond)
	s := us / int64(time.Second/time.Microsecond)
	us -= s * int64(time.Second/time.Microsecond)

	out := fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	if us > 0 {
		out += strings.TrimRight(fmt.Sprintf(".%06d", us), "0")
	}
	return out
}

// normalizeValue maps driver-specific read values onto a small set of Go types:
// nil, string, int64, float64, bool, time.Time and pgtype.Time.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case float32:
		return float64(x)
	case pgtype.Numeric:
		if !x.Valid {
			return nil
		}
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	default:
		return v
	}
}

// toInt64 reads an identifier returned by any driver.
func toInt64(v any) (int64, error) {
	switch x := normalizeValue(v).(type) {
	case int64:
		return x, nil
	case uint64:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("identifier %q: %w", x, err)
		}
		return id, nil
	case nil:
		return 0, fmt.Errorf("identifier is null")
	default:
		return 0, fmt.Errorf("unsupported identifier type %T", v)
	}
}
