package resource

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/jackc/pgx/v5/pgtype"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/modelio/internal/repo"
	"github.com/pkordes/modelio/internal/schema"
)

const (
	// DefaultDateTimeLayout is the export layout for date-time values.
	DefaultDateTimeLayout = "2006-01-02 15:04:05"

	dateLayout  = "2006-01-02"
	clockLayout = "15:04:05"
)

// Options carries the display settings of exports and the matching parse
// settings of imports.
type Options struct {
	// Location is the zone date-time values are shown in and parsed in.
	// Nil means UTC.
	Location *time.Location

	// DateTimeLayout formats date-time values; defaults to DefaultDateTimeLayout.
	DateTimeLayout string
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

func (o Options) layout() string {
	if o.DateTimeLayout == "" {
		return DefaultDateTimeLayout
	}
	return o.DateTimeLayout
}

// nullTokens are the cell values treated as absent, including the sentinels
// spreadsheet and dataframe tools write for missing numbers and times.
var nullTokens = map[string]bool{
	"":     true,
	"nan":  true,
	"NaN":  true,
	"NaT":  true,
	"<NA>": true,
	"NULL": true,
	"null": true,
}

func isNull(s string) bool {
	return nullTokens[strings.TrimSpace(s)]
}

// displayValue converts a stored value of a normal field to its cell value.
func displayValue(v any, t schema.FieldType, opts Options) (any, error) {
	if v == nil {
		if t.Temporal() {
			return "", nil
		}
		return nil, nil
	}
	switch t {
	case schema.TypeDateTime:
		ts, ok, err := asTime(v, time.UTC)
		if err != nil || !ok {
			return v, err
		}
		return ts.In(opts.location()).Format(opts.layout()), nil
	case schema.TypeDate:
		if d, ok := v.(openapi_types.Date); ok {
			return d.Format(dateLayout), nil
		}
		ts, ok, err := asTime(v, time.UTC)
		if err != nil || !ok {
			return v, err
		}
		return ts.Format(dateLayout), nil
	case schema.TypeTime:
		return displayClock(v)
	case schema.TypeBool:
		if n, ok := v.(int64); ok {
			return n != 0, nil
		}
	case schema.TypeFloat:
		if n, ok := v.(int64); ok {
			return float64(n), nil
		}
	}
	return v, nil
}

// asTime reads a stored date-time in any driver representation. Stored text
// without an offset is taken to be in loc. ok is false for types it does not know.
func asTime(v any, loc *time.Location) (t time.Time, ok bool, err error) {
	switch x := v.(type) {
	case time.Time:
		return x, true, nil
	case int64:
		return time.Unix(x, 0), true, nil
	case float64:
		sec, frac := math.Modf(x)
		return time.Unix(int64(sec), int64(frac*1e9)), true, nil
	case string:
		if strings.TrimSpace(x) == "" {
			return time.Time{}, false, nil
		}
		t, err := dateparse.ParseIn(strings.TrimSpace(x), loc)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("stored value %q: %w", x, err)
		}
		return t, true, nil
	}
	return time.Time{}, false, nil
}

func displayClock(v any) (any, error) {
	switch x := v.(type) {
	case pgtype.Time:
		if !x.Valid {
			return "", nil
		}
		x.Microseconds -= x.Microseconds % int64(time.Second/time.Microsecond)
		return repo.FormatClock(x), nil
	case time.Time:
		return x.Format(clockLayout), nil
	case string:
		c, err := parseClock(x)
		if err != nil {
			return x, nil
		}
		return displayClock(c)
	}
	return v, nil
}

var clockLayouts = []string{
	"15:04:05",
	"15:04:05.999999999",
	"15:04",
	"3:04:05 PM",
	"3:04 PM",
	"3:04PM",
	"3PM",
}

// parseClock parses a time of day.
func parseClock(s string) (pgtype.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return clockOf(t), nil
		}
	}
	// Full timestamps keep only their clock part.
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return pgtype.Time{}, fmt.Errorf("invalid time %q", s)
	}
	return clockOf(t), nil
}

func clockOf(t time.Time) pgtype.Time {
	d := time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
	return pgtype.Time{Microseconds: d.Microseconds(), Valid: true}
}

// parseDate parses a calendar date.
func parseDate(s string) (openapi_types.Date, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		if t, err = dateparse.ParseIn(s, time.UTC); err != nil {
			return openapi_types.Date{}, fmt.Errorf("invalid date %q", s)
		}
	}
	return openapi_types.Date{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}, nil
}

// parseDateTime parses a date-time the way it was exported first, falling
// back to a permissive parser. Values without an offset are read in the
// export location.
func parseDateTime(s string, opts Options) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(opts.layout(), s, opts.location()); err == nil {
		return t, nil
	}
	t, err := dateparse.ParseIn(s, opts.location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid datetime %q", s)
	}
	return t, nil
}

// coerce converts a non-null cell to the value stored for type t.
func coerce(s string, t schema.FieldType, opts Options) (any, error) {
	switch t {
	case schema.TypeText:
		return s, nil
	case schema.TypeInteger:
		s = strings.TrimSpace(s)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		// Spreadsheets often store whole numbers as 3.0.
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return nil, fmt.Errorf("invalid integer %q", s)
		}
		return int64(f), nil
	case schema.TypeFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", s)
		}
		return f, nil
	case schema.TypeBool:
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "1", "t", "true", "y", "yes":
			return true, nil
		case "0", "f", "false", "n", "no":
			return false, nil
		}
		return nil, fmt.Errorf("invalid bool %q", s)
	case schema.TypeDateTime:
		return parseDateTime(s, opts)
	case schema.TypeDate:
		return parseDate(s)
	case schema.TypeTime:
		return parseClock(s)
	}
	return nil, fmt.Errorf("unsupported field type %s", t)
}
