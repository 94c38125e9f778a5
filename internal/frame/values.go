package frame

import (
	"encoding/json"
	"math/big"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// civilTime is satisfied by date-time values that carry no zone, such as
// civil.DateTime returned by BigQuery for DATETIME columns.
type civilTime interface {
	In(loc *time.Location) time.Time
}

// AsFloat64 interprets v as a number. It reports false for NULL and for
// values that do not parse as a number.
func AsFloat64(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case bool:
		// booleans are not numbers for quality checks
		return 0, false
	case []byte:
		v = string(t)
	case *big.Rat:
		if t == nil {
			return 0, false
		}
		f, _ := t.Float64()
		return f, true
	case json.Marshaler:
		// numeric wrapper types (pgtype.Numeric and friends) render as JSON numbers
		b, err := t.MarshalJSON()
		if err != nil {
			return 0, false
		}
		v = strings.Trim(string(b), `"`)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return f, true
}

// AsInt64 interprets v as an integer. Fractional numbers are truncated.
func AsInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case nil, bool:
		return 0, false
	case int64:
		return t, true
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	}
	f, ok := AsFloat64(v)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// AsTime interprets v as an instant. Strings are parsed with the layouts
// cast understands (RFC 3339, "2006-01-02 15:04:05", dates, ...). Zone-less
// values are taken as UTC.
func AsTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case []byte:
		v = string(t)
	case civilTime:
		return t.In(time.UTC), true
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return time.Time{}, false
	}
	ts, err := cast.ToTimeInDefaultLocationE(v, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Coerce converts v to the Go type that backends expect for kind: int64,
// float64, bool, string, time.Time or []byte. NULL stays nil and values that
// do not convert are returned unchanged so the backend reports them.
func Coerce(kind Kind, v any) any {
	if v == nil {
		return nil
	}
	switch kind {
	case Int:
		if n, ok := AsInt64(v); ok {
			return n
		}
	case Float:
		if n, ok := AsFloat64(v); ok {
			return n
		}
	case Timestamp:
		if ts, ok := AsTime(v); ok {
			return ts
		}
	case Bool:
		if b, err := cast.ToBoolE(v); err == nil {
			return b
		}
	case String:
		switch t := v.(type) {
		case string:
			return t
		case []byte:
			return string(t)
		}
		if s, err := cast.ToStringE(v); err == nil {
			return s
		}
	case Bytes:
		if s, ok := v.(string); ok {
			return []byte(s)
		}
	}
	return v
}

// CoerceRows returns copies of rows with every value passed through Coerce
// for its column kind. The input rows are not modified.
func CoerceRows(cols []Column, rows [][]any) [][]any {
	out := make([][]any, len(rows))
	for r, row := range rows {
		cp := make([]any, len(row))
		for i, v := range row {
			if i < len(cols) {
				v = Coerce(cols[i].Kind, v)
			}
			cp[i] = v
		}
		out[r] = cp
	}
	return out
}
