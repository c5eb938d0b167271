package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// dateLayouts are the ISO-8601 shapes accepted for date columns. All of them
// require '-' separated year-month-day, so bare numbers never parse as dates.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDateTime parses an ISO-8601 date or date-time. Values without a zone
// are interpreted in loc.
func ParseDateTime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) < len("2006-01-02") {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ToDecimal converts any numeric representation (Go numbers, json.Number,
// decimal.Decimal, numeric strings) to a decimal.
func ToDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case json.Number:
		d, err := decimal.NewFromString(string(n))
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		return d, err == nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(n), true
	case float32:
		return ToDecimal(float64(n))
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int8:
		return decimal.NewFromInt(int64(n)), true
	case int16:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case uint:
		return fromUint(uint64(n)), true
	case uint8:
		return fromUint(uint64(n)), true
	case uint16:
		return fromUint(uint64(n)), true
	case uint32:
		return fromUint(uint64(n)), true
	case uint64:
		return fromUint(n), true
	}
	return decimal.Decimal{}, false
}

func fromUint(n uint64) decimal.Decimal {
	return decimal.RequireFromString(strconv.FormatUint(n, 10))
}

// IsNumeric reports whether v is a native numeric value. Strings do not count.
func IsNumeric(v any) bool {
	switch v.(type) {
	case decimal.Decimal, json.Number,
		float32, float64,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

// ToTime converts a native time or an ISO-8601 string to a time.
func ToTime(v any, loc *time.Location) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		return ParseDateTime(t, loc)
	}
	return time.Time{}, false
}

// FormatValue renders a value as plain text, the form text filters and
// boolean filters compare against.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return string(x)
	case decimal.Decimal:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

func coerceNumber(v any, scale int32) (json.Number, error) {
	d, ok := ToDecimal(v)
	if !ok {
		return "", fmt.Errorf("not a number: %v", v)
	}
	return json.Number(d.StringFixed(scale)), nil
}

func coerceBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(b))
	}
	if d, ok := ToDecimal(v); ok {
		switch {
		case d.IsZero():
			return false, nil
		case d.Equal(decimal.NewFromInt(1)):
			return true, nil
		}
	}
	return false, fmt.Errorf("not a boolean: %v", v)
}

func coerceDate(v any) (time.Time, error) {
	t, ok := ToTime(v, time.UTC)
	if !ok {
		return time.Time{}, fmt.Errorf("not an ISO-8601 date: %v", v)
	}
	return t.UTC(), nil
}

func coerceText(v any, maxLen int) (string, error) {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case bool, json.Number, decimal.Decimal, float64, int, int64:
		s = FormatValue(x)
	default:
		return "", fmt.Errorf("not text: %v", v)
	}
	if maxLen > 0 && len([]rune(s)) > maxLen {
		return "", fmt.Errorf("longer than %d characters", maxLen)
	}
	return s, nil
}
