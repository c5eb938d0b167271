package tableview

import (
	"strings"
	"time"

	"github.com/guileen/finledger/types"
	"github.com/shopspring/decimal"
)

// Evaluate returns the records that satisfy every active filter, in their
// original order. Columns missing from columnTypes are compared as text.
// Evaluate never modifies records.
func Evaluate(records []types.Record, columnTypes map[string]types.ColumnType, filters Filters, loc *time.Location) []types.Record {
	if loc == nil {
		loc = time.UTC
	}

	type compiled struct {
		column string
		match  func(any) bool
	}
	var active []compiled
	for col, spec := range filters {
		if !spec.Active() {
			continue
		}
		ct, ok := columnTypes[col]
		if !ok {
			ct = types.ColumnTypeText
		}
		op := spec.Operator
		if op == "" {
			op = DefaultOperator(ct)
		}
		active = append(active, compiled{column: col, match: matcher(ct, op, spec.Value, loc)})
	}

	out := make([]types.Record, 0, len(records))
	for _, rec := range records {
		keep := true
		for _, f := range active {
			if !f.match(rec[f.column]) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, rec)
		}
	}
	return out
}

// matcher builds the predicate for one filter. Null cells match only
// OpEmpty. Operands that do not parse make the filter pass every row.
func matcher(ct types.ColumnType, op Operator, value string, loc *time.Location) func(any) bool {
	var m func(any) bool
	switch ct {
	case types.ColumnTypeNumber:
		m = numberMatcher(op, value)
	case types.ColumnTypeDate:
		m = dateMatcher(op, value, loc)
	case types.ColumnTypeBoolean:
		m = booleanMatcher(op, value)
	default:
		m = textMatcher(op, value)
	}
	return func(cell any) bool {
		if cell == nil {
			return op == OpEmpty
		}
		return m(cell)
	}
}

func passAll(any) bool { return true }

func textMatcher(op Operator, value string) func(any) bool {
	needle := strings.ToLower(value)
	return func(cell any) bool {
		s := strings.ToLower(types.FormatValue(cell))
		switch op {
		case OpContains:
			return strings.Contains(s, needle)
		case OpEquals:
			return s == needle
		case OpNotEquals:
			return s != needle
		case OpStartsWith:
			return strings.HasPrefix(s, needle)
		case OpEndsWith:
			return strings.HasSuffix(s, needle)
		case OpEmpty:
			return s == ""
		case OpNotEmpty:
			return s != ""
		default:
			return true
		}
	}
}

func booleanMatcher(op Operator, value string) func(any) bool {
	return func(cell any) bool {
		eq := strings.EqualFold(types.FormatValue(cell), strings.TrimSpace(value))
		switch op {
		case OpEquals:
			return eq
		case OpNotEquals:
			return !eq
		default:
			return true
		}
	}
}

func numberMatcher(op Operator, value string) func(any) bool {
	if op == OpBetween {
		lo, hi, ok := parseNumberRange(value)
		if !ok {
			return passAll
		}
		return func(cell any) bool {
			n, ok := types.ToDecimal(cell)
			return ok && n.GreaterThanOrEqual(lo) && n.LessThanOrEqual(hi)
		}
	}

	operand, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return passAll
	}
	return func(cell any) bool {
		n, ok := types.ToDecimal(cell)
		if !ok {
			return false
		}
		switch op {
		case OpEquals:
			return n.Equal(operand)
		case OpNotEquals:
			return !n.Equal(operand)
		case OpGreaterThan:
			return n.GreaterThan(operand)
		case OpLessThan:
			return n.LessThan(operand)
		case OpGreaterThanOrEqual:
			return n.GreaterThanOrEqual(operand)
		case OpLessThanOrEqual:
			return n.LessThanOrEqual(operand)
		default:
			return true
		}
	}
}

// parseNumberRange splits "min-max" at the first '-' that is not a leading
// sign, so "-5-10" is [-5, 10].
func parseNumberRange(value string) (decimal.Decimal, decimal.Decimal, bool) {
	value = strings.TrimSpace(value)
	if len(value) < 3 {
		return decimal.Decimal{}, decimal.Decimal{}, false
	}
	i := strings.IndexByte(value[1:], '-')
	if i < 0 {
		return decimal.Decimal{}, decimal.Decimal{}, false
	}
	i++
	lo, err := decimal.NewFromString(strings.TrimSpace(value[:i]))
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, false
	}
	hi, err := decimal.NewFromString(strings.TrimSpace(value[i+1:]))
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, false
	}
	return lo, hi, true
}

func dateMatcher(op Operator, value string, loc *time.Location) func(any) bool {
	if op == OpBetween {
		start, end, ok := parseDateRange(value, loc)
		if !ok {
			return passAll
		}
		return func(cell any) bool {
			t, ok := types.ToTime(cell, loc)
			if !ok {
				return false
			}
			day := startOfDay(t, loc)
			return !day.Before(start) && !day.After(end)
		}
	}

	operand, ok := types.ParseDateTime(value, loc)
	if !ok {
		return passAll
	}
	target := startOfDay(operand, loc)
	return func(cell any) bool {
		t, ok := types.ToTime(cell, loc)
		if !ok {
			return false
		}
		day := startOfDay(t, loc)
		switch op {
		case OpEquals:
			return day.Equal(target)
		case OpNotEquals:
			return !day.Equal(target)
		case OpBefore:
			return day.Before(target)
		case OpAfter:
			return day.After(target)
		default:
			return true
		}
	}
}

// parseDateRange parses "start,end". The end bound is inclusive through
// 23:59:59.999 of its day.
func parseDateRange(value string, loc *time.Location) (time.Time, time.Time, bool) {
	startStr, endStr, found := strings.Cut(value, ",")
	if !found {
		return time.Time{}, time.Time{}, false
	}
	start, ok := types.ParseDateTime(startStr, loc)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	end, ok := types.ParseDateTime(endStr, loc)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return startOfDay(start, loc), endOfDay(end, loc), true
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func endOfDay(t time.Time, loc *time.Location) time.Time {
	return startOfDay(t, loc).AddDate(0, 0, 1).Add(-time.Millisecond)
}
