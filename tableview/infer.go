package tableview

import (
	"time"

	"github.com/guileen/finledger/types"
)

// InferColumnType classifies a sample value: native numbers are number,
// literal booleans boolean, native times and ISO-8601 strings date, all else
// text. Numeric strings are never dates.
func InferColumnType(v any, loc *time.Location) types.ColumnType {
	switch x := v.(type) {
	case bool:
		return types.ColumnTypeBoolean
	case time.Time, *time.Time:
		return types.ColumnTypeDate
	case string:
		if _, ok := types.ParseDateTime(x, loc); ok {
			return types.ColumnTypeDate
		}
		return types.ColumnTypeText
	}
	if types.IsNumeric(v) {
		return types.ColumnTypeNumber
	}
	return types.ColumnTypeText
}

// InferColumnTypes samples the first record for every column.
func InferColumnTypes(records []types.Record, columns []string, loc *time.Location) map[string]types.ColumnType {
	out := make(map[string]types.ColumnType, len(columns))
	var first types.Record
	if len(records) > 0 {
		first = records[0]
	}
	for _, col := range columns {
		out[col] = InferColumnType(first[col], loc)
	}
	return out
}
