package types

import "strings"

// ColumnType is the semantic type of a record column
type ColumnType string

const (
	ColumnTypeText    ColumnType = "text"
	ColumnTypeNumber  ColumnType = "number"
	ColumnTypeBoolean ColumnType = "boolean"
	ColumnTypeDate    ColumnType = "date"
)

// IsValidColumnType checks if a column type is valid
func IsValidColumnType(typ ColumnType) bool {
	switch typ {
	case ColumnTypeText, ColumnTypeNumber, ColumnTypeBoolean, ColumnTypeDate:
		return true
	default:
		return false
	}
}

// RecordType names one of the four kinds of finance records
type RecordType string

const (
	RecordTypeAsset   RecordType = "asset"
	RecordTypeDebt    RecordType = "debt"
	RecordTypeIncome  RecordType = "income"
	RecordTypeExpense RecordType = "expense"
)

// RecordTypes lists every record type in display order.
var RecordTypes = []RecordType{RecordTypeAsset, RecordTypeDebt, RecordTypeIncome, RecordTypeExpense}

var recordTypeAliases = map[string]RecordType{
	"asset":    RecordTypeAsset,
	"assets":   RecordTypeAsset,
	"varlik":   RecordTypeAsset,
	"debt":     RecordTypeDebt,
	"debts":    RecordTypeDebt,
	"borc":     RecordTypeDebt,
	"income":   RecordTypeIncome,
	"incomes":  RecordTypeIncome,
	"gelir":    RecordTypeIncome,
	"expense":  RecordTypeExpense,
	"expenses": RecordTypeExpense,
	"gider":    RecordTypeExpense,
}

// ParseRecordType resolves a record type from its name, plural, or the
// legacy route names.
func ParseRecordType(s string) (RecordType, bool) {
	rt, ok := recordTypeAliases[strings.ToLower(strings.TrimSpace(s))]
	return rt, ok
}

func (rt RecordType) String() string {
	return string(rt)
}
