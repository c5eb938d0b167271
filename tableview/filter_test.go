package tableview

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/guileen/finledger/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ledgerRows() []types.Record {
	return []types.Record{
		{"name": "Rent", "amount": json.Number("100"), "type": "debt", "due": "2024-01-10", "paid": true},
		{"name": "Salary", "amount": json.Number("250"), "type": "income", "due": "2024-01-15T18:30:00Z", "paid": false},
		{"name": "Phone bill", "amount": json.Number("50"), "type": "debt", "due": "2024-02-01", "paid": nil},
	}
}

var ledgerTypes = map[string]types.ColumnType{
	"name":   types.ColumnTypeText,
	"amount": types.ColumnTypeNumber,
	"type":   types.ColumnTypeText,
	"due":    types.ColumnTypeDate,
	"paid":   types.ColumnTypeBoolean,
}

func names(records []types.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r["name"].(string))
	}
	return out
}

func TestEvaluateWithoutFiltersIsIdentity(t *testing.T) {
	rows := ledgerRows()
	assert.Equal(t, rows, Evaluate(rows, ledgerTypes, nil, time.UTC))
	assert.Equal(t, rows, Evaluate(rows, ledgerTypes, Filters{"name": {Operator: OpContains}}, time.UTC))
	assert.Equal(t, []types.Record{}, Evaluate(nil, ledgerTypes, Filters{"name": {Value: "x"}}, time.UTC))
}

func TestEvaluateText(t *testing.T) {
	rows := ledgerRows()
	tests := []struct {
		name string
		spec FilterSpec
		want []string
	}{
		{"contains ignores case", FilterSpec{Value: "BILL", Operator: OpContains}, []string{"Phone bill"}},
		{"default operator is contains", FilterSpec{Value: "a"}, []string{"Salary"}},
		{"equals", FilterSpec{Value: "rent", Operator: OpEquals}, []string{"Rent"}},
		{"not equals", FilterSpec{Value: "rent", Operator: OpNotEquals}, []string{"Salary", "Phone bill"}},
		{"starts with", FilterSpec{Value: "sa", Operator: OpStartsWith}, []string{"Salary"}},
		{"ends with", FilterSpec{Value: "ILL", Operator: OpEndsWith}, []string{"Phone bill"}},
		{"not empty", FilterSpec{Operator: OpNotEmpty}, []string{"Rent", "Salary", "Phone bill"}},
		{"empty", FilterSpec{Operator: OpEmpty}, []string{}},
		{"unknown operator passes", FilterSpec{Value: "zzz", Operator: "soundsLike"}, []string{"Rent", "Salary", "Phone bill"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(rows, ledgerTypes, Filters{"name": tt.spec}, time.UTC)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestEvaluateEqualsHasNoFalseResults(t *testing.T) {
	rows := ledgerRows()
	got := Evaluate(rows, ledgerTypes, Filters{"type": {Value: "debt", Operator: OpEquals}}, time.UTC)
	for _, r := range got {
		assert.Equal(t, "debt", r["type"])
	}
	want := 0
	for _, r := range rows {
		if r["type"] == "debt" {
			want++
		}
	}
	assert.Len(t, got, want)
}

func TestEvaluateNumber(t *testing.T) {
	rows := ledgerRows()
	tests := []struct {
		name string
		spec FilterSpec
		want []string
	}{
		{"between keeps order", FilterSpec{Value: "60-300", Operator: OpBetween}, []string{"Rent", "Salary"}},
		{"between is inclusive", FilterSpec{Value: "50-100", Operator: OpBetween}, []string{"Rent", "Phone bill"}},
		{"between with negative lower bound", FilterSpec{Value: "-5-60", Operator: OpBetween}, []string{"Phone bill"}},
		{"between with spaces", FilterSpec{Value: " 100 - 250 ", Operator: OpBetween}, []string{"Rent", "Salary"}},
		{"equals compares numerically", FilterSpec{Value: "100.00", Operator: OpEquals}, []string{"Rent"}},
		{"not equals", FilterSpec{Value: "100", Operator: OpNotEquals}, []string{"Salary", "Phone bill"}},
		{"greater than", FilterSpec{Value: "100", Operator: OpGreaterThan}, []string{"Salary"}},
		{"greater or equal", FilterSpec{Value: "100", Operator: OpGreaterThanOrEqual}, []string{"Rent", "Salary"}},
		{"less than", FilterSpec{Value: "100", Operator: OpLessThan}, []string{"Phone bill"}},
		{"less or equal", FilterSpec{Value: "100", Operator: OpLessThanOrEqual}, []string{"Rent", "Phone bill"}},
		{"malformed operand passes", FilterSpec{Value: "lots", Operator: OpGreaterThan}, []string{"Rent", "Salary", "Phone bill"}},
		{"malformed range passes", FilterSpec{Value: "60-", Operator: OpBetween}, []string{"Rent", "Salary", "Phone bill"}},
		{"range without separator passes", FilterSpec{Value: "60", Operator: OpBetween}, []string{"Rent", "Salary", "Phone bill"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(rows, ledgerTypes, Filters{"amount": tt.spec}, time.UTC)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestEvaluateNumberRangeIsInclusive(t *testing.T) {
	var rows []types.Record
	for i := -10; i <= 10; i++ {
		rows = append(rows, types.Record{"n": i})
	}
	got := Evaluate(rows, map[string]types.ColumnType{"n": types.ColumnTypeNumber}, Filters{"n": {Value: "-3--1", Operator: OpBetween}}, time.UTC)
	require.Len(t, got, 3)
	assert.Equal(t, -3, got[0]["n"])
	assert.Equal(t, -1, got[2]["n"])
}

func TestEvaluateNumberSkipsUnparseableCells(t *testing.T) {
	rows := []types.Record{{"n": "abc"}, {"n": json.Number("5")}}
	got := Evaluate(rows, map[string]types.ColumnType{"n": types.ColumnTypeNumber}, Filters{"n": {Value: "1", Operator: OpGreaterThan}}, time.UTC)
	assert.Equal(t, []types.Record{{"n": json.Number("5")}}, got)
}

func TestEvaluateDate(t *testing.T) {
	rows := ledgerRows()
	tests := []struct {
		name string
		spec FilterSpec
		want []string
	}{
		{"equals compares whole days", FilterSpec{Value: "2024-01-15", Operator: OpEquals}, []string{"Salary"}},
		{"not equals", FilterSpec{Value: "2024-01-15", Operator: OpNotEquals}, []string{"Rent", "Phone bill"}},
		{"before", FilterSpec{Value: "2024-01-15", Operator: OpBefore}, []string{"Rent"}},
		{"after", FilterSpec{Value: "2024-01-15", Operator: OpAfter}, []string{"Phone bill"}},
		{"between includes the whole end day", FilterSpec{Value: "2024-01-10,2024-01-15", Operator: OpBetween}, []string{"Rent", "Salary"}},
		{"between with one day", FilterSpec{Value: "2024-02-01,2024-02-01", Operator: OpBetween}, []string{"Phone bill"}},
		{"malformed range passes", FilterSpec{Value: "2024-01-10", Operator: OpBetween}, []string{"Rent", "Salary", "Phone bill"}},
		{"malformed date passes", FilterSpec{Value: "soon", Operator: OpBefore}, []string{"Rent", "Salary", "Phone bill"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(rows, ledgerTypes, Filters{"due": tt.spec}, time.UTC)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestEvaluateDateUsesLocation(t *testing.T) {
	istanbul := time.FixedZone("TRT", 3*60*60)
	rows := []types.Record{{"at": time.Date(2024, 1, 15, 22, 0, 0, 0, time.UTC)}}
	colTypes := map[string]types.ColumnType{"at": types.ColumnTypeDate}
	filter := Filters{"at": {Value: "2024-01-16", Operator: OpEquals}}

	assert.Empty(t, Evaluate(rows, colTypes, filter, time.UTC))
	assert.Len(t, Evaluate(rows, colTypes, filter, istanbul), 1)
}

func TestEvaluateBoolean(t *testing.T) {
	rows := ledgerRows()
	got := Evaluate(rows, ledgerTypes, Filters{"paid": {Value: "TRUE", Operator: OpEquals}}, time.UTC)
	assert.Equal(t, []string{"Rent"}, names(got))

	got = Evaluate(rows, ledgerTypes, Filters{"paid": {Value: "true", Operator: OpNotEquals}}, time.UTC)
	assert.Equal(t, []string{"Salary"}, names(got))
}

func TestEvaluateNullMatchesOnlyEmpty(t *testing.T) {
	rows := []types.Record{{"note": nil}, {"note": ""}, {"note": "x"}}
	colTypes := map[string]types.ColumnType{"note": types.ColumnTypeText}

	assert.Len(t, Evaluate(rows, colTypes, Filters{"note": {Operator: OpEmpty}}, time.UTC), 2)
	assert.Len(t, Evaluate(rows, colTypes, Filters{"note": {Operator: OpNotEmpty}}, time.UTC), 1)
	assert.Len(t, Evaluate(rows, colTypes, Filters{"note": {Value: "x", Operator: OpNotEquals}}, time.UTC), 1)
}

func TestEvaluateCombinesFilters(t *testing.T) {
	rows := ledgerRows()
	got := Evaluate(rows, ledgerTypes, Filters{
		"type":   {Value: "debt", Operator: OpEquals},
		"amount": {Value: "60", Operator: OpGreaterThan},
	}, time.UTC)
	assert.Equal(t, []string{"Rent"}, names(got))
}

func TestEvaluateDoesNotModifyInput(t *testing.T) {
	rows := ledgerRows()
	before := ledgerRows()
	Evaluate(rows, ledgerTypes, Filters{"type": {Value: "debt", Operator: OpEquals}}, time.UTC)
	assert.Equal(t, before, rows)
}

func TestOperatorCatalogue(t *testing.T) {
	assert.True(t, ValidOperator(types.ColumnTypeNumber, OpBetween))
	assert.False(t, ValidOperator(types.ColumnTypeText, OpBetween))
	assert.True(t, ValidOperator(types.ColumnTypeDate, OpBefore))
	assert.False(t, ValidOperator(types.ColumnTypeBoolean, OpContains))
	assert.True(t, ValidOperator("", OpContains))

	assert.Equal(t, OpContains, DefaultOperator(types.ColumnTypeText))
	assert.Equal(t, OpEquals, DefaultOperator(types.ColumnTypeNumber))

	ops := Operators(types.ColumnTypeBoolean)
	require.Len(t, ops, 2)
	assert.Equal(t, OperatorInfo{ID: OpEquals, Label: "Equals"}, ops[0])
	assert.Equal(t, "Filter", Operator("custom").Label())
}

func TestInferColumnType(t *testing.T) {
	tests := []struct {
		in   any
		want types.ColumnType
	}{
		{json.Number("12.5"), types.ColumnTypeNumber},
		{42, types.ColumnTypeNumber},
		{true, types.ColumnTypeBoolean},
		{"2024-01-15", types.ColumnTypeDate},
		{time.Now(), types.ColumnTypeDate},
		{"12345", types.ColumnTypeText},
		{"hello", types.ColumnTypeText},
		{nil, types.ColumnTypeText},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InferColumnType(tt.in, time.UTC), "%v", tt.in)
	}
}
