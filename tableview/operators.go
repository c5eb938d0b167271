// Package tableview is the tabular view engine: typed per-column filters,
// drag reorderable and hideable columns, and pagination over one in-memory
// result set. An engine instance is owned by one caller and is not safe for
// concurrent use.
package tableview

import (
	"github.com/guileen/finledger/types"
)

// Operator names a filter comparison.
type Operator string

const (
	OpContains           Operator = "contains"
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "notEquals"
	OpStartsWith         Operator = "startsWith"
	OpEndsWith           Operator = "endsWith"
	OpEmpty              Operator = "empty"
	OpNotEmpty           Operator = "notEmpty"
	OpGreaterThan        Operator = "greaterThan"
	OpLessThan           Operator = "lessThan"
	OpGreaterThanOrEqual Operator = "greaterThanOrEqual"
	OpLessThanOrEqual    Operator = "lessThanOrEqual"
	OpBetween            Operator = "between"
	OpBefore             Operator = "before"
	OpAfter              Operator = "after"
)

// OperatorInfo pairs an operator with its display label.
type OperatorInfo struct {
	ID    Operator `json:"id"`
	Label string   `json:"label"`
}

var labels = map[Operator]string{
	OpContains:           "Contains",
	OpEquals:             "Equals",
	OpNotEquals:          "Not equal",
	OpStartsWith:         "Starts with",
	OpEndsWith:           "Ends with",
	OpEmpty:              "Empty",
	OpNotEmpty:           "Not empty",
	OpGreaterThan:        "Greater than",
	OpLessThan:           "Less than",
	OpGreaterThanOrEqual: "Greater or equal",
	OpLessThanOrEqual:    "Less or equal",
	OpBetween:            "Between",
	OpBefore:             "Before",
	OpAfter:              "After",
}

var catalogue = map[types.ColumnType][]Operator{
	types.ColumnTypeText:    {OpContains, OpEquals, OpNotEquals, OpStartsWith, OpEndsWith, OpEmpty, OpNotEmpty},
	types.ColumnTypeNumber:  {OpEquals, OpNotEquals, OpGreaterThan, OpLessThan, OpGreaterThanOrEqual, OpLessThanOrEqual, OpBetween},
	types.ColumnTypeDate:    {OpEquals, OpNotEquals, OpBefore, OpAfter, OpBetween},
	types.ColumnTypeBoolean: {OpEquals, OpNotEquals},
}

// Label returns the display label of op.
func (op Operator) Label() string {
	if l, ok := labels[op]; ok {
		return l
	}
	return "Filter"
}

// KnownOperator reports whether op is any operator of the catalogue.
func KnownOperator(op Operator) bool {
	_, ok := labels[op]
	return ok
}

// Operators lists the operators offered for a column type, in menu order.
func Operators(ct types.ColumnType) []OperatorInfo {
	ops := catalogue[ct]
	if ops == nil {
		ops = catalogue[types.ColumnTypeText]
	}
	out := make([]OperatorInfo, len(ops))
	for i, op := range ops {
		out[i] = OperatorInfo{ID: op, Label: op.Label()}
	}
	return out
}

// ValidOperator reports whether op is offered for ct.
func ValidOperator(ct types.ColumnType, op Operator) bool {
	ops := catalogue[ct]
	if ops == nil {
		ops = catalogue[types.ColumnTypeText]
	}
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}

// DefaultOperator is the operator a new filter on a column of type ct uses.
func DefaultOperator(ct types.ColumnType) Operator {
	switch ct {
	case types.ColumnTypeNumber, types.ColumnTypeDate, types.ColumnTypeBoolean:
		return OpEquals
	default:
		return OpContains
	}
}

// FilterSpec is one column's filter. An empty Value disables the filter
// unless the operator is OpEmpty or OpNotEmpty, which take no operand.
type FilterSpec struct {
	Value    string   `json:"value"`
	Operator Operator `json:"operator"`
}

// Active reports whether the filter constrains rows.
func (f FilterSpec) Active() bool {
	return f.Value != "" || f.Operator == OpEmpty || f.Operator == OpNotEmpty
}

// Filters maps column name to its filter. A missing entry means no filter.
type Filters map[string]FilterSpec

// Active reports whether any filter constrains rows.
func (f Filters) Active() bool {
	for _, spec := range f {
		if spec.Active() {
			return true
		}
	}
	return false
}

func (f Filters) clone() Filters {
	out := make(Filters, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
