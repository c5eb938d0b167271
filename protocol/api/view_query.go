package api

import (
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/guileen/finledger/errors"
	"github.com/guileen/finledger/tableview"
)

const filterParamPrefix = "filter."

// ColumnMove drops column From onto column To.
type ColumnMove struct {
	From string
	To   string
}

// ViewQuery is the table state a view request asks for: filters, column
// layout and the page to show.
type ViewQuery struct {
	Filters tableview.Filters
	Hide    []string
	Move    []ColumnMove
	Rows    tableview.PageSize
	Page    int
	Last    bool
}

// ParseViewQuery reads filter.<col>=<op>:<value>, hide=<col>,
// move=<a>:<b>, rows=<n|all> and page=<n|last>. A filter value without a
// known operator prefix uses the column's default operator.
func ParseViewQuery(q url.Values) (ViewQuery, error) {
	const op = "api.ParseViewQuery"
	vq := ViewQuery{Filters: tableview.Filters{}}

	for key, values := range q {
		col, ok := strings.CutPrefix(key, filterParamPrefix)
		if !ok || len(values) == 0 {
			continue
		}
		if col == "" {
			return vq, apperrors.NewValidationError(op, "filter parameter without a column")
		}
		vq.Filters[col] = ParseFilterSpec(values[len(values)-1])
	}

	vq.Hide = q["hide"]

	for _, m := range q["move"] {
		from, to, found := strings.Cut(m, ":")
		if !found || from == "" || to == "" {
			return vq, apperrors.NewValidationErrorf(op, "move %q is not <from>:<to>", m)
		}
		vq.Move = append(vq.Move, ColumnMove{From: from, To: to})
	}

	if s := q.Get("rows"); s != "" {
		size, err := tableview.ParsePageSize(s)
		if err != nil {
			return vq, apperrors.Wrap(err, apperrors.ErrCodeValidation, op)
		}
		vq.Rows = size
	}

	if s := q.Get("page"); s != "" {
		if strings.EqualFold(s, "last") {
			vq.Last = true
		} else {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 {
				return vq, apperrors.NewValidationErrorf(op, "page %q is not a positive number", s)
			}
			vq.Page = n
		}
	}
	return vq, nil
}

// ParseFilterSpec splits "<op>:<value>". Text before the first ':' counts as
// an operator only if it names one, so "12:30" stays a plain value.
func ParseFilterSpec(s string) tableview.FilterSpec {
	if name, value, found := strings.Cut(s, ":"); found && tableview.KnownOperator(tableview.Operator(name)) {
		return tableview.FilterSpec{Operator: tableview.Operator(name), Value: value}
	}
	return tableview.FilterSpec{Value: s}
}

// FormatFilterSpec is the inverse of ParseFilterSpec.
func FormatFilterSpec(spec tableview.FilterSpec) string {
	if spec.Operator == "" {
		return spec.Value
	}
	return string(spec.Operator) + ":" + spec.Value
}

// Encode renders the query back into URL parameters.
func (vq ViewQuery) Encode() url.Values {
	q := url.Values{}
	cols := make([]string, 0, len(vq.Filters))
	for col := range vq.Filters {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		q.Set(filterParamPrefix+col, FormatFilterSpec(vq.Filters[col]))
	}
	for _, col := range vq.Hide {
		q.Add("hide", col)
	}
	for _, m := range vq.Move {
		q.Add("move", m.From+":"+m.To)
	}
	if vq.Rows != 0 {
		q.Set("rows", vq.Rows.String())
	}
	switch {
	case vq.Last:
		q.Set("page", "last")
	case vq.Page > 0:
		q.Set("page", strconv.Itoa(vq.Page))
	}
	return q
}

// Apply drives a loaded view to the requested state. Column layout is
// applied first so that paging happens last, after filters reset it.
// Unknown columns and operators are validation errors; hiding the last
// visible column is ignored as the view ignores it.
func (vq ViewQuery) Apply(v *tableview.View) error {
	const op = "api.ViewQuery.Apply"
	columns := v.Columns()
	known := func(col string) bool { return slices.Contains(columns, col) }

	for _, col := range vq.Hide {
		if !known(col) {
			return apperrors.NewValidationErrorf(op, "unknown column %q", col)
		}
		v.SetColumnVisible(col, false)
	}
	for _, m := range vq.Move {
		if !known(m.From) || !known(m.To) {
			return apperrors.NewValidationErrorf(op, "unknown column in move %s:%s", m.From, m.To)
		}
		v.MoveColumn(m.From, m.To)
	}

	cols := make([]string, 0, len(vq.Filters))
	for col := range vq.Filters {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		if !known(col) {
			return apperrors.NewValidationErrorf(op, "unknown filter column %q", col)
		}
		if !v.ApplyFilter(col, vq.Filters[col]) {
			return apperrors.NewValidationErrorf(op, "operator %q is not available for column %q", vq.Filters[col].Operator, col)
		}
	}

	if vq.Rows != 0 && !v.SetPageSize(vq.Rows) {
		return apperrors.NewValidationErrorf(op, "page size %s is not available", vq.Rows)
	}
	switch {
	case vq.Last:
		v.LastPage()
	case vq.Page > 0:
		v.SetPage(vq.Page)
	}
	return nil
}
