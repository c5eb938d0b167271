package tableview

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"slices"
	"sort"
	"time"

	"github.com/guileen/finledger/types"
	"github.com/shopspring/decimal"
)

// State is the lifecycle state of a View.
type State int

const (
	// StateEmpty has no rows.
	StateEmpty State = iota
	// StatePopulated has rows and no active filter.
	StatePopulated
	// StateFiltered has rows and at least one active filter.
	StateFiltered
	// StateInvalid holds a result set that failed to load. Every operation
	// is a no-op until the next successful Load.
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePopulated:
		return "populated"
	case StateFiltered:
		return "filtered"
	case StateInvalid:
		return "invalid"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrFormat is wrapped by every load failure.
var ErrFormat = errors.New("data is not a list of flat records")

// Cell addresses one rendered cell by its row on the current page and its
// column.
type Cell struct {
	Row    int
	Column string
}

// View composes filtering, column management and pagination over one
// result set.
type View struct {
	schema *types.Schema
	loc    *time.Location

	records     []types.Record
	columnTypes map[string]types.ColumnType
	columns     *ColumnManager
	filters     Filters
	pager       *Paginator
	filtered    []types.Record

	err     error
	invalid bool
	hover   *Cell
}

// Option configures a View.
type Option func(*View)

// WithSchema declares column order and types instead of inferring them from
// the first record.
func WithSchema(schema types.Schema) Option {
	return func(v *View) {
		v.schema = &schema
	}
}

// WithLocation sets the time zone that dates without an offset are read in
// and that whole-day comparisons and display use. The default is UTC.
func WithLocation(loc *time.Location) Option {
	return func(v *View) {
		if loc != nil {
			v.loc = loc
		}
	}
}

func New(opts ...Option) *View {
	v := &View{
		loc:         time.UTC,
		columnTypes: map[string]types.ColumnType{},
		columns:     NewColumnManager(nil),
		filters:     Filters{},
		pager:       NewPaginator(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Load replaces the result set. Columns are recomputed when the key set
// changed; filters and pagination always reset. A record holding a nested
// map or list puts the view in StateInvalid.
func (v *View) Load(records []types.Record) error {
	for i, rec := range records {
		if rec == nil {
			return v.fail(fmt.Errorf("%w: element %d is not an object", ErrFormat, i))
		}
		for k, val := range rec {
			if !flatValue(val) {
				return v.fail(fmt.Errorf("%w: element %d field %q holds a nested value", ErrFormat, i, k))
			}
		}
	}

	var keys []string
	if len(records) > 0 {
		keys = make([]string, 0, len(records[0]))
		for k := range records[0] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}
	v.accept(records, keys)
	return nil
}

// LoadJSON replaces the result set with a JSON array of flat objects. Column
// order follows the key order of the first object. Numbers are kept exact as
// json.Number.
func (v *View) LoadJSON(data []byte) error {
	records, keys, err := decodeRecords(data)
	if err != nil {
		return v.fail(err)
	}
	v.accept(records, keys)
	return nil
}

func (v *View) fail(err error) error {
	v.records = nil
	v.filtered = nil
	v.filters = Filters{}
	v.pager.Reset()
	v.hover = nil
	v.err = err
	v.invalid = true
	return err
}

func (v *View) accept(records []types.Record, firstKeys []string) {
	v.records = records
	v.err = nil
	v.invalid = false
	v.hover = nil

	cols := v.orderColumns(firstKeys)
	if len(records) > 0 || v.schema != nil {
		v.columns.Sync(cols)
	}
	v.columnTypes = v.typesFor(cols)

	v.filters = Filters{}
	v.pager.Reset()
	v.refilter()
}

// orderColumns puts schema columns first in declared order, then any other
// keys of the first record in encounter order.
func (v *View) orderColumns(firstKeys []string) []string {
	if v.schema == nil {
		return firstKeys
	}
	present := make(map[string]bool, len(firstKeys))
	for _, k := range firstKeys {
		present[k] = true
	}
	var cols []string
	declared := map[string]bool{}
	for _, name := range v.schema.ColumnNames() {
		declared[name] = true
		if len(firstKeys) == 0 || present[name] {
			cols = append(cols, name)
		}
	}
	for _, k := range firstKeys {
		if !declared[k] {
			cols = append(cols, k)
		}
	}
	return cols
}

func (v *View) typesFor(cols []string) map[string]types.ColumnType {
	inferred := InferColumnTypes(v.records, cols, v.loc)
	if v.schema == nil {
		return inferred
	}
	declared := v.schema.ColumnTypes()
	for col, ct := range declared {
		if _, ok := inferred[col]; ok {
			inferred[col] = ct
		}
	}
	return inferred
}

func (v *View) refilter() {
	v.hover = nil
	v.filtered = Evaluate(v.records, v.columnTypes, v.filters, v.loc)
}

// State reports the lifecycle state.
func (v *View) State() State {
	switch {
	case v.invalid:
		return StateInvalid
	case len(v.records) == 0:
		return StateEmpty
	case v.filters.Active():
		return StateFiltered
	default:
		return StatePopulated
	}
}

// Err returns the load error of an invalid view.
func (v *View) Err() error {
	return v.err
}

// Columns returns every column in display order.
func (v *View) Columns() []string {
	return v.columns.Order()
}

// VisibleColumns returns the visible columns in display order.
func (v *View) VisibleColumns() []string {
	return v.columns.VisibleColumns()
}

// ColumnType returns the type a column is filtered and displayed as.
func (v *View) ColumnType(col string) types.ColumnType {
	if ct, ok := v.columnTypes[col]; ok {
		return ct
	}
	return types.ColumnTypeText
}

func (v *View) hasColumn(col string) bool {
	_, ok := v.columnTypes[col]
	return ok
}

// Filters returns a copy of the filter set.
func (v *View) Filters() Filters {
	return v.filters.clone()
}

// SetFilter sets a column's operand, keeping its operator or the type's
// default. It returns to page 1.
func (v *View) SetFilter(col, value string) bool {
	if v.invalid || !v.hasColumn(col) {
		return false
	}
	spec := v.filters[col]
	if spec.Operator == "" {
		spec.Operator = DefaultOperator(v.ColumnType(col))
	}
	spec.Value = value
	v.filters[col] = spec
	v.pager.Reset()
	v.refilter()
	return true
}

// SetOperator changes a column's operator, keeping its operand. Operators not
// offered for the column's type are rejected.
func (v *View) SetOperator(col string, op Operator) bool {
	if v.invalid || !v.hasColumn(col) || !ValidOperator(v.ColumnType(col), op) {
		return false
	}
	spec := v.filters[col]
	spec.Operator = op
	v.filters[col] = spec
	v.pager.Reset()
	v.refilter()
	return true
}

// ApplyFilter sets operator and operand together.
func (v *View) ApplyFilter(col string, spec FilterSpec) bool {
	if spec.Operator == "" {
		return v.SetFilter(col, spec.Value)
	}
	if v.invalid || !v.hasColumn(col) || !ValidOperator(v.ColumnType(col), spec.Operator) {
		return false
	}
	v.filters[col] = spec
	v.pager.Reset()
	v.refilter()
	return true
}

// ClearFilter removes one column's filter.
func (v *View) ClearFilter(col string) bool {
	if v.invalid {
		return false
	}
	if _, ok := v.filters[col]; !ok {
		return false
	}
	delete(v.filters, col)
	v.pager.Reset()
	v.refilter()
	return true
}

// ClearFilters removes every filter.
func (v *View) ClearFilters() {
	if v.invalid {
		return
	}
	v.filters = Filters{}
	v.pager.Reset()
	v.refilter()
}

// Filtered returns every row that passes the filters, in original order.
func (v *View) Filtered() []types.Record {
	return slices.Clone(v.filtered)
}

// FilteredCount is the number of rows that pass the filters.
func (v *View) FilteredCount() int {
	return len(v.filtered)
}

// PageRecords returns the rows of the current page.
func (v *View) PageRecords() []types.Record {
	return slices.Clone(Slice(v.pager, v.filtered))
}

func (v *View) CurrentPage() int   { return v.pager.Page(len(v.filtered)) }
func (v *View) TotalPages() int    { return v.pager.TotalPages(len(v.filtered)) }
func (v *View) PageSize() PageSize { return v.pager.Size() }

// SetPageSize selects one of PageSizes and returns to page 1.
func (v *View) SetPageSize(size PageSize) bool {
	if v.invalid || !validPageSize(size) {
		return false
	}
	v.hover = nil
	return v.pager.SetSize(size)
}

// SetPage jumps to a page, clamped to the available pages.
func (v *View) SetPage(page int) {
	if v.invalid {
		return
	}
	v.hover = nil
	v.pager.SetPage(page, len(v.filtered))
}

func (v *View) FirstPage() bool { return v.turn(v.pager.First) }
func (v *View) PrevPage() bool  { return v.turn(v.pager.Prev) }
func (v *View) NextPage() bool  { return v.turn(v.pager.Next) }
func (v *View) LastPage() bool  { return v.turn(v.pager.Last) }

// turn runs a page navigation. The hovered cell belongs to the old page, so
// it is dropped whenever the page changes.
func (v *View) turn(nav func(count int) bool) bool {
	if v.invalid || !nav(len(v.filtered)) {
		return false
	}
	v.hover = nil
	return true
}

// MoveColumn drops column a onto column b.
func (v *View) MoveColumn(a, b string) bool {
	return !v.invalid && v.columns.Move(a, b)
}

// ToggleColumn flips a column's visibility; hiding the last visible column
// is rejected.
func (v *View) ToggleColumn(col string) bool {
	return !v.invalid && v.columns.Toggle(col)
}

// SetColumnVisible shows or hides a column.
func (v *View) SetColumnVisible(col string, visible bool) bool {
	return !v.invalid && v.columns.SetVisible(col, visible)
}

func (v *View) DragStart(col string) bool { return !v.invalid && v.columns.DragStart(col) }
func (v *View) DragOver(col string) bool  { return !v.invalid && v.columns.DragOver(col) }
func (v *View) DragEnd()                  { v.columns.DragEnd() }

// Hover marks a cell of the current page as hovered, for tooltips.
func (v *View) Hover(row int, col string) bool {
	if v.invalid || row < 0 || row >= len(Slice(v.pager, v.filtered)) || !v.columns.IsVisible(col) {
		return false
	}
	v.hover = &Cell{Row: row, Column: col}
	return true
}

// Unhover clears the hovered cell.
func (v *View) Unhover() {
	v.hover = nil
}

// Hovered returns the hovered cell.
func (v *View) Hovered() (Cell, bool) {
	if v.hover == nil {
		return Cell{}, false
	}
	return *v.hover, true
}

// flatValue reports whether v can be a single cell. Nested containers and
// structs are rejected; times and decimals are scalar values.
func flatValue(v any) bool {
	switch v.(type) {
	case nil, time.Time, *time.Time, decimal.Decimal, *decimal.Decimal, json.Number:
		return true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return true
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Interface, reflect.Func, reflect.Chan:
		return false
	}
	return true
}

// decodeRecords reads a JSON array of flat objects, reporting the first
// object's key order.
func decodeRecords(data []byte) ([]types.Record, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, nil, fmt.Errorf("%w: top level value is not an array", ErrFormat)
	}

	records := make([]types.Record, 0)
	var firstKeys []string
	for i := 0; dec.More(); i++ {
		rec, keys, err := decodeObject(dec)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: element %d: %v", ErrFormat, i, err)
		}
		if i == 0 {
			firstKeys = keys
		}
		records = append(records, rec)
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, nil, fmt.Errorf("%w: trailing data after array", ErrFormat)
	}
	return records, firstKeys, nil
}

func decodeObject(dec *json.Decoder) (types.Record, []string, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("not an object")
	}

	rec := types.Record{}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected key %v", tok)
		}
		val, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		if _, nested := val.(json.Delim); nested {
			return nil, nil, fmt.Errorf("field %q holds a nested value", key)
		}
		if _, dup := rec[key]; !dup {
			keys = append(keys, key)
		}
		rec[key] = val
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return rec, keys, nil
}
