package tableview

import (
	"time"

	"github.com/guileen/finledger/types"
)

const (
	// MaxCellRunes is the display width of a cell before it is truncated.
	MaxCellRunes = 16
	// DisplayTimeLayout formats date cells as day.month.year time.
	DisplayTimeLayout = "02.01.2006 15:04:05"

	formatErrorText = "could not load data"
	noDataText      = "no data"
)

// HeaderCell is one rendered column header.
type HeaderCell struct {
	Column        string           `json:"column"`
	Type          types.ColumnType `json:"type"`
	Operator      Operator         `json:"operator"`
	OperatorLabel string           `json:"operator_label"`
	Operators     []OperatorInfo   `json:"operators"`
	FilterValue   string           `json:"filter_value"`
	Filtered      bool             `json:"filtered"`
	Dragging      bool             `json:"dragging"`
}

// BodyCell is one rendered value. Display is shortened for the grid; Full is
// the complete value for a tooltip.
type BodyCell struct {
	Column  string `json:"column"`
	Display string `json:"display"`
	Full    string `json:"full"`
	Hovered bool   `json:"hovered,omitempty"`
}

// PaginationControls drives first/previous/next/last buttons and the page
// size selector.
type PaginationControls struct {
	CurrentPage  int      `json:"current_page"`
	TotalPages   int      `json:"total_pages"`
	TotalRows    int      `json:"total_rows"`
	FilteredRows int      `json:"filtered_rows"`
	PageSize     string   `json:"page_size"`
	PageSizes    []string `json:"page_sizes"`
	CanFirst     bool     `json:"can_first"`
	CanPrev      bool     `json:"can_prev"`
	CanNext      bool     `json:"can_next"`
	CanLast      bool     `json:"can_last"`
	FirstRow     int      `json:"first_row"`
	LastRow      int      `json:"last_row"`
}

// VisibilityItem is one entry of the column checklist.
type VisibilityItem struct {
	Column  string `json:"column"`
	Visible bool   `json:"visible"`
	// Locked is set on the last visible column, which cannot be hidden.
	Locked  bool   `json:"locked"`
}

// Rendered is everything a host needs to draw the table.
type Rendered struct {
	State      string             `json:"state"`
	Error      string             `json:"error,omitempty"`
	Message    string             `json:"message,omitempty"`
	Headers    []HeaderCell       `json:"headers"`
	Rows       [][]BodyCell       `json:"rows"`
	Pagination PaginationControls `json:"pagination"`
	Visibility []VisibilityItem   `json:"visibility"`
}

// Render draws the current page in visible column order.
func (v *View) Render() Rendered {
	out := Rendered{
		State:      v.State().String(),
		Headers:    []HeaderCell{},
		Rows:       [][]BodyCell{},
		Visibility: []VisibilityItem{},
	}
	switch v.State() {
	case StateInvalid:
		out.Error = formatErrorText
		return out
	case StateEmpty:
		out.Message = noDataText
	}

	visible := v.columns.VisibleColumns()
	for _, col := range visible {
		ct := v.ColumnType(col)
		spec := v.filters[col]
		op := spec.Operator
		if op == "" {
			op = DefaultOperator(ct)
		}
		out.Headers = append(out.Headers, HeaderCell{
			Column:        col,
			Type:          ct,
			Operator:      op,
			OperatorLabel: op.Label(),
			Operators:     Operators(ct),
			FilterValue:   spec.Value,
			Filtered:      spec.Active(),
			Dragging:      v.columns.Dragging() == col,
		})
	}

	hover, hovering := v.Hovered()
	for i, rec := range Slice(v.pager, v.filtered) {
		row := make([]BodyCell, len(visible))
		for j, col := range visible {
			val := rec[col]
			row[j] = BodyCell{
				Column:  col,
				Display: DisplayValue(val, v.ColumnType(col), v.loc),
				Full:    types.FormatValue(val),
				Hovered: hovering && hover.Row == i && hover.Column == col,
			}
		}
		out.Rows = append(out.Rows, row)
	}

	count := len(v.filtered)
	start, end := v.pager.Bounds(count)
	sizes := make([]string, len(PageSizes))
	for i, s := range PageSizes {
		sizes[i] = s.String()
	}
	out.Pagination = PaginationControls{
		CurrentPage:  v.CurrentPage(),
		TotalPages:   v.TotalPages(),
		TotalRows:    len(v.records),
		FilteredRows: count,
		PageSize:     v.pager.Size().String(),
		PageSizes:    sizes,
		CanFirst:     v.pager.CanPrev(count),
		CanPrev:      v.pager.CanPrev(count),
		CanNext:      v.pager.CanNext(count),
		CanLast:      v.pager.CanNext(count),
		FirstRow:     start + 1,
		LastRow:      end,
	}
	if count == 0 {
		out.Pagination.FirstRow = 0
	}

	lastVisible := len(visible) == 1
	for _, col := range v.columns.Order() {
		shown := v.columns.IsVisible(col)
		out.Visibility = append(out.Visibility, VisibilityItem{
			Column:  col,
			Visible: shown,
			Locked:  shown && lastVisible,
		})
	}
	return out
}

// DisplayValue renders a cell for the grid: dates as DisplayTimeLayout in
// loc, everything else as text cut to MaxCellRunes runes plus "...".
func DisplayValue(val any, ct types.ColumnType, loc *time.Location) string {
	if val == nil {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, ok := val.(time.Time); ok {
		return t.In(loc).Format(DisplayTimeLayout)
	}
	if ct == types.ColumnTypeDate {
		if t, ok := types.ToTime(val, loc); ok {
			return t.In(loc).Format(DisplayTimeLayout)
		}
	}
	return Truncate(types.FormatValue(val), MaxCellRunes)
}

// Truncate cuts s to n runes and appends "..." when it was longer.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
