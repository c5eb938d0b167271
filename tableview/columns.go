package tableview

import (
	"slices"
)

// ColumnManager owns column order and visibility. At least one column is
// visible whenever there are columns at all.
type ColumnManager struct {
	order    []string
	visible  map[string]bool
	dragging string
}

func NewColumnManager(columns []string) *ColumnManager {
	cm := &ColumnManager{}
	cm.Reset(columns)
	return cm
}

// Reset replaces the column set: the given order, every column visible.
// Duplicate names keep their first position.
func (cm *ColumnManager) Reset(columns []string) {
	cm.order = make([]string, 0, len(columns))
	cm.visible = make(map[string]bool, len(columns))
	for _, col := range columns {
		if _, seen := cm.visible[col]; seen {
			continue
		}
		cm.order = append(cm.order, col)
		cm.visible[col] = true
	}
	cm.dragging = ""
}

// Sync resets the manager when columns names a different set than the
// current one and reports whether it did. Order and visibility survive when
// the set is unchanged.
func (cm *ColumnManager) Sync(columns []string) bool {
	if cm.sameSet(columns) {
		return false
	}
	cm.Reset(columns)
	return true
}

func (cm *ColumnManager) sameSet(columns []string) bool {
	seen := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		if _, ok := cm.visible[col]; !ok {
			return false
		}
		seen[col] = struct{}{}
	}
	return len(seen) == len(cm.order)
}

// Order returns every column, visible or not, in display order.
func (cm *ColumnManager) Order() []string {
	return slices.Clone(cm.order)
}

// VisibleColumns returns the visible columns in display order.
func (cm *ColumnManager) VisibleColumns() []string {
	out := make([]string, 0, len(cm.order))
	for _, col := range cm.order {
		if cm.visible[col] {
			out = append(out, col)
		}
	}
	return out
}

// IsVisible reports whether col is shown.
func (cm *ColumnManager) IsVisible(col string) bool {
	return cm.visible[col]
}

func (cm *ColumnManager) visibleCount() int {
	n := 0
	for _, v := range cm.visible {
		if v {
			n++
		}
	}
	return n
}

// Toggle flips col's visibility. Hiding the last visible column is
// rejected; the return value reports whether anything changed.
func (cm *ColumnManager) Toggle(col string) bool {
	v, ok := cm.visible[col]
	if !ok {
		return false
	}
	return cm.SetVisible(col, !v)
}

// SetVisible shows or hides col under the same rule as Toggle.
func (cm *ColumnManager) SetVisible(col string, visible bool) bool {
	cur, ok := cm.visible[col]
	if !ok || cur == visible {
		return false
	}
	if !visible && cm.visibleCount() == 1 {
		return false
	}
	cm.visible[col] = visible
	return true
}

// Move drops column a onto column b: a is removed and re-inserted at the
// index b had before the removal. It is not a swap.
func (cm *ColumnManager) Move(a, b string) bool {
	if a == b {
		return false
	}
	from := slices.Index(cm.order, a)
	to := slices.Index(cm.order, b)
	if from < 0 || to < 0 {
		return false
	}
	cm.order = slices.Delete(cm.order, from, from+1)
	cm.order = slices.Insert(cm.order, to, a)
	return true
}

// DragStart marks col as being dragged.
func (cm *ColumnManager) DragStart(col string) bool {
	if _, ok := cm.visible[col]; !ok {
		return false
	}
	cm.dragging = col
	return true
}

// DragOver moves the dragged column onto col, as a pointer passing over a
// header does. Without an active drag it does nothing.
func (cm *ColumnManager) DragOver(col string) bool {
	if cm.dragging == "" {
		return false
	}
	return cm.Move(cm.dragging, col)
}

// DragEnd clears the drag state.
func (cm *ColumnManager) DragEnd() {
	cm.dragging = ""
}

// Dragging returns the column being dragged, or "".
func (cm *ColumnManager) Dragging() string {
	return cm.dragging
}
