package tableview

import (
	"fmt"
	"strconv"
	"strings"
)

// PageSize is a number of rows per page, or PageSizeAll.
type PageSize int

// PageSizeAll shows every filtered row on one page.
const PageSizeAll PageSize = -1

// DefaultPageSize is the page size of a fresh view.
const DefaultPageSize PageSize = 10

// PageSizes are the selectable page sizes, in menu order.
var PageSizes = []PageSize{5, 10, 20, 50, 100, PageSizeAll}

func (s PageSize) String() string {
	if s == PageSizeAll {
		return "all"
	}
	return strconv.Itoa(int(s))
}

// ParsePageSize accepts one of PageSizes, "all" spelled in any case.
func ParsePageSize(s string) (PageSize, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "all") {
		return PageSizeAll, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid page size %q", s)
	}
	if n <= 0 || !validPageSize(PageSize(n)) {
		return 0, fmt.Errorf("page size %d is not one of %v", n, PageSizes)
	}
	return PageSize(n), nil
}

func validPageSize(s PageSize) bool {
	for _, v := range PageSizes {
		if v == s {
			return true
		}
	}
	return false
}

// Paginator slices a sequence of count rows into pages. The count is passed
// to every call so a paginator never holds a stale row count; the current
// page is clamped to [1, TotalPages] on every read.
type Paginator struct {
	page int
	size PageSize
}

func NewPaginator() *Paginator {
	return &Paginator{page: 1, size: DefaultPageSize}
}

// Size returns the selected page size.
func (p *Paginator) Size() PageSize {
	return p.size
}

// EffectiveSize is the number of rows per page for count rows.
func (p *Paginator) EffectiveSize(count int) int {
	if p.size == PageSizeAll {
		return count
	}
	return int(p.size)
}

// TotalPages is ceil(count / size), zero when there are no rows.
func (p *Paginator) TotalPages(count int) int {
	size := p.EffectiveSize(count)
	if count <= 0 || size <= 0 {
		return 0
	}
	return (count + size - 1) / size
}

// Page returns the current page clamped to the available pages. It is 1 even
// when there are no pages.
func (p *Paginator) Page(count int) int {
	return clampPage(p.page, p.TotalPages(count))
}

func clampPage(page, total int) int {
	if page > total {
		page = total
	}
	if page < 1 {
		page = 1
	}
	return page
}

// SetSize selects any positive page size, or PageSizeAll, and returns to
// page 1. The menu of PageSizes is enforced by the view, not here.
func (p *Paginator) SetSize(size PageSize) bool {
	if size <= 0 && size != PageSizeAll {
		return false
	}
	p.size = size
	p.page = 1
	return true
}

// Reset returns to page 1.
func (p *Paginator) Reset() {
	p.page = 1
}

// SetPage jumps to page, clamped.
func (p *Paginator) SetPage(page, count int) {
	p.page = clampPage(page, p.TotalPages(count))
}

func (p *Paginator) CanPrev(count int) bool {
	return p.Page(count) > 1
}

func (p *Paginator) CanNext(count int) bool {
	return p.Page(count) < p.TotalPages(count)
}

// First, Prev, Next and Last report whether the page changed; at the
// boundaries they do nothing.
func (p *Paginator) First(count int) bool {
	if !p.CanPrev(count) {
		return false
	}
	p.page = 1
	return true
}

func (p *Paginator) Prev(count int) bool {
	if !p.CanPrev(count) {
		return false
	}
	p.page = p.Page(count) - 1
	return true
}

func (p *Paginator) Next(count int) bool {
	if !p.CanNext(count) {
		return false
	}
	p.page = p.Page(count) + 1
	return true
}

func (p *Paginator) Last(count int) bool {
	if !p.CanNext(count) {
		return false
	}
	p.page = p.TotalPages(count)
	return true
}

// Bounds returns the half-open row range [start, end) of the current page.
func (p *Paginator) Bounds(count int) (int, int) {
	size := p.EffectiveSize(count)
	if count <= 0 || size <= 0 {
		return 0, 0
	}
	start := (p.Page(count) - 1) * size
	end := min(start+size, count)
	return start, end
}

// Slice returns the current page of items.
func Slice[T any](p *Paginator, items []T) []T {
	start, end := p.Bounds(len(items))
	return items[start:end]
}
