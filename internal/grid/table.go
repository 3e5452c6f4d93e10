package grid

import (
	"sort"
	"strconv"

	"github.com/tidwall/gjson"
)

// Table is the in-memory reference Host. It keeps the dataset, applies the
// installed filter and sort, and slices the result into fixed-size pages.
// All methods must be called from the same event-loop turn sequence; Table
// does no locking of its own, matching the host widget's cooperative model.
type Table struct {
	id       string
	rows     []Row
	pageSize int
	page     int

	filter    Filter
	sortField string
	sortDesc  bool

	ready bool

	readyFns  []func()
	redrawFns []func()
	sortFns   []func(field string, descending bool)
	pageFns   []func(page int)
}

// TableOption configures a Table.
type TableOption func(*Table)

// WithPageSize sets the rows-per-page. Zero or negative means unpaginated.
func WithPageSize(n int) TableOption {
	return func(t *Table) {
		t.pageSize = n
	}
}

// NewTable creates a reference grid over the given rows.
func NewTable(id string, rows []Row, opts ...TableOption) *Table {
	t := &Table{
		id:   id,
		rows: rows,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Ready marks initialization complete and fires ready callbacks once, in
// registration order, followed by an initial redraw.
func (t *Table) Ready() {
	if t.ready {
		return
	}
	t.ready = true
	for _, fn := range t.readyFns {
		fn()
	}
	t.Redraw()
}

// TableID returns the grid's identifier.
func (t *Table) TableID() string {
	return t.id
}

// Rows returns the full unfiltered dataset.
func (t *Table) Rows() []Row {
	return t.rows
}

// VisibleRows returns the filtered dataset across all pages.
func (t *Table) VisibleRows() []Row {
	if t.filter == nil {
		out := make([]Row, len(t.rows))
		copy(out, t.rows)
		return out
	}
	var out []Row
	for _, r := range t.rows {
		if t.filter(r) {
			out = append(out, r)
		}
	}
	return out
}

// PageRows returns the visible rows of the current page.
func (t *Table) PageRows() []Row {
	visible := t.VisibleRows()
	if t.pageSize <= 0 {
		return visible
	}
	start := t.page * t.pageSize
	if start >= len(visible) {
		return nil
	}
	end := start + t.pageSize
	if end > len(visible) {
		end = len(visible)
	}
	return visible[start:end]
}

// SetFilter installs the row filter and redraws. The current page is
// clamped so a shrinking result set never leaves the page out of range.
func (t *Table) SetFilter(f Filter) {
	t.filter = f
	if _, count := t.Page(); t.page >= count {
		t.page = count - 1
	}
	if t.page < 0 {
		t.page = 0
	}
	t.Redraw()
}

// Page returns the zero-based current page and the page count. An empty
// result set still has one (empty) page.
func (t *Table) Page() (int, int) {
	if t.pageSize <= 0 {
		return 0, 1
	}
	visible := len(t.VisibleRows())
	count := (visible + t.pageSize - 1) / t.pageSize
	if count < 1 {
		count = 1
	}
	return t.page, count
}

// SetPage moves to the given zero-based page.
func (t *Table) SetPage(page int) bool {
	_, count := t.Page()
	if page < 0 || page >= count || page == t.page {
		return false
	}
	t.page = page
	for _, fn := range t.pageFns {
		fn(page)
	}
	t.Redraw()
	return true
}

// Sort returns the active sort field and direction.
func (t *Table) Sort() (string, bool) {
	return t.sortField, t.sortDesc
}

// SortBy sorts the dataset by the given dot path. Numeric values compare
// numerically, everything else as strings.
func (t *Table) SortBy(field string, descending bool) {
	t.sortField = field
	t.sortDesc = descending

	sort.SliceStable(t.rows, func(i, j int) bool {
		a := gjson.GetBytes(t.rows[i].Data, field)
		b := gjson.GetBytes(t.rows[j].Data, field)

		var less bool
		if a.Type == gjson.Number && b.Type == gjson.Number {
			less = a.Float() < b.Float()
		} else if fa, errA := strconv.ParseFloat(a.String(), 64); errA == nil {
			if fb, errB := strconv.ParseFloat(b.String(), 64); errB == nil {
				less = fa < fb
			} else {
				less = a.String() < b.String()
			}
		} else {
			less = a.String() < b.String()
		}
		if descending {
			return !less
		}
		return less
	})

	for _, fn := range t.sortFns {
		fn(field, descending)
	}
	t.Redraw()
}

// RemoveRows deletes the identified rows and redraws.
func (t *Table) RemoveRows(ids []RowID) int {
	drop := make(map[RowID]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	kept := t.rows[:0]
	removed := 0
	for _, r := range t.rows {
		if _, gone := drop[r.ID]; gone {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	t.rows = kept

	if removed > 0 {
		if _, count := t.Page(); t.page >= count {
			t.page = count - 1
		}
		t.Redraw()
	}
	return removed
}

// UpdateRow replaces a row's document in place.
func (t *Table) UpdateRow(id RowID, data []byte) bool {
	for i := range t.rows {
		if t.rows[i].ID == id {
			t.rows[i].Data = data
			return true
		}
	}
	return false
}

// Redraw fires the redraw callbacks in registration order.
func (t *Table) Redraw() {
	if !t.ready {
		return
	}
	for _, fn := range t.redrawFns {
		fn()
	}
}

// RedrawRow is a single-row repaint. The reference table has no incremental
// draw state, so this is a no-op beyond existing; a terminal or DOM host
// repaints the one row here.
func (t *Table) RedrawRow(id RowID) {}

// OnReady registers a ready callback. If the table is already ready the
// callback fires immediately.
func (t *Table) OnReady(fn func()) {
	if t.ready {
		fn()
		return
	}
	t.readyFns = append(t.readyFns, fn)
}

// OnRedraw registers a post-redraw callback.
func (t *Table) OnRedraw(fn func()) {
	t.redrawFns = append(t.redrawFns, fn)
}

// OnSort registers a sort-change callback.
func (t *Table) OnSort(fn func(field string, descending bool)) {
	t.sortFns = append(t.sortFns, fn)
}

// OnPage registers a page-change callback.
func (t *Table) OnPage(fn func(page int)) {
	t.pageFns = append(t.pageFns, fn)
}
