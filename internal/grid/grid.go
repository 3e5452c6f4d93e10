// Package grid defines the host surface the engine drives. The engine never
// talks to a concrete widget; it depends on the Host interface and on Row,
// which carries a stable identifier plus the row's JSON document. Table is
// an in-memory reference Host used by the demo binary and the tests.
package grid

import (
	"github.com/tidwall/gjson"
)

// RowID is a stable identifier used to track a row across redraws and
// filters. It is extracted from the row's data, never synthesized.
type RowID string

// Row is one row of the dataset. Data is a JSON document; column accessors
// are dot paths into it.
type Row struct {
	ID   RowID
	Data []byte
}

// Field returns the value at the dot path as display text. Missing paths
// return "".
func (r Row) Field(path string) string {
	return gjson.GetBytes(r.Data, path).String()
}

// FieldRaw returns the raw JSON at the dot path, or "" if missing.
func (r Row) FieldRaw(path string) string {
	res := gjson.GetBytes(r.Data, path)
	if !res.Exists() {
		return ""
	}
	return res.Raw
}

// ExtractRowID pulls the stable identifier out of a row document: the first
// non-empty of "id", "_id", then the alias (if given). Returns "" when the
// row has none; such rows cannot participate in selection or bulk actions.
func ExtractRowID(data []byte, alias string) RowID {
	for _, field := range []string{"id", "_id", alias} {
		if field == "" {
			continue
		}
		if v := gjson.GetBytes(data, field); v.Exists() {
			if s := v.String(); s != "" {
				return RowID(s)
			}
		}
	}
	return ""
}

// Filter decides whether a row stays visible. A nil filter shows all rows.
type Filter func(Row) bool

// Host is the grid widget surface the engine attaches to. Sorting,
// pagination, and the actual redraw belong to the host; the engine only
// observes and calls back into it.
type Host interface {
	// TableID returns the unique identifier of this grid instance.
	TableID() string

	// Rows returns the full unfiltered dataset in current order.
	Rows() []Row

	// VisibleRows returns the filtered dataset across all pages.
	VisibleRows() []Row

	// PageRows returns the visible rows of the current page.
	PageRows() []Row

	// SetFilter installs the row filter (nil clears it) and redraws.
	SetFilter(f Filter)

	// Page returns the zero-based current page and the page count.
	Page() (page, pageCount int)

	// SetPage moves to the given zero-based page. Out-of-range requests
	// are ignored and return false.
	SetPage(page int) bool

	// Sort returns the active sort field and direction.
	Sort() (field string, descending bool)

	// SortBy sorts the dataset by the given dot path and redraws.
	SortBy(field string, descending bool)

	// RemoveRows deletes the identified rows from the dataset and
	// redraws. Returns how many were removed.
	RemoveRows(ids []RowID) int

	// UpdateRow replaces a row's document in place. No redraw; callers
	// follow with RedrawRow.
	UpdateRow(id RowID, data []byte) bool

	// Redraw repaints the whole grid and fires redraw callbacks.
	Redraw()

	// RedrawRow repaints a single row without a full redraw cycle.
	RedrawRow(id RowID)

	// OnReady registers a callback fired once, after the host finishes
	// its own initialization. Callbacks fire in registration order.
	OnReady(fn func())

	// OnRedraw registers a callback fired after every full redraw, once
	// the host's own drawing is complete.
	OnRedraw(fn func())

	// OnSort registers a callback fired when the sort order changes.
	OnSort(fn func(field string, descending bool))

	// OnPage registers a callback fired when the current page changes.
	OnPage(fn func(page int))
}
