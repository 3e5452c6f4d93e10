// Package event provides the synchronous publish/subscribe bus the grid
// engine's components coordinate through. Delivery follows the engine's
// single event-loop model: Publish invokes every matching handler before it
// returns, in subscription order, so a handler observing state always sees
// the mutations of the handlers subscribed before it.
package event

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Topic is a hierarchical event type using dot notation, for example
// "selection.changed" or "cell.saved".
type Topic string

// Wildcard matches exactly one segment in a subscription pattern.
// "cell.*" matches "cell.saved" and "cell.cancelled" but not "cell".
const Wildcard = "*"

// Engine topics. Every payload carries the table identifier so a consumer
// subscribed across tables can route.
const (
	TopicSelectionChanged Topic = "selection.changed"
	TopicCellSaved        Topic = "cell.saved"
	TopicCellCancelled    Topic = "cell.cancelled"
	TopicSearchApplied    Topic = "search.applied"
	TopicSearchCleared    Topic = "search.cleared"
	TopicPageChanged      Topic = "page.changed"
	TopicSortChanged      Topic = "sort.changed"
	TopicBulkCompleted    Topic = "bulk.completed"
	TopicRedraw           Topic = "grid.redraw"
)

// String returns the topic as a string.
func (t Topic) String() string {
	return string(t)
}

// Segments returns the topic split on dots.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), ".")
}

// Match reports whether the concrete topic matches the pattern. Patterns
// may use "*" for any single segment; segment counts must agree.
func Match(pattern, concrete Topic) bool {
	if pattern == concrete {
		return true
	}
	ps := pattern.Segments()
	cs := concrete.Segments()
	if len(ps) != len(cs) {
		return false
	}
	for i, p := range ps {
		if p != Wildcard && p != cs[i] {
			return false
		}
	}
	return true
}

// Event is what a handler receives. Events are immutable once published.
type Event struct {
	// Type is the concrete topic the event was published under.
	Type Topic

	// TableID identifies the grid instance the event concerns.
	TableID string

	// Payload is the topic-specific payload (one of the *Payload structs).
	Payload any

	// ID uniquely identifies this event instance.
	ID string

	// Timestamp is when the event was published.
	Timestamp time.Time
}

// New creates an event ready to publish.
func New(topic Topic, tableID string, payload any) Event {
	return Event{
		Type:      topic,
		TableID:   tableID,
		Payload:   payload,
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
	}
}

// SelectionPayload accompanies selection.changed.
type SelectionPayload struct {
	Selected int
	Total    int
}

// CellPayload accompanies cell.saved and cell.cancelled.
type CellPayload struct {
	Row       int
	Col       int
	FieldPath string
	OldValue  string
	NewValue  string
}

// SearchPayload accompanies search.applied and search.cleared.
type SearchPayload struct {
	Mode    string
	Query   string
	Matched int
}

// PagePayload accompanies page.changed.
type PagePayload struct {
	Page      int
	PageCount int
}

// SortPayload accompanies sort.changed.
type SortPayload struct {
	Column     string
	Descending bool
}

// BulkPayload accompanies bulk.completed.
type BulkPayload struct {
	Action string
	Rows   int
}

// RedrawPayload accompanies grid.redraw.
type RedrawPayload struct {
	VisibleRows int
	TotalRows   int
}
