// Package session owns all mutable per-table state. Every other component
// receives a *Session by reference from the Store; nothing keeps a shadow
// map of its own, so tearing a table down is one Destroy call.
package session

import (
	"fmt"
	"sync"

	"github.com/dshills/gridkit/internal/grid"
	"github.com/dshills/gridkit/internal/search/expr"
)

// SearchMode selects one of the four search strategies.
type SearchMode string

const (
	// ModeSimple is a case-insensitive substring match across searchable
	// columns.
	ModeSimple SearchMode = "simple"
	// ModeRegex compiles the query as a regular expression.
	ModeRegex SearchMode = "regex"
	// ModeOperator evaluates a boolean expression over the row's text.
	ModeOperator SearchMode = "operator"
	// ModeColumn applies per-column substring filters conjunctively.
	ModeColumn SearchMode = "column"
)

// ColumnFilter is one (column, term) pair of a column-mode search.
type ColumnFilter struct {
	Col  int
	Term string
}

// SearchState is the active search of one table. It is replaced wholesale
// on every mode switch, never merged.
type SearchState struct {
	Mode          SearchMode
	Query         string
	Tree          *expr.Node
	CaseSensitive bool
	Highlight     bool
	ColumnFilters []ColumnFilter
}

// Active reports whether a filter is currently applied.
func (s SearchState) Active() bool {
	if s.Mode == ModeColumn {
		return len(s.ColumnFilters) > 0
	}
	return s.Mode != "" && s.Query != ""
}

// FocusMode says what keyboard focus is doing at the current cell.
type FocusMode int

const (
	// FocusNavigate is plain cell-to-cell movement.
	FocusNavigate FocusMode = iota
	// FocusEdit means an edit surface currently has the keyboard.
	FocusEdit
)

// Focus is the (row, column) coordinate receiving keyboard input.
type Focus struct {
	Row  int
	Col  int
	Mode FocusMode
}

// EditSession is the transient state of one in-progress cell edit. At most
// one exists per Session; entering edit elsewhere force-cancels it first.
// It never survives a table redraw.
type EditSession struct {
	Row       int
	Col       int
	RowID     grid.RowID
	FieldPath string
	Original  string
	Pending   string
	Err       string
}

// Session is the full mutable state for one mounted grid instance.
type Session struct {
	TableID string

	Selection         map[grid.RowID]struct{}
	LastSelectedIndex int

	Edit *EditSession

	Search SearchState

	Focus Focus
}

func newSession(tableID string) *Session {
	return &Session{
		TableID:           tableID,
		Selection:         make(map[grid.RowID]struct{}),
		LastSelectedIndex: -1,
	}
}

// DuplicateSessionError reports a second attach for a table that already
// has a live session.
type DuplicateSessionError struct {
	ID string
}

func (e *DuplicateSessionError) Error() string {
	return fmt.Sprintf("session: table %q already initialized", e.ID)
}

// Store allocates and retrieves sessions by table id. One arena map for
// every table in the process.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// Create allocates the session for a table. A table may not be initialized
// twice without an explicit Destroy in between.
func (s *Store) Create(tableID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[tableID]; exists {
		return nil, &DuplicateSessionError{ID: tableID}
	}
	sess := newSession(tableID)
	s.sessions[tableID] = sess
	return sess, nil
}

// Get retrieves an existing session.
func (s *Store) Get(tableID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[tableID]
	return sess, ok
}

// Destroy tears a session down. Returns false if none existed.
func (s *Store) Destroy(tableID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[tableID]; !ok {
		return false
	}
	delete(s.sessions, tableID)
	return true
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
