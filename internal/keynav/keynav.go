// Package keynav turns key events into grid actions: cell-to-cell focus
// movement, page traversal, edit and selection triggers, and custom
// shortcut dispatch. It owns the focus coordinate in the session; the
// rendering layer only reads it.
package keynav

import (
	"context"

	"github.com/dshills/gridkit/internal/config"
	"github.com/dshills/gridkit/internal/edit"
	"github.com/dshills/gridkit/internal/grid"
	"github.com/dshills/gridkit/internal/keynav/key"
	"github.com/dshills/gridkit/internal/logging"
	"github.com/dshills/gridkit/internal/selection"
	"github.com/dshills/gridkit/internal/session"
)

// Action names bound to default chords. The engine registers handlers for
// these; a table embedder can override any of them with a custom shortcut.
const (
	ActionFocusSearch = "focus-search"
	ActionExport      = "export"
	ActionRefresh     = "refresh"
	ActionHelp        = "help"
	ActionClearSearch = "clear-search"
)

// ActionFunc handles a named shortcut action.
type ActionFunc func(ctx context.Context)

// Manager routes keyboard input for one table.
type Manager struct {
	sess    *session.Session
	host    grid.Host
	columns []config.Column
	cfg     config.Keyboard
	log     *logging.Logger

	edit *edit.Controller
	sel  *selection.Manager

	actions   map[string]ActionFunc
	shortcuts map[string]config.Shortcut
	announce  func(msg string)
}

// Option configures a Manager.
type Option func(*Manager)

// WithEdit attaches the edit controller Enter and Escape delegate to.
func WithEdit(c *edit.Controller) Option {
	return func(m *Manager) { m.edit = c }
}

// WithSelection attaches the selection manager Space and Ctrl+A delegate to.
func WithSelection(s *selection.Manager) Option {
	return func(m *Manager) { m.sel = s }
}

// WithLogger sets the logger.
func WithLogger(log *logging.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithAnnounceFunc sets the sink for shortcut announce messages.
func WithAnnounceFunc(fn func(string)) Option {
	return func(m *Manager) { m.announce = fn }
}

// WithAction registers a handler for a named action.
func WithAction(name string, fn ActionFunc) Option {
	return func(m *Manager) { m.actions[name] = fn }
}

// New creates a keyboard manager. Custom shortcuts from cfg are indexed by
// their normalized combination string and take precedence over defaults.
func New(sess *session.Session, host grid.Host, columns []config.Column, cfg config.Keyboard, opts ...Option) *Manager {
	m := &Manager{
		sess:      sess,
		host:      host,
		columns:   columns,
		cfg:       cfg,
		log:       logging.Discard(),
		actions:   make(map[string]ActionFunc),
		shortcuts: make(map[string]config.Shortcut, len(cfg.CustomShortcuts)),
	}
	for _, o := range opts {
		o(m)
	}
	for _, sc := range cfg.CustomShortcuts {
		m.shortcuts[key.Normalize(sc.Key)] = sc
	}
	return m
}

// RegisterAction installs or replaces a named action handler after
// construction.
func (m *Manager) RegisterAction(name string, fn ActionFunc) {
	m.actions[name] = fn
}

// Handle processes one key event. It returns true when the event was
// consumed; unhandled events fall through to the embedding surface.
func (m *Manager) Handle(ctx context.Context, ev key.Event) bool {
	if !m.cfg.Enabled {
		return false
	}
	if m.sess.Focus.Mode == session.FocusEdit {
		return m.handleEditing(ctx, ev)
	}

	// Custom shortcuts win over every built-in chord.
	if sc, ok := m.shortcuts[ev.Combo()]; ok {
		m.fire(ctx, sc)
		return true
	}

	return m.handleNavigate(ctx, ev)
}

// handleEditing covers the keys the manager owns while an edit surface has
// focus. Text entry goes to the surface itself, not through here.
func (m *Manager) handleEditing(ctx context.Context, ev key.Event) bool {
	if m.edit == nil {
		return false
	}
	switch ev.Key {
	case key.KeyEnter:
		if err := m.edit.Save(ctx); err != nil {
			m.log.Debug("save rejected: %v", err)
		}
		return true
	case key.KeyEscape:
		m.edit.Cancel()
		return true
	case key.KeyTab:
		// Save-and-advance. A rejected save keeps focus on the cell.
		if err := m.edit.Save(ctx); err != nil {
			return true
		}
		m.moveCol(1)
		return true
	}
	return false
}

func (m *Manager) handleNavigate(ctx context.Context, ev key.Event) bool {
	switch ev.Key {
	case key.KeyUp, key.KeyDown, key.KeyLeft, key.KeyRight:
		if !m.cfg.ArrowKeyNavigation {
			return false
		}
		switch ev.Key {
		case key.KeyUp:
			m.moveRow(-1)
		case key.KeyDown:
			m.moveRow(1)
		case key.KeyLeft:
			m.moveCol(-1)
		case key.KeyRight:
			m.moveCol(1)
		}
		return true

	case key.KeyHome:
		if ev.Modifiers.Has(key.ModCtrl) {
			m.sess.Focus.Row = 0
			m.sess.Focus.Col = 0
		} else {
			m.sess.Focus.Col = 0
		}
		return true

	case key.KeyEnd:
		if ev.Modifiers.Has(key.ModCtrl) {
			if n := len(m.host.PageRows()); n > 0 {
				m.sess.Focus.Row = n - 1
			}
		}
		m.sess.Focus.Col = m.lastCol()
		return true

	case key.KeyPageUp:
		m.movePage(-1)
		return true

	case key.KeyPageDown:
		m.movePage(1)
		return true

	case key.KeyEnter:
		return m.handleEnter(ctx)

	case key.KeySpace:
		return m.handleSpace(ev)

	case key.KeyEscape:
		return m.handleEscape(ctx)

	case key.KeyF1:
		return m.run(ctx, ActionHelp)

	case key.KeyF5:
		if !m.run(ctx, ActionRefresh) {
			m.host.Redraw()
		}
		return true

	case key.KeyRune:
		return m.handleRune(ctx, ev)
	}
	return false
}

func (m *Manager) handleRune(ctx context.Context, ev key.Event) bool {
	switch {
	case ev.Rune == '/' && ev.Modifiers == key.ModNone:
		return m.run(ctx, ActionFocusSearch)
	case ev.Rune == 'F' && ev.Modifiers == key.ModCtrl:
		return m.run(ctx, ActionFocusSearch)
	case ev.Rune == 'A' && ev.Modifiers == key.ModCtrl:
		if m.sel == nil {
			return false
		}
		m.sel.ToggleAll(m.sel.HeaderState() != selection.HeaderChecked)
		return true
	case ev.Rune == 'E' && ev.Modifiers == key.ModCtrl|key.ModShift:
		return m.run(ctx, ActionExport)
	}
	return false
}

func (m *Manager) handleEnter(ctx context.Context) bool {
	row, col := m.sess.Focus.Row, m.sess.Focus.Col
	if m.cfg.EnterToEdit && m.edit != nil && col < len(m.columns) && m.columns[col].Editable {
		if err := m.edit.Begin(row, col); err != nil {
			m.log.Debug("edit not started: %v", err)
		}
		return true
	}
	return m.toggleFocused(false)
}

func (m *Manager) handleSpace(ev key.Event) bool {
	if !m.cfg.SpaceToSelect {
		return false
	}
	return m.toggleFocused(ev.Modifiers.Has(key.ModShift))
}

// handleEscape clears selection first, then an active search. With neither
// present the event is left for the embedder.
func (m *Manager) handleEscape(ctx context.Context) bool {
	if m.sel != nil && m.sel.Count() > 0 {
		m.sel.Clear()
		return true
	}
	if m.sess.Search.Active() {
		return m.run(ctx, ActionClearSearch)
	}
	return false
}

// toggleFocused flips selection on the focused row. With shift set the
// range from the last toggled row is selected instead.
func (m *Manager) toggleFocused(shift bool) bool {
	if m.sel == nil {
		return false
	}
	rows := m.host.PageRows()
	r := m.sess.Focus.Row
	if r < 0 || r >= len(rows) || rows[r].ID == "" {
		return false
	}
	if shift {
		m.sel.ToggleRange(rows[r].ID)
	} else {
		m.sel.ToggleRow(rows[r].ID, !m.sel.IsSelected(rows[r].ID))
	}
	return true
}

func (m *Manager) moveRow(delta int) {
	rows := m.host.PageRows()
	next := m.sess.Focus.Row + delta
	if next < 0 {
		if page, _ := m.host.Page(); page > 0 {
			m.host.SetPage(page - 1)
			m.sess.Focus.Row = max(len(m.host.PageRows())-1, 0)
		}
		return
	}
	if next >= len(rows) {
		page, pages := m.host.Page()
		if m.cfg.AutoPageDown && page < pages-1 {
			m.host.SetPage(page + 1)
			m.sess.Focus.Row = 0
		}
		return
	}
	m.sess.Focus.Row = next
}

func (m *Manager) moveCol(delta int) {
	next := m.sess.Focus.Col + delta
	if next < 0 || next > m.lastCol() {
		return
	}
	m.sess.Focus.Col = next
}

func (m *Manager) movePage(delta int) {
	page, pages := m.host.Page()
	next := page + delta
	if next < 0 || next >= pages {
		return
	}
	m.host.SetPage(next)
	m.ClampFocus()
}

func (m *Manager) lastCol() int {
	if len(m.columns) == 0 {
		return 0
	}
	return len(m.columns) - 1
}

// ClampFocus pulls the focus coordinate back into range after the page
// contents change, so focus survives redraws, filters, and page moves.
func (m *Manager) ClampFocus() {
	if n := len(m.host.PageRows()); m.sess.Focus.Row >= n {
		m.sess.Focus.Row = max(n-1, 0)
	}
	if m.sess.Focus.Row < 0 {
		m.sess.Focus.Row = 0
	}
	if m.sess.Focus.Col > m.lastCol() {
		m.sess.Focus.Col = m.lastCol()
	}
	if m.sess.Focus.Col < 0 {
		m.sess.Focus.Col = 0
	}
}

func (m *Manager) fire(ctx context.Context, sc config.Shortcut) {
	fn, ok := m.actions[sc.Action]
	if !ok {
		m.log.Warn("shortcut %q names unregistered action %q", sc.Key, sc.Action)
		return
	}
	fn(ctx)
	if sc.Announce != "" && m.announce != nil {
		m.announce(sc.Announce)
	}
}

func (m *Manager) run(ctx context.Context, name string) bool {
	fn, ok := m.actions[name]
	if !ok {
		return false
	}
	fn(ctx)
	return true
}
