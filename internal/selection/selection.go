// Package selection tracks the set of selected row identifiers for one
// table and drives the bulk actions over it. Membership lives in the
// table's Session; this manager only mutates it and keeps the header
// checkbox, persistence, and event consumers in sync.
package selection

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dshills/gridkit/internal/config"
	"github.com/dshills/gridkit/internal/event"
	"github.com/dshills/gridkit/internal/grid"
	"github.com/dshills/gridkit/internal/logging"
	"github.com/dshills/gridkit/internal/session"
	"github.com/dshills/gridkit/internal/storage"
)

// HeaderState is the tri-state of the select-all checkbox.
type HeaderState int

const (
	// HeaderUnchecked means nothing is selected.
	HeaderUnchecked HeaderState = iota
	// HeaderChecked means every selectable row is selected.
	HeaderChecked
	// HeaderIndeterminate means a proper subset is selected.
	HeaderIndeterminate
)

// String returns the state name.
func (h HeaderState) String() string {
	switch h {
	case HeaderChecked:
		return "checked"
	case HeaderIndeterminate:
		return "indeterminate"
	default:
		return "unchecked"
	}
}

// Hooks are the collaborator-supplied bulk implementations. All optional;
// nil falls back to local behavior.
type Hooks struct {
	// Delete removes the rows externally. On success the manager removes
	// them locally too; on failure nothing local changes.
	Delete func(ctx context.Context, rows []grid.Row) error

	// Export receives the serialized text. Nil means the caller just
	// takes BulkExport's return value.
	Export func(ctx context.Context, data string) error

	// Update applies a field change externally before the local write.
	Update func(ctx context.Context, rows []grid.Row, fieldPath, value string) error
}

// ConfirmFunc asks the user to confirm a destructive action.
type ConfirmFunc func(prompt string) bool

// Manager implements selection and bulk operations for one table.
type Manager struct {
	sess    *session.Session
	host    grid.Host
	bus     *event.Bus
	log     *logging.Logger
	columns []config.Column
	cfg     config.Selection

	kv      storage.KV
	hooks   Hooks
	confirm ConfirmFunc

	// updateLocal applies a field change to a row document. Injected so
	// the edit controller's dot-path writer is the single implementation.
	updateLocal func(data []byte, fieldPath, value string) ([]byte, error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithHooks installs the external bulk implementations.
func WithHooks(h Hooks) Option {
	return func(m *Manager) { m.hooks = h }
}

// WithConfirm installs the destructive-action confirmation prompt.
// Without one, bulk delete refuses to run.
func WithConfirm(fn ConfirmFunc) Option {
	return func(m *Manager) { m.confirm = fn }
}

// WithStorage installs the durable store used when PersistSelection is on.
func WithStorage(kv storage.KV) Option {
	return func(m *Manager) { m.kv = kv }
}

// WithLogger sets the logger.
func WithLogger(log *logging.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithLocalUpdater injects the dot-path field writer used by local bulk
// update fallback.
func WithLocalUpdater(fn func(data []byte, fieldPath, value string) ([]byte, error)) Option {
	return func(m *Manager) { m.updateLocal = fn }
}

// New creates the selection manager for one table session.
func New(sess *session.Session, host grid.Host, bus *event.Bus, columns []config.Column, cfg config.Selection, opts ...Option) *Manager {
	m := &Manager{
		sess:    sess,
		host:    host,
		bus:     bus,
		log:     logging.Discard(),
		columns: columns,
		cfg:     cfg,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Enabled reports whether selection is configured on.
func (m *Manager) Enabled() bool {
	return m.cfg.Enabled
}

// Count returns the number of selected rows.
func (m *Manager) Count() int {
	return len(m.sess.Selection)
}

// IDs returns the selected row ids, sorted for stable output.
func (m *Manager) IDs() []grid.RowID {
	ids := make([]grid.RowID, 0, len(m.sess.Selection))
	for id := range m.sess.Selection {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IsSelected reports membership.
func (m *Manager) IsSelected(id grid.RowID) bool {
	_, ok := m.sess.Selection[id]
	return ok
}

// selectableTotal counts rows in the current dataset that carry a RowID.
func (m *Manager) selectableTotal() int {
	n := 0
	for _, r := range m.host.Rows() {
		if r.ID != "" {
			n++
		}
	}
	return n
}

// HeaderState computes the tri-state of the select-all checkbox.
func (m *Manager) HeaderState() HeaderState {
	selected := m.Count()
	if selected == 0 {
		return HeaderUnchecked
	}
	if selected >= m.selectableTotal() {
		return HeaderChecked
	}
	return HeaderIndeterminate
}

// ToggleAll selects or clears every selectable row in the dataset.
func (m *Manager) ToggleAll(checked bool) {
	if checked {
		for _, r := range m.host.Rows() {
			if r.ID != "" {
				m.sess.Selection[r.ID] = struct{}{}
			}
		}
	} else {
		for id := range m.sess.Selection {
			delete(m.sess.Selection, id)
		}
	}
	m.changed()
}

// ToggleRow sets one row's membership and records it as the last-interacted
// index for subsequent range selection. Rows without an id are ignored.
func (m *Manager) ToggleRow(id grid.RowID, checked bool) {
	if id == "" {
		return
	}
	if checked {
		m.sess.Selection[id] = struct{}{}
	} else {
		delete(m.sess.Selection, id)
	}
	if idx, ok := m.visibleIndex(id); ok {
		m.sess.LastSelectedIndex = idx
	}
	m.changed()
}

// ToggleRange selects every row between the last-interacted index and the
// given row, inclusive. Rows in between are forced selected, not toggled.
// Without a prior index this degrades to a plain select.
func (m *Manager) ToggleRange(id grid.RowID) {
	idx, ok := m.visibleIndex(id)
	if !ok {
		return
	}

	from := m.sess.LastSelectedIndex
	if from < 0 {
		from = idx
	}
	lo, hi := from, idx
	if lo > hi {
		lo, hi = hi, lo
	}

	visible := m.host.VisibleRows()
	if hi >= len(visible) {
		hi = len(visible) - 1
	}
	for i := lo; i <= hi; i++ {
		if visible[i].ID != "" {
			m.sess.Selection[visible[i].ID] = struct{}{}
		}
	}
	m.sess.LastSelectedIndex = idx
	m.changed()
}

// Clear empties the selection.
func (m *Manager) Clear() {
	if len(m.sess.Selection) == 0 {
		return
	}
	for id := range m.sess.Selection {
		delete(m.sess.Selection, id)
	}
	m.sess.LastSelectedIndex = -1
	m.changed()
}

// Reconcile prunes selected ids no longer present in the dataset. Called
// on every redraw so the count badge never references ghost rows.
func (m *Manager) Reconcile() {
	present := make(map[grid.RowID]struct{})
	for _, r := range m.host.Rows() {
		if r.ID != "" {
			present[r.ID] = struct{}{}
		}
	}
	pruned := false
	for id := range m.sess.Selection {
		if _, ok := present[id]; !ok {
			delete(m.sess.Selection, id)
			pruned = true
		}
	}
	if pruned {
		m.changed()
	}
}

// selectedRows returns the selected rows in dataset order.
func (m *Manager) selectedRows() []grid.Row {
	var out []grid.Row
	for _, r := range m.host.Rows() {
		if _, ok := m.sess.Selection[r.ID]; ok {
			out = append(out, r)
		}
	}
	return out
}

func (m *Manager) visibleIndex(id grid.RowID) (int, bool) {
	for i, r := range m.host.VisibleRows() {
		if r.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (m *Manager) changed() {
	if m.cfg.PersistSelection {
		m.persist()
	}
	m.bus.Publish(event.New(event.TopicSelectionChanged, m.host.TableID(), event.SelectionPayload{
		Selected: m.Count(),
		Total:    m.selectableTotal(),
	}))
}

// persist writes the selected ids to durable storage.
func (m *Manager) persist() {
	if m.kv == nil {
		return
	}
	data, err := json.Marshal(m.IDs())
	if err != nil {
		m.log.Warn("selection persist marshal failed: %v", err)
		return
	}
	if err := m.kv.Set(storage.Key(m.host.TableID(), "selection"), string(data)); err != nil {
		m.log.Warn("selection persist failed: %v", err)
	}
}

// Restore re-checks rows whose saved id still exists in the dataset,
// silently skipping the rest.
func (m *Manager) Restore() {
	if m.kv == nil || !m.cfg.PersistSelection {
		return
	}
	raw, ok, err := m.kv.Get(storage.Key(m.host.TableID(), "selection"))
	if err != nil {
		m.log.Warn("selection restore failed: %v", err)
		return
	}
	if !ok {
		return
	}
	var ids []grid.RowID
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		m.log.Warn("selection restore unmarshal failed: %v", err)
		return
	}

	present := make(map[grid.RowID]struct{})
	for _, r := range m.host.Rows() {
		present[r.ID] = struct{}{}
	}
	restored := 0
	for _, id := range ids {
		if _, ok := present[id]; ok {
			m.sess.Selection[id] = struct{}{}
			restored++
		}
	}
	if restored > 0 {
		m.changed()
	}
}

// ErrNotConfirmed is returned when the user declines (or no confirmation
// prompt is installed for) a bulk delete.
var ErrNotConfirmed = fmt.Errorf("selection: bulk delete not confirmed")

// BulkDelete removes the selected rows after explicit confirmation. With a
// Delete hook the removal is delegated: the local dataset only changes on
// hook success.
func (m *Manager) BulkDelete(ctx context.Context) error {
	rows := m.selectedRows()
	if len(rows) == 0 {
		return nil
	}

	prompt := fmt.Sprintf("Delete %d selected row(s)?", len(rows))
	if m.confirm == nil || !m.confirm(prompt) {
		return ErrNotConfirmed
	}

	if m.hooks.Delete != nil {
		if err := m.hooks.Delete(ctx, rows); err != nil {
			return fmt.Errorf("delete hook: %w", err)
		}
	}

	ids := make([]grid.RowID, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
		delete(m.sess.Selection, r.ID)
	}
	m.host.RemoveRows(ids)
	m.sess.LastSelectedIndex = -1
	m.changed()

	m.bus.Publish(event.New(event.TopicBulkCompleted, m.host.TableID(), event.BulkPayload{
		Action: "delete",
		Rows:   len(ids),
	}))
	return nil
}

// BulkUpdate writes one field across the selected rows, delegating to the
// Update hook first when supplied. The local write uses the injected
// dot-path updater.
func (m *Manager) BulkUpdate(ctx context.Context, fieldPath, value string) error {
	rows := m.selectedRows()
	if len(rows) == 0 {
		return nil
	}

	if m.hooks.Update != nil {
		if err := m.hooks.Update(ctx, rows, fieldPath, value); err != nil {
			return fmt.Errorf("update hook: %w", err)
		}
	}

	if m.updateLocal != nil {
		for _, r := range rows {
			data, err := m.updateLocal(r.Data, fieldPath, value)
			if err != nil {
				return fmt.Errorf("update row %s: %w", r.ID, err)
			}
			m.host.UpdateRow(r.ID, data)
		}
	}
	m.host.Redraw()

	m.bus.Publish(event.New(event.TopicBulkCompleted, m.host.TableID(), event.BulkPayload{
		Action: "update",
		Rows:   len(rows),
	}))
	return nil
}
