// Package engine assembles the grid subsystems for one table: session
// state, selection, editing, search, footer aggregates, keyboard routing,
// and announcements, wired over a shared event bus. The embedding surface
// supplies a grid.Host and receives a fully configured Engine.
package engine

import (
	"context"
	"fmt"

	"github.com/dshills/gridkit/internal/announce"
	"github.com/dshills/gridkit/internal/config"
	"github.com/dshills/gridkit/internal/edit"
	"github.com/dshills/gridkit/internal/event"
	"github.com/dshills/gridkit/internal/footer"
	"github.com/dshills/gridkit/internal/grid"
	"github.com/dshills/gridkit/internal/keynav"
	"github.com/dshills/gridkit/internal/logging"
	"github.com/dshills/gridkit/internal/render"
	"github.com/dshills/gridkit/internal/script"
	"github.com/dshills/gridkit/internal/search"
	"github.com/dshills/gridkit/internal/selection"
	"github.com/dshills/gridkit/internal/session"
	"github.com/dshills/gridkit/internal/storage"
)

// Engine coordinates every feature of one mounted table.
type Engine struct {
	host grid.Host
	cfg  config.Config
	log  *logging.Logger

	bus      *event.Bus
	sessions *session.Store
	kv       storage.KV

	renders *render.Registry
	aggs    *footer.Registry
	scripts *script.Runtime

	sess     *session.Session
	sel      *selection.Manager
	editor   *edit.Controller
	searcher *search.Engine
	footers  *footer.Engine
	keys     *keynav.Manager
	announcr *announce.Announcer

	selHooks   selection.Hooks
	confirm    selection.ConfirmFunc
	saveHook   edit.SaveHook
	validator  edit.Validator
	actions    map[string]keynav.ActionFunc
	onAnnounce func(announce.Politeness, string)

	attached bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger shared by every subsystem.
func WithLogger(log *logging.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithStorage sets the persistence backend for selection and search
// history. Defaults to in-memory.
func WithStorage(kv storage.KV) Option {
	return func(e *Engine) { e.kv = kv }
}

// WithSessionStore shares one session store across engines, enforcing the
// one-session-per-table rule application wide.
func WithSessionStore(s *session.Store) Option {
	return func(e *Engine) { e.sessions = s }
}

// WithSelectionHooks sets the bulk action callbacks.
func WithSelectionHooks(h selection.Hooks) Option {
	return func(e *Engine) { e.selHooks = h }
}

// WithConfirm sets the destructive action confirmation prompt.
func WithConfirm(fn selection.ConfirmFunc) Option {
	return func(e *Engine) { e.confirm = fn }
}

// WithSaveHook sets the external persistence callback for cell saves.
func WithSaveHook(h edit.SaveHook) Option {
	return func(e *Engine) { e.saveHook = h }
}

// WithValidator adds an external validator run after the built-in rules.
func WithValidator(v edit.Validator) Option {
	return func(e *Engine) { e.validator = v }
}

// WithAction registers a keyboard action handler by name.
func WithAction(name string, fn keynav.ActionFunc) Option {
	return func(e *Engine) { e.actions[name] = fn }
}

// WithAnnounceFunc receives live region changes, for surfaces that voice
// or display them.
func WithAnnounceFunc(fn func(announce.Politeness, string)) Option {
	return func(e *Engine) { e.onAnnounce = fn }
}

// New validates cfg and prepares an engine for host. The optional Lua
// script is loaded here so registration errors surface before Attach.
func New(host grid.Host, cfg config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	e := &Engine{
		host:    host,
		cfg:     cfg,
		log:     logging.Discard(),
		bus:     event.NewBus(),
		kv:      storage.NewMemory(),
		renders: render.NewRegistry(),
		aggs:    footer.NewRegistry(),
		actions: make(map[string]keynav.ActionFunc),
	}
	for _, o := range opts {
		o(e)
	}
	if e.sessions == nil {
		e.sessions = session.NewStore()
	}
	e.log = e.log.WithTable(host.TableID())

	if cfg.LuaScript != "" {
		e.scripts = script.New(e.renders, e.aggs, script.WithLogger(e.log))
		if err := e.scripts.LoadFile(cfg.LuaScript); err != nil {
			e.scripts.Close()
			return nil, fmt.Errorf("engine: %w", err)
		}
	}

	return e, nil
}

// Bus exposes the engine's event bus for external subscribers.
func (e *Engine) Bus() *event.Bus { return e.bus }

// Renders exposes the renderer registry for Go-side registrations.
func (e *Engine) Renders() *render.Registry { return e.renders }

// Aggregates exposes the footer aggregate registry.
func (e *Engine) Aggregates() *footer.Registry { return e.aggs }

// Session returns the live session, or nil before Attach.
func (e *Engine) Session() *session.Session { return e.sess }

// Selection returns the selection manager, or nil before Attach.
func (e *Engine) Selection() *selection.Manager { return e.sel }

// Edit returns the edit controller, or nil before Attach.
func (e *Engine) Edit() *edit.Controller { return e.editor }

// Search returns the search engine, or nil before Attach.
func (e *Engine) Search() *search.Engine { return e.searcher }

// Footer returns the footer engine, or nil before Attach.
func (e *Engine) Footer() *footer.Engine { return e.footers }

// Keyboard returns the keyboard manager, or nil before Attach.
func (e *Engine) Keyboard() *keynav.Manager { return e.keys }

// Announcer returns the announcer, or nil before Attach.
func (e *Engine) Announcer() *announce.Announcer { return e.announcr }

// Attach creates the table's session and wires every subsystem. Attaching
// an already attached engine is a logged no-op; existing state is kept.
func (e *Engine) Attach() error {
	if e.attached {
		e.log.Warn("attach called twice, keeping existing state")
		return nil
	}

	sess, err := e.sessions.Create(e.host.TableID())
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	e.sess = sess

	e.sel = selection.New(sess, e.host, e.bus, e.cfg.Columns, e.cfg.Selection,
		selection.WithHooks(e.selHooks),
		selection.WithConfirm(e.confirm),
		selection.WithStorage(e.kv),
		selection.WithLogger(e.log),
		selection.WithLocalUpdater(func(data []byte, fieldPath, value string) ([]byte, error) {
			return edit.WriteField(data, fieldPath, value, e.editType(fieldPath))
		}),
	)

	e.editor = edit.New(sess, e.host, e.bus, e.cfg.Columns,
		edit.WithSaveHook(e.saveHook),
		edit.WithValidator(e.validator),
		edit.WithLogger(e.log),
	)

	history := search.NewHistory(e.kv, e.host.TableID(), e.cfg.MaxHistory(), e.log)
	e.searcher = search.New(sess, e.host, e.bus, e.cfg.Columns, e.cfg.Search,
		search.WithHistory(history),
		search.WithLogger(e.log),
	)

	e.footers = footer.New(e.host, e.cfg.Columns, e.cfg.Footer,
		footer.WithRegistry(e.aggs),
		footer.WithLogger(e.log),
	)

	e.announcr = announce.New(e.cfg.Accessibility,
		announce.WithLogger(e.log),
		announce.WithChangeFunc(e.onAnnounce),
	)

	keyOpts := []keynav.Option{
		keynav.WithEdit(e.editor),
		keynav.WithSelection(e.sel),
		keynav.WithLogger(e.log),
		keynav.WithAnnounceFunc(func(msg string) {
			e.announcr.Announce(msg, announce.Polite)
		}),
		keynav.WithAction(keynav.ActionClearSearch, func(context.Context) {
			e.searcher.Clear()
		}),
		keynav.WithAction(keynav.ActionExport, func(ctx context.Context) {
			if _, err := e.sel.BulkExport(ctx); err != nil {
				e.log.Warn("export failed: %v", err)
			}
		}),
	}
	for name, fn := range e.actions {
		keyOpts = append(keyOpts, keynav.WithAction(name, fn))
	}
	e.keys = keynav.New(sess, e.host, e.cfg.Columns, e.cfg.Keyboard, keyOpts...)

	// Redraw pipeline first, announcements last: the announcer reacts to
	// events published at the end of the pipeline.
	e.host.OnRedraw(e.redraw)
	e.host.OnSort(func(field string, descending bool) {
		e.bus.Publish(event.New(event.TopicSortChanged, e.host.TableID(),
			event.SortPayload{Column: e.columnTitle(field), Descending: descending}))
	})
	e.host.OnPage(func(page int) {
		_, pages := e.host.Page()
		e.bus.Publish(event.New(event.TopicPageChanged, e.host.TableID(),
			event.PagePayload{Page: page, PageCount: pages}))
	})
	e.announcr.Bind(e.bus)

	e.attached = true

	e.host.OnReady(func() {
		if e.cfg.Selection.PersistSelection {
			e.sel.Restore()
		}
		e.footers.Recompute()
		e.log.Info("table attached")
	})

	return nil
}

// Detach destroys the table's session and releases the script runtime.
// The storage backend is owned by the caller and stays open.
func (e *Engine) Detach() {
	if !e.attached {
		return
	}
	e.sessions.Destroy(e.host.TableID())
	if e.scripts != nil {
		e.scripts.Close()
	}
	e.attached = false
	e.sess = nil
	e.log.Info("table detached")
}

// redraw runs the per-redraw pipeline: drop any in-progress edit, prune
// ghost selections, pull focus back into range, recompute the footer, then
// let subscribers react. An edit session never survives a redraw; the page
// under it may have been re-sorted or filtered.
func (e *Engine) redraw() {
	e.editor.Cancel()
	e.sel.Reconcile()
	e.keys.ClampFocus()
	e.footers.Recompute()
	e.bus.Publish(event.New(event.TopicRedraw, e.host.TableID(), event.RedrawPayload{
		VisibleRows: len(e.host.VisibleRows()),
		TotalRows:   len(e.host.Rows()),
	}))
}

// CellText produces the display text of one cell: the raw field value,
// through the column's renderer if one is configured, through search
// highlighting last so markers wrap the rendered text.
func (e *Engine) CellText(row grid.Row, col int) string {
	if col < 0 || col >= len(e.cfg.Columns) {
		return ""
	}
	spec := e.cfg.Columns[col]
	text := row.Field(spec.Data)

	if spec.Render != "" {
		if fn, ok := e.renders.Resolve(spec.Render); ok {
			text = fn(text, row)
		} else {
			e.log.Warn("column %q names unknown renderer %q", spec.Data, spec.Render)
		}
	}

	if h := search.NewHighlighter(e.sess.Search); h != nil {
		return h.Decorate(col, text)
	}
	return search.StripMarks(text)
}

// editType maps a field path back to its column's edit type, for bulk
// local updates that bypass the edit controller.
func (e *Engine) editType(fieldPath string) config.EditType {
	for _, c := range e.cfg.Columns {
		if c.Data == fieldPath {
			return c.EditType
		}
	}
	return config.EditText
}

// columnTitle resolves a field path to its column title for announcements;
// unknown paths pass through unchanged.
func (e *Engine) columnTitle(field string) string {
	for _, c := range e.cfg.Columns {
		if c.Data == field {
			if c.Title != "" {
				return c.Title
			}
			break
		}
	}
	return field
}
