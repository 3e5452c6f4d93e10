// Package search implements the four interchangeable search strategies:
// simple substring, regular expression, boolean operator expressions, and
// per-column filters. One mode is active at a time per table; applying a
// mode replaces the whole search state, so switching modes always clears
// the prior mode's filter.
package search

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dshills/gridkit/internal/config"
	"github.com/dshills/gridkit/internal/event"
	"github.com/dshills/gridkit/internal/grid"
	"github.com/dshills/gridkit/internal/logging"
	"github.com/dshills/gridkit/internal/search/expr"
	"github.com/dshills/gridkit/internal/session"
)

// QueryError reports a query the engine refused to apply. The previous
// search state is left unchanged.
type QueryError struct {
	Mode    session.SearchMode
	Message string
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("%s search: %s", e.Mode, e.Message)
}

// Engine applies search queries for one table.
type Engine struct {
	sess    *session.Session
	host    grid.Host
	bus     *event.Bus
	log     *logging.Logger
	columns []config.Column
	cfg     config.Search

	history *History
}

// Option configures an Engine.
type Option func(*Engine)

// WithHistory attaches a persisted query history.
func WithHistory(h *History) Option {
	return func(e *Engine) { e.history = h }
}

// WithLogger sets the logger.
func WithLogger(log *logging.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New creates the search engine for one table session.
func New(sess *session.Session, host grid.Host, bus *event.Bus, columns []config.Column, cfg config.Search, opts ...Option) *Engine {
	e := &Engine{
		sess:    sess,
		host:    host,
		bus:     bus,
		log:     logging.Discard(),
		columns: columns,
		cfg:     cfg,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// searchablePaths returns the data paths included in row-wide matching.
func (e *Engine) searchablePaths() []string {
	var paths []string
	for _, col := range e.columns {
		if col.IsSearchable() {
			paths = append(paths, col.Data)
		}
	}
	return paths
}

// rowText concatenates a row's searchable column values, the implicit
// haystack of simple, regex, and operator modes.
func (e *Engine) rowText(r grid.Row) string {
	var b strings.Builder
	for i, path := range e.searchablePaths() {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(r.Field(path))
	}
	return b.String()
}

// ApplySimple installs a case-insensitive substring filter across all
// searchable columns. An empty query clears the search.
func (e *Engine) ApplySimple(query string) error {
	if strings.TrimSpace(query) == "" {
		e.Clear()
		return nil
	}
	needle := strings.ToLower(query)
	e.install(session.SearchState{
		Mode:      session.ModeSimple,
		Query:     query,
		Highlight: e.cfg.HighlightResults,
	}, func(r grid.Row) bool {
		return strings.Contains(strings.ToLower(e.rowText(r)), needle)
	})
	return nil
}

// ApplyRegex compiles the pattern and installs it as a row filter. An
// invalid pattern is rejected with a QueryError and the previous search
// state stays applied, untouched.
func (e *Engine) ApplyRegex(pattern string, caseSensitive bool) error {
	if strings.TrimSpace(pattern) == "" {
		e.Clear()
		return nil
	}
	src := pattern
	if !caseSensitive {
		src = "(?i)" + pattern
	}
	re, err := regexp.Compile(src)
	if err != nil {
		return &QueryError{Mode: session.ModeRegex, Message: err.Error()}
	}
	e.install(session.SearchState{
		Mode:          session.ModeRegex,
		Query:         pattern,
		CaseSensitive: caseSensitive,
		Highlight:     e.cfg.HighlightResults,
	}, func(r grid.Row) bool {
		return re.MatchString(e.rowText(r))
	})
	return nil
}

// ApplyOperator parses the boolean expression and installs its evaluator
// over each row's concatenated text. Malformed parenthesization degrades
// to an always-true expression rather than erroring.
func (e *Engine) ApplyOperator(query string) error {
	if strings.TrimSpace(query) == "" {
		e.Clear()
		return nil
	}
	tree := expr.Parse(query)
	e.install(session.SearchState{
		Mode:      session.ModeOperator,
		Query:     query,
		Tree:      tree,
		Highlight: e.cfg.HighlightResults,
	}, func(r grid.Row) bool {
		return tree.Eval(e.rowText(r))
	})
	return nil
}

// ApplyColumn installs an ordered list of per-column substring filters,
// all conjunctive. Pairs naming an unknown column are skipped with a
// warning. An empty list clears the search.
func (e *Engine) ApplyColumn(filters []session.ColumnFilter) error {
	kept := filters[:0:0]
	for _, f := range filters {
		if f.Col < 0 || f.Col >= len(e.columns) {
			e.log.Warn("column filter references missing column %d", f.Col)
			continue
		}
		if strings.TrimSpace(f.Term) == "" {
			continue
		}
		kept = append(kept, f)
	}
	if len(kept) == 0 {
		e.Clear()
		return nil
	}

	paths := make([]string, len(kept))
	needles := make([]string, len(kept))
	for i, f := range kept {
		paths[i] = e.columns[f.Col].Data
		needles[i] = strings.ToLower(f.Term)
	}

	e.install(session.SearchState{
		Mode:          session.ModeColumn,
		ColumnFilters: kept,
		Highlight:     e.cfg.HighlightResults,
	}, func(r grid.Row) bool {
		for i, path := range paths {
			if !strings.Contains(strings.ToLower(r.Field(path)), needles[i]) {
				return false
			}
		}
		return true
	})
	return nil
}

// Clear removes the active filter and resets the search state.
func (e *Engine) Clear() {
	wasActive := e.sess.Search.Active()
	e.sess.Search = session.SearchState{}
	e.host.SetFilter(nil)
	if wasActive {
		e.bus.Publish(event.New(event.TopicSearchCleared, e.host.TableID(), event.SearchPayload{}))
	}
}

// install replaces the search state wholesale, applies the filter, records
// history, and announces the result count.
func (e *Engine) install(state session.SearchState, filter grid.Filter) {
	e.sess.Search = state
	e.host.SetFilter(filter)

	matched := len(e.host.VisibleRows())

	if e.history != nil {
		query := state.Query
		if state.Mode == session.ModeColumn {
			query = columnQueryText(state.ColumnFilters)
		}
		if query != "" {
			e.history.Append(query, state.Mode)
		}
	}

	e.bus.Publish(event.New(event.TopicSearchApplied, e.host.TableID(), event.SearchPayload{
		Mode:    string(state.Mode),
		Query:   state.Query,
		Matched: matched,
	}))
}

// columnQueryText renders column filters as history text, "col:term"
// pairs joined by spaces.
func columnQueryText(filters []session.ColumnFilter) string {
	parts := make([]string, len(filters))
	for i, f := range filters {
		parts[i] = fmt.Sprintf("%d:%s", f.Col, f.Term)
	}
	return strings.Join(parts, " ")
}

// History returns the attached history, or nil.
func (e *Engine) History() *History {
	return e.history
}
