// Package footer recomputes summary values from the currently filtered
// column data on every redraw and formats them into footer cells.
//
// Numeric coercion is deliberately literal about mixed data: sum and
// average treat a non-numeric entry as contributing zero while it still
// counts toward average's denominator; min and max ignore non-numeric
// entries entirely. Sum over [10, "bad", 5] is 15, and average over the
// same values is 5.
package footer

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dshills/gridkit/internal/config"
	"github.com/dshills/gridkit/internal/grid"
	"github.com/dshills/gridkit/internal/logging"
	"github.com/dshills/gridkit/internal/render"
)

// AggFunc is a custom aggregation: the currently filtered values of one
// column in, the formatted cell text out.
type AggFunc func(values []string) string

// Registry maps names to custom aggregation functions.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]AggFunc
}

// NewRegistry creates an empty aggregation registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]AggFunc)}
}

// Register adds or replaces a function under the given name.
func (r *Registry) Register(name string, fn AggFunc) {
	if name == "" || fn == nil {
		return
	}
	r.mu.Lock()
	r.funcs[name] = fn
	r.mu.Unlock()
}

// Resolve looks a function up. Unregistered names resolve to (nil, false);
// the engine renders an empty cell rather than erroring.
func (r *Registry) Resolve(name string) (AggFunc, bool) {
	r.mu.RLock()
	fn, ok := r.funcs[name]
	r.mu.RUnlock()
	return fn, ok
}

// Engine computes the footer cells of one table.
type Engine struct {
	host    grid.Host
	log     *logging.Logger
	columns []config.Column
	cfg     config.Footer
	customs *Registry

	cells []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry attaches the custom aggregation registry.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) { e.customs = r }
}

// WithLogger sets the logger.
func WithLogger(log *logging.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New creates the aggregation engine for one table.
func New(host grid.Host, columns []config.Column, cfg config.Footer, opts ...Option) *Engine {
	e := &Engine{
		host:    host,
		log:     logging.Discard(),
		columns: columns,
		cfg:     cfg,
		customs: NewRegistry(),
		cells:   make([]string, len(columns)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Cells returns the formatted footer row, one entry per column. Columns
// without a footer spec are empty strings.
func (e *Engine) Cells() []string {
	return e.cells
}

// Recompute rebuilds every footer cell from the currently filtered rows.
// Specs naming a column index outside the column set are skipped with a
// warning, never a failure.
func (e *Engine) Recompute() {
	for i := range e.cells {
		e.cells[i] = ""
	}
	if !e.cfg.Enabled {
		return
	}

	visible := e.host.VisibleRows()
	for _, spec := range e.cfg.Columns {
		if spec.Col < 0 || spec.Col >= len(e.columns) {
			e.log.Warn("footer spec references missing column %d, skipping", spec.Col)
			continue
		}
		values := columnValues(visible, e.columns[spec.Col].Data)
		e.cells[spec.Col] = e.compute(spec, values)
	}
}

// columnValues pulls one column's display values from the filtered rows.
func columnValues(rows []grid.Row, path string) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Field(path)
	}
	return out
}

func (e *Engine) compute(spec config.FooterColumn, values []string) string {
	switch spec.Agg {
	case config.AggSum:
		return e.format(spec, Sum(values))
	case config.AggAverage:
		return e.format(spec, Average(values))
	case config.AggMin:
		v, ok := Min(values)
		if !ok {
			return decorate(spec, "")
		}
		return e.format(spec, v)
	case config.AggMax:
		v, ok := Max(values)
		if !ok {
			return decorate(spec, "")
		}
		return e.format(spec, v)
	case config.AggCount:
		return decorate(spec, strconv.Itoa(Count(values)))
	case config.AggCountUnique:
		return decorate(spec, strconv.Itoa(CountUnique(values)))
	case config.AggStatic:
		return decorate(spec, spec.Static)
	case config.AggCustom:
		fn, ok := e.customs.Resolve(spec.Custom)
		if !ok {
			e.log.Warn("custom aggregation %q not registered", spec.Custom)
			return ""
		}
		return decorate(spec, fn(values))
	default:
		return ""
	}
}

// Sum adds the numeric entries; non-numeric entries contribute zero.
func Sum(values []string) float64 {
	total := 0.0
	for _, v := range values {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			total += f
		}
	}
	return total
}

// Average divides the sum by the number of present entries. Non-numeric
// entries contribute zero to the numerator but still count in the
// denominator.
func Average(values []string) float64 {
	if len(values) == 0 {
		return 0
	}
	return Sum(values) / float64(len(values))
}

// Min returns the smallest numeric entry. Non-numeric entries are ignored;
// ok is false when no entry is numeric.
func Min(values []string) (float64, bool) {
	best := 0.0
	found := false
	for _, v := range values {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			if !found || f < best {
				best = f
			}
			found = true
		}
	}
	return best, found
}

// Max returns the largest numeric entry, ignoring non-numeric ones.
func Max(values []string) (float64, bool) {
	best := 0.0
	found := false
	for _, v := range values {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			if !found || f > best {
				best = f
			}
			found = true
		}
	}
	return best, found
}

// Count counts non-empty values.
func Count(values []string) int {
	n := 0
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}

// CountUnique counts distinct non-empty values.
func CountUnique(values []string) int {
	seen := make(map[string]struct{})
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			seen[trimmed] = struct{}{}
		}
	}
	return len(seen)
}

// format renders a numeric aggregate with the column's precision and
// grouping, then decorates it.
func (e *Engine) format(spec config.FooterColumn, v float64) string {
	var text string
	if spec.Decimals != nil {
		text = strconv.FormatFloat(v, 'f', *spec.Decimals, 64)
	} else {
		text = strconv.FormatFloat(v, 'f', -1, 64)
	}
	if spec.ThousandsSep {
		text = render.GroupThousands(text)
	}
	return decorate(spec, text)
}

// decorate applies prefix, suffix, and label wrapping.
func decorate(spec config.FooterColumn, text string) string {
	text = spec.Prefix + text + spec.Suffix
	if spec.Label != "" {
		text = spec.Label + ": " + text
	}
	return text
}

// Names returns the registered custom aggregation names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
