// Package render maps symbolic names to cell-formatting functions. Column
// specs reference formatters by name; resolution happens at attach time
// with an explicit missing result so an unresolved name degrades to raw
// value display instead of failing the table.
package render

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dshills/gridkit/internal/grid"
)

// Func formats a cell value for display. It receives the raw field text and
// the whole row, so a formatter can combine fields.
type Func func(value string, row grid.Row) string

// Registry is a typed name-to-formatter lookup. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry creates a registry preloaded with the built-in formatters.
func NewRegistry() *Registry {
	r := &Registry{funcs: make(map[string]Func)}
	registerBuiltins(r)
	return r
}

// Register adds or replaces a formatter under the given name.
func (r *Registry) Register(name string, fn Func) {
	if name == "" || fn == nil {
		return
	}
	r.mu.Lock()
	r.funcs[name] = fn
	r.mu.Unlock()
}

// Resolve looks a formatter up. The second result is false for an
// unregistered name; callers log a warning and fall back to the raw value.
func (r *Registry) Resolve(name string) (Func, bool) {
	r.mu.RLock()
	fn, ok := r.funcs[name]
	r.mu.RUnlock()
	return fn, ok
}

// Names returns the registered names, sorted.
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

// Built-in formatters, registered under the names column specs use.
func registerBuiltins(r *Registry) {
	r.Register("currency", func(value string, _ grid.Row) string {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return value
		}
		return "$" + groupThousands(strconv.FormatFloat(f, 'f', 2, 64))
	})

	r.Register("percent", func(value string, _ grid.Row) string {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return value
		}
		return strconv.FormatFloat(f, 'f', 1, 64) + "%"
	})

	r.Register("upper", func(value string, _ grid.Row) string {
		return strings.ToUpper(value)
	})

	r.Register("lower", func(value string, _ grid.Row) string {
		return strings.ToLower(value)
	})

	r.Register("date", func(value string, _ grid.Row) string {
		for _, layout := range []string{time.RFC3339, "2006-01-02", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, value); err == nil {
				return t.Format("Jan 2, 2006")
			}
		}
		return value
	})

	r.Register("truncate", func(value string, _ grid.Row) string {
		const max = 40
		runes := []rune(value)
		if len(runes) <= max {
			return value
		}
		return string(runes[:max-1]) + "…"
	})
}

// groupThousands inserts comma separators into a formatted number's
// integer part. The sign and decimals pass through untouched.
func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}
	intPart := s
	frac := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	if len(intPart) <= 3 {
		return sign + intPart + frac
	}
	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	return sign + b.String() + frac
}

// GroupThousands is exported for the footer formatter, which applies the
// same grouping to aggregate output.
func GroupThousands(s string) string {
	return groupThousands(s)
}

// Describe returns a short human-readable summary of the registry, used in
// debug logs.
func (r *Registry) Describe() string {
	return fmt.Sprintf("render registry (%d functions)", len(r.Names()))
}
