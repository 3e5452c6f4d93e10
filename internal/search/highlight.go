package search

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dshills/gridkit/internal/session"
)

// Highlight markers wrap matched substrings in visible cell text. They are
// control characters no dataset value contains, so stripping them is safe
// to repeat; the renderer replaces them with its own emphasis.
const (
	MarkStart = "\x00H"
	MarkEnd   = "\x00h"
)

// StripMarks removes any previous highlight markup. Decoration is always
// strip-then-apply, which makes re-highlighting after every redraw
// idempotent.
func StripMarks(s string) string {
	if !strings.Contains(s, MarkStart) {
		return s
	}
	s = strings.ReplaceAll(s, MarkStart, "")
	return strings.ReplaceAll(s, MarkEnd, "")
}

// Highlighter decorates visible cell text according to the active search
// state.
type Highlighter struct {
	state session.SearchState
	re    *regexp.Regexp
	terms []string
}

// NewHighlighter builds a decorator for the given state. Returns nil when
// highlighting is off or the state has nothing to mark.
func NewHighlighter(state session.SearchState) *Highlighter {
	if !state.Highlight || !state.Active() {
		return nil
	}
	h := &Highlighter{state: state}

	switch state.Mode {
	case session.ModeSimple:
		h.terms = []string{state.Query}
	case session.ModeRegex:
		src := state.Query
		if !state.CaseSensitive {
			src = "(?i)" + state.Query
		}
		re, err := regexp.Compile(src)
		if err != nil {
			return nil
		}
		h.re = re
	case session.ModeOperator:
		if state.Tree != nil {
			h.terms = state.Tree.Terms()
		}
	case session.ModeColumn:
		// Column terms are applied per column in DecorateColumn.
	}
	return h
}

// Decorate marks matches in one cell's text. Prior markup is stripped
// first. The column index scopes column-mode highlighting.
func (h *Highlighter) Decorate(col int, text string) string {
	if h == nil {
		return StripMarks(text)
	}
	text = StripMarks(text)

	if h.re != nil {
		return h.re.ReplaceAllStringFunc(text, func(m string) string {
			if m == "" {
				return m
			}
			return MarkStart + m + MarkEnd
		})
	}

	terms := h.terms
	if h.state.Mode == session.ModeColumn {
		terms = nil
		for _, f := range h.state.ColumnFilters {
			if f.Col == col {
				terms = append(terms, f.Term)
			}
		}
	}
	for _, term := range terms {
		text = markTerm(text, term)
	}
	return text
}

// markTerm wraps every case-insensitive occurrence of term. Matching and
// slicing both walk the original text rune by rune; folding through a
// lowered copy would shift byte offsets, since case mappings can change
// rune length (İ, Ⱥ).
func markTerm(text, term string) string {
	if term == "" {
		return text
	}

	var b strings.Builder
	i := 0
	for i < len(text) {
		n, ok := foldPrefix(text[i:], term)
		if !ok {
			_, size := utf8.DecodeRuneInString(text[i:])
			b.WriteString(text[i : i+size])
			i += size
			continue
		}
		b.WriteString(MarkStart)
		b.WriteString(text[i : i+n])
		b.WriteString(MarkEnd)
		i += n
	}
	return b.String()
}

// foldPrefix reports whether s starts with term ignoring case, returning
// the byte length of the matched prefix of s.
func foldPrefix(s, term string) (int, bool) {
	n := 0
	for _, tr := range term {
		r, size := utf8.DecodeRuneInString(s[n:])
		if size == 0 {
			return 0, false
		}
		if r != tr && unicode.ToLower(r) != unicode.ToLower(tr) {
			return 0, false
		}
		n += size
	}
	return n, true
}
