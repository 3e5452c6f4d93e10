// Package term draws a table on a terminal screen. It is the reference
// rendering surface for the engine: header with sort indicator, the
// current page of rows with focus, selection, and search highlighting,
// footer aggregates, and a status line fed by the announcer.
package term

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"

	"github.com/dshills/gridkit/internal/config"
	"github.com/dshills/gridkit/internal/engine"
	"github.com/dshills/gridkit/internal/grid"
	"github.com/dshills/gridkit/internal/keynav/key"
	"github.com/dshills/gridkit/internal/search"
)

const (
	minColWidth  = 4
	selectionGut = 4 // "[x] "
)

// Renderer paints one table onto a tcell screen.
type Renderer struct {
	screen tcell.Screen
	eng    *engine.Engine
	host   grid.Host
	cols   []config.Column

	status string

	styleHeader    tcell.Style
	styleCell      tcell.Style
	styleFocus     tcell.Style
	styleMark      tcell.Style
	styleFooter    tcell.Style
	styleStatus    tcell.Style
	styleSelected  tcell.Style
	styleEditError tcell.Style
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithScreen injects a screen, used by tests with tcell's simulation
// screen instead of a real terminal.
func WithScreen(s tcell.Screen) Option {
	return func(r *Renderer) { r.screen = s }
}

// New creates a renderer for the engine's table.
func New(eng *engine.Engine, host grid.Host, cols []config.Column, opts ...Option) (*Renderer, error) {
	r := &Renderer{
		eng:  eng,
		host: host,
		cols: cols,

		styleHeader:    tcell.StyleDefault.Bold(true).Underline(true),
		styleCell:      tcell.StyleDefault,
		styleFocus:     tcell.StyleDefault.Reverse(true),
		styleMark:      tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorYellow),
		styleFooter:    tcell.StyleDefault.Bold(true),
		styleStatus:    tcell.StyleDefault.Dim(true),
		styleSelected:  tcell.StyleDefault.Foreground(tcell.ColorGreen),
		styleEditError: tcell.StyleDefault.Foreground(tcell.ColorRed),
	}
	for _, o := range opts {
		o(r)
	}
	if r.screen == nil {
		s, err := tcell.NewScreen()
		if err != nil {
			return nil, fmt.Errorf("term: %w", err)
		}
		r.screen = s
	}
	return r, nil
}

// Init initializes the screen.
func (r *Renderer) Init() error {
	if err := r.screen.Init(); err != nil {
		return fmt.Errorf("term: %w", err)
	}
	return nil
}

// Fini restores the terminal.
func (r *Renderer) Fini() {
	r.screen.Fini()
}

// Screen exposes the underlying screen for the event loop.
func (r *Renderer) Screen() tcell.Screen {
	return r.screen
}

// SetStatus updates the status line text, typically wired to the
// announcer's polite region.
func (r *Renderer) SetStatus(msg string) {
	r.status = msg
}

// Draw repaints the whole table.
func (r *Renderer) Draw() {
	r.screen.Clear()
	width, height := r.screen.Size()
	widths := r.colWidths(width)

	y := 0
	r.drawHeader(y, widths)
	y++

	sess := r.eng.Session()
	sel := r.eng.Selection()
	rows := r.host.PageRows()
	for i, row := range rows {
		if y >= height-2 {
			break
		}
		r.drawRow(y, i, row, widths, sess != nil && sess.Focus.Row == i, sel != nil && sel.IsSelected(row.ID))
		y++
	}

	if f := r.eng.Footer(); f != nil {
		r.drawFooter(height-2, widths, f.Cells())
	}
	r.drawStatus(height-1, width)
	r.screen.Show()
}

func (r *Renderer) drawHeader(y int, widths []int) {
	x := 0
	if r.selectionEnabled() {
		state := r.eng.Selection().HeaderState().String()
		x = r.drawText(x, y, selectionGut, "["+headerGlyph(state)+"]", r.styleHeader)
	}
	sortField, desc := r.host.Sort()
	for i, c := range r.cols {
		title := c.Title
		if c.Data == sortField && sortField != "" {
			if desc {
				title += " v"
			} else {
				title += " ^"
			}
		}
		x = r.drawText(x, y, widths[i], title, r.styleHeader) + 1
	}
}

func headerGlyph(state string) string {
	switch state {
	case "checked":
		return "x"
	case "indeterminate":
		return "-"
	}
	return " "
}

func (r *Renderer) drawRow(y, rowIdx int, row grid.Row, widths []int, focused, selected bool) {
	x := 0
	if r.selectionEnabled() {
		glyph := "[ ]"
		style := r.styleCell
		if selected {
			glyph = "[x]"
			style = r.styleSelected
		}
		x = r.drawText(x, y, selectionGut, glyph, style)
	}

	sess := r.eng.Session()
	for col := range r.cols {
		base := r.styleCell
		if focused && sess.Focus.Col == col {
			base = r.styleFocus
		}

		// An open editor shows pending text in place of the cell value.
		if es := sess.Edit; es != nil && focused && es.Col == col {
			text := es.Pending
			style := r.styleFocus
			if es.Err != "" {
				style = r.styleEditError
			}
			x = r.drawText(x, y, widths[col], text, style) + 1
			continue
		}

		x = r.drawSpans(x, y, widths[col], r.eng.CellText(row, col), base) + 1
	}
}

func (r *Renderer) drawFooter(y int, widths []int, cells []string) {
	x := 0
	if r.selectionEnabled() {
		x += selectionGut
	}
	for i := range r.cols {
		text := ""
		if i < len(cells) {
			text = cells[i]
		}
		x = r.drawText(x, y, widths[i], text, r.styleFooter) + 1
	}
}

func (r *Renderer) drawStatus(y, width int) {
	page, pages := r.host.Page()
	left := fmt.Sprintf("page %d/%d  rows %d/%d", page+1, pages,
		len(r.host.VisibleRows()), len(r.host.Rows()))
	if r.status != "" {
		left += "  |  " + r.status
	}
	r.drawText(0, y, width, left, r.styleStatus)
}

// drawSpans renders text that may carry highlight markers, switching to
// the mark style inside marked regions. Returns the x after the cell.
func (r *Renderer) drawSpans(x, y, w int, text string, base tcell.Style) int {
	end := x + w
	for _, part := range splitMarks(text) {
		style := base
		if part.marked {
			style = r.styleMark
		}
		budget := end - x
		if budget <= 0 {
			break
		}
		x = r.writeClipped(x, y, budget, part.text, style)
	}
	return end
}

// span is one run of cell text, marked or not.
type span struct {
	text   string
	marked bool
}

// splitMarks cuts text into runs on the highlight markers.
func splitMarks(text string) []span {
	var out []span
	for {
		start := strings.Index(text, search.MarkStart)
		if start < 0 {
			break
		}
		rest := text[start+len(search.MarkStart):]
		stop := strings.Index(rest, search.MarkEnd)
		if stop < 0 {
			break
		}
		if start > 0 {
			out = append(out, span{text: text[:start]})
		}
		out = append(out, span{text: rest[:stop], marked: true})
		text = rest[stop+len(search.MarkEnd):]
	}
	if text != "" {
		out = append(out, span{text: search.StripMarks(text)})
	}
	return out
}

// drawText writes text clipped to a w column cell and returns the x just
// past the cell, whether or not the text filled it.
func (r *Renderer) drawText(x, y, w int, text string, style tcell.Style) int {
	r.writeClipped(x, y, w, text, style)
	return x + w
}

// writeClipped writes text clipped to budget columns and returns the x
// after the last written grapheme. Cluster widths come from uniseg, so
// wide characters and emoji occupy their real number of cells.
func (r *Renderer) writeClipped(x, y, budget int, text string, style tcell.Style) int {
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		cw := g.Width()
		if cw > budget {
			break
		}
		runes := g.Runes()
		if len(runes) == 0 {
			continue
		}
		r.screen.SetContent(x, y, runes[0], runes[1:], style)
		x += cw
		budget -= cw
	}
	return x
}

// colWidths distributes the screen width over the columns. Configured
// widths are honored first; the rest share what remains.
func (r *Renderer) colWidths(total int) []int {
	if r.selectionEnabled() {
		total -= selectionGut
	}
	total -= len(r.cols) // separators

	widths := make([]int, len(r.cols))
	flexible := 0
	for i, c := range r.cols {
		if c.Width > 0 {
			widths[i] = c.Width
			total -= c.Width
		} else {
			flexible++
		}
	}
	if flexible > 0 {
		share := total / flexible
		if share < minColWidth {
			share = minColWidth
		}
		for i := range widths {
			if widths[i] == 0 {
				widths[i] = share
			}
		}
	}
	return widths
}

func (r *Renderer) selectionEnabled() bool {
	return r.eng.Selection() != nil && r.eng.Selection().Enabled()
}

// TranslateKey converts a tcell key event into the engine's key model.
// The second return is false for events the grid has no mapping for.
func TranslateKey(ev *tcell.EventKey) (key.Event, bool) {
	mods := key.ModNone
	if ev.Modifiers()&tcell.ModShift != 0 {
		mods = mods.With(key.ModShift)
	}
	if ev.Modifiers()&tcell.ModCtrl != 0 {
		mods = mods.With(key.ModCtrl)
	}
	if ev.Modifiers()&tcell.ModAlt != 0 {
		mods = mods.With(key.ModAlt)
	}
	if ev.Modifiers()&tcell.ModMeta != 0 {
		mods = mods.With(key.ModMeta)
	}

	switch ev.Key() {
	case tcell.KeyUp:
		return key.NewEvent(key.KeyUp, mods), true
	case tcell.KeyDown:
		return key.NewEvent(key.KeyDown, mods), true
	case tcell.KeyLeft:
		return key.NewEvent(key.KeyLeft, mods), true
	case tcell.KeyRight:
		return key.NewEvent(key.KeyRight, mods), true
	case tcell.KeyEnter:
		return key.NewEvent(key.KeyEnter, mods), true
	case tcell.KeyEscape:
		return key.NewEvent(key.KeyEscape, mods), true
	case tcell.KeyTab:
		return key.NewEvent(key.KeyTab, mods), true
	case tcell.KeyHome:
		return key.NewEvent(key.KeyHome, mods), true
	case tcell.KeyEnd:
		return key.NewEvent(key.KeyEnd, mods), true
	case tcell.KeyPgUp:
		return key.NewEvent(key.KeyPageUp, mods), true
	case tcell.KeyPgDn:
		return key.NewEvent(key.KeyPageDown, mods), true
	case tcell.KeyDelete:
		return key.NewEvent(key.KeyDelete, mods), true
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return key.NewEvent(key.KeyBackspace, mods), true
	case tcell.KeyF1:
		return key.NewEvent(key.KeyF1, mods), true
	case tcell.KeyF5:
		return key.NewEvent(key.KeyF5, mods), true
	case tcell.KeyCtrlA:
		return key.NewRuneEvent('A', mods.With(key.ModCtrl)), true
	case tcell.KeyCtrlF:
		return key.NewRuneEvent('F', mods.With(key.ModCtrl)), true
	case tcell.KeyCtrlE:
		return key.NewRuneEvent('E', mods.With(key.ModCtrl)), true
	case tcell.KeyRune:
		if ev.Rune() == ' ' {
			return key.NewEvent(key.KeySpace, mods), true
		}
		return key.NewRuneEvent(ev.Rune(), mods), true
	}
	return key.Event{}, false
}
