package term

import (
	"fmt"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/gridkit/internal/config"
	"github.com/dshills/gridkit/internal/engine"
	"github.com/dshills/gridkit/internal/grid"
	"github.com/dshills/gridkit/internal/keynav/key"
	"github.com/dshills/gridkit/internal/search"
)

func termColumns() []config.Column {
	return []config.Column{
		{Data: "id", Title: "ID", Width: 6},
		{Data: "name", Title: "Name", Width: 16},
		{Data: "price", Title: "Price", Width: 12, Render: "currency"},
	}
}

func termRows() []grid.Row {
	rows := make([]grid.Row, 3)
	for i := range rows {
		id := fmt.Sprintf("r%d", i)
		rows[i] = grid.Row{
			ID:   grid.RowID(id),
			Data: []byte(fmt.Sprintf(`{"id":%q,"name":"widget %d","price":%d}`, id, i, (i+1)*10)),
		}
	}
	return rows
}

func termFixture(t *testing.T) (*Renderer, *engine.Engine, *grid.Table, tcell.SimulationScreen) {
	t.Helper()
	tbl := grid.NewTable("t1", termRows())

	cfg := config.Default(termColumns())
	cfg.Selection = config.Selection{Enabled: true, SelectAll: true}
	eng, err := engine.New(tbl, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Attach(); err != nil {
		t.Fatal(err)
	}
	tbl.Ready()

	sim := tcell.NewSimulationScreen("UTF-8")
	r, err := New(eng, tbl, termColumns(), WithScreen(sim))
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Init(); err != nil {
		t.Fatal(err)
	}
	sim.SetSize(80, 24)
	t.Cleanup(r.Fini)
	return r, eng, tbl, sim
}

// screenLine reads one row of the simulation screen as a string.
func screenLine(sim tcell.SimulationScreen, y int) string {
	w, _ := sim.Size()
	var b strings.Builder
	for x := 0; x < w; x++ {
		mainc, _, _, _ := sim.GetContent(x, y)
		if mainc == 0 {
			mainc = ' '
		}
		b.WriteRune(mainc)
	}
	return b.String()
}

func TestDrawHeaderAndRows(t *testing.T) {
	r, _, _, sim := termFixture(t)
	r.Draw()

	header := screenLine(sim, 0)
	for _, want := range []string{"ID", "Name", "Price"} {
		if !strings.Contains(header, want) {
			t.Errorf("header %q missing %q", header, want)
		}
	}

	row0 := screenLine(sim, 1)
	if !strings.Contains(row0, "widget 0") {
		t.Errorf("row 0 = %q, missing cell text", row0)
	}
	if !strings.Contains(row0, "$10.00") {
		t.Errorf("row 0 = %q, renderer not applied", row0)
	}
}

func TestDrawSelectionGlyphs(t *testing.T) {
	r, eng, _, sim := termFixture(t)

	eng.Selection().ToggleRow("r1", true)
	r.Draw()

	if line := screenLine(sim, 2); !strings.Contains(line, "[x]") {
		t.Errorf("selected row = %q, missing [x]", line)
	}
	if line := screenLine(sim, 1); !strings.Contains(line, "[ ]") {
		t.Errorf("unselected row = %q, missing [ ]", line)
	}
	// One of three selected: header checkbox shows indeterminate.
	if line := screenLine(sim, 0); !strings.Contains(line, "[-]") {
		t.Errorf("header = %q, missing indeterminate glyph", line)
	}
}

func TestDrawSortIndicator(t *testing.T) {
	r, _, tbl, sim := termFixture(t)

	tbl.SortBy("price", true)
	r.Draw()

	if line := screenLine(sim, 0); !strings.Contains(line, "Price v") {
		t.Errorf("header = %q, missing descending indicator", line)
	}
}

func TestDrawStatusLine(t *testing.T) {
	r, _, _, sim := termFixture(t)

	r.SetStatus("3 rows")
	r.Draw()

	_, h := sim.Size()
	line := screenLine(sim, h-1)
	if !strings.Contains(line, "page 1/1") || !strings.Contains(line, "3 rows") {
		t.Errorf("status line = %q", line)
	}
}

func TestSplitMarks(t *testing.T) {
	text := "an " + search.MarkStart + "error" + search.MarkEnd + " here"
	spans := splitMarks(text)
	want := []span{
		{text: "an "},
		{text: "error", marked: true},
		{text: " here"},
	}
	if len(spans) != len(want) {
		t.Fatalf("got %d spans, want %d", len(spans), len(want))
	}
	for i := range want {
		if spans[i] != want[i] {
			t.Errorf("span %d = %+v, want %+v", i, spans[i], want[i])
		}
	}
}

func TestSplitMarksPlainText(t *testing.T) {
	spans := splitMarks("plain")
	if len(spans) != 1 || spans[0].marked || spans[0].text != "plain" {
		t.Errorf("spans = %+v", spans)
	}
}

func TestTranslateKey(t *testing.T) {
	tests := []struct {
		ev   *tcell.EventKey
		want key.Event
	}{
		{tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone), key.NewEvent(key.KeyDown, key.ModNone)},
		{tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), key.NewEvent(key.KeyEnter, key.ModNone)},
		{tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModShift), key.NewEvent(key.KeyUp, key.ModShift)},
		{tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone), key.NewEvent(key.KeySpace, key.ModNone)},
		{tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone), key.NewRuneEvent('x', key.ModNone)},
		{tcell.NewEventKey(tcell.KeyCtrlA, 0, tcell.ModCtrl), key.NewRuneEvent('A', key.ModCtrl)},
	}
	for _, tt := range tests {
		got, ok := TranslateKey(tt.ev)
		if !ok {
			t.Errorf("TranslateKey(%v) not handled", tt.ev.Key())
			continue
		}
		if got != tt.want {
			t.Errorf("TranslateKey = %+v, want %+v", got, tt.want)
		}
	}
}

func TestDrawWideGraphemes(t *testing.T) {
	tbl := grid.NewTable("t1", []grid.Row{
		{ID: "a", Data: []byte(`{"id":"a","name":"日本語テスト","price":1}`)},
	})
	cfg := config.Default(termColumns())
	eng, err := engine.New(tbl, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Attach(); err != nil {
		t.Fatal(err)
	}
	tbl.Ready()

	sim := tcell.NewSimulationScreen("UTF-8")
	r, err := New(eng, tbl, termColumns(), WithScreen(sim))
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Init(); err != nil {
		t.Fatal(err)
	}
	defer r.Fini()
	sim.SetSize(80, 24)

	r.Draw()
	// Wide cells occupy two columns; checking the first cluster is enough.
	if line := screenLine(sim, 1); !strings.Contains(line, "日") {
		t.Errorf("row = %q, wide text not drawn", line)
	}
}
