package search

import (
	"errors"
	"testing"

	"github.com/dshills/gridkit/internal/config"
	"github.com/dshills/gridkit/internal/event"
	"github.com/dshills/gridkit/internal/grid"
	"github.com/dshills/gridkit/internal/session"
)

func searchColumns() []config.Column {
	f := false
	return []config.Column{
		{Data: "id", Title: "ID"},
		{Data: "message", Title: "Message"},
		{Data: "level", Title: "Level"},
		{Data: "secret", Title: "Secret", Searchable: &f},
	}
}

func logRows() []grid.Row {
	docs := []string{
		`{"id":"1","message":"error connecting to db","level":"critical","secret":"hidden"}`,
		`{"id":"2","message":"error resolved after retry","level":"info","secret":"hidden"}`,
		`{"id":"3","message":"warning: disk nearly full","level":"warning","secret":"hidden"}`,
		`{"id":"4","message":"all systems nominal","level":"info","secret":"error"}`,
	}
	rows := make([]grid.Row, len(docs))
	for i, d := range docs {
		rows[i] = grid.Row{ID: grid.ExtractRowID([]byte(d), ""), Data: []byte(d)}
	}
	return rows
}

func searchFixture(t *testing.T, opts ...Option) (*Engine, *session.Session, *grid.Table, *event.Bus) {
	t.Helper()
	tbl := grid.NewTable("logs", logRows())
	tbl.Ready()
	store := session.NewStore()
	sess, err := store.Create("logs")
	if err != nil {
		t.Fatal(err)
	}
	bus := event.NewBus()
	cfg := config.Search{Enabled: true, HighlightResults: true}
	return New(sess, tbl, bus, searchColumns(), cfg, opts...), sess, tbl, bus
}

func visibleIDs(tbl *grid.Table) []grid.RowID {
	rows := tbl.VisibleRows()
	ids := make([]grid.RowID, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}

func TestSimpleSearch(t *testing.T) {
	e, sess, tbl, _ := searchFixture(t)

	if err := e.ApplySimple("ERROR"); err != nil {
		t.Fatal(err)
	}
	got := visibleIDs(tbl)
	if len(got) != 2 || got[0] != "1" || got[1] != "2" {
		t.Errorf("visible = %v, want [1 2]", got)
	}
	if sess.Search.Mode != session.ModeSimple || !sess.Search.Active() {
		t.Errorf("search state = %+v", sess.Search)
	}
}

func TestSimpleSearchSkipsUnsearchableColumns(t *testing.T) {
	e, _, tbl, _ := searchFixture(t)

	// Row 4's only "error" lives in the unsearchable column.
	e.ApplySimple("error")
	for _, id := range visibleIDs(tbl) {
		if id == "4" {
			t.Error("unsearchable column matched")
		}
	}
}

func TestRegexSearch(t *testing.T) {
	e, _, tbl, _ := searchFixture(t)

	if err := e.ApplyRegex(`error (connecting|resolved)`, false); err != nil {
		t.Fatal(err)
	}
	got := visibleIDs(tbl)
	if len(got) != 2 {
		t.Errorf("visible = %v, want rows 1 and 2", got)
	}
}

func TestRegexCaseSensitivity(t *testing.T) {
	e, _, tbl, _ := searchFixture(t)

	if err := e.ApplyRegex("ERROR", true); err != nil {
		t.Fatal(err)
	}
	if got := len(visibleIDs(tbl)); got != 0 {
		t.Errorf("case-sensitive ERROR matched %d rows, want 0", got)
	}

	if err := e.ApplyRegex("ERROR", false); err != nil {
		t.Fatal(err)
	}
	if got := len(visibleIDs(tbl)); got != 2 {
		t.Errorf("case-insensitive ERROR matched %d rows, want 2", got)
	}
}

func TestInvalidRegexLeavesPriorStateUnchanged(t *testing.T) {
	e, sess, tbl, _ := searchFixture(t)

	e.ApplySimple("error")
	before := visibleIDs(tbl)

	err := e.ApplyRegex("[unclosed", false)
	var qerr *QueryError
	if !errors.As(err, &qerr) {
		t.Fatalf("ApplyRegex = %v, want QueryError", err)
	}
	if qerr.Mode != session.ModeRegex {
		t.Errorf("QueryError.Mode = %v", qerr.Mode)
	}

	after := visibleIDs(tbl)
	if len(after) != len(before) {
		t.Errorf("row set changed after rejected query: %v -> %v", before, after)
	}
	if sess.Search.Mode != session.ModeSimple || sess.Search.Query != "error" {
		t.Errorf("prior search state replaced: %+v", sess.Search)
	}
}

func TestOperatorSearch(t *testing.T) {
	e, _, tbl, _ := searchFixture(t)

	tests := []struct {
		query string
		want  []grid.RowID
	}{
		{"error AND critical", []grid.RowID{"1"}},
		{"error OR warning", []grid.RowID{"1", "2", "3"}},
		{"error NOT resolved", []grid.RowID{"1"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if err := e.ApplyOperator(tt.query); err != nil {
				t.Fatal(err)
			}
			got := visibleIDs(tbl)
			if len(got) != len(tt.want) {
				t.Fatalf("visible = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("visible = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestOperatorUnbalancedParensShowsAllRows(t *testing.T) {
	e, _, tbl, _ := searchFixture(t)

	if err := e.ApplyOperator("(error AND critical"); err != nil {
		t.Fatalf("unbalanced parens returned error: %v", err)
	}
	if got := len(visibleIDs(tbl)); got != 4 {
		t.Errorf("permissive fallback shows %d rows, want all 4", got)
	}
}

func TestModeSwitchClearsPriorFilter(t *testing.T) {
	e, _, tbl, _ := searchFixture(t)

	e.ApplyOperator("error AND critical")
	if got := len(visibleIDs(tbl)); got != 1 {
		t.Fatalf("operator filter shows %d rows", got)
	}

	// Switching to simple mode must not leave operator-hidden rows behind.
	e.ApplySimple("warning")
	got := visibleIDs(tbl)
	if len(got) != 1 || got[0] != "3" {
		t.Errorf("after mode switch visible = %v, want [3]", got)
	}

	e.ApplySimple("")
	if got := len(visibleIDs(tbl)); got != 4 {
		t.Errorf("empty query shows %d rows, want all 4", got)
	}
}

func TestColumnFilters(t *testing.T) {
	e, _, tbl, _ := searchFixture(t)

	err := e.ApplyColumn([]session.ColumnFilter{
		{Col: 1, Term: "error"},
		{Col: 2, Term: "info"},
	})
	if err != nil {
		t.Fatal(err)
	}
	got := visibleIDs(tbl)
	if len(got) != 1 || got[0] != "2" {
		t.Errorf("conjunctive column filters gave %v, want [2]", got)
	}
}

func TestColumnFilterSkipsMissingColumn(t *testing.T) {
	e, _, tbl, _ := searchFixture(t)

	err := e.ApplyColumn([]session.ColumnFilter{
		{Col: 99, Term: "x"},
		{Col: 2, Term: "warning"},
	})
	if err != nil {
		t.Fatal(err)
	}
	got := visibleIDs(tbl)
	if len(got) != 1 || got[0] != "3" {
		t.Errorf("visible = %v, want [3]", got)
	}
}

func TestSearchEvents(t *testing.T) {
	e, _, _, bus := searchFixture(t)

	var applied []event.SearchPayload
	cleared := 0
	bus.Subscribe(event.TopicSearchApplied, func(ev event.Event) {
		applied = append(applied, ev.Payload.(event.SearchPayload))
	})
	bus.Subscribe(event.TopicSearchCleared, func(event.Event) { cleared++ })

	e.ApplySimple("error")
	e.Clear()
	e.Clear() // second clear on inactive state stays silent

	if len(applied) != 1 {
		t.Fatalf("applied events = %d, want 1", len(applied))
	}
	if applied[0].Matched != 2 || applied[0].Mode != "simple" {
		t.Errorf("payload = %+v", applied[0])
	}
	if cleared != 1 {
		t.Errorf("cleared events = %d, want 1", cleared)
	}
}

func TestSearchRecordsHistory(t *testing.T) {
	h := NewHistory(nil, "logs", 20, nil)
	e, _, _, _ := searchFixture(t, WithHistory(h))

	e.ApplySimple("error")
	e.ApplyOperator("error OR warning")

	entries := h.Entries()
	if len(entries) != 2 {
		t.Fatalf("history entries = %d, want 2", len(entries))
	}
	if entries[0].Query != "error OR warning" || entries[0].Mode != session.ModeOperator {
		t.Errorf("newest entry = %+v", entries[0])
	}
}
