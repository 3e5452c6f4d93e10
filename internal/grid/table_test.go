package grid

import (
	"fmt"
	"testing"
)

func makeRows(n int) []Row {
	rows := make([]Row, n)
	for i := 0; i < n; i++ {
		data := []byte(fmt.Sprintf(`{"id":"r%d","name":"row %d","value":%d}`, i, i, i*10))
		rows[i] = Row{ID: RowID(fmt.Sprintf("r%d", i)), Data: data}
	}
	return rows
}

func TestExtractRowID(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		alias string
		want  RowID
	}{
		{"plain id", `{"id":"abc"}`, "", "abc"},
		{"numeric id", `{"id":42}`, "", "42"},
		{"underscore id", `{"_id":"m1"}`, "", "m1"},
		{"id wins over _id", `{"id":"a","_id":"b"}`, "", "a"},
		{"alias fallback", `{"sku":"X9"}`, "sku", "X9"},
		{"missing", `{"name":"n"}`, "", ""},
		{"empty id skipped", `{"id":"","sku":"X9"}`, "sku", "X9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractRowID([]byte(tt.data), tt.alias); got != tt.want {
				t.Errorf("ExtractRowID = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRowField(t *testing.T) {
	r := Row{Data: []byte(`{"user":{"name":"ann"},"n":3}`)}
	if got := r.Field("user.name"); got != "ann" {
		t.Errorf("Field(user.name) = %q, want ann", got)
	}
	if got := r.Field("missing.path"); got != "" {
		t.Errorf("Field(missing) = %q, want empty", got)
	}
}

func TestTablePagination(t *testing.T) {
	tbl := NewTable("t", makeRows(25), WithPageSize(10))
	tbl.Ready()

	if page, count := tbl.Page(); page != 0 || count != 3 {
		t.Fatalf("Page() = (%d, %d), want (0, 3)", page, count)
	}
	if got := len(tbl.PageRows()); got != 10 {
		t.Errorf("page 0 has %d rows, want 10", got)
	}

	if !tbl.SetPage(2) {
		t.Fatal("SetPage(2) returned false")
	}
	if got := len(tbl.PageRows()); got != 5 {
		t.Errorf("page 2 has %d rows, want 5", got)
	}

	if tbl.SetPage(3) {
		t.Error("SetPage(3) should be rejected")
	}
	if tbl.SetPage(-1) {
		t.Error("SetPage(-1) should be rejected")
	}
}

func TestTableFilterClampsPage(t *testing.T) {
	tbl := NewTable("t", makeRows(25), WithPageSize(10))
	tbl.Ready()
	tbl.SetPage(2)

	tbl.SetFilter(func(r Row) bool { return r.Field("value") == "0" })

	page, count := tbl.Page()
	if count != 1 || page != 0 {
		t.Errorf("after filter Page() = (%d, %d), want (0, 1)", page, count)
	}
	if got := len(tbl.VisibleRows()); got != 1 {
		t.Errorf("VisibleRows = %d, want 1", got)
	}

	tbl.SetFilter(nil)
	if got := len(tbl.VisibleRows()); got != 25 {
		t.Errorf("after clearing filter VisibleRows = %d, want 25", got)
	}
}

func TestTableSortBy(t *testing.T) {
	rows := []Row{
		{ID: "a", Data: []byte(`{"id":"a","value":30}`)},
		{ID: "b", Data: []byte(`{"id":"b","value":10}`)},
		{ID: "c", Data: []byte(`{"id":"c","value":20}`)},
	}
	tbl := NewTable("t", rows)
	tbl.Ready()

	var sortedField string
	tbl.OnSort(func(field string, desc bool) { sortedField = field })

	tbl.SortBy("value", false)
	got := tbl.Rows()
	if got[0].ID != "b" || got[1].ID != "c" || got[2].ID != "a" {
		t.Errorf("ascending sort order wrong: %v %v %v", got[0].ID, got[1].ID, got[2].ID)
	}
	if sortedField != "value" {
		t.Errorf("sort callback field = %q, want value", sortedField)
	}

	tbl.SortBy("value", true)
	got = tbl.Rows()
	if got[0].ID != "a" {
		t.Errorf("descending sort should put a first, got %v", got[0].ID)
	}
}

func TestTableRemoveRows(t *testing.T) {
	tbl := NewTable("t", makeRows(5))
	tbl.Ready()

	redraws := 0
	tbl.OnRedraw(func() { redraws++ })

	if got := tbl.RemoveRows([]RowID{"r1", "r3", "zzz"}); got != 2 {
		t.Errorf("RemoveRows = %d, want 2", got)
	}
	if got := len(tbl.Rows()); got != 3 {
		t.Errorf("rows remaining = %d, want 3", got)
	}
	if redraws != 1 {
		t.Errorf("redraws = %d, want 1", redraws)
	}
}

func TestTableReadyFiresOnce(t *testing.T) {
	tbl := NewTable("t", makeRows(2))
	count := 0
	tbl.OnReady(func() { count++ })

	tbl.Ready()
	tbl.Ready()
	if count != 1 {
		t.Errorf("ready callback ran %d times, want 1", count)
	}

	// Late registration fires immediately.
	tbl.OnReady(func() { count++ })
	if count != 2 {
		t.Errorf("late OnReady did not fire immediately")
	}
}

func TestTableUpdateRow(t *testing.T) {
	tbl := NewTable("t", makeRows(2))
	tbl.Ready()

	if !tbl.UpdateRow("r0", []byte(`{"id":"r0","name":"patched"}`)) {
		t.Fatal("UpdateRow returned false")
	}
	if got := tbl.Rows()[0].Field("name"); got != "patched" {
		t.Errorf("name after update = %q, want patched", got)
	}
	if tbl.UpdateRow("nope", nil) {
		t.Error("UpdateRow on unknown id should return false")
	}
}
