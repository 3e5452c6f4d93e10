package footer

import (
	"strconv"
	"strings"
	"testing"

	"github.com/dshills/gridkit/internal/config"
	"github.com/dshills/gridkit/internal/grid"
	"github.com/dshills/gridkit/internal/logging"
)

func TestSumExcludesNonNumeric(t *testing.T) {
	// Pinned behavior: non-numeric entries contribute zero to the sum.
	if got := Sum([]string{"10", "bad", "5"}); got != 15 {
		t.Errorf("Sum = %v, want 15", got)
	}
}

func TestAverageDenominatorCountsAllEntries(t *testing.T) {
	// Pinned behavior: the denominator is the number of present entries,
	// not the number of numeric ones. [10, "bad", 5] averages to 5.
	if got := Average([]string{"10", "bad", "5"}); got != 5 {
		t.Errorf("Average = %v, want 5", got)
	}
	if got := Average(nil); got != 0 {
		t.Errorf("Average(nil) = %v, want 0", got)
	}
}

func TestMinMaxIgnoreNonNumeric(t *testing.T) {
	values := []string{"7", "zebra", "3", "", "12"}
	if v, ok := Min(values); !ok || v != 3 {
		t.Errorf("Min = (%v, %v), want (3, true)", v, ok)
	}
	if v, ok := Max(values); !ok || v != 12 {
		t.Errorf("Max = (%v, %v), want (12, true)", v, ok)
	}
	if _, ok := Min([]string{"a", "b"}); ok {
		t.Error("Min over non-numeric values reported ok")
	}
}

func TestCountAndCountUnique(t *testing.T) {
	values := []string{"a", "b", "a", "", "  ", "c"}
	if got := Count(values); got != 4 {
		t.Errorf("Count = %d, want 4", got)
	}
	if got := CountUnique(values); got != 3 {
		t.Errorf("CountUnique = %d, want 3", got)
	}
}

func footerFixture(t *testing.T, cfg config.Footer, opts ...Option) (*Engine, *grid.Table) {
	t.Helper()
	rows := []grid.Row{
		{ID: "1", Data: []byte(`{"id":"1","dept":"eng","amount":10}`)},
		{ID: "2", Data: []byte(`{"id":"2","dept":"eng","amount":"bad"}`)},
		{ID: "3", Data: []byte(`{"id":"3","dept":"ops","amount":5}`)},
	}
	tbl := grid.NewTable("t1", rows)
	tbl.Ready()
	columns := []config.Column{
		{Data: "id", Title: "ID"},
		{Data: "dept", Title: "Dept"},
		{Data: "amount", Title: "Amount"},
	}
	return New(tbl, columns, cfg, opts...), tbl
}

func TestRecomputeSum(t *testing.T) {
	dec := 2
	e, _ := footerFixture(t, config.Footer{
		Enabled: true,
		Columns: []config.FooterColumn{
			{Col: 2, Agg: config.AggSum, Decimals: &dec, Prefix: "$", Label: "Total"},
		},
	})

	e.Recompute()
	if got := e.Cells()[2]; got != "Total: $15.00" {
		t.Errorf("sum cell = %q, want Total: $15.00", got)
	}
	if e.Cells()[0] != "" || e.Cells()[1] != "" {
		t.Error("unspecified columns not empty")
	}
}

func TestRecomputeUsesFilteredRows(t *testing.T) {
	e, tbl := footerFixture(t, config.Footer{
		Enabled: true,
		Columns: []config.FooterColumn{{Col: 2, Agg: config.AggSum}},
	})

	tbl.SetFilter(func(r grid.Row) bool { return r.Field("dept") == "eng" })
	e.Recompute()
	if got := e.Cells()[2]; got != "10" {
		t.Errorf("filtered sum = %q, want 10", got)
	}
}

func TestRecomputeSkipsMissingColumn(t *testing.T) {
	var buf strings.Builder
	log := logging.New(logging.Config{Level: logging.LevelWarn, Output: &buf})

	e, _ := footerFixture(t, config.Footer{
		Enabled: true,
		Columns: []config.FooterColumn{
			{Col: 9, Agg: config.AggSum},
			{Col: 2, Agg: config.AggCount},
		},
	}, WithLogger(log))

	e.Recompute()

	if got := e.Cells()[2]; got != "3" {
		t.Errorf("count cell = %q, want 3", got)
	}
	if !strings.Contains(buf.String(), "missing column 9") {
		t.Error("missing column not warned about")
	}
}

func TestStaticAndCustom(t *testing.T) {
	reg := NewRegistry()
	reg.Register("spread", func(values []string) string {
		lo, okLo := Min(values)
		hi, okHi := Max(values)
		if !okLo || !okHi {
			return ""
		}
		return strconv.FormatFloat(hi-lo, 'f', -1, 64)
	})

	e, _ := footerFixture(t, config.Footer{
		Enabled: true,
		Columns: []config.FooterColumn{
			{Col: 0, Agg: config.AggStatic, Static: "All rows"},
			{Col: 2, Agg: config.AggCustom, Custom: "spread"},
		},
	}, WithRegistry(reg))

	e.Recompute()
	if got := e.Cells()[0]; got != "All rows" {
		t.Errorf("static cell = %q", got)
	}
	if got := e.Cells()[2]; got != "5" {
		t.Errorf("custom cell = %q, want 5", got)
	}
}

func TestUnregisteredCustomIsEmpty(t *testing.T) {
	e, _ := footerFixture(t, config.Footer{
		Enabled: true,
		Columns: []config.FooterColumn{{Col: 2, Agg: config.AggCustom, Custom: "ghost"}},
	})

	e.Recompute()
	if got := e.Cells()[2]; got != "" {
		t.Errorf("unregistered custom cell = %q, want empty", got)
	}
}

func TestDisabledFooterStaysEmpty(t *testing.T) {
	e, _ := footerFixture(t, config.Footer{
		Enabled: false,
		Columns: []config.FooterColumn{{Col: 2, Agg: config.AggSum}},
	})
	e.Recompute()
	for i, c := range e.Cells() {
		if c != "" {
			t.Errorf("cell %d = %q with footer disabled", i, c)
		}
	}
}

func TestThousandsGrouping(t *testing.T) {
	rows := []grid.Row{
		{ID: "1", Data: []byte(`{"id":"1","amount":1200000}`)},
		{ID: "2", Data: []byte(`{"id":"2","amount":34567}`)},
	}
	tbl := grid.NewTable("t1", rows)
	tbl.Ready()
	columns := []config.Column{{Data: "id"}, {Data: "amount"}}
	dec := 0
	e := New(tbl, columns, config.Footer{
		Enabled: true,
		Columns: []config.FooterColumn{{Col: 1, Agg: config.AggSum, Decimals: &dec, ThousandsSep: true}},
	})

	e.Recompute()
	if got := e.Cells()[1]; got != "1,234,567" {
		t.Errorf("grouped sum = %q, want 1,234,567", got)
	}
}
