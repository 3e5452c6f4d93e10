package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validColumns() []Column {
	return []Column{
		{Data: "id", Title: "ID"},
		{Data: "name", Title: "Name", Editable: true, EditType: EditText},
	}
}

func TestValidateOK(t *testing.T) {
	cfg := Default(validColumns())
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	minv := 10.0
	maxv := 5.0
	cfg := Config{
		Columns: []Column{
			{Title: "no data path"},
			{Data: "x", Editable: true, EditType: "slider"},
			{Data: "y", Editable: true, EditType: EditSelect},
			{Data: "z", Editable: true, EditType: EditNumber, EditMin: &minv, EditMax: &maxv},
		},
		Footer: Footer{Columns: []FooterColumn{
			{Col: 0, Agg: "median"},
			{Col: 1, Agg: AggCustom},
		}},
		Keyboard: Keyboard{CustomShortcuts: []Shortcut{{Key: "", Action: ""}}},
	}

	err := cfg.Validate()
	var verrs *ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Validate error = %T, want *ValidationErrors", err)
	}

	wantPaths := []string{
		"columns[0].data",
		"columns[1].edit_type",
		"columns[2].edit_options",
		"columns[3].edit_min",
		"footer.columns[0].agg",
		"footer.columns[1].custom",
		"keyboard.custom_shortcuts[0].key",
		"keyboard.custom_shortcuts[0].action",
	}
	if len(verrs.Errors) != len(wantPaths) {
		t.Fatalf("got %d errors, want %d: %v", len(verrs.Errors), len(wantPaths), verrs)
	}
	for i, want := range wantPaths {
		if verrs.Errors[i].Path != want {
			t.Errorf("error[%d].Path = %q, want %q", i, verrs.Errors[i].Path, want)
		}
	}
}

func TestColumnDefaults(t *testing.T) {
	c := Column{Data: "x"}
	if !c.IsOrderable() {
		t.Error("column should default to orderable")
	}
	if !c.IsSearchable() {
		t.Error("column should default to searchable")
	}
	f := false
	c.Searchable = &f
	if c.IsSearchable() {
		t.Error("explicit searchable=false ignored")
	}
}

func TestMaxHistory(t *testing.T) {
	cfg := Config{}
	if got := cfg.MaxHistory(); got != DefaultMaxHistoryItems {
		t.Errorf("MaxHistory = %d, want %d", got, DefaultMaxHistoryItems)
	}
	cfg.Search.MaxHistoryItems = 5
	if got := cfg.MaxHistory(); got != 5 {
		t.Errorf("MaxHistory = %d, want 5", got)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grid.yaml")
	content := `
columns:
  - data: id
    title: ID
  - data: amount
    title: Amount
    editable: true
    edit_type: number
selection:
  enabled: true
  bulk_actions: [delete, export]
footer:
  enabled: true
  columns:
    - col: 1
      agg: sum
      prefix: "$"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Columns) != 2 {
		t.Fatalf("columns = %d, want 2", len(cfg.Columns))
	}
	if cfg.Columns[1].EditType != EditNumber {
		t.Errorf("edit_type = %q, want number", cfg.Columns[1].EditType)
	}
	if !cfg.Selection.Enabled || len(cfg.Selection.BulkActions) != 2 {
		t.Error("selection block not decoded")
	}
	if cfg.Footer.Columns[0].Agg != AggSum || cfg.Footer.Columns[0].Prefix != "$" {
		t.Error("footer block not decoded")
	}
	if cfg.Search.MaxHistoryItems != DefaultMaxHistoryItems {
		t.Errorf("history default not applied, got %d", cfg.Search.MaxHistoryItems)
	}
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grid.toml")
	content := `
[[columns]]
data = "id"
title = "ID"

[[columns]]
data = "status"
title = "Status"
editable = true
edit_type = "select"
edit_options = ["", "open", "closed"]

[keyboard]
enabled = true
arrow_key_navigation = true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Columns) != 2 {
		t.Fatalf("columns = %d, want 2", len(cfg.Columns))
	}
	if got := cfg.Columns[1].EditOptions; len(got) != 3 || got[0] != "" {
		t.Errorf("edit_options = %v", got)
	}
	if !cfg.Keyboard.Enabled {
		t.Error("keyboard block not decoded")
	}
}

func TestLoadRejectsBadExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grid.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Load error = %T, want *ParseError", err)
	}
	if !strings.Contains(perr.Error(), "unsupported extension") {
		t.Errorf("unexpected message: %v", perr)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("columns: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var perr *ParseError
	if _, err := Load(path); !errors.As(err, &perr) {
		t.Fatalf("Load error = %T, want *ParseError", err)
	}
}
