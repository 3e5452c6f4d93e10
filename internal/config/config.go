// Package config defines the typed configuration the engine consumes at
// attach time: column specs plus one optional config block per feature.
// Configuration is read once; nothing here changes for a table's lifetime.
package config

import (
	"fmt"
	"strings"
)

// EditType selects the edit surface for an editable column.
type EditType string

const (
	// EditText is a single-line text input.
	EditText EditType = "text"
	// EditNumber is a numeric input with optional bounds and step.
	EditNumber EditType = "number"
	// EditSelect is a single-choice list.
	EditSelect EditType = "select"
	// EditDate is a date input (ISO 8601 values).
	EditDate EditType = "date"
	// EditTextarea is a multi-line text input.
	EditTextarea EditType = "textarea"
)

// Column describes one grid column.
type Column struct {
	// Data is the dot path into the row document.
	Data string `yaml:"data" toml:"data"`

	// Title is the header label.
	Title string `yaml:"title" toml:"title"`

	// Render names a registered render function; empty means raw value.
	Render string `yaml:"render,omitempty" toml:"render,omitempty"`

	// Editable marks the column's cells as editable.
	Editable bool `yaml:"editable,omitempty" toml:"editable,omitempty"`

	// EditType selects the edit surface. Defaults to text when Editable.
	EditType EditType `yaml:"edit_type,omitempty" toml:"edit_type,omitempty"`

	// EditOptions are the choices for select columns. An empty string
	// entry renders as the empty option.
	EditOptions []string `yaml:"edit_options,omitempty" toml:"edit_options,omitempty"`

	// EditRequired rejects empty values on save.
	EditRequired bool `yaml:"edit_required,omitempty" toml:"edit_required,omitempty"`

	// EditMin and EditMax bound numeric values. Nil means unbounded.
	EditMin *float64 `yaml:"edit_min,omitempty" toml:"edit_min,omitempty"`
	EditMax *float64 `yaml:"edit_max,omitempty" toml:"edit_max,omitempty"`

	// EditStep is the numeric input step hint.
	EditStep float64 `yaml:"edit_step,omitempty" toml:"edit_step,omitempty"`

	// EditPattern is a regular expression a saved value must match.
	EditPattern string `yaml:"edit_pattern,omitempty" toml:"edit_pattern,omitempty"`

	// EditPatternMessage overrides the generic pattern-failure message.
	EditPatternMessage string `yaml:"edit_pattern_message,omitempty" toml:"edit_pattern_message,omitempty"`

	// Orderable allows sorting on this column. Defaults true in New.
	Orderable *bool `yaml:"orderable,omitempty" toml:"orderable,omitempty"`

	// Searchable includes this column in simple/regex/operator search.
	// Defaults true in New.
	Searchable *bool `yaml:"searchable,omitempty" toml:"searchable,omitempty"`

	// Width is a rendering hint in cells/pixels, host-interpreted.
	Width int `yaml:"width,omitempty" toml:"width,omitempty"`

	// ResponsivePriority orders column collapse on narrow hosts.
	ResponsivePriority int `yaml:"responsive_priority,omitempty" toml:"responsive_priority,omitempty"`
}

// IsOrderable applies the default.
func (c Column) IsOrderable() bool {
	return c.Orderable == nil || *c.Orderable
}

// IsSearchable applies the default.
func (c Column) IsSearchable() bool {
	return c.Searchable == nil || *c.Searchable
}

// Selection configures the selection manager.
type Selection struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`

	// SelectAll enables the header toggle.
	SelectAll bool `yaml:"select_all,omitempty" toml:"select_all,omitempty"`

	// BulkActions lists enabled bulk operations: "delete", "export",
	// "update".
	BulkActions []string `yaml:"bulk_actions,omitempty" toml:"bulk_actions,omitempty"`

	// PersistSelection saves the selected row ids to durable storage.
	PersistSelection bool `yaml:"persist_selection,omitempty" toml:"persist_selection,omitempty"`

	// RowIDAlias names a domain field consulted after "id" and "_id".
	RowIDAlias string `yaml:"row_id_alias,omitempty" toml:"row_id_alias,omitempty"`
}

// Aggregation names a footer aggregate.
type Aggregation string

const (
	AggSum         Aggregation = "sum"
	AggAverage     Aggregation = "average"
	AggMin         Aggregation = "min"
	AggMax         Aggregation = "max"
	AggCount       Aggregation = "count"
	AggCountUnique Aggregation = "countUnique"
	AggStatic      Aggregation = "static"
	AggCustom      Aggregation = "custom"
)

// FooterColumn declares one footer aggregate cell. Immutable for the
// table's lifetime.
type FooterColumn struct {
	// Col is the column index the aggregate reads.
	Col int `yaml:"col" toml:"col"`

	// Agg selects the aggregation.
	Agg Aggregation `yaml:"agg" toml:"agg"`

	// Decimals fixes the formatted precision. Nil leaves the value as-is.
	Decimals *int `yaml:"decimals,omitempty" toml:"decimals,omitempty"`

	// ThousandsSep groups the integer part with commas.
	ThousandsSep bool `yaml:"thousands_sep,omitempty" toml:"thousands_sep,omitempty"`

	Prefix string `yaml:"prefix,omitempty" toml:"prefix,omitempty"`
	Suffix string `yaml:"suffix,omitempty" toml:"suffix,omitempty"`

	// Label wraps the value as "Label: value".
	Label string `yaml:"label,omitempty" toml:"label,omitempty"`

	// Static is the fixed text for AggStatic.
	Static string `yaml:"static,omitempty" toml:"static,omitempty"`

	// Custom names the registered function for AggCustom.
	Custom string `yaml:"custom,omitempty" toml:"custom,omitempty"`
}

// Footer configures the aggregation engine.
type Footer struct {
	Enabled bool           `yaml:"enabled" toml:"enabled"`
	Columns []FooterColumn `yaml:"columns,omitempty" toml:"columns,omitempty"`
}

// Search configures the search engine.
type Search struct {
	Enabled           bool `yaml:"enabled" toml:"enabled"`
	HighlightResults  bool `yaml:"highlight_results,omitempty" toml:"highlight_results,omitempty"`
	EnableRegex       bool `yaml:"enable_regex,omitempty" toml:"enable_regex,omitempty"`
	ShowSearchHistory bool `yaml:"show_search_history,omitempty" toml:"show_search_history,omitempty"`

	// MaxHistoryItems caps the persisted history. Defaults to 20.
	MaxHistoryItems int `yaml:"max_history_items,omitempty" toml:"max_history_items,omitempty"`
}

// Shortcut is a custom key binding checked before the defaults.
type Shortcut struct {
	// Key is the exact combination, e.g. "Ctrl+Shift+E".
	Key string `yaml:"key" toml:"key"`

	// Action names the handler registered with the keyboard manager.
	Action string `yaml:"action" toml:"action"`

	// Announce is spoken through the announcer when triggered.
	Announce string `yaml:"announce,omitempty" toml:"announce,omitempty"`
}

// Keyboard configures the keyboard and focus manager.
type Keyboard struct {
	Enabled            bool       `yaml:"enabled" toml:"enabled"`
	ArrowKeyNavigation bool       `yaml:"arrow_key_navigation,omitempty" toml:"arrow_key_navigation,omitempty"`
	AutoPageDown       bool       `yaml:"auto_page_down,omitempty" toml:"auto_page_down,omitempty"`
	EnterToEdit        bool       `yaml:"enter_to_edit,omitempty" toml:"enter_to_edit,omitempty"`
	SpaceToSelect      bool       `yaml:"space_to_select,omitempty" toml:"space_to_select,omitempty"`
	CustomShortcuts    []Shortcut `yaml:"custom_shortcuts,omitempty" toml:"custom_shortcuts,omitempty"`
}

// Accessibility configures the announcer.
type Accessibility struct {
	Enabled          bool   `yaml:"enabled" toml:"enabled"`
	TableLabel       string `yaml:"table_label,omitempty" toml:"table_label,omitempty"`
	TableDescription string `yaml:"table_description,omitempty" toml:"table_description,omitempty"`

	AnnounceRowCount  bool `yaml:"announce_row_count,omitempty" toml:"announce_row_count,omitempty"`
	AnnounceSort      bool `yaml:"announce_sort,omitempty" toml:"announce_sort,omitempty"`
	AnnounceSearch    bool `yaml:"announce_search,omitempty" toml:"announce_search,omitempty"`
	AnnouncePage      bool `yaml:"announce_page,omitempty" toml:"announce_page,omitempty"`
	AnnounceSelection bool `yaml:"announce_selection,omitempty" toml:"announce_selection,omitempty"`
}

// Config is the complete engine configuration for one table. Columns is
// the only required block.
type Config struct {
	Columns       []Column      `yaml:"columns" toml:"columns"`
	Selection     Selection     `yaml:"selection,omitempty" toml:"selection,omitempty"`
	Footer        Footer        `yaml:"footer,omitempty" toml:"footer,omitempty"`
	Search        Search        `yaml:"search,omitempty" toml:"search,omitempty"`
	Keyboard      Keyboard      `yaml:"keyboard,omitempty" toml:"keyboard,omitempty"`
	Accessibility Accessibility `yaml:"accessibility,omitempty" toml:"accessibility,omitempty"`

	// LuaScript is an optional path to a script registering custom render
	// and aggregation functions.
	LuaScript string `yaml:"lua_script,omitempty" toml:"lua_script,omitempty"`
}

// Default returns a configuration with the built-in defaults applied over
// the given columns.
func Default(columns []Column) Config {
	return Config{
		Columns: columns,
		Search:  Search{Enabled: true, MaxHistoryItems: DefaultMaxHistoryItems},
		Keyboard: Keyboard{
			Enabled:            true,
			ArrowKeyNavigation: true,
			AutoPageDown:       true,
			EnterToEdit:        true,
			SpaceToSelect:      true,
		},
		Accessibility: Accessibility{
			Enabled:           true,
			AnnounceRowCount:  true,
			AnnounceSort:      true,
			AnnounceSearch:    true,
			AnnouncePage:      true,
			AnnounceSelection: true,
		},
	}
}

// DefaultMaxHistoryItems caps the search history when the config leaves
// MaxHistoryItems unset.
const DefaultMaxHistoryItems = 20

// FieldError is a single configuration validation failure.
type FieldError struct {
	// Path is the dot-separated path to the invalid value.
	Path string

	// Message describes what's wrong.
	Message string
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors collects every configuration failure so a caller sees
// them all at once.
type ValidationErrors struct {
	Errors []*FieldError
}

// Error implements the error interface.
func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var msgs []string
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e.Errors), strings.Join(msgs, "\n  - "))
}

func (e *ValidationErrors) add(path, message string) {
	e.Errors = append(e.Errors, &FieldError{Path: path, Message: message})
}

// Validate checks the configuration. Footer columns naming a missing index
// are NOT an error here; the aggregation engine skips them with a warning
// at runtime, per the degradation contract.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	if len(c.Columns) == 0 {
		errs.add("columns", "at least one column is required")
	}
	for i, col := range c.Columns {
		path := fmt.Sprintf("columns[%d]", i)
		if col.Data == "" {
			errs.add(path+".data", "data path is required")
		}
		if col.Editable {
			switch col.EditType {
			case "", EditText, EditNumber, EditSelect, EditDate, EditTextarea:
			default:
				errs.add(path+".edit_type", fmt.Sprintf("unknown edit type %q", col.EditType))
			}
			if col.EditType == EditSelect && len(col.EditOptions) == 0 {
				errs.add(path+".edit_options", "select columns need options")
			}
			if col.EditMin != nil && col.EditMax != nil && *col.EditMin > *col.EditMax {
				errs.add(path+".edit_min", "min exceeds max")
			}
		}
	}

	for i, fc := range c.Footer.Columns {
		path := fmt.Sprintf("footer.columns[%d]", i)
		switch fc.Agg {
		case AggSum, AggAverage, AggMin, AggMax, AggCount, AggCountUnique, AggStatic, AggCustom:
		default:
			errs.add(path+".agg", fmt.Sprintf("unknown aggregation %q", fc.Agg))
		}
		if fc.Agg == AggCustom && fc.Custom == "" {
			errs.add(path+".custom", "custom aggregation needs a name")
		}
		if fc.Decimals != nil && *fc.Decimals < 0 {
			errs.add(path+".decimals", "decimals must be >= 0")
		}
	}

	if c.Search.MaxHistoryItems < 0 {
		errs.add("search.max_history_items", "must be >= 0")
	}

	for i, sc := range c.Keyboard.CustomShortcuts {
		path := fmt.Sprintf("keyboard.custom_shortcuts[%d]", i)
		if sc.Key == "" {
			errs.add(path+".key", "key combination is required")
		}
		if sc.Action == "" {
			errs.add(path+".action", "action is required")
		}
	}

	if len(errs.Errors) > 0 {
		return errs
	}
	return nil
}

// MaxHistory returns the effective history cap.
func (c *Config) MaxHistory() int {
	if c.Search.MaxHistoryItems > 0 {
		return c.Search.MaxHistoryItems
	}
	return DefaultMaxHistoryItems
}
