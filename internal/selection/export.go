package selection

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dshills/gridkit/internal/event"
)

// BulkExport serializes the selected rows to delimited text: a header line
// of column titles, then one line per row in dataset order. Object- and
// array-valued fields are emitted as their JSON text. Fields containing
// the delimiter, a quote, or a newline are quoted with internal quotes
// doubled. With an Export hook the text is handed off; the hook's error is
// returned unwrapped into local state (nothing local changes either way).
func (m *Manager) BulkExport(ctx context.Context) (string, error) {
	rows := m.selectedRows()
	if len(rows) == 0 {
		return "", nil
	}

	var b strings.Builder
	titles := make([]string, len(m.columns))
	for i, col := range m.columns {
		titles[i] = col.Title
		if titles[i] == "" {
			titles[i] = col.Data
		}
	}
	writeRecord(&b, titles)

	for _, r := range rows {
		record := make([]string, len(m.columns))
		for i, col := range m.columns {
			record[i] = exportField(r.Data, col.Data)
		}
		writeRecord(&b, record)
	}

	out := b.String()
	if m.hooks.Export != nil {
		if err := m.hooks.Export(ctx, out); err != nil {
			return "", fmt.Errorf("export hook: %w", err)
		}
	}

	m.bus.Publish(event.New(event.TopicBulkCompleted, m.host.TableID(), event.BulkPayload{
		Action: "export",
		Rows:   len(rows),
	}))
	return out, nil
}

// exportField renders one field for export. Scalars use their display
// text; objects and arrays keep their JSON form.
func exportField(data []byte, path string) string {
	v := gjson.GetBytes(data, path)
	if !v.Exists() {
		return ""
	}
	switch v.Type {
	case gjson.JSON:
		return v.Raw
	default:
		return v.String()
	}
}

const exportDelimiter = ","

// writeRecord appends one delimited line, quoting fields that need it.
func writeRecord(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteString(exportDelimiter)
		}
		b.WriteString(quoteField(f))
	}
	b.WriteByte('\n')
}

// quoteField wraps a field in quotes when it contains the delimiter, a
// quote, or a line break, doubling internal quotes.
func quoteField(f string) string {
	if !strings.ContainsAny(f, exportDelimiter+"\"\n\r") {
		return f
	}
	return `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
}
