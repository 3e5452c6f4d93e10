package search

import (
	"encoding/json"
	"time"

	"github.com/dshills/gridkit/internal/logging"
	"github.com/dshills/gridkit/internal/session"
	"github.com/dshills/gridkit/internal/storage"
)

// HistoryEntry is one remembered query.
type HistoryEntry struct {
	Query     string             `json:"query"`
	Mode      session.SearchMode `json:"mode"`
	Timestamp time.Time          `json:"timestamp"`
}

// History is the persisted, capped, newest-first query history of one
// table. Entries are deduplicated by (query, mode): re-running a query
// moves it to the front instead of adding a duplicate.
type History struct {
	kv      storage.KV
	tableID string
	cap     int
	log     *logging.Logger

	entries []HistoryEntry
}

// NewHistory loads the table's history from storage. A nil kv gives an
// in-memory-only history.
func NewHistory(kv storage.KV, tableID string, capacity int, log *logging.Logger) *History {
	if capacity <= 0 {
		capacity = 20
	}
	if log == nil {
		log = logging.Discard()
	}
	h := &History{kv: kv, tableID: tableID, cap: capacity, log: log}
	h.load()
	return h
}

// Entries returns the history, newest first. The slice is shared; callers
// must not mutate it.
func (h *History) Entries() []HistoryEntry {
	return h.entries
}

// Append records a successfully applied query at the front.
func (h *History) Append(query string, mode session.SearchMode) {
	if query == "" {
		return
	}

	kept := h.entries[:0:0]
	for _, e := range h.entries {
		if e.Query == query && e.Mode == mode {
			continue
		}
		kept = append(kept, e)
	}

	h.entries = append([]HistoryEntry{{
		Query:     query,
		Mode:      mode,
		Timestamp: time.Now(),
	}}, kept...)

	if len(h.entries) > h.cap {
		h.entries = h.entries[:h.cap]
	}
	h.save()
}

// Clear wipes the history, including its persisted copy.
func (h *History) Clear() {
	h.entries = nil
	if h.kv != nil {
		if err := h.kv.Delete(storage.Key(h.tableID, "search-history")); err != nil {
			h.log.Warn("history delete failed: %v", err)
		}
	}
}

func (h *History) load() {
	if h.kv == nil {
		return
	}
	raw, ok, err := h.kv.Get(storage.Key(h.tableID, "search-history"))
	if err != nil {
		h.log.Warn("history load failed: %v", err)
		return
	}
	if !ok {
		return
	}
	if err := json.Unmarshal([]byte(raw), &h.entries); err != nil {
		h.log.Warn("history unmarshal failed: %v", err)
		h.entries = nil
	}
	if len(h.entries) > h.cap {
		h.entries = h.entries[:h.cap]
	}
}

func (h *History) save() {
	if h.kv == nil {
		return
	}
	data, err := json.Marshal(h.entries)
	if err != nil {
		h.log.Warn("history marshal failed: %v", err)
		return
	}
	if err := h.kv.Set(storage.Key(h.tableID, "search-history"), string(data)); err != nil {
		h.log.Warn("history save failed: %v", err)
	}
}
