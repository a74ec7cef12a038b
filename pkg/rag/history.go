package rag

import (
	"sync"

	"github.com/kbase/kbsearch/internal/models"
)

// historyCapacity bounds the in-memory query log; the oldest entry is
// evicted first.
const historyCapacity = 100

// History is the bounded query log, safe for concurrent use.
type History struct {
	mu      sync.Mutex
	entries []models.QueryHistoryEntry
}

func NewHistory() *History {
	return &History{}
}

func (h *History) Append(entry models.QueryHistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, entry)
	if len(h.entries) > historyCapacity {
		h.entries = h.entries[len(h.entries)-historyCapacity:]
	}
}

// Recent returns up to limit of the most recent entries, oldest first.
func (h *History) Recent(limit int) []models.QueryHistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	if limit <= 0 || limit > len(h.entries) {
		limit = len(h.entries)
	}

	out := make([]models.QueryHistoryEntry, limit)
	copy(out, h.entries[len(h.entries)-limit:])
	return out
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
}
