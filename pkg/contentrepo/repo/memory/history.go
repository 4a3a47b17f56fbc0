package memory

import (
	"context"
	"sync"
	"time"

	"github.com/tendant/content-repository/pkg/contentrepo"
)

// History implements contentrepo.HistoryManager as an append-only slice
type History struct {
	mu      sync.RWMutex
	entries []contentrepo.HistoryEntry
}

// NewHistory creates an empty history
func NewHistory() *History {
	return &History{}
}

func (h *History) CreateEntry(ctx context.Context, id contentrepo.ID, timestamp time.Time, kind contentrepo.EventKind) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, contentrepo.HistoryEntry{
		EntityID:  id,
		Timestamp: timestamp,
		Kind:      kind,
	})
	return nil
}

// Entries returns the entries of one entity in insertion order
func (h *History) Entries(ctx context.Context, id contentrepo.ID) ([]contentrepo.HistoryEntry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var result []contentrepo.HistoryEntry
	for _, entry := range h.entries {
		if entry.EntityID == id {
			result = append(result, entry)
		}
	}
	return result, nil
}
