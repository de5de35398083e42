package memory

import (
	"context"
	"sync"

	"github.com/aretw0/scriptdeck/pkg/domain"
	"github.com/aretw0/scriptdeck/pkg/ports"
)

// History is an in-memory HistoryStore. Entries beyond the cap evict the
// oldest first.
type History struct {
	mu      sync.Mutex
	entries []domain.HistoryEntry
	cap     int
}

// DefaultHistoryCap bounds the in-memory history size.
const DefaultHistoryCap = 256

// NewHistory creates an in-memory history store. cap <= 0 uses the default.
func NewHistory(cap int) *History {
	if cap <= 0 {
		cap = DefaultHistoryCap
	}
	return &History{cap: cap}
}

// Append records a settled run.
func (h *History) Append(ctx context.Context, entry domain.HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, entry)
	if len(h.entries) > h.cap {
		h.entries = h.entries[len(h.entries)-h.cap:]
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if limit > len(h.entries) {
		limit = len(h.entries)
	}
	out := make([]domain.HistoryEntry, 0, limit)
	for i := len(h.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, h.entries[i])
	}
	return out, nil
}

var _ ports.HistoryStore = (*History)(nil)
