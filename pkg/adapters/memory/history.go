// Package memory provides in-process implementations of the storage ports.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/mohae/deepcopy"
)

// HistoryStore implements ports.HistoryStore in memory.
// Safe for concurrent use. Events live for the lifetime of the process.
type HistoryStore struct {
	events []domain.TransitionEvent
	mu     sync.RWMutex
}

// NewHistoryStore creates an empty in-memory history.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

// Append records an event. The context map is copied so later mutations by the
// caller cannot reach the stored record.
func (h *HistoryStore) Append(ctx context.Context, event domain.TransitionEvent) error {
	event.Context = copyContext(event.Context)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return nil
}

// List returns matching events, newest first. Events sharing a timestamp are
// returned in reverse insertion order.
func (h *HistoryStore) List(ctx context.Context, filter domain.HistoryFilter) ([]domain.TransitionEvent, error) {
	h.mu.RLock()
	out := make([]domain.TransitionEvent, 0, len(h.events))
	for i := len(h.events) - 1; i >= 0; i-- {
		if filter.Matches(h.events[i]) {
			out = append(out, h.events[i])
		}
	}
	h.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b domain.TransitionEvent) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	for i := range out {
		out[i].Context = copyContext(out[i].Context)
	}
	return out, nil
}

// Len returns the number of recorded events.
func (h *HistoryStore) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.events)
}

func copyContext(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	return deepcopy.Copy(in).(map[string]any)
}
