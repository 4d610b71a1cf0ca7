package memory

import (
	"context"
	"sync"

	"github.com/aretw0/statecraft/pkg/domain"
)

// StateStore implements ports.StateStore in memory.
// Safe for concurrent use.
type StateStore struct {
	data map[string]string
	mu   sync.RWMutex
}

// NewStateStore creates a new in-memory state store.
func NewStateStore() *StateStore {
	return &StateStore{
		data: make(map[string]string),
	}
}

func stateKey(entityType, entityID string) string {
	return entityType + "\x00" + entityID
}

// Get retrieves the recorded state of an entity.
func (s *StateStore) Get(ctx context.Context, entityType, entityID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.data[stateKey(entityType, entityID)]
	if !ok {
		return "", domain.ErrEntityNotFound
	}
	return state, nil
}

// Set records the state of an entity.
func (s *StateStore) Set(ctx context.Context, entityType, entityID, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[stateKey(entityType, entityID)] = state
	return nil
}
