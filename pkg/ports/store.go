package ports

import (
	"context"

	"github.com/aretw0/statecraft/pkg/domain"
)

// HistoryStore persists the append-only transition audit log.
type HistoryStore interface {
	// Append records a new event. Events are never updated or removed.
	Append(ctx context.Context, event domain.TransitionEvent) error

	// List returns the events matching filter, newest first.
	List(ctx context.Context, filter domain.HistoryFilter) ([]domain.TransitionEvent, error)
}

// StateStore tracks the current state of each entity.
// The engine uses it to reject requests whose from_state is stale.
type StateStore interface {
	// Get returns the recorded state of an entity.
	// Returns domain.ErrEntityNotFound if nothing has been recorded yet.
	Get(ctx context.Context, entityType, entityID string) (string, error)

	// Set records the state of an entity.
	Set(ctx context.Context, entityType, entityID, state string) error
}
