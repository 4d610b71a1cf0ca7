package ports

import (
	"context"

	"github.com/aretw0/statecraft/pkg/domain"
)

// WorkflowService defines the engine surface used by driving adapters (e.g., HTTP, MCP).
type WorkflowService interface {
	// Transition executes a request and reports its outcome. It never panics.
	Transition(ctx context.Context, req domain.TransitionRequest) domain.TransitionResult

	// History returns recorded events matching filter, newest first.
	History(ctx context.Context, filter domain.HistoryFilter) ([]domain.TransitionEvent, error)

	// StateInfo describes a state of an entity type. Unknown types yield the zero value.
	StateInfo(entityType, state string) domain.StateInfo

	// ValidTransitions lists the configured next states.
	ValidTransitions(entityType, state string) []string

	// Workflows lists the registered entity types, sorted.
	Workflows() []string

	// Definition returns the registered definition of an entity type.
	Definition(entityType string) (domain.WorkflowDefinition, bool)
}
