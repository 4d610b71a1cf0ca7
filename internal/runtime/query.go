package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/statecraft/pkg/domain"
)

// ErrNoStateStore is returned by CurrentState when no StateStore is configured.
var ErrNoStateStore = errors.New("no state store configured")

// History returns recorded transitions matching filter, newest first.
func (e *Engine) History(ctx context.Context, filter domain.HistoryFilter) ([]domain.TransitionEvent, error) {
	events, err := e.history.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return events, nil
}

// StateInfo describes state within entityType. Unknown types yield the zero value.
func (e *Engine) StateInfo(entityType, state string) domain.StateInfo {
	sm, ok := e.Machine(entityType)
	if !ok {
		return domain.StateInfo{}
	}
	return sm.StateInfo(state)
}

// ValidTransitions lists the configured next states. Unknown types or states yield an empty slice.
func (e *Engine) ValidTransitions(entityType, state string) []string {
	sm, ok := e.Machine(entityType)
	if !ok {
		return []string{}
	}
	return sm.ValidTransitions(state)
}

// CanTransition reports whether from -> to is allowed for data without executing it.
func (e *Engine) CanTransition(entityType, from, to string, data map[string]any) (bool, error) {
	sm, ok := e.Machine(entityType)
	if !ok {
		return false, fmt.Errorf("%w: %s", domain.ErrWorkflowNotFound, entityType)
	}
	return sm.CanTransition(from, to, data)
}

// Definition returns the normalized definition registered for entityType.
func (e *Engine) Definition(entityType string) (domain.WorkflowDefinition, bool) {
	sm, ok := e.Machine(entityType)
	if !ok {
		return domain.WorkflowDefinition{}, false
	}
	return sm.Definition(), true
}

// CurrentState returns the state recorded for an entity by the StateStore.
func (e *Engine) CurrentState(ctx context.Context, entityType, entityID string) (string, error) {
	if e.states == nil {
		return "", ErrNoStateStore
	}
	return e.states.Get(ctx, entityType, entityID)
}
