package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/aretw0/statecraft/pkg/condition"
	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/aretw0/statecraft/pkg/locking"
	"github.com/aretw0/statecraft/pkg/machine"
	"github.com/mohae/deepcopy"
)

// Transition executes req and reports its outcome. Failures are reported as
// results, never as panics.
func (e *Engine) Transition(ctx context.Context, req domain.TransitionRequest) (result domain.TransitionResult) {
	start := e.now()
	log := e.logger.With(
		"entity_type", req.EntityType,
		"entity_id", req.EntityID,
		"from", req.FromState,
		"to", req.ToState,
	)

	if e.hooks.OnTransition != nil {
		defer func() {
			outcome := &domain.TransitionOutcome{
				EntityType: req.EntityType,
				EntityID:   req.EntityID,
				FromState:  req.FromState,
				ToState:    req.ToState,
				Result:     result,
				Duration:   e.now().Sub(start),
			}
			if sm, ok := e.Machine(req.EntityType); ok {
				outcome.Registered = true
				_, outcome.Configured = sm.Lookup(req.FromState, req.ToState)
			}
			e.hooks.OnTransition(ctx, outcome)
		}()
	}

	sm, ok := e.Machine(req.EntityType)
	if !ok {
		log.ErrorContext(ctx, "Unknown entity type")
		return domain.ResultError
	}

	if req.Context == nil {
		req.Context = map[string]any{}
	}

	if e.locks == nil {
		return e.transition(ctx, sm, req, log)
	}

	err := e.locks.WithLock(ctx, locking.Key(req.EntityType, req.EntityID), func(ctx context.Context) error {
		result = e.transition(ctx, sm, req, log)
		return nil
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to acquire entity lock", "err", err)
		return domain.ResultError
	}
	return result
}

func (e *Engine) transition(ctx context.Context, sm *machine.StateMachine, req domain.TransitionRequest, log *slog.Logger) (result domain.TransitionResult) {
	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "Transition panicked", "panic", r)
			result = domain.ResultError
		}
	}()

	if e.states != nil {
		current, err := e.states.Get(ctx, req.EntityType, req.EntityID)
		switch {
		case errors.Is(err, domain.ErrEntityNotFound):
			// First transition of this entity; trust the caller.
		case err != nil:
			log.ErrorContext(ctx, "Failed to read entity state", "err", err)
			return domain.ResultError
		case current != req.FromState:
			log.WarnContext(ctx, "Transition blocked: stale from_state", "current", current)
			return domain.ResultBlocked
		}
	}

	allowed, err := sm.CanTransition(req.FromState, req.ToState, req.Context)
	if err != nil {
		log.ErrorContext(ctx, "Condition evaluation failed", "err", err)
		return domain.ResultError
	}
	if !allowed {
		log.WarnContext(ctx, "Transition blocked")
		return domain.ResultBlocked
	}

	t, ok := sm.Lookup(req.FromState, req.ToState)
	if !ok {
		log.ErrorContext(ctx, "Transition record not found")
		return domain.ResultError
	}

	// An empty UserID skips the permission check.
	if len(t.Permissions) > 0 && req.UserID != "" && !hasAnyRole(req.Context, t.Permissions) {
		log.WarnContext(ctx, "Permission denied", "user_id", req.UserID, "required", t.Permissions)
		return domain.ResultPermissionDenied
	}

	e.runActions(ctx, domain.PhaseBefore, t, req, log)

	event := domain.TransitionEvent{
		ID:         e.newID(),
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		FromState:  req.FromState,
		ToState:    req.ToState,
		UserID:     req.UserID,
		Context:    snapshot(req.Context),
		Timestamp:  e.now(),
	}
	if err := e.history.Append(ctx, event); err != nil {
		log.ErrorContext(ctx, "Failed to record transition", "err", err)
		return domain.ResultError
	}

	e.runActions(ctx, domain.PhaseAfter, t, req, log)

	if e.states != nil {
		if err := e.states.Set(ctx, req.EntityType, req.EntityID, req.ToState); err != nil {
			log.ErrorContext(ctx, "Failed to update entity state", "err", err)
			return domain.ResultError
		}
	}

	if err := e.notify(ctx, event); err != nil {
		log.ErrorContext(ctx, "Transition listener failed", "err", err)
		return domain.ResultError
	}

	log.InfoContext(ctx, "Transition completed", "user_id", req.UserID)
	return domain.ResultSuccess
}

func hasAnyRole(data map[string]any, required []string) bool {
	for _, role := range condition.Roles(data) {
		if slices.Contains(required, role) {
			return true
		}
	}
	return false
}

// snapshot deep-copies the request context so the recorded event cannot be
// changed through the caller's map.
func snapshot(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	return deepcopy.Copy(data).(map[string]any)
}

func (e *Engine) notify(ctx context.Context, event domain.TransitionEvent) error {
	e.listenersMu.RLock()
	listeners := slices.Clone(e.listeners)
	e.listenersMu.RUnlock()

	for i, l := range listeners {
		if err := callListener(ctx, l, event); err != nil {
			return fmt.Errorf("listener %d: %w", i, err)
		}
	}
	return nil
}

func callListener(ctx context.Context, l func(context.Context, domain.TransitionEvent) error, event domain.TransitionEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return l(ctx, event)
}
