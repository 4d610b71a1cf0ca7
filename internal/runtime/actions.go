package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/aretw0/statecraft/pkg/machine"
)

// runActions dispatches every action tag of t that belongs to phase, in order.
// Failures are logged and do not stop the remaining actions.
func (e *Engine) runActions(ctx context.Context, phase domain.ActionPhase, t machine.Transition, req domain.TransitionRequest, log *slog.Logger) {
	for _, tag := range t.Actions {
		name, ok := phase.ActionName(tag)
		if !ok {
			continue
		}
		e.runAction(ctx, domain.ActionRequest{
			Name:       name,
			Phase:      phase,
			EntityType: req.EntityType,
			EntityID:   req.EntityID,
			FromState:  req.FromState,
			ToState:    req.ToState,
			Context:    req.Context,
		}, log)
	}
}

func (e *Engine) runAction(ctx context.Context, req domain.ActionRequest, log *slog.Logger) {
	ev := &domain.ActionEvent{
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Phase:      req.Phase,
		Action:     req.Name,
	}
	if e.hooks.OnActionCall != nil {
		e.hooks.OnActionCall(ctx, ev)
	}

	start := time.Now()
	err := e.execute(ctx, req)

	if e.hooks.OnActionReturn != nil {
		done := *ev
		done.Duration = time.Since(start)
		done.IsError = err != nil
		e.hooks.OnActionReturn(ctx, &done)
	}

	if err != nil {
		log.ErrorContext(ctx, "Action failed", "action", req.Name, "phase", req.Phase, "err", err)
	}
}

func (e *Engine) execute(ctx context.Context, req domain.ActionRequest) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action %q panicked: %v", req.Name, r)
		}
	}()
	return e.executor.Execute(ctx, req)
}
