package ports

import (
	"context"

	"github.com/aretw0/statecraft/pkg/domain"
)

// ActionExecutor defines how side-effects are executed.
// The engine emits one request per action tag and the host implements this
// interface to handle them. Returned errors are logged and do not abort the phase.
type ActionExecutor interface {
	Execute(ctx context.Context, req domain.ActionRequest) error
}

// ActionExecutorFunc adapts a plain function to ActionExecutor.
type ActionExecutorFunc func(ctx context.Context, req domain.ActionRequest) error

// Execute calls f.
func (f ActionExecutorFunc) Execute(ctx context.Context, req domain.ActionRequest) error {
	return f(ctx, req)
}

// Listener is notified after a transition has been recorded.
// An error (or panic) turns the transition result into an error; the history
// event stays recorded.
type Listener func(ctx context.Context, event domain.TransitionEvent) error
