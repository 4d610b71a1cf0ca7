// Package actions maps action names to Go functions.
package actions

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/statecraft/pkg/domain"
)

// Func is an action implementation.
type Func func(ctx context.Context, req domain.ActionRequest) error

// Registry manages the available actions. It implements ports.ActionExecutor.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]Func
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		actions: make(map[string]Func),
	}
}

// Register adds an action to the registry.
// If an action with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = fn
}

// Names returns the registered action names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute looks up req.Name and runs it.
// Returns domain.ErrActionNotFound if no action is registered under that name.
func (r *Registry) Execute(ctx context.Context, req domain.ActionRequest) error {
	r.mu.RLock()
	fn, ok := r.actions[req.Name]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrActionNotFound, req.Name)
	}
	return fn(ctx, req)
}
