package statecraft

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/statecraft/internal/logging"
	"github.com/aretw0/statecraft/internal/runtime"
	"github.com/aretw0/statecraft/pkg/config"
	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/aretw0/statecraft/pkg/locking"
	"github.com/aretw0/statecraft/pkg/ports"
	"github.com/aretw0/statecraft/pkg/validate"
)

// Engine is the high-level entry point for the statecraft library.
// It wraps the internal runtime and provides a simplified API for consumers.
// Create one per process (or per tenant) with New; there is no global instance.
type Engine struct {
	runtime     *runtime.Engine
	runtimeOpts []runtime.EngineOption
	logger      *slog.Logger
}

var _ ports.WorkflowService = (*Engine)(nil)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithActionExecutor injects the capability that runs before_/after_ actions.
// Without one, actions are only logged.
func WithActionExecutor(executor ports.ActionExecutor) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithActionExecutor(executor))
	}
}

// WithHistoryStore replaces the default in-memory history.
func WithHistoryStore(store ports.HistoryStore) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithHistoryStore(store))
	}
}

// WithStateStore tracks entity states and blocks requests whose FromState is stale.
func WithStateStore(store ports.StateStore) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithStateStore(store))
	}
}

// WithLocker serializes transitions of the same entity.
func WithLocker(locks *locking.Manager) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithLocker(locks))
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithLifecycleHooks(hooks))
	}
}

// WithListener registers a transition listener.
func WithListener(l ports.Listener) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithListener(l))
	}
}

// WithClock overrides the time source used for history timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithClock(now))
	}
}

// New initializes an Engine with an empty registry.
func New(opts ...Option) *Engine {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	// Ensure logger is initialized so every runtime option sees the same one.
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	runtimeOpts := append([]runtime.EngineOption{runtime.WithLogger(eng.logger)}, eng.runtimeOpts...)
	eng.runtime = runtime.NewEngine(runtimeOpts...)
	return eng
}

// RegisterStateMachine decodes a raw declarative definition (as produced by a
// YAML or JSON decoder) and registers it under name, replacing any previous one.
func (e *Engine) RegisterStateMachine(name string, raw map[string]any) error {
	def, err := config.DecodeWorkflow(raw)
	if err != nil {
		return fmt.Errorf("workflow %s: %w", name, err)
	}
	e.Register(name, def)
	return nil
}

// Register registers a typed definition under name, replacing any previous one.
func (e *Engine) Register(name string, def domain.WorkflowDefinition) {
	e.runtime.Register(name, def)
}

// LoadFromConfig registers every workflow of the YAML or JSON document at path.
func (e *Engine) LoadFromConfig(path string) error {
	doc, err := config.Load(path)
	if err != nil {
		return err
	}
	e.LoadDocument(doc)
	e.logger.Info("Loaded workflow config", "path", path, "workflows", len(doc.Workflows))
	return nil
}

// LoadDocument registers every workflow of doc.
func (e *Engine) LoadDocument(doc config.Document) {
	for name, def := range doc.Workflows {
		e.Register(name, def)
	}
}

// Transition executes a transition request. See domain.TransitionResult for outcomes.
func (e *Engine) Transition(ctx context.Context, req domain.TransitionRequest) domain.TransitionResult {
	return e.runtime.Transition(ctx, req)
}

// History returns recorded transitions matching filter, newest first.
func (e *Engine) History(ctx context.Context, filter domain.HistoryFilter) ([]domain.TransitionEvent, error) {
	return e.runtime.History(ctx, filter)
}

// StateInfo describes a state of an entity type. Unknown types yield the zero value.
func (e *Engine) StateInfo(entityType, state string) domain.StateInfo {
	return e.runtime.StateInfo(entityType, state)
}

// ValidTransitions lists the configured next states of state.
func (e *Engine) ValidTransitions(entityType, state string) []string {
	return e.runtime.ValidTransitions(entityType, state)
}

// CanTransition evaluates the transition rules for data without executing anything.
func (e *Engine) CanTransition(entityType, from, to string, data map[string]any) (bool, error) {
	return e.runtime.CanTransition(entityType, from, to, data)
}

// Workflows lists the registered entity types, sorted.
func (e *Engine) Workflows() []string {
	return e.runtime.Workflows()
}

// Definition returns the registered definition of an entity type.
func (e *Engine) Definition(entityType string) (domain.WorkflowDefinition, bool) {
	return e.runtime.Definition(entityType)
}

// CurrentState returns the state recorded for an entity. It requires WithStateStore.
func (e *Engine) CurrentState(ctx context.Context, entityType, entityID string) (string, error) {
	return e.runtime.CurrentState(ctx, entityType, entityID)
}

// AddListener registers a listener after construction.
func (e *Engine) AddListener(l ports.Listener) {
	e.runtime.AddListener(l)
}

// Validate checks every registered definition for dangling targets and other mistakes.
func (e *Engine) Validate() *validate.Result {
	return validate.All(e.runtime.Definitions())
}
