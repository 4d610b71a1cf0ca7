// Package runtime implements the transition pipeline behind statecraft.Engine.
package runtime

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/statecraft/internal/logging"
	"github.com/aretw0/statecraft/pkg/adapters/memory"
	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/aretw0/statecraft/pkg/locking"
	"github.com/aretw0/statecraft/pkg/machine"
	"github.com/aretw0/statecraft/pkg/ports"
	"github.com/google/uuid"
)

// Engine holds the registry of state machines and executes transitions against them.
// All methods are safe for concurrent use.
type Engine struct {
	mu       sync.RWMutex
	machines map[string]*machine.StateMachine

	listenersMu sync.RWMutex
	listeners   []ports.Listener

	executor ports.ActionExecutor
	history  ports.HistoryStore
	states   ports.StateStore // Optional
	locks    *locking.Manager // Optional
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithActionExecutor sets the capability that runs before_/after_ actions.
func WithActionExecutor(executor ports.ActionExecutor) EngineOption {
	return func(e *Engine) {
		e.executor = executor
	}
}

// WithHistoryStore replaces the default in-memory history.
func WithHistoryStore(store ports.HistoryStore) EngineOption {
	return func(e *Engine) {
		if store != nil {
			e.history = store
		}
	}
}

// WithStateStore enables the stale from_state check and current-state tracking.
func WithStateStore(store ports.StateStore) EngineOption {
	return func(e *Engine) {
		e.states = store
	}
}

// WithLocker serializes transitions of the same entity.
func WithLocker(locks *locking.Manager) EngineOption {
	return func(e *Engine) {
		e.locks = locks
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithListener registers a transition listener.
func WithListener(l ports.Listener) EngineOption {
	return func(e *Engine) {
		e.listeners = append(e.listeners, l)
	}
}

// WithClock overrides the time source used for event timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator overrides how event IDs are generated.
func WithIDGenerator(newID func() string) EngineOption {
	return func(e *Engine) {
		e.newID = newID
	}
}

// NewEngine creates an engine with an empty registry.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		machines: make(map[string]*machine.StateMachine),
		history:  memory.NewHistoryStore(),
		logger:   logging.NewNop(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.executor == nil {
		e.executor = logExecutor{logger: e.logger}
	}
	return e
}

// Register compiles def and stores it under name, replacing any previous machine.
func (e *Engine) Register(name string, def domain.WorkflowDefinition) *machine.StateMachine {
	sm := machine.New(name, def)

	e.mu.Lock()
	_, replaced := e.machines[name]
	e.machines[name] = sm
	e.mu.Unlock()

	e.logger.Info("Registered state machine", "entity_type", name, "states", len(def.States), "replaced", replaced)
	return sm
}

// Machine returns the state machine registered for entityType.
func (e *Engine) Machine(entityType string) (*machine.StateMachine, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	sm, ok := e.machines[entityType]
	return sm, ok
}

// Workflows returns the registered entity types, sorted.
func (e *Engine) Workflows() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.machines))
	for name := range e.machines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns a snapshot of every registered definition.
func (e *Engine) Definitions() map[string]domain.WorkflowDefinition {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]domain.WorkflowDefinition, len(e.machines))
	for name, sm := range e.machines {
		out[name] = sm.Definition()
	}
	return out
}

// AddListener registers a listener after construction.
func (e *Engine) AddListener(l ports.Listener) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	e.listeners = append(e.listeners, l)
}

// HistoryStore returns the configured history store.
func (e *Engine) HistoryStore() ports.HistoryStore {
	return e.history
}

// logExecutor is used when no executor is configured.
type logExecutor struct {
	logger *slog.Logger
}

func (x logExecutor) Execute(ctx context.Context, req domain.ActionRequest) error {
	x.logger.InfoContext(ctx, "Executing action",
		"action", req.Name,
		"phase", req.Phase,
		"entity_type", req.EntityType,
		"entity_id", req.EntityID,
	)
	return nil
}
