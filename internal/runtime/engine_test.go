package runtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/statecraft/internal/runtime"
	"github.com/aretw0/statecraft/pkg/adapters/memory"
	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/aretw0/statecraft/pkg/locking"
	"github.com/aretw0/statecraft/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ticketsDefinition() domain.WorkflowDefinition {
	return domain.WorkflowDefinition{
		InitialState: "open",
		FinalStates:  []string{"closed"},
		States: map[string]domain.StateDefinition{
			"open": {
				Transitions: []string{"in_progress", "closed"},
				Actions:     []string{"before_check", "before_explode", "after_notify", "after_audit", "plain"},
			},
			"in_progress": {Transitions: []string{"closed"}},
			"closed":      {},
		},
	}
}

type recordingExecutor struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (r *recordingExecutor) Execute(ctx context.Context, req domain.ActionRequest) error {
	r.mu.Lock()
	r.calls = append(r.calls, string(req.Phase)+":"+req.Name)
	r.mu.Unlock()

	if req.Name == "explode" {
		panic("kaboom")
	}
	return r.fail[req.Name]
}

type failingHistory struct{ err error }

func (f failingHistory) Append(context.Context, domain.TransitionEvent) error { return f.err }
func (f failingHistory) List(context.Context, domain.HistoryFilter) ([]domain.TransitionEvent, error) {
	return nil, f.err
}

func request(from, to string) domain.TransitionRequest {
	return domain.TransitionRequest{EntityType: "tickets", EntityID: "T-1", FromState: from, ToState: to}
}

func TestTransition_ActionFailuresDoNotAbort(t *testing.T) {
	exec := &recordingExecutor{fail: map[string]error{"notify": errors.New("smtp down")}}
	eng := runtime.NewEngine(runtime.WithActionExecutor(exec))
	eng.Register("tickets", ticketsDefinition())

	result := eng.Transition(context.Background(), request("open", "closed"))
	assert.Equal(t, domain.ResultSuccess, result)
	assert.Equal(t, []string{"before:check", "before:explode", "after:notify", "after:audit"}, exec.calls)

	events, err := eng.History(context.Background(), domain.HistoryFilter{})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestTransition_HistoryFailure(t *testing.T) {
	exec := &recordingExecutor{}
	eng := runtime.NewEngine(
		runtime.WithActionExecutor(exec),
		runtime.WithHistoryStore(failingHistory{err: errors.New("disk full")}),
	)
	eng.Register("tickets", ticketsDefinition())

	result := eng.Transition(context.Background(), request("open", "closed"))
	assert.Equal(t, domain.ResultError, result)
	assert.Equal(t, []string{"before:check", "before:explode"}, exec.calls, "after actions must not run")

	_, err := eng.History(context.Background(), domain.HistoryFilter{})
	assert.Error(t, err)
}

func TestTransition_ListenerFailure(t *testing.T) {
	tests := []struct {
		name     string
		listener ports.Listener
	}{
		{"error", func(context.Context, domain.TransitionEvent) error { return errors.New("boom") }},
		{"panic", func(context.Context, domain.TransitionEvent) error { panic("boom") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var laterCalled bool
			eng := runtime.NewEngine(
				runtime.WithListener(tt.listener),
				runtime.WithListener(func(context.Context, domain.TransitionEvent) error {
					laterCalled = true
					return nil
				}),
			)
			eng.Register("tickets", ticketsDefinition())

			result := eng.Transition(context.Background(), request("open", "in_progress"))
			assert.Equal(t, domain.ResultError, result)
			assert.False(t, laterCalled)

			events, err := eng.History(context.Background(), domain.HistoryFilter{})
			require.NoError(t, err)
			assert.Len(t, events, 1, "history is not rolled back")
		})
	}
}

func TestTransition_ListenersSeeEvent(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	eng := runtime.NewEngine(
		runtime.WithClock(func() time.Time { return now }),
		runtime.WithIDGenerator(func() string { return "evt-1" }),
	)
	eng.Register("tickets", ticketsDefinition())

	var got []domain.TransitionEvent
	eng.AddListener(func(_ context.Context, e domain.TransitionEvent) error {
		got = append(got, e)
		return nil
	})

	req := request("open", "in_progress")
	req.UserID = "agent-7"
	req.Context = map[string]any{"priority": "high"}
	require.Equal(t, domain.ResultSuccess, eng.Transition(context.Background(), req))

	require.Len(t, got, 1)
	assert.Equal(t, domain.TransitionEvent{
		ID: "evt-1", EntityType: "tickets", EntityID: "T-1",
		FromState: "open", ToState: "in_progress", UserID: "agent-7",
		Context: map[string]any{"priority": "high"}, Timestamp: now,
	}, got[0])
}

func TestTransition_StateStore(t *testing.T) {
	states := memory.NewStateStore()
	eng := runtime.NewEngine(runtime.WithStateStore(states))
	eng.Register("tickets", ticketsDefinition())
	ctx := context.Background()

	_, err := eng.CurrentState(ctx, "tickets", "T-1")
	assert.ErrorIs(t, err, domain.ErrEntityNotFound)

	require.Equal(t, domain.ResultSuccess, eng.Transition(ctx, request("open", "in_progress")))

	current, err := eng.CurrentState(ctx, "tickets", "T-1")
	require.NoError(t, err)
	assert.Equal(t, "in_progress", current)

	// The entity already left "open".
	assert.Equal(t, domain.ResultBlocked, eng.Transition(ctx, request("open", "closed")))
	assert.Equal(t, domain.ResultSuccess, eng.Transition(ctx, request("in_progress", "closed")))
}

func TestCurrentState_WithoutStore(t *testing.T) {
	eng := runtime.NewEngine()
	_, err := eng.CurrentState(context.Background(), "tickets", "T-1")
	assert.ErrorIs(t, err, runtime.ErrNoStateStore)
}

func TestTransition_LockedConcurrentRequests(t *testing.T) {
	states := memory.NewStateStore()
	eng := runtime.NewEngine(
		runtime.WithStateStore(states),
		runtime.WithLocker(locking.NewManager()),
	)
	eng.Register("tickets", ticketsDefinition())
	ctx := context.Background()

	const workers = 20
	results := make([]domain.TransitionResult, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = eng.Transition(ctx, request("open", "in_progress"))
		}(i)
	}
	wg.Wait()

	var success, blocked int
	for _, r := range results {
		switch r {
		case domain.ResultSuccess:
			success++
		case domain.ResultBlocked:
			blocked++
		}
	}
	assert.Equal(t, 1, success)
	assert.Equal(t, workers-1, blocked)
}

func TestTransition_LockContextCanceled(t *testing.T) {
	eng := runtime.NewEngine(runtime.WithLocker(locking.NewManager()))
	eng.Register("tickets", ticketsDefinition())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, domain.ResultError, eng.Transition(ctx, request("open", "closed")))
}

func TestTransition_Hooks(t *testing.T) {
	var (
		outcomes []domain.TransitionOutcome
		returns  []domain.ActionEvent
	)
	hooks := domain.LifecycleHooks{
		OnTransition: func(_ context.Context, o *domain.TransitionOutcome) { outcomes = append(outcomes, *o) },
		OnActionReturn: func(_ context.Context, e *domain.ActionEvent) {
			returns = append(returns, *e)
		},
	}
	exec := &recordingExecutor{fail: map[string]error{"audit": errors.New("nope")}}
	eng := runtime.NewEngine(runtime.WithLifecycleHooks(hooks), runtime.WithActionExecutor(exec))
	eng.Register("tickets", ticketsDefinition())
	ctx := context.Background()

	eng.Transition(ctx, request("open", "closed"))
	eng.Transition(ctx, request("closed", "open"))
	eng.Transition(ctx, domain.TransitionRequest{EntityType: "nope"})

	require.Len(t, outcomes, 3)
	assert.Equal(t, domain.ResultSuccess, outcomes[0].Result)
	assert.Equal(t, domain.ResultBlocked, outcomes[1].Result)
	assert.Equal(t, domain.ResultError, outcomes[2].Result)
	assert.True(t, outcomes[0].Registered && outcomes[0].Configured)
	assert.True(t, outcomes[1].Registered)
	assert.False(t, outcomes[1].Configured)
	assert.False(t, outcomes[2].Registered)

	require.Len(t, returns, 4)
	errored := map[string]bool{}
	for _, r := range returns {
		errored[r.Action] = r.IsError
	}
	assert.Equal(t, map[string]bool{"check": false, "explode": true, "notify": false, "audit": true}, errored)
}

func TestTransition_DefaultExecutor(t *testing.T) {
	eng := runtime.NewEngine()
	eng.Register("tickets", domain.WorkflowDefinition{
		States: map[string]domain.StateDefinition{
			"pending": {Transitions: []string{"done"}, Actions: []string{"before_x", "after_y"}},
			"done":    {},
		},
	})
	assert.Equal(t, domain.ResultSuccess, eng.Transition(context.Background(), domain.TransitionRequest{
		EntityType: "tickets", EntityID: "1", FromState: "pending", ToState: "done",
	}))
}

func TestRegister_ReplacesAndLists(t *testing.T) {
	eng := runtime.NewEngine()
	eng.Register("tickets", ticketsDefinition())
	eng.Register("alpha", domain.WorkflowDefinition{})
	eng.Register("tickets", domain.WorkflowDefinition{
		States: map[string]domain.StateDefinition{"pending": {Transitions: []string{"done"}}},
	})

	assert.Equal(t, []string{"alpha", "tickets"}, eng.Workflows())
	assert.Equal(t, []string{"done"}, eng.ValidTransitions("tickets", "pending"))
	assert.Empty(t, eng.ValidTransitions("tickets", "open"), "old definition is gone")
	assert.Len(t, eng.Definitions(), 2)

	def, ok := eng.Definition("tickets")
	require.True(t, ok)
	assert.Equal(t, "pending", def.InitialState)

	_, ok = eng.Definition("nope")
	assert.False(t, ok)
}

func TestCanTransition_UnknownType(t *testing.T) {
	eng := runtime.NewEngine()
	ok, err := eng.CanTransition("nope", "a", "b", nil)
	assert.False(t, ok)
	assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
	assert.Empty(t, eng.ValidTransitions("nope", "a"))
	assert.True(t, eng.StateInfo("nope", "a").IsZero())
}
