package observability_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/statecraft/internal/runtime"
	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/aretw0/statecraft/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Transitions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnTransition(ctx, &domain.TransitionOutcome{EntityType: "orders", FromState: "pending", ToState: "confirmed", Result: domain.ResultSuccess, Duration: time.Millisecond, Registered: true, Configured: true})
	hooks.OnTransition(ctx, &domain.TransitionOutcome{EntityType: "orders", FromState: "pending", ToState: "confirmed", Result: domain.ResultSuccess, Registered: true, Configured: true})
	hooks.OnTransition(ctx, &domain.TransitionOutcome{EntityType: "orders", FromState: "pending", ToState: "shipped", Result: domain.ResultBlocked, Registered: true})
	hooks.OnTransition(ctx, &domain.TransitionOutcome{EntityType: "bogus", FromState: "x", ToState: "y", Result: domain.ResultError})

	expected := `
# HELP statecraft_transitions_total Total number of transition requests by outcome
# TYPE statecraft_transitions_total counter
statecraft_transitions_total{entity_type="orders",from="pending",result="success",to="confirmed"} 2
statecraft_transitions_total{entity_type="orders",from="unknown",result="blocked",to="unknown"} 1
statecraft_transitions_total{entity_type="unknown",from="unknown",result="error",to="unknown"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "statecraft_transitions_total"))
}

func TestMetrics_Actions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	hooks := m.Hooks()
	ctx := context.Background()

	ev := &domain.ActionEvent{EntityType: "orders", Phase: domain.PhaseBefore, Action: "validate_order"}
	hooks.OnActionCall(ctx, ev)

	n, err := testutil.GatherAndCount(reg, "statecraft_actions_in_flight")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ev.Duration = 20 * time.Millisecond
	ev.IsError = true
	hooks.OnActionReturn(ctx, ev)

	count, err := testutil.GatherAndCount(reg, "statecraft_actions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = testutil.GatherAndCount(reg, "statecraft_action_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCombine(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{
		OnTransition: func(context.Context, *domain.TransitionOutcome) { calls = append(calls, "a") },
	}
	b := domain.LifecycleHooks{
		OnTransition:   func(context.Context, *domain.TransitionOutcome) { calls = append(calls, "b") },
		OnActionReturn: func(context.Context, *domain.ActionEvent) { calls = append(calls, "b-return") },
	}

	h := observability.Combine(a, domain.LifecycleHooks{}, b)
	h.OnTransition(context.Background(), &domain.TransitionOutcome{})
	h.OnActionReturn(context.Background(), &domain.ActionEvent{})

	assert.Equal(t, []string{"a", "b", "b-return"}, calls)
	assert.Nil(t, h.OnActionCall)
}

func TestMetrics_JunkRequestsKeepSeriesBounded(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	eng := runtime.NewEngine(runtime.WithLifecycleHooks(m.Hooks()))
	eng.Register("orders", domain.WorkflowDefinition{
		InitialState: "pending",
		States: map[string]domain.StateDefinition{
			"pending":   {Transitions: []string{"confirmed"}},
			"confirmed": {},
		},
	})
	ctx := context.Background()

	for i := 0; i < 500; i++ {
		eng.Transition(ctx, domain.TransitionRequest{
			EntityType: fmt.Sprintf("type-%d", i),
			EntityID:   "1",
			FromState:  fmt.Sprintf("from-%d", i),
			ToState:    fmt.Sprintf("to-%d", i),
		})
		eng.Transition(ctx, domain.TransitionRequest{
			EntityType: "orders",
			EntityID:   "1",
			FromState:  fmt.Sprintf("from-%d", i),
			ToState:    "confirmed",
		})
	}
	eng.Transition(ctx, domain.TransitionRequest{EntityType: "orders", EntityID: "1", FromState: "pending", ToState: "confirmed"})

	// unknown type, unknown edge on orders, the real edge
	n, err := testutil.GatherAndCount(reg, "statecraft_transitions_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = testutil.GatherAndCount(reg, "statecraft_transition_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
