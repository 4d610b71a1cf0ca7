package domain

import (
	"context"
	"time"
)

// TransitionEvent is the immutable audit record of one executed transition.
type TransitionEvent struct {
	ID         string         `json:"id"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	FromState  string         `json:"from_state"`
	ToState    string         `json:"to_state"`
	UserID     string         `json:"user_id,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// TransitionOutcome is reported to lifecycle hooks once a transition request finishes.
type TransitionOutcome struct {
	EntityType string
	EntityID   string
	FromState  string
	ToState    string
	Result     TransitionResult
	Duration   time.Duration
	// Registered is set when EntityType names a registered workflow.
	Registered bool
	// Configured is set when FromState lists ToState as a transition target.
	Configured bool
}

// ActionEvent represents one action dispatch.
type ActionEvent struct {
	EntityType string
	EntityID   string
	Phase      ActionPhase
	Action     string
	Duration   time.Duration // Zero on OnActionCall
	IsError    bool
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnTransition   func(context.Context, *TransitionOutcome)
	OnActionCall   func(context.Context, *ActionEvent)
	OnActionReturn func(context.Context, *ActionEvent)
}
