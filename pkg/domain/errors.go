package domain

import "errors"

// ErrWorkflowNotFound is returned when no state machine is registered for an entity type.
var ErrWorkflowNotFound = errors.New("workflow not found")

// ErrEntityNotFound is returned when a state store has no record for an entity.
var ErrEntityNotFound = errors.New("entity not found")

// ErrActionNotFound is returned by executors that do not know an action name.
var ErrActionNotFound = errors.New("action not found")
