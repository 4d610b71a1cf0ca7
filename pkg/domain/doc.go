/*
Package domain contains the core domain models of the statecraft engine.

It defines the declarative workflow definitions, the transition request and
result vocabulary, and the immutable audit records produced by executed
transitions. This package is kept pure and free of I/O or persistence concerns.

# Key Entities

  - WorkflowDefinition: the per-entity-type set of states (initial, final, states).
  - StateDefinition: allowed next states, guard conditions, permissions and action tags.
  - TransitionRequest / TransitionResult: the input and outcome of Engine.Transition.
  - TransitionEvent: the append-only history record of one executed state change.
  - ActionRequest: a named side-effect the engine asks the host to perform.
*/
package domain
