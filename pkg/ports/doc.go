/*
Package ports defines the driven ports (interfaces) for the statecraft engine.

These interfaces decouple the transition pipeline from external implementations,
allowing the engine to work with various history backends, action runners and
lock providers.

# Key Interfaces

  - ActionExecutor: Runs the side-effect named by a before_/after_ action tag.
  - Listener: Observes every successful transition.
  - HistoryStore: Appends and queries TransitionEvents (newest first).
  - StateStore: Tracks the current state of each entity for optimistic checks.
  - DistributedLocker: Provides distributed locking for concurrent access to one entity.
  - WorkflowService: The engine surface consumed by driving adapters (HTTP, MCP).
*/
package ports
