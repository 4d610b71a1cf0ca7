/*
Package statecraft is a configuration-driven state machine and workflow engine.

Each entity type (e.g. "orders", "leads") is described declaratively: its
states, the transitions allowed from each state, guard conditions, required
permissions and side-effect action names. The Engine validates transition
requests against these definitions, runs before_/after_ actions through an
injected executor, records an append-only history and notifies listeners.

# Concept

The engine never owns your entities. The caller states where an entity is
(FromState) and where it should go (ToState); the engine answers with one of
four results: success, blocked, permission_denied or error. Persistence of
history, action execution and per-entity locking are ports (see package ports)
with adapters for memory, Redis and SQLite.

# Guard Conditions

Conditions belong to the source state and are evaluated against the request
context:

  - field_<name>: context[name] is present and not nil.
  - user_role_<role>: role is listed in context["user_roles"].
  - value_<field>_<op>_<literal>: op is eq (string equality), gt or lt (numeric).

Unrecognised conditions always pass.

# Usage

	eng := statecraft.New(statecraft.WithLogger(logger))
	if err := eng.LoadFromConfig("workflows.yaml"); err != nil {
		log.Fatal(err)
	}

	result := eng.Transition(ctx, domain.TransitionRequest{
		EntityType: "orders",
		EntityID:   "ORD-001",
		FromState:  "pending",
		ToState:    "confirmed",
		UserID:     "user123",
		Context:    map[string]any{"user_roles": []string{"sales_rep"}},
	})
	if result != domain.ResultSuccess {
		log.Printf("transition refused: %s", result)
	}
*/
package statecraft
