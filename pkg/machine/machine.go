// Package machine compiles a workflow definition into a queryable state machine.
package machine

import (
	"slices"

	"github.com/aretw0/statecraft/pkg/condition"
	"github.com/aretw0/statecraft/pkg/domain"
)

// Transition is one compiled edge. Conditions, actions, permissions and metadata
// are copied from the source state, so every edge leaving a state shares them.
type Transition struct {
	FromState   string
	ToState     string
	Conditions  []condition.Condition
	Actions     []string
	Permissions []string
	Metadata    map[string]any
}

// StateMachine is the authority on which transitions are legal for one entity type.
// It is immutable after construction and safe for concurrent use.
type StateMachine struct {
	name        string
	def         domain.WorkflowDefinition
	finalStates map[string]struct{}
	transitions map[string][]Transition
}

// New compiles def. Dangling transition targets are accepted; see package validate.
func New(name string, def domain.WorkflowDefinition) *StateMachine {
	def = def.Normalize()

	sm := &StateMachine{
		name:        name,
		def:         def,
		finalStates: make(map[string]struct{}, len(def.FinalStates)),
		transitions: make(map[string][]Transition, len(def.States)),
	}
	for _, s := range def.FinalStates {
		sm.finalStates[s] = struct{}{}
	}

	for stateName, st := range def.States {
		compiled := condition.ParseAll(st.Conditions)
		edges := make([]Transition, 0, len(st.Transitions))
		for _, target := range st.Transitions {
			edges = append(edges, Transition{
				FromState:   stateName,
				ToState:     target,
				Conditions:  slices.Clone(compiled),
				Actions:     slices.Clone(st.Actions),
				Permissions: slices.Clone(st.Permissions),
				Metadata:    st.Metadata,
			})
		}
		sm.transitions[stateName] = edges
	}

	return sm
}

// Name returns the entity type this machine was registered for.
func (sm *StateMachine) Name() string {
	return sm.name
}

// Definition returns the normalized workflow definition.
func (sm *StateMachine) Definition() domain.WorkflowDefinition {
	return sm.def
}

// InitialState returns the configured initial state.
func (sm *StateMachine) InitialState() string {
	return sm.def.InitialState
}

// State returns the definition of a named state.
func (sm *StateMachine) State(name string) (domain.StateDefinition, bool) {
	st, ok := sm.def.States[name]
	return st, ok
}

// IsFinal reports whether state is listed in final_states.
func (sm *StateMachine) IsFinal(state string) bool {
	_, ok := sm.finalStates[state]
	return ok
}

// ValidTransitions returns the configured next states of current, in order.
// Unknown states yield an empty slice.
func (sm *StateMachine) ValidTransitions(current string) []string {
	edges := sm.transitions[current]
	out := make([]string, 0, len(edges))
	for _, t := range edges {
		out = append(out, t.ToState)
	}
	return out
}

// Lookup returns the first compiled transition from -> to.
func (sm *StateMachine) Lookup(from, to string) (Transition, bool) {
	for _, t := range sm.transitions[from] {
		if t.ToState == to {
			return t, true
		}
	}
	return Transition{}, false
}

// CanTransition reports whether from -> to exists and every guard condition of
// the source state holds for data. Conditions are evaluated in order and stop
// at the first failure.
func (sm *StateMachine) CanTransition(from, to string, data map[string]any) (bool, error) {
	t, ok := sm.Lookup(from, to)
	if !ok {
		return false, nil
	}
	if data == nil {
		data = map[string]any{}
	}
	return condition.EvaluateAll(t.Conditions, data)
}

// StateInfo describes current for display purposes.
func (sm *StateMachine) StateInfo(current string) domain.StateInfo {
	st := sm.def.States[current]

	info := domain.StateInfo{
		CurrentState:        current,
		ValidTransitions:    sm.ValidTransitions(current),
		IsFinalState:        sm.IsFinal(current),
		StateMetadata:       map[string]any{},
		RequiredPermissions: []string{},
		Actions:             []string{},
	}
	for k, v := range st.Metadata {
		info.StateMetadata[k] = v
	}
	info.RequiredPermissions = append(info.RequiredPermissions, st.Permissions...)
	info.Actions = append(info.Actions, st.Actions...)
	return info
}
