package domain

// DefaultInitialState is used when a workflow configuration omits initial_state.
const DefaultInitialState = "pending"

// StateDefinition describes one named state of a workflow.
//
// Conditions, Permissions and Actions belong to the source state: they apply to
// every outgoing transition of the state, not to a single edge.
type StateDefinition struct {
	Name string `json:"name" yaml:"-" mapstructure:"-"`

	// Transitions lists the states reachable directly from this one, in order.
	// An empty list marks a potential terminal state.
	Transitions []string `json:"transitions" yaml:"transitions" mapstructure:"transitions"`

	// Conditions are guard expressions that must all hold for any outgoing transition.
	Conditions []string `json:"conditions,omitempty" yaml:"conditions,omitempty" mapstructure:"conditions"`

	// Permissions are role names; the acting user must hold at least one of them.
	Permissions []string `json:"permissions,omitempty" yaml:"permissions,omitempty" mapstructure:"permissions"`

	// Actions are tags of the form before_<name> or after_<name>.
	Actions []string `json:"actions,omitempty" yaml:"actions,omitempty" mapstructure:"actions"`

	// Metadata is free-form and never interpreted by the engine.
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty" mapstructure:"metadata"`
}

// WorkflowDefinition is the declarative definition of one entity type.
type WorkflowDefinition struct {
	// InitialState is informational: entity creation happens outside the engine.
	InitialState string `json:"initial_state" yaml:"initial_state" mapstructure:"initial_state"`

	// FinalStates only affect reporting (StateInfo.IsFinalState).
	FinalStates []string `json:"final_states" yaml:"final_states" mapstructure:"final_states"`

	States map[string]StateDefinition `json:"states" yaml:"states" mapstructure:"states"`
}

// Normalize fills defaults and copies state names into their definitions.
// It returns a new value; the receiver is left untouched.
func (w WorkflowDefinition) Normalize() WorkflowDefinition {
	out := WorkflowDefinition{
		InitialState: w.InitialState,
		FinalStates:  append([]string{}, w.FinalStates...),
		States:       make(map[string]StateDefinition, len(w.States)),
	}
	if out.InitialState == "" {
		out.InitialState = DefaultInitialState
	}
	for name, st := range w.States {
		st.Name = name
		st.Transitions = append([]string{}, st.Transitions...)
		st.Conditions = append([]string{}, st.Conditions...)
		st.Permissions = append([]string{}, st.Permissions...)
		st.Actions = append([]string{}, st.Actions...)
		meta := make(map[string]any, len(st.Metadata))
		for k, v := range st.Metadata {
			meta[k] = v
		}
		st.Metadata = meta
		out.States[name] = st
	}
	return out
}
