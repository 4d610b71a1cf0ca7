package domain

// StateInfo describes a state of a workflow for display purposes.
// The zero value is returned for unknown entity types.
type StateInfo struct {
	CurrentState        string         `json:"current_state"`
	ValidTransitions    []string       `json:"valid_transitions"`
	IsFinalState        bool           `json:"is_final_state"`
	StateMetadata       map[string]any `json:"state_metadata"`
	RequiredPermissions []string       `json:"required_permissions"`
	Actions             []string       `json:"actions"`
}

// IsZero reports whether the info is the empty descriptor.
func (s StateInfo) IsZero() bool {
	return s.CurrentState == "" && s.ValidTransitions == nil
}
