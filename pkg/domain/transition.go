package domain

import "fmt"

// KeyUserRoles is the context key holding the acting user's roles.
const KeyUserRoles = "user_roles"

// TransitionRequest asks the engine to move one entity from one state to another.
type TransitionRequest struct {
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	FromState  string         `json:"from_state"`
	ToState    string         `json:"to_state"`
	Context    map[string]any `json:"context,omitempty"`

	// UserID identifies the acting user. Empty means no user was supplied,
	// in which case permission checks are skipped.
	UserID string `json:"user_id,omitempty"`
}

// TransitionResult is the outcome of a transition request.
type TransitionResult int

const (
	ResultSuccess TransitionResult = iota
	ResultBlocked
	ResultError
	ResultPermissionDenied
)

var resultNames = map[TransitionResult]string{
	ResultSuccess:          "success",
	ResultBlocked:          "blocked",
	ResultError:            "error",
	ResultPermissionDenied: "permission_denied",
}

func (r TransitionResult) String() string {
	if s, ok := resultNames[r]; ok {
		return s
	}
	return fmt.Sprintf("TransitionResult(%d)", int(r))
}

// MarshalText encodes the result as its lowercase name.
func (r TransitionResult) MarshalText() ([]byte, error) {
	s, ok := resultNames[r]
	if !ok {
		return nil, fmt.Errorf("unknown transition result %d", int(r))
	}
	return []byte(s), nil
}

// UnmarshalText decodes a result from its lowercase name.
func (r *TransitionResult) UnmarshalText(text []byte) error {
	for k, v := range resultNames {
		if v == string(text) {
			*r = k
			return nil
		}
	}
	return fmt.Errorf("unknown transition result %q", string(text))
}

// HistoryFilter narrows a history query. Empty fields do not filter.
type HistoryFilter struct {
	EntityType string `json:"entity_type,omitempty"`
	EntityID   string `json:"entity_id,omitempty"`
}

// Matches reports whether the event satisfies every non-empty filter field.
func (f HistoryFilter) Matches(e TransitionEvent) bool {
	if f.EntityType != "" && e.EntityType != f.EntityType {
		return false
	}
	if f.EntityID != "" && e.EntityID != f.EntityID {
		return false
	}
	return true
}
