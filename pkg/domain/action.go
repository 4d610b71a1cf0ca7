package domain

import "strings"

// ActionPhase identifies when an action runs relative to the history append.
type ActionPhase string

const (
	PhaseBefore ActionPhase = "before"
	PhaseAfter  ActionPhase = "after"
)

// Prefix returns the tag prefix of the phase, e.g. "before_".
func (p ActionPhase) Prefix() string {
	return string(p) + "_"
}

// ActionName strips the phase prefix from tag. ok is false when tag belongs to another phase.
func (p ActionPhase) ActionName(tag string) (name string, ok bool) {
	if !strings.HasPrefix(tag, p.Prefix()) {
		return "", false
	}
	return tag[len(p.Prefix()):], true
}

// ActionRequest represents a side-effect that the engine requests the host to perform.
type ActionRequest struct {
	Name       string         `json:"name"`
	Phase      ActionPhase    `json:"phase"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	FromState  string         `json:"from_state"`
	ToState    string         `json:"to_state"`
	Context    map[string]any `json:"context,omitempty"`
}
