package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/statecraft/pkg/domain"
)

// GraphOverlay contains dynamic entity data to visualize on the graph.
type GraphOverlay struct {
	VisitedStates []string
	CurrentState  string
}

// OverlayFromHistory builds an overlay from the events of one entity, newest first.
// Returns nil when there are no events.
func OverlayFromHistory(events []domain.TransitionEvent) *GraphOverlay {
	if len(events) == 0 {
		return nil
	}
	overlay := &GraphOverlay{CurrentState: events[0].ToState}
	for i := len(events) - 1; i >= 0; i-- {
		overlay.VisitedStates = append(overlay.VisitedStates, events[i].FromState, events[i].ToState)
	}
	return overlay
}

// GenerateMermaid produces a Mermaid flowchart for a workflow definition.
// It applies semantic styling:
// - Initial state: ((Circle))
// - Final state: ([Stadium])
// - Default: [Rectangle]
// Edges carry the guard conditions of their source state.
// Targets that are not defined states are drawn with a dashed arrow.
func GenerateMermaid(def domain.WorkflowDefinition, overlay *GraphOverlay) string {
	def = def.Normalize()

	final := make(map[string]bool, len(def.FinalStates))
	for _, s := range def.FinalStates {
		final[s] = true
	}

	names := make([]string, 0, len(def.States))
	for name := range def.States {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, name := range names {
		st := def.States[name]
		safeID := sanitizeMermaidID(name)

		opener, closer := "[", "]"
		switch {
		case name == def.InitialState:
			opener, closer = "((", "))"
		case final[name]:
			opener, closer = "([", "])"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, name, closer))

		label := strings.ReplaceAll(strings.Join(st.Conditions, " & "), "\"", "'")
		for _, target := range st.Transitions {
			_, defined := def.States[target]
			arrow := "-->"
			if !defined {
				arrow = "-.->"
			}
			if label != "" {
				arrow = fmt.Sprintf("-- \"%s\" -->", label)
				if !defined {
					arrow = fmt.Sprintf("-. \"%s\" .->", label)
				}
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeID, arrow, sanitizeMermaidID(target)))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedStates {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}

		if overlay.CurrentState != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentState)))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(id)
}
