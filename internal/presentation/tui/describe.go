package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/statecraft/pkg/domain"
)

// DescribeWorkflow renders a workflow definition as markdown.
func DescribeWorkflow(name string, def domain.WorkflowDefinition) string {
	def = def.Normalize()

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", name)
	fmt.Fprintf(&sb, "- **Initial state:** `%s`\n", def.InitialState)
	fmt.Fprintf(&sb, "- **Final states:** %s\n\n", codeList(def.FinalStates))

	sb.WriteString("| State | Transitions | Conditions | Permissions |\n")
	sb.WriteString("|---|---|---|---|\n")

	names := make([]string, 0, len(def.States))
	for n := range def.States {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		st := def.States[n]
		fmt.Fprintf(&sb, "| `%s` | %s | %s | %s |\n",
			n, codeList(st.Transitions), codeList(st.Conditions), codeList(st.Permissions))
	}
	return sb.String()
}

// DescribeState renders one state as markdown.
func DescribeState(entityType string, info domain.StateInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s / %s\n\n", entityType, info.CurrentState)
	if info.IsFinalState {
		sb.WriteString("_Final state._\n\n")
	}
	if desc, ok := info.StateMetadata["description"]; ok {
		fmt.Fprintf(&sb, "> %v\n\n", desc)
	}

	fmt.Fprintf(&sb, "- **Next states:** %s\n", codeList(info.ValidTransitions))
	fmt.Fprintf(&sb, "- **Required permissions:** %s\n", codeList(info.RequiredPermissions))
	fmt.Fprintf(&sb, "- **Actions:** %s\n", codeList(info.Actions))

	keys := make([]string, 0, len(info.StateMetadata))
	for k := range info.StateMetadata {
		if k != "description" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if len(keys) > 0 {
		sb.WriteString("\n## Metadata\n\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "- `%s`: %v\n", k, info.StateMetadata[k])
		}
	}
	return sb.String()
}

func codeList(items []string) string {
	if len(items) == 0 {
		return "_none_"
	}
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "`" + s + "`"
	}
	return strings.Join(quoted, ", ")
}
