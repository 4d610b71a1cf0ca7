package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeWorkflow(t *testing.T) {
	md := DescribeWorkflow("orders", domain.WorkflowDefinition{
		FinalStates: []string{"done"},
		States: map[string]domain.StateDefinition{
			"pending": {Transitions: []string{"done"}, Permissions: []string{"admin"}},
			"done":    {},
		},
	})

	assert.Contains(t, md, "# orders")
	assert.Contains(t, md, "**Initial state:** `pending`")
	assert.Contains(t, md, "| `pending` | `done` | _none_ | `admin` |")
	assert.Less(t, strings.Index(md, "`done` | _none_"), strings.Index(md, "| `pending`"), "states are sorted")
}

func TestDescribeState(t *testing.T) {
	md := DescribeState("orders", domain.StateInfo{
		CurrentState:     "delivered",
		ValidTransitions: []string{"refunded"},
		IsFinalState:     true,
		StateMetadata:    map[string]any{"description": "Order delivered", "sla_hours": 48},
	})

	assert.Contains(t, md, "# orders / delivered")
	assert.Contains(t, md, "_Final state._")
	assert.Contains(t, md, "> Order delivered")
	assert.Contains(t, md, "**Next states:** `refunded`")
	assert.Contains(t, md, "- `sla_hours`: 48")
}

func TestRenderer(t *testing.T) {
	out, err := NewRenderer()("# Title\n\nbody")
	require.NoError(t, err)
	assert.Contains(t, out, "Title")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Contains(t, buf.String(), "___")
}
