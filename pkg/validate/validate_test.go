package validate_test

import (
	"path/filepath"
	"testing"

	"github.com/aretw0/statecraft/pkg/config"
	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/aretw0/statecraft/pkg/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAll_SampleIsClean(t *testing.T) {
	doc, err := config.Load(filepath.Join("..", "..", "examples", "ecommerce.yaml"))
	require.NoError(t, err)

	r := validate.All(doc.Workflows)
	assert.False(t, r.HasErrors(), "errors: %v", r.Errors)
	assert.Empty(t, r.Warnings)
}

func TestWorkflow_Errors(t *testing.T) {
	def := domain.WorkflowDefinition{
		InitialState: "draft",
		FinalStates:  []string{"done", "archived"},
		States: map[string]domain.StateDefinition{
			"pending": {
				Transitions: []string{"done", "ghost"},
				Conditions:  []string{"value_amount_gt_lots"},
			},
			"done": {},
		},
	}

	r := validate.Workflow("orders", def)
	require.True(t, r.HasErrors())
	assert.ElementsMatch(t, []string{
		`orders: initial_state "draft" does not exist in states`,
		`orders: final_states entry "archived" does not exist in states`,
		`orders.pending: transition target "ghost" does not exist in states`,
		`orders.pending: condition "value_amount_gt_lots": invalid number "lots"`,
	}, r.Errors)
}

func TestWorkflow_Warnings(t *testing.T) {
	def := domain.WorkflowDefinition{
		States: map[string]domain.StateDefinition{
			"pending": {
				Transitions: []string{"done", "done"},
				Conditions:  []string{"is_vip", "value_tier_ne_gold", "value_x"},
				Actions:     []string{"notify", "after_notify"},
			},
			"done":   {},
			"orphan": {Transitions: []string{"done"}},
		},
	}

	r := validate.Workflow("orders", def)
	assert.False(t, r.HasErrors(), "errors: %v", r.Errors)
	assert.ElementsMatch(t, []string{
		`orders.pending: transition target "done" is listed more than once`,
		`orders.pending: condition "is_vip" is not recognised and always passes`,
		`orders.pending: condition "value_tier_ne_gold" uses unknown operator "ne" and always passes`,
		`orders.pending: condition "value_x" is not recognised and always passes`,
		`orders.pending: action "notify" has no before_/after_ prefix and is never run`,
		`orders.orphan: state is unreachable from "pending"`,
	}, r.Warnings)
}

func TestWorkflow_Empty(t *testing.T) {
	r := validate.Workflow("empty", domain.WorkflowDefinition{})
	assert.Equal(t, []string{"empty: states must be non-empty"}, r.Errors)
}

func TestAll_Merges(t *testing.T) {
	r := validate.All(map[string]domain.WorkflowDefinition{
		"b": {},
		"a": {},
	})
	assert.Equal(t, []string{"a: states must be non-empty", "b: states must be non-empty"}, r.Errors)
}
