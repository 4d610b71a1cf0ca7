package machine_test

import (
	"testing"

	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/aretw0/statecraft/pkg/machine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ordersDefinition() domain.WorkflowDefinition {
	return domain.WorkflowDefinition{
		InitialState: "pending",
		FinalStates:  []string{"delivered", "cancelled"},
		States: map[string]domain.StateDefinition{
			"pending": {
				Transitions: []string{"confirmed", "cancelled"},
				Conditions:  []string{"field_payment_authorized"},
				Permissions: []string{"sales_rep"},
				Actions:     []string{"before_validate_order", "after_send_confirmation"},
				Metadata:    map[string]any{"description": "Order awaiting confirmation"},
			},
			"confirmed": {
				Transitions: []string{"shipped", "cancelled"},
				Conditions:  []string{"value_amount_gt_1000", "user_role_admin"},
			},
			"shipped":   {Transitions: []string{"delivered"}},
			"delivered": {},
			"cancelled": {},
		},
	}
}

func TestValidTransitions(t *testing.T) {
	sm := machine.New("orders", ordersDefinition())

	assert.Equal(t, []string{"confirmed", "cancelled"}, sm.ValidTransitions("pending"))
	assert.Empty(t, sm.ValidTransitions("delivered"))

	unknown := sm.ValidTransitions("nope")
	assert.NotNil(t, unknown)
	assert.Empty(t, unknown)
}

func TestCanTransition_MissingEdge(t *testing.T) {
	sm := machine.New("orders", ordersDefinition())
	data := map[string]any{"payment_authorized": true}

	for _, tc := range []struct{ from, to string }{
		{"pending", "shipped"},
		{"delivered", "pending"},
		{"nope", "pending"},
		{"pending", "nope"},
	} {
		ok, err := sm.CanTransition(tc.from, tc.to, data)
		require.NoError(t, err)
		assert.False(t, ok, "%s -> %s", tc.from, tc.to)
	}
}

func TestCanTransition_ConditionsBelongToSourceState(t *testing.T) {
	sm := machine.New("orders", ordersDefinition())

	// field_payment_authorized guards both edges leaving "pending".
	for _, to := range []string{"confirmed", "cancelled"} {
		ok, err := sm.CanTransition("pending", to, map[string]any{})
		require.NoError(t, err)
		assert.False(t, ok, "pending -> %s without payment", to)

		ok, err = sm.CanTransition("pending", to, map[string]any{"payment_authorized": true})
		require.NoError(t, err)
		assert.True(t, ok, "pending -> %s with payment", to)
	}

	ok, err := sm.CanTransition("shipped", "delivered", nil)
	require.NoError(t, err)
	assert.True(t, ok, "no conditions is vacuously true")
}

func TestCanTransition_AllConditionsMustHold(t *testing.T) {
	sm := machine.New("orders", ordersDefinition())

	tests := []struct {
		name string
		data map[string]any
		want bool
	}{
		{"both pass", map[string]any{"amount": 1500, "user_roles": []string{"admin"}}, true},
		{"amount too low", map[string]any{"amount": 500, "user_roles": []string{"admin"}}, false},
		{"role missing", map[string]any{"amount": 1500, "user_roles": []string{"sales_rep"}}, false},
		{"nothing", map[string]any{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := sm.CanTransition("confirmed", "shipped", tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}

	_, err := sm.CanTransition("confirmed", "shipped", map[string]any{"amount": "many"})
	assert.Error(t, err)
}

func TestLookup_CopiesSourceStateConfig(t *testing.T) {
	sm := machine.New("orders", ordersDefinition())

	tr, ok := sm.Lookup("pending", "cancelled")
	require.True(t, ok)
	assert.Equal(t, "pending", tr.FromState)
	assert.Equal(t, []string{"sales_rep"}, tr.Permissions)
	assert.Equal(t, []string{"before_validate_order", "after_send_confirmation"}, tr.Actions)
	require.Len(t, tr.Conditions, 1)
	assert.Equal(t, "field_payment_authorized", tr.Conditions[0].Raw)

	_, ok = sm.Lookup("pending", "shipped")
	assert.False(t, ok)
}

func TestStateInfo(t *testing.T) {
	sm := machine.New("orders", ordersDefinition())

	info := sm.StateInfo("pending")
	assert.Equal(t, "pending", info.CurrentState)
	assert.Equal(t, []string{"confirmed", "cancelled"}, info.ValidTransitions)
	assert.False(t, info.IsFinalState)
	assert.Equal(t, "Order awaiting confirmation", info.StateMetadata["description"])
	assert.Equal(t, []string{"sales_rep"}, info.RequiredPermissions)

	final := sm.StateInfo("delivered")
	assert.True(t, final.IsFinalState)
	assert.Empty(t, final.ValidTransitions)

	unknown := sm.StateInfo("nope")
	assert.Equal(t, "nope", unknown.CurrentState)
	assert.Empty(t, unknown.ValidTransitions)
	assert.NotNil(t, unknown.StateMetadata)
}

func TestNew_DefaultsAndDanglingTargets(t *testing.T) {
	sm := machine.New("leads", domain.WorkflowDefinition{
		States: map[string]domain.StateDefinition{
			"new": {Transitions: []string{"ghost"}},
		},
	})

	assert.Equal(t, domain.DefaultInitialState, sm.InitialState())
	ok, err := sm.CanTransition("new", "ghost", nil)
	require.NoError(t, err)
	assert.True(t, ok, "dangling targets are not rejected at compile time")
}
