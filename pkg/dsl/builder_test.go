package dsl

import (
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SimpleFlow(t *testing.T) {
	b := New("pending")

	b.Add("pending").
		Go("confirmed", "cancelled").
		When("field_payment_authorized").
		Requires("sales_rep").
		Before("validate_order").
		After("send_confirmation").
		Describe("Order awaiting confirmation")

	b.Add("confirmed").Go("delivered")
	b.Add("delivered").Final()
	b.Add("cancelled").Final()

	def, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, "pending", def.InitialState)
	assert.Equal(t, []string{"delivered", "cancelled"}, def.FinalStates)

	pending := def.States["pending"]
	assert.Equal(t, "pending", pending.Name)
	assert.Equal(t, []string{"confirmed", "cancelled"}, pending.Transitions)
	assert.Equal(t, []string{"field_payment_authorized"}, pending.Conditions)
	assert.Equal(t, []string{"sales_rep"}, pending.Permissions)
	assert.Equal(t, []string{"before_validate_order", "after_send_confirmation"}, pending.Actions)
	assert.Equal(t, "Order awaiting confirmation", pending.Metadata["description"])
}

func TestBuilder_AddReturnsExisting(t *testing.T) {
	b := New("")
	b.Add("pending").Go("done")
	b.Add("pending").Go("failed")
	b.Add("done")
	b.Add("failed")

	def := b.MustBuild()
	assert.Equal(t, domain.DefaultInitialState, def.InitialState)
	assert.Equal(t, []string{"done", "failed"}, def.States["pending"].Transitions)
	assert.Len(t, def.States, 3)
}

func TestBuilder_RejectsInvalid(t *testing.T) {
	b := New("start")
	b.Add("start").Go("ghost")

	_, err := b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"ghost"`)
	assert.True(t, strings.HasPrefix(err.Error(), "failed to build workflow: "))
	assert.Nil(t, errors.Unwrap(err))

	assert.Panics(t, func() { b.MustBuild() })
}
