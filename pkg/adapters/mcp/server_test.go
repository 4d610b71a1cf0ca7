package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/statecraft"
	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	eng := statecraft.New()
	eng.Register("tickets", domain.WorkflowDefinition{
		InitialState: "open",
		FinalStates:  []string{"closed"},
		States: map[string]domain.StateDefinition{
			"open":   {Transitions: []string{"closed"}, Conditions: []string{"value_score_gt_5"}},
			"closed": {Metadata: map[string]any{"description": "Done"}},
		},
	})
	return NewServer(eng)
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func TestHandleTransition(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	args := map[string]any{
		"entity_type": "tickets",
		"entity_id":   "t1",
		"from_state":  "open",
		"to_state":    "closed",
		"context":     `{"score": 3}`,
	}
	resp, err := s.handleTransition(ctx, callRequest(args), args)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultBlocked, resp.Result)
	assert.Equal(t, "open", resp.CurrentState)
	assert.Equal(t, []string{"closed"}, resp.ValidTransitions)

	args["context"] = `{"score": 9}`
	resp, err = s.handleTransition(ctx, callRequest(args), args)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultSuccess, resp.Result)
	assert.Equal(t, "closed", resp.CurrentState)
	assert.Empty(t, resp.ValidTransitions)

	args["context"] = `not json`
	_, err = s.handleTransition(ctx, callRequest(args), args)
	assert.Error(t, err)
}

func TestHandleHistory(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	args := map[string]any{"entity_type": "tickets", "entity_id": "t1", "from_state": "open", "to_state": "closed", "context": `{"score": 9}`}
	_, err := s.handleTransition(ctx, callRequest(args), args)
	require.NoError(t, err)

	res, err := s.handleHistory(ctx, callRequest(map[string]any{"entity_id": "t1"}))
	require.NoError(t, err)

	var events []domain.TransitionEvent
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "closed", events[0].ToState)
	assert.EqualValues(t, 9, events[0].Context["score"])

	res, err = s.handleHistory(ctx, callRequest(map[string]any{"entity_id": "other"}))
	require.NoError(t, err)
	assert.Equal(t, "[]", textOf(t, res))
}

func TestHandleStateQueries(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleStateInfo(ctx, callRequest(map[string]any{"entity_type": "tickets", "state": "closed"}))
	require.NoError(t, err)
	var info domain.StateInfo
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &info))
	assert.True(t, info.IsFinalState)
	assert.Equal(t, "Done", info.StateMetadata["description"])

	res, err = s.handleValidTransitions(ctx, callRequest(map[string]any{"entity_type": "tickets", "state": "open"}))
	require.NoError(t, err)
	assert.Equal(t, `["closed"]`, textOf(t, res))

	res, err = s.handleStateInfo(ctx, callRequest(map[string]any{"entity_type": "missing", "state": "open"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestWorkflowsJSON(t *testing.T) {
	s := newTestServer(t)
	text, err := s.workflowsJSON()
	require.NoError(t, err)
	assert.Contains(t, text, `"tickets"`)
	assert.Contains(t, text, `"initial_state":"open"`)
}
