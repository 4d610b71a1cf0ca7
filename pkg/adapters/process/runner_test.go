package process

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/aretw0/statecraft/pkg/actions"
	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("process tests use sh")
	}
}

func actionRequest(name string) domain.ActionRequest {
	return domain.ActionRequest{
		Name:       name,
		Phase:      domain.PhaseAfter,
		EntityType: "orders",
		EntityID:   "o-1",
		FromState:  "pending",
		ToState:    "confirmed",
		Context:    map[string]any{"amount": 42},
	}
}

func TestRunner_Execute(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()

	runner := NewRunner(WithBaseDir(dir))
	runner.Register("capture", "sh", "-c", `cat > request.json; echo "$STATECRAFT_ACTION $STATECRAFT_ENTITY_ID $STATECRAFT_TO_STATE" > env.txt`)
	runner.Register("fail", "sh", "-c", "echo boom >&2; exit 3")

	t.Run("Passes Request via Stdin and Env", func(t *testing.T) {
		require.NoError(t, runner.Execute(context.Background(), actionRequest("capture")))

		body, err := os.ReadFile(filepath.Join(dir, "request.json"))
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"name": "capture", "phase": "after", "entity_type": "orders", "entity_id": "o-1",
			"from_state": "pending", "to_state": "confirmed", "context": {"amount": 42}
		}`, string(body))

		env, err := os.ReadFile(filepath.Join(dir, "env.txt"))
		require.NoError(t, err)
		assert.Equal(t, "capture o-1 confirmed\n", string(env))
	})

	t.Run("Reports Exit Status and Stderr", func(t *testing.T) {
		err := runner.Execute(context.Background(), actionRequest("fail"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exit status 3")
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("Fails For Unregistered Action", func(t *testing.T) {
		err := runner.Execute(context.Background(), actionRequest("hacker_script"))
		assert.ErrorIs(t, err, domain.ErrActionNotFound)
	})
}

func TestRunner_Cancellation(t *testing.T) {
	skipOnWindows(t)
	runner := NewRunner(WithGracePeriod(500 * time.Millisecond))
	runner.Register("sleepy", "sleep", "10")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := runner.Execute(ctx, actionRequest("sleepy"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunner_Fallback(t *testing.T) {
	registry := actions.NewRegistry()
	var called string
	registry.Register("send_email", func(ctx context.Context, req domain.ActionRequest) error {
		called = req.Name
		return nil
	})

	runner := NewRunner(WithFallback(registry))
	require.NoError(t, runner.Execute(context.Background(), actionRequest("send_email")))
	assert.Equal(t, "send_email", called)

	err := runner.Execute(context.Background(), actionRequest("unknown"))
	assert.True(t, errors.Is(err, domain.ErrActionNotFound))
}

func TestLoadActions(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "actions.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
actions:
  - name: notify
    command: ./notify.sh
    args: ["--quiet"]
    env:
      CHANNEL: ops
  - name: incomplete
`), 0o644))

	got, err := LoadActions(yamlPath)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"--quiet"}, got["notify"].Args)
	assert.Equal(t, "ops", got["notify"].Environment["CHANNEL"])

	runner := NewRunner(WithRegistry(got))
	assert.Equal(t, []string{"notify"}, runner.Names())

	jsonPath := filepath.Join(dir, "actions.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"actions":[{"name":"a","command":"true"}]}`), 0o644))
	got, err = LoadActions(jsonPath)
	require.NoError(t, err)
	assert.Contains(t, got, "a")

	got, err = LoadActions(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, os.WriteFile(yamlPath, []byte("actions: [oops"), 0o644))
	_, err = LoadActions(yamlPath)
	assert.Error(t, err)
}
