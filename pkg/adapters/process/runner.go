package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/statecraft/internal/logging"
	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/aretw0/statecraft/pkg/ports"
)

// DefaultGracePeriod is how long a canceled process may take to exit after
// being interrupted before it is killed.
const DefaultGracePeriod = 5 * time.Second

// Runner is an ActionExecutor that runs local processes.
// Only allow-listed commands run; the action request is written to stdin as JSON.
type Runner struct {
	registry    map[string]RegisteredProcess
	fallback    ports.ActionExecutor
	baseDir     string
	gracePeriod time.Duration
	logger      *slog.Logger
}

// RegisteredProcess defines an allowed command execution.
type RegisteredProcess struct {
	Command string
	Args    []string
	Env     map[string]string
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithRegistry populates the allow-list from a loaded config.
func WithRegistry(actions map[string]ProcessConfig) RunnerOption {
	return func(r *Runner) {
		for name, a := range actions {
			r.registry[name] = RegisteredProcess{Command: a.Command, Args: a.Args, Env: a.Environment}
		}
	}
}

// WithFallback delegates actions missing from the allow-list to next.
func WithFallback(next ports.ActionExecutor) RunnerOption {
	return func(r *Runner) {
		r.fallback = next
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithGracePeriod overrides DefaultGracePeriod.
func WithGracePeriod(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.gracePeriod = d
	}
}

// WithLogger sets the logger used for process output.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a new Process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry:    make(map[string]RegisteredProcess),
		gracePeriod: DefaultGracePeriod,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(name string, command string, args ...string) {
	r.registry[name] = RegisteredProcess{
		Command: command,
		Args:    args,
	}
}

// Names returns the allow-listed action names, sorted.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.registry))
	for name := range r.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs the process registered under req.Name.
// Returns domain.ErrActionNotFound when the name is not allow-listed and no fallback is set.
func (r *Runner) Execute(ctx context.Context, req domain.ActionRequest) error {
	proc, ok := r.registry[req.Name]
	if !ok {
		if r.fallback != nil {
			return r.fallback.Execute(ctx, req)
		}
		return fmt.Errorf("%w: %s (not allow-listed)", domain.ErrActionNotFound, req.Name)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode action request: %w", err)
	}

	// Request data goes through stdin and env, never through argv.
	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = r.baseDir
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = r.gracePeriod

	env := cmd.Environ()
	for k, v := range proc.Env {
		env = append(env, k+"="+v)
	}
	env = append(env,
		"STATECRAFT_ACTION="+req.Name,
		"STATECRAFT_PHASE="+string(req.Phase),
		"STATECRAFT_ENTITY_TYPE="+req.EntityType,
		"STATECRAFT_ENTITY_ID="+req.EntityID,
		"STATECRAFT_FROM_STATE="+req.FromState,
		"STATECRAFT_TO_STATE="+req.ToState,
	)
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	log := r.logger.With("action", req.Name, "phase", req.Phase, "entity_id", req.EntityID)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		}
		return fmt.Errorf("action %s failed: %w. Stderr: %s", req.Name, err, strings.TrimSpace(stderr.String()))
	}

	log.Debug("Action process finished", "duration", time.Since(start), "stdout", strings.TrimSpace(stdout.String()))
	return nil
}
