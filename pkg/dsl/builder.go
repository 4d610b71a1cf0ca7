package dsl

import (
	"fmt"
	"strings"

	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/aretw0/statecraft/pkg/validate"
)

// Builder manages the workflow construction.
type Builder struct {
	initial string
	order   []string
	states  map[string]*StateBuilder
}

// New creates a builder whose workflow starts in initial.
// An empty initial falls back to domain.DefaultInitialState.
func New(initial string) *Builder {
	return &Builder{
		initial: initial,
		states:  make(map[string]*StateBuilder),
	}
}

// Add creates a new state in the workflow.
// If the state already exists, it returns the existing builder.
func (b *Builder) Add(name string) *StateBuilder {
	if sb, ok := b.states[name]; ok {
		return sb
	}
	sb := &StateBuilder{name: name}
	b.states[name] = sb
	b.order = append(b.order, name)
	return sb
}

// Build compiles the workflow. Definitions with validation errors are rejected;
// warnings are ignored.
func (b *Builder) Build() (domain.WorkflowDefinition, error) {
	def := domain.WorkflowDefinition{
		InitialState: b.initial,
		States:       make(map[string]domain.StateDefinition, len(b.states)),
	}
	for _, name := range b.order {
		sb := b.states[name]
		def.States[name] = sb.def
		if sb.final {
			def.FinalStates = append(def.FinalStates, name)
		}
	}
	def = def.Normalize()

	if res := validate.Workflow("workflow", def); res.HasErrors() {
		return domain.WorkflowDefinition{}, fmt.Errorf("failed to build workflow: %s", strings.Join(res.Errors, "; "))
	}
	return def, nil
}

// MustBuild is like Build but panics on error. Intended for tests and package-level vars.
func (b *Builder) MustBuild() domain.WorkflowDefinition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}

// StateBuilder configures one state. Every method returns the receiver for chaining.
type StateBuilder struct {
	name  string
	def   domain.StateDefinition
	final bool
}

// Go adds allowed target states.
func (s *StateBuilder) Go(targets ...string) *StateBuilder {
	s.def.Transitions = append(s.def.Transitions, targets...)
	return s
}

// When adds guard conditions that every transition out of this state must satisfy.
func (s *StateBuilder) When(conditions ...string) *StateBuilder {
	s.def.Conditions = append(s.def.Conditions, conditions...)
	return s
}

// Requires adds roles; a user needs any one of them to leave this state.
func (s *StateBuilder) Requires(roles ...string) *StateBuilder {
	s.def.Permissions = append(s.def.Permissions, roles...)
	return s
}

// Before adds actions run before the transition is recorded.
func (s *StateBuilder) Before(names ...string) *StateBuilder {
	return s.actions(domain.PhaseBefore, names)
}

// After adds actions run after the transition is recorded.
func (s *StateBuilder) After(names ...string) *StateBuilder {
	return s.actions(domain.PhaseAfter, names)
}

func (s *StateBuilder) actions(phase domain.ActionPhase, names []string) *StateBuilder {
	for _, n := range names {
		s.def.Actions = append(s.def.Actions, phase.Prefix()+n)
	}
	return s
}

// Meta sets a metadata entry.
func (s *StateBuilder) Meta(key string, value any) *StateBuilder {
	if s.def.Metadata == nil {
		s.def.Metadata = make(map[string]any)
	}
	s.def.Metadata[key] = value
	return s
}

// Describe sets the "description" metadata entry.
func (s *StateBuilder) Describe(text string) *StateBuilder {
	return s.Meta("description", text)
}

// Final marks the state as final.
func (s *StateBuilder) Final() *StateBuilder {
	s.final = true
	return s
}
