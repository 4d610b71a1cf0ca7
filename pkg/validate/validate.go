// Package validate reports structural problems in workflow definitions.
//
// Registration never rejects a definition; these checks are advisory and are
// surfaced by the "statecraft validate" command.
package validate

import (
	"fmt"
	"sort"

	"github.com/aretw0/statecraft/pkg/condition"
	"github.com/aretw0/statecraft/pkg/domain"
)

// Result holds errors and warnings from workflow validation.
type Result struct {
	Errors   []string // Definitions that cannot behave as written: dangling targets, bad numbers
	Warnings []string // Suspicious but harmless: unreachable states, unknown conditions
}

// HasErrors returns true if there are blocking validation errors.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// Merge appends other's findings.
func (r *Result) Merge(other *Result) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

func (r *Result) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// All validates every workflow, in name order.
func All(workflows map[string]domain.WorkflowDefinition) *Result {
	names := make([]string, 0, len(workflows))
	for name := range workflows {
		names = append(names, name)
	}
	sort.Strings(names)

	r := &Result{}
	for _, name := range names {
		r.Merge(Workflow(name, workflows[name]))
	}
	return r
}

// Workflow validates one definition. Defaults (initial_state) are applied first.
func Workflow(name string, def domain.WorkflowDefinition) *Result {
	r := &Result{}
	def = def.Normalize()

	if len(def.States) == 0 {
		r.errorf("%s: states must be non-empty", name)
		return r
	}

	if _, ok := def.States[def.InitialState]; !ok {
		r.errorf("%s: initial_state %q does not exist in states", name, def.InitialState)
	}
	for _, final := range def.FinalStates {
		if _, ok := def.States[final]; !ok {
			r.errorf("%s: final_states entry %q does not exist in states", name, final)
		}
	}

	for _, stateName := range sortedStates(def) {
		validateState(name, def, def.States[stateName], r)
	}
	validateReachability(name, def, r)

	return r
}

func validateState(workflow string, def domain.WorkflowDefinition, st domain.StateDefinition, r *Result) {
	seen := make(map[string]bool, len(st.Transitions))
	for _, target := range st.Transitions {
		if _, ok := def.States[target]; !ok {
			r.errorf("%s.%s: transition target %q does not exist in states", workflow, st.Name, target)
		}
		if seen[target] {
			r.warnf("%s.%s: transition target %q is listed more than once", workflow, st.Name, target)
		}
		seen[target] = true
	}

	for _, c := range condition.ParseAll(st.Conditions) {
		switch c.Kind {
		case condition.KindUnknown:
			r.warnf("%s.%s: condition %q is not recognised and always passes", workflow, st.Name, c.Raw)
		case condition.KindValue:
			if err := c.IsValid(); err != nil {
				r.errorf("%s.%s: %v", workflow, st.Name, err)
			}
			switch c.Op {
			case condition.OpEqual, condition.OpGreaterThan, condition.OpLessThan:
			default:
				r.warnf("%s.%s: condition %q uses unknown operator %q and always passes", workflow, st.Name, c.Raw, c.Op)
			}
		}
	}

	for _, tag := range st.Actions {
		_, before := domain.PhaseBefore.ActionName(tag)
		_, after := domain.PhaseAfter.ActionName(tag)
		if !before && !after {
			r.warnf("%s.%s: action %q has no before_/after_ prefix and is never run", workflow, st.Name, tag)
		}
	}
}

// validateReachability walks the graph breadth-first from the initial state.
func validateReachability(workflow string, def domain.WorkflowDefinition, r *Result) {
	if _, ok := def.States[def.InitialState]; !ok {
		return
	}

	visited := map[string]bool{def.InitialState: true}
	queue := []string{def.InitialState}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, target := range def.States[current].Transitions {
			if _, ok := def.States[target]; !ok || visited[target] {
				continue
			}
			visited[target] = true
			queue = append(queue, target)
		}
	}

	for _, name := range sortedStates(def) {
		if !visited[name] {
			r.warnf("%s.%s: state is unreachable from %q", workflow, name, def.InitialState)
		}
	}
}

func sortedStates(def domain.WorkflowDefinition) []string {
	names := make([]string, 0, len(def.States))
	for name := range def.States {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
