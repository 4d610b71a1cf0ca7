package condition

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/statecraft/pkg/domain"
)

// Kind identifies the family of a parsed condition.
type Kind int

const (
	KindUnknown Kind = iota
	KindField
	KindUserRole
	KindValue
)

func (k Kind) String() string {
	switch k {
	case KindField:
		return "field"
	case KindUserRole:
		return "user_role"
	case KindValue:
		return "value"
	default:
		return "unknown"
	}
}

// Operator of a value condition.
type Operator string

const (
	OpEqual       Operator = "eq"
	OpGreaterThan Operator = "gt"
	OpLessThan    Operator = "lt"
)

const (
	prefixField    = "field_"
	prefixUserRole = "user_role_"
	prefixValue    = "value_"
)

// Condition is a compiled guard condition.
type Condition struct {
	Kind Kind
	Raw  string

	Field   string   // KindField, KindValue
	Role    string   // KindUserRole
	Op      Operator // KindValue
	Literal string   // KindValue

	threshold    float64
	thresholdErr error
}

// EvalError reports a condition that could not be evaluated.
type EvalError struct {
	Condition string
	Err       error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("condition %q: %v", e.Condition, e.Err)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}

// Parse compiles a raw condition string. It never fails: unrecognised input
// becomes KindUnknown, which always passes.
func Parse(raw string) Condition {
	c := Condition{Raw: raw}

	switch {
	case strings.HasPrefix(raw, prefixField):
		c.Kind = KindField
		c.Field = raw[len(prefixField):]
	case strings.HasPrefix(raw, prefixUserRole):
		c.Kind = KindUserRole
		c.Role = raw[len(prefixUserRole):]
	case strings.HasPrefix(raw, prefixValue):
		parts := strings.Split(raw, "_")
		if len(parts) < 4 {
			return c
		}
		c.Kind = KindValue
		c.Field = parts[1]
		c.Op = Operator(parts[2])
		c.Literal = strings.Join(parts[3:], "_")
		if c.Op == OpGreaterThan || c.Op == OpLessThan {
			c.threshold, c.thresholdErr = parseFloat(c.Literal)
		}
	}
	return c
}

// ParseAll compiles a list of raw conditions, preserving order.
func ParseAll(raw []string) []Condition {
	out := make([]Condition, 0, len(raw))
	for _, r := range raw {
		out = append(out, Parse(r))
	}
	return out
}

// Evaluate checks the condition against data.
// An error is only possible for gt/lt comparisons with non-numeric operands.
func (c Condition) Evaluate(data map[string]any) (bool, error) {
	switch c.Kind {
	case KindField:
		v, ok := data[c.Field]
		return ok && v != nil, nil
	case KindUserRole:
		return HasRole(data, c.Role), nil
	case KindValue:
		return c.evaluateValue(data)
	default:
		return true, nil
	}
}

func (c Condition) evaluateValue(data map[string]any) (bool, error) {
	v, ok := data[c.Field]
	if !ok || v == nil {
		return false, nil
	}

	switch c.Op {
	case OpEqual:
		return Stringify(v) == c.Literal, nil
	case OpGreaterThan, OpLessThan:
		actual, err := ToFloat(v)
		if err != nil {
			return false, &EvalError{Condition: c.Raw, Err: err}
		}
		if c.thresholdErr != nil {
			return false, &EvalError{Condition: c.Raw, Err: c.thresholdErr}
		}
		if c.Op == OpGreaterThan {
			return actual > c.threshold, nil
		}
		return actual < c.threshold, nil
	default:
		// Unknown operators do not block.
		return true, nil
	}
}

// IsValid reports whether the condition can ever be evaluated without error.
// It is used by validators; evaluation itself does not depend on it.
func (c Condition) IsValid() error {
	if c.Kind == KindValue && c.thresholdErr != nil {
		return &EvalError{Condition: c.Raw, Err: c.thresholdErr}
	}
	return nil
}

// EvaluateAll returns true only if every condition passes. It stops at the first
// failing condition or error.
func EvaluateAll(conds []Condition, data map[string]any) (bool, error) {
	for _, c := range conds {
		ok, err := c.Evaluate(data)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Roles extracts the user_roles entry of data as a string slice.
// Non-list values yield no roles.
func Roles(data map[string]any) []string {
	switch v := data[domain.KeyUserRoles].(type) {
	case []string:
		return v
	case []any:
		roles := make([]string, 0, len(v))
		for _, r := range v {
			if s, ok := r.(string); ok {
				roles = append(roles, s)
			}
		}
		return roles
	default:
		return nil
	}
}

// HasRole reports whether role is listed in data["user_roles"].
func HasRole(data map[string]any, role string) bool {
	for _, r := range Roles(data) {
		if r == role {
			return true
		}
	}
	return false
}

// Stringify renders a context value for string comparison.
// Booleans render as True/False, so value_paid_eq_True matches a true flag.
func Stringify(v any) string {
	switch t := v.(type) {
	case bool:
		if t {
			return "True"
		}
		return "False"
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		return fmt.Sprint(v)
	}
}

// ToFloat converts a context value to float64 for numeric comparison.
func ToFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int8:
		return float64(t), nil
	case int16:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint:
		return float64(t), nil
	case uint8:
		return float64(t), nil
	case uint16:
		return float64(t), nil
	case uint32:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case json.Number:
		return parseFloat(t.String())
	case string:
		return parseFloat(t)
	default:
		return 0, fmt.Errorf("cannot convert %T to number", v)
	}
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return f, nil
}
