package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/aretw0/statecraft/pkg/ports"
	"github.com/mohae/deepcopy"
)

// Mask replaces the values of masked context keys.
const Mask = "***"

type piiMiddleware struct {
	next     ports.HistoryStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks context values whose keys
// match any of the patterns, at any nesting depth, before the event is stored.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pii pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.HistoryStore) ports.HistoryStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Append(ctx context.Context, event domain.TransitionEvent) error {
	// The caller keeps its own context; only the stored copy is masked.
	if event.Context != nil {
		event.Context = deepcopy.Copy(event.Context).(map[string]any)
		maskMap(event.Context, m.patterns)
	}
	return m.next.Append(ctx, event)
}

func (m *piiMiddleware) List(ctx context.Context, filter domain.HistoryFilter) ([]domain.TransitionEvent, error) {
	return m.next.List(ctx, filter)
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Mask
				masked = true
				break
			}
		}
		if masked {
			continue
		}

		switch sub := v.(type) {
		case map[string]any:
			maskMap(sub, patterns)
		case []any:
			for _, item := range sub {
				if subMap, ok := item.(map[string]any); ok {
					maskMap(subMap, patterns)
				}
			}
		}
	}
}
