package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/aretw0/statecraft/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// HistoryStore implements ports.HistoryStore using sorted sets.
// Each event is written to a global, a per-type and a per-entity index in one pipeline,
// scored by an insertion sequence so ties on timestamp keep append order.
type HistoryStore struct {
	client *backend.Client
	prefix string
}

// NewHistoryStore creates a history store from an existing client.
func NewHistoryStore(client *backend.Client, opts ...Option) *HistoryStore {
	o := buildOptions(opts)
	return &HistoryStore{client: client, prefix: o.prefix}
}

func (h *HistoryStore) globalKey() string {
	return h.prefix + "history"
}

func (h *HistoryStore) seqKey() string {
	return h.prefix + "history:seq"
}

func (h *HistoryStore) typeKey(entityType string) string {
	return h.prefix + "history:type:" + keyPart(entityType)
}

func (h *HistoryStore) entityKey(entityType, entityID string) string {
	return h.prefix + "history:entity:" + keyPart(entityType) + ":" + keyPart(entityID)
}

// Append persists the event to every index.
func (h *HistoryStore) Append(ctx context.Context, event domain.TransitionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	seq, err := h.client.Incr(ctx, h.seqKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate history sequence: %w", err)
	}

	member := backend.Z{
		Score:  float64(seq),
		Member: data,
	}

	pipe := h.client.TxPipeline()
	pipe.ZAdd(ctx, h.globalKey(), member)
	pipe.ZAdd(ctx, h.typeKey(event.EntityType), member)
	pipe.ZAdd(ctx, h.entityKey(event.EntityType, event.EntityID), member)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append to redis: %w", err)
	}
	return nil
}

// List reads the narrowest index covering filter, newest first.
// Events sharing a timestamp are returned in reverse append order.
func (h *HistoryStore) List(ctx context.Context, filter domain.HistoryFilter) ([]domain.TransitionEvent, error) {
	key := h.globalKey()
	switch {
	case filter.EntityType != "" && filter.EntityID != "":
		key = h.entityKey(filter.EntityType, filter.EntityID)
	case filter.EntityType != "":
		key = h.typeKey(filter.EntityType)
	}

	raw, err := h.client.ZRevRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	events := make([]domain.TransitionEvent, 0, len(raw))
	for _, item := range raw {
		var e domain.TransitionEvent
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		// Filters on EntityID alone read the global index.
		if filter.Matches(e) {
			events = append(events, e)
		}
	}

	slices.SortStableFunc(events, func(a, b domain.TransitionEvent) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return events, nil
}
