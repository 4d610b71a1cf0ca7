package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/statecraft/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// StateStore implements ports.StateStore using plain string keys.
type StateStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// NewStateStore creates a state store from an existing client.
func NewStateStore(client *backend.Client, opts ...Option) *StateStore {
	o := buildOptions(opts)
	return &StateStore{
		client: client,
		prefix: o.prefix,
		ttl:    o.ttl, // 0 means no expiration
	}
}

func (s *StateStore) key(entityType, entityID string) string {
	return s.prefix + "state:" + keyPart(entityType) + ":" + keyPart(entityID)
}

// Get retrieves the recorded state of an entity.
func (s *StateStore) Get(ctx context.Context, entityType, entityID string) (string, error) {
	val, err := s.client.Get(ctx, s.key(entityType, entityID)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return "", domain.ErrEntityNotFound
		}
		return "", fmt.Errorf("failed to get from redis: %w", err)
	}
	return val, nil
}

// Set records the state of an entity, refreshing the TTL.
func (s *StateStore) Set(ctx context.Context, entityType, entityID, state string) error {
	if err := s.client.Set(ctx, s.key(entityType, entityID), state, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}
