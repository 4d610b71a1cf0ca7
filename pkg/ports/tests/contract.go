// Package tests provides reusable contract suites for port implementations.
package tests

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/aretw0/statecraft/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunHistoryStoreContract verifies that a HistoryStore implementation adheres to
// the port contract. The store must be empty when passed in.
func RunHistoryStoreContract(t *testing.T, store ports.HistoryStore) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	event := func(id, entityType, entityID, from, to string, offset time.Duration) domain.TransitionEvent {
		return domain.TransitionEvent{
			ID:         id,
			EntityType: entityType,
			EntityID:   entityID,
			FromState:  from,
			ToState:    to,
			UserID:     "user-1",
			Context:    map[string]any{"amount": 1500, "note": "contract"},
			Timestamp:  base.Add(offset),
		}
	}

	t.Run("Empty", func(t *testing.T) {
		events, err := store.List(ctx, domain.HistoryFilter{})
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	seed := []domain.TransitionEvent{
		event("e1", "orders", "1", "pending", "confirmed", 0),
		event("e2", "orders", "2", "pending", "cancelled", time.Second),
		event("e3", "leads", "1", "new", "contacted", 2*time.Second),
		event("e4", "orders", "1", "confirmed", "shipped", 3*time.Second),
	}
	for _, e := range seed {
		require.NoError(t, store.Append(ctx, e), "Append %s", e.ID)
	}

	ids := func(events []domain.TransitionEvent) []string {
		out := make([]string, 0, len(events))
		for _, e := range events {
			out = append(out, e.ID)
		}
		return out
	}

	t.Run("List All Newest First", func(t *testing.T) {
		events, err := store.List(ctx, domain.HistoryFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"e4", "e3", "e2", "e1"}, ids(events))
	})

	t.Run("Filter By Type", func(t *testing.T) {
		events, err := store.List(ctx, domain.HistoryFilter{EntityType: "orders"})
		require.NoError(t, err)
		assert.Equal(t, []string{"e4", "e2", "e1"}, ids(events))
	})

	t.Run("Filter By Type And ID", func(t *testing.T) {
		events, err := store.List(ctx, domain.HistoryFilter{EntityType: "orders", EntityID: "1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"e4", "e1"}, ids(events))
	})

	t.Run("Filter By ID Only", func(t *testing.T) {
		events, err := store.List(ctx, domain.HistoryFilter{EntityID: "1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"e4", "e3", "e1"}, ids(events))
	})

	t.Run("Fields Round Trip", func(t *testing.T) {
		events, err := store.List(ctx, domain.HistoryFilter{EntityType: "leads"})
		require.NoError(t, err)
		require.Len(t, events, 1)

		got := events[0]
		assert.Equal(t, "e3", got.ID)
		assert.Equal(t, "new", got.FromState)
		assert.Equal(t, "contacted", got.ToState)
		assert.Equal(t, "user-1", got.UserID)
		assert.True(t, base.Add(2*time.Second).Equal(got.Timestamp), "timestamp %v", got.Timestamp)
		assert.Equal(t, "contract", got.Context["note"])
		// Serializing stores turn ints into float64; only presence is part of the contract.
		assert.NotNil(t, got.Context["amount"])
	})

	t.Run("Ties Keep Append Order", func(t *testing.T) {
		tied := base.Add(2 * time.Hour)
		for i := 1; i <= 6; i++ {
			// Three events share a timestamp, the rest are 100ns apart.
			offset := time.Duration(max(i-3, 0)) * 100 * time.Nanosecond
			e := event(fmt.Sprintf("t%d", i), "ties", "1", "open", fmt.Sprint(i), 0)
			e.Timestamp = tied.Add(offset)
			require.NoError(t, store.Append(ctx, e))
		}

		events, err := store.List(ctx, domain.HistoryFilter{EntityType: "ties"})
		require.NoError(t, err)
		got := make([]string, 0, len(events))
		for _, e := range events {
			got = append(got, e.ToState)
		}
		assert.Equal(t, []string{"6", "5", "4", "3", "2", "1"}, got)
	})

	t.Run("Concurrent Append", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				e := event(fmt.Sprintf("c%d", i), "tickets", fmt.Sprint(i), "open", "closed", time.Hour+time.Duration(i)*time.Millisecond)
				assert.NoError(t, store.Append(ctx, e))
			}(i)
		}
		wg.Wait()

		events, err := store.List(ctx, domain.HistoryFilter{EntityType: "tickets"})
		require.NoError(t, err)
		assert.Len(t, events, 20)
		assert.Equal(t, "c19", events[0].ID)
	})
}

// RunStateStoreContract verifies that a StateStore implementation adheres to the port contract.
func RunStateStoreContract(t *testing.T, store ports.StateStore) {
	t.Helper()
	ctx := context.Background()
	entityID := "contract-" + time.Now().Format("20060102150405")

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "orders", entityID)
		assert.True(t, errors.Is(err, domain.ErrEntityNotFound), "got %v", err)
	})

	t.Run("Set and Get", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "orders", entityID, "pending"))
		got, err := store.Get(ctx, "orders", entityID)
		require.NoError(t, err)
		assert.Equal(t, "pending", got)

		require.NoError(t, store.Set(ctx, "orders", entityID, "confirmed"))
		got, err = store.Get(ctx, "orders", entityID)
		require.NoError(t, err)
		assert.Equal(t, "confirmed", got)
	})

	t.Run("Types Are Isolated", func(t *testing.T) {
		_, err := store.Get(ctx, "leads", entityID)
		assert.ErrorIs(t, err, domain.ErrEntityNotFound)
	})
}
