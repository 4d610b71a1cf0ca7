package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/aretw0/statecraft/pkg/ports"
)

// allTypes is the subscription key for clients that watch every entity type.
const allTypes = ""

// StreamManager handles active SSE connections.
type StreamManager struct {
	logger      *slog.Logger
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // EntityType -> Set of Channels
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		logger:      logger,
		subscribers: make(map[string]map[chan<- string]struct{}),
	}
}

// Subscribe registers a channel for events of entityType, or of every type when empty.
// The returned func unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(entityType string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 16)
	if _, ok := sm.subscribers[entityType]; !ok {
		sm.subscribers[entityType] = make(map[chan<- string]struct{})
	}
	sm.subscribers[entityType][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[entityType]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(sm.subscribers, entityType)
				}
			}
			close(ch)
		})
	}
}

// Subscribers returns the number of open subscriptions.
func (sm *StreamManager) Subscribers() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	n := 0
	for _, subs := range sm.subscribers {
		n += len(subs)
	}
	return n
}

// Broadcast delivers msg to subscribers of entityType and to global subscribers.
// Slow clients drop messages instead of blocking the caller.
func (sm *StreamManager) Broadcast(entityType string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for _, key := range []string{entityType, allTypes} {
		for ch := range sm.subscribers[key] {
			select {
			case ch <- msg:
			default:
				sm.logger.Warn("SSE: client buffer full, dropping message", "entity_type", entityType)
			}
		}
		if entityType == allTypes {
			break
		}
	}
}

// Listener adapts the manager to an engine listener.
func (sm *StreamManager) Listener() ports.Listener {
	return func(ctx context.Context, event domain.TransitionEvent) error {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("encode event: %w", err)
		}
		sm.Broadcast(event.EntityType, string(payload))
		return nil
	}
}

// SubscribeEvents handles GET /events (SSE).
// ?entity_type= restricts the stream to one workflow.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	entityType := r.URL.Query().Get("entity_type")
	ch, cancel := s.Streams.Subscribe(entityType)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: client subscribed", "entity_type", entityType)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: client disconnected", "entity_type", entityType)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: transition\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
