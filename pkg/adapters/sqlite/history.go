// Package sqlite implements ports.HistoryStore on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/statecraft/internal/logging"
	"github.com/aretw0/statecraft/pkg/domain"
	_ "github.com/mattn/go-sqlite3"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS transition_history (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT    NOT NULL UNIQUE,
	entity_type TEXT    NOT NULL,
	entity_id   TEXT    NOT NULL,
	from_state  TEXT    NOT NULL,
	to_state    TEXT    NOT NULL,
	user_id     TEXT    NOT NULL DEFAULT '',
	context     TEXT,
	timestamp   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_entity ON transition_history (entity_type, entity_id, timestamp);
`

// HistoryStore persists transition events in the transition_history table.
type HistoryStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures a HistoryStore.
type Option func(*HistoryStore)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *HistoryStore) {
		h.logger = logger
	}
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string, opts ...Option) (*HistoryStore, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	if path == MemoryPath {
		dsn = "file::memory:?_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; an in-memory database also lives on one connection.
	db.SetMaxOpenConns(1)

	h, err := New(db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	h.logger.Info("History database ready", "path", path)
	return h, nil
}

// New wraps an existing connection and applies the schema.
func New(db *sql.DB, opts ...Option) (*HistoryStore, error) {
	h := &HistoryStore{
		db:     db,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to migrate history schema: %w", err)
	}
	return h, nil
}

// Append inserts the event.
func (h *HistoryStore) Append(ctx context.Context, event domain.TransitionEvent) error {
	var payload sql.NullString
	if event.Context != nil {
		data, err := json.Marshal(event.Context)
		if err != nil {
			return fmt.Errorf("failed to marshal event context: %w", err)
		}
		payload = sql.NullString{String: string(data), Valid: true}
	}

	_, err := h.db.ExecContext(ctx, `
		INSERT INTO transition_history (
			id, entity_type, entity_id, from_state, to_state, user_id, context, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.EntityType,
		event.EntityID,
		event.FromState,
		event.ToState,
		event.UserID,
		payload,
		event.Timestamp.UnixNano(),
	)
	if err != nil {
		h.logger.Error("Failed to append history event", "id", event.ID, "err", err)
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// List returns matching events, newest first.
func (h *HistoryStore) List(ctx context.Context, filter domain.HistoryFilter) ([]domain.TransitionEvent, error) {
	var (
		where []string
		args  []any
	)
	if filter.EntityType != "" {
		where = append(where, "entity_type = ?")
		args = append(args, filter.EntityType)
	}
	if filter.EntityID != "" {
		where = append(where, "entity_id = ?")
		args = append(args, filter.EntityID)
	}

	query := `
		SELECT id, entity_type, entity_id, from_state, to_state, user_id, context, timestamp
		FROM transition_history`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp DESC, seq DESC"

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	events := []domain.TransitionEvent{}
	for rows.Next() {
		var (
			e       domain.TransitionEvent
			payload sql.NullString
			nanos   int64
		)
		if err := rows.Scan(&e.ID, &e.EntityType, &e.EntityID, &e.FromState, &e.ToState, &e.UserID, &payload, &nanos); err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		if payload.Valid {
			if err := json.Unmarshal([]byte(payload.String), &e.Context); err != nil {
				return nil, fmt.Errorf("failed to unmarshal event context: %w", err)
			}
		}
		e.Timestamp = time.Unix(0, nanos).UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}

// Close closes the underlying database.
func (h *HistoryStore) Close() error {
	return h.db.Close()
}
