package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists events until the deliverer hands them to the queue.
type Store interface {
	Publish(ctx context.Context, workspaceID, eventType string, payload any) error
	FetchPending(ctx context.Context, limit int32) ([]Envelope, error)
	MarkDelivered(ctx context.Context, id string) (bool, error)
}

// OutboxDB is the subset of pgxpool.Pool the outbox uses.
type OutboxDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresOutbox stores events in the outbox table.
type PostgresOutbox struct {
	db OutboxDB
}

// NewPostgresOutbox initializes an outbox backed by pgxpool.
func NewPostgresOutbox(pool *pgxpool.Pool) *PostgresOutbox {
	if pool == nil {
		panic("automation: pgx pool required")
	}
	return &PostgresOutbox{db: pool}
}

// NewPostgresOutboxWithDB allows injecting mocks for tests.
func NewPostgresOutboxWithDB(db OutboxDB) *PostgresOutbox {
	return &PostgresOutbox{db: db}
}

const insertOutboxSQL = `
	INSERT INTO outbox (id, workspace_id, type, payload)
	VALUES ($1, $2, $3, $4)
`

// Publish inserts one event row.
func (s *PostgresOutbox) Publish(ctx context.Context, workspaceID, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("automation: marshal payload: %w", err)
	}
	if _, err := s.db.Exec(ctx, insertOutboxSQL, uuid.NewString(), workspaceID, eventType, data); err != nil {
		return fmt.Errorf("automation: insert outbox: %w", err)
	}
	return nil
}

// PublishTx inserts one event row inside the caller's transaction, so the
// event commits or rolls back together with the write that caused it.
func (s *PostgresOutbox) PublishTx(ctx context.Context, tx pgx.Tx, workspaceID, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("automation: marshal payload: %w", err)
	}
	if _, err := tx.Exec(ctx, insertOutboxSQL, uuid.NewString(), workspaceID, eventType, data); err != nil {
		return fmt.Errorf("automation: insert outbox: %w", err)
	}
	return nil
}

// FetchPending returns undelivered events, oldest first.
func (s *PostgresOutbox) FetchPending(ctx context.Context, limit int32) ([]Envelope, error) {
	query := `
		SELECT id, workspace_id, type, payload, created_at
		FROM outbox
		WHERE delivered_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("automation: fetch pending: %w", err)
	}
	defer rows.Close()

	var entries []Envelope
	for rows.Next() {
		var entry Envelope
		var payload []byte
		if err := rows.Scan(&entry.ID, &entry.WorkspaceID, &entry.Type, &payload, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("automation: scan outbox: %w", err)
		}
		entry.Payload = append([]byte(nil), payload...)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// MarkDelivered stamps an event delivered; returns false when the row was
// already claimed.
func (s *PostgresOutbox) MarkDelivered(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE outbox
		SET delivered_at = now()
		WHERE id = $1 AND delivered_at IS NULL
	`
	ct, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("automation: mark delivered: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// MemoryOutbox is an in-memory Store for tests and single-process setups.
type MemoryOutbox struct {
	mu      sync.Mutex
	entries []Envelope
	done    map[string]bool
}

// NewMemoryOutbox creates an empty in-memory outbox.
func NewMemoryOutbox() *MemoryOutbox {
	return &MemoryOutbox{done: make(map[string]bool)}
}

// Publish records one event.
func (s *MemoryOutbox) Publish(_ context.Context, workspaceID, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("automation: marshal payload: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, Envelope{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Type:        eventType,
		Payload:     data,
		CreatedAt:   time.Now().UTC(),
	})
	return nil
}

// FetchPending returns undelivered events, oldest first.
func (s *MemoryOutbox) FetchPending(_ context.Context, limit int32) ([]Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Envelope
	for _, entry := range s.entries {
		if s.done[entry.ID] {
			continue
		}
		out = append(out, entry)
		if int32(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

// MarkDelivered marks one event delivered.
func (s *MemoryOutbox) MarkDelivered(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done[id] {
		return false, nil
	}
	s.done[id] = true
	return true, nil
}

// All returns every recorded event, delivered or not. Test helper.
func (s *MemoryOutbox) All() []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Envelope(nil), s.entries...)
}
