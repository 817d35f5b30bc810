package automation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LogStore records automation audit rows.
type LogStore interface {
	Insert(ctx context.Context, entry *Log) error
	List(ctx context.Context, workspaceID string, limit int) ([]*Log, error)
}

// PostgresLogStore stores automation logs in the relational database.
type PostgresLogStore struct {
	db OutboxDB
}

// NewPostgresLogStore initializes a log store backed by pgxpool.
func NewPostgresLogStore(pool *pgxpool.Pool) *PostgresLogStore {
	if pool == nil {
		panic("automation: pgx pool required")
	}
	return &PostgresLogStore{db: pool}
}

// NewPostgresLogStoreWithDB allows injecting mocks for tests.
func NewPostgresLogStoreWithDB(db OutboxDB) *PostgresLogStore {
	return &PostgresLogStore{db: db}
}

// Insert writes one audit row. Assigns the ID and timestamp.
func (s *PostgresLogStore) Insert(ctx context.Context, entry *Log) error {
	entry.ID = uuid.NewString()
	var related any
	if entry.RelatedID != "" {
		related = entry.RelatedID
	}
	query := `
		INSERT INTO automation_logs (id, workspace_id, event, action, status, details, related_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	if err := s.db.QueryRow(ctx, query,
		entry.ID, entry.WorkspaceID, entry.Event, entry.Action, entry.Status, entry.Details, related,
	).Scan(&entry.CreatedAt); err != nil {
		return fmt.Errorf("automation: insert log: %w", err)
	}
	return nil
}

// List returns the workspace's most recent audit rows, newest first.
func (s *PostgresLogStore) List(ctx context.Context, workspaceID string, limit int) ([]*Log, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `
		SELECT id, workspace_id, event, action, status, details, COALESCE(related_id::text, ''), created_at
		FROM automation_logs
		WHERE workspace_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.db.Query(ctx, query, workspaceID, limit)
	if err != nil {
		return nil, fmt.Errorf("automation: list logs: %w", err)
	}
	defer rows.Close()

	logs := []*Log{}
	for rows.Next() {
		var entry Log
		if err := rows.Scan(
			&entry.ID, &entry.WorkspaceID, &entry.Event, &entry.Action,
			&entry.Status, &entry.Details, &entry.RelatedID, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("automation: scan log: %w", err)
		}
		logs = append(logs, &entry)
	}
	return logs, rows.Err()
}

// InMemoryLogStore is a slice-backed LogStore for tests.
type InMemoryLogStore struct {
	mu   sync.Mutex
	logs []*Log
}

// NewInMemoryLogStore creates an empty in-memory log store.
func NewInMemoryLogStore() *InMemoryLogStore {
	return &InMemoryLogStore{}
}

// Insert writes one audit row.
func (s *InMemoryLogStore) Insert(_ context.Context, entry *Log) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now().UTC()
	copied := *entry
	s.logs = append(s.logs, &copied)
	return nil
}

// List returns the workspace's audit rows, newest first.
func (s *InMemoryLogStore) List(_ context.Context, workspaceID string, limit int) ([]*Log, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*Log{}
	for i := len(s.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if s.logs[i].WorkspaceID == workspaceID {
			copied := *s.logs[i]
			out = append(out, &copied)
		}
	}
	return out, nil
}
