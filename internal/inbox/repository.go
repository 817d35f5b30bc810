package inbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines the interface for conversation storage.
type Repository interface {
	FindOrCreate(ctx context.Context, workspaceID, contactID string) (*Conversation, error)
	Get(ctx context.Context, workspaceID, id string) (*Conversation, error)
	List(ctx context.Context, workspaceID string, limit, offset int) ([]*Conversation, error)
	Append(ctx context.Context, conversationID string, req *AppendRequest) (*Message, error)
	Messages(ctx context.Context, conversationID string, limit int) ([]*Message, error)
	MarkRead(ctx context.Context, workspaceID, conversationID string) error
	SetAutomationPaused(ctx context.Context, conversationID string, paused bool) error
}

type pgDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores conversations in the relational database.
type PostgresRepository struct {
	db pgDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("inbox: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting mocks for tests.
func NewPostgresRepositoryWithDB(db pgDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindOrCreate returns the conversation for (workspace, contact), creating it
// on first use. The unique constraint makes concurrent creates converge.
func (r *PostgresRepository) FindOrCreate(ctx context.Context, workspaceID, contactID string) (*Conversation, error) {
	query := `
		INSERT INTO conversations (id, workspace_id, contact_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (workspace_id, contact_id) DO UPDATE SET contact_id = EXCLUDED.contact_id
		RETURNING id, workspace_id, contact_id, unread_count, automation_paused, last_message_at, created_at
	`
	var conv Conversation
	if err := r.db.QueryRow(ctx, query, uuid.New(), workspaceID, contactID).Scan(
		&conv.ID,
		&conv.WorkspaceID,
		&conv.ContactID,
		&conv.UnreadCount,
		&conv.AutomationPaused,
		&conv.LastMessageAt,
		&conv.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("inbox: find-or-create conversation: %w", err)
	}
	return &conv, nil
}

// Get fetches a conversation scoped to the workspace.
func (r *PostgresRepository) Get(ctx context.Context, workspaceID, id string) (*Conversation, error) {
	query := `
		SELECT id, workspace_id, contact_id, unread_count, automation_paused, last_message_at, created_at
		FROM conversations
		WHERE id = $1 AND workspace_id = $2
	`
	var conv Conversation
	if err := r.db.QueryRow(ctx, query, id, workspaceID).Scan(
		&conv.ID,
		&conv.WorkspaceID,
		&conv.ContactID,
		&conv.UnreadCount,
		&conv.AutomationPaused,
		&conv.LastMessageAt,
		&conv.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("inbox: select conversation: %w", err)
	}
	return &conv, nil
}

// List returns conversations for a workspace, most recently active first.
func (r *PostgresRepository) List(ctx context.Context, workspaceID string, limit, offset int) ([]*Conversation, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := `
		SELECT id, workspace_id, contact_id, unread_count, automation_paused, last_message_at, created_at
		FROM conversations
		WHERE workspace_id = $1
		ORDER BY last_message_at DESC NULLS LAST, created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, workspaceID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("inbox: list conversations: %w", err)
	}
	defer rows.Close()

	var out []*Conversation
	for rows.Next() {
		var conv Conversation
		if err := rows.Scan(
			&conv.ID,
			&conv.WorkspaceID,
			&conv.ContactID,
			&conv.UnreadCount,
			&conv.AutomationPaused,
			&conv.LastMessageAt,
			&conv.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("inbox: scan conversation: %w", err)
		}
		out = append(out, &conv)
	}
	return out, rows.Err()
}

// Append adds a message. Non-staff messages bump the unread counter; the
// counter only returns to zero through MarkRead.
func (r *PostgresRepository) Append(ctx context.Context, conversationID string, req *AppendRequest) (*Message, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	var authorID any
	if req.AuthorID != "" {
		authorID = req.AuthorID
	}
	insert := `
		INSERT INTO messages (id, conversation_id, author_type, author_id, body)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.db.QueryRow(ctx, insert, id, conversationID, req.AuthorType, authorID, req.Body).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("inbox: insert message: %w", err)
	}

	bump := 0
	if req.AuthorType != AuthorStaff {
		bump = 1
	}
	update := `
		UPDATE conversations
		SET unread_count = unread_count + $1, last_message_at = $2
		WHERE id = $3
	`
	if _, err := r.db.Exec(ctx, update, bump, createdAt, conversationID); err != nil {
		return nil, fmt.Errorf("inbox: update conversation activity: %w", err)
	}

	return &Message{
		ID:             id.String(),
		ConversationID: conversationID,
		AuthorType:     req.AuthorType,
		AuthorID:       req.AuthorID,
		Body:           req.Body,
		CreatedAt:      createdAt,
	}, nil
}

// Messages returns the most recent messages in chronological order.
func (r *PostgresRepository) Messages(ctx context.Context, conversationID string, limit int) ([]*Message, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `
		SELECT id, conversation_id, author_type, COALESCE(author_id::text, ''), body, created_at
		FROM (
			SELECT * FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("inbox: list messages: %w", err)
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.AuthorType, &msg.AuthorID, &msg.Body, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("inbox: scan message: %w", err)
		}
		out = append(out, &msg)
	}
	return out, rows.Err()
}

// MarkRead resets the unread counter to zero.
func (r *PostgresRepository) MarkRead(ctx context.Context, workspaceID, conversationID string) error {
	query := `UPDATE conversations SET unread_count = 0 WHERE id = $1 AND workspace_id = $2`
	ct, err := r.db.Exec(ctx, query, conversationID, workspaceID)
	if err != nil {
		return fmt.Errorf("inbox: mark read: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAutomationPaused flips the automation pause flag.
func (r *PostgresRepository) SetAutomationPaused(ctx context.Context, conversationID string, paused bool) error {
	query := `UPDATE conversations SET automation_paused = $1 WHERE id = $2`
	ct, err := r.db.Exec(ctx, query, paused, conversationID)
	if err != nil {
		return fmt.Errorf("inbox: set automation paused: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
