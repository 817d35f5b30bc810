package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines the interface for user storage.
type Repository interface {
	CreateUser(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, workspaceID, email string) (*User, error)
	GetByID(ctx context.Context, workspaceID, id string) (*User, error)
	ListByWorkspace(ctx context.Context, workspaceID string) ([]*User, error)
}

type pgDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores users in the relational database.
type PostgresRepository struct {
	db pgDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("auth: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting mocks for tests.
func NewPostgresRepositoryWithDB(db pgDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateUser inserts a new user row.
func (r *PostgresRepository) CreateUser(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	query := `
		INSERT INTO users (id, workspace_id, email, password_hash, name, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		user.ID,
		user.WorkspaceID,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.Role,
	).Scan(&user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("auth: insert user: %w", err)
	}
	return nil
}

// GetByEmail fetches a user by email scoped to the workspace.
func (r *PostgresRepository) GetByEmail(ctx context.Context, workspaceID, email string) (*User, error) {
	return r.get(ctx, "workspace_id = $1 AND email = $2", workspaceID, email)
}

// GetByID fetches a user by id scoped to the workspace.
func (r *PostgresRepository) GetByID(ctx context.Context, workspaceID, id string) (*User, error) {
	return r.get(ctx, "workspace_id = $1 AND id = $2", workspaceID, id)
}

func (r *PostgresRepository) get(ctx context.Context, where string, args ...any) (*User, error) {
	query := `
		SELECT id, workspace_id, email, password_hash, name, role, created_at
		FROM users
		WHERE ` + where

	var user User
	if err := r.db.QueryRow(ctx, query, args...).Scan(
		&user.ID,
		&user.WorkspaceID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.Role,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("auth: select user: %w", err)
	}
	return &user, nil
}

// ListByWorkspace returns all users of a workspace.
func (r *PostgresRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]*User, error) {
	query := `
		SELECT id, workspace_id, email, password_hash, name, role, created_at
		FROM users
		WHERE workspace_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("auth: list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var user User
		if err := rows.Scan(
			&user.ID,
			&user.WorkspaceID,
			&user.Email,
			&user.PasswordHash,
			&user.Name,
			&user.Role,
			&user.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("auth: scan user: %w", err)
		}
		users = append(users, &user)
	}
	return users, rows.Err()
}

// InMemoryRepository is a Repository backed by maps, used in tests.
type InMemoryRepository struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{users: make(map[string]*User)}
}

// CreateUser stores a user in memory.
func (r *InMemoryRepository) CreateUser(ctx context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.WorkspaceID == user.WorkspaceID && existing.Email == user.Email {
			return ErrEmailTaken
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now().UTC()
	r.users[user.ID] = user
	return nil
}

// GetByEmail fetches a user by email scoped to the workspace.
func (r *InMemoryRepository) GetByEmail(ctx context.Context, workspaceID, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.WorkspaceID == workspaceID && user.Email == email {
			return user, nil
		}
	}
	return nil, ErrUserNotFound
}

// GetByID fetches a user by id scoped to the workspace.
func (r *InMemoryRepository) GetByID(ctx context.Context, workspaceID, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok || user.WorkspaceID != workspaceID {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// ListByWorkspace returns all users of a workspace.
func (r *InMemoryRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var users []*User
	for _, user := range r.users {
		if user.WorkspaceID == workspaceID {
			users = append(users, user)
		}
	}
	return users, nil
}
