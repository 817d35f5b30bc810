package contacts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines the interface for contact storage.
type Repository interface {
	Create(ctx context.Context, req *CreateContactRequest) (*Contact, error)
	GetByID(ctx context.Context, workspaceID, id string) (*Contact, error)
	List(ctx context.Context, workspaceID string, filter ListFilter) ([]*Contact, error)
}

type pgDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository stores contacts in the relational database.
type PostgresRepository struct {
	db pgDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("contacts: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting mocks for tests.
func NewPostgresRepositoryWithDB(db pgDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new contact row.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateContactRequest) (*Contact, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	query := `
		INSERT INTO contacts (id, workspace_id, name, email, phone, source, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.db.QueryRow(ctx, query,
		id,
		req.WorkspaceID,
		req.Name,
		req.Email,
		req.Phone,
		req.Source,
		req.Notes,
	).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("contacts: insert failed: %w", err)
	}

	return &Contact{
		ID:          id.String(),
		WorkspaceID: req.WorkspaceID,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Source:      req.Source,
		Notes:       req.Notes,
		CreatedAt:   createdAt,
	}, nil
}

// GetByID fetches a contact scoped to the workspace.
func (r *PostgresRepository) GetByID(ctx context.Context, workspaceID, id string) (*Contact, error) {
	query := `
		SELECT id, workspace_id, name, email, phone, source, notes, created_at
		FROM contacts
		WHERE id = $1 AND workspace_id = $2
	`
	var c Contact
	if err := r.db.QueryRow(ctx, query, id, workspaceID).Scan(
		&c.ID, &c.WorkspaceID, &c.Name, &c.Email, &c.Phone, &c.Source, &c.Notes, &c.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("contacts: select failed: %w", err)
	}
	return &c, nil
}

// List returns contacts for a workspace, newest first.
func (r *PostgresRepository) List(ctx context.Context, workspaceID string, filter ListFilter) ([]*Contact, error) {
	limit, offset := filter.normalize()
	query := `
		SELECT id, workspace_id, name, email, phone, source, notes, created_at
		FROM contacts
		WHERE workspace_id = $1
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR email ILIKE '%' || $2 || '%')
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, workspaceID, filter.Search, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("contacts: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.WorkspaceID, &c.Name, &c.Email, &c.Phone, &c.Source, &c.Notes, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("contacts: scan failed: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// InMemoryRepository is a Repository backed by a map, used in tests.
type InMemoryRepository struct {
	mu       sync.RWMutex
	contacts map[string]*Contact
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{contacts: make(map[string]*Contact)}
}

// Create creates a new contact in memory.
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateContactRequest) (*Contact, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c := &Contact{
		ID:          uuid.New().String(),
		WorkspaceID: req.WorkspaceID,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Source:      req.Source,
		Notes:       req.Notes,
		CreatedAt:   time.Now().UTC(),
	}

	r.mu.Lock()
	r.contacts[c.ID] = c
	r.mu.Unlock()

	return c, nil
}

// GetByID retrieves a contact by ID scoped to the workspace.
func (r *InMemoryRepository) GetByID(ctx context.Context, workspaceID, id string) (*Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.contacts[id]
	if !ok || c.WorkspaceID != workspaceID {
		return nil, ErrNotFound
	}
	return c, nil
}

// List returns contacts for a workspace.
func (r *InMemoryRepository) List(ctx context.Context, workspaceID string, filter ListFilter) ([]*Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Contact
	for _, c := range r.contacts {
		if c.WorkspaceID != workspaceID {
			continue
		}
		if filter.Search != "" &&
			!strings.Contains(strings.ToLower(c.Name), strings.ToLower(filter.Search)) &&
			!strings.Contains(strings.ToLower(c.Email), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	limit, offset := filter.normalize()
	if offset >= len(out) {
		return []*Contact{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
