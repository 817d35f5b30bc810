package forms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines the interface for form storage.
type Repository interface {
	CreateTemplate(ctx context.Context, req *CreateTemplateRequest) (*Template, error)
	GetTemplate(ctx context.Context, workspaceID, id string) (*Template, error)
	ListTemplates(ctx context.Context, workspaceID string) ([]*Template, error)
	CreateSubmission(ctx context.Context, sub *Submission) (*Submission, error)
	ListSubmissions(ctx context.Context, workspaceID, templateID string) ([]*Submission, error)
}

type pgDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository stores forms in the relational database.
type PostgresRepository struct {
	db pgDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("forms: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting mocks for tests.
func NewPostgresRepositoryWithDB(db pgDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateTemplate inserts a template row.
func (r *PostgresRepository) CreateTemplate(ctx context.Context, req *CreateTemplateRequest) (*Template, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	fields := req.Fields
	if fields == nil {
		fields = []Field{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("forms: marshal fields: %w", err)
	}

	tpl := &Template{
		ID:          uuid.NewString(),
		WorkspaceID: req.WorkspaceID,
		Name:        req.Name,
		Fields:      fields,
	}
	query := `
		INSERT INTO form_templates (id, workspace_id, name, fields)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	if err := r.db.QueryRow(ctx, query, tpl.ID, tpl.WorkspaceID, tpl.Name, data).Scan(&tpl.CreatedAt); err != nil {
		return nil, fmt.Errorf("forms: insert template: %w", err)
	}
	return tpl, nil
}

// GetTemplate fetches one template scoped to the workspace.
func (r *PostgresRepository) GetTemplate(ctx context.Context, workspaceID, id string) (*Template, error) {
	query := `
		SELECT id, workspace_id, name, fields, created_at
		FROM form_templates
		WHERE workspace_id = $1 AND id = $2
	`
	var tpl Template
	var raw []byte
	if err := r.db.QueryRow(ctx, query, workspaceID, id).Scan(
		&tpl.ID, &tpl.WorkspaceID, &tpl.Name, &raw, &tpl.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("forms: select template: %w", err)
	}
	if err := json.Unmarshal(raw, &tpl.Fields); err != nil {
		return nil, fmt.Errorf("forms: decode fields: %w", err)
	}
	return &tpl, nil
}

// ListTemplates lists the workspace's templates.
func (r *PostgresRepository) ListTemplates(ctx context.Context, workspaceID string) ([]*Template, error) {
	query := `
		SELECT id, workspace_id, name, fields, created_at
		FROM form_templates
		WHERE workspace_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("forms: list templates: %w", err)
	}
	defer rows.Close()

	out := []*Template{}
	for rows.Next() {
		var tpl Template
		var raw []byte
		if err := rows.Scan(&tpl.ID, &tpl.WorkspaceID, &tpl.Name, &raw, &tpl.CreatedAt); err != nil {
			return nil, fmt.Errorf("forms: scan template: %w", err)
		}
		if err := json.Unmarshal(raw, &tpl.Fields); err != nil {
			return nil, fmt.Errorf("forms: decode fields: %w", err)
		}
		out = append(out, &tpl)
	}
	return out, rows.Err()
}

// CreateSubmission inserts a submission row.
func (r *PostgresRepository) CreateSubmission(ctx context.Context, sub *Submission) (*Submission, error) {
	answers := sub.Answers
	if answers == nil {
		answers = map[string]any{}
	}
	data, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("forms: marshal answers: %w", err)
	}

	sub.ID = uuid.NewString()
	var contactID any
	if sub.ContactID != "" {
		contactID = sub.ContactID
	}
	query := `
		INSERT INTO form_submissions (id, template_id, workspace_id, contact_id, answers)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	if err := r.db.QueryRow(ctx, query, sub.ID, sub.TemplateID, sub.WorkspaceID, contactID, data).Scan(&sub.CreatedAt); err != nil {
		return nil, fmt.Errorf("forms: insert submission: %w", err)
	}
	return sub, nil
}

// ListSubmissions lists submissions for one template, newest first.
func (r *PostgresRepository) ListSubmissions(ctx context.Context, workspaceID, templateID string) ([]*Submission, error) {
	query := `
		SELECT id, template_id, workspace_id, COALESCE(contact_id::text, ''), answers, created_at
		FROM form_submissions
		WHERE workspace_id = $1 AND template_id = $2
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, workspaceID, templateID)
	if err != nil {
		return nil, fmt.Errorf("forms: list submissions: %w", err)
	}
	defer rows.Close()

	out := []*Submission{}
	for rows.Next() {
		var sub Submission
		var raw []byte
		if err := rows.Scan(&sub.ID, &sub.TemplateID, &sub.WorkspaceID, &sub.ContactID, &raw, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("forms: scan submission: %w", err)
		}
		if err := json.Unmarshal(raw, &sub.Answers); err != nil {
			return nil, fmt.Errorf("forms: decode answers: %w", err)
		}
		out = append(out, &sub)
	}
	return out, rows.Err()
}

// InMemoryRepository is a map-backed Repository for tests.
type InMemoryRepository struct {
	mu          sync.RWMutex
	templates   map[string]*Template
	submissions map[string]*Submission
}

// NewInMemoryRepository creates an empty in-memory form store.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		templates:   make(map[string]*Template),
		submissions: make(map[string]*Submission),
	}
}

// CreateTemplate inserts a template.
func (r *InMemoryRepository) CreateTemplate(_ context.Context, req *CreateTemplateRequest) (*Template, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	fields := req.Fields
	if fields == nil {
		fields = []Field{}
	}
	tpl := &Template{
		ID:          uuid.NewString(),
		WorkspaceID: req.WorkspaceID,
		Name:        req.Name,
		Fields:      append([]Field(nil), fields...),
		CreatedAt:   time.Now().UTC(),
	}
	r.templates[tpl.ID] = tpl
	copied := *tpl
	return &copied, nil
}

// GetTemplate fetches one template scoped to the workspace.
func (r *InMemoryRepository) GetTemplate(_ context.Context, workspaceID, id string) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tpl, ok := r.templates[id]
	if !ok || tpl.WorkspaceID != workspaceID {
		return nil, ErrTemplateNotFound
	}
	copied := *tpl
	return &copied, nil
}

// ListTemplates lists the workspace's templates, newest first.
func (r *InMemoryRepository) ListTemplates(_ context.Context, workspaceID string) ([]*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*Template{}
	for _, tpl := range r.templates {
		if tpl.WorkspaceID == workspaceID {
			copied := *tpl
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// CreateSubmission inserts a submission.
func (r *InMemoryRepository) CreateSubmission(_ context.Context, sub *Submission) (*Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub.ID = uuid.NewString()
	sub.CreatedAt = time.Now().UTC()
	if sub.Answers == nil {
		sub.Answers = map[string]any{}
	}
	copied := *sub
	r.submissions[sub.ID] = &copied
	return sub, nil
}

// ListSubmissions lists submissions for one template, newest first.
func (r *InMemoryRepository) ListSubmissions(_ context.Context, workspaceID, templateID string) ([]*Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*Submission{}
	for _, sub := range r.submissions {
		if sub.WorkspaceID == workspaceID && sub.TemplateID == templateID {
			copied := *sub
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
