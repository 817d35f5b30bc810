package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines the interface for workspace storage.
type Repository interface {
	Create(ctx context.Context, req *CreateWorkspaceRequest) (*Workspace, error)
	GetByID(ctx context.Context, id string) (*Workspace, error)
	GetBySlug(ctx context.Context, slug string) (*Workspace, error)
	UpdateEmailConfig(ctx context.Context, id string, cfg *EmailConfig) error
	UpdateSMSConfig(ctx context.Context, id string, cfg *SMSConfig) error
}

// DB is the subset of pgxpool.Pool the repository uses.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores workspaces in the relational database.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("workspace: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting mocks for tests.
func NewPostgresRepositoryWithDB(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new workspace row.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateWorkspaceRequest) (*Workspace, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tz := req.Timezone
	if tz == "" {
		tz = "UTC"
	}
	id := uuid.New()
	query := `
		INSERT INTO workspaces (id, slug, name, timezone)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	var createdAt, updatedAt time.Time
	if err := r.db.QueryRow(ctx, query, id, req.Slug, req.Name, tz).Scan(&createdAt, &updatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("workspace: insert failed: %w", err)
	}

	return &Workspace{
		ID:        id.String(),
		Slug:      req.Slug,
		Name:      req.Name,
		Timezone:  tz,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// GetByID fetches a workspace by primary key.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Workspace, error) {
	return r.get(ctx, "id = $1", id)
}

// GetBySlug fetches a workspace by its public slug.
func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (*Workspace, error) {
	return r.get(ctx, "slug = $1", slug)
}

func (r *PostgresRepository) get(ctx context.Context, where string, arg any) (*Workspace, error) {
	query := `
		SELECT id, slug, name, timezone, email_config, sms_config, created_at, updated_at
		FROM workspaces
		WHERE ` + where

	var ws Workspace
	var emailRaw, smsRaw []byte
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&ws.ID,
		&ws.Slug,
		&ws.Name,
		&ws.Timezone,
		&emailRaw,
		&smsRaw,
		&ws.CreatedAt,
		&ws.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("workspace: select failed: %w", err)
	}

	// Configs were validated at write time; a decode failure here means the
	// row was written outside the API and is treated as unconfigured.
	if len(emailRaw) > 0 {
		var cfg EmailConfig
		if err := json.Unmarshal(emailRaw, &cfg); err == nil {
			ws.EmailConfig = &cfg
		}
	}
	if len(smsRaw) > 0 {
		var cfg SMSConfig
		if err := json.Unmarshal(smsRaw, &cfg); err == nil {
			ws.SMSConfig = &cfg
		}
	}
	return &ws, nil
}

// UpdateEmailConfig validates and persists the SMTP config.
func (r *PostgresRepository) UpdateEmailConfig(ctx context.Context, id string, cfg *EmailConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("workspace: marshal email config: %w", err)
	}
	return r.updateConfig(ctx, id, "email_config", data)
}

// UpdateSMSConfig validates and persists the SMS provider config.
func (r *PostgresRepository) UpdateSMSConfig(ctx context.Context, id string, cfg *SMSConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("workspace: marshal sms config: %w", err)
	}
	return r.updateConfig(ctx, id, "sms_config", data)
}

func (r *PostgresRepository) updateConfig(ctx context.Context, id, column string, data []byte) error {
	query := fmt.Sprintf(`UPDATE workspaces SET %s = $1, updated_at = now() WHERE id = $2`, column)
	ct, err := r.db.Exec(ctx, query, data, id)
	if err != nil {
		return fmt.Errorf("workspace: update %s: %w", column, err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
