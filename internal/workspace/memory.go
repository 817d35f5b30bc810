package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository is a Repository backed by a map, used in tests and
// local development without Postgres.
type InMemoryRepository struct {
	mu         sync.RWMutex
	workspaces map[string]*Workspace
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{workspaces: make(map[string]*Workspace)}
}

// Create creates a new workspace in memory.
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateWorkspaceRequest) (*Workspace, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ws := range r.workspaces {
		if ws.Slug == req.Slug {
			return nil, ErrSlugTaken
		}
	}

	tz := req.Timezone
	if tz == "" {
		tz = "UTC"
	}
	now := time.Now().UTC()
	ws := &Workspace{
		ID:        uuid.New().String(),
		Slug:      req.Slug,
		Name:      req.Name,
		Timezone:  tz,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.workspaces[ws.ID] = ws
	return ws, nil
}

// GetByID retrieves a workspace by ID.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Workspace, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ws, ok := r.workspaces[id]
	if !ok {
		return nil, ErrNotFound
	}
	return ws, nil
}

// GetBySlug retrieves a workspace by slug.
func (r *InMemoryRepository) GetBySlug(ctx context.Context, slug string) (*Workspace, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ws := range r.workspaces {
		if ws.Slug == slug {
			return ws, nil
		}
	}
	return nil, ErrNotFound
}

// UpdateEmailConfig validates and stores the SMTP config.
func (r *InMemoryRepository) UpdateEmailConfig(ctx context.Context, id string, cfg *EmailConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	ws, ok := r.workspaces[id]
	if !ok {
		return ErrNotFound
	}
	ws.EmailConfig = cfg
	ws.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateSMSConfig validates and stores the SMS provider config.
func (r *InMemoryRepository) UpdateSMSConfig(ctx context.Context, id string, cfg *SMSConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	ws, ok := r.workspaces[id]
	if !ok {
		return ErrNotFound
	}
	ws.SMSConfig = cfg
	ws.UpdatedAt = time.Now().UTC()
	return nil
}
