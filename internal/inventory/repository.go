package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines the interface for inventory storage.
//
// Adjust applies the delta atomically and rejects drops below zero, so
// concurrent decrements cannot oversell stock.
type Repository interface {
	Create(ctx context.Context, req *CreateItemRequest) (*Item, error)
	Get(ctx context.Context, workspaceID, id string) (*Item, error)
	List(ctx context.Context, workspaceID string) ([]*Item, error)
	Adjust(ctx context.Context, workspaceID, id string, delta int) (*Item, error)
	Delete(ctx context.Context, workspaceID, id string) error
}

// PostgresRepository stores inventory in the relational database.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("inventory: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

const itemColumns = `id, workspace_id, name, quantity, low_stock_threshold, created_at, updated_at`

func scanItem(row pgx.Row) (*Item, error) {
	var item Item
	if err := row.Scan(
		&item.ID, &item.WorkspaceID, &item.Name, &item.Quantity,
		&item.LowStockThreshold, &item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &item, nil
}

// Create inserts an item row.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateItemRequest) (*Item, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	query := `
		INSERT INTO inventory_items (id, workspace_id, name, quantity, low_stock_threshold)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + itemColumns
	item, err := scanItem(r.pool.QueryRow(ctx, query,
		uuid.NewString(), req.WorkspaceID, req.Name, req.Quantity, req.LowStockThreshold))
	if err != nil {
		return nil, fmt.Errorf("inventory: insert item: %w", err)
	}
	return item, nil
}

// Get fetches one item scoped to the workspace.
func (r *PostgresRepository) Get(ctx context.Context, workspaceID, id string) (*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE workspace_id = $1 AND id = $2`
	item, err := scanItem(r.pool.QueryRow(ctx, query, workspaceID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("inventory: select item: %w", err)
	}
	return item, nil
}

// List lists the workspace's items by name.
func (r *PostgresRepository) List(ctx context.Context, workspaceID string) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE workspace_id = $1 ORDER BY name`
	rows, err := r.pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("inventory: list items: %w", err)
	}
	defer rows.Close()

	out := []*Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("inventory: scan item: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// Adjust applies the delta in one statement; the quantity guard in the WHERE
// clause makes concurrent decrements safe.
func (r *PostgresRepository) Adjust(ctx context.Context, workspaceID, id string, delta int) (*Item, error) {
	query := `
		UPDATE inventory_items
		SET quantity = quantity + $1, updated_at = now()
		WHERE workspace_id = $2 AND id = $3 AND quantity + $1 >= 0
		RETURNING ` + itemColumns
	item, err := scanItem(r.pool.QueryRow(ctx, query, delta, workspaceID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish a missing row from a guard rejection.
			if _, getErr := r.Get(ctx, workspaceID, id); getErr != nil {
				return nil, getErr
			}
			return nil, ErrInsufficientStock
		}
		return nil, fmt.Errorf("inventory: adjust item: %w", err)
	}
	return item, nil
}

// Delete removes an item row.
func (r *PostgresRepository) Delete(ctx context.Context, workspaceID, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM inventory_items WHERE workspace_id = $1 AND id = $2`, workspaceID, id)
	if err != nil {
		return fmt.Errorf("inventory: delete item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InMemoryRepository is a map-backed Repository for tests.
type InMemoryRepository struct {
	mu    sync.Mutex
	items map[string]*Item
}

// NewInMemoryRepository creates an empty in-memory inventory.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{items: make(map[string]*Item)}
}

// Create inserts an item.
func (r *InMemoryRepository) Create(_ context.Context, req *CreateItemRequest) (*Item, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	item := &Item{
		ID:                uuid.NewString(),
		WorkspaceID:       req.WorkspaceID,
		Name:              req.Name,
		Quantity:          req.Quantity,
		LowStockThreshold: req.LowStockThreshold,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	r.items[item.ID] = item
	copied := *item
	return &copied, nil
}

// Get fetches one item scoped to the workspace.
func (r *InMemoryRepository) Get(_ context.Context, workspaceID, id string) (*Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok || item.WorkspaceID != workspaceID {
		return nil, ErrNotFound
	}
	copied := *item
	return &copied, nil
}

// List lists the workspace's items by name.
func (r *InMemoryRepository) List(_ context.Context, workspaceID string) ([]*Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []*Item{}
	for _, item := range r.items {
		if item.WorkspaceID == workspaceID {
			copied := *item
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Adjust applies the delta under the lock.
func (r *InMemoryRepository) Adjust(_ context.Context, workspaceID, id string, delta int) (*Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok || item.WorkspaceID != workspaceID {
		return nil, ErrNotFound
	}
	if item.Quantity+delta < 0 {
		return nil, ErrInsufficientStock
	}
	item.Quantity += delta
	item.UpdatedAt = time.Now().UTC()
	copied := *item
	return &copied, nil
}

// Delete removes an item.
func (r *InMemoryRepository) Delete(_ context.Context, workspaceID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok || item.WorkspaceID != workspaceID {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}
