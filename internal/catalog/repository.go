package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines the interface for catalog storage: services, weekly
// availability templates, resources, and staff qualifications.
type Repository interface {
	CreateService(ctx context.Context, req *CreateServiceRequest) (*Service, error)
	GetService(ctx context.Context, workspaceID, id string) (*Service, error)
	ListServices(ctx context.Context, workspaceID string) ([]*Service, error)
	DeleteService(ctx context.Context, workspaceID, id string) error

	UpsertAvailability(ctx context.Context, workspaceID string, req *UpsertAvailabilityRequest) (*Availability, error)
	GetAvailability(ctx context.Context, workspaceID, serviceID string, dayOfWeek int) (*Availability, error)
	ListAvailability(ctx context.Context, workspaceID, serviceID string) ([]*Availability, error)

	CreateResource(ctx context.Context, req *CreateResourceRequest) (*Resource, error)
	ListResources(ctx context.Context, workspaceID string) ([]*Resource, error)
	ListResourcesByType(ctx context.Context, workspaceID, resourceType string) ([]*Resource, error)
	DeleteResource(ctx context.Context, workspaceID, id string) error

	SetQualifiedStaff(ctx context.Context, workspaceID, serviceID string, userIDs []string) error
	QualifiedStaffIDs(ctx context.Context, serviceID string) ([]string, error)
}

// DB is the subset of pgxpool.Pool the repository uses.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores the catalog in the relational database.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("catalog: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting mocks for tests.
func NewPostgresRepositoryWithDB(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateService inserts a new service row.
func (r *PostgresRepository) CreateService(ctx context.Context, req *CreateServiceRequest) (*Service, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	svc := &Service{
		ID:              uuid.NewString(),
		WorkspaceID:     req.WorkspaceID,
		Name:            req.Name,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		PriceCents:      req.PriceCents,
		ResourceType:    req.ResourceType,
	}
	query := `
		INSERT INTO services (id, workspace_id, name, description, duration_minutes, price_cents, resource_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	if err := r.db.QueryRow(ctx, query,
		svc.ID, svc.WorkspaceID, svc.Name, svc.Description,
		svc.DurationMinutes, svc.PriceCents, svc.ResourceType,
	).Scan(&svc.CreatedAt); err != nil {
		return nil, fmt.Errorf("catalog: insert service: %w", err)
	}
	return svc, nil
}

// GetService fetches one service scoped to the workspace.
func (r *PostgresRepository) GetService(ctx context.Context, workspaceID, id string) (*Service, error) {
	query := `
		SELECT id, workspace_id, name, description, duration_minutes, price_cents, resource_type, created_at
		FROM services
		WHERE workspace_id = $1 AND id = $2
	`
	var svc Service
	if err := r.db.QueryRow(ctx, query, workspaceID, id).Scan(
		&svc.ID, &svc.WorkspaceID, &svc.Name, &svc.Description,
		&svc.DurationMinutes, &svc.PriceCents, &svc.ResourceType, &svc.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("catalog: select service: %w", err)
	}
	return &svc, nil
}

// ListServices lists all services for the workspace.
func (r *PostgresRepository) ListServices(ctx context.Context, workspaceID string) ([]*Service, error) {
	query := `
		SELECT id, workspace_id, name, description, duration_minutes, price_cents, resource_type, created_at
		FROM services
		WHERE workspace_id = $1
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list services: %w", err)
	}
	defer rows.Close()

	services := []*Service{}
	for rows.Next() {
		var svc Service
		if err := rows.Scan(
			&svc.ID, &svc.WorkspaceID, &svc.Name, &svc.Description,
			&svc.DurationMinutes, &svc.PriceCents, &svc.ResourceType, &svc.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("catalog: scan service: %w", err)
		}
		services = append(services, &svc)
	}
	return services, rows.Err()
}

// DeleteService removes a service unless it still has non-cancelled bookings.
func (r *PostgresRepository) DeleteService(ctx context.Context, workspaceID, id string) error {
	var inUse bool
	check := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE service_id = $1 AND status <> 'cancelled'
		)
	`
	if err := r.db.QueryRow(ctx, check, id).Scan(&inUse); err != nil {
		return fmt.Errorf("catalog: check service bookings: %w", err)
	}
	if inUse {
		return ErrServiceInUse
	}

	ct, err := r.db.Exec(ctx, `DELETE FROM services WHERE workspace_id = $1 AND id = $2`, workspaceID, id)
	if err != nil {
		return fmt.Errorf("catalog: delete service: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrServiceNotFound
	}
	return nil
}

// UpsertAvailability replaces the slot template for one weekday.
func (r *PostgresRepository) UpsertAvailability(ctx context.Context, workspaceID string, req *UpsertAvailabilityRequest) (*Availability, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	slots := req.Slots
	if slots == nil {
		slots = []TimeWindow{}
	}
	data, err := json.Marshal(slots)
	if err != nil {
		return nil, fmt.Errorf("catalog: marshal slots: %w", err)
	}

	av := &Availability{
		WorkspaceID: workspaceID,
		ServiceID:   req.ServiceID,
		DayOfWeek:   req.DayOfWeek,
		Slots:       slots,
	}
	query := `
		INSERT INTO availability (id, workspace_id, service_id, day_of_week, slots)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (workspace_id, service_id, day_of_week)
		DO UPDATE SET slots = EXCLUDED.slots
		RETURNING id
	`
	if err := r.db.QueryRow(ctx, query, uuid.NewString(), workspaceID, req.ServiceID, req.DayOfWeek, data).Scan(&av.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("catalog: upsert availability: %w", err)
	}
	return av, nil
}

// GetAvailability fetches the template row for one weekday, or nil when the
// service has no template for that day.
func (r *PostgresRepository) GetAvailability(ctx context.Context, workspaceID, serviceID string, dayOfWeek int) (*Availability, error) {
	query := `
		SELECT id, workspace_id, service_id, day_of_week, slots
		FROM availability
		WHERE workspace_id = $1 AND service_id = $2 AND day_of_week = $3
	`
	var av Availability
	var raw []byte
	if err := r.db.QueryRow(ctx, query, workspaceID, serviceID, dayOfWeek).Scan(
		&av.ID, &av.WorkspaceID, &av.ServiceID, &av.DayOfWeek, &raw,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("catalog: select availability: %w", err)
	}
	if err := json.Unmarshal(raw, &av.Slots); err != nil {
		return nil, fmt.Errorf("catalog: decode slots: %w", err)
	}
	return &av, nil
}

// ListAvailability lists every weekday template for a service.
func (r *PostgresRepository) ListAvailability(ctx context.Context, workspaceID, serviceID string) ([]*Availability, error) {
	query := `
		SELECT id, workspace_id, service_id, day_of_week, slots
		FROM availability
		WHERE workspace_id = $1 AND service_id = $2
		ORDER BY day_of_week
	`
	rows, err := r.db.Query(ctx, query, workspaceID, serviceID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list availability: %w", err)
	}
	defer rows.Close()

	out := []*Availability{}
	for rows.Next() {
		var av Availability
		var raw []byte
		if err := rows.Scan(&av.ID, &av.WorkspaceID, &av.ServiceID, &av.DayOfWeek, &raw); err != nil {
			return nil, fmt.Errorf("catalog: scan availability: %w", err)
		}
		if err := json.Unmarshal(raw, &av.Slots); err != nil {
			return nil, fmt.Errorf("catalog: decode slots: %w", err)
		}
		out = append(out, &av)
	}
	return out, rows.Err()
}

// CreateResource inserts a new resource row.
func (r *PostgresRepository) CreateResource(ctx context.Context, req *CreateResourceRequest) (*Resource, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	res := &Resource{
		ID:          uuid.NewString(),
		WorkspaceID: req.WorkspaceID,
		Name:        req.Name,
		Type:        req.Type,
	}
	query := `
		INSERT INTO resources (id, workspace_id, name, type)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	if err := r.db.QueryRow(ctx, query, res.ID, res.WorkspaceID, res.Name, res.Type).Scan(&res.CreatedAt); err != nil {
		return nil, fmt.Errorf("catalog: insert resource: %w", err)
	}
	return res, nil
}

// ListResources lists all resources for the workspace.
func (r *PostgresRepository) ListResources(ctx context.Context, workspaceID string) ([]*Resource, error) {
	return r.listResources(ctx,
		`SELECT id, workspace_id, name, type, created_at FROM resources WHERE workspace_id = $1 ORDER BY created_at`,
		workspaceID)
}

// ListResourcesByType lists the workspace's resources of one type in creation
// order. Booking assignment walks this list first to last.
func (r *PostgresRepository) ListResourcesByType(ctx context.Context, workspaceID, resourceType string) ([]*Resource, error) {
	return r.listResources(ctx,
		`SELECT id, workspace_id, name, type, created_at FROM resources WHERE workspace_id = $1 AND type = $2 ORDER BY created_at`,
		workspaceID, resourceType)
}

func (r *PostgresRepository) listResources(ctx context.Context, query string, args ...any) ([]*Resource, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: list resources: %w", err)
	}
	defer rows.Close()

	resources := []*Resource{}
	for rows.Next() {
		var res Resource
		if err := rows.Scan(&res.ID, &res.WorkspaceID, &res.Name, &res.Type, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("catalog: scan resource: %w", err)
		}
		resources = append(resources, &res)
	}
	return resources, rows.Err()
}

// DeleteResource removes a resource row.
func (r *PostgresRepository) DeleteResource(ctx context.Context, workspaceID, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM resources WHERE workspace_id = $1 AND id = $2`, workspaceID, id)
	if err != nil {
		return fmt.Errorf("catalog: delete resource: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrResourceNotFound
	}
	return nil
}

// SetQualifiedStaff replaces the set of staff members who can perform a
// service.
func (r *PostgresRepository) SetQualifiedStaff(ctx context.Context, workspaceID, serviceID string, userIDs []string) error {
	if _, err := r.GetService(ctx, workspaceID, serviceID); err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM staff_services WHERE service_id = $1`, serviceID); err != nil {
		return fmt.Errorf("catalog: clear qualifications: %w", err)
	}
	for _, userID := range userIDs {
		if _, err := r.db.Exec(ctx,
			`INSERT INTO staff_services (user_id, service_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			userID, serviceID,
		); err != nil {
			return fmt.Errorf("catalog: insert qualification: %w", err)
		}
	}
	return nil
}

// QualifiedStaffIDs returns the user IDs qualified for a service.
func (r *PostgresRepository) QualifiedStaffIDs(ctx context.Context, serviceID string) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT user_id FROM staff_services WHERE service_id = $1 ORDER BY user_id`, serviceID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list qualifications: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("catalog: scan qualification: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
