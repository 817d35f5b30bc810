package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careops/platform/internal/automation"
)

// Repository defines the interface for booking storage.
//
// Create must persist the booking and its booking.created outbox event
// atomically, and must reject with ErrSlotTaken when a concurrent insert
// already claimed the same resource or staff slot.
type Repository interface {
	Create(ctx context.Context, b *Booking, event automation.BookingEventPayload) (*Booking, error)
	Get(ctx context.Context, workspaceID, id string) (*Booking, error)
	List(ctx context.Context, workspaceID string, filter ListFilter) ([]*Booking, error)
	UpdateStatus(ctx context.Context, workspaceID, id, status string) (*Booking, error)
	UsageOn(ctx context.Context, workspaceID, date string) ([]SlotUse, error)
	DueForReminder(ctx context.Context, date string) ([]*Booking, error)
}

type pgDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresRepository stores bookings in the relational database. The two
// partial unique indexes on (resource_id, date, start_time) and
// (assigned_to_id, date, start_time) for non-cancelled rows are what close
// the check-then-insert race; this repository only translates their
// violations.
type PostgresRepository struct {
	db     pgDB
	outbox *automation.PostgresOutbox
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool, outbox *automation.PostgresOutbox) *PostgresRepository {
	if pool == nil {
		panic("scheduling: pgx pool required")
	}
	if outbox == nil {
		panic("scheduling: outbox required")
	}
	return &PostgresRepository{db: pool, outbox: outbox}
}

// NewPostgresRepositoryWithDB allows injecting mocks for tests.
func NewPostgresRepositoryWithDB(db pgDB, outbox *automation.PostgresOutbox) *PostgresRepository {
	return &PostgresRepository{db: db, outbox: outbox}
}

// Create inserts the booking and its outbox event in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, b *Booking, event automation.BookingEventPayload) (*Booking, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("scheduling: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	b.ID = uuid.NewString()
	b.Status = StatusConfirmed

	var resourceID, assignedToID any
	if b.ResourceID != "" {
		resourceID = b.ResourceID
	}
	if b.AssignedToID != "" {
		assignedToID = b.AssignedToID
	}
	query := `
		INSERT INTO bookings (id, workspace_id, contact_id, service_id, date, start_time, end_time, status, resource_id, assigned_to_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`
	if err := tx.QueryRow(ctx, query,
		b.ID, b.WorkspaceID, b.ContactID, b.ServiceID, b.Date, b.StartTime, b.EndTime,
		b.Status, resourceID, assignedToID, b.Notes,
	).Scan(&b.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("scheduling: insert booking: %w", err)
	}

	event.BookingID = b.ID
	if err := r.outbox.PublishTx(ctx, tx, b.WorkspaceID, automation.EventBookingCreated, event); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("scheduling: commit: %w", err)
	}
	return b, nil
}

const bookingColumns = `id, workspace_id, contact_id, service_id, date::text, start_time, end_time, status,
	COALESCE(resource_id::text, ''), COALESCE(assigned_to_id::text, ''), notes, created_at`

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	if err := row.Scan(
		&b.ID, &b.WorkspaceID, &b.ContactID, &b.ServiceID, &b.Date, &b.StartTime, &b.EndTime,
		&b.Status, &b.ResourceID, &b.AssignedToID, &b.Notes, &b.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &b, nil
}

// Get fetches one booking scoped to the workspace.
func (r *PostgresRepository) Get(ctx context.Context, workspaceID, id string) (*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE workspace_id = $1 AND id = $2`
	b, err := scanBooking(r.db.QueryRow(ctx, query, workspaceID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scheduling: select booking: %w", err)
	}
	return b, nil
}

// List returns bookings for a workspace, most recent date first.
func (r *PostgresRepository) List(ctx context.Context, workspaceID string, filter ListFilter) ([]*Booking, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE workspace_id = $1
		  AND ($2 = '' OR date = $2::date)
		  AND ($3 = '' OR contact_id = $3::uuid)
		  AND ($4 = '' OR status = $4)
		ORDER BY date DESC, start_time
		LIMIT $5 OFFSET $6
	`
	rows, err := r.db.Query(ctx, query, workspaceID, filter.Date, filter.ContactID, filter.Status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list bookings: %w", err)
	}
	defer rows.Close()

	out := []*Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scheduling: scan booking: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateStatus moves a booking to a new status. Cancelling releases the
// slot because the unique indexes only cover non-cancelled rows.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, workspaceID, id, status string) (*Booking, error) {
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	query := `
		UPDATE bookings SET status = $1
		WHERE workspace_id = $2 AND id = $3
		RETURNING ` + bookingColumns
	b, err := scanBooking(r.db.QueryRow(ctx, query, status, workspaceID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scheduling: update status: %w", err)
	}
	return b, nil
}

// UsageOn returns every active capacity claim on a date.
func (r *PostgresRepository) UsageOn(ctx context.Context, workspaceID, date string) ([]SlotUse, error) {
	query := `
		SELECT start_time, COALESCE(resource_id::text, ''), COALESCE(assigned_to_id::text, '')
		FROM bookings
		WHERE workspace_id = $1 AND date = $2::date AND status <> 'cancelled'
	`
	rows, err := r.db.Query(ctx, query, workspaceID, date)
	if err != nil {
		return nil, fmt.Errorf("scheduling: usage query: %w", err)
	}
	defer rows.Close()

	uses := []SlotUse{}
	for rows.Next() {
		var u SlotUse
		if err := rows.Scan(&u.StartTime, &u.ResourceID, &u.AssignedToID); err != nil {
			return nil, fmt.Errorf("scheduling: scan usage: %w", err)
		}
		uses = append(uses, u)
	}
	return uses, rows.Err()
}

// DueForReminder returns confirmed bookings on the given date across all
// workspaces, for the reminder scan.
func (r *PostgresRepository) DueForReminder(ctx context.Context, date string) ([]*Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE date = $1::date AND status = 'confirmed'
		ORDER BY workspace_id, start_time
	`
	rows, err := r.db.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("scheduling: reminder query: %w", err)
	}
	defer rows.Close()

	out := []*Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scheduling: scan booking: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
