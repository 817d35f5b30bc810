package scheduling

import (
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careops/platform/internal/automation"
)

func TestPostgresCreateCommitsBookingAndOutboxTogether(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepositoryWithDB(mock, automation.NewPostgresOutboxWithDB(mock))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bookings")).
		WithArgs(pgxmock.AnyArg(), "ws-1", "c-1", "svc-1", "2026-09-07", "09:00", "10:00",
			StatusConfirmed, "res-1", nil, "").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox")).
		WithArgs(pgxmock.AnyArg(), "ws-1", automation.EventBookingCreated, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	b, err := repo.Create(t.Context(), &Booking{
		WorkspaceID: "ws-1", ContactID: "c-1", ServiceID: "svc-1",
		Date: "2026-09-07", StartTime: "09:00", EndTime: "10:00", ResourceID: "res-1",
	}, automation.BookingEventPayload{ContactID: "c-1", ServiceID: "svc-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, StatusConfirmed, b.Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateMapsUniqueViolation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepositoryWithDB(mock, automation.NewPostgresOutboxWithDB(mock))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bookings")).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_bookings_resource_slot"})
	mock.ExpectRollback()

	_, err = repo.Create(t.Context(), &Booking{
		WorkspaceID: "ws-1", ContactID: "c-1", ServiceID: "svc-1",
		Date: "2026-09-07", StartTime: "09:00", EndTime: "10:00", ResourceID: "res-1",
	}, automation.BookingEventPayload{})
	assert.ErrorIs(t, err, ErrSlotTaken)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUsageOn(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepositoryWithDB(mock, automation.NewPostgresOutboxWithDB(mock))

	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings")).
		WithArgs("ws-1", "2026-09-07").
		WillReturnRows(pgxmock.NewRows([]string{"start_time", "resource_id", "assigned_to_id"}).
			AddRow("09:00", "res-1", "").
			AddRow("09:00", "", "staff-1"))

	uses, err := repo.UsageOn(t.Context(), "ws-1", "2026-09-07")
	require.NoError(t, err)
	require.Len(t, uses, 2)
	assert.Equal(t, "res-1", uses[0].ResourceID)
	assert.Equal(t, "staff-1", uses[1].AssignedToID)

	assert.NoError(t, mock.ExpectationsWereMet())
}
