package scheduling

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careops/platform/internal/automation"
	"github.com/careops/platform/internal/catalog"
)

// fixture wires the scheduling service over in-memory stores.
// 2026-09-07 is a Monday.
const monday = "2026-09-07"

type fixture struct {
	service *Service
	catalog *catalog.InMemoryRepository
	repo    *InMemoryRepository
	outbox  *automation.MemoryOutbox
	svc     *catalog.Service
}

func newFixture(t *testing.T, opts ...func(*fixture)) *fixture {
	t.Helper()
	f := &fixture{
		catalog: catalog.NewInMemoryRepository(),
		outbox:  automation.NewMemoryOutbox(),
	}
	f.repo = NewInMemoryRepository(f.outbox)
	f.service = NewService(f.repo, f.catalog, nil, nil)
	f.service.pickIndex = func(int) int { return 0 }

	svc, err := f.catalog.CreateService(t.Context(), &catalog.CreateServiceRequest{
		WorkspaceID: "ws-1", Name: "Haircut", DurationMinutes: 60, ResourceType: "chair",
	})
	require.NoError(t, err)
	f.svc = svc

	_, err = f.catalog.UpsertAvailability(t.Context(), "ws-1", &catalog.UpsertAvailabilityRequest{
		ServiceID: svc.ID,
		DayOfWeek: 1,
		Slots: []catalog.TimeWindow{
			{Start: "09:00", End: "10:00"},
			{Start: "10:00", End: "11:00"},
			{Start: "11:00", End: "12:00"},
		},
	})
	require.NoError(t, err)

	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *fixture) addResource(t *testing.T, name string) *catalog.Resource {
	t.Helper()
	res, err := f.catalog.CreateResource(t.Context(), &catalog.CreateResourceRequest{
		WorkspaceID: "ws-1", Name: name, Type: "chair",
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) book(t *testing.T, timeStr string) (*Booking, error) {
	t.Helper()
	return f.service.CreateBooking(t.Context(), &CreateBookingRequest{
		WorkspaceID: "ws-1", ContactID: "c-1", ServiceID: f.svc.ID, Date: monday, Time: timeStr,
	})
}

func TestNoAvailabilityRowMeansEmptySlots(t *testing.T) {
	f := newFixture(t)
	// Tuesday has no template.
	slots, err := f.service.AvailableSlots(t.Context(), "ws-1", f.svc.ID, "2026-09-08")
	require.NoError(t, err)
	assert.Equal(t, []string{}, slots)
}

func TestSlotsFollowTemplate(t *testing.T) {
	f := newFixture(t)
	f.addResource(t, "Chair 1")

	slots, err := f.service.AvailableSlots(t.Context(), "ws-1", f.svc.ID, monday)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:00", "11:00"}, slots)
}

func TestSingleResourceContention(t *testing.T) {
	f := newFixture(t)
	f.addResource(t, "Chair 1")

	booking, err := f.book(t, "09:00")
	require.NoError(t, err)

	slots, err := f.service.AvailableSlots(t.Context(), "ws-1", f.svc.ID, monday)
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00", "11:00"}, slots, "booked slot drops out")

	// A second request for the same slot must conflict.
	_, err = f.book(t, "09:00")
	assert.ErrorIs(t, err, ErrNoResourceFree)

	// Cancelling frees the slot again.
	_, err = f.service.UpdateStatus(t.Context(), "ws-1", booking.ID, StatusCancelled)
	require.NoError(t, err)
	slots, err = f.service.AvailableSlots(t.Context(), "ws-1", f.svc.ID, monday)
	require.NoError(t, err)
	assert.Contains(t, slots, "09:00")
}

func TestStaffCapacityIsHeadcount(t *testing.T) {
	f := newFixture(t)
	// No resources provisioned; contention is staff-only since the resource
	// filter fails open at zero.
	require.NoError(t, f.catalog.SetQualifiedStaff(t.Context(), "ws-1", f.svc.ID, []string{"staff-1", "staff-2"}))

	first, err := f.book(t, "09:00")
	require.NoError(t, err)
	assert.NotEmpty(t, first.AssignedToID)

	second, err := f.book(t, "09:00")
	require.NoError(t, err)
	assert.NotEmpty(t, second.AssignedToID)
	assert.NotEqual(t, first.AssignedToID, second.AssignedToID, "distinct staff per slot")

	_, err = f.book(t, "09:00")
	assert.ErrorIs(t, err, ErrNoStaffFree, "third request exceeds headcount")

	slots, err := f.service.AvailableSlots(t.Context(), "ws-1", f.svc.ID, monday)
	require.NoError(t, err)
	assert.NotContains(t, slots, "09:00")
}

func TestFailsOpenWithoutResourcesOrStaff(t *testing.T) {
	f := newFixture(t)
	// resourceType is set but no chairs exist and nobody is qualified.
	for _, timeStr := range []string{"09:00", "09:00", "09:00"} {
		b, err := f.book(t, timeStr)
		require.NoError(t, err)
		assert.Empty(t, b.ResourceID)
		assert.Empty(t, b.AssignedToID)
	}

	slots, err := f.service.AvailableSlots(t.Context(), "ws-1", f.svc.ID, monday)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:00", "11:00"}, slots, "no filtering applies")
}

func TestEndTimeMinuteArithmetic(t *testing.T) {
	f := newFixture(t)
	f.addResource(t, "Chair 1")

	shortSvc, err := f.catalog.CreateService(t.Context(), &catalog.CreateServiceRequest{
		WorkspaceID: "ws-1", Name: "Trim", DurationMinutes: 30,
	})
	require.NoError(t, err)

	b, err := f.service.CreateBooking(t.Context(), &CreateBookingRequest{
		WorkspaceID: "ws-1", ContactID: "c-1", ServiceID: shortSvc.ID, Date: monday, Time: "09:40",
	})
	require.NoError(t, err)
	assert.Equal(t, "10:10", b.EndTime)

	b, err = f.service.CreateBooking(t.Context(), &CreateBookingRequest{
		WorkspaceID: "ws-1", ContactID: "c-1", ServiceID: shortSvc.ID, Date: monday, Time: "23:45",
	})
	require.NoError(t, err)
	assert.Equal(t, "00:15", b.EndTime, "end time wraps past midnight")
}

func TestCreateBookingPublishesEvent(t *testing.T) {
	f := newFixture(t)
	f.addResource(t, "Chair 1")

	b, err := f.book(t, "10:00")
	require.NoError(t, err)

	events := f.outbox.All()
	require.Len(t, events, 1)
	assert.Equal(t, automation.EventBookingCreated, events[0].Type)
	assert.Equal(t, "ws-1", events[0].WorkspaceID)

	var payload automation.BookingEventPayload
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, b.ID, payload.BookingID)
	assert.Equal(t, "Haircut", payload.ServiceName)
	assert.Equal(t, "10:00", payload.StartTime)
}

func TestCreateBookingValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.CreateBooking(t.Context(), &CreateBookingRequest{
		WorkspaceID: "ws-1", ContactID: "c-1", ServiceID: f.svc.ID, Date: "09/07/2026", Time: "09:00",
	})
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = f.service.CreateBooking(t.Context(), &CreateBookingRequest{
		WorkspaceID: "ws-1", ContactID: "c-1", ServiceID: f.svc.ID, Date: monday, Time: "9am",
	})
	assert.ErrorIs(t, err, ErrInvalidTime)

	_, err = f.service.CreateBooking(t.Context(), &CreateBookingRequest{
		WorkspaceID: "ws-1", ContactID: "c-1", ServiceID: "missing", Date: monday, Time: "09:00",
	})
	assert.ErrorIs(t, err, catalog.ErrServiceNotFound)
}

func TestConcurrentInsertLosesWithSlotTaken(t *testing.T) {
	f := newFixture(t)
	res := f.addResource(t, "Chair 1")

	// Bypass the service-level busy check to simulate two requests that both
	// passed it; the repository must still reject the second claim.
	_, err := f.repo.Create(t.Context(), &Booking{
		WorkspaceID: "ws-1", ContactID: "c-1", ServiceID: f.svc.ID,
		Date: monday, StartTime: "09:00", EndTime: "10:00", ResourceID: res.ID,
	}, automation.BookingEventPayload{})
	require.NoError(t, err)

	_, err = f.repo.Create(t.Context(), &Booking{
		WorkspaceID: "ws-1", ContactID: "c-2", ServiceID: f.svc.ID,
		Date: monday, StartTime: "09:00", EndTime: "10:00", ResourceID: res.ID,
	}, automation.BookingEventPayload{})
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestSlotCacheRoundTripAndInvalidation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewSlotCache(client, time.Minute, nil)
	ctx := t.Context()

	_, ok := cache.Get(ctx, "ws-1", "svc-1", monday)
	assert.False(t, ok)

	cache.Set(ctx, "ws-1", "svc-1", monday, []string{"09:00", "10:00"})
	slots, ok := cache.Get(ctx, "ws-1", "svc-1", monday)
	require.True(t, ok)
	assert.Equal(t, []string{"09:00", "10:00"}, slots)

	cache.Invalidate(ctx, "ws-1", monday)
	_, ok = cache.Get(ctx, "ws-1", "svc-1", monday)
	assert.False(t, ok, "version bump orphans old entries")

	// Other dates are untouched.
	cache.Set(ctx, "ws-1", "svc-1", "2026-09-08", []string{"11:00"})
	cache.Invalidate(ctx, "ws-1", monday)
	slots, ok = cache.Get(ctx, "ws-1", "svc-1", "2026-09-08")
	require.True(t, ok)
	assert.Equal(t, []string{"11:00"}, slots)
}

func TestCachedServiceInvalidatesOnBooking(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	f := newFixture(t)
	f.service.cache = NewSlotCache(client, time.Minute, nil)
	f.addResource(t, "Chair 1")
	ctx := t.Context()

	slots, err := f.service.AvailableSlots(ctx, "ws-1", f.svc.ID, monday)
	require.NoError(t, err)
	require.Len(t, slots, 3)

	_, err = f.book(t, "09:00")
	require.NoError(t, err)

	slots, err = f.service.AvailableSlots(ctx, "ws-1", f.svc.ID, monday)
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00", "11:00"}, slots, "cache must not serve the stale list")
}

func TestReminderScanPublishesForTomorrow(t *testing.T) {
	f := newFixture(t)
	f.addResource(t, "Chair 1")

	booked, err := f.book(t, "09:00")
	require.NoError(t, err)
	cancelled, err := f.book(t, "10:00")
	require.NoError(t, err)
	_, err = f.service.UpdateStatus(t.Context(), "ws-1", cancelled.ID, StatusCancelled)
	require.NoError(t, err)

	outbox := automation.NewMemoryOutbox()
	scanner := NewReminderScanner(f.repo, f.catalog, outbox, nil)
	now, err := time.Parse("2006-01-02", "2026-09-06") // the day before
	require.NoError(t, err)

	n, err := scanner.Scan(t.Context(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "cancelled bookings get no reminder")

	events := outbox.All()
	require.Len(t, events, 1)
	assert.Equal(t, automation.EventBookingReminder, events[0].Type)
	var payload automation.BookingEventPayload
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, booked.ID, payload.BookingID)
}

func TestReminderScanIsIdempotentPerDay(t *testing.T) {
	f := newFixture(t)
	f.addResource(t, "Chair 1")

	_, err := f.book(t, "09:00")
	require.NoError(t, err)

	outbox := automation.NewMemoryOutbox()
	scanner := NewReminderScanner(f.repo, f.catalog, outbox, nil)
	now, err := time.Parse("2006-01-02", "2026-09-06")
	require.NoError(t, err)

	n, err := scanner.Scan(t.Context(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// A frequent ticker re-running the same target day must not re-publish.
	for i := 0; i < 3; i++ {
		n, err = scanner.Scan(t.Context(), now.Add(time.Duration(i+1)*time.Hour))
		require.NoError(t, err)
		assert.Zero(t, n)
	}
	reminders := 0
	for _, e := range outbox.All() {
		if e.Type == automation.EventBookingReminder {
			reminders++
		}
	}
	assert.Equal(t, 1, reminders)

	// The day after, the scanner targets a new date and runs again.
	n, err = scanner.Scan(t.Context(), now.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Zero(t, n, "no bookings on the new target date")
	assert.Equal(t, "2026-09-08", scanner.doneDate)
}
