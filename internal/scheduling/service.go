package scheduling

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/careops/platform/internal/automation"
	"github.com/careops/platform/internal/catalog"
	"github.com/careops/platform/internal/observability/metrics"
	"github.com/careops/platform/pkg/logging"
)

var schedulingTracer = otel.Tracer("careops.internal.scheduling")

// Service implements slot resolution and booking creation over the catalog
// and booking stores.
type Service struct {
	bookings Repository
	catalog  catalog.Repository
	cache    *SlotCache
	logger   *logging.Logger

	// pickIndex selects the staff assignment among free candidates.
	// Uniform-random in production; swappable for deterministic tests.
	pickIndex func(n int) int
}

// NewService wires the scheduling service. cache may be nil.
func NewService(bookings Repository, cat catalog.Repository, cache *SlotCache, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		bookings:  bookings,
		catalog:   cat,
		cache:     cache,
		logger:    logger,
		pickIndex: rand.Intn,
	}
}

// AvailableSlots returns the bookable start times for a service on a date.
// It is a pure read: the result is a point-in-time snapshot, not a
// reservation.
func (s *Service) AvailableSlots(ctx context.Context, workspaceID, serviceID, date string) ([]string, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, ErrInvalidDate
	}

	if slots, ok := s.cache.Get(ctx, workspaceID, serviceID, date); ok {
		metrics.SlotQueries.WithLabelValues("hit").Inc()
		return slots, nil
	}
	metrics.SlotQueries.WithLabelValues("miss").Inc()

	ctx, span := schedulingTracer.Start(ctx, "scheduling.resolve_slots", trace.WithAttributes(
		attribute.String("workspace.id", workspaceID),
		attribute.String("service.id", serviceID),
		attribute.String("booking.date", date),
	))
	defer span.End()
	started := time.Now()

	slots, err := s.resolveSlots(ctx, workspaceID, serviceID, date)
	if err != nil {
		return nil, err
	}
	metrics.SlotResolveDuration.Observe(time.Since(started).Seconds())

	s.cache.Set(ctx, workspaceID, serviceID, date, slots)
	return slots, nil
}

func (s *Service) resolveSlots(ctx context.Context, workspaceID, serviceID, date string) ([]string, error) {
	svc, err := s.catalog.GetService(ctx, workspaceID, serviceID)
	if err != nil {
		return nil, err
	}

	template, err := s.catalog.GetAvailability(ctx, workspaceID, serviceID, dayOfWeek(date))
	if err != nil {
		return nil, err
	}
	// No template row means the day is closed, not an error.
	if template == nil || len(template.Slots) == 0 {
		return []string{}, nil
	}

	uses, err := s.bookings.UsageOn(ctx, workspaceID, date)
	if err != nil {
		return nil, err
	}

	// Resource contention: with zero resources of the type the filter is
	// skipped entirely, matching the fail-open capacity model.
	resourceCount := 0
	resourceSet := map[string]bool{}
	if svc.ResourceType != "" {
		resources, err := s.catalog.ListResourcesByType(ctx, workspaceID, svc.ResourceType)
		if err != nil {
			return nil, err
		}
		resourceCount = len(resources)
		for _, res := range resources {
			resourceSet[res.ID] = true
		}
	}

	// Staff contention: zero qualified staff likewise skips the filter and
	// bookings proceed unassigned.
	staffIDs, err := s.catalog.QualifiedStaffIDs(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	staffSet := map[string]bool{}
	for _, id := range staffIDs {
		staffSet[id] = true
	}

	resourceBusy := map[string]int{}
	staffBusy := map[string]int{}
	for _, use := range uses {
		if use.ResourceID != "" && resourceSet[use.ResourceID] {
			resourceBusy[use.StartTime]++
		}
		if use.AssignedToID != "" && staffSet[use.AssignedToID] {
			staffBusy[use.StartTime]++
		}
	}

	slots := []string{}
	for _, window := range template.Slots {
		start := window.Start
		if resourceCount > 0 && resourceBusy[start] >= resourceCount {
			continue
		}
		if len(staffIDs) > 0 && staffBusy[start] >= len(staffIDs) {
			continue
		}
		slots = append(slots, start)
	}
	return slots, nil
}

// CreateBooking allocates a resource and staff member with the first-free /
// uniform-random heuristics and persists the booking atomically with its
// outbox event. Concurrent claims on the same slot lose with ErrSlotTaken.
func (s *Service) CreateBooking(ctx context.Context, req *CreateBookingRequest) (*Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := schedulingTracer.Start(ctx, "scheduling.create_booking", trace.WithAttributes(
		attribute.String("workspace.id", req.WorkspaceID),
		attribute.String("service.id", req.ServiceID),
		attribute.String("booking.date", req.Date),
		attribute.String("booking.time", req.Time),
	))
	defer span.End()

	svc, err := s.catalog.GetService(ctx, req.WorkspaceID, req.ServiceID)
	if err != nil {
		return nil, err
	}

	startMinutes, err := catalog.ParseClock(req.Time)
	if err != nil {
		return nil, ErrInvalidTime
	}
	endTime := catalog.FormatClock(startMinutes + svc.DurationMinutes)

	uses, err := s.bookings.UsageOn(ctx, req.WorkspaceID, req.Date)
	if err != nil {
		return nil, err
	}
	busyResources := map[string]bool{}
	busyStaff := map[string]bool{}
	for _, use := range uses {
		if use.StartTime != req.Time {
			continue
		}
		if use.ResourceID != "" {
			busyResources[use.ResourceID] = true
		}
		if use.AssignedToID != "" {
			busyStaff[use.AssignedToID] = true
		}
	}

	resourceID, err := s.pickResource(ctx, req.WorkspaceID, svc.ResourceType, busyResources)
	if err != nil {
		metrics.BookingConflicts.WithLabelValues("no_resource").Inc()
		return nil, err
	}
	assignedToID, err := s.pickStaff(ctx, req.ServiceID, busyStaff)
	if err != nil {
		metrics.BookingConflicts.WithLabelValues("no_staff").Inc()
		return nil, err
	}

	booking := &Booking{
		WorkspaceID:  req.WorkspaceID,
		ContactID:    req.ContactID,
		ServiceID:    req.ServiceID,
		Date:         req.Date,
		StartTime:    req.Time,
		EndTime:      endTime,
		ResourceID:   resourceID,
		AssignedToID: assignedToID,
		Notes:        req.Notes,
	}
	event := automation.BookingEventPayload{
		ContactID:   req.ContactID,
		ServiceID:   svc.ID,
		ServiceName: svc.Name,
		Date:        req.Date,
		StartTime:   req.Time,
		EndTime:     endTime,
	}
	created, err := s.bookings.Create(ctx, booking, event)
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			metrics.BookingConflicts.WithLabelValues("slot_taken").Inc()
			s.logger.Warn("booking lost slot race",
				"workspace_id", req.WorkspaceID, "date", req.Date, "time", req.Time)
		}
		return nil, err
	}

	metrics.BookingsCreated.Inc()
	s.cache.Invalidate(ctx, req.WorkspaceID, req.Date)
	s.logger.Info("booking created",
		"workspace_id", created.WorkspaceID, "booking_id", created.ID,
		"date", created.Date, "time", created.StartTime,
		"resource_id", created.ResourceID, "assigned_to_id", created.AssignedToID)
	return created, nil
}

// pickResource returns the first free resource of the service's type, "" when
// the service needs no resource, or ErrNoResourceFree when the pool is
// exhausted. With a type set but zero resources provisioned, the check fails
// open and the booking proceeds without one.
func (s *Service) pickResource(ctx context.Context, workspaceID, resourceType string, busy map[string]bool) (string, error) {
	if resourceType == "" {
		return "", nil
	}
	resources, err := s.catalog.ListResourcesByType(ctx, workspaceID, resourceType)
	if err != nil {
		return "", err
	}
	if len(resources) == 0 {
		return "", nil
	}
	for _, res := range resources {
		if !busy[res.ID] {
			return res.ID, nil
		}
	}
	return "", ErrNoResourceFree
}

// pickStaff returns a uniformly random free qualified staff member, "" when
// nobody is qualified, or ErrNoStaffFree when all qualified staff are booked.
func (s *Service) pickStaff(ctx context.Context, serviceID string, busy map[string]bool) (string, error) {
	staffIDs, err := s.catalog.QualifiedStaffIDs(ctx, serviceID)
	if err != nil {
		return "", err
	}
	if len(staffIDs) == 0 {
		return "", nil
	}
	free := make([]string, 0, len(staffIDs))
	for _, id := range staffIDs {
		if !busy[id] {
			free = append(free, id)
		}
	}
	if len(free) == 0 {
		return "", ErrNoStaffFree
	}
	return free[s.pickIndex(len(free))], nil
}

// UpdateStatus moves a booking through its lifecycle and invalidates the
// day's cached slots, since cancellation frees capacity.
func (s *Service) UpdateStatus(ctx context.Context, workspaceID, id, status string) (*Booking, error) {
	booking, err := s.bookings.UpdateStatus(ctx, workspaceID, id, status)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, workspaceID, booking.Date)
	return booking, nil
}

// Get returns one booking.
func (s *Service) Get(ctx context.Context, workspaceID, id string) (*Booking, error) {
	return s.bookings.Get(ctx, workspaceID, id)
}

// List returns bookings matching the filter.
func (s *Service) List(ctx context.Context, workspaceID string, filter ListFilter) ([]*Booking, error) {
	return s.bookings.List(ctx, workspaceID, filter)
}

// dayOfWeek maps a YYYY-MM-DD date to 0=Sunday..6=Saturday. The weekday of a
// calendar date is timezone-independent; the date itself was chosen by the
// caller in the workspace's locale.
func dayOfWeek(date string) int {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0
	}
	return int(t.Weekday())
}

// Tomorrow returns the reminder target date for a workspace-local "now".
func Tomorrow(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).AddDate(0, 0, 1).Format("2006-01-02")
}
