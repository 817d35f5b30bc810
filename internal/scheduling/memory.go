package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/careops/platform/internal/automation"
)

// EventPublisher records domain events for the automation engine.
type EventPublisher interface {
	Publish(ctx context.Context, workspaceID, eventType string, payload any) error
}

// InMemoryRepository is a map-backed Repository for tests and local
// development. The slot-uniqueness check runs under the repository lock,
// standing in for the partial unique indexes.
type InMemoryRepository struct {
	mu       sync.Mutex
	bookings map[string]*Booking
	events   EventPublisher
}

// NewInMemoryRepository creates an empty in-memory booking store.
func NewInMemoryRepository(events EventPublisher) *InMemoryRepository {
	return &InMemoryRepository{
		bookings: make(map[string]*Booking),
		events:   events,
	}
}

// Create inserts the booking after a conflict check, then publishes
// booking.created.
func (r *InMemoryRepository) Create(ctx context.Context, b *Booking, event automation.BookingEventPayload) (*Booking, error) {
	r.mu.Lock()
	for _, existing := range r.bookings {
		if !existing.Active() || existing.Date != b.Date || existing.StartTime != b.StartTime {
			continue
		}
		if b.ResourceID != "" && existing.ResourceID == b.ResourceID {
			r.mu.Unlock()
			return nil, ErrSlotTaken
		}
		if b.AssignedToID != "" && existing.AssignedToID == b.AssignedToID {
			r.mu.Unlock()
			return nil, ErrSlotTaken
		}
	}
	b.ID = uuid.NewString()
	b.Status = StatusConfirmed
	b.CreatedAt = time.Now().UTC()
	copied := *b
	r.bookings[b.ID] = &copied
	r.mu.Unlock()

	if r.events != nil {
		event.BookingID = b.ID
		if err := r.events.Publish(ctx, b.WorkspaceID, automation.EventBookingCreated, event); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Get fetches one booking scoped to the workspace.
func (r *InMemoryRepository) Get(_ context.Context, workspaceID, id string) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok || b.WorkspaceID != workspaceID {
		return nil, ErrNotFound
	}
	copied := *b
	return &copied, nil
}

// List returns bookings for a workspace, most recent date first.
func (r *InMemoryRepository) List(_ context.Context, workspaceID string, filter ListFilter) ([]*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []*Booking{}
	for _, b := range r.bookings {
		if b.WorkspaceID != workspaceID {
			continue
		}
		if filter.Date != "" && b.Date != filter.Date {
			continue
		}
		if filter.ContactID != "" && b.ContactID != filter.ContactID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		copied := *b
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].StartTime < out[j].StartTime
	})

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return []*Booking{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateStatus moves a booking to a new status.
func (r *InMemoryRepository) UpdateStatus(_ context.Context, workspaceID, id, status string) (*Booking, error) {
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok || b.WorkspaceID != workspaceID {
		return nil, ErrNotFound
	}
	b.Status = status
	copied := *b
	return &copied, nil
}

// UsageOn returns every active capacity claim on a date.
func (r *InMemoryRepository) UsageOn(_ context.Context, workspaceID, date string) ([]SlotUse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	uses := []SlotUse{}
	for _, b := range r.bookings {
		if b.WorkspaceID != workspaceID || b.Date != date || !b.Active() {
			continue
		}
		uses = append(uses, SlotUse{StartTime: b.StartTime, ResourceID: b.ResourceID, AssignedToID: b.AssignedToID})
	}
	return uses, nil
}

// DueForReminder returns confirmed bookings on the given date.
func (r *InMemoryRepository) DueForReminder(_ context.Context, date string) ([]*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []*Booking{}
	for _, b := range r.bookings {
		if b.Date == date && b.Status == StatusConfirmed {
			copied := *b
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}
