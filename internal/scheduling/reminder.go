package scheduling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/careops/platform/internal/automation"
	"github.com/careops/platform/internal/catalog"
	"github.com/careops/platform/pkg/logging"
)

// ReminderScanner publishes booking.reminder events for tomorrow's confirmed
// bookings. Scan is idempotent per target date within a process, so callers
// may tick it as often as they like; the automation log keeps the audit
// trail of what was actually sent.
type ReminderScanner struct {
	bookings Repository
	catalog  catalog.Repository
	events   EventPublisher
	logger   *logging.Logger

	mu       sync.Mutex
	doneDate string
}

// NewReminderScanner wires the scanner.
func NewReminderScanner(bookings Repository, cat catalog.Repository, events EventPublisher, logger *logging.Logger) *ReminderScanner {
	if logger == nil {
		logger = logging.Default()
	}
	return &ReminderScanner{bookings: bookings, catalog: cat, events: events, logger: logger}
}

// Scan enqueues one reminder event per confirmed booking on the day after
// now. Repeated calls for a date already fully scanned are no-ops; a scan
// with publish failures leaves the date unmarked so the next tick retries.
// Returns the number of events published.
func (s *ReminderScanner) Scan(ctx context.Context, now time.Time) (int, error) {
	date := Tomorrow(now, time.UTC)

	s.mu.Lock()
	done := s.doneDate == date
	s.mu.Unlock()
	if done {
		return 0, nil
	}

	due, err := s.bookings.DueForReminder(ctx, date)
	if err != nil {
		return 0, fmt.Errorf("scheduling: reminder scan: %w", err)
	}

	published := 0
	for _, b := range due {
		serviceName := ""
		if svc, err := s.catalog.GetService(ctx, b.WorkspaceID, b.ServiceID); err == nil {
			serviceName = svc.Name
		}
		payload := automation.BookingEventPayload{
			BookingID:   b.ID,
			ContactID:   b.ContactID,
			ServiceID:   b.ServiceID,
			ServiceName: serviceName,
			Date:        b.Date,
			StartTime:   b.StartTime,
			EndTime:     b.EndTime,
		}
		if err := s.events.Publish(ctx, b.WorkspaceID, automation.EventBookingReminder, payload); err != nil {
			s.logger.Error("failed to publish reminder", "error", err, "booking_id", b.ID)
			continue
		}
		published++
	}
	if published == len(due) {
		s.mu.Lock()
		s.doneDate = date
		s.mu.Unlock()
	}
	s.logger.Info("reminder scan complete", "date", date, "due", len(due), "published", published)
	return published, nil
}
