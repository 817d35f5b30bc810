package exports

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"time"

	"github.com/careops/platform/internal/contacts"
	"github.com/careops/platform/internal/scheduling"
	"github.com/careops/platform/pkg/logging"
)

// Export kinds.
const (
	KindContacts = "contacts"
	KindBookings = "bookings"
)

// ErrUnknownKind is returned for export kinds the exporter does not support.
var ErrUnknownKind = errors.New("exports: unknown export kind")

// pageSize bounds each repository read while paging through a workspace.
const pageSize = 100

// Exporter renders workspace data as CSV and uploads it to the store.
type Exporter struct {
	store    *Store
	contacts contacts.Repository
	bookings scheduling.Repository
	logger   *logging.Logger
	now      func() time.Time
}

// NewExporter creates an exporter.
func NewExporter(store *Store, contactRepo contacts.Repository, bookingRepo scheduling.Repository, logger *logging.Logger) *Exporter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Exporter{
		store:    store,
		contacts: contactRepo,
		bookings: bookingRepo,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Enabled reports whether the underlying store is configured.
func (e *Exporter) Enabled() bool {
	return e.store.Enabled()
}

// Run produces one export and returns the object key it was written to.
func (e *Exporter) Run(ctx context.Context, workspaceID, kind string) (string, error) {
	var (
		data []byte
		err  error
	)
	switch kind {
	case KindContacts:
		data, err = e.contactsCSV(ctx, workspaceID)
	case KindBookings:
		data, err = e.bookingsCSV(ctx, workspaceID)
	default:
		return "", ErrUnknownKind
	}
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("exports/%s/%s-%s.csv", workspaceID, e.now().Format("20060102T150405Z"), kind)
	if err := e.store.Put(ctx, key, "text/csv", data); err != nil {
		return "", err
	}
	return key, nil
}

func (e *Exporter) contactsCSV(ctx context.Context, workspaceID string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"id", "name", "email", "phone", "source", "notes", "created_at"}); err != nil {
		return nil, err
	}

	for offset := 0; ; offset += pageSize {
		page, err := e.contacts.List(ctx, workspaceID, contacts.ListFilter{Limit: pageSize, Offset: offset})
		if err != nil {
			return nil, fmt.Errorf("exports: list contacts: %w", err)
		}
		for _, c := range page {
			if err := w.Write([]string{
				c.ID, c.Name, c.Email, c.Phone, c.Source, c.Notes,
				c.CreatedAt.UTC().Format(time.RFC3339),
			}); err != nil {
				return nil, err
			}
		}
		if len(page) < pageSize {
			break
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

func (e *Exporter) bookingsCSV(ctx context.Context, workspaceID string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{
		"id", "contact_id", "service_id", "date", "start_time", "end_time",
		"status", "resource_id", "assigned_to_id", "created_at",
	}); err != nil {
		return nil, err
	}

	for offset := 0; ; offset += pageSize {
		page, err := e.bookings.List(ctx, workspaceID, scheduling.ListFilter{Limit: pageSize, Offset: offset})
		if err != nil {
			return nil, fmt.Errorf("exports: list bookings: %w", err)
		}
		for _, b := range page {
			if err := w.Write([]string{
				b.ID, b.ContactID, b.ServiceID, b.Date, b.StartTime, b.EndTime,
				b.Status, b.ResourceID, b.AssignedToID,
				b.CreatedAt.UTC().Format(time.RFC3339),
			}); err != nil {
				return nil, err
			}
		}
		if len(page) < pageSize {
			break
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}
