package scheduling

import (
	"strings"
	"time"
)

// Booking statuses.
const (
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusNoShow    = "no_show"
	StatusCancelled = "cancelled"
)

// Booking occupies one resource unit and one staff unit at its exact
// (date, start time) pair. Contention is matched on the literal start-time
// string; duration windows do not overlap-check against each other.
type Booking struct {
	ID           string    `json:"id"`
	WorkspaceID  string    `json:"workspace_id"`
	ContactID    string    `json:"contact_id"`
	ServiceID    string    `json:"service_id"`
	Date         string    `json:"date"`       // YYYY-MM-DD
	StartTime    string    `json:"start_time"` // HH:MM
	EndTime      string    `json:"end_time"`   // derived, wraps past midnight
	Status       string    `json:"status"`
	ResourceID   string    `json:"resource_id,omitempty"`
	AssignedToID string    `json:"assigned_to_id,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Active reports whether the booking still consumes capacity.
func (b *Booking) Active() bool {
	return b.Status != StatusCancelled
}

// CreateBookingRequest is the request body for creating a booking.
type CreateBookingRequest struct {
	WorkspaceID string `json:"-"`
	ContactID   string `json:"contact_id"`
	ServiceID   string `json:"service_id"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Notes       string `json:"notes"`
}

// Validate validates identifiers and the date/time formats.
func (r *CreateBookingRequest) Validate() error {
	if strings.TrimSpace(r.ContactID) == "" {
		return ErrMissingContact
	}
	if strings.TrimSpace(r.ServiceID) == "" {
		return ErrMissingService
	}
	if _, err := time.Parse("2006-01-02", r.Date); err != nil {
		return ErrInvalidDate
	}
	if _, err := time.Parse("15:04", r.Time); err != nil {
		return ErrInvalidTime
	}
	return nil
}

// ValidStatus reports whether s is a known booking status.
func ValidStatus(s string) bool {
	switch s {
	case StatusConfirmed, StatusCompleted, StatusNoShow, StatusCancelled:
		return true
	}
	return false
}

// SlotUse is one active booking's capacity claim on a date, as seen by the
// resolver and creator.
type SlotUse struct {
	StartTime    string
	ResourceID   string
	AssignedToID string
}

// ListFilter narrows booking listings.
type ListFilter struct {
	Date      string
	ContactID string
	Status    string
	Limit     int
	Offset    int
}
