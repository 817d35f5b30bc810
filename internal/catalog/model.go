package catalog

import (
	"fmt"
	"strings"
	"time"
)

// Service is a bookable offering within a workspace.
type Service struct {
	ID              string    `json:"id"`
	WorkspaceID     string    `json:"workspace_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	DurationMinutes int       `json:"duration_minutes"`
	PriceCents      int64     `json:"price_cents"`
	ResourceType    string    `json:"resource_type,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// TimeWindow is one bookable template entry. Start doubles as the slot's
// start time; the template is not subdivided by service duration.
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Validate checks the window's clock strings.
func (w TimeWindow) Validate() error {
	start, err := ParseClock(w.Start)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidClock, w.Start)
	}
	end, err := ParseClock(w.End)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidClock, w.End)
	}
	if end <= start {
		return ErrWindowOrder
	}
	return nil
}

// Availability is the weekly template of bookable windows for a service.
// At most one row exists per (workspace, service, dayOfWeek).
type Availability struct {
	ID          string       `json:"id"`
	WorkspaceID string       `json:"workspace_id"`
	ServiceID   string       `json:"service_id"`
	DayOfWeek   int          `json:"day_of_week"` // 0=Sunday .. 6=Saturday
	Slots       []TimeWindow `json:"slots"`
}

// Resource is a finite physical asset (room, bay, chair). Each row is one
// unit of concurrency; there is no capacity field.
type Resource struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateServiceRequest is the request body for creating a service.
type CreateServiceRequest struct {
	WorkspaceID     string `json:"-"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
	ResourceType    string `json:"resource_type"`
}

// Validate validates the create service request.
func (r *CreateServiceRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrMissingName
	}
	if r.DurationMinutes <= 0 {
		return ErrInvalidDuration
	}
	return nil
}

// UpsertAvailabilityRequest replaces the template for one weekday.
type UpsertAvailabilityRequest struct {
	ServiceID string       `json:"service_id"`
	DayOfWeek int          `json:"day_of_week"`
	Slots     []TimeWindow `json:"slots"`
}

// Validate validates the upsert availability request.
func (r *UpsertAvailabilityRequest) Validate() error {
	if r.DayOfWeek < 0 || r.DayOfWeek > 6 {
		return ErrInvalidDayOfWeek
	}
	for _, window := range r.Slots {
		if err := window.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// CreateResourceRequest is the request body for creating a resource.
type CreateResourceRequest struct {
	WorkspaceID string `json:"-"`
	Name        string `json:"name"`
	Type        string `json:"type"`
}

// Validate validates the create resource request.
func (r *CreateResourceRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrMissingName
	}
	if strings.TrimSpace(r.Type) == "" {
		return ErrMissingResourceType
	}
	return nil
}

// ParseClock parses an "HH:MM" string into minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes since midnight as "HH:MM", wrapping past
// midnight.
func FormatClock(minutes int) string {
	minutes = ((minutes % (24 * 60)) + 24*60) % (24 * 60)
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
