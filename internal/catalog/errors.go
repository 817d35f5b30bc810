package catalog

import "errors"

var (
	// ErrServiceNotFound is returned when a service does not exist in the
	// workspace.
	ErrServiceNotFound = errors.New("service not found")

	// ErrResourceNotFound is returned when a resource does not exist in the
	// workspace.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrServiceInUse is returned when deleting a service that still has
	// non-cancelled bookings.
	ErrServiceInUse = errors.New("service has active bookings")

	// ErrMissingName is returned when a name is empty.
	ErrMissingName = errors.New("name is required")

	// ErrMissingResourceType is returned when a resource has no type.
	ErrMissingResourceType = errors.New("resource type is required")

	// ErrInvalidDuration is returned when a service duration is not positive.
	ErrInvalidDuration = errors.New("duration must be a positive number of minutes")

	// ErrInvalidDayOfWeek is returned when a day is outside 0..6.
	ErrInvalidDayOfWeek = errors.New("day of week must be between 0 and 6")

	// ErrInvalidClock is returned when a time string is not "HH:MM".
	ErrInvalidClock = errors.New("invalid time, expected HH:MM")

	// ErrWindowOrder is returned when a window ends at or before it starts.
	ErrWindowOrder = errors.New("window end must be after start")
)
