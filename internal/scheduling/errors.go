package scheduling

import "errors"

var (
	// ErrNotFound is returned when a booking does not exist in the workspace.
	ErrNotFound = errors.New("booking not found")

	// ErrMissingContact is returned when the contact reference is empty.
	ErrMissingContact = errors.New("contact id is required")

	// ErrMissingService is returned when the service reference is empty.
	ErrMissingService = errors.New("service id is required")

	// ErrInvalidDate is returned when the date is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

	// ErrInvalidTime is returned when the time is not HH:MM.
	ErrInvalidTime = errors.New("invalid time, expected HH:MM")

	// ErrInvalidStatus is returned for an unknown booking status.
	ErrInvalidStatus = errors.New("invalid booking status")

	// ErrNoResourceFree is returned when every resource of the service's
	// type is already booked at the requested time.
	ErrNoResourceFree = errors.New("no resource available at the requested time")

	// ErrNoStaffFree is returned when every qualified staff member is
	// already booked at the requested time.
	ErrNoStaffFree = errors.New("no staff available at the requested time")

	// ErrSlotTaken is returned when a concurrent request claimed the same
	// resource or staff slot first; the unique index rejected this insert.
	ErrSlotTaken = errors.New("slot was taken by a concurrent booking")
)
