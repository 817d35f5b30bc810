package contacts

import "errors"

var (
	// ErrInvalidName is returned when the name is missing.
	ErrInvalidName = errors.New("name is required")

	// ErrMissingContactInfo is returned when both email and phone are missing.
	ErrMissingContactInfo = errors.New("either email or phone is required")

	// ErrMissingWorkspaceID is returned when no workspace scope is set.
	ErrMissingWorkspaceID = errors.New("workspace id is required")

	// ErrNotFound is returned when a contact is not found.
	ErrNotFound = errors.New("contact not found")
)
