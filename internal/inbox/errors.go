package inbox

import "errors"

var (
	// ErrNotFound is returned when a conversation is not found.
	ErrNotFound = errors.New("conversation not found")

	// ErrInvalidAuthor is returned for unknown author types.
	ErrInvalidAuthor = errors.New("author_type must be contact, staff, or system")

	// ErrEmptyBody is returned when a message body is blank.
	ErrEmptyBody = errors.New("message body is required")
)
