package workspace

import "errors"

var (
	// ErrNotFound is returned when a workspace does not exist.
	ErrNotFound = errors.New("workspace not found")

	// ErrSlugTaken is returned when the requested slug is already in use.
	ErrSlugTaken = errors.New("slug already in use")

	ErrMissingSlug     = errors.New("slug is required")
	ErrInvalidSlug     = errors.New("slug must not contain spaces or url separators")
	ErrMissingName     = errors.New("name is required")
	ErrInvalidTimezone = errors.New("timezone is not a valid IANA zone")

	ErrNilConfig          = errors.New("config is required")
	ErrMissingHost        = errors.New("smtp host is required")
	ErrInvalidPort        = errors.New("smtp port must be between 1 and 65535")
	ErrInvalidFromEmail   = errors.New("from email is invalid")
	ErrMissingCredentials = errors.New("account sid and auth token are required")
	ErrInvalidFromNumber  = errors.New("from number must be E.164 formatted")
)
