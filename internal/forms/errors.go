package forms

import "errors"

var (
	// ErrTemplateNotFound is returned when a template does not exist in the
	// workspace.
	ErrTemplateNotFound = errors.New("form template not found")

	// ErrMissingName is returned when a template name is empty.
	ErrMissingName = errors.New("template name is required")

	// ErrMissingFieldKey is returned when a field has no key.
	ErrMissingFieldKey = errors.New("field key is required")

	// ErrDuplicateFieldKey is returned when two fields share a key.
	ErrDuplicateFieldKey = errors.New("field keys must be unique")

	// ErrUnknownFieldType is returned for an unrecognized field type.
	ErrUnknownFieldType = errors.New("unknown field type")

	// ErrSelectNeedsOptions is returned when a select field has no options.
	ErrSelectNeedsOptions = errors.New("select field requires options")

	// ErrMissingAnswer is returned when a required field has no answer.
	ErrMissingAnswer = errors.New("a required field is missing an answer")
)
