package forms

import (
	"strings"
	"time"
)

// Field types accepted in a template.
const (
	FieldText     = "text"
	FieldTextarea = "textarea"
	FieldNumber   = "number"
	FieldDate     = "date"
	FieldSelect   = "select"
	FieldCheckbox = "checkbox"
)

// Field is one question in a form template.
type Field struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Required bool     `json:"required,omitempty"`
	Options  []string `json:"options,omitempty"`
}

// Validate validates a single field definition.
func (f Field) Validate() error {
	if strings.TrimSpace(f.Key) == "" {
		return ErrMissingFieldKey
	}
	switch f.Type {
	case FieldText, FieldTextarea, FieldNumber, FieldDate, FieldCheckbox:
	case FieldSelect:
		if len(f.Options) == 0 {
			return ErrSelectNeedsOptions
		}
	default:
		return ErrUnknownFieldType
	}
	return nil
}

// Template is a workspace-defined intake form.
type Template struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Name        string    `json:"name"`
	Fields      []Field   `json:"fields"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateTemplateRequest is the request body for creating a template.
type CreateTemplateRequest struct {
	WorkspaceID string  `json:"-"`
	Name        string  `json:"name"`
	Fields      []Field `json:"fields"`
}

// Validate validates the create template request.
func (r *CreateTemplateRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrMissingName
	}
	seen := map[string]bool{}
	for _, field := range r.Fields {
		if err := field.Validate(); err != nil {
			return err
		}
		if seen[field.Key] {
			return ErrDuplicateFieldKey
		}
		seen[field.Key] = true
	}
	return nil
}

// Submission is one filled-in form.
type Submission struct {
	ID          string         `json:"id"`
	TemplateID  string         `json:"template_id"`
	WorkspaceID string         `json:"workspace_id"`
	ContactID   string         `json:"contact_id,omitempty"`
	Answers     map[string]any `json:"answers"`
	CreatedAt   time.Time      `json:"created_at"`
}

// SubmitRequest is the request body for submitting a form.
type SubmitRequest struct {
	ContactID string         `json:"contact_id"`
	Answers   map[string]any `json:"answers"`
}

// ValidateAgainst checks required fields against the template.
func (r *SubmitRequest) ValidateAgainst(tpl *Template) error {
	for _, field := range tpl.Fields {
		if !field.Required {
			continue
		}
		value, ok := r.Answers[field.Key]
		if !ok || value == nil || value == "" {
			return ErrMissingAnswer
		}
	}
	return nil
}
