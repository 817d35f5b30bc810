package contacts

import (
	"strings"
	"time"
)

// Contact represents a customer record in a workspace's CRM.
type Contact struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Source      string    `json:"source"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateContactRequest represents the request body for creating a contact.
type CreateContactRequest struct {
	WorkspaceID string `json:"-"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Source      string `json:"source"`
	Notes       string `json:"notes"`
}

// Validate validates the create contact request.
func (r *CreateContactRequest) Validate() error {
	if strings.TrimSpace(r.WorkspaceID) == "" {
		return ErrMissingWorkspaceID
	}
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidName
	}
	if r.Email == "" && r.Phone == "" {
		return ErrMissingContactInfo
	}
	return nil
}

// ListFilter narrows contact listings.
type ListFilter struct {
	Limit  int
	Offset int
	Search string
}

func (f ListFilter) normalize() (limit, offset int) {
	limit = f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset = f.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
