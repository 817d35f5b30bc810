package auth

import (
	"strings"
	"time"
)

// Role values for workspace users.
const (
	RoleOwner = "owner"
	RoleStaff = "staff"
)

// User is a staff member or owner of a workspace.
type User struct {
	ID           string    `json:"id"`
	WorkspaceID  string    `json:"workspace_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// RegisterRequest creates a workspace together with its owner account.
type RegisterRequest struct {
	WorkspaceSlug string `json:"workspace_slug"`
	WorkspaceName string `json:"workspace_name"`
	Timezone      string `json:"timezone"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	Name          string `json:"name"`
}

// Validate validates the register request.
func (r *RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" || !strings.Contains(r.Email, "@") {
		return ErrInvalidEmail
	}
	if len(r.Password) < 8 {
		return ErrWeakPassword
	}
	if strings.TrimSpace(r.Name) == "" {
		return ErrMissingName
	}
	return nil
}

// LoginRequest authenticates a user within a workspace.
type LoginRequest struct {
	WorkspaceSlug string `json:"workspace_slug"`
	Email         string `json:"email"`
	Password      string `json:"password"`
}

// CreateStaffRequest adds a staff user to the caller's workspace.
type CreateStaffRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Validate validates the create staff request.
func (r *CreateStaffRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" || !strings.Contains(r.Email, "@") {
		return ErrInvalidEmail
	}
	if len(r.Password) < 8 {
		return ErrWeakPassword
	}
	if strings.TrimSpace(r.Name) == "" {
		return ErrMissingName
	}
	return nil
}

// TokenResponse is returned by register and login.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}
