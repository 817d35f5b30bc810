package workspace

import (
	"strings"
	"time"
)

// Workspace is a tenant: the unit of data isolation for all business records.
type Workspace struct {
	ID          string       `json:"id"`
	Slug        string       `json:"slug"`
	Name        string       `json:"name"`
	Timezone    string       `json:"timezone"`
	EmailConfig *EmailConfig `json:"email_config,omitempty"`
	SMSConfig   *SMSConfig   `json:"sms_config,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// EmailConfig is the workspace's SMTP relay configuration. It is validated
// once when written and marshaled as a typed record, never reparsed ad hoc.
type EmailConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FromEmail string `json:"from_email"`
	FromName  string `json:"from_name,omitempty"`
}

// Validate checks the config is complete enough to send mail.
func (c *EmailConfig) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if strings.TrimSpace(c.Host) == "" {
		return ErrMissingHost
	}
	if c.Port <= 0 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if strings.TrimSpace(c.FromEmail) == "" || !strings.Contains(c.FromEmail, "@") {
		return ErrInvalidFromEmail
	}
	return nil
}

// SMSConfig is the workspace's SMS provider credentials.
type SMSConfig struct {
	AccountSID string `json:"account_sid"`
	AuthToken  string `json:"auth_token"`
	FromNumber string `json:"from_number"`
}

// Validate checks the config is complete enough to send SMS.
func (c *SMSConfig) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if strings.TrimSpace(c.AccountSID) == "" || strings.TrimSpace(c.AuthToken) == "" {
		return ErrMissingCredentials
	}
	if !strings.HasPrefix(strings.TrimSpace(c.FromNumber), "+") {
		return ErrInvalidFromNumber
	}
	return nil
}

// Location resolves the workspace's IANA timezone, falling back to UTC.
func (w *Workspace) Location() *time.Location {
	if w == nil || strings.TrimSpace(w.Timezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(w.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CreateWorkspaceRequest is the request body for creating a workspace.
type CreateWorkspaceRequest struct {
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

// Validate validates the create workspace request.
func (r *CreateWorkspaceRequest) Validate() error {
	if strings.TrimSpace(r.Slug) == "" {
		return ErrMissingSlug
	}
	if strings.ContainsAny(r.Slug, " /?#") {
		return ErrInvalidSlug
	}
	if strings.TrimSpace(r.Name) == "" {
		return ErrMissingName
	}
	if r.Timezone != "" {
		if _, err := time.LoadLocation(r.Timezone); err != nil {
			return ErrInvalidTimezone
		}
	}
	return nil
}

// PublicProfile is the unauthenticated view of a workspace.
type PublicProfile struct {
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

// Public returns the unauthenticated view of the workspace.
func (w *Workspace) Public() PublicProfile {
	return PublicProfile{Slug: w.Slug, Name: w.Name, Timezone: w.Timezone}
}
