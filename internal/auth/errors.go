package auth

import "errors"

var (
	// ErrInvalidCredentials is returned when email or password do not match.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUserNotFound is returned when a user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken is returned when the email is already registered in the workspace.
	ErrEmailTaken = errors.New("email already registered")

	ErrInvalidEmail = errors.New("a valid email is required")
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	ErrMissingName  = errors.New("name is required")
)
