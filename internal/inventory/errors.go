package inventory

import "errors"

var (
	// ErrNotFound is returned when an item does not exist in the workspace.
	ErrNotFound = errors.New("inventory item not found")

	// ErrMissingName is returned when an item name is empty.
	ErrMissingName = errors.New("item name is required")

	// ErrNegativeQuantity is returned for a negative starting quantity.
	ErrNegativeQuantity = errors.New("quantity cannot be negative")

	// ErrNegativeThreshold is returned for a negative threshold.
	ErrNegativeThreshold = errors.New("threshold cannot be negative")

	// ErrInsufficientStock is returned when an adjustment would take the
	// quantity below zero.
	ErrInsufficientStock = errors.New("adjustment would make quantity negative")
)
