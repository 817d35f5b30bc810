package inventory

import (
	"strings"
	"time"
)

// Item is a stocked consumable tracked per workspace.
type Item struct {
	ID                string    `json:"id"`
	WorkspaceID       string    `json:"workspace_id"`
	Name              string    `json:"name"`
	Quantity          int       `json:"quantity"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Low reports whether the item sits at or below its threshold.
func (i *Item) Low() bool {
	return i.LowStockThreshold > 0 && i.Quantity <= i.LowStockThreshold
}

// CreateItemRequest is the request body for creating an item.
type CreateItemRequest struct {
	WorkspaceID       string `json:"-"`
	Name              string `json:"name"`
	Quantity          int    `json:"quantity"`
	LowStockThreshold int    `json:"low_stock_threshold"`
}

// Validate validates the create item request.
func (r *CreateItemRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrMissingName
	}
	if r.Quantity < 0 {
		return ErrNegativeQuantity
	}
	if r.LowStockThreshold < 0 {
		return ErrNegativeThreshold
	}
	return nil
}

// AdjustRequest changes an item's quantity by a signed delta.
type AdjustRequest struct {
	Delta int `json:"delta"`
}
