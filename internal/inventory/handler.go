package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/careops/platform/internal/automation"
	"github.com/careops/platform/internal/tenancy"
	"github.com/careops/platform/pkg/logging"
)

// EventPublisher publishes automation events for inventory changes.
type EventPublisher interface {
	Publish(ctx context.Context, workspaceID, eventType string, payload any) error
}

// Handler handles HTTP requests for inventory items.
type Handler struct {
	repo   Repository
	events EventPublisher
	logger *logging.Logger
}

// NewHandler creates a new inventory handler.
func NewHandler(repo Repository, events EventPublisher, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, events: events, logger: logger}
}

// Create handles POST /inventory requests.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.WorkspaceID = workspaceID

	item, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrMissingName) || errors.Is(err, ErrNegativeQuantity) || errors.Is(err, ErrNegativeThreshold) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to create item", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to create item", http.StatusInternalServerError)
		return
	}

	h.logger.Info("inventory item created", "workspace_id", workspaceID, "item_id", item.ID)
	writeJSON(w, http.StatusCreated, item)
}

// List handles GET /inventory requests.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	items, err := h.repo.List(r.Context(), workspaceID)
	if err != nil {
		h.logger.Error("failed to list items", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to list items", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Get handles GET /inventory/{itemID} requests.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	item, err := h.repo.Get(r.Context(), workspaceID, chi.URLParam(r, "itemID"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "item not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load item", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to load item", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Adjust handles POST /inventory/{itemID}/adjust requests. When the
// adjustment drops an item to or below its threshold, an inventory.low
// event is queued so automation can alert the workspace owner.
func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	var req AdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	item, err := h.repo.Adjust(r.Context(), workspaceID, chi.URLParam(r, "itemID"), req.Delta)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, "item not found", http.StatusNotFound)
		case errors.Is(err, ErrInsufficientStock):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.logger.Error("failed to adjust item", "error", err, "workspace_id", workspaceID)
			http.Error(w, "failed to adjust item", http.StatusInternalServerError)
		}
		return
	}

	if h.crossedThreshold(item, req.Delta) {
		h.publishLowStock(r.Context(), item)
	}
	writeJSON(w, http.StatusOK, item)
}

// Delete handles DELETE /inventory/{itemID} requests.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	if err := h.repo.Delete(r.Context(), workspaceID, chi.URLParam(r, "itemID")); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "item not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to delete item", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to delete item", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// crossedThreshold reports whether this adjustment moved the item from
// above its threshold to at-or-below it. Repeated decrements while the
// item is already low do not re-alert.
func (h *Handler) crossedThreshold(item *Item, delta int) bool {
	if !item.Low() {
		return false
	}
	before := Item{Quantity: item.Quantity - delta, LowStockThreshold: item.LowStockThreshold}
	return !before.Low()
}

func (h *Handler) publishLowStock(ctx context.Context, item *Item) {
	if h.events == nil {
		return
	}
	payload := automation.InventoryLowPayload{
		ItemID:    item.ID,
		Name:      item.Name,
		Quantity:  item.Quantity,
		Threshold: item.LowStockThreshold,
	}
	if err := h.events.Publish(ctx, item.WorkspaceID, automation.EventInventoryLow, payload); err != nil {
		// Stock was already adjusted; the alert is best effort.
		h.logger.Error("failed to publish inventory.low", "error", err, "item_id", item.ID)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
