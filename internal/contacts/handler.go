package contacts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/careops/platform/internal/tenancy"
	"github.com/careops/platform/pkg/logging"
)

// EventPublisher records domain events for the automation engine.
type EventPublisher interface {
	Publish(ctx context.Context, workspaceID, eventType string, payload any) error
}

// ContactCreatedEvent is the payload published when a contact is created.
type ContactCreatedEvent struct {
	ContactID string `json:"contact_id"`
	Name      string `json:"name"`
	Source    string `json:"source,omitempty"`
}

// Handler handles HTTP requests for contacts.
type Handler struct {
	repo   Repository
	events EventPublisher
	logger *logging.Logger
}

// NewHandler creates a new contacts handler.
func NewHandler(repo Repository, events EventPublisher, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, events: events, logger: logger}
}

// Create handles POST /contacts requests.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	var req CreateContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.WorkspaceID = workspaceID

	contact, err := h.create(r.Context(), &req)
	if err != nil {
		h.writeCreateError(w, err, workspaceID)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(contact)
}

// create persists the contact and publishes contact.created. Used by both
// the authed endpoint and the public intake form.
func (h *Handler) create(ctx context.Context, req *CreateContactRequest) (*Contact, error) {
	contact, err := h.repo.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	if h.events != nil {
		event := ContactCreatedEvent{ContactID: contact.ID, Name: contact.Name, Source: contact.Source}
		if err := h.events.Publish(ctx, contact.WorkspaceID, "contact.created", event); err != nil {
			// The contact row exists; the missed welcome is visible in the
			// automation log gap, so don't fail the request.
			h.logger.Error("failed to publish contact.created", "error", err, "contact_id", contact.ID)
		}
	}
	h.logger.Info("contact created", "workspace_id", contact.WorkspaceID, "contact_id", contact.ID, "source", contact.Source)
	return contact, nil
}

// CreatePublic handles POST /public/workspaces/{slug}/contact requests. The
// workspace is resolved by the router middleware; the source is forced so
// staff can tell form intakes from manual entry.
func (h *Handler) CreatePublic(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unknown workspace", http.StatusNotFound)
		return
	}

	var req CreateContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.WorkspaceID = workspaceID
	req.Source = "contact_form"

	contact, err := h.create(r.Context(), &req)
	if err != nil {
		h.writeCreateError(w, err, workspaceID)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": contact.ID})
}

// List handles GET /contacts requests.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	filter := ListFilter{Limit: limit, Offset: offset, Search: q.Get("search")}

	list, err := h.repo.List(r.Context(), workspaceID, filter)
	if err != nil {
		h.logger.Error("failed to list contacts", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to list contacts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// Get handles GET /contacts/{contactID} requests.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	contact, err := h.repo.GetByID(r.Context(), workspaceID, chi.URLParam(r, "contactID"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "contact not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load contact", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to load contact", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(contact)
}

func (h *Handler) writeCreateError(w http.ResponseWriter, err error, workspaceID string) {
	switch {
	case errors.Is(err, ErrInvalidName),
		errors.Is(err, ErrMissingContactInfo),
		errors.Is(err, ErrMissingWorkspaceID):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("failed to create contact", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to create contact", http.StatusInternalServerError)
	}
}
