package scheduling

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/careops/platform/internal/catalog"
	"github.com/careops/platform/internal/contacts"
	"github.com/careops/platform/internal/tenancy"
	"github.com/careops/platform/pkg/logging"
)

// Handler handles HTTP requests for slots and bookings.
type Handler struct {
	service  *Service
	contacts contacts.Repository
	logger   *logging.Logger
}

// NewHandler creates a new scheduling handler. The contacts repository backs
// inline contact creation on the public booking endpoint.
func NewHandler(service *Service, contactsRepo contacts.Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, contacts: contactsRepo, logger: logger}
}

// Slots handles GET /public/workspaces/{slug}/services/{serviceID}/slots
// requests. Also mounted on the authed surface.
func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unknown workspace", http.StatusNotFound)
		return
	}

	date := r.URL.Query().Get("date")
	slots, err := h.service.AvailableSlots(r.Context(), workspaceID, chi.URLParam(r, "serviceID"), date)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidDate):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, catalog.ErrServiceNotFound):
			http.Error(w, "service not found", http.StatusNotFound)
		default:
			h.logger.Error("failed to resolve slots", "error", err, "workspace_id", workspaceID)
			http.Error(w, "failed to resolve slots", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"date": date, "slots": slots})
}

// publicBookingRequest lets the public flow reference an existing contact or
// supply one inline.
type publicBookingRequest struct {
	ContactID string `json:"contact_id"`
	Contact   *struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	} `json:"contact"`
	ServiceID string `json:"service_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Notes     string `json:"notes"`
}

// CreatePublic handles POST /public/workspaces/{slug}/bookings requests.
func (h *Handler) CreatePublic(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unknown workspace", http.StatusNotFound)
		return
	}

	var req publicBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	contactID := req.ContactID
	if contactID == "" && req.Contact != nil {
		contact, err := h.contacts.Create(r.Context(), &contacts.CreateContactRequest{
			WorkspaceID: workspaceID,
			Name:        req.Contact.Name,
			Email:       req.Contact.Email,
			Phone:       req.Contact.Phone,
			Source:      "booking_form",
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		contactID = contact.ID
	}

	h.create(w, r, &CreateBookingRequest{
		WorkspaceID: workspaceID,
		ContactID:   contactID,
		ServiceID:   req.ServiceID,
		Date:        req.Date,
		Time:        req.Time,
		Notes:       req.Notes,
	})
}

// Create handles POST /bookings requests on the authed surface.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.WorkspaceID = workspaceID
	h.create(w, r, &req)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, req *CreateBookingRequest) {
	booking, err := h.service.CreateBooking(r.Context(), req)
	if err != nil {
		h.writeCreateError(w, err, req.WorkspaceID)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(booking)
}

func (h *Handler) writeCreateError(w http.ResponseWriter, err error, workspaceID string) {
	switch {
	case errors.Is(err, ErrMissingContact),
		errors.Is(err, ErrMissingService),
		errors.Is(err, ErrInvalidDate),
		errors.Is(err, ErrInvalidTime):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, catalog.ErrServiceNotFound):
		http.Error(w, "service not found", http.StatusNotFound)
	case errors.Is(err, ErrNoResourceFree),
		errors.Is(err, ErrNoStaffFree),
		errors.Is(err, ErrSlotTaken):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error("failed to create booking", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to create booking", http.StatusInternalServerError)
	}
}

// List handles GET /bookings requests.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	filter := ListFilter{
		Date:      q.Get("date"),
		ContactID: q.Get("contact_id"),
		Status:    q.Get("status"),
	}
	bookings, err := h.service.List(r.Context(), workspaceID, filter)
	if err != nil {
		h.logger.Error("failed to list bookings", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to list bookings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(bookings)
}

// Get handles GET /bookings/{bookingID} requests.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	booking, err := h.service.Get(r.Context(), workspaceID, chi.URLParam(r, "bookingID"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "booking not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load booking", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to load booking", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(booking)
}

// UpdateStatus handles PATCH /bookings/{bookingID}/status requests.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	booking, err := h.service.UpdateStatus(r.Context(), workspaceID, chi.URLParam(r, "bookingID"), req.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidStatus):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrNotFound):
			http.Error(w, "booking not found", http.StatusNotFound)
		default:
			h.logger.Error("failed to update booking", "error", err, "workspace_id", workspaceID)
			http.Error(w, "failed to update booking", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(booking)
}
