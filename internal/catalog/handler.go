package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/careops/platform/internal/tenancy"
	"github.com/careops/platform/pkg/logging"
)

// Handler handles HTTP requests for services, availability, and resources.
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a new catalog handler.
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// CreateService handles POST /services requests.
func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	var req CreateServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.WorkspaceID = workspaceID

	svc, err := h.repo.CreateService(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrMissingName) || errors.Is(err, ErrInvalidDuration) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to create service", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to create service", http.StatusInternalServerError)
		return
	}

	h.logger.Info("service created", "workspace_id", workspaceID, "service_id", svc.ID)
	writeJSON(w, http.StatusCreated, svc)
}

// ListServices handles GET /services requests.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	services, err := h.repo.ListServices(r.Context(), workspaceID)
	if err != nil {
		h.logger.Error("failed to list services", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to list services", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, services)
}

// GetService handles GET /services/{serviceID} requests.
func (h *Handler) GetService(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	svc, err := h.repo.GetService(r.Context(), workspaceID, chi.URLParam(r, "serviceID"))
	if err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			http.Error(w, "service not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load service", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to load service", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

// DeleteService handles DELETE /services/{serviceID} requests. Deletion is
// refused while the service still has non-cancelled bookings.
func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	serviceID := chi.URLParam(r, "serviceID")
	if err := h.repo.DeleteService(r.Context(), workspaceID, serviceID); err != nil {
		switch {
		case errors.Is(err, ErrServiceNotFound):
			http.Error(w, "service not found", http.StatusNotFound)
		case errors.Is(err, ErrServiceInUse):
			http.Error(w, "service has active bookings", http.StatusConflict)
		default:
			h.logger.Error("failed to delete service", "error", err, "workspace_id", workspaceID)
			http.Error(w, "failed to delete service", http.StatusInternalServerError)
		}
		return
	}

	h.logger.Info("service deleted", "workspace_id", workspaceID, "service_id", serviceID)
	w.WriteHeader(http.StatusNoContent)
}

// UpsertAvailability handles PUT /services/{serviceID}/availability requests.
func (h *Handler) UpsertAvailability(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	var req UpsertAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.ServiceID = chi.URLParam(r, "serviceID")

	av, err := h.repo.UpsertAvailability(r.Context(), workspaceID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrServiceNotFound):
			http.Error(w, "service not found", http.StatusNotFound)
		case errors.Is(err, ErrInvalidDayOfWeek),
			errors.Is(err, ErrInvalidClock),
			errors.Is(err, ErrWindowOrder):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error("failed to save availability", "error", err, "workspace_id", workspaceID)
			http.Error(w, "failed to save availability", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, av)
}

// ListAvailability handles GET /services/{serviceID}/availability requests.
func (h *Handler) ListAvailability(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	templates, err := h.repo.ListAvailability(r.Context(), workspaceID, chi.URLParam(r, "serviceID"))
	if err != nil {
		h.logger.Error("failed to list availability", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to list availability", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

// SetQualifiedStaff handles PUT /services/{serviceID}/staff requests.
func (h *Handler) SetQualifiedStaff(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	var req struct {
		UserIDs []string `json:"user_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	serviceID := chi.URLParam(r, "serviceID")
	if err := h.repo.SetQualifiedStaff(r.Context(), workspaceID, serviceID, req.UserIDs); err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			http.Error(w, "service not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to set qualified staff", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to set qualified staff", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateResource handles POST /resources requests.
func (h *Handler) CreateResource(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	var req CreateResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.WorkspaceID = workspaceID

	res, err := h.repo.CreateResource(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrMissingName) || errors.Is(err, ErrMissingResourceType) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to create resource", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to create resource", http.StatusInternalServerError)
		return
	}

	h.logger.Info("resource created", "workspace_id", workspaceID, "resource_id", res.ID)
	writeJSON(w, http.StatusCreated, res)
}

// ListResources handles GET /resources requests.
func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	resources, err := h.repo.ListResources(r.Context(), workspaceID)
	if err != nil {
		h.logger.Error("failed to list resources", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to list resources", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resources)
}

// DeleteResource handles DELETE /resources/{resourceID} requests.
func (h *Handler) DeleteResource(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	if err := h.repo.DeleteResource(r.Context(), workspaceID, chi.URLParam(r, "resourceID")); err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			http.Error(w, "resource not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to delete resource", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to delete resource", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
