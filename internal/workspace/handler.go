package workspace

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/careops/platform/internal/tenancy"
	"github.com/careops/platform/pkg/logging"
)

// Handler handles HTTP requests for workspace settings.
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a new workspace handler.
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// Get handles GET /workspace requests.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	ws, err := h.repo.GetByID(r.Context(), workspaceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "workspace not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load workspace", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to load workspace", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ws)
}

// PublicProfile handles GET /public/workspaces/{slug}. It returns the
// booking-page subset of the workspace record; provider credentials never
// appear on the public surface.
func (h *Handler) PublicProfile(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	ws, err := h.repo.GetByID(r.Context(), workspaceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "workspace not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load workspace", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to load workspace", http.StatusInternalServerError)
		return
	}

	profile := map[string]string{
		"id":       ws.ID,
		"slug":     ws.Slug,
		"name":     ws.Name,
		"timezone": ws.Timezone,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profile)
}

// UpdateEmailConfig handles PUT /workspace/email-config requests. Owner only.
func (h *Handler) UpdateEmailConfig(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	var cfg EmailConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.repo.UpdateEmailConfig(r.Context(), workspaceID, &cfg); err != nil {
		h.writeUpdateError(w, err, workspaceID, "email")
		return
	}

	h.logger.Info("email config updated", "workspace_id", workspaceID)
	w.WriteHeader(http.StatusNoContent)
}

// UpdateSMSConfig handles PUT /workspace/sms-config requests. Owner only.
func (h *Handler) UpdateSMSConfig(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	var cfg SMSConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.repo.UpdateSMSConfig(r.Context(), workspaceID, &cfg); err != nil {
		h.writeUpdateError(w, err, workspaceID, "sms")
		return
	}

	h.logger.Info("sms config updated", "workspace_id", workspaceID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) requireOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return "", false
	}
	role, _ := tenancy.RoleFromContext(r.Context())
	if role != "owner" {
		http.Error(w, "owner role required", http.StatusForbidden)
		return "", false
	}
	return workspaceID, true
}

func (h *Handler) writeUpdateError(w http.ResponseWriter, err error, workspaceID, kind string) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "workspace not found", http.StatusNotFound)
	case errors.Is(err, ErrNilConfig),
		errors.Is(err, ErrMissingHost),
		errors.Is(err, ErrInvalidPort),
		errors.Is(err, ErrInvalidFromEmail),
		errors.Is(err, ErrMissingCredentials),
		errors.Is(err, ErrInvalidFromNumber):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("failed to update config", "error", err, "workspace_id", workspaceID, "kind", kind)
		http.Error(w, "failed to update config", http.StatusInternalServerError)
	}
}
