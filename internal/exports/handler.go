package exports

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/careops/platform/internal/tenancy"
	"github.com/careops/platform/pkg/logging"
)

// Handler handles HTTP requests for data exports.
type Handler struct {
	exporter *Exporter
	logger   *logging.Logger
}

// NewHandler creates a new exports handler.
func NewHandler(exporter *Exporter, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{exporter: exporter, logger: logger}
}

// Trigger handles POST /exports requests.
func (h *Handler) Trigger(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}
	if !h.exporter.Enabled() {
		http.Error(w, "exports are not configured", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Kind string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	key, err := h.exporter.Run(r.Context(), workspaceID, req.Kind)
	if err != nil {
		if errors.Is(err, ErrUnknownKind) {
			http.Error(w, "kind must be contacts or bookings", http.StatusBadRequest)
			return
		}
		h.logger.Error("export failed", "error", err, "workspace_id", workspaceID, "kind", req.Kind)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	h.logger.Info("export completed", "workspace_id", workspaceID, "kind", req.Kind, "s3_key", key)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"key": key})
}
