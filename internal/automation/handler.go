package automation

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/careops/platform/internal/tenancy"
	"github.com/careops/platform/pkg/logging"
)

// Handler exposes the automation audit log.
type Handler struct {
	logs   LogStore
	logger *logging.Logger
}

// NewHandler creates a new automation handler.
func NewHandler(logs LogStore, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{logs: logs, logger: logger}
}

// ListLogs handles GET /automation/logs requests.
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := h.logs.List(r.Context(), workspaceID, limit)
	if err != nil {
		h.logger.Error("failed to list automation logs", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to list automation logs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(logs)
}
