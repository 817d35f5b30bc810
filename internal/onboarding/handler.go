package onboarding

import (
	"encoding/json"
	"net/http"

	"github.com/careops/platform/internal/tenancy"
	"github.com/careops/platform/pkg/logging"
)

// Handler handles onboarding HTTP requests.
type Handler struct {
	client *http.Client
	logger *logging.Logger
}

// NewHandler creates a new onboarding handler.
func NewHandler(client *http.Client, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{client: client, logger: logger}
}

// Prefill handles POST /onboarding/prefill requests. It scrapes the given
// website and returns suggested workspace settings and services.
func (h *Handler) Prefill(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	var req struct {
		WebsiteURL string `json:"website_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := ScrapePrefill(r.Context(), h.client, req.WebsiteURL)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.logger.Info("website prefill completed",
		"workspace_id", workspaceID,
		"website_url", result.BusinessInfo.WebsiteURL,
		"services", len(result.Services),
	)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
