package forms

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/careops/platform/internal/tenancy"
	"github.com/careops/platform/pkg/logging"
)

// Handler handles HTTP requests for form templates and submissions.
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a new forms handler.
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// CreateTemplate handles POST /forms requests.
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	var req CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.WorkspaceID = workspaceID

	tpl, err := h.repo.CreateTemplate(r.Context(), &req)
	if err != nil {
		if isValidationError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to create template", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to create template", http.StatusInternalServerError)
		return
	}

	h.logger.Info("form template created", "workspace_id", workspaceID, "template_id", tpl.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(tpl)
}

// ListTemplates handles GET /forms requests.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	templates, err := h.repo.ListTemplates(r.Context(), workspaceID)
	if err != nil {
		h.logger.Error("failed to list templates", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to list templates", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(templates)
}

// GetTemplate handles GET /forms/{formID}. Mounted on both the public and
// authed surfaces; the public router resolves the workspace from the slug.
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unknown workspace", http.StatusNotFound)
		return
	}

	tpl, err := h.repo.GetTemplate(r.Context(), workspaceID, chi.URLParam(r, "formID"))
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			http.Error(w, "form not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load template", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to load template", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tpl)
}

// Submit handles POST /forms/{formID} requests on the public surface.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unknown workspace", http.StatusNotFound)
		return
	}

	tpl, err := h.repo.GetTemplate(r.Context(), workspaceID, chi.URLParam(r, "formID"))
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			http.Error(w, "form not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load template", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to load template", http.StatusInternalServerError)
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.ValidateAgainst(tpl); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sub, err := h.repo.CreateSubmission(r.Context(), &Submission{
		TemplateID:  tpl.ID,
		WorkspaceID: workspaceID,
		ContactID:   req.ContactID,
		Answers:     req.Answers,
	})
	if err != nil {
		h.logger.Error("failed to store submission", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to store submission", http.StatusInternalServerError)
		return
	}

	h.logger.Info("form submitted", "workspace_id", workspaceID, "template_id", tpl.ID, "submission_id", sub.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": sub.ID})
}

// ListSubmissions handles GET /forms/{formID}/submissions requests.
func (h *Handler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	subs, err := h.repo.ListSubmissions(r.Context(), workspaceID, chi.URLParam(r, "formID"))
	if err != nil {
		h.logger.Error("failed to list submissions", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to list submissions", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(subs)
}

func isValidationError(err error) bool {
	return errors.Is(err, ErrMissingName) ||
		errors.Is(err, ErrMissingFieldKey) ||
		errors.Is(err, ErrDuplicateFieldKey) ||
		errors.Is(err, ErrUnknownFieldType) ||
		errors.Is(err, ErrSelectNeedsOptions)
}
