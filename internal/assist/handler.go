package assist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/careops/platform/internal/inbox"
	"github.com/careops/platform/internal/tenancy"
	"github.com/careops/platform/internal/workspace"
	"github.com/careops/platform/pkg/logging"
)

const asyncJobTimeout = 2 * time.Minute

// Handler handles HTTP requests for the AI assistant.
type Handler struct {
	svc    *Service
	jobs   JobStore
	logger *logging.Logger
}

// NewHandler creates a new assist handler.
func NewHandler(svc *Service, jobs JobStore, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, jobs: jobs, logger: logger}
}

// SmartReply handles POST /assist/reply requests.
func (h *Handler) SmartReply(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	var req struct {
		ConversationID string `json:"conversation_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.ConversationID) == "" {
		http.Error(w, "conversation_id is required", http.StatusBadRequest)
		return
	}

	reply, err := h.svc.SmartReply(r.Context(), workspaceID, req.ConversationID)
	if err != nil {
		if errors.Is(err, inbox.ErrNotFound) {
			http.Error(w, "conversation not found", http.StatusNotFound)
			return
		}
		h.logger.Error("smart reply failed", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to suggest a reply", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

// Insights handles POST /assist/insights requests. The body is forwarded to
// the model as the metrics snapshot to summarize.
func (h *Handler) Insights(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	var stats map[string]any
	if err := json.NewDecoder(r.Body).Decode(&stats); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	text, err := h.svc.Insights(r.Context(), workspaceID, stats)
	if err != nil {
		if errors.Is(err, workspace.ErrNotFound) {
			http.Error(w, "workspace not found", http.StatusNotFound)
			return
		}
		h.logger.Error("insights failed", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to generate insights", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"insights": text})
}

// GenerateForm handles POST /assist/form requests.
func (h *Handler) GenerateForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := tenancy.WorkspaceIDFromContext(r.Context()); !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	var req struct {
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Description) == "" {
		http.Error(w, "description is required", http.StatusBadRequest)
		return
	}

	fields := h.svc.GenerateForm(r.Context(), req.Description)
	writeJSON(w, http.StatusOK, map[string]any{"fields": fields})
}

// Chat handles POST /assist/chat requests. With "async": true the request
// is queued as a job and the job ID returned for polling.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	var req struct {
		Messages []ChatMessage `json:"messages"`
		Async    bool          `json:"async"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
		http.Error(w, "messages are required", http.StatusBadRequest)
		return
	}

	if req.Async {
		h.enqueueChat(r.Context(), w, workspaceID, req.Messages)
		return
	}

	reply, err := h.svc.Chat(r.Context(), workspaceID, req.Messages)
	if err != nil {
		h.logger.Error("assistant chat failed", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to answer", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (h *Handler) enqueueChat(ctx context.Context, w http.ResponseWriter, workspaceID string, messages []ChatMessage) {
	if h.jobs == nil {
		http.Error(w, "async jobs are not configured", http.StatusNotImplemented)
		return
	}

	job := &JobRecord{
		JobID:       uuid.NewString(),
		WorkspaceID: workspaceID,
		Kind:        JobKindChat,
	}
	if err := h.jobs.PutPending(ctx, job); err != nil {
		h.logger.Error("failed to enqueue assist job", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to queue the request", http.StatusInternalServerError)
		return
	}

	go func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), asyncJobTimeout)
		defer cancel()

		reply, err := h.svc.Chat(jobCtx, workspaceID, messages)
		if err != nil {
			if markErr := h.jobs.MarkFailed(jobCtx, job.JobID, err.Error()); markErr != nil {
				h.logger.Error("failed to mark assist job failed", "error", markErr, "job_id", job.JobID)
			}
			return
		}
		result, _ := json.Marshal(map[string]string{"reply": reply})
		if err := h.jobs.MarkCompleted(jobCtx, job.JobID, result); err != nil {
			h.logger.Error("failed to mark assist job completed", "error", err, "job_id", job.JobID)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(JobStatusPending),
	})
}

// GetJob handles GET /assist/jobs/{jobID} requests.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}
	if h.jobs == nil {
		http.Error(w, "async jobs are not configured", http.StatusNotImplemented)
		return
	}

	job, err := h.jobs.GetJob(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load assist job", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to load job", http.StatusInternalServerError)
		return
	}
	if job.WorkspaceID != workspaceID {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
