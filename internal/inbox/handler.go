package inbox

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

// Handler handles HTTP requests for the shared inbox.
type Handler struct {
	repo   Repository
	stream *Stream
	events EventPublisher
	logger *logging.Logger
}

// NewHandler creates a new inbox handler. stream and events may be nil.
func NewHandler(repo Repository, stream *Stream, events EventPublisher, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, stream: stream, events: events, logger: logger}
}

// List handles GET /inbox requests.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	conversations, err := h.repo.List(r.Context(), workspaceID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list conversations", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to list conversations", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"conversations": conversations,
		"count":         len(conversations),
	})
}

// Messages handles GET /inbox/{conversationID}/messages requests.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}
	conversationID := chi.URLParam(r, "conversationID")

	if _, err := h.repo.Get(r.Context(), workspaceID, conversationID); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "conversation not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load conversation", "error", err)
		http.Error(w, "failed to load conversation", http.StatusInternalServerError)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	messages, err := h.repo.Messages(r.Context(), conversationID, limit)
	if err != nil {
		h.logger.Error("failed to list messages", "error", err, "conversation_id", conversationID)
		http.Error(w, "failed to list messages", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"messages": messages, "count": len(messages)})
}

// Reply handles POST /inbox/{conversationID}/messages: a staff reply.
// Replying pauses automation for the conversation via the staff.replied event.
func (h *Handler) Reply(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}
	userID, _ := tenancy.UserIDFromContext(r.Context())
	conversationID := chi.URLParam(r, "conversationID")

	if _, err := h.repo.Get(r.Context(), workspaceID, conversationID); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "conversation not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load conversation", "error", err)
		http.Error(w, "failed to load conversation", http.StatusInternalServerError)
		return
	}

	var body struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	msg, err := h.repo.Append(r.Context(), conversationID, &AppendRequest{
		AuthorType: AuthorStaff,
		AuthorID:   userID,
		Body:       body.Body,
	})
	if err != nil {
		if errors.Is(err, ErrEmptyBody) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to append reply", "error", err, "conversation_id", conversationID)
		http.Error(w, "failed to append reply", http.StatusInternalServerError)
		return
	}

	if h.events != nil {
		payload := map[string]string{"conversation_id": conversationID, "user_id": userID}
		if err := h.events.Publish(r.Context(), workspaceID, "staff.replied", payload); err != nil {
			// The reply is already committed; the pause is applied on the
			// next delivery attempt if this insert failed.
			h.logger.Error("failed to publish staff.replied", "error", err, "conversation_id", conversationID)
		}
	}
	if h.stream != nil {
		h.stream.Publish(workspaceID, StreamEvent{Type: "message", ConversationID: conversationID, Message: msg})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(msg)
}

// MarkRead handles POST /inbox/{conversationID}/read requests.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}
	conversationID := chi.URLParam(r, "conversationID")

	if err := h.repo.MarkRead(r.Context(), workspaceID, conversationID); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "conversation not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to mark read", "error", err, "conversation_id", conversationID)
		http.Error(w, "failed to mark read", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
