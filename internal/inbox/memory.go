package inbox

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository is a Repository backed by maps, used in tests and the
// automation engine's unit tests.
type InMemoryRepository struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	messages      map[string][]*Message
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		conversations: make(map[string]*Conversation),
		messages:      make(map[string][]*Message),
	}
}

// FindOrCreate returns the conversation for (workspace, contact), creating it
// on first use.
func (r *InMemoryRepository) FindOrCreate(ctx context.Context, workspaceID, contactID string) (*Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, conv := range r.conversations {
		if conv.WorkspaceID == workspaceID && conv.ContactID == contactID {
			return conv, nil
		}
	}
	conv := &Conversation{
		ID:          uuid.New().String(),
		WorkspaceID: workspaceID,
		ContactID:   contactID,
		CreatedAt:   time.Now().UTC(),
	}
	r.conversations[conv.ID] = conv
	return conv, nil
}

// Get fetches a conversation scoped to the workspace.
func (r *InMemoryRepository) Get(ctx context.Context, workspaceID, id string) (*Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conv, ok := r.conversations[id]
	if !ok || conv.WorkspaceID != workspaceID {
		return nil, ErrNotFound
	}
	return conv, nil
}

// List returns conversations for a workspace, most recently active first.
func (r *InMemoryRepository) List(ctx context.Context, workspaceID string, limit, offset int) ([]*Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Conversation
	for _, conv := range r.conversations {
		if conv.WorkspaceID == workspaceID {
			out = append(out, conv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].CreatedAt, out[j].CreatedAt
		if out[i].LastMessageAt != nil {
			ti = *out[i].LastMessageAt
		}
		if out[j].LastMessageAt != nil {
			tj = *out[j].LastMessageAt
		}
		return ti.After(tj)
	})
	return out, nil
}

// Append adds a message and updates conversation counters.
func (r *InMemoryRepository) Append(ctx context.Context, conversationID string, req *AppendRequest) (*Message, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[conversationID]
	if !ok {
		return nil, ErrNotFound
	}

	now := time.Now().UTC()
	msg := &Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		AuthorType:     req.AuthorType,
		AuthorID:       req.AuthorID,
		Body:           req.Body,
		CreatedAt:      now,
	}
	r.messages[conversationID] = append(r.messages[conversationID], msg)
	if req.AuthorType != AuthorStaff {
		conv.UnreadCount++
	}
	conv.LastMessageAt = &now
	return msg, nil
}

// Messages returns the conversation's messages in chronological order.
func (r *InMemoryRepository) Messages(ctx context.Context, conversationID string, limit int) ([]*Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msgs := r.messages[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]*Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// MarkRead resets the unread counter to zero.
func (r *InMemoryRepository) MarkRead(ctx context.Context, workspaceID, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[conversationID]
	if !ok || conv.WorkspaceID != workspaceID {
		return ErrNotFound
	}
	conv.UnreadCount = 0
	return nil
}

// SetAutomationPaused flips the automation pause flag.
func (r *InMemoryRepository) SetAutomationPaused(ctx context.Context, conversationID string, paused bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}
	conv.AutomationPaused = paused
	return nil
}
