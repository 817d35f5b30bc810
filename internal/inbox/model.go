package inbox

import (
	"strings"
	"time"
)

// Author types for messages.
const (
	AuthorContact = "contact"
	AuthorStaff   = "staff"
	AuthorSystem  = "system"
)

// Conversation is the single thread per (workspace, contact) pair.
type Conversation struct {
	ID               string     `json:"id"`
	WorkspaceID      string     `json:"workspace_id"`
	ContactID        string     `json:"contact_id"`
	UnreadCount      int        `json:"unread_count"`
	AutomationPaused bool       `json:"automation_paused"`
	LastMessageAt    *time.Time `json:"last_message_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Message is a single entry in a conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	AuthorType     string    `json:"author_type"`
	AuthorID       string    `json:"author_id,omitempty"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

// AppendRequest adds a message to a conversation.
type AppendRequest struct {
	AuthorType string `json:"author_type"`
	AuthorID   string `json:"author_id"`
	Body       string `json:"body"`
}

// Validate validates the append request.
func (r *AppendRequest) Validate() error {
	switch r.AuthorType {
	case AuthorContact, AuthorStaff, AuthorSystem:
	default:
		return ErrInvalidAuthor
	}
	if strings.TrimSpace(r.Body) == "" {
		return ErrEmptyBody
	}
	return nil
}
