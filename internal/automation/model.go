package automation

import (
	"encoding/json"
	"time"
)

// Envelope is one pending event in the outbox.
type Envelope struct {
	ID          string          `json:"id"`
	WorkspaceID string          `json:"workspace_id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Automation log statuses. "skipped" records a precondition that was not met
// (no email on file, no sender configured) and is distinct from "failed",
// which records an attempted action that errored.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Log is one automation audit row. Exactly one row is written per handled
// event.
type Log struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Event       string    `json:"event"`
	Action      string    `json:"action"`
	Status      string    `json:"status"`
	Details     string    `json:"details,omitempty"`
	RelatedID   string    `json:"related_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
