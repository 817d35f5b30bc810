package assist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/careops/platform/internal/contacts"
	"github.com/careops/platform/internal/forms"
	"github.com/careops/platform/internal/inbox"
	"github.com/careops/platform/internal/workspace"
	"github.com/careops/platform/pkg/logging"
)

const smartReplyContext = 20

// Canned responses keep user-facing flows working when the provider is
// down or returns something unparseable.
const (
	cannedReply    = "Thanks for reaching out! We've received your message and will get back to you shortly."
	cannedChat     = "I'm having trouble answering right now. Please try again in a moment."
	cannedInsights = "Your workspace is active. Check your bookings and inbox for the latest activity."
)

var cannedFormFields = []forms.Field{
	{Key: "name", Label: "Full name", Type: forms.FieldText, Required: true},
	{Key: "email", Label: "Email", Type: forms.FieldText, Required: true},
	{Key: "notes", Label: "Anything else we should know?", Type: forms.FieldTextarea},
}

// Service answers assist requests. Provider failures never surface to the
// caller; every operation degrades to a deterministic canned response.
type Service struct {
	llm        LLMClient
	inbox      inbox.Repository
	contacts   contacts.Repository
	workspaces workspace.Repository
	logger     *logging.Logger
}

// NewService creates an assist service.
func NewService(llm LLMClient, inboxRepo inbox.Repository, contactRepo contacts.Repository, workspaceRepo workspace.Repository, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		llm:        llm,
		inbox:      inboxRepo,
		contacts:   contactRepo,
		workspaces: workspaceRepo,
		logger:     logger,
	}
}

// SmartReply suggests a staff response for a conversation using its recent
// messages as context.
func (s *Service) SmartReply(ctx context.Context, workspaceID, conversationID string) (string, error) {
	conv, err := s.inbox.Get(ctx, workspaceID, conversationID)
	if err != nil {
		return "", err
	}

	ws, err := s.workspaces.GetByID(ctx, workspaceID)
	if err != nil {
		return "", err
	}

	contactName := "the customer"
	if contact, err := s.contacts.GetByID(ctx, workspaceID, conv.ContactID); err == nil && contact.Name != "" {
		contactName = contact.Name
	}

	messages, err := s.inbox.Messages(ctx, conversationID, smartReplyContext)
	if err != nil {
		return "", err
	}

	var transcript strings.Builder
	for _, msg := range messages {
		author := "Customer"
		if msg.AuthorType != inbox.AuthorContact {
			author = "Staff"
		}
		fmt.Fprintf(&transcript, "%s: %s\n", author, msg.Body)
	}

	resp, err := s.llm.Complete(ctx, LLMRequest{
		System: []string{
			fmt.Sprintf("You are a front-desk assistant for %s. Draft a short, friendly reply to %s. Respond with the reply text only.", ws.Name, contactName),
		},
		Messages: []ChatMessage{
			{Role: ChatRoleUser, Content: transcript.String()},
		},
		Temperature: 0.7,
		MaxTokens:   300,
	})
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		s.logger.Warn("smart reply degraded to canned response", "error", err, "conversation_id", conversationID)
		return cannedReply, nil
	}
	return StripFences(resp.Text), nil
}

// Insights summarizes workspace activity for the dashboard. The stats value
// is marshaled into the prompt as-is.
func (s *Service) Insights(ctx context.Context, workspaceID string, stats any) (string, error) {
	ws, err := s.workspaces.GetByID(ctx, workspaceID)
	if err != nil {
		return "", err
	}

	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return "", fmt.Errorf("assist: marshal stats: %w", err)
	}

	resp, err := s.llm.Complete(ctx, LLMRequest{
		System: []string{
			fmt.Sprintf("You analyze business metrics for %s. Write two or three plain sentences of actionable insight. No markdown.", ws.Name),
		},
		Messages: []ChatMessage{
			{Role: ChatRoleUser, Content: string(statsJSON)},
		},
		Temperature: 0.4,
		MaxTokens:   400,
	})
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		s.logger.Warn("insights degraded to canned response", "error", err, "workspace_id", workspaceID)
		return cannedInsights, nil
	}
	return StripFences(resp.Text), nil
}

// GenerateForm turns a plain-language description into a form field list.
// Unparseable model output falls back to a generic contact form.
func (s *Service) GenerateForm(ctx context.Context, description string) []forms.Field {
	resp, err := s.llm.Complete(ctx, LLMRequest{
		System: []string{
			`You design intake forms. Respond with a JSON array of field objects: ` +
				`{"key","label","type","required","options"}. ` +
				`Valid types: text, textarea, number, date, select, checkbox. ` +
				`Respond with JSON only.`,
		},
		Messages: []ChatMessage{
			{Role: ChatRoleUser, Content: description},
		},
		Temperature: 0.2,
		MaxTokens:   800,
	})
	if err != nil {
		s.logger.Warn("form generation degraded to canned fields", "error", err)
		return cannedFormFields
	}

	var fields []forms.Field
	if err := json.Unmarshal([]byte(StripFences(resp.Text)), &fields); err != nil {
		s.logger.Warn("form generation returned unparseable JSON", "error", err)
		return cannedFormFields
	}
	for _, f := range fields {
		if f.Validate() != nil {
			s.logger.Warn("form generation returned an invalid field", "key", f.Key)
			return cannedFormFields
		}
	}
	if len(fields) == 0 {
		return cannedFormFields
	}
	return fields
}

// Chat answers a free-form assistant conversation scoped to the workspace.
func (s *Service) Chat(ctx context.Context, workspaceID string, messages []ChatMessage) (string, error) {
	ws, err := s.workspaces.GetByID(ctx, workspaceID)
	if err != nil {
		return "", err
	}

	resp, err := s.llm.Complete(ctx, LLMRequest{
		System: []string{
			fmt.Sprintf("You are the operations assistant for %s, a service business. Answer concisely and stay on topic.", ws.Name),
		},
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   600,
	})
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		s.logger.Warn("assistant chat degraded to canned response", "error", err, "workspace_id", workspaceID)
		return cannedChat, nil
	}
	return StripFences(resp.Text), nil
}

// StripFences removes a surrounding markdown code fence from model output.
// Providers routinely wrap JSON in ```json blocks despite instructions.
func StripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop the language tag on the opening fence line.
		firstLine := strings.TrimSpace(trimmed[:idx])
		if len(firstLine) <= 10 && !strings.ContainsAny(firstLine, "{[\"") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
