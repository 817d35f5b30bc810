package automation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/careops/platform/internal/auth"
	"github.com/careops/platform/internal/contacts"
	"github.com/careops/platform/internal/inbox"
	"github.com/careops/platform/internal/notify"
	"github.com/careops/platform/internal/observability/metrics"
	"github.com/careops/platform/internal/workspace"
	"github.com/careops/platform/pkg/logging"
)

// Engine routes queued events to their handlers. Every handled event writes
// exactly one audit row; handler-level problems become failed or skipped
// rows, not errors, so a poison event cannot wedge the queue.
type Engine struct {
	inbox      inbox.Repository
	contacts   contacts.Repository
	workspaces workspace.Repository
	users      auth.Repository
	email      *notify.Resolver
	logs       LogStore
	logger     *logging.Logger
}

// NewEngine wires the automation engine.
func NewEngine(
	inboxRepo inbox.Repository,
	contactsRepo contacts.Repository,
	workspaces workspace.Repository,
	users auth.Repository,
	email *notify.Resolver,
	logs LogStore,
	logger *logging.Logger,
) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		inbox:      inboxRepo,
		contacts:   contactsRepo,
		workspaces: workspaces,
		users:      users,
		email:      email,
		logs:       logs,
		logger:     logger,
	}
}

// Handle processes one envelope. An error return means the event was not
// handled at all and should be redelivered; once a log row is written the
// event is done.
func (e *Engine) Handle(ctx context.Context, env Envelope) error {
	switch env.Type {
	case EventContactCreated:
		var p ContactCreatedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("automation: decode %s: %w", env.Type, err)
		}
		return e.handleConversationEvent(ctx, env, p.ContactID, "welcome_email", welcomeBody, p.ContactID)

	case EventBookingCreated:
		var p BookingEventPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("automation: decode %s: %w", env.Type, err)
		}
		body := func(ws *workspace.Workspace, _ *contacts.Contact) string {
			return fmt.Sprintf("Your %s booking at %s on %s at %s is confirmed.",
				p.ServiceName, ws.Name, p.Date, p.StartTime)
		}
		return e.handleConversationEvent(ctx, env, p.ContactID, "booking_confirmation", body, p.BookingID)

	case EventBookingReminder:
		var p BookingEventPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("automation: decode %s: %w", env.Type, err)
		}
		body := func(ws *workspace.Workspace, _ *contacts.Contact) string {
			return fmt.Sprintf("Reminder: your %s booking at %s is tomorrow, %s at %s.",
				p.ServiceName, ws.Name, p.Date, p.StartTime)
		}
		return e.handleConversationEvent(ctx, env, p.ContactID, "booking_reminder", body, p.BookingID)

	case EventInventoryLow:
		return e.handleInventoryLow(ctx, env)

	case EventStaffReplied:
		return e.handleStaffReplied(ctx, env)

	default:
		e.logger.Warn("unknown automation event", "type", env.Type, "event_id", env.ID)
		return nil
	}
}

func welcomeBody(ws *workspace.Workspace, c *contacts.Contact) string {
	return fmt.Sprintf("Hi %s, welcome to %s! We received your details and will be in touch shortly.", c.Name, ws.Name)
}

// handleConversationEvent is the shared shape of the contact-facing
// handlers: find-or-create the contact's conversation, append one system
// message, attempt an email, record one audit row.
func (e *Engine) handleConversationEvent(
	ctx context.Context,
	env Envelope,
	contactID, action string,
	body func(*workspace.Workspace, *contacts.Contact) string,
	relatedID string,
) error {
	ws, err := e.workspaces.GetByID(ctx, env.WorkspaceID)
	if err != nil {
		return fmt.Errorf("automation: load workspace: %w", err)
	}
	contact, err := e.contacts.GetByID(ctx, env.WorkspaceID, contactID)
	if err != nil {
		return fmt.Errorf("automation: load contact: %w", err)
	}

	conv, err := e.inbox.FindOrCreate(ctx, env.WorkspaceID, contactID)
	if err != nil {
		return fmt.Errorf("automation: find conversation: %w", err)
	}
	if conv.AutomationPaused {
		return e.writeLog(ctx, env, action, StatusSkipped, "automation paused for conversation", relatedID)
	}

	text := body(ws, contact)
	if _, err := e.inbox.Append(ctx, conv.ID, &inbox.AppendRequest{
		AuthorType: inbox.AuthorSystem,
		Body:       text,
	}); err != nil {
		return fmt.Errorf("automation: append system message: %w", err)
	}

	status, details := e.sendEmail(ctx, ws, contact.Email, contact.Name, action, text)
	return e.writeLog(ctx, env, action, status, details, relatedID)
}

// sendEmail attempts delivery and classifies the outcome. A missing address
// or unconfigured sender is a skip, not a failure.
func (e *Engine) sendEmail(ctx context.Context, ws *workspace.Workspace, to, toName, action, body string) (status, details string) {
	if to == "" {
		return StatusSkipped, "contact has no email address"
	}
	sender := e.email.ForWorkspace(ws)
	if sender == nil {
		return StatusSkipped, "no email sender configured"
	}
	msg := notify.EmailMessage{
		To:      to,
		ToName:  toName,
		Subject: subjectFor(action, ws.Name),
		Body:    body,
	}
	if err := sender.Send(ctx, msg); err != nil {
		e.logger.Error("automation email failed", "error", err, "workspace_id", ws.ID, "action", action)
		return StatusFailed, err.Error()
	}
	metrics.EmailsSent.Inc()
	return StatusSuccess, "email sent to " + to
}

func subjectFor(action, workspaceName string) string {
	switch action {
	case "welcome_email":
		return "Welcome to " + workspaceName
	case "booking_confirmation":
		return "Your booking is confirmed"
	case "booking_reminder":
		return "Upcoming booking reminder"
	case "low_stock_alert":
		return "Low stock alert"
	default:
		return workspaceName
	}
}

func (e *Engine) handleInventoryLow(ctx context.Context, env Envelope) error {
	var p InventoryLowPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return fmt.Errorf("automation: decode %s: %w", env.Type, err)
	}
	ws, err := e.workspaces.GetByID(ctx, env.WorkspaceID)
	if err != nil {
		return fmt.Errorf("automation: load workspace: %w", err)
	}

	owner, err := e.findOwner(ctx, env.WorkspaceID)
	if err != nil {
		return fmt.Errorf("automation: find owner: %w", err)
	}
	if owner == nil {
		return e.writeLog(ctx, env, "low_stock_alert", StatusSkipped, "workspace has no owner account", p.ItemID)
	}

	body := fmt.Sprintf("%s is running low: %d left (threshold %d).", p.Name, p.Quantity, p.Threshold)
	status, details := e.sendEmail(ctx, ws, owner.Email, owner.Name, "low_stock_alert", body)
	return e.writeLog(ctx, env, "low_stock_alert", status, details, p.ItemID)
}

func (e *Engine) findOwner(ctx context.Context, workspaceID string) (*auth.User, error) {
	users, err := e.users.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Role == auth.RoleOwner {
			return u, nil
		}
	}
	return nil, nil
}

func (e *Engine) handleStaffReplied(ctx context.Context, env Envelope) error {
	var p StaffRepliedPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return fmt.Errorf("automation: decode %s: %w", env.Type, err)
	}
	if err := e.inbox.SetAutomationPaused(ctx, p.ConversationID, true); err != nil {
		return fmt.Errorf("automation: pause conversation: %w", err)
	}
	return e.writeLog(ctx, env, "pause_automation", StatusSuccess, "automation paused after staff reply", p.ConversationID)
}

func (e *Engine) writeLog(ctx context.Context, env Envelope, action, status, details, relatedID string) error {
	entry := &Log{
		WorkspaceID: env.WorkspaceID,
		Event:       env.Type,
		Action:      action,
		Status:      status,
		Details:     details,
		RelatedID:   relatedID,
	}
	if err := e.logs.Insert(ctx, entry); err != nil {
		return fmt.Errorf("automation: write log: %w", err)
	}
	metrics.AutomationHandled.WithLabelValues(env.Type, status).Inc()
	e.logger.Info("automation handled",
		"event", env.Type, "action", action, "status", status, "workspace_id", env.WorkspaceID)
	return nil
}
