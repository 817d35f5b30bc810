package automation

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careops/platform/internal/auth"
	"github.com/careops/platform/internal/contacts"
	"github.com/careops/platform/internal/inbox"
	"github.com/careops/platform/internal/notify"
	"github.com/careops/platform/internal/workspace"
)

type failingSender struct{}

func (failingSender) Send(context.Context, notify.EmailMessage) error {
	return errors.New("smtp 550: mailbox unavailable")
}

type engineFixture struct {
	engine     *Engine
	inbox      *inbox.InMemoryRepository
	contacts   *contacts.InMemoryRepository
	users      *auth.InMemoryRepository
	logs       *InMemoryLogStore
	stub       *notify.StubEmailSender
	workspace  *workspace.Workspace
	newContact func(t *testing.T, email string) *contacts.Contact
}

func newEngineFixture(t *testing.T, sender notify.EmailSender) *engineFixture {
	t.Helper()
	workspaces := workspace.NewInMemoryRepository()
	ws, err := workspaces.Create(t.Context(), &workspace.CreateWorkspaceRequest{
		Slug: "glow", Name: "Glow Clinic",
	})
	require.NoError(t, err)

	var stub *notify.StubEmailSender
	if sender == nil {
		stub = notify.NewStubEmailSender(nil)
		sender = stub
	}

	f := &engineFixture{
		inbox:     inbox.NewInMemoryRepository(),
		contacts:  contacts.NewInMemoryRepository(),
		users:     auth.NewInMemoryRepository(),
		logs:      NewInMemoryLogStore(),
		stub:      stub,
		workspace: ws,
	}
	f.engine = NewEngine(f.inbox, f.contacts, workspaces, f.users, notify.NewResolver(sender, nil), f.logs, nil)
	f.newContact = func(t *testing.T, email string) *contacts.Contact {
		c, err := f.contacts.Create(t.Context(), &contacts.CreateContactRequest{
			WorkspaceID: ws.ID, Name: "Dana", Email: email, Phone: "+15550100",
		})
		require.NoError(t, err)
		return c
	}
	return f
}

func envelope(t *testing.T, workspaceID, eventType string, payload any) Envelope {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return Envelope{ID: "evt-1", WorkspaceID: workspaceID, Type: eventType, Payload: data}
}

func TestContactCreatedSendsWelcome(t *testing.T) {
	f := newEngineFixture(t, nil)
	contact := f.newContact(t, "dana@example.com")

	env := envelope(t, f.workspace.ID, EventContactCreated, ContactCreatedPayload{ContactID: contact.ID, Name: contact.Name})
	require.NoError(t, f.engine.Handle(t.Context(), env))

	require.Len(t, f.stub.Sent, 1)
	assert.Equal(t, "dana@example.com", f.stub.Sent[0].To)

	logs, err := f.logs.List(t.Context(), f.workspace.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, StatusSuccess, logs[0].Status)
	assert.Equal(t, "welcome_email", logs[0].Action)

	conv, err := f.inbox.FindOrCreate(t.Context(), f.workspace.ID, contact.ID)
	require.NoError(t, err)
	msgs, err := f.inbox.Messages(t.Context(), conv.ID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, inbox.AuthorSystem, msgs[0].AuthorType)
}

func TestContactWithoutEmailIsSkippedNotFailed(t *testing.T) {
	f := newEngineFixture(t, nil)
	contact := f.newContact(t, "")

	env := envelope(t, f.workspace.ID, EventContactCreated, ContactCreatedPayload{ContactID: contact.ID})
	require.NoError(t, f.engine.Handle(t.Context(), env))

	logs, err := f.logs.List(t.Context(), f.workspace.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, StatusSkipped, logs[0].Status)
	assert.Empty(t, f.stub.Sent)

	// The system message is still appended.
	conv, err := f.inbox.FindOrCreate(t.Context(), f.workspace.ID, contact.ID)
	require.NoError(t, err)
	msgs, err := f.inbox.Messages(t.Context(), conv.ID, 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestEmailErrorLogsFailed(t *testing.T) {
	f := newEngineFixture(t, failingSender{})
	contact := f.newContact(t, "dana@example.com")

	env := envelope(t, f.workspace.ID, EventBookingCreated, BookingEventPayload{
		BookingID: "b1", ContactID: contact.ID, ServiceName: "Facial", Date: "2026-09-01", StartTime: "10:00",
	})
	require.NoError(t, f.engine.Handle(t.Context(), env), "handler errors must not propagate")

	logs, err := f.logs.List(t.Context(), f.workspace.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, StatusFailed, logs[0].Status)
	assert.Contains(t, logs[0].Details, "mailbox unavailable")
}

func TestPausedConversationSkipsWithoutMessage(t *testing.T) {
	f := newEngineFixture(t, nil)
	contact := f.newContact(t, "dana@example.com")

	conv, err := f.inbox.FindOrCreate(t.Context(), f.workspace.ID, contact.ID)
	require.NoError(t, err)
	require.NoError(t, f.inbox.SetAutomationPaused(t.Context(), conv.ID, true))

	env := envelope(t, f.workspace.ID, EventBookingReminder, BookingEventPayload{
		BookingID: "b1", ContactID: contact.ID, ServiceName: "Facial", Date: "2026-09-01", StartTime: "10:00",
	})
	require.NoError(t, f.engine.Handle(t.Context(), env))

	logs, err := f.logs.List(t.Context(), f.workspace.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, StatusSkipped, logs[0].Status)

	msgs, err := f.inbox.Messages(t.Context(), conv.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Empty(t, f.stub.Sent)
}

func TestStaffRepliedPausesAutomation(t *testing.T) {
	f := newEngineFixture(t, nil)
	contact := f.newContact(t, "dana@example.com")
	conv, err := f.inbox.FindOrCreate(t.Context(), f.workspace.ID, contact.ID)
	require.NoError(t, err)

	env := envelope(t, f.workspace.ID, EventStaffReplied, StaffRepliedPayload{ConversationID: conv.ID, ContactID: contact.ID})
	require.NoError(t, f.engine.Handle(t.Context(), env))

	got, err := f.inbox.Get(t.Context(), f.workspace.ID, conv.ID)
	require.NoError(t, err)
	assert.True(t, got.AutomationPaused)

	logs, err := f.logs.List(t.Context(), f.workspace.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "pause_automation", logs[0].Action)
	assert.Equal(t, StatusSuccess, logs[0].Status)
}

func TestInventoryLowNotifiesOwner(t *testing.T) {
	f := newEngineFixture(t, nil)
	require.NoError(t, f.users.CreateUser(t.Context(), &auth.User{
		ID: "u1", WorkspaceID: f.workspace.ID, Email: "owner@glow.com", Name: "Pat", Role: auth.RoleOwner,
	}))

	env := envelope(t, f.workspace.ID, EventInventoryLow, InventoryLowPayload{
		ItemID: "i1", Name: "Serum", Quantity: 2, Threshold: 5,
	})
	require.NoError(t, f.engine.Handle(t.Context(), env))

	require.Len(t, f.stub.Sent, 1)
	assert.Equal(t, "owner@glow.com", f.stub.Sent[0].To)

	logs, err := f.logs.List(t.Context(), f.workspace.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, StatusSuccess, logs[0].Status)
}

func TestDelivererPumpsOutboxOntoQueue(t *testing.T) {
	outbox := NewMemoryOutbox()
	queue := NewMemoryQueue(16)
	ctx := t.Context()

	require.NoError(t, outbox.Publish(ctx, "ws-1", EventContactCreated, ContactCreatedPayload{ContactID: "c1"}))
	require.NoError(t, outbox.Publish(ctx, "ws-1", EventBookingCreated, BookingEventPayload{BookingID: "b1"}))

	NewDeliverer(outbox, queue, nil).Drain(ctx)

	msgs, err := queue.Receive(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Body), &env))
	assert.Equal(t, EventContactCreated, env.Type)
	assert.Equal(t, "ws-1", env.WorkspaceID)

	// A second drain must not re-deliver.
	NewDeliverer(outbox, queue, nil).Drain(ctx)
	again, err := queue.Receive(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestWorkerDropsMalformedMessages(t *testing.T) {
	queue := NewMemoryQueue(4)
	ctx := t.Context()
	require.NoError(t, queue.Send(ctx, "not json"))

	f := newEngineFixture(t, nil)
	w := NewWorker(queue, f.engine, 1, nil)

	msgs, err := queue.Receive(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	w.process(ctx, msgs[0])

	remaining, err := queue.Receive(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

type brokenQueue struct {
	receives atomic.Int64
}

func (q *brokenQueue) Send(context.Context, string) error { return nil }

func (q *brokenQueue) Receive(context.Context, int, int) ([]QueueMessage, error) {
	q.receives.Add(1)
	return nil, errors.New("sqs: connection refused")
}

func (q *brokenQueue) Delete(context.Context, string) error { return nil }

func TestWorkerBacksOffOnReceiveErrors(t *testing.T) {
	queue := &brokenQueue{}
	f := newEngineFixture(t, nil)
	w := NewWorker(queue, f.engine, 1, nil)
	w.retryDelay = 30 * time.Millisecond

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()
	w.Start(ctx)

	// Without the delay the loop polls the broken queue thousands of times
	// in 100ms; with it the worker gets at most a handful of attempts.
	n := queue.receives.Load()
	require.GreaterOrEqual(t, n, int64(1))
	assert.LessOrEqual(t, n, int64(6))
}
