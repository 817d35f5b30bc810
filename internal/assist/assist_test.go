package assist

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careops/platform/internal/contacts"
	"github.com/careops/platform/internal/forms"
	"github.com/careops/platform/internal/inbox"
	"github.com/careops/platform/internal/workspace"
)

type stubLLM struct {
	text string
	err  error
	last LLMRequest
}

func (s *stubLLM) Complete(_ context.Context, req LLMRequest) (LLMResponse, error) {
	s.last = req
	if s.err != nil {
		return LLMResponse{}, s.err
	}
	return LLMResponse{Text: s.text}, nil
}

func newFixture(t *testing.T, llm LLMClient) (*Service, string, string) {
	t.Helper()

	workspaces := workspace.NewInMemoryRepository()
	ws, err := workspaces.Create(t.Context(), &workspace.CreateWorkspaceRequest{
		Slug: "glow", Name: "Glow Clinic", Timezone: "America/New_York",
	})
	require.NoError(t, err)

	contactRepo := contacts.NewInMemoryRepository()
	contact, err := contactRepo.Create(t.Context(), &contacts.CreateContactRequest{
		WorkspaceID: ws.ID, Name: "Dana", Email: "dana@example.com",
	})
	require.NoError(t, err)

	inboxRepo := inbox.NewInMemoryRepository()
	conv, err := inboxRepo.FindOrCreate(t.Context(), ws.ID, contact.ID)
	require.NoError(t, err)
	_, err = inboxRepo.Append(t.Context(), conv.ID, &inbox.AppendRequest{
		AuthorType: inbox.AuthorContact, Body: "Do you have openings on Friday?",
	})
	require.NoError(t, err)

	svc := NewService(llm, inboxRepo, contactRepo, workspaces, nil)
	return svc, ws.ID, conv.ID
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences(`{"a":1}`))
	assert.Equal(t, "plain text", StripFences("  plain text  "))
}

func TestSmartReplyUsesConversationContext(t *testing.T) {
	llm := &stubLLM{text: "We do! Friday at 10am is open."}
	svc, wsID, convID := newFixture(t, llm)

	reply, err := svc.SmartReply(t.Context(), wsID, convID)
	require.NoError(t, err)
	assert.Equal(t, "We do! Friday at 10am is open.", reply)

	require.Len(t, llm.last.Messages, 1)
	assert.Contains(t, llm.last.Messages[0].Content, "Do you have openings on Friday?")
	require.Len(t, llm.last.System, 1)
	assert.Contains(t, llm.last.System[0], "Glow Clinic")
	assert.Contains(t, llm.last.System[0], "Dana")
}

func TestSmartReplyFallsBackToCannedText(t *testing.T) {
	llm := &stubLLM{err: errors.New("provider unavailable")}
	svc, wsID, convID := newFixture(t, llm)

	reply, err := svc.SmartReply(t.Context(), wsID, convID)
	require.NoError(t, err)
	assert.Equal(t, cannedReply, reply)
}

func TestSmartReplyUnknownConversation(t *testing.T) {
	svc, wsID, _ := newFixture(t, &stubLLM{text: "hi"})

	_, err := svc.SmartReply(t.Context(), wsID, "missing")
	assert.ErrorIs(t, err, inbox.ErrNotFound)
}

func TestGenerateFormParsesFields(t *testing.T) {
	llm := &stubLLM{text: "```json\n[{\"key\":\"pet_name\",\"label\":\"Pet name\",\"type\":\"text\",\"required\":true}]\n```"}
	svc, _, _ := newFixture(t, llm)

	fields := svc.GenerateForm(t.Context(), "grooming intake form")
	require.Len(t, fields, 1)
	assert.Equal(t, "pet_name", fields[0].Key)
	assert.Equal(t, forms.FieldText, fields[0].Type)
	assert.True(t, fields[0].Required)
}

func TestGenerateFormFallsBackOnGarbage(t *testing.T) {
	llm := &stubLLM{text: "Sure! Here is a form you could use:"}
	svc, _, _ := newFixture(t, llm)

	fields := svc.GenerateForm(t.Context(), "grooming intake form")
	assert.Equal(t, cannedFormFields, fields)
}

func TestGenerateFormRejectsInvalidFieldTypes(t *testing.T) {
	llm := &stubLLM{text: `[{"key":"x","label":"X","type":"slider"}]`}
	svc, _, _ := newFixture(t, llm)

	fields := svc.GenerateForm(t.Context(), "anything")
	assert.Equal(t, cannedFormFields, fields)
}

func TestInsightsFallsBackOnEmptyResponse(t *testing.T) {
	llm := &stubLLM{text: "   "}
	svc, wsID, _ := newFixture(t, llm)

	text, err := svc.Insights(t.Context(), wsID, map[string]int{"bookings": 12})
	require.NoError(t, err)
	assert.Equal(t, cannedInsights, text)
}

func TestFailoverClientUsesSecondary(t *testing.T) {
	primary := &stubLLM{err: errors.New("quota exceeded")}
	secondary := &stubLLM{text: "from bedrock"}
	client := NewFailoverClient(primary, "gemini", secondary, "bedrock", nil)

	resp, err := client.Complete(t.Context(), LLMRequest{
		Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "from bedrock", resp.Text)
}

func TestFailoverClientPropagatesWhenBothFail(t *testing.T) {
	primary := &stubLLM{err: errors.New("quota exceeded")}
	secondary := &stubLLM{err: errors.New("region down")}
	client := NewFailoverClient(primary, "gemini", secondary, "bedrock", nil)

	_, err := client.Complete(t.Context(), LLMRequest{
		Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}},
	})
	assert.ErrorContains(t, err, "region down")
}

func TestInMemoryJobStoreLifecycle(t *testing.T) {
	store := NewInMemoryJobStore()

	job := &JobRecord{JobID: "job-1", WorkspaceID: "ws-1", Kind: JobKindChat}
	require.NoError(t, store.PutPending(t.Context(), job))

	got, err := store.GetJob(t.Context(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, got.Status)

	result, _ := json.Marshal(map[string]string{"reply": "done"})
	require.NoError(t, store.MarkCompleted(t.Context(), "job-1", result))

	got, err = store.GetJob(t.Context(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, JobStatusCompleted, got.Status)
	assert.JSONEq(t, `{"reply":"done"}`, string(got.Result))

	_, err = store.GetJob(t.Context(), "nope")
	assert.ErrorIs(t, err, ErrJobNotFound)

	// Completed-then-failed transitions still record the error.
	require.NoError(t, store.MarkFailed(t.Context(), "job-1", "model timeout"))
	got, err = store.GetJob(t.Context(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, got.Status)
	assert.Equal(t, "model timeout", got.ErrorMessage)
	assert.Nil(t, got.Result)
}

func TestPutPendingAssignsTimestamps(t *testing.T) {
	store := NewInMemoryJobStore()
	job := &JobRecord{JobID: "job-2", WorkspaceID: "ws-1", Kind: JobKindInsights}
	require.NoError(t, store.PutPending(t.Context(), job))

	got, err := store.GetJob(t.Context(), "job-2")
	require.NoError(t, err)
	created, err := time.Parse(time.RFC3339Nano, got.CreatedAt)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), created, time.Minute)
}
