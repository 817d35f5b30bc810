package contacts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careops/platform/internal/tenancy"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *capturePublisher) Publish(_ context.Context, _, eventType string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	return nil
}

func TestCreateContactPublishesEvent(t *testing.T) {
	pub := &capturePublisher{}
	h := NewHandler(NewInMemoryRepository(), pub, nil)

	req := httptest.NewRequest(http.MethodPost, "/contacts",
		strings.NewReader(`{"name":"Dana","email":"dana@example.com"}`))
	req = req.WithContext(tenancy.WithWorkspaceID(req.Context(), "ws-1"))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var contact Contact
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&contact))
	assert.NotEmpty(t, contact.ID)
	assert.Equal(t, "ws-1", contact.WorkspaceID)
	assert.Equal(t, []string{"contact.created"}, pub.events)
}

func TestCreateContactRequiresReachability(t *testing.T) {
	h := NewHandler(NewInMemoryRepository(), &capturePublisher{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/contacts", strings.NewReader(`{"name":"Dana"}`))
	req = req.WithContext(tenancy.WithWorkspaceID(req.Context(), "ws-1"))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublicIntakeForcesSource(t *testing.T) {
	repo := NewInMemoryRepository()
	pub := &capturePublisher{}
	h := NewHandler(repo, pub, nil)

	req := httptest.NewRequest(http.MethodPost, "/public/workspaces/glow/contact",
		strings.NewReader(`{"name":"Dana","phone":"+15550100","source":"spoofed"}`))
	req = req.WithContext(tenancy.WithWorkspaceID(req.Context(), "ws-1"))
	rec := httptest.NewRecorder()
	h.CreatePublic(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	contact, err := repo.GetByID(t.Context(), "ws-1", resp["id"])
	require.NoError(t, err)
	assert.Equal(t, "contact_form", contact.Source)
}

func TestListContactsSearch(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := t.Context()
	for _, name := range []string{"Dana Reyes", "Max Orr", "Dana Smith"} {
		_, err := repo.Create(ctx, &CreateContactRequest{WorkspaceID: "ws-1", Name: name, Phone: "+15550100"})
		require.NoError(t, err)
	}

	list, err := repo.List(ctx, "ws-1", ListFilter{Search: "dana"})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = repo.List(ctx, "ws-1", ListFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
