package forms

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careops/platform/internal/tenancy"
)

func TestTemplateValidation(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := t.Context()

	_, err := repo.CreateTemplate(ctx, &CreateTemplateRequest{WorkspaceID: "ws-1"})
	assert.ErrorIs(t, err, ErrMissingName)

	_, err = repo.CreateTemplate(ctx, &CreateTemplateRequest{
		WorkspaceID: "ws-1", Name: "Intake",
		Fields: []Field{{Key: "choice", Type: FieldSelect}},
	})
	assert.ErrorIs(t, err, ErrSelectNeedsOptions)

	_, err = repo.CreateTemplate(ctx, &CreateTemplateRequest{
		WorkspaceID: "ws-1", Name: "Intake",
		Fields: []Field{{Key: "a", Type: FieldText}, {Key: "a", Type: FieldText}},
	})
	assert.ErrorIs(t, err, ErrDuplicateFieldKey)
}

func newFormRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/forms/{formID}", h.GetTemplate)
	r.Post("/forms/{formID}", h.Submit)
	return r
}

func TestSubmitEnforcesRequiredFields(t *testing.T) {
	repo := NewInMemoryRepository()
	tpl, err := repo.CreateTemplate(t.Context(), &CreateTemplateRequest{
		WorkspaceID: "ws-1", Name: "Intake",
		Fields: []Field{
			{Key: "reason", Label: "Reason for visit", Type: FieldText, Required: true},
			{Key: "notes", Type: FieldTextarea},
		},
	})
	require.NoError(t, err)

	router := newFormRouter(NewHandler(repo, nil))

	req := httptest.NewRequest(http.MethodPost, "/forms/"+tpl.ID,
		strings.NewReader(`{"answers":{"notes":"hello"}}`))
	req = req.WithContext(tenancy.WithWorkspaceID(req.Context(), "ws-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/forms/"+tpl.ID,
		strings.NewReader(`{"answers":{"reason":"checkup"}}`))
	req = req.WithContext(tenancy.WithWorkspaceID(req.Context(), "ws-1"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	subs, err := repo.ListSubmissions(t.Context(), "ws-1", tpl.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "checkup", subs[0].Answers["reason"])
}

func TestTemplateScopedToWorkspace(t *testing.T) {
	repo := NewInMemoryRepository()
	tpl, err := repo.CreateTemplate(t.Context(), &CreateTemplateRequest{
		WorkspaceID: "ws-1", Name: "Intake",
	})
	require.NoError(t, err)

	router := newFormRouter(NewHandler(repo, nil))

	req := httptest.NewRequest(http.MethodGet, "/forms/"+tpl.ID, nil)
	req = req.WithContext(tenancy.WithWorkspaceID(req.Context(), "ws-other"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/forms/"+tpl.ID, nil)
	req = req.WithContext(tenancy.WithWorkspaceID(req.Context(), "ws-1"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got Template
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, tpl.ID, got.ID)
}
