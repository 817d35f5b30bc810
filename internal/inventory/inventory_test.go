package inventory

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careops/platform/internal/automation"
	"github.com/careops/platform/internal/tenancy"
)

func newRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/inventory", h.Create)
	r.Get("/inventory", h.List)
	r.Get("/inventory/{itemID}", h.Get)
	r.Post("/inventory/{itemID}/adjust", h.Adjust)
	r.Delete("/inventory/{itemID}", h.Delete)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req = req.WithContext(tenancy.WithWorkspaceID(req.Context(), "ws-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateItemValidation(t *testing.T) {
	repo := NewInMemoryRepository()
	router := newRouter(NewHandler(repo, automation.NewMemoryOutbox(), nil))

	rec := doJSON(t, router, http.MethodPost, "/inventory", `{"name":"","quantity":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/inventory", `{"name":"Gloves","quantity":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/inventory", `{"name":"Gloves","quantity":10,"low_stock_threshold":3}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var item Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	assert.Equal(t, "ws-1", item.WorkspaceID)
	assert.Equal(t, 10, item.Quantity)
}

func TestAdjustFloorsAtZero(t *testing.T) {
	repo := NewInMemoryRepository()
	item, err := repo.Create(t.Context(), &CreateItemRequest{
		WorkspaceID: "ws-1", Name: "Gauze", Quantity: 2,
	})
	require.NoError(t, err)

	_, err = repo.Adjust(t.Context(), "ws-1", item.ID, -3)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	got, err := repo.Adjust(t.Context(), "ws-1", item.ID, -2)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity)
}

func TestAdjustWorkspaceScoped(t *testing.T) {
	repo := NewInMemoryRepository()
	item, err := repo.Create(t.Context(), &CreateItemRequest{
		WorkspaceID: "ws-2", Name: "Towels", Quantity: 4,
	})
	require.NoError(t, err)

	_, err = repo.Adjust(t.Context(), "ws-1", item.ID, -1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdjustPublishesLowStockOnceOnCrossing(t *testing.T) {
	repo := NewInMemoryRepository()
	outbox := automation.NewMemoryOutbox()
	router := newRouter(NewHandler(repo, outbox, nil))

	item, err := repo.Create(t.Context(), &CreateItemRequest{
		WorkspaceID: "ws-1", Name: "Syringes", Quantity: 5, LowStockThreshold: 3,
	})
	require.NoError(t, err)

	// 5 -> 4 stays above the threshold.
	rec := doJSON(t, router, http.MethodPost, "/inventory/"+item.ID+"/adjust", `{"delta":-1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, outbox.All())

	// 4 -> 3 crosses it.
	rec = doJSON(t, router, http.MethodPost, "/inventory/"+item.ID+"/adjust", `{"delta":-1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	events := outbox.All()
	require.Len(t, events, 1)
	assert.Equal(t, automation.EventInventoryLow, events[0].Type)

	var payload automation.InventoryLowPayload
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, item.ID, payload.ItemID)
	assert.Equal(t, 3, payload.Quantity)
	assert.Equal(t, 3, payload.Threshold)

	// Further decrements while already low stay quiet.
	rec = doJSON(t, router, http.MethodPost, "/inventory/"+item.ID+"/adjust", `{"delta":-1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, outbox.All(), 1)

	// Restock back above, then drop again: a fresh alert fires.
	rec = doJSON(t, router, http.MethodPost, "/inventory/"+item.ID+"/adjust", `{"delta":5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, router, http.MethodPost, "/inventory/"+item.ID+"/adjust", `{"delta":-4}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, outbox.All(), 2)
}

func TestAdjustBelowZeroReturnsConflict(t *testing.T) {
	repo := NewInMemoryRepository()
	router := newRouter(NewHandler(repo, automation.NewMemoryOutbox(), nil))

	item, err := repo.Create(t.Context(), &CreateItemRequest{
		WorkspaceID: "ws-1", Name: "Masks", Quantity: 1,
	})
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodPost, "/inventory/"+item.ID+"/adjust", `{"delta":-5}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestItemLifecycle(t *testing.T) {
	repo := NewInMemoryRepository()
	router := newRouter(NewHandler(repo, automation.NewMemoryOutbox(), nil))

	rec := doJSON(t, router, http.MethodPost, "/inventory", `{"name":"Wipes","quantity":7}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var item Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))

	rec = doJSON(t, router, http.MethodGet, "/inventory", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var items []Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Len(t, items, 1)

	rec = doJSON(t, router, http.MethodDelete, "/inventory/"+item.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/inventory/"+item.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
