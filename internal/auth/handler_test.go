package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/careops/platform/internal/tenancy"
	"github.com/careops/platform/internal/workspace"
	"github.com/careops/platform/pkg/logging"
)

func newTestHandler() (*Handler, workspace.Repository) {
	workspaces := workspace.NewInMemoryRepository()
	issuer := NewTokenIssuer("test-secret", time.Hour)
	return NewHandler(NewInMemoryRepository(), workspaces, issuer, logging.Default()), workspaces
}

func TestRegisterCreatesWorkspaceAndOwner(t *testing.T) {
	handler, workspaces := newTestHandler()

	body, _ := json.Marshal(RegisterRequest{
		WorkspaceSlug: "river-dental",
		WorkspaceName: "River Dental",
		Email:         "owner@river.com",
		Password:      "supersecret",
		Name:          "Robin",
	})
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.Register(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp TokenResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected token in response")
	}
	if resp.User.Role != RoleOwner {
		t.Fatalf("expected owner role, got %s", resp.User.Role)
	}
	if _, err := workspaces.GetBySlug(req.Context(), "river-dental"); err != nil {
		t.Fatalf("expected workspace to exist: %v", err)
	}
}

func TestRegisterDuplicateSlugConflicts(t *testing.T) {
	handler, workspaces := newTestHandler()
	if _, err := workspaces.Create(t.Context(), &workspace.CreateWorkspaceRequest{Slug: "river-dental", Name: "First"}); err != nil {
		t.Fatalf("seed workspace: %v", err)
	}

	body, _ := json.Marshal(RegisterRequest{
		WorkspaceSlug: "river-dental",
		WorkspaceName: "Second",
		Email:         "owner@river.com",
		Password:      "supersecret",
		Name:          "Robin",
	})
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.Register(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestLoginRoundTrip(t *testing.T) {
	handler, _ := newTestHandler()

	registerBody, _ := json.Marshal(RegisterRequest{
		WorkspaceSlug: "river-dental",
		WorkspaceName: "River Dental",
		Email:         "owner@river.com",
		Password:      "supersecret",
		Name:          "Robin",
	})
	w := httptest.NewRecorder()
	handler.Register(w, httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(registerBody)))
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", w.Code)
	}

	loginBody, _ := json.Marshal(LoginRequest{
		WorkspaceSlug: "river-dental",
		Email:         "owner@river.com",
		Password:      "supersecret",
	})
	w = httptest.NewRecorder()
	handler.Login(w, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(loginBody)))
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp TokenResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	issuer := NewTokenIssuer("test-secret", time.Hour)
	claims, err := issuer.Verify(resp.Token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if claims.Role != RoleOwner {
		t.Fatalf("expected owner claims, got %s", claims.Role)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	handler, _ := newTestHandler()

	registerBody, _ := json.Marshal(RegisterRequest{
		WorkspaceSlug: "river-dental",
		WorkspaceName: "River Dental",
		Email:         "owner@river.com",
		Password:      "supersecret",
		Name:          "Robin",
	})
	w := httptest.NewRecorder()
	handler.Register(w, httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(registerBody)))

	loginBody, _ := json.Marshal(LoginRequest{
		WorkspaceSlug: "river-dental",
		Email:         "owner@river.com",
		Password:      "wrong-password",
	})
	w = httptest.NewRecorder()
	handler.Login(w, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(loginBody)))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestCreateStaffRequiresOwner(t *testing.T) {
	handler, workspaces := newTestHandler()
	ws, err := workspaces.Create(t.Context(), &workspace.CreateWorkspaceRequest{Slug: "river-dental", Name: "River Dental"})
	if err != nil {
		t.Fatalf("seed workspace: %v", err)
	}

	body, _ := json.Marshal(CreateStaffRequest{Email: "staff@river.com", Password: "supersecret", Name: "Sam"})
	req := httptest.NewRequest(http.MethodPost, "/staff", bytes.NewReader(body))
	ctx := tenancy.WithWorkspaceID(req.Context(), ws.ID)
	ctx = tenancy.WithUser(ctx, "user-1", RoleStaff)
	w := httptest.NewRecorder()
	handler.CreateStaff(w, req.WithContext(ctx))

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff caller, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/staff", bytes.NewReader(body))
	ctx = tenancy.WithWorkspaceID(req.Context(), ws.ID)
	ctx = tenancy.WithUser(ctx, "user-1", RoleOwner)
	w = httptest.NewRecorder()
	handler.CreateStaff(w, req.WithContext(ctx))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 for owner caller, got %d: %s", w.Code, w.Body.String())
	}
}

func TestTokenIssuerRejectsTampering(t *testing.T) {
	issuer := NewTokenIssuer("secret-a", time.Hour)
	token, _, err := issuer.Issue(&User{ID: "u1", WorkspaceID: "ws1", Role: RoleOwner})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	other := NewTokenIssuer("secret-b", time.Hour)
	if _, err := other.Verify(token); err == nil {
		t.Fatal("expected verification failure with wrong secret")
	}
}
