package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/careops/platform/internal/tenancy"
	"github.com/careops/platform/internal/workspace"
	"github.com/careops/platform/pkg/logging"
)

// Handler handles registration, login, and staff management.
type Handler struct {
	users      Repository
	workspaces workspace.Repository
	issuer     *TokenIssuer
	logger     *logging.Logger
}

// NewHandler creates a new auth handler.
func NewHandler(users Repository, workspaces workspace.Repository, issuer *TokenIssuer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{users: users, workspaces: workspaces, issuer: issuer, logger: logger}
}

// Register handles POST /auth/register: creates a workspace and its owner.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ws, err := h.workspaces.Create(r.Context(), &workspace.CreateWorkspaceRequest{
		Slug:     req.WorkspaceSlug,
		Name:     req.WorkspaceName,
		Timezone: req.Timezone,
	})
	if err != nil {
		if errors.Is(err, workspace.ErrSlugTaken) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		http.Error(w, "registration failed", http.StatusInternalServerError)
		return
	}

	user := &User{
		WorkspaceID:  ws.ID,
		Email:        req.Email,
		PasswordHash: string(hash),
		Name:         req.Name,
		Role:         RoleOwner,
	}
	if err := h.users.CreateUser(r.Context(), user); err != nil {
		h.logger.Error("failed to create owner", "error", err, "workspace_id", ws.ID)
		http.Error(w, "registration failed", http.StatusInternalServerError)
		return
	}

	h.logger.Info("workspace registered", "workspace_id", ws.ID, "slug", ws.Slug)
	h.writeToken(w, user, http.StatusCreated)
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ws, err := h.workspaces.GetBySlug(r.Context(), req.WorkspaceSlug)
	if err != nil {
		http.Error(w, ErrInvalidCredentials.Error(), http.StatusUnauthorized)
		return
	}

	user, err := h.users.GetByEmail(r.Context(), ws.ID, req.Email)
	if err != nil {
		http.Error(w, ErrInvalidCredentials.Error(), http.StatusUnauthorized)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		http.Error(w, ErrInvalidCredentials.Error(), http.StatusUnauthorized)
		return
	}

	h.writeToken(w, user, http.StatusOK)
}

// CreateStaff handles POST /staff. Owner only.
func (h *Handler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}
	if role, _ := tenancy.RoleFromContext(r.Context()); role != RoleOwner {
		http.Error(w, "owner role required", http.StatusForbidden)
		return
	}

	var req CreateStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		http.Error(w, "failed to create staff", http.StatusInternalServerError)
		return
	}

	user := &User{
		WorkspaceID:  workspaceID,
		Email:        req.Email,
		PasswordHash: string(hash),
		Name:         req.Name,
		Role:         RoleStaff,
	}
	if err := h.users.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		h.logger.Error("failed to create staff", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to create staff", http.StatusInternalServerError)
		return
	}

	h.logger.Info("staff created", "workspace_id", workspaceID, "user_id", user.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

// ListStaff handles GET /staff.
func (h *Handler) ListStaff(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	users, err := h.users.ListByWorkspace(r.Context(), workspaceID)
	if err != nil {
		h.logger.Error("failed to list staff", "error", err, "workspace_id", workspaceID)
		http.Error(w, "failed to list staff", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"staff": users, "count": len(users)})
}

func (h *Handler) writeToken(w http.ResponseWriter, user *User, status int) {
	token, expiresAt, err := h.issuer.Issue(user)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err)
		http.Error(w, "failed to issue token", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(TokenResponse{Token: token, ExpiresAt: expiresAt, User: user})
}
