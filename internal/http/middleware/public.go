package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/careops/platform/internal/tenancy"
	"github.com/careops/platform/internal/workspace"
	"github.com/careops/platform/pkg/logging"
)

// ResolveWorkspaceSlug turns the {slug} URL parameter on public routes into
// a workspace ID in the request context.
func ResolveWorkspaceSlug(workspaces workspace.Repository, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slug := strings.TrimSpace(chi.URLParam(r, "slug"))
			if slug == "" {
				http.Error(w, "missing workspace slug", http.StatusBadRequest)
				return
			}

			ws, err := workspaces.GetBySlug(r.Context(), slug)
			if err != nil {
				if errors.Is(err, workspace.ErrNotFound) {
					http.Error(w, "workspace not found", http.StatusNotFound)
					return
				}
				logger.Error("failed to resolve workspace slug", "error", err, "slug", slug)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

			ctx := tenancy.WithWorkspaceID(r.Context(), ws.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
