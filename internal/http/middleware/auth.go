package middleware

import (
	"net/http"
	"strings"

	"github.com/careops/platform/internal/auth"
	"github.com/careops/platform/internal/tenancy"
)

// Authenticate verifies the Bearer token and loads workspace and user
// identity into the request context.
func Authenticate(issuer *auth.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			claims, err := issuer.Verify(strings.TrimSpace(token))
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := tenancy.WithWorkspaceID(r.Context(), claims.WorkspaceID)
			ctx = tenancy.WithUser(ctx, claims.Subject, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireOwner rejects requests whose token does not carry the owner role.
// It must run after Authenticate.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := tenancy.RoleFromContext(r.Context())
		if !ok || role != auth.RoleOwner {
			http.Error(w, "owner role required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
