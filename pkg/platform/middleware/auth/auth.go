// Package auth guards the audit API with bearer-token authentication and
// attaches the authenticated actor to the request context for attribution.
package auth

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"chronicle/pkg/requestcontext"
)

// Claims represents what the token validator returns for a valid token.
type Claims struct {
	UserID      int64
	Username    string
	Email       string
	Firstname   string
	Lastname    string
	Roles       []string
	Permissions []string
}

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// RequireAuth validates the Authorization header and injects the actor into
// the context. Requests without a valid token are rejected with 401.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			actor := &requestcontext.Actor{
				ID:        claims.UserID,
				Username:  claims.Username,
				Email:     claims.Email,
				Firstname: claims.Firstname,
				Lastname:  claims.Lastname,
				Roles:     claims.Roles,
			}
			ctx = requestcontext.WithActor(ctx, actor)
			ctx = withPermissions(ctx, claims.Permissions)
			requestcontext.ReportActor(ctx, actor)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission rejects requests whose token does not carry the given
// permission. Must run after RequireAuth.
func RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !slices.Contains(permissionsFrom(r.Context()), permission) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"Missing required permission"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
