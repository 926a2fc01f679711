package httputil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/incidentflow/incidentflow/internal/authz"
)

// CORSMiddleware creates CORS middleware that handles preflight requests
// and adds appropriate CORS headers to responses.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	originsSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originsSet[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			// Check if origin is allowed
			if originsSet[origin] || originsSet["*"] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			// Handle preflight OPTIONS request
			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token")
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CSRFTokenHeader carries the double-submit CSRF token on mutating
// requests authenticated via cookie.
const CSRFTokenHeader = "X-CSRF-Token"

type contextKey string

// Context keys for storing user information.
const (
	UserIDKey      contextKey = "user_id"
	RoleKey        contextKey = "role"
	PermissionsKey contextKey = "permissions"
)

// TokenValidator interface for validating tokens.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (userID string, role string, perms authz.Set, err error)
}

// AuthMiddleware creates authentication middleware. Credentials are
// accepted from the Authorization bearer header or from the auth
// cookie; cookie-authenticated mutating requests must also pass the
// double-submit CSRF check.
func AuthMiddleware(validator TokenValidator, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, fromCookie := extractToken(r, cookieName)
			if token == "" {
				respondError(w, http.StatusUnauthorized, "missing credentials")
				return
			}

			if fromCookie && isMutating(r.Method) && !csrfTokenValid(r, cookieName) {
				respondError(w, http.StatusForbidden, "CSRF token missing or invalid")
				return
			}

			userID, role, perms, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), userID, role, perms)))
		})
	}
}

// OptionalAuthMiddleware populates identity context when credentials
// are present but lets anonymous requests through.
func OptionalAuthMiddleware(validator TokenValidator, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, fromCookie := extractToken(r, cookieName)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			if fromCookie && isMutating(r.Method) && !csrfTokenValid(r, cookieName) {
				respondError(w, http.StatusForbidden, "CSRF token missing or invalid")
				return
			}

			userID, role, perms, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), userID, role, perms)))
		})
	}
}

// RequirePermission gates a route on a single permission token.
func RequirePermission(perm authz.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			perms := GetPermissions(r.Context())
			if !perms.Has(perm) {
				respondError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func withIdentity(ctx context.Context, userID, role string, perms authz.Set) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	ctx = context.WithValue(ctx, RoleKey, role)
	return context.WithValue(ctx, PermissionsKey, perms)
}

func extractToken(r *http.Request, cookieName string) (token string, fromCookie bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1], false
		}
		return "", false
	}

	cookie, err := r.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func csrfTokenValid(r *http.Request, cookieName string) bool {
	header := r.Header.Get(CSRFTokenHeader)
	if header == "" {
		return false
	}
	cookie, err := r.Cookie(cookieName + "_csrf")
	if err != nil {
		return false
	}
	return cookie.Value == header
}

// GetUserID extracts user ID from context.
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

// GetRole extracts role from context.
func GetRole(ctx context.Context) string {
	if role, ok := ctx.Value(RoleKey).(string); ok {
		return role
	}
	return ""
}

// GetPermissions extracts the permission set from context. Anonymous
// requests get an empty set.
func GetPermissions(ctx context.Context) authz.Set {
	if perms, ok := ctx.Value(PermissionsKey).(authz.Set); ok {
		return perms
	}
	return authz.Set{}
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{"message": message},
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
