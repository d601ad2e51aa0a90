package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/famscrap/scrapbill/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// RoleKey is the context key for storing the authenticated role.
const RoleKey contextKey = "role"

// GetRole extracts the authenticated role from the context.
// Returns empty string if not found.
func GetRole(ctx context.Context) string {
	role, _ := ctx.Value(RoleKey).(string)
	return role
}

// RequireAdmin wraps a handler so it only runs with a valid admin session.
// It extracts the Bearer token from the Authorization header, verifies it
// and adds the role to the request context.
func RequireAdmin(admin *auth.AdminAuthenticator, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			unauthorized(w, auth.ErrMissingToken.Error())
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			unauthorized(w, auth.ErrInvalidToken.Error())
			return
		}

		claims, err := admin.Verify(parts[1])
		if err != nil {
			unauthorized(w, err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), RoleKey, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
