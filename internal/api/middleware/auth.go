package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/saferide/saferide/internal/api/models"
	"github.com/saferide/saferide/internal/auth"
)

// operatorKey is the context key for the authenticated operator subject.
type operatorKey struct{}

// RoleValidator validates a bearer token and checks it carries a role.
type RoleValidator interface {
	ValidateRole(tokenString, role string) (*auth.Claims, error)
}

// RequireRole creates middleware that validates operator bearer tokens
// and rejects tokens lacking role.
func RequireRole(validator RoleValidator, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validator == nil {
				writeUnauthorized(w, r, "operator authentication is not configured")
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeUnauthorized(w, r, "missing authorization header")
				return
			}

			// Check for Bearer prefix (case-insensitive)
			const bearerPrefix = "Bearer "
			if len(authHeader) < len(bearerPrefix) ||
				!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
				writeUnauthorized(w, r, "invalid authorization header format")
				return
			}

			tokenString := strings.TrimSpace(authHeader[len(bearerPrefix):])
			if tokenString == "" {
				writeUnauthorized(w, r, "missing bearer token")
				return
			}

			claims, err := validator.ValidateRole(tokenString, role)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrTokenExpired):
					writeUnauthorized(w, r, "access token has expired")
				case errors.Is(err, auth.ErrInsufficient):
					writeForbidden(w, r, "operator role "+role+" required")
				case errors.Is(err, auth.ErrInvalidToken):
					writeUnauthorized(w, r, "invalid access token")
				default:
					writeUnauthorized(w, r, "authentication failed")
				}
				return
			}

			ctx := context.WithValue(r.Context(), operatorKey{}, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminAuth requires a valid token carrying the admin role.
func AdminAuth(validator RoleValidator) func(http.Handler) http.Handler {
	return RequireRole(validator, auth.RoleAdmin)
}

// writeUnauthorized writes a 401 Unauthorized response.
// This is implemented directly here to avoid import cycle with response package.
func writeUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	problem := models.NewUnauthorized(GetRequestID(r.Context()), detail)
	problem.Instance = r.URL.Path
	problem.Write(w)
}

func writeForbidden(w http.ResponseWriter, r *http.Request, detail string) {
	problem := models.NewForbidden(GetRequestID(r.Context()), detail)
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// GetOperator retrieves the authenticated operator subject from the context.
// Returns an empty string if not authenticated.
func GetOperator(ctx context.Context) string {
	if id, ok := ctx.Value(operatorKey{}).(string); ok {
		return id
	}
	return ""
}
