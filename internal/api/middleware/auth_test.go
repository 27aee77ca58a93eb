package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferide/saferide/internal/api/middleware"
	"github.com/saferide/saferide/internal/auth"
)

func newTokenService(now func() time.Time) *auth.TokenService {
	return auth.NewTokenService(auth.TokenConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "https://api.saferide.dev",
		Now:        now,
	})
}

func TestAdminAuth(t *testing.T) {
	tokens := newTokenService(nil)

	adminToken, _, err := tokens.Generate("ops-alice", auth.RoleAdmin)
	require.NoError(t, err)
	viewerToken, _, err := tokens.Generate("ops-bob", auth.RoleViewer)
	require.NoError(t, err)

	expired, _, err := newTokenService(func() time.Time {
		return time.Now().Add(-time.Hour)
	}).Generate("ops-carol", auth.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name         string
		header       string
		wantStatus   int
		wantBody     string
		wantOperator string
	}{
		{"missing header", "", http.StatusUnauthorized, "missing authorization header", ""},
		{"basic auth", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, "invalid authorization header format", ""},
		{"no bearer prefix", "token123", http.StatusUnauthorized, "invalid authorization header format", ""},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, "missing bearer token", ""},
		{"garbage token", "Bearer invalid.jwt.token", http.StatusUnauthorized, "invalid access token", ""},
		{"expired token", "Bearer " + expired, http.StatusUnauthorized, "expired", ""},
		{"viewer role", "Bearer " + viewerToken, http.StatusForbidden, "admin", ""},
		{"admin", "Bearer " + adminToken, http.StatusOK, "", "ops-alice"},
		{"lowercase bearer", "bearer " + adminToken, http.StatusOK, "", "ops-alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var operator string
			handler := middleware.AdminAuth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				operator = middleware.GetOperator(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/v1/admin/testing", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
				assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
			}
			assert.Equal(t, tt.wantOperator, operator)
		})
	}
}

func TestAdminAuth_NotConfigured(t *testing.T) {
	handler := middleware.AdminAuth(nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/testing", http.NoBody)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetOperator_NoAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	assert.Empty(t, middleware.GetOperator(req.Context()))
}
