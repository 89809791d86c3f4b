package middleware

import (
	"chatmate-api/internal/models"
	"chatmate-api/internal/repository"
	"chatmate-api/internal/services"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func identityEcho(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := services.IdentityFromContext(r.Context())
		require.True(t, ok)
		w.Write([]byte(identity.UserID))
	})
}

func TestAuthMiddleware(t *testing.T) {
	auth := services.NewJWTAuthService("secret", repository.NewMemoryUserRepository())
	handler := AuthMiddleware(auth)(identityEcho(t))

	token, err := services.IssueToken("secret", "u1", "u1@example.com", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"no scheme", token, http.StatusUnauthorized},
		{"basic", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/usage/status", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.status, rr.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "u1", rr.Body.String())
			}
		})
	}
}

func TestAdminMiddleware(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-key"), bcrypt.MinCost)
	require.NoError(t, err)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		hash   string
		key    string
		status int
	}{
		{"valid key", string(hash), "admin-key", http.StatusNoContent},
		{"wrong key", string(hash), "guess", http.StatusUnauthorized},
		{"no key", string(hash), "", http.StatusUnauthorized},
		{"disabled", "", "admin-key", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/usage/reset", nil)
			if tt.key != "" {
				req.Header.Set(AdminKeyHeader, tt.key)
			}
			rr := httptest.NewRecorder()
			AdminMiddleware(tt.hash)(ok).ServeHTTP(rr, req)
			assert.Equal(t, tt.status, rr.Code)
		})
	}
}

func TestLoggingMiddlewareRequestID(t *testing.T) {
	var seen string
	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rr.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "given-id")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, "given-id", seen)
}

type memoryRequestLogs struct {
	mu      sync.Mutex
	entries []models.RequestLog
}

func (m *memoryRequestLogs) LogRequest(ctx context.Context, entry *models.RequestLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.Status == "" {
		entry.Status = models.StatusFromCode(entry.StatusCode)
	}
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryRequestLogs) GetUserLogs(ctx context.Context, userID string, from, to time.Time) ([]models.RequestLog, error) {
	return m.entries, nil
}

func TestRequestLogger(t *testing.T) {
	logs := &memoryRequestLogs{}
	rl := NewRequestLogger(logs)

	denied := rl.LogRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	req := httptest.NewRequest(http.MethodPost, "/chat/message", nil)
	req = req.WithContext(services.WithIdentity(req.Context(), &services.Identity{UserID: "u1"}))
	denied.ServeHTTP(httptest.NewRecorder(), req)

	anonymous := httptest.NewRequest(http.MethodGet, "/chat/history", nil)
	denied.ServeHTTP(httptest.NewRecorder(), anonymous)

	require.Len(t, logs.entries, 1)
	entry := logs.entries[0]
	assert.Equal(t, "u1", entry.UserID)
	assert.Equal(t, "/chat/message", entry.Endpoint)
	assert.Equal(t, http.MethodPost, entry.Method)
	assert.Equal(t, 429, entry.StatusCode)
	assert.Equal(t, models.StatusDenied, entry.Status)
	assert.Equal(t, "Chat message", entry.Summary)
}

func TestCreateRequestSummary(t *testing.T) {
	tests := map[string]string{
		"/chat/message":          "Chat message",
		"/chat/history":          "Chat history",
		"/chat/abc-123/messages": "Messages of chat: abc-123",
		"/usage/status":          "Usage status",
		"/auth/verify":           "Token verification",
		"/":                      "API request",
	}
	for path, want := range tests {
		assert.Equal(t, want, createRequestSummary(httptest.NewRequest(http.MethodGet, path, nil)), path)
	}
}

func TestSetRateLimitHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	reset := time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC)

	SetRateLimitHeaders(rr, 20, -1, reset)

	assert.Equal(t, "20", rr.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "1778457600", rr.Header().Get("X-RateLimit-Reset"))
}
