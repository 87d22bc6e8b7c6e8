package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"siteforge/internal/session"
)

var testUserID = uuid.MustParse("11111111-2222-3333-4444-555555555555")

func newTestSession() *session.Data {
	return &session.Data{
		UserID:      testUserID,
		Email:       "test@example.com",
		DisplayName: "Test User",
		CreatedAt:   time.Now(),
	}
}

func ctxWithSession(data *session.Data) context.Context {
	return context.WithValue(context.Background(), SessionKey, data)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSessionFromCtx(t *testing.T) {
	t.Run("with session", func(t *testing.T) {
		data := newTestSession()
		got := SessionFromCtx(ctxWithSession(data))
		if got == nil {
			t.Fatal("expected session data, got nil")
		}
		if got.UserID != testUserID {
			t.Errorf("UserID = %s, want %s", got.UserID, testUserID)
		}
	})

	t.Run("without session", func(t *testing.T) {
		got := SessionFromCtx(context.Background())
		if got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})

	t.Run("wrong type in context", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), SessionKey, "not-a-session")
		got := SessionFromCtx(ctx)
		if got != nil {
			t.Errorf("expected nil for wrong type, got %+v", got)
		}
	})
}

func TestRequireAuth(t *testing.T) {
	t.Run("authenticated passes through", func(t *testing.T) {
		handler := RequireAuth(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/api/sites", nil)
		req = req.WithContext(ctxWithSession(newTestSession()))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("got status %d, want 200", rr.Code)
		}
	})

	t.Run("unauthenticated rejected", func(t *testing.T) {
		handler := RequireAuth(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/api/sites", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("got status %d, want 401", rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		if !strings.Contains(rr.Body.String(), `"code":"unauthorized"`) {
			t.Errorf("body %q should carry the unauthorized code", rr.Body.String())
		}
	})
}
