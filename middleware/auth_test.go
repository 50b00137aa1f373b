package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func testAuthMiddleware() *AuthMiddleware {
	return NewAuthMiddleware(zerolog.New(io.Discard), "")
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	am := testAuthMiddleware()
	called := false
	h := am.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)

	if rw.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rw.Code)
	}
	if called {
		t.Fatal("expected next handler not to run without a valid header")
	}
}

func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	am := testAuthMiddleware()
	h := am.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)

	if rw.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a non-Bearer scheme, got %d", rw.Code)
	}
}

func TestAuthMiddleware_EmptyBearerToken(t *testing.T) {
	am := testAuthMiddleware()
	h := am.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
	req.Header.Set("Authorization", "Bearer ")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)

	if rw.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for an empty bearer token, got %d", rw.Code)
	}
}

func TestAuthMiddleware_ValidBearerSetsContext(t *testing.T) {
	am := testAuthMiddleware()
	var gotKey string
	h := am.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = GetAPIKey(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
	req.Header.Set("Authorization", "Bearer test-key-1")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)

	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
	if gotKey != "test-key-1" {
		t.Fatalf("expected api key %q in context, got %q", "test-key-1", gotKey)
	}
}
