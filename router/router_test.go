package router

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/alfred-ratelimit/gateway/catalog"
	"github.com/alfred-ratelimit/gateway/config"
	"github.com/alfred-ratelimit/gateway/limiter"
	"github.com/alfred-ratelimit/gateway/observability"
)

func testSetup() http.Handler {
	cfg := &config.Config{
		Addr:                 ":0",
		Env:                  "test",
		APIKeyHeader:         "Authorization",
		MaxBodyBytes:         1 << 20,
		DenyUnknownAPIKey:    false,
		FailOpenOnStoreError: true,
	}
	log := zerolog.New(io.Discard).With().Timestamp().Logger()
	cat := catalog.Default()
	lim := limiter.New(limiter.NewMemStore())
	metrics := observability.NewMetrics()
	return NewRouter(cfg, log, cat, lim, metrics)
}

func TestHealthEndpoints(t *testing.T) {
	r := testSetup()

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"health", "/health", http.StatusOK},
		{"ready", "/ready", http.StatusOK},
		{"metrics", "/metrics", http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			rw := httptest.NewRecorder()
			r.ServeHTTP(rw, req)
			if rw.Result().StatusCode != tc.status {
				t.Fatalf("expected %d for %s, got %d", tc.status, tc.path, rw.Result().StatusCode)
			}
		})
	}
}

func TestHealthReportsGoroutinesAndPoolSize(t *testing.T) {
	r := testSetup()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	var body map[string]interface{}
	if err := json.NewDecoder(rw.Result().Body).Decode(&body); err != nil {
		t.Fatalf("decode /health body: %v", err)
	}
	if _, ok := body["goroutines"]; !ok {
		t.Fatal("expected /health body to report goroutines")
	}
	if _, ok := body["redis_pool_size"]; !ok {
		t.Fatal("expected /health body to report redis_pool_size")
	}
}

func TestUnauthenticatedChatCompletionsReturns401(t *testing.T) {
	r := testSetup()

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(`{}`))
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	if rw.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unauthenticated chat completions, got %d", rw.Result().StatusCode)
	}
}

func TestAuthenticatedChatCompletionsSucceeds(t *testing.T) {
	r := testSetup()

	body := `{"model":"gpt-4","messages":[{"role":"user","content":"hello"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer test-key-1")
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	if rw.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for authenticated chat completions, got %d", rw.Result().StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := testSetup()

	req := httptest.NewRequest(http.MethodOptions, "/v1/chat/completions", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	if rw.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatal("expected CORS Allow-Origin header on preflight response")
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := testSetup()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	headers := []string{
		"X-Content-Type-Options",
		"X-Frame-Options",
		"Strict-Transport-Security",
	}
	for _, h := range headers {
		if rw.Header().Get(h) == "" {
			t.Fatalf("expected security header %s to be set", h)
		}
	}
}
