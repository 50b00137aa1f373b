package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

type contextKey string

// APIKeyContextKey stores the Bearer token extracted from the
// Authorization header in the request context.
const APIKeyContextKey contextKey = "api_key"

// AuthMiddleware extracts the Bearer API key from the Authorization
// header. It does not validate the key itself — an unrecognized key is
// a decision for the rate limiter's catalog lookup, not for auth — it
// only rejects requests that carry no usable credential at all.
type AuthMiddleware struct {
	logger    zerolog.Logger
	headerKey string
}

// NewAuthMiddleware creates a new authentication middleware.
func NewAuthMiddleware(logger zerolog.Logger, headerKey string) *AuthMiddleware {
	if headerKey == "" {
		headerKey = "Authorization"
	}
	return &AuthMiddleware{logger: logger, headerKey: headerKey}
}

// Handler returns the middleware handler function.
func (am *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get(am.headerKey)
		if !strings.HasPrefix(authHeader, "Bearer ") {
			http.Error(w, `{"error":"missing or invalid authorization"}`, http.StatusUnauthorized)
			return
		}

		apiKey := strings.TrimPrefix(authHeader, "Bearer ")
		if apiKey == "" {
			http.Error(w, `{"error":"missing or invalid authorization"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), APIKeyContextKey, apiKey)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAPIKey extracts the API key from the request context.
func GetAPIKey(ctx context.Context) string {
	if v, ok := ctx.Value(APIKeyContextKey).(string); ok {
		return v
	}
	return ""
}
