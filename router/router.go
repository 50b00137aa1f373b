package router

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/alfred-ratelimit/gateway/catalog"
	"github.com/alfred-ratelimit/gateway/config"
	"github.com/alfred-ratelimit/gateway/handler"
	"github.com/alfred-ratelimit/gateway/limiter"
	gwmw "github.com/alfred-ratelimit/gateway/middleware"
	"github.com/alfred-ratelimit/gateway/observability"
)

// NewRouter returns a configured chi Router with the full middleware
// chain and all routes mounted.
func NewRouter(cfg *config.Config, appLogger zerolog.Logger, cat *catalog.Catalog, lim *limiter.Limiter, metrics *observability.Metrics) http.Handler {
	r := chi.NewRouter()

	// --- Middleware Chain (order matters) ---
	r.Use(gwmw.CORSMiddleware([]string{"*"}))
	r.Use(gwmw.SecurityHeadersMiddleware)
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(mwRequestLogger(appLogger))
	r.Use(mwMaxBodySize(cfg.MaxBodyBytes))

	// --- Unauthenticated endpoints ---
	r.Get("/health", handler.HealthHandler(cfg))
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	// --- Authenticated API ---
	chatHandler := handler.NewChatHandler(appLogger, cfg, cat, lim, metrics)
	authMW := gwmw.NewAuthMiddleware(appLogger, cfg.APIKeyHeader)

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMW.Handler)
		r.Post("/chat/completions", chatHandler.ChatCompletions)
	})

	return r
}

// mwMaxBodySize returns middleware that limits the request body size.
func mwMaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = 1 * 1024 * 1024
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			max := maxBytes
			if v := os.Getenv("GATEWAY_MAX_BODY_BYTES"); v != "" {
				if parsed, err := strconv.ParseInt(v, 10, 64); err == nil && parsed > 0 {
					max = parsed
				}
			}

			if r.ContentLength > 0 && r.ContentLength > max {
				http.Error(w, `{"error":"request_too_large","message":"request body too large"}`, http.StatusRequestEntityTooLarge)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, max)
			next.ServeHTTP(w, r)
		})
	}
}

func mwRequestLogger(appLogger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(rw, r)
			dur := time.Since(start)
			reqID := chimw.GetReqID(r.Context())
			appLogger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("req_id", reqID).
				Int("status", rw.Status()).
				Dur("duration", dur).
				Msg("request completed")
		})
	}
}
