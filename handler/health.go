package handler

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/alfred-ratelimit/gateway/config"
)

type healthResponse struct {
	Status        string  `json:"status"`
	Timestamp     float64 `json:"timestamp"`
	Goroutines    int     `json:"goroutines"`
	RedisPoolSize int     `json:"redis_pool_size"`
}

// HealthHandler serves GET /health, reporting the same kind of
// runtime/pool metadata the reference server reports for its event
// loop and Redis pool.
func HealthHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(healthResponse{
			Status:        "healthy",
			Timestamp:     float64(time.Now().UnixNano()) / 1e9,
			Goroutines:    runtime.NumGoroutine(),
			RedisPoolSize: cfg.RedisPoolSize,
		})
	}
}
