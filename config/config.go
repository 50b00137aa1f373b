package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all gateway configuration values.
type Config struct {
	// Server
	Addr            string
	Env             string
	GracefulTimeout time.Duration

	// Redis (shared counter store)
	RedisURL          string
	RedisPoolSize     int
	RedisMinIdleConns int
	RedisDialTimeout  time.Duration

	// Authentication
	APIKeyHeader string

	// Admission engine
	WindowSeconds        int64 // W, the sliding window width
	CalibrationInterval  int64 // seconds between forced calibration passes
	CounterTTL           time.Duration
	ExactRecordTTL       time.Duration
	DenyUnknownAPIKey    bool // false preserves the reference's fail-open default
	FailOpenOnStoreError bool

	// Body limits
	MaxBodyBytes int64

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables and an optional
// .env file, applying the reference deployment's defaults where the
// spec leaves a knob unspecified.
func Load() *Config {
	_ = godotenv.Load()

	gracefulSec := getEnvInt("GATEWAY_GRACEFUL_TIMEOUT_SEC", 15)

	cfg := &Config{
		Addr:            getEnv("GATEWAY_ADDR", ":8003"),
		Env:             getEnv("ENV", "development"),
		GracefulTimeout: time.Duration(gracefulSec) * time.Second,

		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379"),
		RedisPoolSize:     getEnvInt("REDIS_POOL_SIZE", 500),
		RedisMinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 10),
		RedisDialTimeout:  time.Duration(getEnvInt("REDIS_DIAL_TIMEOUT_SEC", 5)) * time.Second,

		APIKeyHeader: getEnv("API_KEY_HEADER", "Authorization"),

		WindowSeconds:       int64(getEnvInt("RATE_LIMIT_WINDOW_SEC", 60)),
		CalibrationInterval: int64(getEnvInt("RATE_LIMIT_CALIBRATION_SEC", 30)),
		CounterTTL:          time.Duration(getEnvInt("RATE_LIMIT_COUNTER_TTL_SEC", 90)) * time.Second,
		ExactRecordTTL:      time.Duration(getEnvInt("RATE_LIMIT_RECORD_TTL_SEC", 3600)) * time.Second,

		DenyUnknownAPIKey:    getEnvBool("DENY_UNKNOWN_API_KEY", false),
		FailOpenOnStoreError: getEnvBool("FAIL_OPEN_ON_STORE_ERROR", true),

		MaxBodyBytes: int64(getEnvInt("GATEWAY_MAX_BODY_BYTES", 1*1024*1024)),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
