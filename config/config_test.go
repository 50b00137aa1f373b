package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"GATEWAY_ADDR", "ENV", "REDIS_URL", "REDIS_POOL_SIZE",
		"RATE_LIMIT_WINDOW_SEC", "RATE_LIMIT_CALIBRATION_SEC",
		"RATE_LIMIT_COUNTER_TTL_SEC", "RATE_LIMIT_RECORD_TTL_SEC",
		"DENY_UNKNOWN_API_KEY", "FAIL_OPEN_ON_STORE_ERROR",
	} {
		os.Unsetenv(key)
	}

	cfg := Load()

	if cfg.Addr != ":8003" {
		t.Errorf("Addr = %q, want :8003", cfg.Addr)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q, want development", cfg.Env)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected IsDevelopment() true for default env")
	}
	if cfg.WindowSeconds != 60 {
		t.Errorf("WindowSeconds = %d, want 60", cfg.WindowSeconds)
	}
	if cfg.CalibrationInterval != 30 {
		t.Errorf("CalibrationInterval = %d, want 30", cfg.CalibrationInterval)
	}
	if cfg.CounterTTL != 90*time.Second {
		t.Errorf("CounterTTL = %s, want 90s", cfg.CounterTTL)
	}
	if cfg.ExactRecordTTL != 3600*time.Second {
		t.Errorf("ExactRecordTTL = %s, want 3600s", cfg.ExactRecordTTL)
	}
	if cfg.DenyUnknownAPIKey {
		t.Error("expected DenyUnknownAPIKey false by default")
	}
	if !cfg.FailOpenOnStoreError {
		t.Error("expected FailOpenOnStoreError true by default")
	}
	if cfg.RedisPoolSize != 500 {
		t.Errorf("RedisPoolSize = %d, want 500", cfg.RedisPoolSize)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	os.Setenv("GATEWAY_ADDR", ":9000")
	os.Setenv("RATE_LIMIT_WINDOW_SEC", "120")
	os.Setenv("DENY_UNKNOWN_API_KEY", "true")
	os.Setenv("FAIL_OPEN_ON_STORE_ERROR", "false")
	defer func() {
		os.Unsetenv("GATEWAY_ADDR")
		os.Unsetenv("RATE_LIMIT_WINDOW_SEC")
		os.Unsetenv("DENY_UNKNOWN_API_KEY")
		os.Unsetenv("FAIL_OPEN_ON_STORE_ERROR")
	}()

	cfg := Load()

	if cfg.Addr != ":9000" {
		t.Errorf("Addr = %q, want :9000", cfg.Addr)
	}
	if cfg.WindowSeconds != 120 {
		t.Errorf("WindowSeconds = %d, want 120", cfg.WindowSeconds)
	}
	if !cfg.DenyUnknownAPIKey {
		t.Error("expected DenyUnknownAPIKey true after override")
	}
	if cfg.FailOpenOnStoreError {
		t.Error("expected FailOpenOnStoreError false after override")
	}
}

func TestGetEnvInt_IgnoresUnparsable(t *testing.T) {
	os.Setenv("GATEWAY_TEST_INT", "not-a-number")
	defer os.Unsetenv("GATEWAY_TEST_INT")

	if got := getEnvInt("GATEWAY_TEST_INT", 42); got != 42 {
		t.Errorf("getEnvInt() = %d, want fallback 42", got)
	}
}

func TestGetEnvBool_IgnoresUnparsable(t *testing.T) {
	os.Setenv("GATEWAY_TEST_BOOL", "not-a-bool")
	defer os.Unsetenv("GATEWAY_TEST_BOOL")

	if got := getEnvBool("GATEWAY_TEST_BOOL", true); got != true {
		t.Errorf("getEnvBool() = %v, want fallback true", got)
	}
}
