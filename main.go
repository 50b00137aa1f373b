package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alfred-ratelimit/gateway/catalog"
	"github.com/alfred-ratelimit/gateway/config"
	"github.com/alfred-ratelimit/gateway/limiter"
	"github.com/alfred-ratelimit/gateway/logger"
	"github.com/alfred-ratelimit/gateway/observability"
	"github.com/alfred-ratelimit/gateway/redisclient"
	"github.com/alfred-ratelimit/gateway/router"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)

	log.Info().Str("env", cfg.Env).Msg("ratelimit gateway starting")

	var store limiter.Store
	rc, err := redisclient.New(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("redis init failed — falling back to in-process store")
		store = limiter.NewMemStore()
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.RedisDialTimeout)
		pingErr := rc.Ping(ctx)
		cancel()
		if pingErr != nil {
			log.Warn().Err(pingErr).Msg("redis ping failed — falling back to in-process store")
			store = limiter.NewMemStore()
		} else {
			log.Info().Msg("redis connected")
			store = limiter.NewRedisStore(rc.Raw)
		}
	}

	cat := catalog.Default()
	lim := limiter.New(store,
		limiter.WithWindow(time.Duration(cfg.WindowSeconds)*time.Second),
		limiter.WithCalibrationInterval(cfg.CalibrationInterval),
		limiter.WithCounterTTL(cfg.CounterTTL),
		limiter.WithRecordTTL(cfg.ExactRecordTTL),
	)
	metrics := observability.NewMetrics()

	r := router.NewRouter(cfg, log, cat, lim, metrics)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("gateway listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-done
	log.Info().Msg("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GracefulTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	} else {
		log.Info().Msg("gateway stopped gracefully")
	}
}
