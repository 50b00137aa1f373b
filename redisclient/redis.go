package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/alfred-ratelimit/gateway/config"
	"github.com/redis/go-redis/v9"
)

// Client wraps the shared counter store connection used by the admission
// engine. Every admission decision goes through this one pool.
type Client struct {
	Raw *redis.Client
}

// New creates a Redis client from the provided config. The pool is sized
// to the reference deployment's bound (500 connections) with keepalive
// enabled so idle connections survive NAT timeouts, per the concurrency
// model's shared-resource policy.
func New(cfg *config.Config) (*Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	opt.PoolSize = cfg.RedisPoolSize
	opt.MinIdleConns = cfg.RedisMinIdleConns
	opt.DialTimeout = cfg.RedisDialTimeout
	opt.PoolTimeout = 30 * time.Second

	return &Client{Raw: redis.NewClient(opt)}, nil
}

// Ping verifies connectivity at startup.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.Raw.Ping(ctx).Err()
}

// Close releases pooled connections.
func (c *Client) Close() error {
	return c.Raw.Close()
}
