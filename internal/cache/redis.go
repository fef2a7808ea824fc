// Package cache holds the Redis-backed session user cache.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Pool sizing for the user cache. Lookups are single GET/SET round trips,
// so a small pool covers the request concurrency of one API process.
const (
	poolSize        = 10
	minIdleConns    = 2
	poolTimeout     = 4 * time.Second
	connMaxIdleTime = 5 * time.Minute
)

// Cache stores resolved session users in Redis.
type Cache struct {
	client *redis.Client
}

// New parses redisURL, dials Redis and verifies it answers PING.
func New(ctx context.Context, redisURL string) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opt.PoolSize = poolSize
	opt.MinIdleConns = minIdleConns
	opt.PoolTimeout = poolTimeout
	opt.ConnMaxIdleTime = connMaxIdleTime

	c := NewWithClient(redis.NewClient(opt))
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return c, nil
}

// NewWithClient wraps an existing client. Close closes it.
func NewWithClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Ping satisfies the readiness check.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client exposes the underlying client to integration tests.
func (c *Cache) Client() *redis.Client {
	return c.client
}
