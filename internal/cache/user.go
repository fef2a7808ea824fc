package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/snipvault/snipvault/internal/model"
)

const (
	userKeyPrefix = "user:"
	// negativeMarker is stored for IDs known not to exist.
	negativeMarker = "-"

	// DefaultUserTTL bounds how stale a cached user may be.
	DefaultUserTTL = time.Minute
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

func userKey(id string) string {
	return userKeyPrefix + id
}

// GetUser retrieves a cached user by ID.
// Returns ErrCacheMiss if nothing is cached, and (nil, nil) when the ID is
// cached as absent.
func (c *Cache) GetUser(ctx context.Context, id string) (*model.User, error) {
	data, err := c.client.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	if string(data) == negativeMarker {
		return nil, nil
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, ErrCacheMiss
	}
	return &user, nil
}

// SetUser caches a user. The password digest is never written.
func (c *Cache) SetUser(ctx context.Context, user *model.User, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultUserTTL
	}

	data, err := json.Marshal(user.Public())
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	return c.client.Set(ctx, userKey(user.ID), data, ttl).Err()
}

// SetUserNotFound records that id does not resolve to a user.
func (c *Cache) SetUserNotFound(ctx context.Context, id string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultUserTTL
	}
	return c.client.Set(ctx, userKey(id), negativeMarker, ttl).Err()
}

// DeleteUser removes a cached user or negative entry.
func (c *Cache) DeleteUser(ctx context.Context, id string) error {
	return c.client.Del(ctx, userKey(id)).Err()
}
