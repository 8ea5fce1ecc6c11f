// Package cache wraps taskAuth providers with Redis read-through caches.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/MrEthical07/taskAuth"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultOwnershipTTL bounds how long a cached ownership answer is trusted.
	DefaultOwnershipTTL = 5 * time.Minute
	defaultKeyPrefix    = "ta:own:"

	ownedValue = "1"
	scanBatch  = 100
)

// OwnershipCache caches positive IsOwner answers of an inner provider in Redis.
//
// Only "owner" is cached: a task created after a failed check is visible at once.
// A cached "owner" lives until the TTL or until Invalidate/InvalidateUser drops it,
// so callers deleting tasks or users must invalidate. Redis failures fall through
// to the inner provider. Errors from the inner provider are returned as-is.
type OwnershipCache struct {
	inner  taskAuth.OwnershipProvider
	redis  redis.UniversalClient
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

var _ taskAuth.OwnershipProvider = (*OwnershipCache)(nil)

// OwnershipOption configures an OwnershipCache.
type OwnershipOption func(*OwnershipCache)

// WithTTL sets the cache entry lifetime.
func WithTTL(ttl time.Duration) OwnershipOption {
	return func(c *OwnershipCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithKeyPrefix sets the Redis key prefix.
func WithKeyPrefix(prefix string) OwnershipOption {
	return func(c *OwnershipCache) { c.prefix = prefix }
}

// WithLogger sets the logger used for Redis failures.
func WithLogger(logger *slog.Logger) OwnershipOption {
	return func(c *OwnershipCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewOwnershipCache wraps inner.
func NewOwnershipCache(inner taskAuth.OwnershipProvider, rdb redis.UniversalClient, opts ...OwnershipOption) *OwnershipCache {
	c := &OwnershipCache{
		inner:  inner,
		redis:  rdb,
		ttl:    DefaultOwnershipTTL,
		prefix: defaultKeyPrefix,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsOwner answers from Redis when it holds a positive entry and from the inner
// provider otherwise.
func (c *OwnershipCache) IsOwner(ctx context.Context, userID, taskID int64) (bool, error) {
	key := c.key(userID, taskID)

	val, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil && val == ownedValue:
		return true, nil
	case err != nil && !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "ownership cache read failed", "error", err)
	}

	owner, err := c.inner.IsOwner(ctx, userID, taskID)
	if err != nil || !owner {
		return false, err
	}
	if err := c.redis.Set(ctx, key, ownedValue, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "ownership cache write failed", "error", err)
	}
	return true, nil
}

// Invalidate drops the cached answer for the pair. Call it when a task is deleted.
func (c *OwnershipCache) Invalidate(ctx context.Context, userID, taskID int64) error {
	return c.redis.Del(ctx, c.key(userID, taskID)).Err()
}

// InvalidateUser drops every cached answer for userID. Call it when a user is deleted.
func (c *OwnershipCache) InvalidateUser(ctx context.Context, userID int64) error {
	match := c.prefix + strconv.FormatInt(userID, 10) + ":*"
	iter := c.redis.Scan(ctx, 0, match, scanBatch).Iterator()

	keys := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == scanBatch {
			if err := c.redis.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.redis.Del(ctx, keys...).Err()
}

func (c *OwnershipCache) key(userID, taskID int64) string {
	return c.prefix + strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(taskID, 10)
}
