package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend keeps fixed-window counters in Redis so budgets are shared
// across every process behind the same Redis.
type RedisBackend struct {
	redis redis.UniversalClient
}

// NewRedisBackend wraps client.
func NewRedisBackend(client redis.UniversalClient) *RedisBackend {
	return &RedisBackend{redis: client}
}

// Exhausted implements Backend.
func (b *RedisBackend) Exhausted(ctx context.Context, key string, max int, _ time.Duration) (bool, error) {
	count, err := b.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return count >= int64(max), nil
}

// Hit implements Backend.
func (b *RedisBackend) Hit(ctx context.Context, key string, max int, window time.Duration) (bool, error) {
	count, err := b.redis.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: TTL is set on the first hit only.
	if count == 1 {
		if err := b.redis.Expire(ctx, key, window).Err(); err != nil {
			return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count > int64(max), nil
}

// Reset implements Backend.
func (b *RedisBackend) Reset(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := b.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
