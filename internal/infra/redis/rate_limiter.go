package redis

import (
	"context"
	"fmt"
	"time"
)

const rateLimitPrefix = "portal:rl"

// RateLimiter counts hits per key in fixed windows. The first hit of a window arms the TTL,
// so the counter disappears on its own when the window ends.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow reports whether one more hit on key fits under limit. A non-positive limit disables the check.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, window); err != nil {
			return false, fmt.Errorf("rate limit window %s: %w", key, err)
		}
	}
	return count <= int64(limit), nil
}

// OriginKey scopes a limit to one client address, e.g. login attempts per origin.
// Requests without a resolvable address share one bucket.
func OriginKey(scope, origin string) string {
	if origin == "" {
		origin = "unknown"
	}
	return fmt.Sprintf("%s:%s:%s", rateLimitPrefix, scope, origin)
}
