package cache

import (
	"context"
	"fmt"
	"time"

	"learnloop/internal/domain"
)

// RateLimiter enforces a fixed-window quota on top of a Cache counter.
// The window key embeds the window start so counters roll over naturally
// when the window expires.
type RateLimiter struct {
	cache  Cache
	prefix string
	limit  int64
	window time.Duration
}

// NewRateLimiter creates a limiter allowing limit operations per window.
// A non-positive limit disables the limiter; Allow always succeeds.
func NewRateLimiter(c Cache, prefix string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		cache:  c,
		prefix: prefix,
		limit:  int64(limit),
		window: window,
	}
}

// Allow consumes one unit of quota for key. It returns
// domain.ErrRateLimited once the window's quota is exhausted. Cache
// backend failures are returned as errors rather than silently allowing
// the operation.
func (rl *RateLimiter) Allow(ctx context.Context, key string) error {
	if rl.limit <= 0 {
		return nil
	}

	windowStart := time.Now().Truncate(rl.window).Unix()
	counterKey := fmt.Sprintf("%s:%s:%d", rl.prefix, key, windowStart)

	n, err := rl.cache.Incr(ctx, counterKey, rl.window)
	if err != nil {
		return fmt.Errorf("rate limit counter: %w", err)
	}
	if n > rl.limit {
		return fmt.Errorf("%s quota of %d per %s exhausted: %w",
			rl.prefix, rl.limit, rl.window, domain.ErrRateLimited)
	}
	return nil
}
