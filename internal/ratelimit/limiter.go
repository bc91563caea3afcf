package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window request counter stored in Redis.
// Each (purpose, ip) pair gets its own key that expires with the window.
type Limiter struct {
	client   *redis.Client
	attempts int
	window   time.Duration
}

// NewLimiter creates a limiter allowing attempts requests per window.
// attempts <= 0 disables limiting.
func NewLimiter(client *redis.Client, attempts int, window time.Duration) *Limiter {
	return &Limiter{
		client:   client,
		attempts: attempts,
		window:   window,
	}
}

// getKey generates the Redis key for a client's attempt counter
func getKey(purpose, ip string) string {
	return fmt.Sprintf("ratelimit:%s:%s", purpose, ip)
}

// Allow records an attempt and reports whether it is within the limit
func (l *Limiter) Allow(ctx context.Context, purpose, ip string) (bool, error) {
	if l.attempts <= 0 {
		return true, nil
	}

	key := getKey(purpose, ip)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	// NX keeps the window anchored at the first attempt
	pipe.ExpireNX(ctx, key, l.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to record attempt: %w", err)
	}

	return incr.Val() <= int64(l.attempts), nil
}

// Reset clears the counter for a client
func (l *Limiter) Reset(ctx context.Context, purpose, ip string) error {
	if l.attempts <= 0 {
		return nil
	}

	if err := l.client.Del(ctx, getKey(purpose, ip)).Err(); err != nil {
		return fmt.Errorf("failed to reset rate limit: %w", err)
	}
	return nil
}
