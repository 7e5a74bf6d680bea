package authprobe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const lockoutKeyPrefix = "authprobe:failures:"

// RedisLockout counts failed probes per email in Redis. After maxFailures
// within window further probes are refused until the window expires.
type RedisLockout struct {
	client      redis.Cmdable
	maxFailures int
	window      time.Duration
}

// NewRedisLockout creates a lockout tracker.
func NewRedisLockout(client redis.Cmdable, maxFailures int, window time.Duration) *RedisLockout {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &RedisLockout{client: client, maxFailures: maxFailures, window: window}
}

// Locked reports whether email has reached the failure limit.
func (l *RedisLockout) Locked(ctx context.Context, email string) (bool, error) {
	count, err := l.client.Get(ctx, lockoutKey(email)).Int()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("authprobe: read failures: %w", err)
	}
	return count >= l.maxFailures, nil
}

// RecordFailure increments the counter; the window starts at the first failure.
func (l *RedisLockout) RecordFailure(ctx context.Context, email string) error {
	key := lockoutKey(email)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("authprobe: record failure: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return fmt.Errorf("authprobe: set failure window: %w", err)
		}
	}
	return nil
}

// Reset clears the counter after a successful sign-in.
func (l *RedisLockout) Reset(ctx context.Context, email string) error {
	if err := l.client.Del(ctx, lockoutKey(email)).Err(); err != nil {
		return fmt.Errorf("authprobe: reset failures: %w", err)
	}
	return nil
}

// lockoutKey hashes the email so addresses are not stored in Redis.
func lockoutKey(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return lockoutKeyPrefix + hex.EncodeToString(sum[:])
}
