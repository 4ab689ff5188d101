package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"mathmentor-api/internal/util"
)

const attemptKeyPrefix = "login_attempts:"

// Commands is the subset of redis commands the auth caches need. *goredis.Client
// satisfies it; tests substitute an in-memory implementation.
type Commands interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
	Incr(ctx context.Context, key string) *goredis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *goredis.BoolCmd
}

// LoginLimiter keeps a per-email failure counter in Redis so lockout
// holds across service instances. The credential row's login_attempts
// and locked_until columns remain the durable record; this counter is
// the fast path consulted before password verification.
type LoginLimiter struct {
	rdb       Commands
	threshold int
	window    time.Duration
}

func NewLoginLimiter(rdb Commands, threshold int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{
		rdb:       rdb,
		threshold: threshold,
		window:    window,
	}
}

// RecordFailure bumps the counter for an email and returns the new
// count. The first failure in a window starts the lockout clock; later
// failures do not extend it.
func (l *LoginLimiter) RecordFailure(ctx context.Context, email string) (int, error) {
	key := attemptKeyPrefix + email

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		util.Error("Failed to record login failure",
			zap.String("email", email),
			zap.Error(err))
		return 0, fmt.Errorf("failed to record login failure: %w", err)
	}

	if count == 1 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			util.Warn("Failed to set lockout window expiry",
				zap.String("email", email),
				zap.Error(err))
		}
	}

	return int(count), nil
}

// IsLocked reports whether the email has hit the failure threshold
// within the current window.
func (l *LoginLimiter) IsLocked(ctx context.Context, email string) (bool, error) {
	count, err := l.rdb.Get(ctx, attemptKeyPrefix+email).Int()
	if err != nil {
		// Missing key means no recent failures.
		return false, nil
	}
	return count >= l.threshold, nil
}

// Reset clears the counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email string) error {
	if err := l.rdb.Del(ctx, attemptKeyPrefix+email).Err(); err != nil {
		return fmt.Errorf("failed to reset login attempts: %w", err)
	}
	return nil
}

// Threshold exposes the configured failure threshold.
func (l *LoginLimiter) Threshold() int {
	return l.threshold
}

// Window exposes the configured lockout window.
func (l *LoginLimiter) Window() time.Duration {
	return l.window
}
