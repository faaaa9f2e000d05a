package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/medstargenx/accounts/internal/core/domain"
)

const (
	DefaultMaxLoginAttempts = 5
	DefaultLockoutWindow    = 15 * time.Minute
)

// LoginThrottle counts failed logins per e-mail in Redis.
// Key format: login_fail:<email>
// The counter expires one lockout window after its first failure; once it
// reaches maxAttempts the address is locked until the key expires.
type LoginThrottle struct {
	client      *redis.Client
	maxAttempts int64
	lockout     time.Duration
}

// NewLoginThrottle creates a LoginThrottle. Non-positive values fall back to
// DefaultMaxLoginAttempts and DefaultLockoutWindow.
func NewLoginThrottle(client *redis.Client, maxAttempts int, lockout time.Duration) *LoginThrottle {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxLoginAttempts
	}
	if lockout <= 0 {
		lockout = DefaultLockoutWindow
	}
	return &LoginThrottle{client: client, maxAttempts: int64(maxAttempts), lockout: lockout}
}

// Locked reports whether the address has exhausted its attempts.
func (t *LoginThrottle) Locked(ctx context.Context, email string) (bool, error) {
	n, err := t.client.Get(ctx, t.key(email)).Int64()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("throttle check: %w", err)
	}
	return n >= t.maxAttempts, nil
}

// Fail records one failed attempt.
func (t *LoginThrottle) Fail(ctx context.Context, email string) error {
	key := t.key(email)
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, t.lockout)
		return nil
	})
	if err != nil {
		return fmt.Errorf("throttle fail: %w", err)
	}
	return nil
}

// Reset clears the counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, email string) error {
	return t.client.Del(ctx, t.key(email)).Err()
}

func (t *LoginThrottle) key(email string) string {
	return "login_fail:" + domain.NormalizeEmail(email)
}
