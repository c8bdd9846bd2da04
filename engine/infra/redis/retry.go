package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/refacekit/leadops/pkg/logger"
)

var ErrConnectExhausted = errors.New("redis connect attempts exhausted")

// RetryPolicy is a fixed connect budget: Attempts tries, Delay apart.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DialFunc opens a connection handle.
type DialFunc func(ctx context.Context) (*Conn, error)

// Dialer returns a DialFunc that calls Connect with cfg.
func Dialer(cfg *Config) DialFunc {
	return func(ctx context.Context) (*Conn, error) {
		return Connect(ctx, cfg)
	}
}

// Retry calls dial until it succeeds or the policy runs out. Exhaustion wraps
// both ErrConnectExhausted and the last dial error; a cancelled context
// returns the context error.
func Retry(ctx context.Context, policy RetryPolicy, dial DialFunc) (*Conn, error) {
	log := logger.FromContext(ctx)
	attempts := max(policy.Attempts, 1)
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(max(policy.Delay, time.Millisecond)))

	var conn *Conn
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		c, err := dial(ctx)
		if err != nil {
			log.Error("Redis connection attempt failed", "attempt", attempt, "max_attempts", attempts, "error", err)
			if ctx.Err() != nil {
				return err
			}
			return retry.RetryableError(err)
		}
		conn = c
		return nil
	})
	if err == nil {
		return conn, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrConnectExhausted, attempts, err)
}
