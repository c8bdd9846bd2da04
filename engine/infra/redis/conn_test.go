package redis

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refacekit/leadops/pkg/config"
	"github.com/refacekit/leadops/pkg/logger"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	return logger.ContextWithLogger(t.Context(), logger.NewForTests())
}

func miniConfig(t *testing.T, mr *miniredis.Miniredis) *Config {
	t.Helper()
	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)
	return &Config{Host: host, Port: port, PingTimeout: time.Second, DialTimeout: time.Second}
}

func TestConnect(t *testing.T) {
	t.Run("Should connect and ping", func(t *testing.T) {
		mr := miniredis.RunT(t)
		conn, err := Connect(testContext(t), miniConfig(t, mr))
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })

		require.NoError(t, conn.Client().Set(t.Context(), "k", "v", 0).Err())
		mr.CheckGet(t, "k", "v")
	})

	t.Run("Should connect with a URL", func(t *testing.T) {
		mr := miniredis.RunT(t)
		conn, err := Connect(testContext(t), &Config{URL: "redis://" + mr.Addr() + "/2"})
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })
		assert.Equal(t, 2, conn.Client().Options().DB)
	})

	t.Run("Should reject a bad URL", func(t *testing.T) {
		_, err := Connect(testContext(t), &Config{URL: "://nope"})
		assert.ErrorContains(t, err, "parsing Redis URL")
	})

	t.Run("Should fail when the server is down", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := miniConfig(t, mr)
		mr.Close()

		_, err := Connect(testContext(t), cfg)
		assert.ErrorContains(t, err, "pinging Redis server")
	})

	t.Run("Should tolerate repeated Close", func(t *testing.T) {
		conn, err := Open(&Config{Host: "127.0.0.1", Port: "1"})
		require.NoError(t, err)
		assert.NoError(t, conn.Close())
		assert.NoError(t, conn.Close())
	})
}

func TestFromAppConfig(t *testing.T) {
	t.Run("Should copy the redis section", func(t *testing.T) {
		app := config.Default().Redis
		app.Password = "secret"

		cfg := FromAppConfig(&app)
		assert.Equal(t, "redis", cfg.Host)
		assert.Equal(t, "6379", cfg.Port)
		assert.Equal(t, "secret", cfg.Password)
		assert.Equal(t, app.DialTimeout, cfg.DialTimeout)
	})
}

func TestRetry(t *testing.T) {
	t.Run("Should return the first successful connection", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := miniConfig(t, mr)
		calls := 0
		dial := func(ctx context.Context) (*Conn, error) {
			calls++
			if calls < 3 {
				return nil, errors.New("connection refused")
			}
			return Connect(ctx, cfg)
		}

		conn, err := Retry(testContext(t), RetryPolicy{Attempts: 5, Delay: time.Millisecond}, dial)
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })
		assert.Equal(t, 3, calls)
	})

	t.Run("Should give up after the budget", func(t *testing.T) {
		calls := 0
		dial := func(context.Context) (*Conn, error) {
			calls++
			return nil, errors.New("connection refused")
		}

		_, err := Retry(testContext(t), RetryPolicy{Attempts: 5, Delay: time.Millisecond}, dial)
		assert.ErrorIs(t, err, ErrConnectExhausted)
		assert.ErrorContains(t, err, "connection refused")
		assert.Equal(t, 5, calls)
	})

	t.Run("Should stop when the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(testContext(t))
		dial := func(context.Context) (*Conn, error) {
			cancel()
			return nil, errors.New("connection refused")
		}

		_, err := Retry(ctx, RetryPolicy{Attempts: 5, Delay: time.Hour}, dial)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
