package redis

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/refacekit/leadops/pkg/logger"
)

const fallbackPingTimeout = 10 * time.Second

// Conn is one Redis connection handle. A handle is never repaired in place;
// callers that lose the server close it and open a new one.
type Conn struct {
	client *goredis.Client
	config *Config
	once   sync.Once
}

// Open builds a client without contacting the server. go-redis dials lazily
// and redials on every command, which suits request handlers that should
// report an unreachable server per call rather than fail at startup.
func Open(cfg *Config) (*Conn, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config is required")
	}
	opt, err := buildOptions(cfg)
	if err != nil {
		return nil, err
	}
	return &Conn{client: goredis.NewClient(opt), config: cfg}, nil
}

// Connect opens a client and pings the server, closing the client when the
// ping fails.
func Connect(ctx context.Context, cfg *Config) (*Conn, error) {
	conn, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	logger.FromContext(ctx).Info("Redis connection established",
		"addr", conn.client.Options().Addr,
		"db", conn.client.Options().DB,
		"pool_size", cfg.PoolSize,
	)
	return conn, nil
}

func buildOptions(cfg *Config) (*goredis.Options, error) {
	if cfg.URL != "" {
		opt, err := goredis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing Redis URL: %w", err)
		}
		applyConfigToOptions(opt, cfg)
		return opt, nil
	}
	opt := &goredis.Options{
		Addr:     net.JoinHostPort(cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	applyConfigToOptions(opt, cfg)
	return opt, nil
}

func applyConfigToOptions(opt *goredis.Options, cfg *Config) {
	if cfg.PoolSize > 0 {
		opt.PoolSize = cfg.PoolSize
	}
	if cfg.MaxRetries != 0 {
		opt.MaxRetries = cfg.MaxRetries
	}
	if cfg.DialTimeout > 0 {
		opt.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opt.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opt.WriteTimeout = cfg.WriteTimeout
	}
}

// Client returns the underlying go-redis client.
func (c *Conn) Client() *goredis.Client {
	return c.client
}

// Ping checks the server within the configured ping timeout.
func (c *Conn) Ping(ctx context.Context) error {
	timeout := c.config.PingTimeout
	if timeout <= 0 {
		timeout = fallbackPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := c.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("pinging Redis server (timeout=%s): %w", timeout, err)
	}
	return nil
}

// Close releases the client. It is safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		err = c.client.Close()
	})
	return err
}
