package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/refacekit/leadops/engine/infra/server/router"
	"github.com/refacekit/leadops/pkg/logger"
)

const memoryCleanupInterval = time.Minute

// Manager owns the limiter store and builds per-route middleware.
type Manager struct {
	config  *Config
	limiter *limiter.Limiter
	blocked metric.Int64Counter
	store   string
}

type Option func(*Manager) error

// WithMeter counts blocked requests on meter.
func WithMeter(meter metric.Meter) Option {
	return func(m *Manager) error {
		if meter == nil {
			return nil
		}
		counter, err := meter.Int64Counter(
			"leadops_rate_limit_blocks_total",
			metric.WithDescription("Total number of requests blocked by rate limiting"),
		)
		if err != nil {
			return fmt.Errorf("create rate limit counter: %w", err)
		}
		m.blocked = counter
		return nil
	}
}

// NewManager builds a limiter backed by Redis when client is non-nil so that
// API replicas share one budget, or by process memory otherwise. A Redis
// store that cannot be prepared falls back to memory.
func NewManager(ctx context.Context, cfg *Config, client *redis.Client, opts ...Option) (*Manager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store, storeName := newStore(ctx, cfg, client)
	m := &Manager{
		config: cfg,
		store:  storeName,
		limiter: limiter.New(store, limiter.Rate{
			Period: cfg.Rate.Period,
			Limit:  cfg.Rate.Limit,
		}),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func newStore(ctx context.Context, cfg *Config, client *redis.Client) (limiter.Store, string) {
	if client != nil {
		store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: cfg.Prefix})
		if err == nil {
			return store, "redis"
		}
		logger.FromContext(ctx).Warn("Redis rate limit store unavailable, using memory", "error", err)
	}
	return memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          cfg.Prefix,
		CleanUpInterval: memoryCleanupInterval,
	}), "memory"
}

// Store names the backing store: "redis" or "memory".
func (m *Manager) Store() string {
	return m.store
}

// Middleware limits requests per client IP. A disabled rate passes every
// request through. Store failures let the request through and are logged.
func (m *Manager) Middleware() gin.HandlerFunc {
	if !m.config.Rate.Enabled() {
		return func(c *gin.Context) { c.Next() }
	}
	return mgin.NewMiddleware(m.limiter,
		mgin.WithLimitReachedHandler(m.limitReached),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			logger.FromContext(c.Request.Context()).Warn("Rate limit store unavailable", "error", err)
			c.Next()
		}),
	)
}

func (m *Manager) limitReached(c *gin.Context) {
	if m.blocked != nil {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.blocked.Add(c.Request.Context(), 1, metric.WithAttributes(
			attribute.String("route", route),
			attribute.String("key_type", "ip"),
		))
	}
	router.RespondProblemWithCode(c, http.StatusTooManyRequests, router.ErrRateLimitedCode,
		fmt.Sprintf("rate limit of %d requests per %s exceeded", m.config.Rate.Limit, m.config.Rate.Period))
}
