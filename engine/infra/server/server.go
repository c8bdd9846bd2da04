package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/refacekit/leadops/engine/infra/monitoring"
	"github.com/refacekit/leadops/engine/infra/redis"
	"github.com/refacekit/leadops/engine/infra/server/appstate"
	"github.com/refacekit/leadops/engine/infra/server/middleware/ratelimit"
	"github.com/refacekit/leadops/engine/job"
	"github.com/refacekit/leadops/pkg/config"
	"github.com/refacekit/leadops/pkg/logger"
	"github.com/refacekit/leadops/pkg/version"
)

const (
	monitoringShutdownTimeout = 5 * time.Second
	serverShutdownTimeout     = 5 * time.Second
	httpReadHeaderTimeout     = 15 * time.Second
	httpIdleTimeout           = 60 * time.Second
	healthPingTimeout         = 2 * time.Second
	rateLimitStoreRedis       = "redis"
)

type Server struct {
	config     *config.Config
	router     *gin.Engine
	state      *appstate.State
	conn       *redis.Conn
	monitoring *monitoring.Service
	limiter    *ratelimit.Manager
	closeOnce  sync.Once
}

// NewServer wires the API dependencies. Redis is opened lazily so the API
// starts, and reports redis as dead, while the queue store is down.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	s := &Server{config: cfg}
	if err := s.setupDependencies(ctx); err != nil {
		s.cleanup(ctx)
		return nil, err
	}
	if err := s.buildRouter(ctx); err != nil {
		s.cleanup(ctx)
		return nil, fmt.Errorf("failed to build router: %w", err)
	}
	return s, nil
}

func (s *Server) setupDependencies(ctx context.Context) error {
	conn, err := redis.Open(redis.FromAppConfig(&s.config.Redis))
	if err != nil {
		return fmt.Errorf("failed to configure redis: %w", err)
	}
	s.conn = conn
	s.monitoring = monitoring.NewMonitoringServiceWithFallback(ctx, &monitoring.Config{
		Enabled: s.config.Monitoring.Enabled,
		Path:    s.config.Monitoring.Path,
	})
	queue := job.NewQueue(conn.Client(), s.config.Queue.Name)
	deps := appstate.NewBaseDeps(queue, conn, s.monitoring)
	state, err := appstate.NewState(deps, version.GetVersion())
	if err != nil {
		return fmt.Errorf("failed to create app state: %w", err)
	}
	s.state = state
	limiter, err := s.setupRateLimit(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize rate limiting: %w", err)
	}
	s.limiter = limiter
	return nil
}

func (s *Server) setupRateLimit(ctx context.Context) (*ratelimit.Manager, error) {
	rate := s.config.Server.IngestRate
	cfg := ratelimit.DefaultConfig()
	cfg.Rate = ratelimit.RateConfig{Limit: rate.Limit, Period: rate.Period}
	client := s.conn.Client()
	if rate.Store != rateLimitStoreRedis {
		client = nil
	}
	var opts []ratelimit.Option
	if s.monitoring.IsInitialized() {
		opts = append(opts, ratelimit.WithMeter(s.monitoring.Meter()))
	}
	manager, err := ratelimit.NewManager(ctx, cfg, client, opts...)
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("Rate limiter initialized",
		"store", manager.Store(),
		"limit", rate.Limit,
		"period", rate.Period,
	)
	return manager, nil
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	defer s.cleanup(ctx)
	log := logger.FromContext(ctx)
	srv := s.createHTTPServer(ctx)
	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", fmt.Sprintf("http://%s", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Debug("Received shutdown signal, initiating graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), serverShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info("Server shutdown completed successfully")
	return nil
}

func (s *Server) createHTTPServer(ctx context.Context) *http.Server {
	addr := net.JoinHostPort(s.config.Server.Host, strconv.Itoa(s.config.Server.Port))
	return &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: httpReadHeaderTimeout,
		ReadTimeout:       s.config.Server.Timeout,
		WriteTimeout:      s.config.Server.Timeout,
		IdleTimeout:       httpIdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
}

func (s *Server) cleanup(ctx context.Context) {
	s.closeOnce.Do(func() { s.release(ctx) })
}

func (s *Server) release(ctx context.Context) {
	log := logger.FromContext(ctx)
	if s.monitoring != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), monitoringShutdownTimeout)
		defer cancel()
		if err := s.monitoring.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to shutdown monitoring service", "error", err)
		}
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			log.Error("Failed to close redis connection", "error", err)
		}
	}
}

// Close releases the server's dependencies without serving.
func (s *Server) Close(ctx context.Context) {
	s.cleanup(ctx)
}
