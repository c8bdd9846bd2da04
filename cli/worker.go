package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/refacekit/leadops/engine/infra/monitoring"
	"github.com/refacekit/leadops/engine/infra/redis"
	"github.com/refacekit/leadops/engine/vicidial"
	"github.com/refacekit/leadops/engine/worker"
	"github.com/refacekit/leadops/pkg/config"
	"github.com/refacekit/leadops/pkg/logger"
)

const (
	metricsReadHeaderTimeout = 5 * time.Second
	metricsShutdownTimeout   = 5 * time.Second
)

// WorkerCmd runs the queue consumer that writes dialer exports.
func WorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Convert queued lead jobs into VICIdial export files",
		RunE:  runWorker,
	}
	cmd.Flags().Duration("poll-timeout", 0, "How long each queue poll blocks")
	cmd.Flags().String("export-dir", "", "Directory export files are written to")
	cmd.Flags().String("list-id", "", "VICIdial list id stamped on every record")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address")
	return cmd
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	log := logger.FromContext(ctx)

	mon := monitoring.NewMonitoringServiceWithFallback(ctx, &monitoring.Config{
		Enabled: cfg.Monitoring.Enabled && cfg.Worker.MetricsAddr != "",
		Path:    cfg.Monitoring.Path,
	})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
		defer cancel()
		if err := mon.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to shutdown monitoring service", "error", err)
		}
	}()

	w, err := buildWorker(cfg, mon)
	if err != nil {
		return err
	}
	log.Info("Starting conversion worker",
		"queue", cfg.Queue.Name,
		"export_dir", cfg.Export.Dir,
		"list_id", cfg.Export.ListID,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx)
	})
	if cfg.Worker.MetricsAddr != "" && mon.IsInitialized() {
		serveMetrics(gctx, g, cfg.Worker.MetricsAddr, mon)
	}
	return g.Wait()
}

func buildWorker(cfg *config.Config, mon *monitoring.Service) (*worker.Worker, error) {
	writer, err := vicidial.NewWriter(afero.NewOsFs(), cfg.Export.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare export directory: %w", err)
	}
	processor := worker.NewProcessor(vicidial.NewMapper(cfg.Export.ListID), writer)
	return worker.NewWorker(
		&worker.Config{
			QueueName:   cfg.Queue.Name,
			PollTimeout: cfg.Queue.PollTimeout,
			Connect: redis.RetryPolicy{
				Attempts: cfg.Worker.ConnectAttempts,
				Delay:    cfg.Worker.ConnectDelay,
			},
			ReconnectDelay: cfg.Worker.ReconnectDelay,
			ErrorDelay:     cfg.Worker.ErrorDelay,
		},
		redis.Dialer(redis.FromAppConfig(&cfg.Redis)),
		processor,
		worker.WithMetrics(mon.Metrics()),
	), nil
}

func serveMetrics(ctx context.Context, g *errgroup.Group, addr string, mon *monitoring.Service) {
	mux := http.NewServeMux()
	mux.Handle(mon.Path(), mon.ExporterHandler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}
	g.Go(func() error {
		logger.FromContext(ctx).Info("Serving worker metrics", "address", addr, "path", mon.Path())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
