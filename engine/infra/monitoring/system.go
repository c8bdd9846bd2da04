package monitoring

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/refacekit/leadops/engine/infra/monitoring/metrics"
	"github.com/refacekit/leadops/pkg/logger"
	"github.com/refacekit/leadops/pkg/version"
)

// registerSystemMetrics records build info and reports process uptime.
func registerSystemMetrics(ctx context.Context, meter metric.Meter) (metric.Registration, error) {
	buildInfo, err := meter.Float64Gauge(
		metrics.MetricName("build_info"),
		metric.WithDescription("Build information (value=1)"),
	)
	if err != nil {
		return nil, fmt.Errorf("create build info gauge: %w", err)
	}
	uptime, err := meter.Float64ObservableGauge(
		metrics.MetricName("uptime_seconds"),
		metric.WithDescription("Service uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create uptime gauge: %w", err)
	}
	start := time.Now()
	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveFloat64(uptime, time.Since(start).Seconds())
		return nil
	}, uptime)
	if err != nil {
		return nil, fmt.Errorf("register uptime callback: %w", err)
	}

	info := version.Get()
	buildInfo.Record(ctx, 1, metric.WithAttributes(
		attribute.String("version", info.Version),
		attribute.String("commit_hash", info.CommitHash),
		attribute.String("go_version", info.GoVersion),
	))
	logger.FromContext(ctx).Debug("System metrics initialized", "version", info.Version, "commit", info.CommitHash)
	return reg, nil
}
