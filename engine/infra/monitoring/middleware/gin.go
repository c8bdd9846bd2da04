package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/refacekit/leadops/engine/infra/monitoring/metrics"
	"github.com/refacekit/leadops/pkg/logger"
)

type httpInstruments struct {
	requestsTotal    metric.Int64Counter
	requestDuration  metric.Float64Histogram
	requestsInFlight metric.Int64UpDownCounter
}

func newHTTPInstruments(meter metric.Meter) (*httpInstruments, error) {
	total, err := meter.Int64Counter(
		metrics.MetricNameWithSubsystem("http", "requests_total"),
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(
		metrics.MetricNameWithSubsystem("http", "request_duration_seconds"),
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(metrics.HTTPDurationBuckets...),
	)
	if err != nil {
		return nil, err
	}
	inFlight, err := meter.Int64UpDownCounter(
		metrics.MetricNameWithSubsystem("http", "requests_in_flight"),
		metric.WithDescription("Currently active HTTP requests"),
	)
	if err != nil {
		return nil, err
	}
	return &httpInstruments{requestsTotal: total, requestDuration: duration, requestsInFlight: inFlight}, nil
}

// HTTPMetrics returns a Gin middleware that collects HTTP metrics
func HTTPMetrics(meter metric.Meter) gin.HandlerFunc {
	if meter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	inst, err := newHTTPInstruments(meter)
	if err != nil {
		logger.Error("Failed to create HTTP metric instruments", "error", err)
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		inst.requestsInFlight.Add(c.Request.Context(), 1)
		defer inst.requestsInFlight.Add(c.Request.Context(), -1)

		c.Next()

		inst.record(c, start)
	}
}

func (i *httpInstruments) record(c *gin.Context, start time.Time) {
	path := c.FullPath()
	if path == "" {
		path = "unmatched"
	}
	attrs := metric.WithAttributes(
		attribute.String("method", c.Request.Method),
		attribute.String("path", path),
		attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
	)
	i.requestsTotal.Add(c.Request.Context(), 1, attrs)
	i.requestDuration.Record(c.Request.Context(), time.Since(start).Seconds(), attrs)
}
