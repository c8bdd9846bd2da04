package monitoring

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/refacekit/leadops/engine/infra/monitoring/metrics"
	"github.com/refacekit/leadops/engine/lead"
)

// Metrics exposes instruments for the ingest pipeline, the job queue and the
// conversion worker. A nil *Metrics or one built without a meter records
// nothing.
type Metrics struct {
	ingestRequests   metric.Int64Counter
	ingestRows       metric.Int64Counter
	jobsEnqueued     metric.Int64Counter
	jobsProcessed    metric.Int64Counter
	exportRecords    metric.Int64Counter
	jobsFailed       metric.Int64Counter
	queueReconnects  metric.Int64Counter
	stateTransitions metric.Int64Counter
}

type counterSpec struct {
	target      *metric.Int64Counter
	subsystem   string
	name        string
	description string
}

// NewMetrics creates every instrument on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	if meter == nil {
		return m, nil
	}
	specs := []counterSpec{
		{&m.ingestRequests, "ingest", "requests_total", "CSV uploads grouped by outcome"},
		{&m.ingestRows, "ingest", "rows_total", "Uploaded rows grouped by pipeline disposition"},
		{&m.jobsEnqueued, "queue", "jobs_enqueued_total", "Jobs pushed onto the queue"},
		{&m.jobsProcessed, "worker", "jobs_processed_total", "Jobs exported successfully"},
		{&m.exportRecords, "worker", "export_records_total", "Dialer records written to export files"},
		{&m.jobsFailed, "worker", "jobs_failed_total", "Jobs dropped grouped by failure kind"},
		{&m.queueReconnects, "worker", "queue_reconnects_total", "Successful reconnects to the job queue"},
		{&m.stateTransitions, "worker", "state_transitions_total", "Worker state changes grouped by entered state"},
	}
	for _, spec := range specs {
		counter, err := meter.Int64Counter(
			metrics.MetricNameWithSubsystem(spec.subsystem, spec.name),
			metric.WithDescription(spec.description),
		)
		if err != nil {
			return nil, fmt.Errorf("create %s_%s counter: %w", spec.subsystem, spec.name, err)
		}
		*spec.target = counter
	}
	return m, nil
}

func add(ctx context.Context, c metric.Int64Counter, n int64, attrs ...attribute.KeyValue) {
	if c == nil || n == 0 {
		return
	}
	c.Add(ctx, n, metric.WithAttributes(attrs...))
}

// RecordIngest counts one upload by outcome.
func (m *Metrics) RecordIngest(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	add(ctx, m.ingestRequests, 1, attribute.String("outcome", outcome))
}

// RecordPipeline counts rows by what the pipeline did with them.
func (m *Metrics) RecordPipeline(ctx context.Context, stats lead.Stats) {
	if m == nil {
		return
	}
	add(ctx, m.ingestRows, int64(stats.InputRows), attribute.String("disposition", "input"))
	add(ctx, m.ingestRows, int64(stats.InvalidPhone), attribute.String("disposition", "invalid_phone"))
	add(ctx, m.ingestRows, int64(stats.Duplicates), attribute.String("disposition", "duplicate"))
	add(ctx, m.ingestRows, int64(stats.OutputRows), attribute.String("disposition", "output"))
}

func (m *Metrics) RecordJobEnqueued(ctx context.Context) {
	if m == nil {
		return
	}
	add(ctx, m.jobsEnqueued, 1)
}

func (m *Metrics) RecordJobProcessed(ctx context.Context, records int) {
	if m == nil {
		return
	}
	add(ctx, m.jobsProcessed, 1)
	add(ctx, m.exportRecords, int64(records))
}

func (m *Metrics) RecordJobFailed(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	add(ctx, m.jobsFailed, 1, attribute.String("kind", kind))
}

func (m *Metrics) RecordReconnect(ctx context.Context) {
	if m == nil {
		return
	}
	add(ctx, m.queueReconnects, 1)
}

func (m *Metrics) RecordStateChange(ctx context.Context, state string) {
	if m == nil {
		return
	}
	add(ctx, m.stateTransitions, 1, attribute.String("state", state))
}
