package worker

import "context"

// Metrics receives worker loop events.
type Metrics interface {
	RecordJobProcessed(ctx context.Context, records int)
	RecordJobFailed(ctx context.Context, kind string)
	RecordReconnect(ctx context.Context)
	RecordStateChange(ctx context.Context, state string)
}

type noopMetrics struct{}

func (noopMetrics) RecordJobProcessed(context.Context, int)   {}
func (noopMetrics) RecordJobFailed(context.Context, string)   {}
func (noopMetrics) RecordReconnect(context.Context)           {}
func (noopMetrics) RecordStateChange(context.Context, string) {}
