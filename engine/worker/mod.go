package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/refacekit/leadops/engine/infra/redis"
	"github.com/refacekit/leadops/engine/job"
	"github.com/refacekit/leadops/pkg/logger"
)

// -----------------------------------------------------------------------------
// Queue worker
// -----------------------------------------------------------------------------

type Config struct {
	QueueName      string
	PollTimeout    time.Duration
	Connect        redis.RetryPolicy
	ReconnectDelay time.Duration
	// ErrorDelay is the pause after the server rejects a poll. The
	// connection is kept.
	ErrorDelay time.Duration
}

// Worker pops jobs off the queue one at a time and exports them. It owns its
// connection handle: a lost connection is closed and replaced by a new one,
// never reused.
type Worker struct {
	config    *Config
	dial      redis.DialFunc
	processor *Processor
	metrics   Metrics

	state atomic.Value
	mu    sync.Mutex
	conn  *redis.Conn
	queue *job.Queue
}

type Option func(*Worker)

// WithMetrics reports loop events to m.
func WithMetrics(m Metrics) Option {
	return func(w *Worker) {
		if m != nil {
			w.metrics = m
		}
	}
}

func NewWorker(config *Config, dial redis.DialFunc, processor *Processor, opts ...Option) *Worker {
	w := &Worker{
		config:    config,
		dial:      dial,
		processor: processor,
		metrics:   noopMetrics{},
	}
	w.state.Store(StateStopped)
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns the current loop phase.
func (w *Worker) State() State {
	return w.state.Load().(State)
}

func (w *Worker) setState(ctx context.Context, s State) {
	prev := w.state.Swap(s)
	if prev == s {
		return
	}
	logger.FromContext(ctx).Debug("Worker state changed", "from", prev, "to", s)
	w.metrics.RecordStateChange(ctx, s.String())
}

// Run connects and processes jobs until ctx is cancelled. It fails only when
// the initial connect budget runs out; later connection losses are retried
// forever. A job already being processed is finished before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).With("component", "worker", "queue", w.config.QueueName)
	ctx = logger.ContextWithLogger(ctx, log)
	defer w.setState(context.WithoutCancel(ctx), StateStopped)

	w.setState(ctx, StateConnecting)
	conn, err := redis.Retry(ctx, w.config.Connect, w.dial)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("connecting to job queue: %w", err)
	}
	w.attach(conn)
	defer w.detach()
	log.Info("Worker started", "poll_timeout", w.config.PollTimeout)

	for ctx.Err() == nil {
		w.setState(ctx, StateReady)
		if !w.poll(ctx) {
			break
		}
	}
	log.Info("Worker stopped")
	return nil
}

// poll runs one POLLING step and, when a job arrives, one PROCESSING step.
// It returns false once the loop should exit.
func (w *Worker) poll(ctx context.Context) bool {
	log := logger.FromContext(ctx)
	w.setState(ctx, StatePolling)
	j, payload, err := w.currentQueue().Dequeue(ctx, w.config.PollTimeout)
	switch {
	case ctx.Err() != nil:
		return false
	case errors.Is(err, job.ErrMalformedJob):
		log.Error("Dropped undecodable job", "error", err, "payload_bytes", len(payload))
		w.metrics.RecordJobFailed(ctx, string(KindBadPayload))
		return true
	case errors.Is(err, job.ErrRejected):
		log.Error("Job queue rejected poll", "error", err, "retry_in", w.config.ErrorDelay)
		return sleep(ctx, w.config.ErrorDelay)
	case err != nil:
		log.Error("Job queue connection lost", "error", err)
		return w.reconnect(ctx)
	case j == nil:
		return true
	}

	w.setState(ctx, StateProcessing)
	w.process(context.WithoutCancel(ctx), j)
	return true
}

func (w *Worker) process(ctx context.Context, j *job.Job) {
	log := logger.FromContext(ctx).With("job_id", j.DisplayID(), "filename", j.DisplayFilename())
	ctx = logger.ContextWithLogger(ctx, log)
	log.Info("Processing job", "rows", j.Rows)

	outcome, err := w.processor.Process(ctx, j)
	if err != nil {
		log.Error("Failed to process job", "kind", KindOf(err), "error", err)
		w.metrics.RecordJobFailed(ctx, string(KindOf(err)))
		return
	}
	log.Info("Exported job", "path", outcome.Path, "records", outcome.Records)
	w.metrics.RecordJobProcessed(ctx, outcome.Records)
}

// reconnect drops the current handle and dials until a new one is up,
// waiting ReconnectDelay between exhausted budgets. It returns false only
// when ctx is cancelled.
func (w *Worker) reconnect(ctx context.Context) bool {
	log := logger.FromContext(ctx)
	w.setState(ctx, StateReconnecting)
	w.detach()
	for {
		w.setState(ctx, StateConnecting)
		conn, err := redis.Retry(ctx, w.config.Connect, w.dial)
		if err == nil {
			w.attach(conn)
			w.metrics.RecordReconnect(ctx)
			log.Info("Reconnected to job queue")
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		log.Error("Failed to reconnect", "error", err, "retry_in", w.config.ReconnectDelay)
		w.setState(ctx, StateReconnecting)
		if !sleep(ctx, w.config.ReconnectDelay) {
			return false
		}
	}
}

// sleep waits for d and reports false if ctx ends first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (w *Worker) attach(conn *redis.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn = conn
	w.queue = job.NewQueue(conn.Client(), w.config.QueueName)
}

func (w *Worker) detach() {
	w.mu.Lock()
	conn := w.conn
	w.conn, w.queue = nil, nil
	w.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (w *Worker) currentQueue() *job.Queue {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.queue
}
