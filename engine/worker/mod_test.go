package worker

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refacekit/leadops/engine/infra/redis"
	"github.com/refacekit/leadops/engine/job"
	"github.com/refacekit/leadops/pkg/logger"
)

type recordingMetrics struct {
	mu         sync.Mutex
	processed  int
	failed     []string
	reconnects int
}

func (m *recordingMetrics) RecordJobProcessed(context.Context, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed++
}

func (m *recordingMetrics) RecordJobFailed(_ context.Context, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = append(m.failed, kind)
}

func (m *recordingMetrics) RecordReconnect(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconnects++
}

func (m *recordingMetrics) RecordStateChange(context.Context, string) {}

func (m *recordingMetrics) snapshot() (int, []string, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processed, append([]string(nil), m.failed...), m.reconnects
}

func redisConfig(t *testing.T, mr *miniredis.Miniredis) *redis.Config {
	t.Helper()
	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)
	return &redis.Config{Host: host, Port: port, MaxRetries: -1, PingTimeout: time.Second, DialTimeout: time.Second}
}

func testConfig() *Config {
	return &Config{
		QueueName:      "lead_jobs",
		PollTimeout:    time.Second,
		Connect:        redis.RetryPolicy{Attempts: 3, Delay: 20 * time.Millisecond},
		ReconnectDelay: 50 * time.Millisecond,
		ErrorDelay:     50 * time.Millisecond,
	}
}

func push(t *testing.T, addr string, j *job.Job) {
	t.Helper()
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	defer client.Close()
	require.NoError(t, job.NewQueue(client, "lead_jobs").Enqueue(t.Context(), j))
}

func startWorker(t *testing.T, w *Worker) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(logger.ContextWithLogger(t.Context(), logger.NewForTests()))
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel, done
}

func TestWorker_Run(t *testing.T) {
	t.Run("Should fail when the startup budget runs out", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := redisConfig(t, mr)
		mr.Close()
		p, _ := newTestProcessor(t)
		w := NewWorker(testConfig(), redis.Dialer(cfg), p)

		ctx := logger.ContextWithLogger(t.Context(), logger.NewForTests())
		err := w.Run(ctx)
		assert.ErrorIs(t, err, redis.ErrConnectExhausted)
		assert.Equal(t, StateStopped, w.State())
	})

	t.Run("Should process queued jobs and stop on cancel", func(t *testing.T) {
		mr := miniredis.RunT(t)
		p, fsys := newTestProcessor(t)
		metrics := &recordingMetrics{}
		w := NewWorker(testConfig(), redis.Dialer(redisConfig(t, mr)), p, WithMetrics(metrics))

		push(t, mr.Addr(), job.New("good.csv", "phone_number_normalized\n5551234567\n", 1, time.Now()))
		push(t, mr.Addr(), job.New("bad.csv", "first_name\nAnn\n", 1, time.Now()))
		cancel, done := startWorker(t, w)

		assert.Eventually(t, func() bool {
			processed, failed, _ := metrics.snapshot()
			return processed == 1 && len(failed) == 1
		}, 5*time.Second, 20*time.Millisecond)
		_, failed, _ := metrics.snapshot()
		assert.Equal(t, []string{string(KindNoRecords)}, failed)
		assert.Len(t, exportFiles(t, fsys), 1)

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("worker did not stop")
		}
		assert.Equal(t, StateStopped, w.State())
	})

	t.Run("Should drop undecodable payloads and keep going", func(t *testing.T) {
		mr := miniredis.RunT(t)
		p, fsys := newTestProcessor(t)
		metrics := &recordingMetrics{}
		w := NewWorker(testConfig(), redis.Dialer(redisConfig(t, mr)), p, WithMetrics(metrics))

		_, err := mr.Lpush("lead_jobs", "not json")
		require.NoError(t, err)
		push(t, mr.Addr(), job.New("good.csv", "phone\n5551234567\n", 1, time.Now()))
		startWorker(t, w)

		assert.Eventually(t, func() bool {
			processed, failed, _ := metrics.snapshot()
			return processed == 1 && len(failed) == 1
		}, 5*time.Second, 20*time.Millisecond)
		_, failed, _ := metrics.snapshot()
		assert.Equal(t, []string{string(KindBadPayload)}, failed)
		assert.Len(t, exportFiles(t, fsys), 1)
	})

	t.Run("Should back off on rejected polls without reconnecting", func(t *testing.T) {
		mr := miniredis.RunT(t)
		p, fsys := newTestProcessor(t)
		metrics := &recordingMetrics{}
		require.NoError(t, mr.Set("lead_jobs", "oops"))
		w := NewWorker(testConfig(), redis.Dialer(redisConfig(t, mr)), p, WithMetrics(metrics))
		startWorker(t, w)

		time.Sleep(500 * time.Millisecond)
		_, _, reconnects := metrics.snapshot()
		assert.Zero(t, reconnects)
		assert.Less(t, mr.CommandCount(), 50)

		mr.Del("lead_jobs")
		push(t, mr.Addr(), job.New("after.csv", "phone_number\n5551234567\n", 1, time.Now()))
		assert.Eventually(t, func() bool {
			processed, _, _ := metrics.snapshot()
			return processed == 1
		}, 5*time.Second, 20*time.Millisecond)
		assert.Len(t, exportFiles(t, fsys), 1)
		_, _, reconnects = metrics.snapshot()
		assert.Zero(t, reconnects)
	})

	t.Run("Should reconnect after the server restarts", func(t *testing.T) {
		mr := miniredis.RunT(t)
		p, fsys := newTestProcessor(t)
		metrics := &recordingMetrics{}
		w := NewWorker(testConfig(), redis.Dialer(redisConfig(t, mr)), p, WithMetrics(metrics))
		startWorker(t, w)

		assert.Eventually(t, func() bool { return w.State() == StatePolling }, 5*time.Second, 10*time.Millisecond)
		mr.Close()
		assert.Eventually(t, func() bool {
			s := w.State()
			return s == StateReconnecting || s == StateConnecting
		}, 5*time.Second, 10*time.Millisecond)

		require.NoError(t, mr.Restart())
		assert.Eventually(t, func() bool {
			_, _, reconnects := metrics.snapshot()
			return reconnects >= 1
		}, 5*time.Second, 20*time.Millisecond)

		push(t, mr.Addr(), job.New("after.csv", "phone_number\n5551234567\n", 1, time.Now()))
		assert.Eventually(t, func() bool {
			matches, _ := afero.Glob(fsys, "/exports/vici_export_*.csv")
			return len(matches) == 1
		}, 5*time.Second, 20*time.Millisecond)
	})
}
