package appstate

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/refacekit/leadops/engine/infra/monitoring"
	"github.com/refacekit/leadops/engine/job"
)

type contextKey string

const (
	stateKey contextKey = "app_state"
)

// Queue is the producer side of the job queue.
type Queue interface {
	Enqueue(ctx context.Context, j *job.Job) error
	Len(ctx context.Context) (int64, error)
}

// Pinger reports whether the queue store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type BaseDeps struct {
	Queue      Queue
	Redis      Pinger
	Monitoring *monitoring.Service
}

func NewBaseDeps(queue Queue, redis Pinger, mon *monitoring.Service) BaseDeps {
	return BaseDeps{
		Queue:      queue,
		Redis:      redis,
		Monitoring: mon,
	}
}

// State carries the dependencies shared by every request handler.
type State struct {
	BaseDeps
	Version string
}

func NewState(deps BaseDeps, version string) (*State, error) {
	if deps.Queue == nil {
		return nil, fmt.Errorf("job queue is required")
	}
	if deps.Redis == nil {
		return nil, fmt.Errorf("redis health check is required")
	}
	return &State{
		BaseDeps: deps,
		Version:  version,
	}, nil
}

// Metrics returns the lead instruments, or nil when monitoring is off.
func (s *State) Metrics() *monitoring.Metrics {
	if s.Monitoring == nil {
		return nil
	}
	return s.Monitoring.Metrics()
}

func WithState(ctx context.Context, state *State) context.Context {
	return context.WithValue(ctx, stateKey, state)
}

func GetState(ctx context.Context) (*State, error) {
	state, ok := ctx.Value(stateKey).(*State)
	if !ok {
		return nil, fmt.Errorf("app state not found in context")
	}
	return state, nil
}

func StateMiddleware(state *State) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := WithState(c.Request.Context(), state)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
