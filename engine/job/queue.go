package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrUnavailable wraps transport failures talking to the queue store.
	ErrUnavailable = errors.New("job queue unavailable")
	// ErrMalformedJob marks a popped payload that could not be decoded. The
	// payload is gone from the queue by then.
	ErrMalformedJob = errors.New("malformed job payload")
	// ErrRejected wraps error replies from a reachable server, such as
	// WRONGTYPE when the queue key holds something other than a list.
	ErrRejected = errors.New("job queue command rejected")
)

const minPopTimeout = time.Second

// Client is the subset of go-redis the queue needs.
type Client interface {
	LPush(ctx context.Context, key string, values ...any) *redis.IntCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	LLen(ctx context.Context, key string) *redis.IntCmd
}

// Queue is a FIFO of jobs over one Redis list: producers LPUSH, consumers
// BRPOP. A popped job is owned by its consumer alone and is lost if that
// consumer dies before finishing it.
type Queue struct {
	client Client
	name   string
}

func NewQueue(client Client, name string) *Queue {
	return &Queue{client: client, name: name}
}

// Name returns the list key.
func (q *Queue) Name() string {
	return q.name
}

// Enqueue appends j to the tail of the queue.
func (q *Queue) Enqueue(ctx context.Context, j *Job) error {
	data, err := j.Encode()
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, q.name, data).Err(); err != nil {
		return classify("pushing job "+j.ID, err)
	}
	return nil
}

// Dequeue pops the job at the head, waiting up to timeout. It returns
// (nil, nil) when no job arrived in time. A payload that fails to decode is
// reported as ErrMalformedJob along with the raw bytes. Timeouts below one
// second are raised to one second; a zero BRPOP timeout would block forever.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, []byte, error) {
	timeout = max(timeout, minPopTimeout)
	res, err := q.client.BRPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil, nil
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		return nil, nil, classify("popping from "+q.name, err)
	}
	if len(res) != 2 {
		return nil, nil, fmt.Errorf("%w: unexpected BRPOP reply of %d elements", ErrRejected, len(res))
	}
	payload := []byte(res[1])
	j, err := Decode(payload)
	if err != nil {
		return nil, payload, err
	}
	return j, payload, nil
}

// Len returns the number of queued jobs.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.name).Result()
	if err != nil {
		return 0, classify("measuring "+q.name, err)
	}
	return n, nil
}

func classify(op string, err error) error {
	var reply redis.Error
	if errors.As(err, &reply) {
		return fmt.Errorf("%w: %s: %w", ErrRejected, op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}
