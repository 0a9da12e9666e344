package queue

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/me/durq/internal/region"
	"github.com/me/durq/pkg/task"
)

// Durable implements Queue over one region. Elements are stored in their
// codec envelope form, so the queue's contents survive process restarts
// as long as every unit kind is registered again on startup.
type Durable struct {
	region *region.Region
	codec  *task.Codec
	logger *slog.Logger
}

// NewDurable wraps r as a task queue using c for element encoding.
func NewDurable(r *region.Region, c *task.Codec, logger *slog.Logger) *Durable {
	return &Durable{
		region: r,
		codec:  c,
		logger: logger.With("component", "queue", "region", r.Name()),
	}
}

// Push appends t to the tail. The element is durable once Push returns nil.
func (q *Durable) Push(ctx context.Context, t *task.Task) error {
	body, err := q.codec.Encode(t)
	if err != nil {
		return &StorageError{Op: "push", Err: err}
	}
	pos, err := q.region.Append(ctx, body)
	if err != nil {
		return &StorageError{Op: "push", Err: err}
	}
	q.logger.Debug("task appended", "pos", pos)
	return nil
}

// Get returns the i-th live task without removing it, or nil, nil when i
// is past the live tail.
func (q *Durable) Get(ctx context.Context, i uint64) (*task.Task, error) {
	body, err := q.region.Read(ctx, i)
	if err != nil {
		return nil, &StorageError{Op: "get", Err: err}
	}
	if body == nil {
		return nil, nil
	}
	t, err := q.codec.Decode(body)
	if err != nil {
		return nil, &StorageError{Op: "get", Err: err}
	}
	return t, nil
}

// Claim takes the front live task, marking it in flight in the same
// storage transaction. Returns nil, nil when the queue is empty.
func (q *Durable) Claim(ctx context.Context) (*task.Task, error) {
	body, err := q.region.Consume(ctx)
	if err != nil {
		return nil, &StorageError{Op: "claim", Err: err}
	}
	if body == nil {
		return nil, nil
	}
	t, err := q.codec.Decode(body)
	if err != nil {
		return nil, &StorageError{Op: "claim", Err: err}
	}
	return t, nil
}

// Len returns the number of live tasks.
func (q *Durable) Len(ctx context.Context) (uint64, error) {
	n, err := q.region.Len(ctx)
	if err != nil {
		return 0, &StorageError{Op: "len", Err: err}
	}
	return n, nil
}

// Total returns the lifetime number of pushed tasks, dispatched or not.
func (q *Durable) Total(ctx context.Context) (uint64, error) {
	n, err := q.region.Total(ctx)
	if err != nil {
		return 0, &StorageError{Op: "len", Err: err}
	}
	return n, nil
}

// List returns the envelopes of all live tasks in queue order. It serves
// inspection surfaces; the scheduler itself never needs it.
func (q *Durable) List(ctx context.Context) ([]task.Envelope, error) {
	bodies, err := q.region.ReadAll(ctx)
	if err != nil {
		return nil, &StorageError{Op: "get", Err: err}
	}
	envs := make([]task.Envelope, 0, len(bodies))
	for _, body := range bodies {
		var env task.Envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, &StorageError{Op: "get", Err: err}
		}
		envs = append(envs, env)
	}
	return envs, nil
}
