// Package queue adapts a durable region into the FIFO task container the
// scheduler drains.
package queue

import (
	"context"
	"fmt"

	"github.com/me/durq/pkg/task"
)

// Queue is the scheduler's view of the pending-task container.
//
// Push appends to the tail and is durable once it returns nil. Get reads
// the i-th live element without removing it. Claim atomically takes the
// front live element and marks it in flight, so no other dispatcher can
// observe it live afterwards.
type Queue interface {
	Push(ctx context.Context, t *task.Task) error
	Get(ctx context.Context, i uint64) (*task.Task, error)
	Claim(ctx context.Context) (*task.Task, error)
	Len(ctx context.Context) (uint64, error)
}

// StorageError wraps a failure of the durable backing store. Callers can
// unwrap it to reach sentinel causes such as region.ErrRegionFull.
type StorageError struct {
	Op  string // "push", "get", "claim", "len"
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("queue %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
