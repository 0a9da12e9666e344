// Package scheduler implements the continuation-style drain loop over a
// durable task queue: producers enqueue tasks, and the run loop dispatches
// each one to its execution discipline, re-enqueuing whatever continuation
// it yields.
package scheduler

import (
	"context"

	"github.com/me/durq/pkg/task"
)

// Scheduler accepts tasks and drains them in FIFO order.
type Scheduler interface {
	// AddTask appends an optional task to the queue. Nil is a no-op.
	AddTask(ctx context.Context, t *task.Task) error

	// Run drains the queue once: it dispatches live tasks until none
	// remain. Continuations of asynchronous tasks may still be pending
	// when Run returns.
	Run(ctx context.Context) error

	// Start drains the queue periodically. Blocks until ctx is cancelled
	// or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the periodic drain.
	Stop() error
}
