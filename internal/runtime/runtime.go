// Package runtime provides the host's cooperative execution primitive: a
// single goroutine that runs detached computations in submission order.
// The scheduler hands suspending work to it fire-and-forget; there is no
// handle, no join, and no preemption. A computation that waits holds the
// thread until it finishes, as on any cooperative host.
package runtime

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
)

// Runtime is the single-threaded cooperative executor.
type Runtime struct {
	tasks  chan func()
	logger *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New creates a runtime whose submission queue holds up to depth pending
// computations. Non-positive depth falls back to a small default.
func New(depth int, logger *slog.Logger) *Runtime {
	if depth <= 0 {
		depth = 64
	}
	return &Runtime{
		tasks:  make(chan func(), depth),
		logger: logger.With("component", "runtime"),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start runs the cooperative thread. Blocks until ctx is cancelled or
// Stop is called; on Stop, computations already submitted still run.
func (r *Runtime) Start(ctx context.Context) error {
	r.logger.Debug("runtime started", "depth", cap(r.tasks))
	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("runtime stopping (context cancelled)")
			close(r.doneCh)
			return ctx.Err()
		case <-r.stopCh:
			r.drain()
			r.logger.Debug("runtime stopping (stop called)")
			close(r.doneCh)
			return nil
		case fn := <-r.tasks:
			r.invoke(fn)
		}
	}
}

// Stop shuts the runtime down after running what was already submitted,
// then waits for the thread to exit.
func (r *Runtime) Stop() error {
	r.stopOnce.Do(func() { close(r.stopCh) })
	<-r.doneCh
	return nil
}

// Spawn detaches fn for execution on the cooperative thread. Completion
// is not observable through the runtime. A saturated or stopped runtime
// drops the computation with a warning rather than blocking the caller.
func (r *Runtime) Spawn(fn func()) {
	if fn == nil {
		return
	}
	select {
	case <-r.doneCh:
		r.logger.Warn("spawn dropped (runtime stopped)")
		return
	default:
	}
	select {
	case r.tasks <- fn:
	default:
		r.logger.Warn("spawn dropped (runtime saturated)", "depth", cap(r.tasks))
	}
}

func (r *Runtime) drain() {
	for {
		select {
		case fn := <-r.tasks:
			r.invoke(fn)
		default:
			return
		}
	}
}

func (r *Runtime) invoke(fn func()) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("spawned computation panicked", "panic", p, "stack", string(debug.Stack()))
		}
	}()
	fn()
}
