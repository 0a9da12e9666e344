package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/me/durq/internal/queue"
	"github.com/me/durq/internal/runtime"
	"github.com/me/durq/pkg/task"
)

// Config holds engine configuration.
type Config struct {
	PollInterval time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{PollInterval: 2 * time.Second}
}

// Engine implements Scheduler. It owns one lock-guarded handle to the
// durable queue and a reference to the host runtime that executes
// suspending units. The lock covers a single composite queue operation
// (the front peek+claim, or one append), never a full dispatch, so a
// resolving asynchronous continuation and a fresh Run invocation can
// interleave safely.
type Engine struct {
	mu     sync.Mutex
	queue  queue.Queue
	rt     *runtime.Runtime
	config Config
	logger *slog.Logger
	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates an engine draining q, offloading suspending units onto rt.
func New(q queue.Queue, rt *runtime.Runtime, cfg Config, logger *slog.Logger) *Engine {
	return &Engine{
		queue:  q,
		rt:     rt,
		config: cfg,
		logger: logger.With("component", "scheduler"),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// AddTask appends t to the queue, propagating storage failures to the
// caller. A nil task is accepted and ignored, so producers can hand over
// an optional continuation without checking it first.
func (e *Engine) AddTask(ctx context.Context, t *task.Task) error {
	if t == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Push(ctx, t)
}

// Run drains the queue: each iteration claims the front live task under
// the lock, then dispatches it outside the lock. Synchronous units run
// inline; asynchronous units are detached onto the host runtime, and
// their continuations are appended whenever their suspension resolves,
// possibly after Run has already returned. Run terminates when no live
// task remains; it does not wait for pending resolutions.
func (e *Engine) Run(ctx context.Context) error {
	log := e.logger.With("run_id", "run_"+uuid.New().String()[:8])

	dispatched := 0
	for {
		e.mu.Lock()
		t, err := e.queue.Claim(ctx)
		e.mu.Unlock()
		if err != nil {
			return err
		}
		if t == nil {
			if dispatched > 0 {
				log.Info("queue drained", "dispatched", dispatched)
			}
			return nil
		}

		dispatched++
		if t.IsAsync() {
			log.Debug("dispatch", "variant", "async")
			e.dispatchAsync(ctx, t.Async(), log)
		} else {
			log.Debug("dispatch", "variant", "sync")
			e.dispatchSync(ctx, t.Sync(), log)
		}
	}
}

// dispatchSync runs the unit on the calling goroutine and re-enqueues its
// continuation. A push failure here has no path back to Run's caller; the
// continuation is dropped and the failure surfaces only in the log.
func (e *Engine) dispatchSync(ctx context.Context, u task.SyncUnit, log *slog.Logger) {
	if next := u.Execute(ctx); next != nil {
		e.pushContinuation(ctx, next, log)
	}
}

// dispatchAsync detaches the unit onto the host runtime and returns
// immediately. The continuation, if any, is appended from the runtime
// thread once the suspension resolves.
func (e *Engine) dispatchAsync(ctx context.Context, u task.AsyncUnit, log *slog.Logger) {
	// The resolution outlives the drain pass that detached it.
	ctx = context.WithoutCancel(ctx)
	e.rt.Spawn(func() {
		susp := u.Execute(ctx)
		if next := <-susp.Done(); next != nil {
			e.pushContinuation(ctx, next, log)
		}
	})
}

func (e *Engine) pushContinuation(ctx context.Context, next *task.Task, log *slog.Logger) {
	e.mu.Lock()
	err := e.queue.Push(ctx, next)
	e.mu.Unlock()
	if err != nil {
		log.Error("push continuation", "error", err)
	}
}

// Start drains the queue on a fixed interval. Blocks until ctx is
// cancelled or Stop is called.
func (e *Engine) Start(ctx context.Context) error {
	e.logger.Info("scheduler started", "poll_interval", e.config.PollInterval)
	ticker := time.NewTicker(e.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("scheduler stopping (context cancelled)")
			close(e.doneCh)
			return ctx.Err()
		case <-e.stopCh:
			e.logger.Info("scheduler stopping (stop called)")
			close(e.doneCh)
			return nil
		case <-ticker.C:
			if err := e.Run(ctx); err != nil {
				e.logger.Error("drain error", "error", err)
			}
		}
	}
}

// Stop gracefully shuts down the periodic drain and waits for the loop to
// exit.
func (e *Engine) Stop() error {
	close(e.stopCh)
	<-e.doneCh
	return nil
}
