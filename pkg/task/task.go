// Package task defines the unit-of-work abstraction the scheduler drains:
// a Task is a tagged wrapper around a single work unit that either runs to
// completion on the calling goroutine or suspends and resolves later on
// the host's cooperative runtime.
package task

import (
	"context"
	"sync"
)

// SyncUnit is a unit of work that runs to completion on the calling
// goroutine. Execute returns the next task to run, or nil when the chain
// ends. There is no error return: a failing unit reports through its own
// side channels and yields no continuation.
type SyncUnit interface {
	Execute(ctx context.Context) *Task
}

// AsyncUnit is a unit of work that suspends. Execute returns promptly with
// a Suspension that later resolves to the optional continuation; the
// caller is not blocked while the unit's external event completes.
type AsyncUnit interface {
	Execute(ctx context.Context) *Suspension
}

// Task wraps one work unit as either the synchronous or the asynchronous
// variant. It has no behavior of its own beyond carrying the unit and its
// discriminant; a task is identified by its slot in the queue.
type Task struct {
	sync  SyncUnit
	async AsyncUnit
}

// NewSync wraps u as a synchronous task.
func NewSync(u SyncUnit) *Task { return &Task{sync: u} }

// NewAsync wraps u as an asynchronous task.
func NewAsync(u AsyncUnit) *Task { return &Task{async: u} }

// IsAsync reports whether the task holds an asynchronous unit.
func (t *Task) IsAsync() bool { return t.async != nil }

// Sync returns the wrapped synchronous unit, or nil for async tasks.
func (t *Task) Sync() SyncUnit { return t.sync }

// Async returns the wrapped asynchronous unit, or nil for sync tasks.
func (t *Task) Async() AsyncUnit { return t.async }

// Suspension is the deferred result of an asynchronous unit. It resolves
// exactly once with an optional continuation; later Resolve calls are
// ignored.
type Suspension struct {
	once sync.Once
	ch   chan *Task
}

// NewSuspension returns an unresolved suspension.
func NewSuspension() *Suspension {
	return &Suspension{ch: make(chan *Task, 1)}
}

// Resolve completes the suspension with the optional continuation.
func (s *Suspension) Resolve(next *Task) {
	s.once.Do(func() {
		s.ch <- next
		close(s.ch)
	})
}

// Done returns a channel that yields the continuation (possibly nil) once
// the suspension resolves.
func (s *Suspension) Done() <-chan *Task { return s.ch }
