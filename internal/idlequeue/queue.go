// Package idlequeue runs deferred work one task at a time whenever the host
// reports it is idle.
package idlequeue

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// DefaultTimeout bounds how long a task waits for an idle period.
const DefaultTimeout = 5 * time.Second

// Task is a unit of deferred work. Its context is cancelled when the task is
// cancelled while running; the task must then skip any completion writes.
type Task func(ctx context.Context) error

// CancelFunc removes a task from the queue, or cancels it if it is running.
// Calling it more than once is harmless.
type CancelFunc func()

// Scheduler calls fn once the host is idle or timeout has passed, unless the
// returned cancel function is called first.
type Scheduler interface {
	RequestIdle(fn func(), timeout time.Duration) (cancel func())
}

type entry struct {
	id         string
	task       Task
	ctx        context.Context
	cancel     context.CancelFunc
	cancelIdle func()
	running    bool
}

// Queue is a FIFO of tasks keyed by id. Enqueueing an id that is already
// pending replaces the pending task and moves it to the back.
type Queue struct {
	mu      sync.Mutex
	sched   Scheduler
	timeout time.Duration
	pending []*entry
	active  *entry
	closed  bool
	logger  *slog.Logger
}

type Option func(*Queue)

func WithTimeout(d time.Duration) Option {
	return func(q *Queue) { q.timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

func New(s Scheduler, opts ...Option) *Queue {
	q := &Queue{sched: s, timeout: DefaultTimeout, logger: slog.Default()}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue adds task under id and returns a function that cancels this
// particular instance.
func (q *Queue) Enqueue(id string, task Task) CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())
	e := &entry{id: id, task: task, ctx: ctx, cancel: cancel}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		cancel()
		return func() {}
	}
	q.pending = slices.DeleteFunc(q.pending, func(p *entry) bool {
		if p.id == id {
			p.cancel()
			return true
		}
		return false
	})
	q.pending = append(q.pending, e)
	if q.active == nil {
		q.scheduleNext()
	}
	return func() { q.cancelEntry(e) }
}

// Len returns the number of tasks waiting, including the scheduled one.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.pending)
	if q.active != nil {
		n++
	}
	return n
}

// Close cancels every pending and running task. Later Enqueue calls are
// ignored.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	for _, e := range q.pending {
		e.cancel()
	}
	q.pending = nil
	if a := q.active; a != nil {
		if !a.running && a.cancelIdle != nil {
			a.cancelIdle()
		}
		a.cancel()
		q.active = nil
	}
}

// scheduleNext must be called with mu held and no active task.
func (q *Queue) scheduleNext() {
	if len(q.pending) == 0 || q.closed {
		return
	}
	e := q.pending[0]
	q.pending = q.pending[1:]
	q.active = e
	// the scheduler may invoke the callback synchronously
	q.mu.Unlock()
	cancelIdle := q.sched.RequestIdle(func() { q.run(e) }, q.timeout)
	q.mu.Lock()
	if q.active == e {
		e.cancelIdle = cancelIdle
	}
}

func (q *Queue) run(e *entry) {
	q.mu.Lock()
	if q.active != e || e.ctx.Err() != nil {
		q.mu.Unlock()
		return
	}
	e.running = true
	q.mu.Unlock()

	if err := e.task(e.ctx); err != nil && e.ctx.Err() == nil {
		q.logger.Warn("idle task failed", "task", e.id, "error", err)
	}
	e.cancel()

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.active == e {
		q.active = nil
		q.scheduleNext()
	}
}

func (q *Queue) cancelEntry(e *entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e.cancel()

	if i := slices.Index(q.pending, e); i != -1 {
		q.pending = slices.Delete(q.pending, i, i+1)
		return
	}
	if q.active != e {
		return
	}
	if e.running {
		// run advances the queue once the task returns
		return
	}
	if e.cancelIdle != nil {
		e.cancelIdle()
	}
	q.active = nil
	q.scheduleNext()
}
