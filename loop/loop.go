// Package loop provides a cooperative, single-consumer task queue. Each
// host connection owns one Loop so that everything touching that
// connection's channels runs one task at a time.
package loop

import (
	"context"
	"errors"
	"sync"

	"github.com/eapache/queue"
)

// ErrClosed is returned by Run when the loop was closed and drained.
var ErrClosed = errors.New("loop: closed")

// Loop runs posted tasks in FIFO order. A task posted while another task is
// running (for example with Defer) runs after the current task returns and
// after every task that was already queued.
type Loop struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tasks  *queue.Queue
	closed bool

	// exec is held while a task runs so Drain and Run never overlap.
	exec sync.Mutex
}

// New returns an empty loop. Nothing runs until Run or Drain is called.
func New() *Loop {
	l := &Loop{tasks: queue.New()}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Post queues fn. It returns false if the loop has been closed.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.tasks.Add(fn)
	l.cond.Signal()
	return true
}

// Defer schedules fn for the next turn of the loop. It returns false if
// the loop has been closed and fn will never run.
func (l *Loop) Defer(fn func()) bool {
	return l.Post(fn)
}

// Len returns the number of queued tasks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tasks.Length()
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tasks.Length() == 0 {
		return nil, false
	}
	return l.tasks.Remove().(func()), true
}

func (l *Loop) run(fn func()) {
	l.exec.Lock()
	defer l.exec.Unlock()
	fn()
}

// Drain runs queued tasks on the calling goroutine until the queue is
// empty, including tasks queued by the tasks it runs. It returns the
// number of tasks run.
func (l *Loop) Drain() int {
	n := 0
	for {
		fn, ok := l.next()
		if !ok {
			return n
		}
		l.run(fn)
		n++
	}
}

// Run processes tasks until ctx is done or the loop is closed and empty.
func (l *Loop) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		l.mu.Lock()
		l.cond.Broadcast()
		l.mu.Unlock()
	})
	defer stop()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn, ok := l.nextCtx(ctx)
		if !ok {
			if err := ctx.Err(); err != nil {
				return err
			}
			return ErrClosed
		}
		l.run(fn)
	}
}

func (l *Loop) nextCtx(ctx context.Context) (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.tasks.Length() == 0 {
		if l.closed || ctx.Err() != nil {
			return nil, false
		}
		l.cond.Wait()
	}
	return l.tasks.Remove().(func()), true
}

// Close stops the loop from accepting tasks. Tasks already queued still run.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.cond.Broadcast()
}

// Closed reports whether Close has been called.
func (l *Loop) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
