// Package loop implements a single-threaded run loop for the signaling engine.
//
// All engine state is confined to one goroutine: external callers post
// closures onto the loop and return immediately, timer callbacks are
// re-posted onto the same goroutine before touching any shared state.
// This removes the need for locks in the engine entirely.
package loop

//go:generate errtrace -w .

import (
	"log/slog"
	"sync"

	"time"

	"github.com/ghettovoice/gophone/internal/errorutil"
	"github.com/ghettovoice/gophone/internal/timeutil"
	"github.com/ghettovoice/gophone/log"
)

// ErrClosed is returned when posting to a closed loop.
const ErrClosed errorutil.Error = "loop closed"

// Loop is a single-consumer task queue backed by one goroutine.
type Loop struct {
	tasks   chan func()
	closing chan struct{}
	done    chan struct{}
	once    sync.Once
	log     *slog.Logger

	// postMu serializes Post against Close: once Close ran, Post must
	// observe the closed state instead of parking fn in the buffer.
	postMu sync.Mutex

	mu     sync.Mutex
	timers map[*Task]struct{}
}

// Options contains options for a [Loop].
type Options struct {
	// QueueSize is the task queue capacity. If zero, 64 is used.
	QueueSize int
	// Log is the logger that will be used with the loop.
	// If nil, the [log.Default] will be used.
	Log *slog.Logger
}

func (o *Options) queueSize() int {
	if o == nil || o.QueueSize <= 0 {
		return 64
	}
	return o.QueueSize
}

func (o *Options) log() *slog.Logger {
	if o == nil || o.Log == nil {
		return log.Default()
	}
	return o.Log
}

// New creates a started [Loop].
func New(opts *Options) *Loop {
	l := &Loop{
		tasks:   make(chan func(), opts.queueSize()),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
		log:     opts.log(),
		timers:  make(map[*Task]struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case <-l.closing:
			return
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Post enqueues fn for execution on the loop goroutine.
// It never blocks the loop goroutine itself: fn runs later, in queue order.
func (l *Loop) Post(fn func()) error {
	if fn == nil {
		return errorutil.NewInvalidArgumentError("nil task")
	}
	l.postMu.Lock()
	defer l.postMu.Unlock()
	// A buffered send can win the race against a closed channel, so the
	// closed state has to be ruled out before offering fn to the queue.
	select {
	case <-l.closing:
		return ErrClosed
	default:
	}
	select {
	case <-l.closing:
		return ErrClosed
	case l.tasks <- fn:
		return nil
	}
}

// Task is a scheduled loop callback that can be canceled
// before it gets a chance to run.
type Task struct {
	loop     *Loop
	timer    *timeutil.Timer
	canceled bool
}

// Cancel stops the pending task. Canceling an already executed or
// canceled task is a no-op. Must be called on the loop goroutine,
// so that cancellation cannot race the callback.
func (t *Task) Cancel() {
	if t == nil {
		return
	}
	t.canceled = true
	t.timer.Stop()
	t.loop.forget(t)
}

// Left returns the time remaining until the task fires.
func (t *Task) Left() time.Duration {
	if t == nil {
		return 0
	}
	return t.timer.Left()
}

// Schedule arranges for fn to run on the loop goroutine after d.
// The returned [Task] may be used to cancel it.
func (l *Loop) Schedule(d time.Duration, fn func()) *Task {
	t := &Task{loop: l}
	t.timer = timeutil.AfterFunc(d, func() {
		err := l.Post(func() {
			l.forget(t)
			if t.canceled {
				return
			}
			fn()
		})
		if err != nil {
			l.forget(t)
		}
	})

	l.mu.Lock()
	l.timers[t] = struct{}{}
	l.mu.Unlock()
	return t
}

func (l *Loop) forget(t *Task) {
	l.mu.Lock()
	delete(l.timers, t)
	l.mu.Unlock()
}

// Close stops the loop goroutine and all pending scheduled tasks.
// Queued tasks that did not run yet are dropped.
func (l *Loop) Close() {
	l.once.Do(func() {
		l.postMu.Lock()
		close(l.closing)
		l.postMu.Unlock()

		l.mu.Lock()
		for t := range l.timers {
			t.timer.Stop()
		}
		clear(l.timers)
		l.mu.Unlock()
	})
	<-l.done
}
