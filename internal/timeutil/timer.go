// Package timeutil provides timer helpers.
package timeutil

import (
	"sync"
	"time"
)

// TimerState represents the current state of a [Timer].
type TimerState string

const (
	// TimerStateRunning indicates the timer is currently running.
	TimerStateRunning TimerState = "running"
	// TimerStateStopped indicates the timer was stopped before expiration.
	TimerStateStopped TimerState = "stopped"
	// TimerStateExpired indicates the timer has expired.
	TimerStateExpired TimerState = "expired"
)

// Timer is a [time.Timer] wrapper that tracks its own state and remaining time.
// The zero value is not usable, use [AfterFunc].
type Timer struct {
	mu        sync.Mutex
	startTime time.Time
	duration  time.Duration
	state     TimerState
	callback  func()
	realTimer *time.Timer
}

// AfterFunc creates a new [Timer] with the given duration and callback.
// The timer is started immediately and the callback will be executed
// in its own goroutine when it expires.
func AfterFunc(duration time.Duration, f func()) *Timer {
	t := &Timer{
		startTime: time.Now(),
		duration:  duration,
		state:     TimerStateRunning,
		callback:  f,
	}
	t.realTimer = time.AfterFunc(duration, t.fire)
	return t
}

func (t *Timer) fire() {
	t.mu.Lock()
	if t.state != TimerStateRunning {
		t.mu.Unlock()
		return
	}
	t.state = TimerStateExpired
	cb := t.callback
	t.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// State returns the current timer state.
func (t *Timer) State() TimerState {
	if t == nil {
		return ""
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Duration returns the timer's duration.
func (t *Timer) Duration() time.Duration {
	if t == nil {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.duration
}

// Left returns the time remaining until the timer expires.
// Returns 0 if the timer is expired or stopped.
func (t *Timer) Left() time.Duration {
	if t == nil {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != TimerStateRunning {
		return 0
	}
	left := t.duration - time.Since(t.startTime)
	if left < 0 {
		return 0
	}
	return left
}

// Stop cancels the timer. It reports whether the timer was still running.
// The callback is guaranteed not to run after Stop returned true.
func (t *Timer) Stop() bool {
	if t == nil {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != TimerStateRunning {
		return false
	}
	t.state = TimerStateStopped
	t.realTimer.Stop()
	return true
}

// Reset restarts the timer with a new duration.
// A stopped or expired timer is re-armed.
func (t *Timer) Reset(duration time.Duration) {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.startTime = time.Now()
	t.duration = duration
	t.state = TimerStateRunning
	t.realTimer.Reset(duration)
}
