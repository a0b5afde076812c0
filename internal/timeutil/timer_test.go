package timeutil_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/ghettovoice/gophone/internal/timeutil"
)

func TestTimerExpires(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})
	tm := timeutil.AfterFunc(10*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
	if got := tm.State(); got != timeutil.TimerStateExpired {
		t.Errorf("State() = %v, want expired", got)
	}
	if got := tm.Left(); got != 0 {
		t.Errorf("Left() after expiry = %v, want 0", got)
	}
}

func TestTimerStop(t *testing.T) {
	t.Parallel()

	var fired atomic.Bool
	tm := timeutil.AfterFunc(30*time.Millisecond, func() { fired.Store(true) })

	if !tm.Stop() {
		t.Fatal("Stop() = false, want true")
	}
	if tm.Stop() {
		t.Error("second Stop() = true, want false")
	}
	if got := tm.State(); got != timeutil.TimerStateStopped {
		t.Errorf("State() = %v, want stopped", got)
	}

	time.Sleep(80 * time.Millisecond)
	if fired.Load() {
		t.Error("callback ran after Stop")
	}
}

func TestTimerLeft(t *testing.T) {
	t.Parallel()

	tm := timeutil.AfterFunc(time.Hour, func() {})
	defer tm.Stop()

	if got := tm.Duration(); got != time.Hour {
		t.Errorf("Duration() = %v, want 1h", got)
	}
	left := tm.Left()
	if left <= 0 || left > time.Hour {
		t.Errorf("Left() = %v, want within (0, 1h]", left)
	}
}

func TestTimerReset(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})
	tm := timeutil.AfterFunc(time.Hour, func() { close(done) })
	tm.Stop()

	tm.Reset(10 * time.Millisecond)
	if got := tm.State(); got != timeutil.TimerStateRunning {
		t.Errorf("State() after Reset = %v, want running", got)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reset timer never fired")
	}
}
