package gophone

import (
	"context"
	"log/slog"

	"braces.dev/errtrace"
	"github.com/qmuntal/stateless"
)

// newCloseMachine builds the CLOSE job machine:
//
//	idle -> unregister -> shutdown
//
// Every unregister outcome, success, failure, timeout or watchdog,
// lands in shutdown: teardown always proceeds so the client can be
// reopened cleanly. A watchdog armed with the unregister bounds the
// close latency well below the SIP transaction timeout.
func (c *Client) newCloseMachine(j *Job) *stateless.StateMachine {
	m := newJobMachine()

	m.Configure(stateIdle).
		Permit(trgStart, stateUnregister)

	m.Configure(stateUnregister).
		OnEntry(func(ctx context.Context, _ ...any) error {
			return errtrace.Wrap(c.actCloseStart(ctx, j))
		}).
		InternalTransition(trgChallenge, func(ctx context.Context, args ...any) error {
			return errtrace.Wrap(c.actAuthorize(ctx, j, args...))
		}).
		Permit(trgSucceeded, stateShutdown).
		Permit(trgFailed, stateShutdown).
		Permit(trgTimeout, stateShutdown).
		Permit(trgWatchdog, stateShutdown).
		Permit(trgSkip, stateShutdown)

	m.Configure(stateShutdown).
		OnEntry(func(ctx context.Context, _ ...any) error {
			c.actShutdown(ctx, j)
			return nil
		}).
		// Late transaction events after a forced teardown are stale.
		Ignore(trgSucceeded).
		Ignore(trgFailed).
		Ignore(trgTimeout).
		Ignore(trgChallenge).
		Ignore(trgWatchdog)

	return m
}

// actCloseStart emits the unregister and arms the watchdog. A failed
// send is no reason to keep the stack alive: it degrades to an
// immediate shutdown.
func (c *Client) actCloseStart(ctx context.Context, j *Job) error {
	if err := c.sendRegister(ctx, j, j.cfg, 0); err != nil {
		c.log.Warn("unregister send failed", slog.Any("error", err))
		return errtrace.Wrap(j.fire(ctx, trgSkip))
	}

	task := c.loop.Schedule(c.timings().watchdog(), func() {
		if c.reg.Get(j.id) == nil {
			return
		}
		c.log.Warn("close watchdog fired, forcing teardown", slog.Any("job", j))
		c.fireOrFail(context.Background(), j, trgWatchdog)
	})
	j.watchdog = task.Cancel
	return nil
}

// actShutdown tears networking down exactly once and reports the client
// closed. The unregister outcome is logged, never escalated.
func (c *Client) actShutdown(ctx context.Context, j *Job) {
	if j.watchdog != nil {
		j.watchdog()
		j.watchdog = nil
	}
	if j.tx != nil {
		j.tx.Terminate()
		j.tx = nil
	}

	c.cancelRefresh()
	if err := c.stk.Stop(); err != nil {
		c.log.Warn("stack stop failed", slog.Any("error", err))
	}
	c.setState(StateClosed)

	j.done = true
	c.cb.closed(Result{ID: j.id, Status: c.mon.Current(), Code: CodeOK, Text: "closed"})
	c.reg.Remove(j.id)
	c.metrics.jobDone(JobClose, true)

	c.log.LogAttrs(ctx, slog.LevelInfo, "client closed")
}
