package gophone

import (
	"context"
	"log/slog"

	"braces.dev/errtrace"
	"github.com/emiago/sipgo/sip"
	"github.com/qmuntal/stateless"

	"github.com/ghettovoice/gophone/stack"
)

// newOpenMachine builds the OPEN job machine:
//
//	idle -> bind_register -> notify
//
// Digest challenges are answered in-state, they never move the cursor.
func (c *Client) newOpenMachine(j *Job) *stateless.StateMachine {
	m := newJobMachine()

	m.Configure(stateIdle).
		Permit(trgStart, stateBindRegister)

	m.Configure(stateBindRegister).
		OnEntry(func(ctx context.Context, _ ...any) error {
			return errtrace.Wrap(c.actOpenStart(ctx, j))
		}).
		InternalTransition(trgChallenge, func(ctx context.Context, args ...any) error {
			return errtrace.Wrap(c.actAuthorize(ctx, j, args...))
		}).
		Permit(trgSucceeded, stateNotify).
		Permit(trgSkip, stateNotify).
		Permit(trgFailed, stateNotify).
		Permit(trgTimeout, stateNotify)

	m.Configure(stateNotify).
		OnEntryFrom(trgSucceeded, func(ctx context.Context, args ...any) error {
			res, _ := args[0].(*sip.Response)
			c.actOpenSucceeded(ctx, j, res)
			return nil
		}).
		OnEntryFrom(trgSkip, func(ctx context.Context, _ ...any) error {
			c.actOpenSucceeded(ctx, j, nil)
			return nil
		}).
		OnEntryFrom(trgFailed, func(ctx context.Context, args ...any) error {
			code, text := failureResult(registerStatusCode, registerCode, args...)
			c.actOpenFailed(ctx, j, code, text)
			return nil
		}).
		OnEntryFrom(trgTimeout, func(ctx context.Context, _ ...any) error {
			c.actOpenFailed(ctx, j, CodeRegisterTimeout, "registration timed out")
			return nil
		})

	return m
}

// actOpenStart bootstraps the stack, binds the listening point and
// emits the registration. Registrar-less configs skip straight to the
// success notification without a single transaction.
func (c *Client) actOpenStart(ctx context.Context, j *Job) error {
	if !c.mon.HasConnectivity() {
		return errtrace.Wrap(j.fire(ctx, trgFailed,
			newClientError(CodeNoConnectivity, "no connectivity", nil)))
	}

	if !c.stk.Started() {
		if err := c.stk.Start(ctx); err != nil {
			c.fault(fatalError(err))
			return errtrace.Wrap(j.fire(ctx, trgFailed, err))
		}
	}
	if !c.stk.Bound() {
		if err := c.stk.Bind(ctx, stack.BindConfig{Secured: j.cfg.Secured}); err != nil {
			c.fault(fatalError(err))
			return errtrace.Wrap(j.fire(ctx, trgFailed, err))
		}
	}

	if j.cfg.Registrarless() {
		return errtrace.Wrap(j.fire(ctx, trgSkip))
	}

	if err := c.sendRegister(ctx, j, j.cfg, j.cfg.expiry(c.timings())); err != nil {
		return errtrace.Wrap(j.fire(ctx, trgFailed, err))
	}
	return nil
}

func (c *Client) actOpenSucceeded(ctx context.Context, j *Job, res *sip.Response) {
	c.cfg = j.cfg
	c.setState(StateOpen)
	if !j.cfg.Registrarless() {
		c.scheduleRefresh(grantedExpiry(res, j.cfg.expiry(c.timings())))
	}

	j.done = true
	c.cb.opened(Result{ID: j.id, Status: c.mon.Current(), Code: CodeOK, Text: "opened"})
	c.reg.Remove(j.id)
	c.metrics.jobDone(JobOpen, true)

	c.log.LogAttrs(ctx, slog.LevelInfo, "client opened", slog.Any("config", j.cfg))
}

func (c *Client) actOpenFailed(ctx context.Context, j *Job, code Code, text string) {
	// A failed open leaves nothing running.
	if err := c.stk.Stop(); err != nil {
		c.log.Warn("stack stop failed", slog.Any("error", err))
	}
	c.setState(StateClosed)

	j.done = true
	c.cb.opened(Result{ID: j.id, Status: c.mon.Current(), Code: code, Text: text})
	c.reg.Remove(j.id)
	c.metrics.jobDone(JobOpen, false)

	c.log.LogAttrs(ctx, slog.LevelWarn, "open failed",
		slog.String("code", code.String()), slog.String("text", text))
}

// newRefreshMachine builds the REGISTER_REFRESH job machine:
//
//	idle -> register -> notify
func (c *Client) newRefreshMachine(j *Job) *stateless.StateMachine {
	m := newJobMachine()

	m.Configure(stateIdle).
		Permit(trgStart, stateRegister)

	m.Configure(stateRegister).
		OnEntry(func(ctx context.Context, _ ...any) error {
			if err := c.sendRegister(ctx, j, j.cfg, j.cfg.expiry(c.timings())); err != nil {
				return errtrace.Wrap(j.fire(ctx, trgFailed, err))
			}
			return nil
		}).
		InternalTransition(trgChallenge, func(ctx context.Context, args ...any) error {
			return errtrace.Wrap(c.actAuthorize(ctx, j, args...))
		}).
		Permit(trgSucceeded, stateNotify).
		Permit(trgFailed, stateNotify).
		Permit(trgTimeout, stateNotify)

	m.Configure(stateNotify).
		OnEntryFrom(trgSucceeded, func(ctx context.Context, args ...any) error {
			res, _ := args[0].(*sip.Response)
			c.scheduleRefresh(grantedExpiry(res, j.cfg.expiry(c.timings())))
			j.done = true
			c.reg.Remove(j.id)
			c.metrics.jobDone(JobRegisterRefresh, true)
			c.log.LogAttrs(ctx, slog.LevelDebug, "registration refreshed", slog.Any("job", j))
			return nil
		}).
		OnEntryFrom(trgFailed, func(ctx context.Context, args ...any) error {
			code, text := failureResult(registerStatusCode, registerCode, args...)
			c.actRefreshFailed(ctx, j, code, text)
			return nil
		}).
		OnEntryFrom(trgTimeout, func(ctx context.Context, _ ...any) error {
			c.actRefreshFailed(ctx, j, CodeRegisterTimeout, "registration timed out")
			return nil
		})

	return m
}

// actRefreshFailed reports a lapsed registration through the
// connectivity callback: the binding is gone even though the network
// may still be up.
func (c *Client) actRefreshFailed(ctx context.Context, j *Job, code Code, text string) {
	j.done = true
	c.cb.connectivity(Result{ID: j.id, Status: c.mon.Current(), Code: code, Text: text})
	c.reg.Remove(j.id)
	c.metrics.jobDone(JobRegisterRefresh, false)

	c.log.LogAttrs(ctx, slog.LevelWarn, "registration refresh failed",
		slog.String("code", code.String()), slog.String("text", text))
}
