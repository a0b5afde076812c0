package gophone

import (
	"context"
	"log/slog"

	"braces.dev/errtrace"
	"github.com/emiago/sipgo/sip"
	"github.com/qmuntal/stateless"

	"github.com/ghettovoice/gophone/stack"
)

// newReconfigureMachine builds the RECONFIGURE machine:
//
//	idle -> unregister -> register -> notify
//
// The unregister leg runs against the old credentials and is advisory:
// every outcome, failure and timeout included, proceeds to the register
// leg. Applying corrected credentials must never be blocked by an old,
// possibly already invalid, registration. rebind additionally cycles
// the listening point between the legs (transport security change).
func (c *Client) newReconfigureMachine(j *Job, rebind bool) *stateless.StateMachine {
	m := newJobMachine()

	m.Configure(stateIdle).
		Permit(trgStart, stateUnregister)

	m.Configure(stateUnregister).
		OnEntry(func(ctx context.Context, _ ...any) error {
			return errtrace.Wrap(c.actReconfUnregister(ctx, j))
		}).
		InternalTransition(trgChallenge, func(ctx context.Context, args ...any) error {
			return errtrace.Wrap(c.actAuthorize(ctx, j, args...))
		}).
		Permit(trgSucceeded, stateRegister).
		Permit(trgFailed, stateRegister).
		// A timeout here means the old registration is unreachable,
		// not that the reconfigure failed.
		Permit(trgTimeout, stateRegister).
		Permit(trgSkip, stateRegister)

	m.Configure(stateRegister).
		OnEntry(func(ctx context.Context, _ ...any) error {
			return errtrace.Wrap(c.actReconfRegister(ctx, j, rebind))
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
			c.actReconfSucceeded(ctx, j, res)
			return nil
		}).
		OnEntryFrom(trgSkip, func(ctx context.Context, _ ...any) error {
			c.actReconfSucceeded(ctx, j, nil)
			return nil
		}).
		OnEntryFrom(trgFailed, func(ctx context.Context, args ...any) error {
			code, text := failureResult(registerStatusCode, registerCode, args...)
			c.actReconfFailed(ctx, j, code, text)
			return nil
		}).
		OnEntryFrom(trgTimeout, func(ctx context.Context, _ ...any) error {
			c.actReconfFailed(ctx, j, CodeRegisterTimeout, "registration timed out")
			return nil
		})

	return m
}

// actReconfUnregister removes the old binding, skipped outright when
// the old config never registered.
func (c *Client) actReconfUnregister(ctx context.Context, j *Job) error {
	j.cfg = j.reconf.Old
	if j.cfg.Registrarless() {
		return errtrace.Wrap(j.fire(ctx, trgSkip))
	}
	if err := c.sendRegister(ctx, j, j.cfg, 0); err != nil {
		c.log.Warn("unregister send failed", slog.Any("error", err))
		return errtrace.Wrap(j.fire(ctx, trgSkip))
	}
	return nil
}

// actReconfRegister switches the job to the new credentials and emits
// the register leg. The challenge budget restarts with the phase.
func (c *Client) actReconfRegister(ctx context.Context, j *Job, rebind bool) error {
	if j.tx != nil {
		j.tx.Terminate()
		j.tx = nil
	}
	j.cfg = j.reconf.New
	j.resetAuth()

	if rebind {
		if err := c.stk.Unbind(); err != nil {
			c.log.Warn("unbind failed", slog.Any("error", err))
		}
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

func (c *Client) actReconfSucceeded(ctx context.Context, j *Job, res *sip.Response) {
	c.cfg = j.reconf.New
	c.cancelRefresh()
	if !j.cfg.Registrarless() {
		c.scheduleRefresh(grantedExpiry(res, j.cfg.expiry(c.timings())))
	}

	j.done = true
	c.cb.reconfigured(Result{ID: j.id, Status: c.mon.Current(), Code: CodeOK, Text: "reconfigured"})
	c.reg.Remove(j.id)
	c.metrics.jobDone(j.typ, true)

	c.log.LogAttrs(ctx, slog.LevelInfo, "client reconfigured", slog.Any("config", j.cfg))
}

func (c *Client) actReconfFailed(ctx context.Context, j *Job, code Code, text string) {
	j.done = true
	c.cb.reconfigured(Result{ID: j.id, Status: c.mon.Current(), Code: code, Text: text})
	c.reg.Remove(j.id)
	c.metrics.jobDone(j.typ, false)

	c.log.LogAttrs(ctx, slog.LevelWarn, "reconfigure failed",
		slog.String("code", code.String()), slog.String("text", text))
}
