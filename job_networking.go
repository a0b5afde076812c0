package gophone

import (
	"context"
	"log/slog"

	"braces.dev/errtrace"
	"github.com/emiago/sipgo/sip"
	"github.com/qmuntal/stateless"

	"github.com/ghettovoice/gophone/stack"
)

// newNetworkingMachine builds the machines of the connectivity
// recovery jobs:
//
//	START_NETWORKING:  idle -> bind_register -> notify
//	RELOAD_NETWORKING: idle -> rebind        -> notify
//
// Both are triggered by the connectivity monitor, never by the
// application, so no connectivity pre-check runs: the triggering
// transition itself asserts the network is there.
func (c *Client) newNetworkingMachine(j *Job, reload bool) *stateless.StateMachine {
	m := newJobMachine()

	work := stateBindRegister
	if reload {
		work = stateRebind
	}

	m.Configure(stateIdle).
		Permit(trgStart, work)

	m.Configure(work).
		OnEntry(func(ctx context.Context, _ ...any) error {
			return errtrace.Wrap(c.actNetworking(ctx, j, reload))
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
			c.actNetworkingDone(ctx, j, res)
			return nil
		}).
		OnEntryFrom(trgSkip, func(ctx context.Context, _ ...any) error {
			c.actNetworkingDone(ctx, j, nil)
			return nil
		}).
		OnEntryFrom(trgFailed, func(ctx context.Context, args ...any) error {
			code, text := failureResult(registerStatusCode, registerCode, args...)
			c.actNetworkingFailed(ctx, j, code, text)
			return nil
		}).
		OnEntryFrom(trgTimeout, func(ctx context.Context, _ ...any) error {
			c.actNetworkingFailed(ctx, j, CodeRegisterTimeout, "registration timed out")
			return nil
		})

	return m
}

// actNetworking (re)opens the listening point on the current network
// and re-registers the active configuration.
func (c *Client) actNetworking(ctx context.Context, j *Job, reload bool) error {
	if reload {
		if err := c.stk.Unbind(); err != nil {
			c.log.Warn("unbind failed", slog.Any("error", err))
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

func (c *Client) actNetworkingDone(ctx context.Context, j *Job, res *sip.Response) {
	if !j.cfg.Registrarless() {
		c.scheduleRefresh(grantedExpiry(res, j.cfg.expiry(c.timings())))
	}

	j.done = true
	c.cb.connectivity(Result{ID: j.id, Status: j.status, Code: CodeOK, Text: "connectivity restored"})
	c.reg.Remove(j.id)
	c.metrics.jobDone(j.typ, true)

	c.log.LogAttrs(ctx, slog.LevelInfo, "networking restored",
		slog.String("status", j.status.String()))
}

func (c *Client) actNetworkingFailed(ctx context.Context, j *Job, code Code, text string) {
	j.done = true
	c.cb.connectivity(Result{ID: j.id, Status: j.status, Code: code, Text: text})
	c.reg.Remove(j.id)
	c.metrics.jobDone(j.typ, false)

	c.log.LogAttrs(ctx, slog.LevelWarn, "networking recovery failed",
		slog.String("code", code.String()), slog.String("text", text))
}
