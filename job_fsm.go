package gophone

import (
	"context"
	"log/slog"
	"strconv"

	"braces.dev/errtrace"
	"github.com/emiago/sipgo/sip"
	"github.com/qmuntal/stateless"

	"github.com/ghettovoice/gophone/stack"
)

// jobState is an abstract job machine state.
type jobState string

const (
	stateIdle         jobState = "idle"
	stateBindRegister jobState = "bind_register"
	stateRegister     jobState = "register"
	stateUnregister   jobState = "unregister"
	stateRebind       jobState = "rebind"
	stateNotify       jobState = "notify"
	stateShutdown     jobState = "shutdown"
)

// jobTrigger is a job machine event.
type jobTrigger string

const (
	// trgStart kicks a freshly added job out of the idle state.
	trgStart jobTrigger = "start"
	// trgSucceeded carries the final 2xx response of the current step.
	trgSucceeded jobTrigger = "succeeded"
	// trgFailed carries a final non-2xx response or a typed failure.
	trgFailed jobTrigger = "failed"
	// trgTimeout reports the current transaction timed out.
	trgTimeout jobTrigger = "timeout"
	// trgChallenge carries a 401/407 response, handled in-state.
	trgChallenge jobTrigger = "challenge"
	// trgSkip bypasses an optional step without a transaction.
	trgSkip jobTrigger = "skip"
	// trgWatchdog fires when the close deadline elapses.
	trgWatchdog jobTrigger = "watchdog"
)

// newJobMachine creates a queued-firing machine parked in the idle
// state. Queued firing lets entry actions fire follow-up triggers
// without reentrancy.
func newJobMachine() *stateless.StateMachine {
	return stateless.NewStateMachineWithMode(stateIdle, stateless.FiringQueued)
}

// actAuthorize answers a digest challenge in-state: the challenged
// transaction is re-signed and re-emitted, replacing the tracked one.
// Exceeding the attempt budget aborts the job.
func (c *Client) actAuthorize(ctx context.Context, j *Job, args ...any) error {
	res, _ := args[0].(*sip.Response)
	if !j.bumpAuth() {
		return errtrace.Wrap(ErrAuthAttemptsExceeded)
	}

	tx, err := c.stk.Authorize(ctx, j.tx, res, j.cfg.credentials())
	if err != nil {
		return errtrace.Wrap(err)
	}
	j.tx = tx

	c.log.LogAttrs(ctx, slog.LevelDebug, "challenge answered",
		slog.Any("job", j),
		slog.Int("attempt", j.authAttempts),
	)
	return nil
}

// sendRegister emits a REGISTER for cfg with the given expiry and
// tracks the transaction on the job.
func (c *Client) sendRegister(ctx context.Context, j *Job, cfg Config, expiry int) error {
	c.cb.registering(j.id)

	tx, err := c.stk.Register(ctx, stack.RegisterParams{
		Registrar: cfg.Domain,
		AOR:       cfg.Username,
		Expires:   expiry,
		CallID:    j.id,
	})
	if err != nil {
		return errtrace.Wrap(err)
	}
	j.tx = tx
	return nil
}

// routeEvent converts a transaction response into a machine trigger.
// Provisional responses are progress, not transitions.
func (c *Client) routeEvent(ctx context.Context, j *Job, res *sip.Response) {
	status := int(res.StatusCode)
	switch {
	case status < 200:
		c.log.LogAttrs(ctx, slog.LevelDebug, "provisional response",
			slog.Any("job", j), slog.Int("status", status))
	case stack.IsChallenge(res):
		c.fireOrFail(ctx, j, trgChallenge, res)
	case status < 300:
		c.fireOrFail(ctx, j, trgSucceeded, res)
	default:
		c.fireOrFail(ctx, j, trgFailed, res)
	}
}

// fireOrFail advances the machine and converts firing errors (auth
// budget exhausted, stack send failures) into a job failure.
func (c *Client) fireOrFail(ctx context.Context, j *Job, trg jobTrigger, args ...any) {
	if err := j.fire(ctx, trg, args...); err != nil {
		c.log.Error("job aborted",
			slog.Any("job", j),
			slog.String("trigger", string(trg)),
			slog.Any("error", err),
		)
		// A second failure while already aborting would recurse forever.
		if trg != trgFailed {
			if ferr := j.fire(ctx, trgFailed, err); ferr != nil {
				c.finishJob(ctx, j)
			}
		} else {
			c.finishJob(ctx, j)
		}
	}
}

// failureResult translates a trgFailed argument into a typed result.
// The argument is either a final SIP response or an error from a
// lower layer.
func failureResult(classify func(status int) (Code, string), wrap func(err error) (Code, string), args ...any) (Code, string) {
	if len(args) == 0 {
		return CodeRegisterServiceUnavailable, "operation failed"
	}
	switch v := args[0].(type) {
	case *sip.Response:
		return classify(int(v.StatusCode))
	case *ClientError:
		return v.Code, v.Text
	case error:
		return wrap(v)
	default:
		return CodeRegisterServiceUnavailable, "operation failed"
	}
}

// grantedExpiry extracts the expiry granted by the registrar, falling
// back to the requested value.
func grantedExpiry(res *sip.Response, requested int) int {
	if res == nil {
		return requested
	}
	if h := res.GetHeader("Expires"); h != nil {
		if v, err := strconv.Atoi(h.Value()); err == nil && v > 0 {
			return v
		}
	}
	return requested
}
