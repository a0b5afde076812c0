package gophone

import (
	"context"
	"fmt"
	"log/slog"

	"braces.dev/errtrace"
	"github.com/emiago/sipgo/sip"

	"github.com/ghettovoice/gophone/stack"
)

// CallDirection names who initiated a call.
type CallDirection int

const (
	// DirectionOutgoing is a locally initiated call.
	DirectionOutgoing CallDirection = iota
	// DirectionIncoming is a peer initiated call.
	DirectionIncoming
)

func (d CallDirection) String() string {
	if d == DirectionOutgoing {
		return "outgoing"
	}
	return "incoming"
}

// Call is the sub-context of a [JobCall]: it maps SIP methods and
// response statuses straight onto call lifecycle events instead of an
// explicit state table. The dialog identifier doubles as the job
// correlation id, so in-dialog requests route back without one.
type Call struct {
	id     string
	dir    CallDirection
	remote string

	// invite is the outgoing INVITE transaction (UAC leg).
	invite stack.Transaction
	// inviteReq and srvTx hold the inbound INVITE (UAS leg).
	inviteReq *sip.Request
	srvTx     stack.ServerTransaction
	// sentRes is the locally sent 2xx answer on the UAS leg.
	sentRes *sip.Response
	// finalRes is the peer 2xx answer on the UAC leg.
	finalRes *sip.Response

	session   stack.Body
	connected bool
	// ending marks a locally initiated hangup awaiting the BYE outcome.
	ending bool
}

// ID returns the call correlation id.
func (cl *Call) ID() string { return cl.id }

// Direction returns the call direction.
func (cl *Call) Direction() CallDirection { return cl.dir }

// Remote returns the peer identity.
func (cl *Call) Remote() string { return cl.remote }

// Connected reports whether the call was answered.
func (cl *Call) Connected() bool { return cl.connected }

// LogValue implements [slog.LogValuer].
func (cl *Call) LogValue() slog.Value {
	if cl == nil {
		return slog.Value{}
	}
	return slog.GroupValue(
		slog.String("id", cl.id),
		slog.String("direction", cl.dir.String()),
		slog.Bool("connected", cl.connected),
	)
}

// Call statuses the sub-engine maps onto peer-hangup events.
func isDeclineStatus(status int) bool {
	switch status {
	case 480, 486, 603:
		return true
	}
	return false
}

// startCall emits the INVITE of an outgoing call job.
func (c *Client) startCall(ctx context.Context, j *Job, target string) error {
	offer, err := stack.NewOffer(c.media())
	if err != nil {
		return errtrace.Wrap(err)
	}

	tx, err := c.stk.Invite(ctx, stack.InviteParams{
		Target: target,
		From:   c.cfg.Username,
		Domain: c.cfg.Domain,
		CallID: j.id,
		Offer:  offer,
	})
	if err != nil {
		return errtrace.Wrap(err)
	}
	j.tx = tx
	j.call.invite = tx
	return nil
}

// onCallResponse advances an outgoing call leg on a response. In-dialog
// BYE and CANCEL responses terminate the job. Responses to other
// in-dialog transactions (INFO) share the dialog call id and must not
// be mistaken for the call answer.
func (c *Client) onCallResponse(ctx context.Context, j *Job, tx stack.Transaction, res *sip.Response) {
	cl := j.call
	status := int(res.StatusCode)

	if cl.ending {
		if tx != j.tx {
			return
		}
		if status >= 200 {
			c.endCall(ctx, j, CallEnded, CodeOK, "")
		}
		return
	}

	if tx != cl.invite {
		c.log.LogAttrs(ctx, slog.LevelDebug, "in-dialog response",
			slog.Any("call", cl), slog.Int("status", status))
		return
	}

	switch {
	case status == 180:
		c.cb.call(CallEvent{ID: j.id, Kind: CallRinging})
	case status < 200:
		c.log.LogAttrs(ctx, slog.LevelDebug, "call progress",
			slog.Any("call", cl), slog.Int("status", status))
	case stack.IsChallenge(res):
		if err := c.actAuthorize(ctx, j, res); err != nil {
			c.endCall(ctx, j, CallFailed, CodeCallUnhandled, "authentication failed")
			return
		}
		cl.invite = j.tx
	case status < 300:
		if err := c.stk.Ack(ctx, cl.invite, res); err != nil {
			c.log.Warn("ack failed", slog.Any("error", err))
		}
		cl.finalRes = res
		cl.connected = true
		cl.session = stack.Body{ContentType: stack.ContentTypeSDP, Content: res.Body()}
		c.cb.call(CallEvent{ID: j.id, Kind: CallConnected, Session: cl.session})
		c.log.LogAttrs(ctx, slog.LevelInfo, "call connected", slog.Any("call", cl))
	case isDeclineStatus(status):
		c.endCall(ctx, j, CallPeerHangup, CodeOK, "")
	default:
		code, text := callStatusCode(status)
		c.endCall(ctx, j, CallFailed, code, text)
	}
}

// onCallTimeout terminates a call leg whose transaction never
// completed. Timeouts of other in-dialog transactions do not end the
// call.
func (c *Client) onCallTimeout(ctx context.Context, j *Job, tx stack.Transaction) {
	cl := j.call
	if cl.ending {
		if tx != j.tx {
			return
		}
		// The peer never answered the BYE, the dialog is dead anyway.
		c.endCall(ctx, j, CallEnded, CodeOK, "")
		return
	}
	if tx != cl.invite {
		return
	}
	c.endCall(ctx, j, CallFailed, CodeCallServiceUnavailable, "call timed out")
}

// onIncomingInvite creates the UAS call job, answers 180 Ringing and
// surfaces the call to the application.
func (c *Client) onIncomingInvite(ctx context.Context, req *sip.Request, tx stack.ServerTransaction) {
	id := ""
	if cid := req.CallID(); cid != nil {
		id = cid.Value()
	}
	if id == "" || c.reg.Get(id) != nil {
		c.log.Warn("dropping invite with unusable call id", slog.String("call_id", id))
		return
	}

	remote := ""
	if from := req.From(); from != nil {
		remote = from.Address.String()
	}

	cl := &Call{id: id, dir: DirectionIncoming, remote: remote, inviteReq: req, srvTx: tx}
	j := &Job{id: id, typ: JobCall, call: cl}
	if _, err := c.reg.Add(ctx, j); err != nil {
		c.log.Error("incoming call job rejected", slog.Any("error", err))
		return
	}
	c.metrics.callStarted(DirectionIncoming)

	if _, err := c.stk.Respond(tx, req, 180, "Ringing", stack.Body{}); err != nil {
		c.log.Warn("ringing response failed", slog.Any("error", err))
	}
	c.cb.call(CallEvent{ID: id, Kind: CallIncoming, Remote: remote})
	c.log.LogAttrs(ctx, slog.LevelInfo, "incoming call", slog.Any("call", cl))
}

// acceptCall answers an inbound INVITE with 200 and a session answer.
// The call connects when the peer ACK arrives.
func (c *Client) acceptCall(ctx context.Context, j *Job) error {
	cl := j.call
	if cl.dir != DirectionIncoming || cl.sentRes != nil {
		return errtrace.Wrap(stack.ErrActionNotAllowed)
	}

	answer, err := stack.NewAnswer(c.media(), stack.Body{
		ContentType: stack.ContentTypeSDP,
		Content:     cl.inviteReq.Body(),
	})
	if err != nil {
		return errtrace.Wrap(err)
	}

	res, err := c.stk.Respond(cl.srvTx, cl.inviteReq, 200, "OK", answer)
	if err != nil {
		return errtrace.Wrap(err)
	}
	cl.sentRes = res
	cl.session = answer
	c.log.LogAttrs(ctx, slog.LevelInfo, "call accepted", slog.Any("call", cl))
	return nil
}

// hangupCall ends a call in whatever phase it is: CANCEL before the
// answer, BYE after it, a decline response on an unanswered UAS leg.
func (c *Client) hangupCall(ctx context.Context, j *Job) error {
	cl := j.call
	if cl.ending {
		return nil
	}

	switch {
	case cl.dir == DirectionOutgoing && cl.connected:
		tx, err := c.stk.Bye(ctx, cl.invite, cl.finalRes)
		if err != nil {
			return errtrace.Wrap(err)
		}
		j.tx = tx
		cl.ending = true
	case cl.dir == DirectionOutgoing:
		tx, err := c.stk.Cancel(ctx, cl.invite)
		if err != nil {
			return errtrace.Wrap(err)
		}
		j.tx = tx
		cl.ending = true
	case cl.connected:
		tx, err := c.stk.ByeUAS(ctx, cl.inviteReq, cl.sentRes)
		if err != nil {
			return errtrace.Wrap(err)
		}
		j.tx = tx
		cl.ending = true
	default:
		// Not yet accepted: decline the pending INVITE.
		if _, err := c.stk.Respond(cl.srvTx, cl.inviteReq, 603, "Decline", stack.Body{}); err != nil {
			return errtrace.Wrap(err)
		}
		c.endCall(ctx, j, CallEnded, CodeOK, "")
	}
	return nil
}

// sendDigits emits one dtmf-relay INFO per digit on a connected call.
func (c *Client) sendDigits(ctx context.Context, j *Job, digits string) error {
	cl := j.call
	if !cl.connected {
		return errtrace.Wrap(stack.ErrActionNotAllowed)
	}

	for _, d := range digits {
		body := stack.Body{
			ContentType: "application/dtmf-relay",
			Content:     fmt.Appendf(nil, "Signal=%c\r\nDuration=160\r\n", d),
		}
		var err error
		if cl.dir == DirectionOutgoing {
			_, err = c.stk.Info(ctx, cl.invite, cl.finalRes, body)
		} else {
			err = stack.ErrActionNotAllowed
		}
		if err != nil {
			return errtrace.Wrap(err)
		}
	}
	return nil
}

// onCallRequest routes an in-dialog request (ACK, BYE, CANCEL, INFO)
// to the owning call.
func (c *Client) onCallRequest(ctx context.Context, j *Job, req *sip.Request, tx stack.ServerTransaction) {
	cl := j.call
	switch req.Method {
	case sip.ACK:
		if cl.dir == DirectionIncoming && cl.sentRes != nil && !cl.connected {
			cl.connected = true
			c.cb.call(CallEvent{ID: j.id, Kind: CallConnected, Session: cl.session})
			c.log.LogAttrs(ctx, slog.LevelInfo, "call connected", slog.Any("call", cl))
		}
	case sip.BYE:
		if _, err := c.stk.Respond(tx, req, 200, "OK", stack.Body{}); err != nil {
			c.log.Warn("bye response failed", slog.Any("error", err))
		}
		c.endCall(ctx, j, CallPeerHangup, CodeOK, "")
	case sip.CANCEL:
		if _, err := c.stk.Respond(tx, req, 200, "OK", stack.Body{}); err != nil {
			c.log.Warn("cancel response failed", slog.Any("error", err))
		}
		if cl.dir == DirectionIncoming && cl.sentRes == nil {
			if _, err := c.stk.Respond(cl.srvTx, cl.inviteReq, 487, "Request Terminated", stack.Body{}); err != nil {
				c.log.Warn("terminated response failed", slog.Any("error", err))
			}
		}
		c.endCall(ctx, j, CallPeerHangup, CodeOK, "")
	case sip.INFO:
		if _, err := c.stk.Respond(tx, req, 200, "OK", stack.Body{}); err != nil {
			c.log.Warn("info response failed", slog.Any("error", err))
		}
	default:
		c.log.Debug("unhandled in-dialog request", slog.String("method", req.Method.String()))
	}
}

// endCall fires the terminal call event and discards the job.
func (c *Client) endCall(ctx context.Context, j *Job, kind CallEventKind, code Code, text string) {
	if j.done {
		return
	}
	j.done = true

	ev := CallEvent{ID: j.id, Kind: kind}
	if kind == CallFailed {
		ev.Code, ev.Text = code, text
	}
	c.cb.call(ev)
	c.reg.Remove(j.id)
	c.metrics.callEnded(kind)

	c.log.LogAttrs(ctx, slog.LevelInfo, "call ended",
		slog.Any("call", j.call), slog.String("kind", kind.String()))
}
