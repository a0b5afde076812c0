package gophone

import (
	"log/slog"

	"github.com/ghettovoice/gophone/connectivity"
	"github.com/ghettovoice/gophone/stack"
)

// Result is the terminal outcome of a client operation, delivered
// asynchronously through [Callbacks].
type Result struct {
	// ID is the correlation id of the originating operation.
	ID string
	// Status is the connectivity status at completion time.
	Status connectivity.Status
	// Code classifies the outcome.
	Code Code
	// Text is the human-readable outcome description.
	Text string
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool { return r.Code == CodeOK }

// LogValue implements [slog.LogValuer].
func (r Result) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", r.ID),
		slog.String("status", r.Status.String()),
		slog.String("code", r.Code.String()),
		slog.String("text", r.Text),
	)
}

// CallEventKind names a call lifecycle event.
type CallEventKind int

const (
	// CallIncoming reports a new inbound call awaiting accept or reject.
	CallIncoming CallEventKind = iota
	// CallRinging reports the peer is ringing.
	CallRinging
	// CallConnected reports an answered call with a negotiated session.
	CallConnected
	// CallPeerHangup reports the peer ended or declined the call.
	CallPeerHangup
	// CallEnded reports the local side completed a hangup.
	CallEnded
	// CallFailed reports a terminal call error, see the result code.
	CallFailed
)

var callEventNames = [...]string{
	"incoming", "ringing", "connected", "peer_hangup", "ended", "failed",
}

func (k CallEventKind) String() string {
	if k < CallIncoming || int(k) >= len(callEventNames) {
		return "unknown"
	}
	return callEventNames[k]
}

// CallEvent is a call lifecycle notification.
type CallEvent struct {
	// ID is the call job correlation id.
	ID string
	// Kind names the event.
	Kind CallEventKind
	// Remote is the peer identity, set on incoming calls.
	Remote string
	// Session carries the negotiated session description on
	// [CallConnected] events.
	Session stack.Body
	// Code and Text are set on [CallFailed] events.
	Code Code
	Text string
}

// LogValue implements [slog.LogValuer].
func (e CallEvent) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", e.ID),
		slog.String("kind", e.Kind.String()),
	)
}

// MessageEvent is an inbound instant message.
type MessageEvent struct {
	// ID is the correlation id of the inbound transaction.
	ID string
	// From is the sender identity.
	From string
	// Content is the message payload.
	Content stack.Body
}

// Callbacks are the listener hooks of the client, one per logical
// operation family. Nil hooks are skipped. All hooks run on the
// signaling goroutine: they must return quickly and must not call back
// into the client synchronously.
type Callbacks struct {
	// OnOpened reports an open operation outcome.
	OnOpened func(Result)
	// OnClosed reports a close operation outcome.
	OnClosed func(Result)
	// OnReconfigured reports a reconfigure operation outcome.
	OnReconfigured func(Result)
	// OnConnectivity reports connectivity transitions and the outcome of
	// the recovery jobs they trigger.
	OnConnectivity func(Result)
	// OnRegistering reports registration progress, a transient
	// non-error notification.
	OnRegistering func(id string)
	// OnCall reports call lifecycle events.
	OnCall func(CallEvent)
	// OnMessage reports a send-message outcome.
	OnMessage func(Result)
	// OnIncomingMessage delivers an inbound instant message.
	OnIncomingMessage func(MessageEvent)
	// OnFault reports an unrecoverable condition: stack bootstrap or
	// bind failures. The client must be shut down and recreated.
	OnFault func(error)
}

func (c *Callbacks) opened(r Result) {
	if c != nil && c.OnOpened != nil {
		c.OnOpened(r)
	}
}

func (c *Callbacks) closed(r Result) {
	if c != nil && c.OnClosed != nil {
		c.OnClosed(r)
	}
}

func (c *Callbacks) reconfigured(r Result) {
	if c != nil && c.OnReconfigured != nil {
		c.OnReconfigured(r)
	}
}

func (c *Callbacks) connectivity(r Result) {
	if c != nil && c.OnConnectivity != nil {
		c.OnConnectivity(r)
	}
}

func (c *Callbacks) registering(id string) {
	if c != nil && c.OnRegistering != nil {
		c.OnRegistering(id)
	}
}

func (c *Callbacks) call(e CallEvent) {
	if c != nil && c.OnCall != nil {
		c.OnCall(e)
	}
}

func (c *Callbacks) message(r Result) {
	if c != nil && c.OnMessage != nil {
		c.OnMessage(r)
	}
}

func (c *Callbacks) incomingMessage(e MessageEvent) {
	if c != nil && c.OnIncomingMessage != nil {
		c.OnIncomingMessage(e)
	}
}

func (c *Callbacks) faulted(err error) {
	if c != nil && c.OnFault != nil {
		c.OnFault(err)
	}
}
