// Package stack adapts an external transaction-level SIP stack
// (github.com/emiago/sipgo) to the narrow contract the signaling engine
// consumes: build a request, create a client transaction and dispatch it,
// re-sign a challenged request, deliver asynchronous protocol events.
//
// The engine never touches the SIP wire format. Everything below the
// [Stack] interface belongs to the protocol library.
package stack

//go:generate errtrace -w .
//go:generate mockgen -destination ../internal/testutil/stackmock/stack.go -package stackmock . Stack,Transaction

import (
	"context"
	"log/slog"

	"github.com/emiago/sipgo/sip"

	"github.com/ghettovoice/gophone/internal/errorutil"
)

// Stack errors.
const (
	// ErrNotStarted is returned when using a stack that was not started.
	ErrNotStarted errorutil.Error = "stack not started"
	// ErrNotBound is returned when sending without a bound listening point.
	ErrNotBound errorutil.Error = "stack not bound"
	// ErrAlreadyBound is returned on binding an already bound stack.
	ErrAlreadyBound errorutil.Error = "stack already bound"
	// ErrResolve is returned when the registrar target cannot be resolved.
	ErrResolve errorutil.Error = "target not resolved"
	// ErrNoChallenge is returned when a challenge response carries no
	// usable authenticate header.
	ErrNoChallenge errorutil.Error = "no challenge found"
	// ErrActionNotAllowed is returned for operations invalid in the
	// current stack state.
	ErrActionNotAllowed errorutil.Error = "action not allowed"
)

// NewInvalidArgumentError creates a new error with
// [errorutil.ErrInvalidArgument] or wraps a provided error with it.
func NewInvalidArgumentError(args ...any) error {
	return errorutil.NewInvalidArgumentError(args...) //errtrace:skip
}

// Credentials is a digest credential set.
type Credentials struct {
	Username string
	Password string
}

// Zero reports whether the credentials are empty.
func (c Credentials) Zero() bool { return c.Username == "" && c.Password == "" }

// LogValue implements [slog.LogValuer]. The password never reaches the log.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(slog.String("username", c.Username))
}

// Body is a typed message payload.
type Body struct {
	ContentType string
	Content     []byte
}

// RegisterParams describes a REGISTER (or un-REGISTER) request.
type RegisterParams struct {
	// Registrar is the registration target, e.g. "sip.example.com".
	Registrar string
	// AOR is the address-of-record user part.
	AOR string
	// Expires is the requested binding lifetime in seconds.
	// Zero removes the binding.
	Expires int
	// CallID pins the dialog identifier; empty generates a new one.
	CallID string
}

// InviteParams describes an outgoing INVITE.
type InviteParams struct {
	// Target is the peer URI or user@domain string.
	Target string
	// From is the local user part.
	From string
	// Domain is the local domain used in the From header.
	Domain string
	// CallID pins the dialog identifier; empty generates a new one.
	CallID string
	// Offer is the session description offer.
	Offer Body
}

// MessageParams describes an outgoing MESSAGE.
type MessageParams struct {
	// Target is the peer URI or user@domain string.
	Target string
	// From is the local user part.
	From string
	// Domain is the local domain used in the From header.
	Domain string
	// CallID pins the transaction correlation id; empty generates a new one.
	CallID string
	// Content is the instant message payload.
	Content Body
}

// Transaction is a tracked client transaction owned by a job.
type Transaction interface {
	// Request returns the request that created the transaction.
	Request() *sip.Request
	// CallID returns the dialog identifier of the transaction.
	CallID() string
	// Terminate force-stops the transaction without waiting for
	// the protocol timeout.
	Terminate()
}

// ServerTransaction is an inbound request transaction awaiting a response.
type ServerTransaction = sip.ServerTransaction

// Events are asynchronous protocol callbacks delivered by the stack.
// The adapter marshals them onto the signaling goroutine before invoking.
type Events struct {
	// OnResponse is called for every response received by a tracked
	// client transaction, provisional ones included.
	OnResponse func(tx Transaction, res *sip.Response)
	// OnTimeout is called when a tracked client transaction terminates
	// without a final response.
	OnTimeout func(tx Transaction)
	// OnRequest is called for every inbound request
	// (INVITE, ACK, BYE, CANCEL, INFO, MESSAGE).
	OnRequest func(req *sip.Request, tx ServerTransaction)
}

// BindConfig describes the listening point.
type BindConfig struct {
	// Address is the local "host:port" to listen on.
	Address string
	// Secured selects TLS signaling transport instead of UDP.
	Secured bool
}

// Transport returns the sipgo network name for the config.
func (c BindConfig) Transport() string {
	if c.Secured {
		return "tls"
	}
	return "udp"
}

// Stack is the boundary contract consumed by the signaling engine.
//
// Request-emitting operations build the SIP message, create a client
// transaction and send it in one step. All methods must be called from
// the signaling goroutine.
type Stack interface {
	// Start creates the protocol stack resources (user agent, client, server).
	Start(ctx context.Context) error
	// Stop releases all protocol stack resources.
	Stop() error
	// Started reports whether the stack was started and not yet stopped.
	Started() bool

	// Bind opens the listening point.
	Bind(ctx context.Context, cfg BindConfig) error
	// Unbind closes the listening point.
	Unbind() error
	// Bound reports whether a listening point is open.
	Bound() bool

	// Register emits a REGISTER transaction.
	Register(ctx context.Context, p RegisterParams) (Transaction, error)
	// Invite emits an INVITE transaction.
	Invite(ctx context.Context, p InviteParams) (Transaction, error)
	// Message emits a MESSAGE transaction.
	Message(ctx context.Context, p MessageParams) (Transaction, error)
	// Bye emits an in-dialog BYE for the dialog established by inviteTx.
	Bye(ctx context.Context, inviteTx Transaction, res *sip.Response) (Transaction, error)
	// ByeUAS emits an in-dialog BYE for a dialog where the local side
	// answered an inbound INVITE with sentRes.
	ByeUAS(ctx context.Context, invite *sip.Request, sentRes *sip.Response) (Transaction, error)
	// Cancel emits a CANCEL for a not yet answered INVITE transaction.
	Cancel(ctx context.Context, inviteTx Transaction) (Transaction, error)
	// Info emits an in-dialog INFO carrying body.
	Info(ctx context.Context, inviteTx Transaction, res *sip.Response, body Body) (Transaction, error)
	// Ack acknowledges a 2xx INVITE response.
	Ack(ctx context.Context, inviteTx Transaction, res *sip.Response) error
	// Respond replies to an inbound request transaction and returns the
	// response as sent, local dialog tag included.
	Respond(tx ServerTransaction, req *sip.Request, status int, reason string, body Body) (*sip.Response, error)

	// Authorize answers a 401/407 challenge: it rebuilds the challenged
	// transaction request with a digest credential header and emits a
	// fresh transaction replacing the old one.
	Authorize(ctx context.Context, challenged Transaction, res *sip.Response, creds Credentials) (Transaction, error)
}
