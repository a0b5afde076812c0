package gophone

import (
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/ghettovoice/gophone/internal/errorutil"
	"github.com/ghettovoice/gophone/stack"
)

// Code identifies a client result delivered through the listener callbacks.
// Every terminal failure carries both a code and a display text.
type Code int

const (
	// CodeOK reports a successful operation.
	CodeOK Code = iota
	// CodeNoConnectivity reports an operation rejected for lack of network.
	CodeNoConnectivity
	// CodeAlreadyOpen reports an open call on an already open client.
	CodeAlreadyOpen
	// CodeAlreadyClosed reports an operation on a closed client.
	CodeAlreadyClosed
	// CodeRegisterCouldNotConnect reports a DNS or network level
	// registration failure.
	CodeRegisterCouldNotConnect
	// CodeRegisterTimeout reports a registration transaction timeout.
	CodeRegisterTimeout
	// CodeRegisterForbidden reports rejected registration credentials.
	CodeRegisterForbidden
	// CodeRegisterServiceUnavailable reports a registrar-side failure.
	CodeRegisterServiceUnavailable
	// CodeUntrustedServer reports a certificate trust failure.
	CodeUntrustedServer
	// CodeMessageCouldNotConnect reports a DNS or network level
	// message delivery failure.
	CodeMessageCouldNotConnect
	// CodeMessageTimeout reports a message transaction timeout.
	CodeMessageTimeout
	// CodeMessageServiceUnavailable reports a server-side message failure.
	CodeMessageServiceUnavailable
	// CodeMessageForbidden reports a rejected message.
	CodeMessageForbidden
	// CodeCallServiceUnavailable reports an unreachable call peer.
	CodeCallServiceUnavailable
	// CodeCallUnhandled reports an unclassified call failure.
	CodeCallUnhandled
)

var codeNames = [...]string{
	"ok",
	"no_connectivity",
	"already_open",
	"already_closed",
	"register_could_not_connect",
	"register_timeout",
	"register_forbidden",
	"register_service_unavailable",
	"untrusted_server",
	"message_could_not_connect",
	"message_timeout",
	"message_service_unavailable",
	"message_forbidden",
	"call_service_unavailable",
	"call_unhandled",
}

func (c Code) String() string {
	if c < CodeOK || int(c) >= len(codeNames) {
		return "unknown"
	}
	return codeNames[c]
}

// ClientError is a typed operation failure with a human-readable text.
type ClientError struct {
	Code  Code
	Text  string
	Cause error
}

func (e *ClientError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %v", e.Text, e.Code, e.Cause)
	}
	return fmt.Sprintf("%s (%s)", e.Text, e.Code)
}

func (e *ClientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newClientError(code Code, text string, cause error) *ClientError {
	return &ClientError{Code: code, Text: text, Cause: cause}
}

// Engine errors that escalate as faults rather than result codes.
const (
	// ErrNotOpened is returned when operating a client that was never opened.
	ErrNotOpened errorutil.Error = "client not opened"
	// ErrFatal marks unrecoverable bootstrap failures: stack creation or
	// network binding. No retry is meaningful without reinitializing
	// the whole client.
	ErrFatal errorutil.Error = "unrecoverable signaling failure"
)

// fatalError marks err as unrecoverable.
func fatalError(err error) error {
	return fmt.Errorf("%w: %w", ErrFatal, err)
}

// registerCode classifies a registration send failure.
func registerCode(err error) (Code, string) {
	var certErr x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	switch {
	case errors.Is(err, stack.ErrResolve):
		return CodeRegisterCouldNotConnect, "registrar could not be resolved"
	case errors.As(err, &certErr) || errors.As(err, &hostErr):
		return CodeUntrustedServer, "registrar server certificate is not trusted"
	default:
		return CodeRegisterCouldNotConnect, "registrar could not be reached"
	}
}

// registerStatusCode classifies a final registration response status.
func registerStatusCode(status int) (Code, string) {
	switch {
	case status == 403:
		return CodeRegisterForbidden, "registration rejected, check credentials"
	case status == 503 || status >= 500:
		return CodeRegisterServiceUnavailable, "registrar temporarily unavailable"
	default:
		return CodeRegisterServiceUnavailable, fmt.Sprintf("registration failed with status %d", status)
	}
}

// messageStatusCode classifies a final MESSAGE response status.
func messageStatusCode(status int) (Code, string) {
	switch {
	case status == 403:
		return CodeMessageForbidden, "message rejected"
	case status == 404:
		return CodeMessageServiceUnavailable, "message recipient not found"
	case status >= 500:
		return CodeMessageServiceUnavailable, "message service unavailable"
	default:
		return CodeMessageServiceUnavailable, fmt.Sprintf("message failed with status %d", status)
	}
}

// callStatusCode classifies a final INVITE response status outside of
// the call lifecycle statuses handled by the call engine itself.
func callStatusCode(status int) (Code, string) {
	switch status {
	case 404:
		return CodeCallServiceUnavailable, "call target not found"
	default:
		return CodeCallUnhandled, fmt.Sprintf("call failed with status %d", status)
	}
}
