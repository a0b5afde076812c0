// Package gophone implements the SIP signaling engine of a mobile
// communications client: registration, call setup and teardown and
// instant messaging, orchestrated as jobs over an external
// transaction-level SIP stack.
//
// The engine is organized around three pieces:
//
//   - the [Client] facade exposing the application operations
//     (open, close, reconfigure, call, message);
//   - a registry of in-flight jobs, each driven by a per-type finite
//     state machine that sequences SIP transactions and absorbs digest
//     authentication challenges transparently;
//   - a [connectivity.Monitor] whose transitions (offline, online,
//     handover) spawn recovery jobs that rebind and re-register.
//
// All engine state is confined to a single signaling goroutine.
// Application callbacks are invoked on that goroutine and must not
// call back into the [Client] synchronously.
package gophone

//go:generate errtrace -w .

// Version is the current gophone package version.
var Version = "0.1.0"
