package gateway

import (
	"errors"
	"fmt"
	"net"
)

// FailureKind classifies a gateway failure so recovery policy can branch on
// the kind rather than on error text.
type FailureKind int

const (
	// KindNameResolution is a DNS lookup failure. Fatal to this attempt.
	KindNameResolution FailureKind = iota
	// KindTransport covers TCP, TLS, and WebSocket I/O failures, plus
	// bounded-wait timeouts. Fatal to this attempt.
	KindTransport
	// KindProtocol is an unexpected opcode for the current state or a
	// malformed frame. The connection is closed and reopened.
	KindProtocol
	// KindAuthRejected is a non-resumable authentication rejection. The
	// session is cleared and the next attempt identifies fresh.
	KindAuthRejected
	// KindAuthRetry is a resumable authentication rejection. The session is
	// kept and resumed after a jittered delay.
	KindAuthRetry
	// KindLiveness is a missed heartbeat ack on a zombied connection.
	KindLiveness
	// KindSessionBudget means the session-start budget is exhausted. Fatal
	// to the process.
	KindSessionBudget
	// KindBootstrap covers config and bootstrap HTTP failures. Fatal to
	// process startup.
	KindBootstrap
)

func (k FailureKind) String() string {
	switch k {
	case KindNameResolution:
		return "name_resolution"
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindAuthRejected:
		return "auth_rejected"
	case KindAuthRetry:
		return "auth_retry"
	case KindLiveness:
		return "liveness"
	case KindSessionBudget:
		return "session_budget"
	case KindBootstrap:
		return "bootstrap"
	default:
		return fmt.Sprintf("failure_kind(%d)", int(k))
	}
}

// Failure tags an error with its recovery classification.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// NewFailure wraps err with a failure kind.
func NewFailure(kind FailureKind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

// KindOf extracts the failure kind from an error chain.
func KindOf(err error) (FailureKind, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return 0, false
}

// classifyDialError splits connection-establishment failures into name
// resolution and transport kinds.
func classifyDialError(err error) *Failure {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return NewFailure(KindNameResolution, err)
	}
	return NewFailure(KindTransport, err)
}
