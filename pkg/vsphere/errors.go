package vsphere

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// ErrObjectNotFound is returned by point lookups when no object matches.
var ErrObjectNotFound = errors.New("object not found")

// FaultKind classifies a connection failure so that the connector can decide
// between retrying and giving up.
type FaultKind int

const (
	FaultUnknown FaultKind = iota
	FaultTimeout
	FaultConnectionRefused
	FaultDNS
	FaultAuth
)

// String returns the kind name for logging.
func (k FaultKind) String() string {
	switch k {
	case FaultTimeout:
		return "timeout"
	case FaultConnectionRefused:
		return "connection_refused"
	case FaultDNS:
		return "dns_failure"
	case FaultAuth:
		return "auth_failure"
	default:
		return "unknown"
	}
}

// Retryable reports whether a failure of this kind may succeed on a later
// attempt. Bad credentials never do.
func (k FaultKind) Retryable() bool {
	return k != FaultAuth
}

// Fault is a classified connection failure.
type Fault struct {
	Kind FaultKind
	Err  error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// AuthFault wraps an authentication failure.
func AuthFault(err error) *Fault {
	return &Fault{Kind: FaultAuth, Err: err}
}

// Classify maps a raw transport error to a Fault. An error that is already a
// Fault is returned unchanged.
func Classify(err error) *Fault {
	var f *Fault
	if errors.As(err, &f) {
		return f
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Fault{Kind: FaultDNS, Err: err}
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return &Fault{Kind: FaultConnectionRefused, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return &Fault{Kind: FaultTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Fault{Kind: FaultTimeout, Err: err}
	}

	return &Fault{Kind: FaultUnknown, Err: err}
}
