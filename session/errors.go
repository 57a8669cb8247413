package session

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

var (
	// ErrNotConnected is returned by Send when the session is not in the
	// Connected state. Sends on a dead session fail fast, they never block.
	ErrNotConnected = errors.New("session not connected")

	// ErrAlreadyStarted is returned by Connect or Start when the session's
	// receive loop has already been launched. A Session connects once.
	ErrAlreadyStarted = errors.New("session already started")

	// ErrSessionClosed is returned by Connect when the session was
	// disconnected before the transport could be established.
	ErrSessionClosed = errors.New("session closed")
)

// ConnectKind classifies why establishing the transport failed, so callers
// can decide between fixing the address and retrying with backoff.
type ConnectKind int

const (
	ConnectFailedOther      ConnectKind = iota // Unclassified dial failure
	ConnectFailedResolution                    // Hostname did not resolve
	ConnectFailedRefused                       // Peer actively refused the connection
	ConnectFailedTimeout                       // Dial exceeded the connect timeout
)

// String returns a human-readable name for the failure kind.
func (k ConnectKind) String() string {
	switch k {
	case ConnectFailedResolution:
		return "resolution"
	case ConnectFailedRefused:
		return "refused"
	case ConnectFailedTimeout:
		return "timeout"
	default:
		return "other"
	}
}

// ConnectError is returned by Connect when the transport could not be
// established. It carries the target address and a classification of the
// failure; the underlying error is available via Unwrap.
type ConnectError struct {
	Addr string      // The "host:port" dial target
	Kind ConnectKind // Why the dial failed
	Err  error       // Underlying dial error
}

// Error implements the error interface.
func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s (%s): %v", e.Addr, e.Kind, e.Err)
}

// Unwrap returns the underlying dial error.
func (e *ConnectError) Unwrap() error { return e.Err }

// newConnectError wraps a dial failure with its classification.
func newConnectError(addr string, err error) *ConnectError {
	return &ConnectError{Addr: addr, Kind: classifyConnect(err), Err: err}
}

// classifyConnect maps a dial error onto a ConnectKind.
func classifyConnect(err error) ConnectKind {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ConnectFailedResolution
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return ConnectFailedRefused
	}

	if os.IsTimeout(err) {
		return ConnectFailedTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ConnectFailedTimeout
	}

	return ConnectFailedOther
}
