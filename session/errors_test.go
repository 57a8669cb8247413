package session

import (
	"errors"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectKind_String(t *testing.T) {
	assert.Equal(t, "resolution", ConnectFailedResolution.String())
	assert.Equal(t, "refused", ConnectFailedRefused.String())
	assert.Equal(t, "timeout", ConnectFailedTimeout.String())
	assert.Equal(t, "other", ConnectFailedOther.String())
}

func TestClassifyConnect(t *testing.T) {
	t.Run("dns failure", func(t *testing.T) {
		err := &net.DNSError{Err: "no such host", Name: "nowhere.invalid"}
		assert.Equal(t, ConnectFailedResolution, classifyConnect(err))
	})

	t.Run("connection refused", func(t *testing.T) {
		err := &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}
		assert.Equal(t, ConnectFailedRefused, classifyConnect(err))
	})

	t.Run("timeout", func(t *testing.T) {
		err := &net.DNSError{Err: "timeout", IsTimeout: true}
		// DNS errors classify as resolution even when they timed out.
		assert.Equal(t, ConnectFailedResolution, classifyConnect(err))

		opErr := &net.OpError{Op: "dial", Err: &timeoutError{}}
		assert.Equal(t, ConnectFailedTimeout, classifyConnect(opErr))
	})

	t.Run("anything else", func(t *testing.T) {
		assert.Equal(t, ConnectFailedOther, classifyConnect(errors.New("boom")))
	})
}

func TestConnectError_Unwrap(t *testing.T) {
	cause := &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}
	err := newConnectError("127.0.0.1:1", cause)

	assert.Equal(t, ConnectFailedRefused, err.Kind)
	assert.Equal(t, "127.0.0.1:1", err.Addr)
	assert.ErrorIs(t, err, syscall.ECONNREFUSED)
	assert.Contains(t, err.Error(), "refused")
}

// timeoutError satisfies net.Error with Timeout() == true.
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }
