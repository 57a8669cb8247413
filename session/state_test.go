package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_String(t *testing.T) {
	assert.Equal(t, "Connecting", StateConnecting.String())
	assert.Equal(t, "Connected", StateConnected.String())
	assert.Equal(t, "Disconnected", StateDisconnected.String())
	assert.Equal(t, "Unknown", State(42).String())
}

func TestSession_InitialState(t *testing.T) {
	s := New(DefaultConfig(), nil)
	assert.Equal(t, StateConnecting, s.State())
	assert.False(t, s.IsConnected())
}

func TestSession_CloseInternalRunsOnce(t *testing.T) {
	s := New(DefaultConfig(), nil)

	assert.True(t, s.closeInternal(nil))
	assert.Equal(t, StateDisconnected, s.State())

	// Second teardown is a no-op.
	assert.False(t, s.closeInternal(nil))
	assert.Equal(t, StateDisconnected, s.State())
}

func TestState_ConcurrentAccess(t *testing.T) {
	// Two goroutines hammer the shared state field; every read must observe
	// one of the three defined values, never a torn intermediate.
	s := New(DefaultConfig(), nil)

	const iterations = 1000
	valid := map[State]bool{
		StateConnecting:   true,
		StateConnected:    true,
		StateDisconnected: true,
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			if i%2 == 0 {
				s.state.Store(int32(StateConnected))
			} else {
				s.state.Store(int32(StateDisconnected))
			}
		}
	}()

	observed := make([]State, 0, iterations)
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			observed = append(observed, s.State())
		}
	}()

	wg.Wait()

	for _, st := range observed {
		assert.True(t, valid[st], "observed invalid state %d", st)
	}
}
