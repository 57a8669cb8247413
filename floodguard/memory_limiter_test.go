package floodguard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_EnforcesLimit(t *testing.T) {
	l := NewMemoryLimiter(3, time.Hour)

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(context.Background(), "s1")
		require.NoError(t, err)
		assert.True(t, ok, "message %d should be allowed", i+1)
	}

	ok, err := l.Allow(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, ok, "message over the limit should be denied")
}

func TestMemoryLimiter_SessionsIndependent(t *testing.T) {
	l := NewMemoryLimiter(1, time.Hour)

	ok, err := l.Allow(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Allow(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	// A different session has its own counter.
	ok, err = l.Allow(context.Background(), "s2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLimiter_WindowExpires(t *testing.T) {
	l := NewMemoryLimiter(1, 50*time.Millisecond)

	ok, err := l.Allow(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Allow(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	time.Sleep(80 * time.Millisecond)

	ok, err = l.Allow(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, ok, "a fresh window should allow again")
}

func TestMemoryLimiter_Reset(t *testing.T) {
	l := NewMemoryLimiter(1, time.Hour)

	_, err := l.Allow(context.Background(), "s1")
	require.NoError(t, err)

	l.Reset("s1")

	ok, err := l.Allow(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLimiter_CancelledContext(t *testing.T) {
	l := NewMemoryLimiter(1, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Allow(ctx, "s1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryLimiter_MinimumLimit(t *testing.T) {
	l := NewMemoryLimiter(0, time.Hour)

	ok, err := l.Allow(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Allow(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnlimited(t *testing.T) {
	l := Unlimited()

	for i := 0; i < 100; i++ {
		ok, err := l.Allow(context.Background(), "s1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
}
