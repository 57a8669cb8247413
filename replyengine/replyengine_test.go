package replyengine

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRules = []Rule{
	{Match: "hello", Reply: "Hello there!"},
	{Match: "how are you", Reply: "Doing fine."},
}

var testFallbacks = []string{
	"Tell me more.",
	"I am not sure I follow.",
	"Could you rephrase that?",
}

func newTestEngine() *KeywordEngine {
	return NewKeywordEngine(testRules, testFallbacks, "")
}

func TestKeywordEngine_KeywordMatch(t *testing.T) {
	e := newTestEngine()

	t.Run("exact keyword", func(t *testing.T) {
		reply, err := e.Reply(context.Background(), "hello")
		require.NoError(t, err)
		assert.Equal(t, "Hello there!", reply)
	})

	t.Run("keyword inside a sentence", func(t *testing.T) {
		reply, err := e.Reply(context.Background(), "well HELLO to you too")
		require.NoError(t, err)
		assert.Equal(t, "Hello there!", reply)
	})

	t.Run("first matching rule wins", func(t *testing.T) {
		reply, err := e.Reply(context.Background(), "hello, how are you?")
		require.NoError(t, err)
		assert.Equal(t, "Hello there!", reply)
	})
}

func TestKeywordEngine_TimeReply(t *testing.T) {
	fixed := time.Date(2024, 3, 15, 13, 37, 42, 0, time.UTC)

	e := newTestEngine()
	e.now = func() time.Time { return fixed }

	reply, err := e.Reply(context.Background(), "what time is it?")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(reply, timeReplyPrefix))

	// Assert the format, not the wall clock.
	formatted := strings.TrimPrefix(reply, timeReplyPrefix)
	parsed, err := time.Parse(DefaultTimeFormat, formatted)
	require.NoError(t, err)
	assert.Equal(t, "13:37:42", parsed.Format(DefaultTimeFormat))
}

func TestKeywordEngine_TimeFormatConfigurable(t *testing.T) {
	fixed := time.Date(2024, 3, 15, 13, 37, 42, 0, time.UTC)

	e := NewKeywordEngine(nil, testFallbacks, "15:04")
	e.now = func() time.Time { return fixed }

	reply, err := e.Reply(context.Background(), "time")
	require.NoError(t, err)
	assert.Equal(t, timeReplyPrefix+"13:37", reply)
}

func TestKeywordEngine_Fallback(t *testing.T) {
	e := newTestEngine()

	for i := 0; i < 20; i++ {
		reply, err := e.Reply(context.Background(), "completely unrecognized input")
		require.NoError(t, err)
		assert.Contains(t, testFallbacks, reply)
	}
}

func TestKeywordEngine_ContextCancelled(t *testing.T) {
	e := newTestEngine()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Reply(ctx, "hello")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKeywordEngine_ConcurrentReplies(t *testing.T) {
	// One engine serves many sessions; concurrent calls must not interfere.
	e := newTestEngine()

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				reply, err := e.Reply(context.Background(), "gibberish")
				assert.NoError(t, err)
				assert.Contains(t, testFallbacks, reply)
			}
		}()
	}

	wg.Wait()
}

func TestEngineFunc(t *testing.T) {
	echo := EngineFunc(func(_ context.Context, input string) (string, error) {
		return input, nil
	})

	reply, err := echo.Reply(context.Background(), "repeat after me")
	require.NoError(t, err)
	assert.Equal(t, "repeat after me", reply)
}
