// Package replyengine generates automated replies for inbound chat messages.
// The server treats reply generation as a pluggable strategy behind the
// Engine interface; the bundled KeywordEngine matches configured keywords,
// answers time queries with the current clock, and falls back to a random
// canned response.
package replyengine

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Engine maps one inbound message to one reply. Implementations must be safe
// to invoke concurrently from multiple sessions and must not retain state
// across calls beyond what is internally synchronized.
type Engine interface {
	// Reply returns the reply text for the given input. The context carries
	// the server's per-message deadline; implementations that do real work
	// should honor it.
	//
	// Parameters:
	//   - ctx: Context for cancellation and deadline control
	//   - input: The inbound message text
	//
	// Returns:
	//   - The reply text
	//   - An error if reply generation failed
	Reply(ctx context.Context, input string) (string, error)
}

// EngineFunc adapts a plain function to the Engine interface.
type EngineFunc func(ctx context.Context, input string) (string, error)

// Reply implements Engine.
func (f EngineFunc) Reply(ctx context.Context, input string) (string, error) {
	return f(ctx, input)
}

// Rule pairs a keyword with its canned reply. Matching is a case-insensitive
// substring test against the whole input.
type Rule struct {
	Match string
	Reply string
}

// DefaultTimeFormat is the layout used for time replies when none is configured.
const DefaultTimeFormat = "15:04:05"

// TimeKeyword is the input keyword that triggers a current-time reply.
const TimeKeyword = "time"

// timeReplyPrefix prefixes the formatted clock value in time replies.
const timeReplyPrefix = "The time is "

// KeywordEngine is the default Engine: ordered keyword rules checked first,
// then the time query, then a random fallback from a fixed set. The random
// source is guarded by a mutex so one engine can serve many sessions.
type KeywordEngine struct {
	rules      []Rule
	fallbacks  []string
	timeFormat string
	now        func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewKeywordEngine creates a KeywordEngine from the given rule table and
// fallback set. Rules are evaluated in order; the first match wins. When no
// rule and no time query matches, one of the fallbacks is chosen at random.
//
// Parameters:
//   - rules: Ordered keyword-to-reply table; may be empty
//   - fallbacks: Replies for unrecognized input; must be non-empty
//   - timeFormat: time.Format layout for time replies; "" uses DefaultTimeFormat
//
// Returns:
//   - A new *KeywordEngine safe for concurrent use
func NewKeywordEngine(rules []Rule, fallbacks []string, timeFormat string) *KeywordEngine {
	if timeFormat == "" {
		timeFormat = DefaultTimeFormat
	}

	return &KeywordEngine{
		rules:      rules,
		fallbacks:  fallbacks,
		timeFormat: timeFormat,
		now:        time.Now,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Reply implements Engine. It is a pure function of the input plus ambient
// time and the random fallback choice.
func (e *KeywordEngine) Reply(ctx context.Context, input string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	for _, rule := range e.rules {
		if strings.Contains(normalized, strings.ToLower(rule.Match)) {
			return rule.Reply, nil
		}
	}

	if strings.Contains(normalized, TimeKeyword) {
		return timeReplyPrefix + e.now().Format(e.timeFormat), nil
	}

	return e.fallback(), nil
}

// fallback picks one of the configured fallback replies at random.
func (e *KeywordEngine) fallback() string {
	if len(e.fallbacks) == 0 {
		return ""
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fallbacks[e.rng.Intn(len(e.fallbacks))]
}
