// Package floodguard rate-limits inbound chat messages per session. The
// server consults a Limiter before handing a message to the reply engine and
// drops (with a warning reply) anything over the configured rate. Two
// implementations are provided: an in-memory limiter backed by go-cache TTL
// counters for a single server process, and a Redis-backed limiter for
// deployments running more than one server instance.
package floodguard

import (
	"context"
)

// Limiter decides whether a session may deliver another message right now.
// Implementations must be safe for concurrent use across sessions.
type Limiter interface {
	// Allow records one inbound message for the given session and reports
	// whether it is within the configured rate.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - sessionID: The session the message arrived on
	//
	// Returns:
	//   - true if the message may be processed, false if the session is over its rate
	//   - An error if the limiter backend failed
	Allow(ctx context.Context, sessionID string) (bool, error)
}

// unlimited is a Limiter that never denies.
type unlimited struct{}

// Allow implements Limiter.
func (unlimited) Allow(context.Context, string) (bool, error) {
	return true, nil
}

// Unlimited returns a Limiter that allows every message. It is the default
// when flood protection is disabled.
//
// Returns:
//   - A no-op Limiter
func Unlimited() Limiter {
	return unlimited{}
}
