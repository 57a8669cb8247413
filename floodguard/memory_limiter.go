package floodguard

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryLimiter is an in-process Limiter backed by go-cache. Each session
// gets a counter that expires after the configured window; a message is
// allowed while the counter is at or below the limit.
type MemoryLimiter struct {
	limit  int
	window time.Duration

	// mu serializes the get-or-create of a session's counter; go-cache has
	// no atomic upsert for the initial value.
	mu    sync.Mutex
	cache *cache.Cache
}

// NewMemoryLimiter creates a MemoryLimiter allowing up to limit messages per
// session within each window. Expired counters are cleaned up in the
// background at the window interval.
//
// Parameters:
//   - limit: Maximum messages per window; values < 1 are treated as 1
//   - window: Length of the rate window
//
// Returns:
//   - A new *MemoryLimiter
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	if limit < 1 {
		limit = 1
	}

	return &MemoryLimiter{
		limit:  limit,
		window: window,
		cache:  cache.New(window, window),
	}
}

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(ctx context.Context, sessionID string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, found := l.cache.Get(sessionID); !found {
		l.cache.Set(sessionID, 1, l.window)
		return true, nil
	}

	count, err := l.cache.IncrementInt(sessionID, 1)
	if err != nil {
		// Counter expired between Get and Increment; start a fresh window.
		l.cache.Set(sessionID, 1, l.window)
		return true, nil
	}

	return count <= l.limit, nil
}

// Reset forgets the counter for a session, e.g. when it disconnects.
//
// Parameters:
//   - sessionID: The session whose counter should be dropped
func (l *MemoryLimiter) Reset(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache.Delete(sessionID)
}
