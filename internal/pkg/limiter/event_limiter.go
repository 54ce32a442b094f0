/*
Package limiter provides rate limiting for outbound real-time events, keyed by peer user ID.

It utilizes the Token Bucket algorithm (rate.Limiter) to throttle the frequency of
fire-and-forget channel events (typing notifications in particular) per conversation
partner, and includes a cleanup goroutine that periodically removes idle limiters
to prevent memory growth over long sessions.
*/
package limiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"chatify/internal/pkg/logx"
)

// EventRateLimiter throttles outbound events per peer user ID.
type EventRateLimiter struct {
	// mu is used to protect concurrent access to the limits map.
	mu *sync.RWMutex

	// limits stores the map from peer user ID to the *rate.Limiter instance.
	limits map[string]*rate.Limiter

	// r is the rate (rate.Limit) of the limiter, defining the number of events allowed per second.
	r rate.Limit

	// b is the burst size (token bucket size) of the limiter, defining the maximum burst of events allowed.
	b int
}

// NewEventRateLimiter creates and returns a new EventRateLimiter instance.
// It accepts rate r and burst capacity b, and starts a background goroutine to periodically clean up idle limiters.
func NewEventRateLimiter(r rate.Limit, b int) *EventRateLimiter {
	l := &EventRateLimiter{
		mu:     &sync.RWMutex{},
		limits: make(map[string]*rate.Limiter),
		r:      r,
		b:      b,
	}

	go l.cleanUpIdle()

	return l
}

// GetLimiter retrieves the rate limiter corresponding to the given peer user ID.
// If the limiter for that peer does not exist, a new one is created and stored in the map.
// It uses a Double-Checked Locking pattern to ensure concurrent-safe creation of new limiters.
func (l *EventRateLimiter) GetLimiter(peerID string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limits[peerID]
	l.mu.RUnlock()

	if !exists {
		l.mu.Lock()
		limiter, exists = l.limits[peerID]
		if !exists {
			limiter = rate.NewLimiter(l.r, l.b)
			l.limits[peerID] = limiter
		}
		l.mu.Unlock()
	}

	return limiter
}

// Allow reports whether an event for the given peer may be emitted now.
// Events that are not allowed are expected to be dropped, not queued.
func (l *EventRateLimiter) Allow(peerID string) bool {
	return l.GetLimiter(peerID).Allow()
}

// cleanUpIdle periodically removes limiters whose token bucket has refilled completely,
// meaning no event was emitted to that peer for at least a full refill interval.
func (l *EventRateLimiter) cleanUpIdle() {
	ticker := time.NewTicker(3 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		count := 0
		for peerID, limiter := range l.limits {
			if limiter.TokensAt(time.Now()) >= float64(limiter.Burst()) {
				delete(l.limits, peerID)
				count++
			}
		}
		remaining := len(l.limits)
		l.mu.Unlock()

		logx.Info("Event limiter cleanup finished.", "removed", count, "remaining", remaining)
	}
}
