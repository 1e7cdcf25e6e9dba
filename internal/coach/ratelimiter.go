package coach

import (
	"log/slog"
	"sync"
	"time"
)

// RateLimiter caps coach briefing calls per session with a fixed window: a
// session's window opens at its first call and allows maxCalls calls until
// windowDur has passed, after which the next call opens a fresh window. The
// count is not sliding, so a burst straddling a window boundary can pass up
// to 2*maxCalls calls within one windowDur.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	maxCalls int
	windowDur time.Duration
}

type window struct {
	count       int
	windowStart time.Time
}

func NewRateLimiter(windowDur time.Duration, maxCalls int) *RateLimiter {
	if maxCalls <= 0 {
		maxCalls = 5
	}
	if windowDur <= 0 {
		windowDur = time.Minute
	}
	rl := &RateLimiter{
		windows:   make(map[string]*window),
		maxCalls:  maxCalls,
		windowDur: windowDur,
	}
	go rl.cleanup()
	return rl
}

// Allow reports whether sessionID may make another coach call right now,
// recording the call if so. The whole check-and-increment is done under
// the exclusive lock since it mutates shared per-session state.
func (rl *RateLimiter) Allow(sessionID string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, exists := rl.windows[sessionID]
	if exists && now.Sub(w.windowStart) <= rl.windowDur {
		w.count++
		if w.count > rl.maxCalls {
			slog.Debug("coach: rate limit exceeded", "session_id", sessionID, "count", w.count, "limit", rl.maxCalls)
			return false
		}
		return true
	}

	rl.windows[sessionID] = &window{count: 1, windowStart: now}
	return true
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for key, w := range rl.windows {
			if now.Sub(w.windowStart) > 2*rl.windowDur {
				delete(rl.windows, key)
			}
		}
		rl.mu.Unlock()
	}
}
