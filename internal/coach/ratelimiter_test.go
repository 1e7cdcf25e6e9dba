package coach

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowPermitsUpToMaxCallsPerWindow(t *testing.T) {
	rl := NewRateLimiter(time.Minute, 3)
	assert.True(t, rl.Allow("s1"))
	assert.True(t, rl.Allow("s1"))
	assert.True(t, rl.Allow("s1"))
	assert.False(t, rl.Allow("s1"))
}

func TestAllowTracksSessionsIndependently(t *testing.T) {
	rl := NewRateLimiter(time.Minute, 1)
	assert.True(t, rl.Allow("s1"))
	assert.True(t, rl.Allow("s2"))
	assert.False(t, rl.Allow("s1"))
}

func TestAllowResetsAfterWindowElapses(t *testing.T) {
	rl := NewRateLimiter(20*time.Millisecond, 1)
	assert.True(t, rl.Allow("s1"))
	assert.False(t, rl.Allow("s1"))

	time.Sleep(30 * time.Millisecond)
	assert.True(t, rl.Allow("s1"))
}

// TestAllowIsSafeUnderConcurrentCallers exercises the exclusive-lock path
// with many goroutines hammering the same session, the scenario that used
// to lose increments under a read lock: exactly maxCalls of them should see
// a true result, with no data race (run with -race).
func TestAllowIsSafeUnderConcurrentCallers(t *testing.T) {
	const maxCalls = 50
	const callers = 200
	rl := NewRateLimiter(time.Minute, maxCalls)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow("shared-session") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, maxCalls, allowed)
}
