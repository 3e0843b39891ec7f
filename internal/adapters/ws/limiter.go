package ws

import (
	"sync"
	"time"

	"tripsync/internal/domain"
)

// chatLimiter caps how many chat messages one member may post per
// sliding window. Location and heartbeat traffic is never limited.
type chatLimiter struct {
	mu       sync.Mutex
	history  map[domain.MemberID][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func newChatLimiter(limit int, interval time.Duration) *chatLimiter {
	return &chatLimiter{
		history:  make(map[domain.MemberID][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *chatLimiter) Allow(id domain.MemberID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)

	// 1. Take the member's history
	attempts := rl.history[id]

	// 2. Drop attempts that fell out of the window
	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	// 3. Still at the limit: block
	if len(fresh) >= rl.limit {
		rl.history[id] = fresh
		return false
	}

	// 4. Otherwise record this attempt
	fresh = append(fresh, now)
	rl.history[id] = fresh

	return true
}

// Forget drops a departed member's history so the map cannot grow
// without bound.
func (rl *chatLimiter) Forget(id domain.MemberID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.history, id)
}
