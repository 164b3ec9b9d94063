// Package bot wires the Telegram surface: command handlers, the plain-text
// trigger path, the force-subscribe gate, and the per-recipient cooldown.
//
// This file implements the cooldown as an in-memory, per-chat token bucket
// with opportunistic garbage collection. It protects against rapid repeated
// triggering by a single recipient, not global throughput.
package bot

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// visitor holds a single limiter and the last time it was seen, so idle
// buckets can be evicted.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Cooldown enforces a fixed per-recipient window between accepted triggers.
// A zero window allows everything. Safe for concurrent use.
type Cooldown struct {
	window   time.Duration
	mu       sync.Mutex
	visitors map[int64]*visitor

	ttl      time.Duration
	cleanupN uint64
}

// NewCooldown constructs a Cooldown with the given window.
func NewCooldown(window time.Duration) *Cooldown {
	return &Cooldown{
		window:   window,
		visitors: make(map[int64]*visitor),
		ttl:      10 * time.Minute,
	}
}

// Allow reports whether a trigger from chatID may proceed, consuming the
// recipient's token when it does. The bucket refills one token per window
// (burst 1), which is exactly the "at most once per cooldown" rule.
func (c *Cooldown) Allow(chatID int64) bool {
	if c.window <= 0 {
		return true
	}
	return c.getVisitor(chatID).Allow()
}

// getVisitor returns (and refreshes) the limiter for chatID, creating it if
// absent. Idle entries are evicted after ~5000 lookups; the sweep runs
// before the refresh so a stale bucket for the requested chat is also
// replaced.
func (c *Cooldown) getVisitor(chatID int64) *rate.Limiter {
	now := time.Now()

	c.mu.Lock()
	c.cleanupN++
	if c.cleanupN >= 5000 {
		for id, v := range c.visitors {
			if now.Sub(v.lastSeen) >= c.ttl {
				delete(c.visitors, id)
			}
		}
		c.cleanupN = 0
	}

	if v, ok := c.visitors[chatID]; ok {
		v.lastSeen = now
		lim := v.limiter
		c.mu.Unlock()
		return lim
	}

	lim := rate.NewLimiter(rate.Every(c.window), 1)
	c.visitors[chatID] = &visitor{limiter: lim, lastSeen: now}
	c.mu.Unlock()
	return lim
}
