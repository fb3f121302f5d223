package service

import (
	"sync"
	"time"
)

const DefaultRitualCooldown = time.Hour

// CooldownRegistry maps ritual IDs to the instant their cooldown ends.
// Expired entries are pruned lazily on access.
type CooldownRegistry struct {
	mu       sync.Mutex
	until    map[string]time.Time
	fallback time.Duration
	now      Clock
}

func NewCooldownRegistry(fallback time.Duration, now Clock) *CooldownRegistry {
	if fallback <= 0 {
		fallback = DefaultRitualCooldown
	}
	return &CooldownRegistry{
		until:    make(map[string]time.Time),
		fallback: fallback,
		now:      now,
	}
}

// IsInCooldown reports whether id's cooldown has not yet expired.
func (c *CooldownRegistry) IsInCooldown(id string) bool {
	return c.IsInCooldownAt(id, time.Time{})
}

// IsInCooldownAt is IsInCooldown evaluated at instant at. A zero at means now.
func (c *CooldownRegistry) IsInCooldownAt(id string, at time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeLocked(id, c.at(at))
}

// SetCooldown starts (or restarts) the cooldown for id. A non-positive
// duration uses the registry default.
func (c *CooldownRegistry) SetCooldown(id string, d time.Duration) {
	if d <= 0 {
		d = c.fallback
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.until[id] = c.now().Add(d)
}

// TryAcquire sets the cooldown for id only if none is active, and reports
// whether it did. Concurrent callers for the same id see exactly one winner.
func (c *CooldownRegistry) TryAcquire(id string, d time.Duration) bool {
	return c.TryAcquireAt(id, d, time.Time{})
}

// TryAcquireAt is TryAcquire with the cooldown measured from at instead of
// the registry clock. A zero at means now.
func (c *CooldownRegistry) TryAcquireAt(id string, d time.Duration, at time.Time) bool {
	if d <= 0 {
		d = c.fallback
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	at = c.at(at)
	if c.activeLocked(id, at) {
		return false
	}
	c.until[id] = at.Add(d)
	return true
}

// Remaining returns the time left on id's cooldown, or zero.
func (c *CooldownRegistry) Remaining(id string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if !c.activeLocked(id, now) {
		return 0
	}
	return c.until[id].Sub(now)
}

func (c *CooldownRegistry) at(t time.Time) time.Time {
	if t.IsZero() {
		return c.now()
	}
	return t
}

func (c *CooldownRegistry) activeLocked(id string, now time.Time) bool {
	until, ok := c.until[id]
	if !ok {
		return false
	}
	if !now.Before(until) {
		delete(c.until, id)
		return false
	}
	return true
}
