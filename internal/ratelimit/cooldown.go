package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultMaxAge is how long a cooldown entry is kept before the pruner drops it.
const DefaultMaxAge = 24 * time.Hour

type cooldownKey struct {
	userID int64
	action string
}

// CooldownCache remembers the last time each user performed each action.
// Each key is overwritten independently, so no lock beyond sync.Map is needed.
type CooldownCache struct {
	entries sync.Map // cooldownKey -> time.Time
	maxAge  time.Duration
	now     func() time.Time
}

// NewCooldownCache creates an empty cache. now and maxAge fall back to time.Now and DefaultMaxAge.
func NewCooldownCache(now func() time.Time, maxAge time.Duration) *CooldownCache {
	if now == nil {
		now = time.Now
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &CooldownCache{maxAge: maxAge, now: now}
}

// Get returns the last recorded time for (userID, action).
func (c *CooldownCache) Get(userID int64, action string) (time.Time, bool) {
	v, ok := c.entries.Load(cooldownKey{userID, action})
	if !ok {
		return time.Time{}, false
	}
	return v.(time.Time), true
}

// Set records t as the last time for (userID, action).
func (c *CooldownCache) Set(userID int64, action string, t time.Time) {
	c.entries.Store(cooldownKey{userID, action}, t)
}

// Len returns the number of tracked entries.
func (c *CooldownCache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Prune removes entries older than maxAge relative to now and returns how many were removed.
func (c *CooldownCache) Prune(now time.Time) int {
	removed := 0
	c.entries.Range(func(k, v any) bool {
		// A Set racing with the prune keeps its fresh value.
		if now.Sub(v.(time.Time)) > c.maxAge && c.entries.CompareAndDelete(k, v) {
			removed++
		}
		return true
	})
	return removed
}

// StartPruner prunes the cache every interval until ctx is cancelled.
func (c *CooldownCache) StartPruner(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := c.Prune(c.now()); removed > 0 {
					log.Debug().Int("removed", removed).Msg("Pruned stale cooldown entries")
				}
			}
		}
	}()
}
