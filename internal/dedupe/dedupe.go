// ABOUTME: Seen-set for dropping redelivered platform events.
// ABOUTME: TTL plus size bound, pruned lazily on insert; no background goroutine.

package dedupe

import (
	"sync"
	"time"
)

// entry pairs a key with the time it was marked.
type entry struct {
	key  string
	seen time.Time
}

// Cache tracks recently seen event keys so redelivered events (socket-mode
// clients redeliver anything not acked in time) are processed once. Expired
// and over-capacity entries are pruned inline on insert, which keeps the
// cache goroutine-free; with one marker per process that is plenty.
type Cache struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	order   []entry // insertion order, oldest first
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

// New creates a cache that remembers keys for ttl, holding at most maxSize.
func New(ttl time.Duration, maxSize int) *Cache {
	return &Cache{
		seen:    make(map[string]time.Time),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// CheckAndMark reports whether key was already seen within the TTL and, if
// not, marks it atomically. One lock acquisition avoids check-then-mark races.
func (c *Cache) CheckAndMark(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if at, ok := c.seen[key]; ok && now.Sub(at) < c.ttl {
		return true
	}

	c.prune(now)
	c.seen[key] = now
	c.order = append(c.order, entry{key: key, seen: now})
	return false
}

// Len returns the number of live entries, counting expired ones that have
// not been pruned yet.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// prune drops expired entries and, if still at capacity, the oldest entry.
// Must be called with mu held.
func (c *Cache) prune(now time.Time) {
	for len(c.order) > 0 {
		oldest := c.order[0]
		expired := now.Sub(oldest.seen) >= c.ttl
		if !expired && len(c.seen) < c.maxSize {
			return
		}
		c.order = c.order[1:]
		// The map entry may have been refreshed since; only delete if this
		// queue entry is still the live one.
		if at, ok := c.seen[oldest.key]; ok && at.Equal(oldest.seen) {
			delete(c.seen, oldest.key)
		}
	}
}
