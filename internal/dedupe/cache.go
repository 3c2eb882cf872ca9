// ABOUTME: Thread-safe TTL cache for suppressing duplicate conversation entries
// ABOUTME: Used where a history fetch overlaps the live entry stream

package dedupe

import (
	"sync"
	"time"
)

// Cache tracks recently seen entry IDs so an entry delivered by both a
// history fetch and the live stream is published only once. Entries expire
// after a TTL and the cache is capped, evicting the oldest keys first.
type Cache struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	order   []string // keys in insertion order, oldest first
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

// sweepInterval is how often expired keys are cleaned up in the background.
const sweepInterval = time.Minute

// New creates a dedupe cache with the given TTL and maximum size.
// A background goroutine periodically removes expired keys.
func New(ttl time.Duration, maxSize int) *Cache {
	c := &Cache{
		seen:    make(map[string]time.Time),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go c.sweep()
	return c
}

// CheckAndMark atomically checks whether key has been seen and marks it if
// not. Returns true if the key was already seen (duplicate), false if it is
// new and now marked.
func (c *Cache) CheckAndMark(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ts, ok := c.seen[key]; ok && time.Since(ts) < c.ttl {
		return true
	}

	c.markLocked(key)
	return false
}

// Mark records key as seen without checking.
func (c *Cache) Mark(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markLocked(key)
}

// Len returns the number of tracked keys, including not-yet-swept expired ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// Close stops the background sweeper. Safe to call more than once.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
}

// markLocked inserts key and evicts the oldest keys past maxSize.
// Caller must hold c.mu.
func (c *Cache) markLocked(key string) {
	if _, exists := c.seen[key]; !exists {
		c.order = append(c.order, key)
	}
	c.seen[key] = time.Now()

	for len(c.seen) > c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.seen, oldest)
	}
}

// sweep periodically removes expired keys.
func (c *Cache) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

// removeExpired drops all keys older than the TTL.
func (c *Cache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.order[:0]
	for _, key := range c.order {
		ts, ok := c.seen[key]
		if !ok {
			continue
		}
		if time.Since(ts) >= c.ttl {
			delete(c.seen, key)
			continue
		}
		kept = append(kept, key)
	}
	c.order = kept
}
