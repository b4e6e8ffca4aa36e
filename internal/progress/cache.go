package progress

import (
	"sync"
	"time"
)

// DefaultCacheTTL is the freshness window for cached lesson statuses.
const DefaultCacheTTL = 60 * time.Second

// Cache is a best-effort read cache of computed lesson statuses keyed by
// (user, lesson). It only saves redundant reads; it is never a correctness
// boundary, and every write path invalidates the affected entry.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

type cacheEntry struct {
	statuses []PhaseStatus
	storedAt time.Time
}

func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{ttl: ttl, now: now, entries: map[string]cacheEntry{}}
}

func (c *Cache) Get(userID, lessonID string) ([]PhaseStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key2(userID, lessonID)]
	if !ok || c.now().Sub(e.storedAt) >= c.ttl {
		return nil, false
	}
	return e.statuses, true
}

func (c *Cache) Put(userID, lessonID string, statuses []PhaseStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key2(userID, lessonID)] = cacheEntry{statuses: statuses, storedAt: c.now()}
}

func (c *Cache) Invalidate(userID, lessonID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key2(userID, lessonID))
}
