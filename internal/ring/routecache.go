package ring

import (
	"container/list"
	"sync"
	"time"
)

// routeCacheEntry is a cached find_successor resolution: id -> owning
// node address, with enough bookkeeping for LRU eviction and TTL expiry.
type routeCacheEntry struct {
	key        string
	owner      string
	expiration time.Time
	element    *list.Element
}

// routeCache caches find_successor outcomes, never key/value data: caching
// a value would let a stale cache entry serve data from a node that no
// longer owns the key, violating the single-owner invariant in §3. Caching
// only the routing decision is safe because a wrong owner just costs an
// extra hop (the owner's get_local/set_local still enforces storage), and
// entries expire quickly enough that a departed node falls out fast.
type routeCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	entries  map[string]*routeCacheEntry
	lru      *list.List

	hits   uint64
	misses uint64
}

func newRouteCache(ttl time.Duration, capacity int) *routeCache {
	return &routeCache{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[string]*routeCacheEntry),
		lru:      list.New(),
	}
}

// get returns the cached owner for key, if present and unexpired.
func (c *routeCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return "", false
	}
	if time.Now().After(e.expiration) {
		c.evict(key)
		c.misses++
		return "", false
	}
	c.lru.MoveToFront(e.element)
	c.hits++
	return e.owner, true
}

// put records that key resolved to owner.
func (c *routeCache) put(key, owner string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.owner = owner
		e.expiration = time.Now().Add(c.ttl)
		c.lru.MoveToFront(e.element)
		return
	}

	for c.lru.Len() >= c.capacity && c.lru.Len() > 0 {
		back := c.lru.Back()
		if back == nil {
			break
		}
		c.evict(back.Value.(string))
	}

	e := &routeCacheEntry{key: key, owner: owner, expiration: time.Now().Add(c.ttl)}
	e.element = c.lru.PushFront(key)
	c.entries[key] = e
}

// invalidate drops any cached resolution for key. Successor/predecessor
// changes use clear instead.
func (c *routeCache) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evict(key)
}

// clear drops every cached entry, used when successor/predecessor
// structural state changes enough that cached resolutions are suspect.
func (c *routeCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*routeCacheEntry)
	c.lru = list.New()
}

func (c *routeCache) evict(key string) {
	e, ok := c.entries[key]
	if !ok {
		return
	}
	c.lru.Remove(e.element)
	delete(c.entries, key)
}

type routeCacheStats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
	Entries int     `json:"entries"`
}

func (c *routeCache) snapshot() routeCacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return routeCacheStats{
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: rate,
		Entries: len(c.entries),
	}
}
