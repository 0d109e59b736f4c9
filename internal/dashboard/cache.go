package dashboard

import (
	"container/list"
	"sync"
	"time"

	"github.com/lunardrift/neo-tracker/internal/adapter/sqlite"
)

// queryCache is a thread-safe LRU cache for canned query results. Entries
// carry a short TTL because a collection run may append rows underneath a
// long-lived dashboard process.
type queryCache struct {
	maxEntries int
	ttl        time.Duration

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently used
}

type cacheEntry struct {
	key     string
	result  *sqlite.QueryResult
	savedAt time.Time
}

func newQueryCache(maxEntries int, ttl time.Duration) *queryCache {
	return &queryCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

func (c *queryCache) get(key string) (*sqlite.QueryResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*cacheEntry)
	if time.Since(entry.savedAt) > c.ttl {
		c.order.Remove(elem)
		delete(c.entries, key)
		return nil, false
	}
	c.order.MoveToFront(elem)
	return entry.result, true
}

func (c *queryCache) put(key string, result *sqlite.QueryResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.result = result
		entry.savedAt = time.Now()
		c.order.MoveToFront(elem)
		return
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{
		key:     key,
		result:  result,
		savedAt: time.Now(),
	})

	if c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}
