package media

import (
	"container/list"
	"sync"
	"time"

	mediarepo "storyweave/internal/gateway/repository/media"
)

type entry struct {
	obj       mediarepo.Object
	expiresAt time.Time
}

// blobCache is an LRU of media objects bounded by entry count and total
// bytes, with a TTL per entry.
type blobCache struct {
	mu         sync.Mutex
	ll         *list.List
	items      map[string]*list.Element
	maxEntries int
	maxBytes   int
	totalBytes int
	ttl        time.Duration
	now        func() time.Time
}

func newBlobCache(maxEntries, maxBytes int, ttl time.Duration) *blobCache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &blobCache{
		ll:         list.New(),
		items:      make(map[string]*list.Element),
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
		ttl:        ttl,
		now:        time.Now,
	}
}

func (c *blobCache) get(hash string) (mediarepo.Object, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ele, ok := c.items[hash]
	if !ok {
		return mediarepo.Object{}, false
	}
	ent := ele.Value.(*entry)
	if c.now().After(ent.expiresAt) {
		c.removeElement(ele)
		return mediarepo.Object{}, false
	}
	c.ll.MoveToFront(ele)
	return ent.obj, true
}

// set skips objects larger than the byte bound instead of flushing the cache
// for them.
func (c *blobCache) set(obj mediarepo.Object) {
	size := len(obj.Data)
	if c.maxBytes > 0 && size > c.maxBytes {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if ele, ok := c.items[obj.Hash]; ok {
		ent := ele.Value.(*entry)
		ent.expiresAt = c.now().Add(c.ttl)
		c.ll.MoveToFront(ele)
		return
	}
	ele := c.ll.PushFront(&entry{obj: obj, expiresAt: c.now().Add(c.ttl)})
	c.items[obj.Hash] = ele
	c.totalBytes += size
	c.evictLocked()
}

func (c *blobCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

func (c *blobCache) evictLocked() {
	for c.ll.Len() > 0 {
		if c.ll.Len() <= c.maxEntries && (c.maxBytes <= 0 || c.totalBytes <= c.maxBytes) {
			return
		}
		c.removeElement(c.ll.Back())
	}
}

func (c *blobCache) removeElement(ele *list.Element) {
	c.ll.Remove(ele)
	ent := ele.Value.(*entry)
	delete(c.items, ent.obj.Hash)
	c.totalBytes -= len(ent.obj.Data)
	if c.totalBytes < 0 {
		c.totalBytes = 0
	}
}
