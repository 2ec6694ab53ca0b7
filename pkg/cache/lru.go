package cache

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/hashgate/etagcache/pkg/etag"
)

// LRU is the default Store: a fixed-capacity map with a recency list for
// eviction and a lazy time-to-live check on lookup. The mutex is held
// only across the O(1) map and list mutation.
type LRU struct {
	mu    sync.Mutex
	items map[string]*list.Element
	order *list.List // front = most recently used
	cap   int
	ttl   time.Duration

	now func() time.Time
}

type lruItem struct {
	key   string
	entry Entry
}

// NewLRU creates a store holding at most capacity entries. Entries older
// than ttl are treated as absent on lookup; a non-positive ttl disables
// time expiry, leaving capacity as the only bound.
func NewLRU(capacity int, ttl time.Duration) (*LRU, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidCapacity, capacity)
	}
	return &LRU{
		items: make(map[string]*list.Element, capacity),
		order: list.New(),
		cap:   capacity,
		ttl:   ttl,
		now:   time.Now,
	}, nil
}

// Get returns the live entry for key and marks it as recently used.
// An expired entry found here is removed and reported as a miss.
func (l *LRU) Get(key string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	el, ok := l.items[key]
	if !ok {
		storeMisses.Inc()
		return Entry{}, false
	}
	item := el.Value.(*lruItem)
	if item.entry.Expired(l.now(), l.ttl) {
		l.order.Remove(el)
		delete(l.items, key)
		storeExpirations.Inc()
		storeMisses.Inc()
		return Entry{}, false
	}
	l.order.MoveToFront(el)
	storeHits.Inc()
	return item.entry, true
}

// Put inserts or replaces the entry for key with the current timestamp.
// Inserting a new key into a full store first evicts the
// least-recently-used entry.
func (l *LRU) Put(key string, tag etag.ETag) {
	entry := Entry{ETag: tag, CreatedAt: l.now()}

	l.mu.Lock()
	defer l.mu.Unlock()

	if el, ok := l.items[key]; ok {
		el.Value.(*lruItem).entry = entry
		l.order.MoveToFront(el)
		return
	}
	if len(l.items) >= l.cap {
		back := l.order.Back()
		if back != nil {
			l.order.Remove(back)
			delete(l.items, back.Value.(*lruItem).key)
			storeEvictions.Inc()
		}
	}
	l.items[key] = l.order.PushFront(&lruItem{key: key, entry: entry})
}

// Len returns the number of entries currently held, including entries
// whose TTL has lapsed but that no lookup has observed yet.
func (l *LRU) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

var _ Store = (*LRU)(nil)
