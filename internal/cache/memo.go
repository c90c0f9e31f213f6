package cache

import (
	"container/list"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// MemoStats holds memo counters
type MemoStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
}

type memoEntry[V any] struct {
	key       string
	value     V
	createdAt time.Time
}

// Memo is a TTL- and capacity-bounded memoization table with LRU eviction.
//
// The lock guards only map and list mutation; compute functions run without it.
// Concurrent misses for the same key share one compute call.
type Memo[V any] struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
	group    singleflight.Group
	now      func() time.Time

	hits      uint64
	misses    uint64
	evictions uint64
}

// NewMemo creates a memo. A non-positive capacity means unbounded.
func NewMemo[V any](ttl time.Duration, capacity int) *Memo[V] {
	return &Memo[V]{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

// GetOrCompute returns the cached value for key if it is younger than the TTL,
// otherwise calls compute and stores its result. Errors are returned but never stored.
func (m *Memo[V]) GetOrCompute(key string, compute func() (V, error)) (V, error) {
	if v, ok := m.Get(key); ok {
		return v, nil
	}

	res, err, _ := m.group.Do(key, func() (interface{}, error) {
		// Another caller may have stored the value while we waited to enter the group
		if v, ok := m.lookup(key, false); ok {
			return v, nil
		}
		v, err := compute()
		if err != nil {
			return v, err
		}
		m.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		if v, ok := res.(V); ok {
			return v, err
		}
		return zero, err
	}
	return res.(V), nil
}

// Get returns a fresh cached value and marks it recently used
func (m *Memo[V]) Get(key string) (V, bool) {
	return m.lookup(key, true)
}

func (m *Memo[V]) lookup(key string, count bool) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	elem, ok := m.entries[key]
	if !ok {
		if count {
			m.misses++
		}
		return zero, false
	}

	entry := elem.Value.(*memoEntry[V])
	if m.ttl > 0 && m.now().Sub(entry.createdAt) >= m.ttl {
		if count {
			m.misses++
		}
		return zero, false
	}

	m.order.MoveToFront(elem)
	if count {
		m.hits++
	}
	return entry.value, true
}

// Set stores value under key, replacing any existing entry
func (m *Memo[V]) Set(key string, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := &memoEntry[V]{key: key, value: value, createdAt: m.now()}
	if elem, ok := m.entries[key]; ok {
		elem.Value = entry
		m.order.MoveToFront(elem)
		return
	}

	m.entries[key] = m.order.PushFront(entry)

	for m.capacity > 0 && m.order.Len() > m.capacity {
		oldest := m.order.Back()
		if oldest == nil {
			break
		}
		m.order.Remove(oldest)
		delete(m.entries, oldest.Value.(*memoEntry[V]).key)
		m.evictions++
	}
}

// Delete removes key
func (m *Memo[V]) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.entries[key]; ok {
		m.order.Remove(elem)
		delete(m.entries, key)
	}
}

// Purge removes every entry
func (m *Memo[V]) Purge() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]*list.Element)
	m.order.Init()
}

// Len returns the number of stored entries, including stale ones not yet replaced
func (m *Memo[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

// Stats returns a snapshot of the memo counters
func (m *Memo[V]) Stats() MemoStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MemoStats{
		Hits:      m.hits,
		Misses:    m.misses,
		Evictions: m.evictions,
		Size:      m.order.Len(),
	}
}
