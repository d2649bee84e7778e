package cache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRU is a bounded cache whose GetOrAdd builds a missing value at most once
// per key while the key stays resident.
type LRU[K comparable, V any] struct {
	cache *lru.Cache[K, V]
	mu    sync.RWMutex
}

// NewLRU creates a cache holding up to size entries. onEvict may be nil.
func NewLRU[K comparable, V any](size int, onEvict func(K, V)) (*LRU[K, V], error) {
	if size <= 0 {
		size = 256
	}
	var (
		c   *lru.Cache[K, V]
		err error
	)
	if onEvict != nil {
		c, err = lru.NewWithEvict(size, onEvict)
	} else {
		c, err = lru.New[K, V](size)
	}
	if err != nil {
		return nil, err
	}
	return &LRU[K, V]{cache: c}, nil
}

func (l *LRU[K, V]) Get(key K) (V, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cache.Get(key)
}

func (l *LRU[K, V]) Add(key K, value V) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache.Add(key, value)
}

// GetOrAdd returns the cached value for key, building and caching it with
// build on a miss. A failed build caches nothing.
func (l *LRU[K, V]) GetOrAdd(key K, build func() (V, error)) (V, error) {
	// Fast path: read lock only
	l.mu.RLock()
	if v, ok := l.cache.Get(key); ok {
		l.mu.RUnlock()
		return v, nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if v, ok := l.cache.Get(key); ok {
		return v, nil
	}

	v, err := build()
	if err != nil {
		var zero V
		return zero, err
	}
	l.cache.Add(key, v)
	return v, nil
}

func (l *LRU[K, V]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cache.Len()
}

// Purge drops every entry, triggering the eviction callback for each.
func (l *LRU[K, V]) Purge() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache.Purge()
}
