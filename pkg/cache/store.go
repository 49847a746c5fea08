// Package cache provides a small generic, concurrency-safe key/value store
// backed by github.com/patrickmn/go-cache.
package cache

import (
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	// NoExpiration keeps items until they are deleted or the store is flushed.
	NoExpiration = gocache.NoExpiration
	// DefaultCleanupInterval is used by New when callers pass a zero interval
	// for a store that expires items.
	DefaultCleanupInterval = 30 * time.Minute
)

// Store wraps go-cache with typed accessors. Values that do not match V are
// reported as misses.
type Store[V any] struct {
	useCase string
	cache   *gocache.Cache
}

// New initializes a store whose items expire after defaultExpiration. A
// non-positive cleanup interval disables the janitor goroutine unless items
// expire, in which case DefaultCleanupInterval applies.
func New[V any](useCase string, defaultExpiration, cleanupInterval time.Duration) *Store[V] {
	if cleanupInterval <= 0 && defaultExpiration > 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	return &Store[V]{
		useCase: useCase,
		cache:   gocache.New(defaultExpiration, cleanupInterval),
	}
}

// NewPermanent initializes a store whose items never expire and are never
// evicted.
func NewPermanent[V any](useCase string) *Store[V] {
	return New[V](useCase, NoExpiration, 0)
}

// UseCase returns the label the store was created with.
func (s *Store[V]) UseCase() string {
	return s.useCase
}

// Get retrieves an item from the store by its key.
func (s *Store[V]) Get(key string) (V, bool) {
	var zero V

	value, found := s.cache.Get(key)
	if !found {
		return zero, false
	}

	v, ok := value.(V)
	if !ok {
		return zero, false
	}
	return v, true
}

// Set stores value under key using the store's default expiration.
func (s *Store[V]) Set(key string, value V) {
	s.cache.Set(key, value, gocache.DefaultExpiration)
}

// SetWithTTL stores value under key with an explicit ttl.
func (s *Store[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	s.cache.Set(key, value, ttl)
}

// Delete removes the given keys.
func (s *Store[V]) Delete(keys ...string) {
	for _, key := range keys {
		s.cache.Delete(key)
	}
}

// Flush removes every item.
func (s *Store[V]) Flush() {
	s.cache.Flush()
}

// Len returns the number of items, including expired items not yet cleaned up.
func (s *Store[V]) Len() int {
	return s.cache.ItemCount()
}

// Keys returns the keys of all unexpired items, sorted.
func (s *Store[V]) Keys() []string {
	items := s.cache.Items()
	keys := make([]string, 0, len(items))
	for key := range items {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
