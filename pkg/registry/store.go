package registry

import (
	"maps"
	"sync"
)

// store is the RWMutex-guarded map shared by every registry collection.
type store[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]*V
}

func newStore[K comparable, V any]() store[K, V] {
	return store[K, V]{items: make(map[K]*V)}
}

func (s *store[K, V]) get(k K) (*V, bool) {
	s.mu.RLock()
	v, ok := s.items[k]
	s.mu.RUnlock()
	return v, ok
}

// put stores v under k and returns the previous value, if any.
func (s *store[K, V]) put(k K, v *V) (*V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.items[k]
	s.items[k] = v
	return prev, ok
}

func (s *store[K, V]) remove(k K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[k]; !ok {
		return false
	}
	delete(s.items, k)
	return true
}

func (s *store[K, V]) len() int {
	s.mu.RLock()
	n := len(s.items)
	s.mu.RUnlock()
	return n
}

// snapshot returns a shallow copy of the underlying map.
func (s *store[K, V]) snapshot() map[K]*V {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[K]*V, len(s.items))
	maps.Copy(out, s.items)
	return out
}

func (s *store[K, V]) forEach(fn func(K, *V) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, v := range s.items {
		if !fn(k, v) {
			return
		}
	}
}
