// Package locked is a fully synchronized concache backend: one RWMutex around
// one map. Every write serializes on the same lock regardless of key.
//
// It is the simplest correct backend and serves as a contention baseline for
// the sharded memory backend.
package locked

import (
	"sync"

	"github.com/unkn0wn-root/concache/backend"
	"github.com/unkn0wn-root/concache/internal/util"
)

type Map[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
	hint  int
}

var _ backend.Backend[string, int] = (*Map[string, int])(nil)

// New ignores cfg.Shards.
func New[K comparable, V any](cfg backend.Config) *Map[K, V] {
	hint := util.TableSizeFor(cfg.InitialCapacity, cfg.LoadFactor)
	return &Map[K, V]{items: make(map[K]V, hint), hint: hint}
}

func Factory[K comparable, V any]() backend.Factory[K, V] {
	return func(cfg backend.Config) (backend.Backend[K, V], error) {
		return New[K, V](cfg), nil
	}
}

func (m *Map[K, V]) Get(key K) (V, bool, error) {
	m.mu.RLock()
	v, ok := m.items[key]
	m.mu.RUnlock()
	return v, ok, nil
}

func (m *Map[K, V]) Set(key K, value V) error {
	m.mu.Lock()
	m.items[key] = value
	m.mu.Unlock()
	return nil
}

func (m *Map[K, V]) SetIfAbsent(key K, value V) (V, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.items[key]; ok {
		return existing, true, nil
	}
	m.items[key] = value
	return value, false, nil
}

func (m *Map[K, V]) Del(key K) (V, bool, error) {
	m.mu.Lock()
	v, ok := m.items[key]
	if ok {
		delete(m.items, key)
	}
	m.mu.Unlock()
	return v, ok, nil
}

// Range collects the whole map under the read lock, then calls fn unlocked.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) error {
	m.mu.RLock()
	keys := make([]K, 0, len(m.items))
	vals := make([]V, 0, len(m.items))
	for k, v := range m.items {
		keys = append(keys, k)
		vals = append(vals, v)
	}
	m.mu.RUnlock()

	for i := range keys {
		if !fn(keys[i], vals[i]) {
			break
		}
	}
	return nil
}

func (m *Map[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *Map[K, V]) Clear() error {
	m.mu.Lock()
	m.items = make(map[K]V, m.hint)
	m.mu.Unlock()
	return nil
}

func (m *Map[K, V]) Close() error { return nil }
