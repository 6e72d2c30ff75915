// Package memory is the default concache backend: a sharded in-process map.
//
// Each shard owns a Go map guarded by its own RWMutex. The shard count is the
// cache's stripe count, so writers to unrelated keys rarely meet on a lock.
package memory

import (
	"hash/maphash"
	"sync"

	"github.com/unkn0wn-root/concache/backend"
	"github.com/unkn0wn-root/concache/internal/util"
)

// DefaultShardCount is used when Config.Shards is not a power of two.
const DefaultShardCount = 16

type Map[K comparable, V any] struct {
	shards    []*shard[K, V]
	shardMask uint64
	seed      maphash.Seed
	hint      int // per-shard map size hint, reused by Clear
}

type shard[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

var _ backend.Backend[string, int] = (*Map[string, int])(nil)

// New creates a sharded map sized for cfg.
// cfg.Shards must be a power of two; anything else falls back to DefaultShardCount.
func New[K comparable, V any](cfg backend.Config) *Map[K, V] {
	n := cfg.Shards
	if n <= 0 || n&(n-1) != 0 {
		n = DefaultShardCount
	}

	// pre-size so that InitialCapacity entries fit without growing
	hint := util.PerShard(util.TableSizeFor(cfg.InitialCapacity, cfg.LoadFactor), n)

	m := &Map[K, V]{
		shards:    make([]*shard[K, V], n),
		shardMask: uint64(n - 1),
		seed:      maphash.MakeSeed(),
		hint:      hint,
	}
	for i := range m.shards {
		m.shards[i] = &shard[K, V]{items: make(map[K]V, hint)}
	}
	return m
}

// Factory adapts New to backend.Factory.
func Factory[K comparable, V any]() backend.Factory[K, V] {
	return func(cfg backend.Config) (backend.Backend[K, V], error) {
		return New[K, V](cfg), nil
	}
}

func (m *Map[K, V]) shardFor(key K) *shard[K, V] {
	return m.shards[maphash.Comparable(m.seed, key)&m.shardMask]
}

func (m *Map[K, V]) Get(key K) (V, bool, error) {
	s := m.shardFor(key)
	s.mu.RLock()
	v, ok := s.items[key]
	s.mu.RUnlock()
	return v, ok, nil
}

func (m *Map[K, V]) Set(key K, value V) error {
	s := m.shardFor(key)
	s.mu.Lock()
	s.items[key] = value
	s.mu.Unlock()
	return nil
}

func (m *Map[K, V]) SetIfAbsent(key K, value V) (V, bool, error) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.items[key]; ok {
		return existing, true, nil
	}
	s.items[key] = value
	return value, false, nil
}

func (m *Map[K, V]) Del(key K) (V, bool, error) {
	s := m.shardFor(key)
	s.mu.Lock()
	v, ok := s.items[key]
	if ok {
		delete(s.items, key)
	}
	s.mu.Unlock()
	return v, ok, nil
}

// Range visits shards one at a time. Each shard is copied under its read lock
// and fn runs without any lock held, so fn may call back into the map.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) error {
	type pair struct {
		k K
		v V
	}
	var buf []pair
	for _, s := range m.shards {
		buf = buf[:0]
		s.mu.RLock()
		for k, v := range s.items {
			buf = append(buf, pair{k, v})
		}
		s.mu.RUnlock()

		for _, p := range buf {
			if !fn(p.k, p.v) {
				return nil
			}
		}
	}
	return nil
}

func (m *Map[K, V]) Len() int {
	n := 0
	for _, s := range m.shards {
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}

// Clear swaps every shard for a fresh map, shard by shard.
func (m *Map[K, V]) Clear() error {
	for _, s := range m.shards {
		s.mu.Lock()
		s.items = make(map[K]V, m.hint)
		s.mu.Unlock()
	}
	return nil
}

func (m *Map[K, V]) Close() error { return nil }

// ShardCount returns the number of shards.
func (m *Map[K, V]) ShardCount() int { return len(m.shards) }
