package concache

import (
	"fmt"
	"hash/maphash"
	"sync"

	"github.com/unkn0wn-root/concache/backend"
	"github.com/unkn0wn-root/concache/backend/memory"
)

type cache[K comparable, V any] struct {
	cfg   Config
	opts  Options[K, V] // retained for Clone
	store backend.Backend[K, V]
	equal func(a, b V) bool
	log   Logger
	hooks Hooks

	// write-side lock striping; one stripe guards every key hashing to it
	stripes []stripe[K, V]
	mask    uint64
	seed    maphash.Seed
}

type stripe[K comparable, V any] struct {
	mu       sync.Mutex
	inflight map[K]*call[V] // keys whose producer is running; allocated lazily
}

func newCache[K comparable, V any](opts Options[K, V]) (*cache[K, V], error) {
	cfg, err := newConfig(opts.InitialCapacity, opts.LoadFactor, opts.ConcurrencyLevel)
	if err != nil {
		return nil, err
	}

	factory := opts.Backend
	if factory == nil {
		factory = memory.Factory[K, V]()
	}
	store, err := factory(cfg.backendConfig())
	if err != nil {
		return nil, fmt.Errorf("concache: backend: %w", err)
	}

	c := &cache[K, V]{
		cfg:     cfg,
		opts:    opts,
		store:   store,
		stripes: make([]stripe[K, V], cfg.Stripes),
		mask:    uint64(cfg.Stripes - 1),
		seed:    maphash.MakeSeed(),
	}

	// defaults
	c.log, c.hooks, c.equal = opts.Logger, opts.Hooks, opts.Equal
	if c.log == nil {
		c.log = NopLogger{}
	}
	if c.hooks == nil {
		c.hooks = NopHooks{}
	}
	if c.equal == nil {
		c.equal = defaultEqual[V]
	}

	c.log.Debug("cache created", Fields{
		"initialCapacity":  cfg.InitialCapacity,
		"loadFactor":       cfg.LoadFactor,
		"concurrencyLevel": cfg.ConcurrencyLevel,
		"stripes":          cfg.Stripes,
	})
	return c, nil
}

func (c *cache[K, V]) Config() Config { return c.cfg }

func (c *cache[K, V]) Close() error {
	if err := c.store.Close(); err != nil {
		return c.backendErr("close", nil, err)
	}
	return nil
}

func (c *cache[K, V]) Clone() (Cache[K, V], error) {
	// copy produces an empty map: only the configuration carries over
	return New[K, V](c.opts)
}

func (c *cache[K, V]) stripeFor(key K) *stripe[K, V] {
	return &c.stripes[maphash.Comparable(c.seed, key)&c.mask]
}

// lockKey locks key's stripe, first waiting out any producer running for
// key. Callers must unlock st.mu.
func (c *cache[K, V]) lockKey(key K) *stripe[K, V] {
	st := c.stripeFor(key)
	for {
		st.mu.Lock()
		cl, busy := st.inflight[key]
		if !busy {
			return st
		}
		st.mu.Unlock()
		<-cl.done
	}
}

// current reads key; the caller holds key's stripe lock.
// Unreadable entries are dropped and reported as absent.
func (c *cache[K, V]) current(key K) (V, bool) {
	v, ok, err := c.store.Get(key)
	if err == nil {
		return v, ok
	}
	c.hooks.BackendError("get", err)
	_, _, _ = c.store.Del(key)
	c.hooks.SelfHeal(key)
	c.log.Warn("dropped unreadable entry", Fields{"key": key, "err": err})
	var zero V
	return zero, false
}

func (c *cache[K, V]) backendErr(op string, key any, err error) error {
	c.hooks.BackendError(op, err)
	c.log.Error("backend "+op+" failed", Fields{"key": key, "err": err})
	return &BackendError{Op: op, Key: key, Err: err}
}

func (c *cache[K, V]) Get(key K) (V, bool) {
	v, ok, err := c.store.Get(key)
	if err == nil {
		return v, ok
	}
	// rare path: recheck under the stripe lock so a concurrent rewrite of the
	// key is not deleted by mistake; backends never drop entries on Get
	st := c.stripeFor(key)
	st.mu.Lock()
	v, ok = c.current(key)
	st.mu.Unlock()
	return v, ok
}

func (c *cache[K, V]) Lookup(key K) (V, bool, error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}
	if c.opts.Default == nil {
		var zero V
		return zero, false, nil
	}
	v, err := c.opts.Default(c, key)
	if err != nil {
		var zero V
		return zero, false, err
	}
	return v, true, nil
}

func (c *cache[K, V]) ContainsKey(key K) bool {
	_, ok := c.Get(key)
	return ok
}

func (c *cache[K, V]) Put(key K, value V) (V, bool, error) {
	var zero V
	if isNil(value) {
		return zero, false, ErrNilValue
	}
	st := c.lockKey(key)
	defer st.mu.Unlock()

	prev, loaded := c.current(key)
	if err := c.store.Set(key, value); err != nil {
		return zero, false, c.backendErr("set", key, err)
	}
	return prev, loaded, nil
}

func (c *cache[K, V]) PutIfAbsent(key K, value V) (V, bool, error) {
	var zero V
	if isNil(value) {
		return zero, false, ErrNilValue
	}
	st := c.lockKey(key)
	defer st.mu.Unlock()

	actual, loaded, err := c.store.SetIfAbsent(key, value)
	if err != nil {
		return zero, false, c.backendErr("set_if_absent", key, err)
	}
	return actual, loaded, nil
}

func (c *cache[K, V]) ReplaceIfPresent(key K, value V) (V, bool, error) {
	var zero V
	if isNil(value) {
		return zero, false, ErrNilValue
	}
	st := c.lockKey(key)
	defer st.mu.Unlock()

	prev, ok := c.current(key)
	if !ok {
		return zero, false, nil
	}
	if err := c.store.Set(key, value); err != nil {
		return zero, false, c.backendErr("set", key, err)
	}
	return prev, true, nil
}

func (c *cache[K, V]) ReplacePair(key K, oldValue, newValue V) (bool, error) {
	if isNil(newValue) {
		return false, ErrNilValue
	}
	st := c.lockKey(key)
	defer st.mu.Unlock()

	cur, ok := c.current(key)
	if !ok || !c.equal(cur, oldValue) {
		return false, nil
	}
	if err := c.store.Set(key, newValue); err != nil {
		return false, c.backendErr("set", key, err)
	}
	return true, nil
}

func (c *cache[K, V]) Delete(key K) (V, bool, error) {
	var zero V
	st := c.lockKey(key)
	defer st.mu.Unlock()

	prev, ok, err := c.store.Del(key)
	if err != nil {
		return zero, false, c.backendErr("del", key, err)
	}
	return prev, ok, nil
}

func (c *cache[K, V]) DeletePair(key K, value V) (bool, error) {
	st := c.lockKey(key)
	defer st.mu.Unlock()

	cur, ok := c.current(key)
	if !ok || !c.equal(cur, value) {
		return false, nil
	}
	if _, _, err := c.store.Del(key); err != nil {
		return false, c.backendErr("del", key, err)
	}
	return true, nil
}

func (c *cache[K, V]) Fetch(key K, fallback func(K) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := fallback(key)
	if err != nil {
		var zero V
		return zero, err
	}
	actual, _, err := c.PutIfAbsent(key, v)
	return actual, err
}

// EachPair visits a weakly consistent view of the map. Entries present for
// the whole call are visited exactly once; entries written or deleted during
// the call may or may not be seen. fn may call back into the cache.
func (c *cache[K, V]) EachPair(fn func(key K, value V) bool) error {
	if err := c.store.Range(fn); err != nil {
		return c.backendErr("range", nil, err)
	}
	return nil
}

func (c *cache[K, V]) Keys() []K {
	keys := make([]K, 0, c.store.Len())
	err := c.EachPair(func(k K, _ V) bool {
		keys = append(keys, k)
		return true
	})
	if err != nil {
		c.log.Warn("keys: partial result", Fields{"collected": len(keys), "err": err})
	}
	return keys
}

func (c *cache[K, V]) Values() []V {
	vals := make([]V, 0, c.store.Len())
	err := c.EachPair(func(_ K, v V) bool {
		vals = append(vals, v)
		return true
	})
	if err != nil {
		c.log.Warn("values: partial result", Fields{"collected": len(vals), "err": err})
	}
	return vals
}

func (c *cache[K, V]) Size() int { return max(c.store.Len(), 0) }

func (c *cache[K, V]) Empty() bool { return c.Size() == 0 }

// Clear is not atomic: readers may observe a partially cleared map, and
// writes racing with Clear may survive it.
func (c *cache[K, V]) Clear() error {
	n := c.store.Len()
	if err := c.store.Clear(); err != nil {
		return c.backendErr("clear", nil, err)
	}
	c.hooks.Cleared(n)
	c.log.Debug("cache cleared", Fields{"removed": n})
	return nil
}

var _ Cache[string, int] = (*cache[string, int])(nil)
