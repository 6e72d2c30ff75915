// Package bigcache stores concache entries off-heap in allegro/bigcache.
//
// Keys and values are serialized with caller-supplied codecs; values are
// framed (internal/wire) so that foreign or truncated bytes are detected on
// read instead of being decoded into garbage. Get reports such entries
// without removing them; Del removes them.
//
// bigcache is configured never to expire entries: LifeWindow is effectively
// infinite, CleanWindow is zero and no hard size limit is set. Entries leave
// only through Del or Clear.
//
// bigcache indexes entries by a 64-bit hash of the encoded key; two distinct
// keys whose hashes collide overwrite each other. Use the memory backend if
// that is unacceptable.
package bigcache

import (
	"context"
	"errors"
	"fmt"
	"hash/maphash"
	"sync"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/concache/backend"
	"github.com/unkn0wn-root/concache/codec"
	"github.com/unkn0wn-root/concache/internal/wire"
)

// lifeWindow is long enough that bigcache never considers an entry expired.
const lifeWindow = 100 * 365 * 24 * time.Hour

var ErrNoCodec = errors.New("bigcache backend: key and value codecs are required")

type Options[K comparable, V any] struct {
	Keys   codec.Codec[K] // must be injective; see codec.CBOR for struct keys
	Values codec.Codec[V]

	MaxEntrySize int  // initial per-entry size hint in bytes; 0 => bigcache default
	Verbose      bool // bigcache's own allocation logging
}

type Cache[K comparable, V any] struct {
	c    *bc.BigCache
	keys codec.Codec[K]
	vals codec.Codec[V]

	// bigcache has no conditional writes; these serialize read-modify-write
	// sequences per encoded key.
	locks []sync.Mutex
	mask  uint64
	seed  maphash.Seed
}

var _ backend.Backend[string, []byte] = (*Cache[string, []byte])(nil)

func New[K comparable, V any](cfg backend.Config, opts Options[K, V]) (*Cache[K, V], error) {
	if opts.Keys == nil || opts.Values == nil {
		return nil, ErrNoCodec
	}
	shards := cfg.Shards
	if shards <= 0 || shards&(shards-1) != 0 {
		shards = 16
	}

	conf := bc.DefaultConfig(lifeWindow)
	conf.Shards = shards
	conf.CleanWindow = 0
	conf.HardMaxCacheSize = 0
	conf.Verbose = opts.Verbose
	// bigcache preallocates MaxEntriesInWindow*MaxEntrySize bytes up front;
	// its default (600k entries) is far above a typical initial capacity.
	conf.MaxEntriesInWindow = max(cfg.InitialCapacity, shards)
	if opts.MaxEntrySize > 0 {
		conf.MaxEntrySize = opts.MaxEntrySize
	}

	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, fmt.Errorf("bigcache backend: %w", err)
	}
	return &Cache[K, V]{
		c:     c,
		keys:  opts.Keys,
		vals:  opts.Values,
		locks: make([]sync.Mutex, shards),
		mask:  uint64(shards - 1),
		seed:  maphash.MakeSeed(),
	}, nil
}

func Factory[K comparable, V any](opts Options[K, V]) backend.Factory[K, V] {
	return func(cfg backend.Config) (backend.Backend[K, V], error) {
		return New[K, V](cfg, opts)
	}
}

func (p *Cache[K, V]) lockFor(k string) *sync.Mutex {
	return &p.locks[maphash.String(p.seed, k)&p.mask]
}

func (p *Cache[K, V]) encodeKey(key K) (string, error) {
	b, err := p.keys.Encode(key)
	if err != nil {
		return "", fmt.Errorf("bigcache backend: encode key: %w", err)
	}
	return string(b), nil
}

func (p *Cache[K, V]) encodeValue(v V) ([]byte, error) {
	payload, err := p.vals.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("bigcache backend: encode value: %w", err)
	}
	return wire.EncodeValue(payload), nil
}

func (p *Cache[K, V]) decodeValue(raw []byte) (V, error) {
	var zero V
	payload, err := wire.DecodeValue(raw)
	if err != nil {
		return zero, err
	}
	v, err := p.vals.Decode(payload)
	if err != nil {
		return zero, fmt.Errorf("bigcache backend: decode value: %w: %w", wire.ErrCorrupt, err)
	}
	return v, nil
}

// load reads and decodes k. Undecodable entries are left in place; callers
// holding k's lock decide whether to drop them.
func (p *Cache[K, V]) load(k string) (V, bool, error) {
	var zero V
	raw, err := p.c.Get(k)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	v, err := p.decodeValue(raw)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func (p *Cache[K, V]) Get(key K) (V, bool, error) {
	var zero V
	k, err := p.encodeKey(key)
	if err != nil {
		return zero, false, err
	}
	return p.load(k)
}

func (p *Cache[K, V]) Set(key K, value V) error {
	k, err := p.encodeKey(key)
	if err != nil {
		return err
	}
	raw, err := p.encodeValue(value)
	if err != nil {
		return err
	}
	mu := p.lockFor(k)
	mu.Lock()
	defer mu.Unlock()
	return p.c.Set(k, raw)
}

func (p *Cache[K, V]) SetIfAbsent(key K, value V) (V, bool, error) {
	var zero V
	k, err := p.encodeKey(key)
	if err != nil {
		return zero, false, err
	}
	raw, err := p.encodeValue(value)
	if err != nil {
		return zero, false, err
	}

	mu := p.lockFor(k)
	mu.Lock()
	defer mu.Unlock()

	existing, ok, err := p.load(k)
	if ok {
		return existing, true, nil
	}
	if err != nil && !errors.Is(err, wire.ErrCorrupt) {
		return zero, false, err
	}
	// a corrupt entry counts as absent; Set overwrites it
	if err := p.c.Set(k, raw); err != nil {
		return zero, false, err
	}
	return value, false, nil
}

func (p *Cache[K, V]) Del(key K) (V, bool, error) {
	var zero V
	k, err := p.encodeKey(key)
	if err != nil {
		return zero, false, err
	}

	mu := p.lockFor(k)
	mu.Lock()
	defer mu.Unlock()

	v, ok, err := p.load(k)
	if err != nil && !errors.Is(err, wire.ErrCorrupt) {
		return zero, false, err
	}
	if !ok && err == nil {
		return zero, false, nil
	}
	if err := p.c.Delete(k); err != nil && !errors.Is(err, bc.ErrEntryNotFound) {
		return zero, false, err
	}
	if !ok {
		// dropped an unreadable entry
		return zero, false, nil
	}
	return v, true, nil
}

// Range walks bigcache's iterator, which copies one shard at a time.
// Entries removed mid-iteration are skipped. Undecodable entries are skipped
// and reported once iteration completes.
func (p *Cache[K, V]) Range(fn func(key K, value V) bool) error {
	var skipped int
	it := p.c.Iterator()
	for it.SetNext() {
		e, err := it.Value()
		if err != nil {
			// entry vanished under us (concurrent delete/overwrite)
			continue
		}
		key, err := p.keys.Decode([]byte(e.Key()))
		if err != nil {
			skipped++
			continue
		}
		v, err := p.decodeValue(e.Value())
		if err != nil {
			skipped++
			continue
		}
		if !fn(key, v) {
			break
		}
	}
	if skipped > 0 {
		return fmt.Errorf("bigcache backend: skipped %d undecodable entries: %w", skipped, wire.ErrCorrupt)
	}
	return nil
}

func (p *Cache[K, V]) Len() int { return p.c.Len() }

func (p *Cache[K, V]) Clear() error { return p.c.Reset() }

func (p *Cache[K, V]) Close() error { return p.c.Close() }

// Stats exposes bigcache hit/miss/collision counters. Not part of backend.Backend.
func (p *Cache[K, V]) Stats() bc.Stats { return p.c.Stats() }
