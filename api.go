package concache

import (
	"context"

	"github.com/unkn0wn-root/concache/backend"
)

// Producer computes the value for a missing key. See Cache.ComputeIfAbsent.
type Producer[V any] func() (V, error)

// Cache is a thread-safe map with atomic compound operations.
// K is the key type; V is the caller's value type.
//
// A nil pointer, interface, map, channel or func is never a valid value: "no
// value" is reported through the ok/loaded results and storing one fails with
// ErrNilValue.
type Cache[K comparable, V any] interface {
	// Single-key reads (never wait on writers or on in-flight computes)
	Get(key K) (v V, ok bool)
	ContainsKey(key K) bool

	// Lookup is Get that consults Options.Default on a miss. ok reports
	// whether v came from the map or from Default; with no Default a miss
	// returns (zero, false, nil). Default's error is returned as is.
	Lookup(key K) (v V, ok bool, err error)

	// Unconditional writes
	Put(key K, value V) (prev V, loaded bool, err error)
	Delete(key K) (prev V, deleted bool, err error)

	// Conditional writes (atomic per key)
	PutIfAbsent(key K, value V) (actual V, loaded bool, err error)
	ComputeIfAbsent(ctx context.Context, key K, fn Producer[V]) (V, error)
	ReplaceIfPresent(key K, value V) (prev V, replaced bool, err error)
	ReplacePair(key K, oldValue, newValue V) (bool, error)
	DeletePair(key K, value V) (bool, error)

	// Fetch returns the stored value or stores the fallback's result.
	// Unlike ComputeIfAbsent the fallback may run on several racing callers;
	// only one result is kept and every caller gets that one.
	Fetch(key K, fallback func(K) (V, error)) (V, error)

	// Whole-map (weakly consistent, see EachPair)
	EachPair(fn func(key K, value V) bool) error
	Keys() []K
	Values() []V
	Size() int
	Empty() bool
	Clear() error

	// Clone returns a new, EMPTY cache with the same configuration.
	// Entries are never copied.
	Clone() (Cache[K, V], error)

	Config() Config
	Close() error
}

// Options tune the cache. Every field is optional; zero values take defaults.
//
// A zero InitialCapacity, LoadFactor or ConcurrencyLevel is read as "unset",
// not as a literal value: InitialCapacity 0 sizes for 16 entries, and
// LoadFactor 0 or ConcurrencyLevel 0 are accepted rather than rejected.
// Negative values, NaN and LoadFactor > 1 fail with *ConfigError.
type Options[K comparable, V any] struct {
	InitialCapacity  int     // >= 0; 0 => 16
	LoadFactor       float64 // (0, 1]; 0 => 0.75
	ConcurrencyLevel int     // >= 1; 0 => 16. Rounded up to a power of two for striping.

	// Default computes the result of Lookup for an absent key. It receives
	// the cache and may store a value (typically with PutIfAbsent) or just
	// return one. It runs without any cache lock held, once per missing
	// Lookup; use ComputeIfAbsent inside it for exactly-once production.
	Default func(c Cache[K, V], key K) (V, error)

	Backend backend.Factory[K, V] // nil => sharded in-memory map (backend/memory)
	Equal   func(a, b V) bool     // value equality for ReplacePair/DeletePair; nil => == or reflect.DeepEqual

	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks
}

func New[K comparable, V any](opts Options[K, V]) (Cache[K, V], error) {
	c, err := newCache[K, V](opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}
