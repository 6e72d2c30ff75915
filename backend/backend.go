// Package backend defines the storage primitive used by concache.
//
// A Backend is a plain thread-safe map: single-key Get/Set/Del, put-if-absent,
// iteration and bulk clear. It provides no other compound atomicity. The cache
// layers its own per-key striping on top, so every compound operation
// (compute-if-absent, compare-and-swap, compare-and-delete) is linearizable no
// matter which backend is plugged in.
//
// Important: the cache assumes it is the only writer. External code MUST NOT
// mutate a backend instance that is owned by a cache; doing so bypasses the
// striping and voids the atomicity guarantees.
package backend

// Config is the storage shape derived from validated cache options.
type Config struct {
	InitialCapacity int     // expected number of entries; sizing hint only
	LoadFactor      float64 // target fill ratio, 0 < lf <= 1
	Shards          int     // power of two; matches the cache's lock striping
}

// Backend is a minimal thread-safe key/value store.
// Implementations must be safe for concurrent use.
type Backend[K comparable, V any] interface {
	// Get returns (value, true, nil) on hit; (zero, false, nil) on miss.
	// A non-nil error means the stored entry could not be read back (e.g. a
	// decode failure). Get must leave such entries in place; the cache drops
	// them with Del while holding the key's stripe lock.
	Get(key K) (V, bool, error)

	// Set stores value under key, overwriting any previous value.
	Set(key K, value V) error

	// SetIfAbsent stores value only when key has no mapping.
	// Returns the value now stored and whether it was already there.
	SetIfAbsent(key K, value V) (actual V, loaded bool, err error)

	// Del removes key and returns the removed value, if any.
	// An unreadable entry is removed and reported as absent.
	Del(key K) (V, bool, error)

	// Range calls fn for entries of a weakly consistent view.
	// Entries present for the whole call are visited at most once; concurrent
	// writes may or may not be observed. fn returning false stops iteration.
	// Range must never fail because of concurrent modification.
	Range(fn func(key K, value V) bool) error

	// Len returns the number of entries.
	Len() int

	// Clear removes all entries. Not atomic with respect to concurrent writers.
	Clear() error

	// Close releases resources.
	Close() error
}

// Factory builds a fresh backend for the given shape.
// The cache calls it once in New and once per Clone.
type Factory[K comparable, V any] func(cfg Config) (Backend[K, V], error)
