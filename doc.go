// Package concache implements a thread-safe map with atomic compound
// operations: put-if-absent, compute-if-absent (the producer runs at most once
// per absent key, no matter how many goroutines ask), replace-if-present,
// compare-and-swap and compare-and-delete.
//
// Components:
//   - Cache[K, V]: the public map. Single-key reads never take the cache's
//     stripe locks (the backend may still guard its own storage); writes are
//     serialized per key by lock striping (ConcurrencyLevel stripes).
//   - Backend[K, V]: the storage under the stripes (backend/memory by default,
//     backend/locked, or backend/bigcache for an off-heap byte store).
//   - Codec[V]: (de)serializes V <-> []byte for byte-oriented backends.
//
// Absence:
//
//	A nil pointer, interface, map, channel or func is never stored.
//	Put(k, nil) fails with ErrNilValue; Get reports absence through ok.
//
// Compute-if-absent:
//
//	v, err := c.ComputeIfAbsent(ctx, "user:42", func() (*User, error) {
//		return db.LoadUser(42) // runs once for all concurrent callers
//	})
//
// The producer runs without any lock held. It may use the cache for other
// keys but must not touch its own key.
//
// Iteration (EachPair, Keys, Values) and Clear are weakly consistent; they
// never fail because of concurrent modification.
package concache
