// Package backendtest is a reusable conformance suite for backend.Backend
// implementations. Call Run from a _test.go file of the implementing package.
package backendtest

import (
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/unkn0wn-root/concache/backend"
)

// DefaultConfig is a small shape that still spreads keys over several shards.
var DefaultConfig = backend.Config{InitialCapacity: 16, LoadFactor: 0.75, Shards: 8}

// Run exercises the backend contract on string keys and int values.
func Run(t *testing.T, newBackend backend.Factory[string, int]) {
	t.Helper()

	open := func(t *testing.T) backend.Backend[string, int] {
		t.Helper()
		b, err := newBackend(DefaultConfig)
		if err != nil {
			t.Fatalf("factory: %v", err)
		}
		t.Cleanup(func() { _ = b.Close() })
		return b
	}

	t.Run("GetSetDel", func(t *testing.T) {
		b := open(t)
		if _, ok, err := b.Get("a"); err != nil || ok {
			t.Fatalf("Get on empty: ok=%v err=%v", ok, err)
		}
		if err := b.Set("a", 1); err != nil {
			t.Fatalf("Set: %v", err)
		}
		if v, ok, err := b.Get("a"); err != nil || !ok || v != 1 {
			t.Fatalf("Get after Set: v=%d ok=%v err=%v", v, ok, err)
		}
		if err := b.Set("a", 2); err != nil {
			t.Fatalf("overwrite: %v", err)
		}
		if v, _, _ := b.Get("a"); v != 2 {
			t.Fatalf("overwrite not visible: %d", v)
		}
		if v, ok, err := b.Del("a"); err != nil || !ok || v != 2 {
			t.Fatalf("Del: v=%d ok=%v err=%v", v, ok, err)
		}
		if _, ok, err := b.Del("a"); err != nil || ok {
			t.Fatalf("Del missing: ok=%v err=%v", ok, err)
		}
	})

	t.Run("SetIfAbsent", func(t *testing.T) {
		b := open(t)
		if v, loaded, err := b.SetIfAbsent("k", 1); err != nil || loaded || v != 1 {
			t.Fatalf("first SetIfAbsent: v=%d loaded=%v err=%v", v, loaded, err)
		}
		if v, loaded, err := b.SetIfAbsent("k", 2); err != nil || !loaded || v != 1 {
			t.Fatalf("second SetIfAbsent: v=%d loaded=%v err=%v", v, loaded, err)
		}
	})

	t.Run("LenRangeClear", func(t *testing.T) {
		b := open(t)
		want := make([]string, 0, 100)
		for i := 0; i < 100; i++ {
			k := fmt.Sprintf("k%03d", i)
			want = append(want, k)
			if err := b.Set(k, i); err != nil {
				t.Fatalf("Set: %v", err)
			}
		}
		if n := b.Len(); n != 100 {
			t.Fatalf("Len=%d want 100", n)
		}

		var got []string
		if err := b.Range(func(k string, _ int) bool {
			got = append(got, k)
			return true
		}); err != nil {
			t.Fatalf("Range: %v", err)
		}
		sort.Strings(got)
		if len(got) != len(want) {
			t.Fatalf("Range visited %d entries, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("Range key %d: got %q want %q", i, got[i], want[i])
			}
		}

		visited := 0
		_ = b.Range(func(string, int) bool {
			visited++
			return visited < 3
		})
		if visited != 3 {
			t.Fatalf("early stop: visited %d, want 3", visited)
		}

		for i := 0; i < 2; i++ {
			if err := b.Clear(); err != nil {
				t.Fatalf("Clear: %v", err)
			}
			if n := b.Len(); n != 0 {
				t.Fatalf("Len after Clear=%d", n)
			}
		}
	})

	t.Run("RangeWhileMutating", func(t *testing.T) {
		b := open(t)
		for i := 0; i < 64; i++ {
			_ = b.Set(fmt.Sprint(i), i)
		}
		// deleting and inserting from inside the callback must not deadlock or fail
		err := b.Range(func(k string, v int) bool {
			_, _, _ = b.Del(k)
			_ = b.Set("new-"+k, v)
			return true
		})
		if err != nil {
			t.Fatalf("Range: %v", err)
		}
	})

	t.Run("ConcurrentSetIfAbsent", func(t *testing.T) {
		b := open(t)
		const workers = 32
		var wg sync.WaitGroup
		results := make([]int, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				v, _, err := b.SetIfAbsent("race", i)
				if err != nil {
					t.Errorf("SetIfAbsent: %v", err)
				}
				results[i] = v
			}(i)
		}
		wg.Wait()
		for i := 1; i < workers; i++ {
			if results[i] != results[0] {
				t.Fatalf("winners differ: %d vs %d", results[i], results[0])
			}
		}
	})
}
