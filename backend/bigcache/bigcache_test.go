package bigcache

import (
	"errors"
	"testing"

	"github.com/unkn0wn-root/concache/backend"
	"github.com/unkn0wn-root/concache/backend/backendtest"
	"github.com/unkn0wn-root/concache/codec"
	"github.com/unkn0wn-root/concache/internal/wire"
)

type account struct {
	ID      string `msgpack:"id"`
	Balance int64  `msgpack:"balance"`
}

func TestContract(t *testing.T) {
	backendtest.Run(t, Factory[string, int](Options[string, int]{
		Keys:   codec.String{},
		Values: codec.JSON[int]{},
	}))
}

func newAccounts(t *testing.T) *Cache[int64, account] {
	t.Helper()
	c, err := New[int64, account](backendtest.DefaultConfig, Options[int64, account]{
		Keys:   codec.Int64{},
		Values: codec.Msgpack[account]{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRequiresCodecs(t *testing.T) {
	_, err := New[string, int](backend.Config{Shards: 4}, Options[string, int]{Keys: codec.String{}})
	if !errors.Is(err, ErrNoCodec) {
		t.Fatalf("expected ErrNoCodec, got %v", err)
	}
}

func TestTypedRoundTrip(t *testing.T) {
	c := newAccounts(t)
	want := account{ID: "acc-7", Balance: 1200}
	if err := c.Set(7, want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := c.Get(7)
	if err != nil || !ok || got != want {
		t.Fatalf("Get: got=%+v ok=%v err=%v", got, ok, err)
	}

	var keys []int64
	_ = c.Range(func(k int64, _ account) bool {
		keys = append(keys, k)
		return true
	})
	if len(keys) != 1 || keys[0] != 7 {
		t.Fatalf("Range keys=%v", keys)
	}
}

func TestCorruptEntryDroppedByDel(t *testing.T) {
	c := newAccounts(t)

	// write foreign bytes straight into bigcache under an encoded key
	if err := c.c.Set("9", []byte("not-wire-format")); err != nil {
		t.Fatalf("inject: %v", err)
	}

	_, ok, err := c.Get(9)
	if ok || !errors.Is(err, wire.ErrCorrupt) {
		t.Fatalf("Get on corrupt: ok=%v err=%v", ok, err)
	}
	// Get never deletes: a concurrent rewrite could otherwise be lost
	if _, _, err := c.Get(9); !errors.Is(err, wire.ErrCorrupt) {
		t.Fatalf("second Get: err=%v, want entry still reported corrupt", err)
	}
	if c.Len() != 1 {
		t.Fatalf("Get removed the corrupt entry: len=%d", c.Len())
	}

	// Del drops it and reports absence
	if _, ok, err := c.Del(9); ok || err != nil {
		t.Fatalf("Del on corrupt: ok=%v err=%v", ok, err)
	}
	if _, ok, err := c.Get(9); ok || err != nil {
		t.Fatalf("Get after Del: ok=%v err=%v", ok, err)
	}

	// SetIfAbsent over a corrupt slot inserts
	_ = c.c.Set("10", []byte("junk"))
	v, loaded, err := c.SetIfAbsent(10, account{ID: "x"})
	if err != nil || loaded || v.ID != "x" {
		t.Fatalf("SetIfAbsent over corrupt: v=%+v loaded=%v err=%v", v, loaded, err)
	}
}

func TestRangeReportsUndecodable(t *testing.T) {
	c := newAccounts(t)
	_ = c.Set(1, account{ID: "ok"})
	_ = c.c.Set("2", []byte("junk"))

	seen := 0
	err := c.Range(func(int64, account) bool {
		seen++
		return true
	})
	if seen != 1 {
		t.Fatalf("visited %d entries, want 1", seen)
	}
	if !errors.Is(err, wire.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}
