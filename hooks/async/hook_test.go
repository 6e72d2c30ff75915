package asynchook

import (
	"sync"
	"testing"

	"github.com/unkn0wn-root/concache"
)

type countHooks struct {
	concache.NopHooks
	mu      sync.Mutex
	heals   int
	cleared int
	gate    chan struct{}
}

func (c *countHooks) SelfHeal(any) {
	if c.gate != nil {
		<-c.gate
	}
	c.mu.Lock()
	c.heals++
	c.mu.Unlock()
}

func (c *countHooks) Cleared(n int) {
	c.mu.Lock()
	c.cleared += n
	c.mu.Unlock()
}

func TestDeliversBeforeClose(t *testing.T) {
	inner := &countHooks{}
	h := New(inner, 2, 16)
	for i := 0; i < 10; i++ {
		h.SelfHeal(i)
	}
	h.Cleared(3)
	h.Close()

	if inner.heals != 10 || inner.cleared != 3 {
		t.Fatalf("heals=%d cleared=%d, want 10/3", inner.heals, inner.cleared)
	}
	if h.Dropped() != 0 {
		t.Fatalf("dropped=%d", h.Dropped())
	}
}

func TestDropsWhenFull(t *testing.T) {
	inner := &countHooks{gate: make(chan struct{})}
	h := New(inner, 1, 1)

	// the worker blocks on the first event, the second fills the queue
	for i := 0; i < 10; i++ {
		h.SelfHeal(i)
	}
	close(inner.gate)
	h.Close()

	if h.Dropped() == 0 {
		t.Fatalf("expected drops with a full queue")
	}
	if got := uint64(inner.heals) + h.Dropped(); got != 10 {
		t.Fatalf("delivered+dropped=%d want 10", got)
	}
}

func TestAfterClose(t *testing.T) {
	h := New(&countHooks{}, 1, 4)
	h.Close()
	h.Close()
	h.SelfHeal("k") // must not panic on the closed queue
	if h.Dropped() != 1 {
		t.Fatalf("dropped=%d want 1", h.Dropped())
	}
}
