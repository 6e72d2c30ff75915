// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    SelfHealEvery: 10, // sample logs: ~every 10th self-heal
//	    WaitEvery:     100,
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := concache.New[string, *User](concache.Options[string, *User]{
//	    Hooks: hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/concache"
)

// Hooks moves hook calls off the cache's hot path onto worker goroutines.
// Events are dropped when the queue is full. ComputePanicked is the only
// event delivered synchronously.
type Hooks struct {
	inner   concache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards closed against sends on a closed queue
	closed  bool
	dropped atomic.Uint64
}

var _ concache.Hooks = (*Hooks)(nil)

func New(inner concache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Later events are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) ComputeWait(k any)            { h.try(func() { h.inner.ComputeWait(k) }) }
func (h *Hooks) ComputeDone(k any, err error) { h.try(func() { h.inner.ComputeDone(k, err) }) }
func (h *Hooks) BackendError(op string, err error) {
	h.try(func() { h.inner.BackendError(op, err) })
}
func (h *Hooks) SelfHeal(k any) { h.try(func() { h.inner.SelfHeal(k) }) }
func (h *Hooks) Cleared(n int)  { h.try(func() { h.inner.Cleared(n) }) }

// ComputePanicked runs inline: the panic is re-raised right after and may
// take the process down before a worker gets to it.
func (h *Hooks) ComputePanicked(k any, r any) { h.inner.ComputePanicked(k, r) }
