package prom

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/unkn0wn-root/concache"
)

func TestCountersFromCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	h, err := New(reg, "test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c, err := concache.New[string, int](concache.Options[string, int]{Hooks: h})
	if err != nil {
		t.Fatalf("concache.New: %v", err)
	}
	defer c.Close()
	reg.MustRegister(SizeGauge("test", c.Size))

	ctx := context.Background()
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, _ = c.ComputeIfAbsent(ctx, "k", func() (int, error) { return 1, nil })
		}()
	}
	close(start)
	wg.Wait()
	_, _ = c.ComputeIfAbsent(ctx, "bad", func() (int, error) { return 0, errors.New("nope") })

	if got := testutil.ToFloat64(h.computes); got != 2 {
		t.Fatalf("computes=%v want 2", got)
	}
	if got := testutil.ToFloat64(h.computeErrs); got != 1 {
		t.Fatalf("compute errors=%v want 1", got)
	}
	if got := testutil.CollectAndCount(reg, "test_concache_entries"); got != 1 {
		t.Fatalf("size gauge series=%d", got)
	}

	_, _, _ = c.Put("a", 1)
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got := testutil.ToFloat64(h.cleared); got != 2 {
		t.Fatalf("cleared=%v want 2", got)
	}
}

func TestBackendErrorsByOp(t *testing.T) {
	h, err := New(nil, "test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.BackendError("get", errors.New("x"))
	h.BackendError("get", errors.New("x"))
	h.BackendError("set", errors.New("x"))

	if got := testutil.ToFloat64(h.backendErrs.WithLabelValues("get")); got != 2 {
		t.Fatalf("get errors=%v want 2", got)
	}
	if got := testutil.ToFloat64(h.backendErrs.WithLabelValues("set")); got != 1 {
		t.Fatalf("set errors=%v want 1", got)
	}
}

func TestDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg, "dup"); err != nil {
		t.Fatalf("first New: %v", err)
	}
	if _, err := New(reg, "dup"); err == nil {
		t.Fatalf("second New on the same registry should fail")
	}
}
