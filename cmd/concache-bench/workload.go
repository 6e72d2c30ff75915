package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/concache"
	"github.com/unkn0wn-root/concache/backend"
	"github.com/unkn0wn-root/concache/backend/bigcache"
	"github.com/unkn0wn-root/concache/backend/locked"
	"github.com/unkn0wn-root/concache/backend/memory"
	"github.com/unkn0wn-root/concache/codec"
	"github.com/unkn0wn-root/concache/hooks/prom"
	"github.com/unkn0wn-root/concache/internal/benchconf"
	concachezap "github.com/unkn0wn-root/concache/log/zap"
)

const metricsNamespace = "bench"

type Result struct {
	Backend  string
	Ops      int
	Elapsed  time.Duration
	Hits     int
	Misses   int
	Counters map[string]float64 // gathered from the registry, by metric name
}

func (r Result) OpsPerSec() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Ops) / r.Elapsed.Seconds()
}

func (r Result) Print(w io.Writer) {
	fmt.Fprintf(w, "backend=%s ops=%d elapsed=%s ops/s=%.0f hits=%d misses=%d\n",
		r.Backend, r.Ops, r.Elapsed.Round(time.Millisecond), r.OpsPerSec(), r.Hits, r.Misses)

	names := make([]string, 0, len(r.Counters))
	for n := range r.Counters {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(w, "  %s %g\n", n, r.Counters[n])
	}
}

func newBackend(name string) (backend.Factory[int64, int64], error) {
	switch name {
	case "memory":
		return memory.Factory[int64, int64](), nil
	case "locked":
		return locked.Factory[int64, int64](), nil
	case "bigcache":
		return bigcache.Factory(bigcache.Options[int64, int64]{
			Keys:   codec.Int64{},
			Values: codec.Msgpack[int64]{},
		}), nil
	}
	return nil, fmt.Errorf("unknown backend %q", name)
}

// Run pre-populates cfg.Keys entries and then spreads cfg.Ops operations over
// cfg.Workers goroutines. Reads hit the populated range; writes alternate
// between Put, ReplacePair and ComputeIfAbsent over twice that range so
// computes see both hits and misses.
func Run(ctx context.Context, cfg benchconf.Config, log *zap.Logger) (Result, error) {
	factory, err := newBackend(cfg.Backend)
	if err != nil {
		return Result{}, err
	}

	reg := prometheus.NewRegistry()
	hooks, err := prom.New(reg, metricsNamespace)
	if err != nil {
		return Result{}, err
	}

	c, err := concache.New[int64, int64](concache.Options[int64, int64]{
		InitialCapacity:  cfg.Cache.InitialCapacity,
		LoadFactor:       cfg.Cache.LoadFactor,
		ConcurrencyLevel: cfg.Cache.ConcurrencyLevel,
		Backend:          factory,
		Logger:           concachezap.New(log),
		Hooks:            hooks,
	})
	if err != nil {
		return Result{}, err
	}
	defer c.Close()
	reg.MustRegister(prom.SizeGauge(metricsNamespace, c.Size))

	for i := 0; i < cfg.Keys; i++ {
		if _, _, err := c.Put(int64(i), int64(i)); err != nil {
			return Result{}, fmt.Errorf("populate: %w", err)
		}
	}
	log.Info("populated", zap.String("backend", cfg.Backend), zap.Int("keys", cfg.Keys), zap.Any("config", c.Config()))

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		hits, misses int
		firstErr     error
	)
	perWorker, rem := cfg.Ops/cfg.Workers, cfg.Ops%cfg.Workers
	start := time.Now()
	for w := 0; w < cfg.Workers; w++ {
		n := perWorker
		if w < rem {
			n++
		}
		wg.Add(1)
		go func(w, n int) {
			defer wg.Done()
			h, m, err := work(ctx, c, cfg, uint64(w), n)
			mu.Lock()
			hits += h
			misses += m
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
		}(w, n)
	}
	wg.Wait()
	elapsed := time.Since(start)
	if firstErr != nil {
		return Result{}, firstErr
	}

	counters, err := gather(reg)
	if err != nil {
		return Result{}, err
	}
	res := Result{
		Backend:  cfg.Backend,
		Ops:      cfg.Ops,
		Elapsed:  elapsed,
		Hits:     hits,
		Misses:   misses,
		Counters: counters,
	}
	log.Info("run complete",
		zap.String("backend", res.Backend),
		zap.Int("ops", res.Ops),
		zap.Duration("elapsed", res.Elapsed),
		zap.Float64("ops_per_sec", res.OpsPerSec()))
	return res, nil
}

func work(ctx context.Context, c concache.Cache[int64, int64], cfg benchconf.Config, seed uint64, n int) (hits, misses int, err error) {
	rng := rand.New(rand.NewPCG(seed, 0x9e3779b97f4a7c15))
	keys := int64(cfg.Keys)
	for i := 0; i < n; i++ {
		if i%1024 == 0 && ctx.Err() != nil {
			return hits, misses, ctx.Err()
		}
		if rng.Float64() < cfg.ReadRatio {
			if _, ok := c.Get(rng.Int64N(keys)); ok {
				hits++
			} else {
				misses++
			}
			continue
		}

		k := rng.Int64N(2 * keys)
		switch i % 3 {
		case 0:
			_, _, err = c.Put(k, k)
		case 1:
			cur, ok := c.Get(k)
			if ok {
				_, err = c.ReplacePair(k, cur, cur+1)
			}
		default:
			_, err = c.ComputeIfAbsent(ctx, k, func() (int64, error) { return k, nil })
		}
		if err != nil {
			return hits, misses, err
		}
	}
	return hits, misses, nil
}

// gather flattens counter and gauge samples; labelled series get the label
// values appended to the name.
func gather(reg prometheus.Gatherer) (map[string]float64, error) {
	mfs, err := reg.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}
	out := make(map[string]float64)
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			if lps := m.GetLabel(); len(lps) > 0 {
				vals := make([]string, 0, len(lps))
				for _, lp := range lps {
					vals = append(vals, lp.GetName()+"="+lp.GetValue())
				}
				name += "{" + strings.Join(vals, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				out[name] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[name] = m.GetGauge().GetValue()
			}
		}
	}
	return out, nil
}
