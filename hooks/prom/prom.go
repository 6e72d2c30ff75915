// Package prom exports cache hook events as Prometheus counters.
//
//	reg := prometheus.NewRegistry()
//	hooks, err := prom.New(reg, "myapp")
//	cache, _ := concache.New[string, int](concache.Options[string, int]{Hooks: hooks})
//	reg.MustRegister(prom.SizeGauge("myapp", cache.Size))
package prom

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/unkn0wn-root/concache"
)

const subsystem = "concache"

type Hooks struct {
	waits       prometheus.Counter
	computes    prometheus.Counter
	computeErrs prometheus.Counter
	panics      prometheus.Counter
	heals       prometheus.Counter
	cleared     prometheus.Counter
	backendErrs *prometheus.CounterVec
}

var _ concache.Hooks = (*Hooks)(nil)

// New creates the counters under namespace and registers them with reg.
// Registering the same namespace twice on one registry fails.
func New(reg prometheus.Registerer, namespace string) (*Hooks, error) {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		})
	}

	h := &Hooks{
		waits:       counter("compute_waits_total", "Callers that waited on another goroutine's producer"),
		computes:    counter("computes_total", "Producers run to completion"),
		computeErrs: counter("compute_errors_total", "Producers that returned an error or an unstorable value"),
		panics:      counter("compute_panics_total", "Producers that panicked"),
		heals:       counter("self_heals_total", "Unreadable entries dropped on read"),
		cleared:     counter("cleared_entries_total", "Entries removed by Clear"),
		backendErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "backend_errors_total",
			Help:      "Backend failures by operation",
		}, []string{"op"}),
	}

	if reg != nil {
		for _, c := range h.Collectors() {
			if err := reg.Register(c); err != nil {
				return nil, fmt.Errorf("concache/prom: register: %w", err)
			}
		}
	}
	return h, nil
}

// Collectors returns every metric owned by h.
func (h *Hooks) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		h.waits,
		h.computes,
		h.computeErrs,
		h.panics,
		h.heals,
		h.cleared,
		h.backendErrs,
	}
}

// SizeGauge reports size() at scrape time, typically a cache's Size method.
func SizeGauge(namespace string, size func() int) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "entries",
		Help:      "Number of entries in the cache",
	}, func() float64 { return float64(size()) })
}

func (h *Hooks) ComputeWait(any) { h.waits.Inc() }

func (h *Hooks) ComputeDone(_ any, err error) {
	h.computes.Inc()
	if err != nil {
		h.computeErrs.Inc()
	}
}

func (h *Hooks) ComputePanicked(any, any)        { h.panics.Inc() }
func (h *Hooks) BackendError(op string, _ error) { h.backendErrs.WithLabelValues(op).Inc() }
func (h *Hooks) SelfHeal(any)                    { h.heals.Inc() }
func (h *Hooks) Cleared(removed int)             { h.cleared.Add(float64(removed)) }
