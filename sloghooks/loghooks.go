package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/concache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery uint64
	WaitEvery     uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr atomic.Uint64
	waitCtr     atomic.Uint64
}

var _ concache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k any) string {
	s := fmt.Sprint(k)
	if h.opts.Redact != nil {
		return h.opts.Redact(s)
	}
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) ComputeWait(key any) {
	if h.l == nil || !sample(h.opts.WaitEvery, &h.waitCtr) {
		return
	}
	h.l.Debug("concache.compute_wait",
		"key", h.redact(key))
}

func (h *Hooks) ComputeDone(key any, err error) {
	if h.l == nil || err == nil {
		return
	}
	h.l.Info("concache.compute_failed",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) ComputePanicked(key any, recovered any) {
	if h.l == nil {
		return
	}
	h.l.Error("concache.compute_panicked",
		"key", h.redact(key),
		"panic", fmt.Sprint(recovered))
}

func (h *Hooks) BackendError(op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("concache.backend_error",
		"op", op,
		"err", err)
}

func (h *Hooks) SelfHeal(key any) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("concache.self_heal",
		"key", h.redact(key))
}

func (h *Hooks) Cleared(removed int) {
	if h.l == nil {
		return
	}
	h.l.Info("concache.cleared",
		"removed", removed)
}
