package sloghooks

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newJSON(t *testing.T) (*slog.Logger, func() []map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return l, func() []map[string]any {
		var out []map[string]any
		for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
			if line == "" {
				continue
			}
			var rec map[string]any
			if err := json.Unmarshal([]byte(line), &rec); err != nil {
				t.Fatalf("decode %q: %v", line, err)
			}
			out = append(out, rec)
		}
		return out
	}
}

func TestRedactsKeys(t *testing.T) {
	l, records := newJSON(t)
	h := New(l, Options{})

	h.SelfHeal("user:42")
	recs := records()
	if len(recs) != 1 {
		t.Fatalf("got %d records", len(recs))
	}
	key, _ := recs[0]["key"].(string)
	if key == "" || strings.Contains(key, "user") || len(key) != 16 {
		t.Fatalf("key not redacted: %q", key)
	}

	l2, records2 := newJSON(t)
	New(l2, Options{Redact: func(s string) string { return "R(" + s + ")" }}).SelfHeal(42)
	if got := records2()[0]["key"]; got != "R(42)" {
		t.Fatalf("custom redactor: key=%v", got)
	}
}

func TestSampling(t *testing.T) {
	l, records := newJSON(t)
	h := New(l, Options{SelfHealEvery: 5})
	for i := 0; i < 20; i++ {
		h.SelfHeal(i)
	}
	if n := len(records()); n != 4 {
		t.Fatalf("logged %d self-heals, want 4", n)
	}
}

func TestComputeDoneLogsFailuresOnly(t *testing.T) {
	l, records := newJSON(t)
	h := New(l, Options{})
	h.ComputeDone("k", nil)
	h.ComputeDone("k", errors.New("db down"))

	recs := records()
	if len(recs) != 1 || recs[0]["msg"] != "concache.compute_failed" || recs[0]["err"] != "db down" {
		t.Fatalf("records=%v", recs)
	}
}

func TestNilLogger(t *testing.T) {
	h := New(nil, Options{})
	h.ComputeWait("k")
	h.ComputeDone("k", errors.New("x"))
	h.ComputePanicked("k", "boom")
	h.BackendError("get", errors.New("x"))
	h.SelfHeal("k")
	h.Cleared(1)
}
