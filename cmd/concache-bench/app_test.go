package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/concache/internal/benchconf"
)

func TestApp(t *testing.T) {
	app := App()
	if app.Name != "concache-bench" {
		t.Errorf("Name = %q", app.Name)
	}
	var run bool
	for _, cmd := range app.Commands {
		run = run || cmd.Name == "run"
	}
	if !run {
		t.Fatalf("missing run command")
	}

	flags := map[string]bool{}
	for _, f := range RunCommand().Flags {
		flags[f.Names()[0]] = true
	}
	for name := range flagKeys {
		if !flags[name] {
			t.Errorf("flag %q mapped to config but not declared", name)
		}
	}
}

func TestRunAllBackends(t *testing.T) {
	for _, b := range benchconf.Backends {
		t.Run(b, func(t *testing.T) {
			cfg := benchconf.Default()
			cfg.Backend = b
			cfg.Keys = 200
			cfg.Ops = 5_000
			cfg.Workers = 4
			cfg.ReadRatio = 0.5

			res, err := Run(context.Background(), cfg, zap.NewNop())
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if res.Ops != cfg.Ops || res.Hits+res.Misses == 0 {
				t.Fatalf("result=%+v", res)
			}
			if res.Counters["bench_concache_entries"] < float64(cfg.Keys) {
				t.Fatalf("entries gauge=%v want >= %d", res.Counters["bench_concache_entries"], cfg.Keys)
			}
			if _, ok := res.Counters["bench_concache_computes_total"]; !ok {
				t.Fatalf("computes counter missing: %v", res.Counters)
			}
		})
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := benchconf.Default()
	cfg.Keys, cfg.Ops, cfg.Workers = 10, 100, 2
	if _, err := Run(ctx, cfg, zap.NewNop()); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestRunCommandEndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	if err := os.WriteFile(path, []byte("backend: locked\nkeys: 50\nworkers: 2\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var out bytes.Buffer
	app := App()
	app.Writer = &out
	err := app.Run([]string{"concache-bench", "run", "--config", path, "--ops", "1000", "--read-ratio", "0.7"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "backend=locked ops=1000") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestRunCommandRejectsBadConfig(t *testing.T) {
	app := App()
	app.Writer = &bytes.Buffer{}
	app.ErrWriter = &bytes.Buffer{}
	err := app.Run([]string{"concache-bench", "run", "--backend", "redis"})
	if err == nil || !strings.Contains(err.Error(), "redis") {
		t.Fatalf("err=%v want invalid backend", err)
	}
}
