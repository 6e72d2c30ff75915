package benchconf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bench.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultsOnly(t *testing.T) {
	cfg := Default()
	if err := NewLoader(WithEnvPrefix("CONCACHE_TEST_NONE_")).Load(&cfg, nil); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("defaults changed (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestPrecedence(t *testing.T) {
	path := writeFile(t, `
backend: locked
keys: 500
workers: 2
cache:
  load_factor: 0.5
  concurrency_level: 4
`)
	t.Setenv("CONCACHE_WORKERS", "6")
	t.Setenv("CONCACHE_CACHE__CONCURRENCY_LEVEL", "32")

	cfg := Default()
	err := NewLoader(WithConfigFile(path)).Load(&cfg, map[string]any{
		"keys":                   100,
		"cache.initial_capacity": 64,
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := Default()
	want.Backend = "locked" // file
	want.Keys = 100         // flag over file
	want.Workers = 6        // env over file
	want.Cache = CacheConfig{
		InitialCapacity:  64,  // flag
		LoadFactor:       0.5, // file
		ConcurrencyLevel: 32,  // env over file
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("merged config (-want +got):\n%s", diff)
	}
}

func TestMissingFile(t *testing.T) {
	cfg := Default()
	if err := NewLoader(WithConfigFile("/nonexistent/bench.yaml")).Load(&cfg, nil); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*Config)
		ok   bool
	}{
		{"default", func(*Config) {}, true},
		{"bigcache", func(c *Config) { c.Backend = "bigcache" }, true},
		{"unknown backend", func(c *Config) { c.Backend = "redis" }, false},
		{"no keys", func(c *Config) { c.Keys = 0 }, false},
		{"no ops", func(c *Config) { c.Ops = -1 }, false},
		{"no workers", func(c *Config) { c.Workers = 0 }, false},
		{"read ratio high", func(c *Config) { c.ReadRatio = 1.5 }, false},
		{"read ratio zero", func(c *Config) { c.ReadRatio = 0 }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mod(&cfg)
			if err := cfg.Validate(); (err == nil) != tc.ok {
				t.Fatalf("Validate()=%v, want ok=%v", err, tc.ok)
			}
		})
	}
}
