// Package benchconf loads concache-bench settings from a YAML file, the
// environment and command-line overrides. Later sources win:
// defaults < file < env < flags.
package benchconf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the environment variable prefix.
// Nested keys use a double underscore: CONCACHE_CACHE__LOAD_FACTOR.
const DefaultEnvPrefix = "CONCACHE_"

var Backends = []string{"memory", "locked", "bigcache"}

type Config struct {
	Backend   string      `koanf:"backend"`
	Keys      int         `koanf:"keys"`
	Ops       int         `koanf:"ops"`
	Workers   int         `koanf:"workers"`
	ReadRatio float64     `koanf:"read_ratio"`
	Cache     CacheConfig `koanf:"cache"`
}

// CacheConfig mirrors concache.Options; zero values take the cache defaults.
type CacheConfig struct {
	InitialCapacity  int     `koanf:"initial_capacity"`
	LoadFactor       float64 `koanf:"load_factor"`
	ConcurrencyLevel int     `koanf:"concurrency_level"`
}

func Default() Config {
	return Config{
		Backend:   "memory",
		Keys:      10_000,
		Ops:       1_000_000,
		Workers:   8,
		ReadRatio: 0.9,
	}
}

func (c Config) Validate() error {
	var errs []error
	known := false
	for _, b := range Backends {
		known = known || c.Backend == b
	}
	if !known {
		errs = append(errs, fmt.Errorf("backend %q: want one of %s", c.Backend, strings.Join(Backends, ", ")))
	}
	if c.Keys <= 0 {
		errs = append(errs, fmt.Errorf("keys %d: must be > 0", c.Keys))
	}
	if c.Ops <= 0 {
		errs = append(errs, fmt.Errorf("ops %d: must be > 0", c.Ops))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers %d: must be > 0", c.Workers))
	}
	if c.ReadRatio < 0 || c.ReadRatio > 1 {
		errs = append(errs, fmt.Errorf("read_ratio %v: must be in [0, 1]", c.ReadRatio))
	}
	return errors.Join(errs...)
}

type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
}

type Option func(*Loader)

func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) { l.envPrefix = prefix }
}

func WithConfigFile(path string) Option {
	return func(l *Loader) { l.filePath = path }
}

func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fills target from the file, the environment and then overrides.
// Keys missing from every source keep target's current values, so callers
// pass a target pre-filled with Default().
// overrides uses dotted keys, e.g. "cache.load_factor".
func (l *Loader) Load(target *Config, overrides map[string]any) error {
	if err := l.LoadFile(l.filePath); err != nil {
		return err
	}
	if err := l.LoadEnv(); err != nil {
		return err
	}
	if err := l.LoadMap(overrides); err != nil {
		return err
	}
	if err := l.k.Unmarshal("", target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load file %s: %w", path, err)
	}
	return nil
}

// LoadEnv maps CONCACHE_READ_RATIO to read_ratio and
// CONCACHE_CACHE__LOAD_FACTOR to cache.load_factor.
func (l *Loader) LoadEnv() error {
	transform := func(s string) string {
		s = strings.TrimPrefix(s, l.envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	}
	if err := l.k.Load(env.Provider(l.envPrefix, ".", transform), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

func (l *Loader) LoadMap(flat map[string]any) error {
	if len(flat) == 0 {
		return nil
	}
	if err := l.k.Load(mapProvider(maps.Unflatten(flat, ".")), nil); err != nil {
		return fmt.Errorf("load map: %w", err)
	}
	return nil
}

// mapProvider feeds an in-memory map to koanf.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("benchconf: map provider has no byte form")
}

func (m mapProvider) Read() (map[string]any, error) { return m, nil }
