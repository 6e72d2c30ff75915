package concache

import (
	"github.com/unkn0wn-root/concache/backend"
	"github.com/unkn0wn-root/concache/internal/util"
)

// maxStripes caps lock striping; more stripes than this buys nothing.
const maxStripes = 1 << 16

// Config is the validated, immutable shape of a cache.
type Config struct {
	InitialCapacity  int
	LoadFactor       float64
	ConcurrencyLevel int
	Stripes          int // ConcurrencyLevel rounded up to a power of two
}

func newConfig(initialCapacity int, loadFactor float64, concurrencyLevel int) (Config, error) {
	if initialCapacity < 0 {
		return Config{}, &ConfigError{Field: "InitialCapacity", Value: initialCapacity, Reason: "must be >= 0"}
	}
	if loadFactor < 0 || loadFactor > 1 || loadFactor != loadFactor {
		return Config{}, &ConfigError{Field: "LoadFactor", Value: loadFactor, Reason: "must be in (0, 1]"}
	}
	if concurrencyLevel < 0 {
		return Config{}, &ConfigError{Field: "ConcurrencyLevel", Value: concurrencyLevel, Reason: "must be >= 1"}
	}

	cfg := Config{
		InitialCapacity:  coalesce(initialCapacity, DefaultInitialCapacity),
		LoadFactor:       coalesce(loadFactor, DefaultLoadFactor),
		ConcurrencyLevel: coalesce(concurrencyLevel, DefaultConcurrencyLevel),
	}
	cfg.Stripes = min(util.NextPowerOfTwo(cfg.ConcurrencyLevel), maxStripes)
	return cfg, nil
}

func (c Config) backendConfig() backend.Config {
	// at least one slot per writer
	capacity := max(c.InitialCapacity, c.ConcurrencyLevel)
	return backend.Config{
		InitialCapacity: capacity,
		LoadFactor:      c.LoadFactor,
		Shards:          c.Stripes,
	}
}
