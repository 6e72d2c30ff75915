package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/concache/internal/benchconf"
)

var Version = "dev"

func App() *cli.App {
	return &cli.App{
		Name:    "concache-bench",
		Usage:   "Concurrent workload driver for concache",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"V"},
				Usage:   "Enable development logging",
			},
		},
		Commands: []*cli.Command{RunCommand()},
	}
}

func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run a mixed get/put/compute workload",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file"},
			&cli.StringFlag{Name: "backend", Usage: "memory, locked or bigcache"},
			&cli.IntFlag{Name: "keys", Usage: "Distinct keys pre-populated before the run"},
			&cli.IntFlag{Name: "ops", Usage: "Total operations across all workers"},
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "Concurrent goroutines"},
			&cli.IntFlag{Name: "concurrency-level", Usage: "Cache lock stripes (rounded up to a power of two)"},
			&cli.IntFlag{Name: "initial-capacity", Usage: "Cache sizing hint"},
			&cli.Float64Flag{Name: "load-factor", Usage: "Cache table load factor, (0, 1]"},
			&cli.Float64Flag{Name: "read-ratio", Usage: "Share of operations that are reads, [0, 1]"},
		},
		Action: runAction,
	}
}

// flagKeys maps flags to config keys.
var flagKeys = map[string]string{
	"backend":           "backend",
	"keys":              "keys",
	"ops":               "ops",
	"workers":           "workers",
	"read-ratio":        "read_ratio",
	"concurrency-level": "cache.concurrency_level",
	"initial-capacity":  "cache.initial_capacity",
	"load-factor":       "cache.load_factor",
}

func loadConfig(c *cli.Context) (benchconf.Config, error) {
	overrides := map[string]any{}
	for flag, key := range flagKeys {
		if c.IsSet(flag) {
			overrides[key] = c.Value(flag)
		}
	}

	cfg := benchconf.Default()
	l := benchconf.NewLoader(benchconf.WithConfigFile(c.String("config")))
	if err := l.Load(&cfg, overrides); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log, err := newLogger(c.Bool("verbose"))
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	res, err := Run(c.Context, cfg, log)
	if err != nil {
		return err
	}
	res.Print(c.App.Writer)
	return nil
}
