package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strconv"

	"github.com/pkg/profile"

	"github.com/example/brcstats/internal/config"
	"github.com/example/brcstats/internal/gen"
	"github.com/example/brcstats/internal/scan"
	"github.com/example/brcstats/internal/stations"
)

var (
	configPath = flag.String("config", "", "YAML config file")
	generate   = flag.Bool("generate", false, "generate a data file instead of scanning one")
	stationsF  = flag.String("stations", "", "station list used by -generate")
	workers    = flag.Int("workers", 0, "number of scanners or producers")
	strict     = flag.Bool("strict", false, "fail on the first malformed line")
	seed       = flag.Uint64("seed", 0, "generator seed, 0 for random")
	logLevel   = flag.String("log-level", "", "debug, info, warn or error")
	profileDir = flag.String("cpuprofile", "", "write a cpu profile into this directory")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <measurements-file>\n       %s -generate [flags] [rows]\n", os.Args[0], os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if cfg.ProfileDir != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(cfg.ProfileDir), profile.NoShutdownHook).Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *generate {
		return runGenerate(ctx, cfg, logger)
	}
	return runScan(ctx, cfg, logger)
}

// resolveConfig layers explicitly set flags and positional arguments on top
// of config.Load.
func resolveConfig() (config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return cfg, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "stations":
			cfg.Stations = *stationsF
		case "workers":
			cfg.Workers = *workers
		case "strict":
			cfg.Strict = *strict
		case "seed":
			cfg.Seed = *seed
		case "log-level":
			cfg.LogLevel = *logLevel
		case "cpuprofile":
			cfg.ProfileDir = *profileDir
		}
	})

	args := flag.Args()
	switch {
	case len(args) > 1:
		flag.Usage()
		return cfg, fmt.Errorf("too many arguments")
	case len(args) == 1 && *generate:
		rows, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("row count %q: %w", args[0], err)
		}
		cfg.Rows = rows
	case len(args) == 1:
		cfg.Input = args[0]
	}
	return cfg, cfg.Validate()
}

func runGenerate(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	names, err := stations.Load(cfg.Stations)
	if err != nil {
		return err
	}
	logger.Info("loaded stations", "count", len(names), "rows", cfg.Rows, "output", cfg.Input)

	_, err = gen.Generate(ctx, cfg.Input, names, cfg.Rows, gen.Options{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxKeyLen:  cfg.MaxKeyLen,
		Seed:       cfg.Seed,
		Logger:     logger,
	})
	return err
}

func runScan(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	res, err := scan.Process(ctx, cfg.Input, scan.Options{
		Parallelism:  cfg.Workers,
		MaxKeyLen:    cfg.MaxKeyLen,
		Strict:       cfg.Strict,
		ReduceShards: cfg.ReduceShards,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	out := bufio.NewWriter(os.Stdout)
	printResults(out, res)
	return out.Flush()
}

func printResults(w io.Writer, res *scan.Result) {
	fmt.Fprint(w, "{")
	for i, name := range res.Names() {
		if i > 0 {
			fmt.Fprint(w, ", ")
		}
		s := res.Stations[name]
		fmt.Fprintf(w, "%s=%.1f/%.1f/%.1f", name, round(s.MinValue()), round(s.Mean()), round(s.MaxValue()))
	}
	fmt.Fprint(w, "}\n")
}

func round(x float64) float64 {
	return math.Round(x*10) / 10
}
