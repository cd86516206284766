// Package scan aggregates "<key>;<value>\n" files. The file is planned into
// line-aligned chunks, every chunk is memory-mapped and scanned by its own
// goroutine into a private table, and the tables are then reduced into one
// mapping.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"runtime"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/brcstats/internal/chunk"
	"github.com/example/brcstats/internal/stats"
)

type Options struct {
	// Parallelism is the number of chunks scanned concurrently.
	// Zero means runtime.GOMAXPROCS(0).
	Parallelism int
	// MaxKeyLen rejects longer keys. Zero means DefaultMaxKeyLen.
	MaxKeyLen int
	// Strict turns the first malformed line into an error instead of
	// skipping it.
	Strict bool
	// ReduceShards is the number of reduce partitions. Zero means
	// Parallelism.
	ReduceShards int
	Logger       *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Parallelism <= 0 {
		o.Parallelism = runtime.GOMAXPROCS(0)
	}
	if o.MaxKeyLen <= 0 {
		o.MaxKeyLen = DefaultMaxKeyLen
	}
	if o.ReduceShards <= 0 {
		o.ReduceShards = o.Parallelism
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Result is the outcome of one run.
type Result struct {
	Stations map[string]stats.Accumulator
	Rows     int64
	// Skipped counts malformed lines that were dropped.
	Skipped int64
	Bytes   int64
	Elapsed time.Duration
}

// Names returns the station names in byte order.
func (r *Result) Names() []string {
	return slices.Sorted(maps.Keys(r.Stations))
}

// Process aggregates the file at path.
func Process(ctx context.Context, path string, opts Options) (*Result, error) {
	src, err := openSource(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer src.Close()

	return run(ctx, src, opts)
}

// ProcessBytes aggregates an in-memory input with the same pipeline.
func ProcessBytes(ctx context.Context, data []byte, opts Options) (*Result, error) {
	return run(ctx, memSource{data: data}, opts)
}

func run(ctx context.Context, src source, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	log := opts.Logger
	start := time.Now()

	size := src.Size()
	ranges, err := chunk.Plan(src, size, opts.Parallelism)
	if err != nil {
		return nil, fmt.Errorf("plan chunks: %w", err)
	}

	scanners := make([]*Scanner, len(ranges))
	g, gctx := errgroup.WithContext(ctx)
	for i, rg := range ranges {
		scanners[i] = NewScanner(opts.MaxKeyLen, opts.Strict)
		g.Go(func() error {
			return scanRange(gctx, src, rg, scanners[i], log)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Bytes: size}
	tables := make([]*Table, len(scanners))
	for i, sc := range scanners {
		tables[i] = sc.Table()
		res.Rows += sc.Rows()
		res.Skipped += sc.Skipped()
	}

	res.Stations, err = Reduce(ctx, tables, opts.ReduceShards)
	if err != nil {
		return nil, fmt.Errorf("reduce: %w", err)
	}
	res.Elapsed = time.Since(start)

	log.Info("scan complete",
		"rows", res.Rows,
		"stations", len(res.Stations),
		"skipped", res.Skipped,
		"bytes", res.Bytes,
		"elapsed", res.Elapsed,
		"mb_per_s", throughput(res.Bytes, res.Elapsed))
	if res.Skipped > 0 {
		log.Warn("malformed lines skipped", "count", res.Skipped)
	}
	return res, nil
}

func scanRange(ctx context.Context, src source, rg chunk.Range, sc *Scanner, log *slog.Logger) error {
	vw, ok := src.(viewer)
	if !ok {
		if err := scanWindows(ctx, src, rg, scanWindow, sc); err != nil {
			return err
		}
		log.Debug("chunk scanned", "start", rg.Start, "end", rg.End, "rows", sc.Rows(), "keys", sc.Table().Len())
		return nil
	}

	v, err := vw.View(rg)
	if err != nil {
		return err
	}
	defer v.Close()

	if err := sc.Scan(ctx, v.Bytes(), rg.Start); err != nil {
		return err
	}
	log.Debug("chunk scanned",
		"start", rg.Start,
		"end", rg.End,
		"rows", sc.Rows(),
		"keys", sc.Table().Len())
	return v.Close()
}

func throughput(n int64, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / (1024 * 1024) / d.Seconds()
}
