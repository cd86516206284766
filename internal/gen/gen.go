// Package gen writes synthetic "<key>;<value>\n" files.
//
// Several producers fill private fixed-size buffers and hand each one, once
// full, to a single writer over a bounded channel. A full channel blocks the
// producers, so memory stays bounded whatever the row count. Rows come out as
// an unordered bag: only the byte order inside one buffer is kept.
package gen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultBufferSize = 4 << 20
	DefaultMaxKeyLen  = 100
)

var (
	ErrNoKeys         = errors.New("gen: no keys to generate from")
	ErrKeyTooLong     = errors.New("gen: key too long")
	ErrInvalidKey     = errors.New("gen: key is empty or contains a delimiter or terminator")
	ErrBufferTooSmall = errors.New("gen: buffer smaller than the longest line")
)

type Options struct {
	// Workers is the number of producers. Zero means GOMAXPROCS-1, at least 1.
	Workers int
	// BufferSize is the capacity of each producer buffer.
	BufferSize int
	// QueueDepth is the number of sealed buffers that may wait for the
	// writer. Zero means 2*Workers.
	QueueDepth int
	// MaxKeyLen rejects longer keys up front. It should match the scanner's
	// limit so every generated file can be read back.
	MaxKeyLen int
	// Seed makes the output reproducible for a fixed worker count. Zero picks
	// a random seed.
	Seed uint64
	// Table is the value table. Nil means DefaultTable.
	Table  *Table
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = max(1, runtime.GOMAXPROCS(0)-1)
	}
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}
	if o.QueueDepth <= 0 {
		o.QueueDepth = 2 * o.Workers
	}
	if o.MaxKeyLen <= 0 {
		o.MaxKeyLen = DefaultMaxKeyLen
	}
	if o.Seed == 0 {
		o.Seed = rand.Uint64()
	}
	if o.Table == nil {
		o.Table = DefaultTable()
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Stats describes what a run wrote.
type Stats struct {
	Rows    int64
	Bytes   int64
	Buffers int64
	// Allocated counts the buffers the pool had to create. While the writer
	// keeps up it stays near Workers+1.
	Allocated int64
	Elapsed   time.Duration
}

// buffer is a producer's arena. Once sent to the writer it is sealed: the
// producer drops its reference and nothing writes to it until the writer
// returns it to the pool.
type buffer struct {
	data []byte
}

type generator struct {
	keys  [][]byte
	table *Table
	opts  Options
	pool  sync.Pool

	allocated atomic.Int64
}

// Generate writes rows lines to path, creating or truncating it.
func Generate(ctx context.Context, path string, keys [][]byte, rows int64, opts Options) (Stats, error) {
	f, err := os.Create(path)
	if err != nil {
		return Stats{}, fmt.Errorf("create output: %w", err)
	}
	st, err := GenerateTo(ctx, f, keys, rows, opts)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close output: %w", cerr)
	}
	return st, err
}

// GenerateTo writes rows lines to w. w is only used by the writer goroutine.
func GenerateTo(ctx context.Context, w io.Writer, keys [][]byte, rows int64, opts Options) (Stats, error) {
	opts = opts.withDefaults()
	if err := validate(keys, rows, opts); err != nil {
		return Stats{}, err
	}

	return newGenerator(keys, opts).run(ctx, w, rows)
}

func newGenerator(keys [][]byte, opts Options) *generator {
	g := &generator{keys: keys, table: opts.Table, opts: opts}
	g.pool.New = func() any {
		g.allocated.Add(1)
		return &buffer{data: make([]byte, 0, opts.BufferSize)}
	}
	return g
}

func validate(keys [][]byte, rows int64, opts Options) error {
	if rows < 0 {
		return fmt.Errorf("gen: negative row count %d", rows)
	}
	if rows > 0 && len(keys) == 0 {
		return ErrNoKeys
	}
	longest := 0
	for _, k := range keys {
		if len(k) > opts.MaxKeyLen {
			return fmt.Errorf("%w: %q is %d bytes, limit %d", ErrKeyTooLong, k, len(k), opts.MaxKeyLen)
		}
		if len(k) == 0 || bytes.IndexByte(k, ';') >= 0 || bytes.IndexByte(k, '\n') >= 0 {
			return fmt.Errorf("%w: %q", ErrInvalidKey, k)
		}
		longest = max(longest, len(k))
	}
	if line := longest + opts.Table.MaxLen() + 2; line > opts.BufferSize {
		return fmt.Errorf("%w: %d < %d", ErrBufferTooSmall, opts.BufferSize, line)
	}
	return nil
}

type written struct {
	st  Stats
	err error
}

func (g *generator) run(ctx context.Context, w io.Writer, rows int64) (Stats, error) {
	log := g.opts.Logger
	start := time.Now()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	queue := make(chan *buffer, g.opts.QueueDepth)
	done := make(chan written, 1)
	go func() {
		st, err := g.drain(w, queue)
		if err != nil {
			cancel(err)
		}
		done <- written{st: st, err: err}
	}()

	eg, ectx := errgroup.WithContext(ctx)
	for id, n := range split(rows, g.opts.Workers) {
		eg.Go(func() error {
			return g.produce(ectx, id, n, queue)
		})
	}
	werr := eg.Wait()
	// Every producer has returned, so nothing can send any more.
	close(queue)
	out := <-done

	if out.err != nil {
		return out.st, out.err
	}
	if werr != nil {
		return out.st, werr
	}

	out.st.Rows = rows
	out.st.Allocated = g.allocated.Load()
	out.st.Elapsed = time.Since(start)
	log.Info("generation complete",
		"rows", out.st.Rows,
		"bytes", out.st.Bytes,
		"buffers", out.st.Buffers,
		"allocated", out.st.Allocated,
		"workers", g.opts.Workers,
		"elapsed", out.st.Elapsed,
		"mb_per_s", float64(out.st.Bytes)/(1024*1024)/max(out.st.Elapsed.Seconds(), 1e-9))
	return out.st, nil
}

// split spreads rows over n workers; the first rows%n get one extra.
func split(rows int64, n int) []int64 {
	parts := make([]int64, n)
	base, extra := rows/int64(n), rows%int64(n)
	for i := range parts {
		parts[i] = base
		if int64(i) < extra {
			parts[i]++
		}
	}
	return parts
}

func (g *generator) produce(ctx context.Context, id int, rows int64, queue chan<- *buffer) error {
	rng := rand.New(rand.NewPCG(g.opts.Seed, uint64(id)))
	nkeys, nvals := len(g.keys), g.table.Len()

	buf := g.pool.Get().(*buffer)
	for i := int64(0); i < rows; i++ {
		key := g.keys[rng.IntN(nkeys)]
		val := g.table.Entry(rng.IntN(nvals))

		if cap(buf.data)-len(buf.data) < len(key)+len(val)+2 {
			if err := send(ctx, queue, buf); err != nil {
				return err
			}
			buf = g.pool.Get().(*buffer)
		}
		buf.data = append(buf.data, key...)
		buf.data = append(buf.data, ';')
		buf.data = append(buf.data, val...)
		buf.data = append(buf.data, '\n')
	}

	if len(buf.data) == 0 {
		g.pool.Put(buf)
	} else if err := send(ctx, queue, buf); err != nil {
		return err
	}
	g.opts.Logger.Debug("worker finished", "worker", id, "rows", rows)
	return nil
}

// send blocks while the queue is full.
func send(ctx context.Context, queue chan<- *buffer, buf *buffer) error {
	select {
	case queue <- buf:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain appends buffers to w in the order they arrive until the queue is
// closed. It stops at the first write error.
func (g *generator) drain(w io.Writer, queue <-chan *buffer) (Stats, error) {
	var st Stats
	for buf := range queue {
		n, err := w.Write(buf.data)
		st.Bytes += int64(n)
		st.Buffers++
		buf.data = buf.data[:0]
		g.pool.Put(buf)
		if err != nil {
			return st, fmt.Errorf("write output: %w", err)
		}
	}
	return st, nil
}
