package scan

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/example/brcstats/internal/bytekey"
	"github.com/example/brcstats/internal/stats"
)

// Reduce folds the scanners' tables into one mapping keyed by text.
//
// Keys are routed to one of shards partitions by their hash and every
// partition is merged by its own goroutine. Merge is associative and
// commutative, so the result does not depend on shards or on table order.
// The input tables are only read.
func Reduce(ctx context.Context, tables []*Table, shards int) (map[string]stats.Accumulator, error) {
	if shards < 1 {
		shards = 1
	}

	parts := make([]*Table, shards)
	g, ctx := errgroup.WithContext(ctx)
	for s := range shards {
		g.Go(func() error {
			part := NewTable(0)
			for _, t := range tables {
				if err := ctx.Err(); err != nil {
					return err
				}
				t.Each(func(k bytekey.Key, acc stats.Accumulator) {
					if k.Hash()%uint64(shards) == uint64(s) {
						part.Add(k, acc)
					}
				})
			}
			parts[s] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	n := 0
	for _, p := range parts {
		n += p.Len()
	}
	out := make(map[string]stats.Accumulator, n)
	for _, p := range parts {
		p.Each(func(k bytekey.Key, acc stats.Accumulator) {
			out[k.String()] = acc
		})
	}
	return out, nil
}
