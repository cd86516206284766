package scan

import (
	"github.com/dolthub/swiss"

	"github.com/example/brcstats/internal/bytekey"
	"github.com/example/brcstats/internal/stats"
)

const defaultTableSize = 16384

type entry struct {
	key  bytekey.Key
	acc  stats.Accumulator
	next *entry // keys sharing a hash
}

// Table maps keys to accumulators. It is owned by a single goroutine and is
// not safe for concurrent writes. Lookups hash the raw bytes and compare in
// place, so a key is only copied the first time it is seen.
type Table struct {
	m    *swiss.Map[uint64, *entry]
	size int
}

func NewTable(capacity int) *Table {
	if capacity <= 0 {
		capacity = defaultTableSize
	}
	return &Table{m: swiss.NewMap[uint64, *entry](uint32(capacity))}
}

// Update records one observation for key. key is not retained.
func (t *Table) Update(key []byte, v stats.Tenths) {
	h := bytekey.Hash(key)
	head, _ := t.m.Get(h)
	for e := head; e != nil; e = e.next {
		if e.key.Matches(h, key) {
			e.acc.Update(v)
			return
		}
	}
	t.m.Put(h, &entry{key: bytekey.New(key), acc: stats.New(v), next: head})
	t.size++
}

// Add merges acc into the accumulator stored under k.
func (t *Table) Add(k bytekey.Key, acc stats.Accumulator) {
	h := k.Hash()
	head, _ := t.m.Get(h)
	for e := head; e != nil; e = e.next {
		if e.key.Equal(k) {
			e.acc.Merge(acc)
			return
		}
	}
	t.m.Put(h, &entry{key: k, acc: acc, next: head})
	t.size++
}

func (t *Table) Get(key []byte) (stats.Accumulator, bool) {
	h := bytekey.Hash(key)
	head, _ := t.m.Get(h)
	for e := head; e != nil; e = e.next {
		if e.key.Matches(h, key) {
			return e.acc, true
		}
	}
	return stats.Accumulator{}, false
}

// Len returns the number of distinct keys.
func (t *Table) Len() int { return t.size }

// Each calls fn for every key in unspecified order.
func (t *Table) Each(fn func(bytekey.Key, stats.Accumulator)) {
	t.m.Iter(func(_ uint64, head *entry) bool {
		for e := head; e != nil; e = e.next {
			fn(e.key, e.acc)
		}
		return false
	})
}
