package gen

import (
	"fmt"
	"strconv"

	"github.com/example/brcstats/internal/stats"
)

// Default value range of generated rows, in tenths: -99.9 to 99.9.
const (
	DefaultLow  stats.Tenths = -999
	DefaultHigh stats.Tenths = 999
)

// Table holds the formatted bytes of every tenth-step value in [lo, hi].
// It is immutable once built and may be shared by any number of workers.
type Table struct {
	lo      stats.Tenths
	entries [][]byte
	maxLen  int
}

func NewTable(lo, hi stats.Tenths) (*Table, error) {
	if hi < lo {
		return nil, fmt.Errorf("value table: high %d below low %d", hi, lo)
	}
	t := &Table{lo: lo, entries: make([][]byte, 0, hi-lo+1)}
	for v := lo; v <= hi; v++ {
		b := AppendTenths(nil, v)
		t.entries = append(t.entries, b)
		t.maxLen = max(t.maxLen, len(b))
	}
	return t, nil
}

// DefaultTable covers DefaultLow..DefaultHigh, 1999 entries.
func DefaultTable() *Table {
	t, _ := NewTable(DefaultLow, DefaultHigh)
	return t
}

func (t *Table) Len() int { return len(t.entries) }

// Entry returns the formatted value at index i. Callers must not modify it.
func (t *Table) Entry(i int) []byte { return t.entries[i] }

// Tenths returns the value formatted at index i.
func (t *Table) Tenths(i int) stats.Tenths { return t.lo + stats.Tenths(i) }

// MaxLen is the length of the longest entry.
func (t *Table) MaxLen() int { return t.maxLen }

// AppendTenths appends v with exactly one fractional digit, e.g. -0.5.
func AppendTenths(dst []byte, v stats.Tenths) []byte {
	if v < 0 {
		dst = append(dst, '-')
		v = -v
	}
	dst = strconv.AppendInt(dst, int64(v/10), 10)
	return append(dst, '.', byte('0'+v%10))
}
