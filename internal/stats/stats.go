// Package stats holds the per-key accumulator used by both the scanner and
// the reducer. Values are kept in integer tenths so that sums never drift.
package stats

// Tenths is a one-fractional-digit decimal scaled by 10: 23.5 is 235.
type Tenths int64

// Accumulator tracks min, max, sum and count for one key.
//
// The zero value is not a valid accumulator; use New so that Count is at
// least one and Min/Max reflect a real observation.
type Accumulator struct {
	Min   Tenths
	Max   Tenths
	Sum   Tenths
	Count int64
}

// New returns an accumulator seeded with its first observation.
func New(t Tenths) Accumulator {
	return Accumulator{Min: t, Max: t, Sum: t, Count: 1}
}

// Update folds one observation into a.
func (a *Accumulator) Update(t Tenths) {
	if t < a.Min {
		a.Min = t
	}
	if t > a.Max {
		a.Max = t
	}
	a.Sum += t
	a.Count++
}

// Merge folds o into a. Merge is associative and commutative, so partial
// results may be combined in any order or grouping.
func (a *Accumulator) Merge(o Accumulator) {
	if o.Min < a.Min {
		a.Min = o.Min
	}
	if o.Max > a.Max {
		a.Max = o.Max
	}
	a.Sum += o.Sum
	a.Count += o.Count
}

// Merged returns the merge of a and o without touching either.
func Merged(a, o Accumulator) Accumulator {
	a.Merge(o)
	return a
}

func (a Accumulator) MinValue() float64 { return float64(a.Min) / 10.0 }

func (a Accumulator) MaxValue() float64 { return float64(a.Max) / 10.0 }

// Mean divides the sum by 10 before dividing by the count. Keep that order:
// swapping it changes the last bit of some results.
func (a Accumulator) Mean() float64 {
	return (float64(a.Sum) / 10.0) / float64(a.Count)
}
