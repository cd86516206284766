// Package chunk splits a line-oriented file into byte ranges that can be
// scanned independently.
package chunk

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// LookaheadWindow is how many bytes are read per step while searching for
// the next line terminator after a naive boundary.
const LookaheadWindow = 1024

var ErrInvalidParallelism = errors.New("chunk: parallelism must be at least 1")

// Range is the half-open byte range [Start, End) of one chunk.
type Range struct {
	Start int64
	End   int64
}

func (r Range) Len() int64 { return r.End - r.Start }

// Plan divides [0, size) into p ranges. Interior boundaries are moved
// forward to just past the next '\n', so no line straddles two ranges.
// The search is not capped: a line longer than LookaheadWindow simply costs
// more reads. Ranges may be empty when lines are long compared to size/p.
func Plan(r io.ReaderAt, size int64, p int) ([]Range, error) {
	if p < 1 {
		return nil, ErrInvalidParallelism
	}

	ranges := make([]Range, p)
	window := make([]byte, LookaheadWindow)

	var start int64
	for i := 0; i < p; i++ {
		end := size
		if i < p-1 {
			naive := int64(i+1) * size / int64(p)
			if naive < start {
				naive = start
			}
			var err error
			end, err = nextLineStart(r, naive, size, window)
			if err != nil {
				return nil, fmt.Errorf("chunk %d: %w", i, err)
			}
		}
		ranges[i] = Range{Start: start, End: end}
		start = end
	}
	return ranges, nil
}

// nextLineStart returns the offset just past the first '\n' at or after pos,
// or size if there is none.
func nextLineStart(r io.ReaderAt, pos, size int64, window []byte) (int64, error) {
	for pos < size {
		n := int64(len(window))
		if rem := size - pos; rem < n {
			n = rem
		}
		read, err := r.ReadAt(window[:n], pos)
		if idx := bytes.IndexByte(window[:read], '\n'); idx >= 0 {
			return pos + int64(idx) + 1, nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("find line end at %d: %w", pos, err)
		}
		if read == 0 {
			break
		}
		pos += int64(read)
	}
	return size, nil
}
