package scan

import (
	"io"

	"github.com/example/brcstats/internal/chunk"
)

// source is an input that can be planned over and scanned chunk by chunk.
type source interface {
	io.ReaderAt
	Size() int64
	Close() error
}

// viewer is a source that can hand out a whole range at once. Views of
// distinct ranges may be used from different goroutines. Sources without
// View are scanned through bounded windows instead.
type viewer interface {
	View(r chunk.Range) (view, error)
}

// view is a read-only window over one range. Bytes must not be used after
// Close.
type view interface {
	Bytes() []byte
	Close() error
}

type sliceView []byte

func (v sliceView) Bytes() []byte { return v }

func (sliceView) Close() error { return nil }

// memSource serves views straight out of an in-memory buffer.
type memSource struct {
	data []byte
}

func (m memSource) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m memSource) Size() int64 { return int64(len(m.data)) }

func (m memSource) View(r chunk.Range) (view, error) {
	return sliceView(m.data[r.Start:r.End]), nil
}

func (memSource) Close() error { return nil }
