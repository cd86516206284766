package scan

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/example/brcstats/internal/chunk"
)

// scanWindow is the read buffer used for sources that cannot map a range.
const scanWindow = 4 << 20

// scanWindows feeds rg to sc through a buffer of size bytes. Each window is
// cut after its last '\n' and the partial line is carried into the next
// read. The buffer only grows when a single line does not fit.
func scanWindows(ctx context.Context, r io.ReaderAt, rg chunk.Range, size int, sc *Scanner) error {
	if size < 1 {
		size = scanWindow
	}
	var buf []byte
	pending := 0 // unscanned bytes at the front of buf, starting at off
	off := rg.Start
	for off+int64(pending) < rg.End {
		if pending == len(buf) {
			n := int(min(int64(max(size, 2*len(buf))), rg.Len()))
			grown := make([]byte, n)
			copy(grown, buf[:pending])
			buf = grown
		}

		at := off + int64(pending)
		want := int(min(int64(len(buf)-pending), rg.End-at))
		n, err := r.ReadAt(buf[pending:pending+want], at)
		if n < want {
			if err == nil {
				err = io.ErrUnexpectedEOF
			}
			return fmt.Errorf("read [%d,%d): %w", at, at+int64(want), err)
		}
		pending += n

		end := pending
		if off+int64(pending) < rg.End {
			nl := bytes.LastIndexByte(buf[:pending], '\n')
			if nl < 0 {
				continue
			}
			end = nl + 1
		}
		if err := sc.Scan(ctx, buf[:end], off); err != nil {
			return err
		}
		off += int64(end)
		pending = copy(buf, buf[end:pending])
	}
	return nil
}
