package scan

import (
	"bytes"
	"context"
	"fmt"
)

// pollMask sets how often (in lines) a scanner checks for cancellation.
const pollMask = 1<<16 - 1

// Scanner aggregates the lines of one chunk into a private Table.
type Scanner struct {
	maxKeyLen int
	strict    bool
	table     *Table

	rows    int64
	skipped int64
}

func NewScanner(maxKeyLen int, strict bool) *Scanner {
	if maxKeyLen <= 0 {
		maxKeyLen = DefaultMaxKeyLen
	}
	return &Scanner{maxKeyLen: maxKeyLen, strict: strict, table: NewTable(0)}
}

func (s *Scanner) Table() *Table { return s.table }

func (s *Scanner) Rows() int64 { return s.rows }

// Skipped returns the number of malformed lines dropped so far.
func (s *Scanner) Skipped() int64 { return s.skipped }

// Scan consumes every line in view. base is the file offset of view[0] and
// is only used for error messages.
//
// A malformed line (no ';', empty or over-long key, bad value, or no '\n'
// before the end of view) is skipped up to the next terminator and counted,
// unless the scanner is strict, in which case Scan returns ErrMalformedLine.
func (s *Scanner) Scan(ctx context.Context, view []byte, base int64) error {
	var err error
	pos := 0
	for n := 0; pos < len(view); n++ {
		if n&pollMask == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		line := view[pos:]
		// The delimiter must sit within maxKeyLen+1 bytes of the line start,
		// so neither search runs past that window.
		head := line[:min(len(line), s.maxKeyLen+1)]
		semi := bytes.IndexByte(head, ';')
		if semi < 0 {
			reason := "missing delimiter"
			if len(head) > s.maxKeyLen && bytes.IndexByte(head, '\n') < 0 {
				reason = "key too long"
			}
			if pos, err = s.reject(view, pos, base, reason); err != nil {
				return err
			}
			continue
		}
		if bytes.IndexByte(head[:semi], '\n') >= 0 {
			if pos, err = s.reject(view, pos, base, "missing delimiter"); err != nil {
				return err
			}
			continue
		}
		if semi == 0 {
			if pos, err = s.reject(view, pos, base, "empty key"); err != nil {
				return err
			}
			continue
		}

		v, end, ok := ParseTenths(line[semi+1:])
		if !ok {
			if pos, err = s.reject(view, pos, base, "bad value"); err != nil {
				return err
			}
			continue
		}

		s.table.Update(line[:semi], v)
		s.rows++
		pos += semi + 1 + end + 1
	}
	return nil
}

// reject drops the line starting at pos and returns where the next line
// begins.
func (s *Scanner) reject(view []byte, pos int, base int64, reason string) (int, error) {
	if s.strict {
		return 0, fmt.Errorf("%w at offset %d: %s", ErrMalformedLine, base+int64(pos), reason)
	}
	s.skipped++
	nl := bytes.IndexByte(view[pos:], '\n')
	if nl < 0 {
		return len(view), nil
	}
	return pos + nl + 1, nil
}
