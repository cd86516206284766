package scan

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/example/brcstats/internal/stats"
)

// DefaultMaxKeyLen is the longest key the scanner accepts.
const DefaultMaxKeyLen = 100

// maxDigits keeps the accumulated value far away from int64 overflow.
const maxDigits = 18

var ErrMalformedLine = errors.New("malformed line")

// ParseTenths parses the value field of a line. b starts right after the
// ';'. An optional leading '-' sets the sign, '.' bytes are skipped and every
// digit is accumulated until '\n'. It returns the value and the index of the
// terminator. end is -1 when b holds no terminator; ok is false for that case
// and for any byte other than a digit, '.' or the terminator.
func ParseTenths(b []byte) (v stats.Tenths, end int, ok bool) {
	i := 0
	neg := false
	if len(b) > 0 && b[0] == '-' {
		neg = true
		i++
	}

	var n int64
	digits := 0
	for ; i < len(b); i++ {
		c := b[i]
		switch {
		case c == '\n':
			if digits == 0 {
				return 0, i, false
			}
			if neg {
				n = -n
			}
			return stats.Tenths(n), i, true
		case c == '.':
		case c >= '0' && c <= '9':
			if digits == maxDigits {
				return 0, i, false
			}
			n = n*10 + int64(c-'0')
			digits++
		default:
			return 0, i, false
		}
	}
	return 0, -1, false
}

// ParseLine splits one "<key>;<value>\n" record. The returned key aliases
// line.
func ParseLine(line []byte) ([]byte, stats.Tenths, error) {
	semi := bytes.IndexByte(line, ';')
	if semi <= 0 {
		return nil, 0, fmt.Errorf("%w: missing key or delimiter", ErrMalformedLine)
	}
	v, end, ok := ParseTenths(line[semi+1:])
	if !ok {
		if end < 0 {
			return nil, 0, fmt.Errorf("%w: missing terminator", ErrMalformedLine)
		}
		return nil, 0, fmt.Errorf("%w: bad value %q", ErrMalformedLine, line[semi+1:])
	}
	return line[:semi], v, nil
}
