package scan

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/brcstats/internal/chunk"
	"github.com/example/brcstats/internal/stats"
)

func tableContents(t *testing.T, tab *Table) map[string]stats.Accumulator {
	t.Helper()
	m, err := Reduce(context.Background(), []*Table{tab}, 1)
	require.NoError(t, err)
	return m
}

func TestScanWindowsMatchesWholeView(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 12))
	data, _ := randomInput(rng, 2000)
	long := strings.Repeat("x", 300) + ";1.0\n"
	data = append(append(data, long...), "bad\nA;2.5\nunterminated;1.0"...)
	src := memSource{data: data}
	rg := chunk.Range{Start: 0, End: int64(len(data))}

	whole := NewScanner(0, false)
	require.NoError(t, whole.Scan(context.Background(), data, 0))

	for _, size := range []int{1, 7, 64, 1000, len(data) * 2} {
		sc := NewScanner(0, false)
		require.NoError(t, scanWindows(context.Background(), src, rg, size, sc), "size %d", size)
		assert.Equal(t, whole.Rows(), sc.Rows(), "size %d", size)
		assert.Equal(t, whole.Skipped(), sc.Skipped(), "size %d", size)
		assert.Equal(t, tableContents(t, whole.Table()), tableContents(t, sc.Table()), "size %d", size)
	}
}

func TestScanWindowsSubRange(t *testing.T) {
	data := []byte("A;1.0\nB;2.0\nC;3.0\n")
	sc := NewScanner(0, false)

	require.NoError(t, scanWindows(context.Background(), memSource{data: data}, chunk.Range{Start: 6, End: 12}, 4, sc))
	assert.Equal(t, int64(1), sc.Rows())
	assert.Equal(t, map[string]stats.Accumulator{"B": stats.New(20)}, tableContents(t, sc.Table()))
}

func TestScanWindowsStrictOffset(t *testing.T) {
	data := []byte("A;1.0\nB;2.0\nC;oops\n")
	sc := NewScanner(0, true)

	err := scanWindows(context.Background(), memSource{data: data}, chunk.Range{End: int64(len(data))}, 8, sc)
	require.ErrorIs(t, err, ErrMalformedLine)
	assert.Contains(t, err.Error(), "offset 12")
}

type brokenReader struct{}

func (brokenReader) ReadAt([]byte, int64) (int, error) { return 0, errors.New("device gone") }

func TestScanWindowsReadError(t *testing.T) {
	err := scanWindows(context.Background(), brokenReader{}, chunk.Range{End: 100}, 16, NewScanner(0, false))
	assert.ErrorContains(t, err, "device gone")
}
