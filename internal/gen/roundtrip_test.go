package gen_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/brcstats/internal/gen"
	"github.com/example/brcstats/internal/scan"
)

func TestTableEntriesParseBack(t *testing.T) {
	tab := gen.DefaultTable()
	for i := 0; i < tab.Len(); i++ {
		line := append(append([]byte(nil), tab.Entry(i)...), '\n')
		v, end, ok := scan.ParseTenths(line)
		require.True(t, ok, "entry %q", tab.Entry(i))
		assert.Equal(t, len(line)-1, end)
		assert.Equal(t, tab.Tenths(i), v, "entry %q", tab.Entry(i))
	}
}

func TestGenerateThenScan(t *testing.T) {
	names := [][]byte{
		[]byte("Abha"), []byte("Accra"), []byte("Zürich"), []byte("St. John's"),
		[]byte("Ürümqi"), []byte("Petropavlovsk-Kamchatsky"),
	}
	path := filepath.Join(t.TempDir(), "data.txt")
	const rows = 200_000

	st, err := gen.Generate(context.Background(), path, names, rows, gen.Options{
		Workers:    3,
		BufferSize: 64 << 10,
		Seed:       99,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(rows), st.Rows)

	for _, p := range []int{1, 8} {
		res, err := scan.Process(context.Background(), path, scan.Options{Parallelism: p})
		require.NoError(t, err)
		assert.Zero(t, res.Skipped)
		assert.Equal(t, st.Bytes, res.Bytes)

		var total int64
		for name, acc := range res.Stations {
			total += acc.Count
			assert.LessOrEqual(t, acc.MinValue(), acc.Mean(), name)
			assert.LessOrEqual(t, acc.Mean(), acc.MaxValue(), name)
			assert.GreaterOrEqual(t, acc.Min, gen.DefaultLow)
			assert.LessOrEqual(t, acc.Max, gen.DefaultHigh)
		}
		assert.Equal(t, int64(rows), total)
		assert.Len(t, res.Stations, len(names))
	}
}

func TestGenerateTruncatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	ctx := context.Background()

	_, err := gen.Generate(ctx, path, [][]byte{[]byte("A")}, 1000, gen.Options{Workers: 2, Seed: 1})
	require.NoError(t, err)
	_, err = gen.Generate(ctx, path, [][]byte{[]byte("B")}, 10, gen.Options{Workers: 2, Seed: 1})
	require.NoError(t, err)

	res, err := scan.Process(ctx, path, scan.Options{Parallelism: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.Rows)
	assert.Equal(t, []string{"B"}, res.Names())
}
