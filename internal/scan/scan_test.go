package scan

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/brcstats/internal/stats"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		key  string
		want stats.Tenths
	}{
		{"Tokyo;23.5\n", "Tokyo", 235},
		{"Tokyo;-5.0\n", "Tokyo", -50},
		{"Oslo;0.0\n", "Oslo", 0},
		{"Oslo;-0.1\n", "Oslo", -1},
		{"Dallol;99.9\n", "Dallol", 999},
		{"Vostok;-99.9\n", "Vostok", -999},
		{"Odd;1..2\n", "Odd", 12},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			key, v, err := ParseLine([]byte(tt.line))
			require.NoError(t, err)
			assert.Equal(t, tt.key, string(key))
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestParseLineRejects(t *testing.T) {
	for _, line := range []string{
		"Tokyo23.5\n",
		";23.5\n",
		"Tokyo;\n",
		"Tokyo;-\n",
		"Tokyo;23.5",
		"Tokyo;2x.5\n",
		"Tokyo;23.5\r\n",
	} {
		_, _, err := ParseLine([]byte(line))
		assert.ErrorIs(t, err, ErrMalformedLine, "line %q", line)
	}
}

func TestParseTenthsReportsTerminator(t *testing.T) {
	v, end, ok := ParseTenths([]byte("12.3\nnext"))
	require.True(t, ok)
	assert.Equal(t, stats.Tenths(123), v)
	assert.Equal(t, 4, end)

	_, end, ok = ParseTenths([]byte("12.3"))
	assert.False(t, ok)
	assert.Equal(t, -1, end)
}

func TestProcessScenario(t *testing.T) {
	data := []byte("A;10.0\nA;20.0\nB;-5.5\n")

	for p := 1; p <= 8; p++ {
		t.Run(fmt.Sprintf("p=%d", p), func(t *testing.T) {
			res, err := ProcessBytes(context.Background(), data, Options{Parallelism: p})
			require.NoError(t, err)

			require.Len(t, res.Stations, 2)
			a := res.Stations["A"]
			assert.Equal(t, 10.0, a.MinValue())
			assert.Equal(t, 20.0, a.MaxValue())
			assert.Equal(t, 15.0, a.Mean())
			assert.Equal(t, int64(2), a.Count)

			b := res.Stations["B"]
			assert.Equal(t, -5.5, b.MinValue())
			assert.Equal(t, -5.5, b.Mean())
			assert.Equal(t, -5.5, b.MaxValue())
			assert.Equal(t, int64(1), b.Count)

			assert.Equal(t, int64(3), res.Rows)
			assert.Zero(t, res.Skipped)
			assert.Equal(t, []string{"A", "B"}, res.Names())
		})
	}
}

func randomInput(rng *rand.Rand, lines int) ([]byte, map[string]stats.Accumulator) {
	names := []string{"Abha", "Accra", "Zürich", "Hamburg", "St. John's", "Ürümqi", "Las Vegas", "X"}
	want := map[string]stats.Accumulator{}

	var sb strings.Builder
	for i := 0; i < lines; i++ {
		name := names[rng.IntN(len(names))]
		v := stats.Tenths(rng.IntN(1999) - 999)
		fmt.Fprintf(&sb, "%s;%s\n", name, formatTenths(v))

		acc, ok := want[name]
		if !ok {
			want[name] = stats.New(v)
			continue
		}
		acc.Update(v)
		want[name] = acc
	}
	return []byte(sb.String()), want
}

func formatTenths(v stats.Tenths) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%d", sign, v/10, v%10)
}

func TestProcessThreadCountInvariance(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	data, want := randomInput(rng, 5000)

	single, err := ProcessBytes(context.Background(), data, Options{Parallelism: 1})
	require.NoError(t, err)
	assert.Equal(t, want, single.Stations)

	for _, p := range []int{2, 3, 7, 16, 64} {
		many, err := ProcessBytes(context.Background(), data, Options{Parallelism: p, ReduceShards: p / 2})
		require.NoError(t, err)
		assert.Equal(t, single.Stations, many.Stations, "parallelism %d", p)
		assert.Equal(t, single.Rows, many.Rows)
	}
}

func TestProcessFile(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	data, want := randomInput(rng, 20000)

	path := filepath.Join(t.TempDir(), "measurements.txt")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	for _, p := range []int{1, 4, 13} {
		res, err := Process(context.Background(), path, Options{Parallelism: p})
		require.NoError(t, err)
		assert.Equal(t, want, res.Stations)
		assert.Equal(t, int64(20000), res.Rows)
		assert.Equal(t, int64(len(data)), res.Bytes)
	}
}

func TestProcessEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	res, err := Process(context.Background(), path, Options{Parallelism: 4})
	require.NoError(t, err)
	assert.Empty(t, res.Stations)
	assert.Zero(t, res.Rows)
}

func TestProcessMissingFile(t *testing.T) {
	_, err := Process(context.Background(), filepath.Join(t.TempDir(), "nope.txt"), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestProcessSkipsMalformedLines(t *testing.T) {
	data := []byte("A;1.0\nno delimiter\nB;x\n;2.0\nA;3.0\n" + strings.Repeat("k", 101) + ";1.0\nC;4.0")

	res, err := ProcessBytes(context.Background(), data, Options{Parallelism: 1})
	require.NoError(t, err)

	assert.Equal(t, int64(2), res.Rows)
	assert.Equal(t, int64(5), res.Skipped)
	require.Len(t, res.Stations, 1)
	assert.Equal(t, stats.Accumulator{Min: 10, Max: 30, Sum: 40, Count: 2}, res.Stations["A"])
}

func TestProcessSkipsUndelimitedLinesInLinearTime(t *testing.T) {
	const lines = 400_000
	data := []byte(strings.Repeat("garbage\n", lines) + "A;1.0\n")

	// A scan that searched the rest of the view for ';' on every line would
	// need tens of seconds here.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := ProcessBytes(ctx, data, Options{Parallelism: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(lines), res.Skipped)
	assert.Equal(t, int64(1), res.Rows)
}

func TestScannerRejectReasons(t *testing.T) {
	tests := []struct {
		input  string
		reason string
	}{
		{"nodl\nA;1.0\n", "missing delimiter"},
		{"tail", "missing delimiter"},
		{";1.0\n", "empty key"},
		{strings.Repeat("k", 6) + ";1.0\n", "key too long"},
		{"A;x\n", "bad value"},
	}
	for _, tt := range tests {
		s := NewScanner(5, true)
		err := s.Scan(context.Background(), []byte(tt.input), 0)
		require.ErrorIs(t, err, ErrMalformedLine, tt.input)
		assert.Contains(t, err.Error(), tt.reason, tt.input)
	}
}

func TestProcessStrict(t *testing.T) {
	data := []byte("A;1.0\nB;oops\n")

	_, err := ProcessBytes(context.Background(), data, Options{Parallelism: 1, Strict: true})
	require.ErrorIs(t, err, ErrMalformedLine)
	assert.Contains(t, err.Error(), "offset 6")
}

func TestProcessMaxKeyLen(t *testing.T) {
	data := []byte("short;1.0\nlonger;2.0\n")

	res, err := ProcessBytes(context.Background(), data, Options{Parallelism: 1, MaxKeyLen: 5})
	require.NoError(t, err)
	assert.Contains(t, res.Stations, "short")
	assert.NotContains(t, res.Stations, "longer")
	assert.Equal(t, int64(1), res.Skipped)
}

func TestProcessCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ProcessBytes(ctx, []byte("A;1.0\n"), Options{Parallelism: 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReduceIsOrderAndShardIndependent(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 10))
	data, want := randomInput(rng, 3000)

	var tables []*Table
	for _, part := range strings.SplitAfter(string(data), "\n") {
		if part == "" {
			continue
		}
		if len(tables) == 0 || rng.IntN(50) == 0 {
			tables = append(tables, NewTable(0))
		}
		key, v, err := ParseLine([]byte(part))
		require.NoError(t, err)
		tables[len(tables)-1].Update(key, v)
	}

	for _, shards := range []int{1, 2, 5, 32} {
		rng.Shuffle(len(tables), func(i, j int) { tables[i], tables[j] = tables[j], tables[i] })
		got, err := Reduce(context.Background(), tables, shards)
		require.NoError(t, err)
		assert.Equal(t, want, got, "shards %d", shards)
	}
}

func TestTable(t *testing.T) {
	tab := NewTable(4)
	tab.Update([]byte("A"), 10)
	tab.Update([]byte("A"), -10)
	tab.Update([]byte("B"), 5)

	assert.Equal(t, 2, tab.Len())
	a, ok := tab.Get([]byte("A"))
	require.True(t, ok)
	assert.Equal(t, stats.Accumulator{Min: -10, Max: 10, Sum: 0, Count: 2}, a)

	_, ok = tab.Get([]byte("C"))
	assert.False(t, ok)
}

func BenchmarkScan(b *testing.B) {
	rng := rand.New(rand.NewPCG(1, 1))
	data, _ := randomInput(rng, 100000)

	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sc := NewScanner(0, false)
		if err := sc.Scan(context.Background(), data, 0); err != nil {
			b.Fatal(err)
		}
	}
}
