package match

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var threadCounts = []int{1, 2, 4, 8}

func TestSearch_ConcreteScenario(t *testing.T) {
	series := []float64{1, 2, 3, 4, 5, 6}
	query := []float64{3, 4}
	want := Result{MinSAD: 0, Index: 2}

	for _, s := range SupportedStrategies() {
		for _, threads := range threadCounts {
			t.Run(fmt.Sprintf("%s/T=%d", s, threads), func(t *testing.T) {
				got, err := Search(s, series, query, WithThreads(threads))
				require.NoError(t, err)
				assert.Equal(t, want, got)
			})
		}
	}
}

func TestSearch_TieBreakLowestOffset(t *testing.T) {
	series := []float64{0, 0, 0, 0}
	query := []float64{0, 0}
	want := Result{MinSAD: 0, Index: 0}

	for _, s := range SupportedStrategies() {
		for _, threads := range threadCounts {
			t.Run(fmt.Sprintf("%s/T=%d", s, threads), func(t *testing.T) {
				got, err := Search(s, series, query, WithThreads(threads))
				require.NoError(t, err)
				assert.Equal(t, want, got)
			})
		}
	}
}

func TestSearch_ExactFit(t *testing.T) {
	series := []float64{4, 8, 15, 16}
	query := []float64{4, 8, 15, 17}

	for _, s := range SupportedStrategies() {
		got, err := Search(s, series, query, WithThreads(4))
		require.NoError(t, err, s)
		assert.Equal(t, Result{MinSAD: 1, Index: 0}, got, s)
	}
}

func TestSearch_InvalidQuery(t *testing.T) {
	cases := []struct {
		name          string
		series, query []float64
	}{
		{"empty query", []float64{1, 2, 3}, nil},
		{"query longer than series", []float64{1, 2}, []float64{1, 2, 3}},
		{"empty series", nil, []float64{1}},
	}

	for _, tc := range cases {
		for _, s := range SupportedStrategies() {
			t.Run(tc.name+"/"+string(s), func(t *testing.T) {
				got, err := Search(s, tc.series, tc.query, WithThreads(4))
				assert.ErrorIs(t, err, ErrInvalidQuery)
				assert.False(t, got.Found())
			})
		}
	}
}

// Every parallel strategy must reproduce the sequential result exactly,
// including the index on tied costs, at every thread count.
func TestSearch_CrossStrategyEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	type input struct {
		name          string
		series, query []float64
	}
	var inputs []input
	for i := range 20 {
		n := 50 + rng.Intn(2000)
		m := 1 + rng.Intn(40)
		inputs = append(inputs, input{
			name:   fmt.Sprintf("random-%d", i),
			series: randomSeries(rng, n),
			query:  randomSeries(rng, m),
		})
		// Few levels and a short query produce many exact ties.
		inputs = append(inputs, input{
			name:   fmt.Sprintf("ties-%d", i),
			series: quantizedSeries(rng, n, 2),
			query:  quantizedSeries(rng, 1+rng.Intn(3), 2),
		})
	}

	for _, in := range inputs {
		want, err := SearchSequential(in.series, in.query)
		require.NoError(t, err)

		for _, s := range ParallelStrategies() {
			for _, threads := range threadCounts {
				got, err := Search(s, in.series, in.query, WithThreads(threads))
				require.NoError(t, err)
				assert.InDelta(t, want.MinSAD, got.MinSAD, 1e-9, "%s %s T=%d", in.name, s, threads)
				assert.Equal(t, want.Index, got.Index, "%s %s T=%d", in.name, s, threads)
			}
		}
	}
}

func TestSearch_MoreThreadsThanOffsets(t *testing.T) {
	series := []float64{9, 1, 9}
	query := []float64{1, 9}

	for _, s := range ParallelStrategies() {
		got, err := Search(s, series, query, WithThreads(64))
		require.NoError(t, err)
		assert.Equal(t, Result{MinSAD: 0, Index: 1}, got, s)
	}
}

func TestSearch_Idempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	series := quantizedSeries(rng, 5000, 3)
	query := quantizedSeries(rng, 4, 3)

	for _, s := range SupportedStrategies() {
		first, err := Search(s, series, query, WithThreads(8))
		require.NoError(t, err)
		for range 10 {
			again, err := Search(s, series, query, WithThreads(8))
			require.NoError(t, err)
			assert.Equal(t, first, again, s)
		}
	}
}

func TestSearch_EarlyExitMatchesFullScan(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	series := quantizedSeries(rng, 3000, 2)
	query := []float64{1, 0, 1}

	want, err := SearchSequential(series, query)
	require.NoError(t, err)
	require.Equal(t, 0.0, want.MinSAD, "fixture should contain an exact match")

	for _, s := range SupportedStrategies() {
		for _, threads := range threadCounts {
			got, err := Search(s, series, query, WithThreads(threads), WithEarlyExit())
			require.NoError(t, err)
			assert.Equal(t, want, got, "%s T=%d", s, threads)
		}
	}
}

func TestParseStrategy(t *testing.T) {
	cases := map[string]Strategy{
		"":             StrategySequential,
		"SEQ":          StrategySequential,
		" critical ":   StrategyBottleneck,
		"standard":     StrategyLocalReduce,
		"local-reduce": StrategyLocalReduce,
		"reduce":       StrategyReduction,
	}
	for in, want := range cases {
		got, err := ParseStrategy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseStrategy("gpu")
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	_, err = Search(Strategy("gpu"), []float64{1}, []float64{1})
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}
