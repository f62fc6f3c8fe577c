package match

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCost_KnownValues(t *testing.T) {
	series := []float64{1, 2, 3, 4, 5, 6}
	query := []float64{3, 4}

	want := []float64{4, 2, 0, 2, 4}
	for offset, w := range want {
		assert.Equal(t, w, Cost(series, query, offset), "offset %d", offset)
	}
}

func TestCost_FullWindow(t *testing.T) {
	series := []float64{1.5, -2, 0.25}
	query := []float64{1, 1, 1}

	// |0.5| + |-3| + |-0.75|
	assert.Equal(t, 4.25, Cost(series, query, 0))
}

func TestCost_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	series := randomSeries(rng, 4096)
	query := randomSeries(rng, 97)

	first := Cost(series, query, 1234)
	for range 50 {
		got := Cost(series, query, 1234)
		if math.Float64bits(got) != math.Float64bits(first) {
			t.Fatalf("cost not bit-identical: %v vs %v", got, first)
		}
	}
}

func TestCost_Symmetric(t *testing.T) {
	a := []float64{3, -1, 8}
	b := []float64{0, 2, 8}
	assert.Equal(t, Cost(a, b, 0), Cost(b, a, 0))
}

func randomSeries(rng *rand.Rand, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = rng.NormFloat64() * 10
	}
	return s
}

// quantizedSeries draws from a handful of integers so that many windows
// share the exact same cost.
func quantizedSeries(rng *rand.Rand, n, levels int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = float64(rng.Intn(levels))
	}
	return s
}
