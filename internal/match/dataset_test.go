package match

import (
	"bytes"
	"fmt"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

type dispatchCase struct {
	axis     Axis
	strategy Strategy
}

func dispatchCases() []dispatchCase {
	cases := []dispatchCase{{axis: AxisOverSeries, strategy: StrategySequential}}
	for _, s := range SupportedStrategies() {
		cases = append(cases, dispatchCase{axis: AxisWithinSeries, strategy: s})
	}
	return cases
}

func TestSearchDataset_ConcreteScenario(t *testing.T) {
	ds := Dataset{
		{ID: "series_1.csv", Values: []float64{5, 5, 5, 5}},
		{ID: "series_2.csv", Values: []float64{5, 5, 0, 0, 5}},
	}
	query := []float64{0, 0}

	for _, c := range dispatchCases() {
		for _, threads := range threadCounts {
			t.Run(fmt.Sprintf("%s/%s/T=%d", c.axis, c.strategy, threads), func(t *testing.T) {
				got, err := SearchDataset(ds, query, c.axis, c.strategy, WithThreads(threads), WithLogger(quietLogger()))
				require.NoError(t, err)
				assert.Equal(t, "series_2.csv", got.SeriesID)
				assert.Equal(t, 1, got.SeriesIndex)
				assert.Equal(t, Result{MinSAD: 0, Index: 2}, got.Result)
				assert.Empty(t, got.Skipped)
			})
		}
	}
}

func TestSearchDataset_TieBreakEarliestSeries(t *testing.T) {
	ds := Dataset{
		{ID: "a", Values: []float64{9, 9, 1, 2}},
		{ID: "b", Values: []float64{1, 2, 9, 9}},
		{ID: "c", Values: []float64{1, 2}},
	}
	query := []float64{1, 2}

	for _, c := range dispatchCases() {
		for _, threads := range threadCounts {
			got, err := SearchDataset(ds, query, c.axis, c.strategy, WithThreads(threads), WithLogger(quietLogger()))
			require.NoError(t, err)
			assert.Equal(t, "a", got.SeriesID, "%s/%s T=%d", c.axis, c.strategy, threads)
			assert.Equal(t, 2, got.Index)
		}
	}
}

func TestSearchDataset_SkipsShortSeries(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	ds := Dataset{
		{ID: "short", Values: []float64{1}},
		{ID: "ok", Values: []float64{3, 1, 2, 7}},
		{ID: "empty", Values: nil},
	}
	query := []float64{1, 2}

	for _, c := range dispatchCases() {
		got, err := SearchDataset(ds, query, c.axis, c.strategy, WithThreads(3), WithLogger(logger))
		require.NoError(t, err)
		assert.Equal(t, "ok", got.SeriesID)
		assert.Equal(t, Result{MinSAD: 0, Index: 1}, got.Result)

		require.Len(t, got.Skipped, 2)
		assert.Equal(t, "short", got.Skipped[0].ID)
		assert.Equal(t, 0, got.Skipped[0].Index)
		assert.Equal(t, "empty", got.Skipped[1].ID)
		assert.ErrorIs(t, got.Skipped[1].Err, ErrInvalidQuery)
		assert.NotEmpty(t, got.Skipped[1].Reason)
	}
	assert.Contains(t, logs.String(), "Skipping series")
}

func TestSearchDataset_AllSeriesFail(t *testing.T) {
	ds := Dataset{
		{ID: "a", Values: []float64{1}},
		{ID: "b", Values: []float64{2}},
	}

	for _, c := range dispatchCases() {
		got, err := SearchDataset(ds, []float64{1, 2}, c.axis, c.strategy, WithLogger(quietLogger()))
		assert.ErrorIs(t, err, ErrInvalidQuery)
		assert.False(t, got.Found())
		assert.Len(t, got.Skipped, 2)
	}
}

func TestSearchDataset_EmptyDataset(t *testing.T) {
	for _, c := range dispatchCases() {
		_, err := SearchDataset(nil, []float64{1}, c.axis, c.strategy)
		assert.ErrorIs(t, err, ErrInvalidQuery)
	}
}

func TestSearchDataset_UnknownSelectors(t *testing.T) {
	ds := Dataset{{ID: "a", Values: []float64{1, 2}}}

	_, err := SearchDataset(ds, []float64{1}, Axis("diagonal"), StrategySequential)
	assert.ErrorIs(t, err, ErrUnknownAxis)

	_, err = SearchDataset(ds, []float64{1}, AxisWithinSeries, Strategy("gpu"))
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestSearchDataset_AxesAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	ds := make(Dataset, 13)
	for i := range ds {
		ds[i] = Series{ID: fmt.Sprintf("series_%02d", i), Values: quantizedSeries(rng, 200+rng.Intn(400), 3)}
	}
	query := quantizedSeries(rng, 3, 3)

	want, err := SearchDataset(ds, query, AxisWithinSeries, StrategySequential)
	require.NoError(t, err)

	for _, c := range dispatchCases() {
		for _, threads := range threadCounts {
			got, err := SearchDataset(ds, query, c.axis, c.strategy, WithThreads(threads))
			require.NoError(t, err)
			assert.Equal(t, want.Result, got.Result, "%s/%s T=%d", c.axis, c.strategy, threads)
			assert.Equal(t, want.SeriesIndex, got.SeriesIndex, "%s/%s T=%d", c.axis, c.strategy, threads)
		}
	}
}

func TestParseAxis(t *testing.T) {
	got, err := ParseAxis("over_series")
	require.NoError(t, err)
	assert.Equal(t, AxisOverSeries, got)

	got, err = ParseAxis("Within-Series")
	require.NoError(t, err)
	assert.Equal(t, AxisWithinSeries, got)

	_, err = ParseAxis("both")
	assert.ErrorIs(t, err, ErrUnknownAxis)
}
