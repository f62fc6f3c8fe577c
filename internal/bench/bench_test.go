package bench

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/match"
	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/store"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type recordingTracer struct {
	entries []store.TraceEntry
}

func (r *recordingTracer) Write(e store.TraceEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

// testDataset plants the query verbatim in the third series.
func testDataset() (match.Dataset, []float64) {
	rng := rand.New(rand.NewSource(7))
	ds := make(match.Dataset, 4)
	for i := range ds {
		values := make([]float64, 500)
		for j := range values {
			values[j] = rng.Float64() * 100
		}
		ds[i] = match.Series{ID: "series_" + string(rune('a'+i)) + ".csv", Values: values}
	}
	query := append([]float64(nil), ds[2].Values[120:150]...)
	return ds, query
}

func TestRun_AllRunsAgreeWithBaseline(t *testing.T) {
	ds, query := testDataset()
	tracer := &recordingTracer{}
	var progress [][2]int

	cfg := Config{
		Strategies: match.SupportedStrategies(),
		Axes:       match.SupportedAxes(),
		Threads:    []int{1, 3},
		Repeats:    2,
		ID:         "fixed-id",
		DataDir:    "testdata",
		Tracer:     tracer,
		Progress:   func(done, total int) { progress = append(progress, [2]int{done, total}) },
		Logger:     quiet,
	}

	report, err := Run(context.Background(), ds, query, cfg)
	require.NoError(t, err)
	require.NoError(t, report.Validate())

	assert.Equal(t, "fixed-id", report.ID)
	assert.Equal(t, 4, report.SeriesCount)
	assert.Equal(t, 30, report.QueryLength)
	assert.Equal(t, 2000, report.TotalDataPoint)
	assert.Equal(t, "testdata", report.Config.DataDir)

	assert.Equal(t, 0.0, report.Baseline.MinSAD)
	assert.Equal(t, 120, report.Baseline.Index)
	assert.Equal(t, 2, report.Baseline.SeriesIndex)
	assert.Equal(t, "series_c.csv", report.Baseline.SeriesID)
	assert.Equal(t, 1.0, report.Baseline.Speedup)

	// over-series: 2 thread counts; within-series: 3 parallel strategies x 2
	require.Len(t, report.Runs, 8)
	for _, run := range report.Runs {
		assert.True(t, run.Agrees, run.Label())
		assert.Positive(t, run.Speedup, run.Label())
	}
	assert.True(t, report.AllAgree())

	assert.Len(t, tracer.entries, (len(report.Runs)+1)*cfg.Repeats)
	require.Len(t, progress, 9)
	assert.Equal(t, [2]int{9, 9}, progress[len(progress)-1])
}

func TestRun_EarlyExitAgrees(t *testing.T) {
	ds, query := testDataset()

	report, err := Run(context.Background(), ds, query, Config{
		Strategies: match.ParallelStrategies(),
		Axes:       []match.Axis{match.AxisWithinSeries},
		Threads:    []int{4},
		EarlyExit:  true,
		Logger:     quiet,
	})
	require.NoError(t, err)
	_, err = uuid.Parse(report.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, report.Config.Repeats)
	assert.True(t, report.AllAgree())
}

func TestRun_Errors(t *testing.T) {
	ds, query := testDataset()

	t.Run("unknown strategy", func(t *testing.T) {
		_, err := Run(context.Background(), ds, query, Config{
			Strategies: []match.Strategy{"gpu"}, Axes: match.SupportedAxes(), Threads: []int{1}, Logger: quiet,
		})
		assert.ErrorIs(t, err, match.ErrUnknownStrategy)
	})

	t.Run("unknown axis", func(t *testing.T) {
		_, err := Run(context.Background(), ds, query, Config{
			Axes: []match.Axis{"diagonal"}, Threads: []int{1}, Logger: quiet,
		})
		assert.ErrorIs(t, err, match.ErrUnknownAxis)
	})

	t.Run("bad threads", func(t *testing.T) {
		_, err := Run(context.Background(), ds, query, Config{
			Axes: match.SupportedAxes(), Threads: []int{0}, Logger: quiet,
		})
		assert.Error(t, err)
	})

	t.Run("query too long", func(t *testing.T) {
		_, err := Run(context.Background(), ds, make([]float64, 1000), Config{
			Axes: match.SupportedAxes(), Threads: []int{1}, Logger: quiet,
		})
		assert.ErrorIs(t, err, match.ErrInvalidQuery)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Run(ctx, ds, query, Config{
			Axes: match.SupportedAxes(), Threads: []int{1}, Logger: quiet,
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestPlan_OverSeriesIgnoresStrategy(t *testing.T) {
	cfg := Config{
		Strategies: []match.Strategy{match.StrategySequential, match.StrategyReduction},
		Axes:       []match.Axis{match.AxisOverSeries, match.AxisWithinSeries},
		Threads:    []int{2, 4},
	}

	runs := cfg.plan()
	require.Len(t, runs, 4)
	assert.Equal(t, plannedRun{match.StrategySequential, match.AxisOverSeries, 2}, runs[0])
	assert.Equal(t, plannedRun{match.StrategySequential, match.AxisOverSeries, 4}, runs[1])
	assert.Equal(t, plannedRun{match.StrategyReduction, match.AxisWithinSeries, 2}, runs[2])
	assert.Equal(t, plannedRun{match.StrategyReduction, match.AxisWithinSeries, 4}, runs[3])
}

func TestCurrentEnvironment(t *testing.T) {
	env := CurrentEnvironment()
	assert.Positive(t, env.NumCPU)
	assert.Positive(t, env.GOMAXPROCS)
	assert.GreaterOrEqual(t, env.CacheLine, 32)
}
