package match

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/parallel"
)

// Series is one named sequence of a dataset.
type Series struct {
	ID     string
	Values []float64
}

// Dataset is an ordered, read-only collection of series.
type Dataset []Series

// Axis selects which dimension of a dataset search runs in parallel.
type Axis string

const (
	// AxisOverSeries partitions the series list across workers and scans
	// each series sequentially.
	AxisOverSeries Axis = "over-series"
	// AxisWithinSeries visits series one at a time and parallelizes each
	// individual scan.
	AxisWithinSeries Axis = "within-series"
)

// ParseAxis normalizes user input to an Axis.
func ParseAxis(name string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "over-series", "over_series", "series":
		return AxisOverSeries, nil
	case "within-series", "within_series", "within", "offsets":
		return AxisWithinSeries, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAxis, name)
	}
}

// SupportedAxes lists both dispatch axes.
func SupportedAxes() []Axis {
	return []Axis{AxisOverSeries, AxisWithinSeries}
}

// SkippedSeries records a series the dispatcher could not search.
type SkippedSeries struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Err   error  `json:"-"`
	// Reason is Err rendered for reporting.
	Reason string `json:"reason"`
}

// DatasetResult is the best window across a dataset together with the
// series it came from.
type DatasetResult struct {
	Result
	SeriesID    string          `json:"seriesId"`
	SeriesIndex int             `json:"seriesIndex"`
	Skipped     []SkippedSeries `json:"skipped,omitempty"`
}

// seriesBest is a per-worker accumulator for the over-series axis.
type seriesBest struct {
	result  Result
	series  int
	skipped []SkippedSeries
}

func noSeriesBest() seriesBest {
	return seriesBest{result: NoMatch(), series: -1}
}

// better orders dataset candidates by cost, then series position, then
// offset, which is the order a sequential walk over the dataset produces.
func (b seriesBest) better(other seriesBest) bool {
	if !b.result.Found() {
		return false
	}
	if !other.result.Found() {
		return true
	}
	if b.result.MinSAD != other.result.MinSAD {
		return b.result.MinSAD < other.result.MinSAD
	}
	if b.series != other.series {
		return b.series < other.series
	}
	return b.result.Index < other.result.Index
}

// SearchDataset finds the best window for query across every series of ds.
//
// On AxisOverSeries, strategy is ignored: each worker runs the sequential
// scanner over its share of the series. On AxisWithinSeries, series are
// visited in order and each is searched with strategy. Only one axis ever
// uses more than one worker.
//
// A series that fails with ErrInvalidQuery is skipped and listed in
// Skipped. If no series produces a result, ErrInvalidQuery is returned.
func SearchDataset(ds Dataset, query []float64, axis Axis, strategy Strategy, opts ...Option) (DatasetResult, error) {
	o := buildOptions(opts)

	var best seriesBest
	var err error
	switch axis {
	case AxisOverSeries:
		best = searchOverSeries(ds, query, o)
	case AxisWithinSeries:
		best, err = searchWithinSeries(ds, query, strategy, o)
	default:
		return DatasetResult{Result: NoMatch(), SeriesIndex: -1}, fmt.Errorf("%w: %q", ErrUnknownAxis, string(axis))
	}
	if err != nil {
		return DatasetResult{Result: NoMatch(), SeriesIndex: -1}, err
	}

	slices.SortFunc(best.skipped, func(a, b SkippedSeries) int { return a.Index - b.Index })
	for _, s := range best.skipped {
		o.Logger.Warn("Skipping series", "series", s.ID, "index", s.Index, "error", s.Err)
	}

	res := DatasetResult{
		Result:      best.result,
		SeriesIndex: best.series,
		Skipped:     best.skipped,
	}
	if !best.result.Found() {
		if len(ds) == 0 {
			return res, fmt.Errorf("%w: dataset is empty", ErrInvalidQuery)
		}
		return res, fmt.Errorf("%w: no series in the dataset accepts a query of length %d", ErrInvalidQuery, len(query))
	}
	res.SeriesID = ds[best.series].ID
	return res, nil
}

func searchOverSeries(ds Dataset, query []float64, o Options) seriesBest {
	workers := o.workers(len(ds))
	slots := make([]parallel.Slot[seriesBest], workers)

	var mu sync.Mutex
	global := noSeriesBest()

	var seqOpts []Option
	if o.EarlyExit {
		seqOpts = append(seqOpts, WithEarlyExit())
	}

	parallel.For(len(ds), workers, func(w int, r parallel.Range) {
		local := &slots[w].V
		*local = noSeriesBest()

		for i := r.Lo; i < r.Hi; i++ {
			res, err := SearchSequential(ds[i].Values, query, seqOpts...)
			if err != nil {
				local.skipped = append(local.skipped, skipped(ds, i, err))
				continue
			}
			cand := seriesBest{result: res, series: i}
			if cand.better(*local) {
				local.result, local.series = cand.result, cand.series
			}
		}

		mu.Lock()
		defer mu.Unlock()
		global.skipped = append(global.skipped, local.skipped...)
		cand := seriesBest{result: local.result, series: local.series}
		if cand.better(global) {
			global.result, global.series = cand.result, cand.series
		}
	})

	return global
}

func searchWithinSeries(ds Dataset, query []float64, strategy Strategy, o Options) (seriesBest, error) {
	search, err := strategy.Searcher()
	if err != nil {
		return noSeriesBest(), err
	}

	scanOpts := []Option{WithThreads(o.Threads)}
	if o.EarlyExit {
		scanOpts = append(scanOpts, WithEarlyExit())
	}

	best := noSeriesBest()
	for i := range ds {
		res, err := search(ds[i].Values, query, scanOpts...)
		if err != nil {
			best.skipped = append(best.skipped, skipped(ds, i, err))
			continue
		}
		cand := seriesBest{result: res, series: i}
		if cand.better(best) {
			best.result, best.series = cand.result, cand.series
		}
	}
	return best, nil
}

func skipped(ds Dataset, i int, err error) SkippedSeries {
	return SkippedSeries{Index: i, ID: ds[i].ID, Err: err, Reason: err.Error()}
}
