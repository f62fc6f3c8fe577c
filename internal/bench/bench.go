// Package bench times every search strategy against the sequential baseline
// and produces a persistable report.
package bench

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/match"
	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/parallel"
	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/store"
)

// Tracer receives one entry per timed repetition. *store.TraceWriter
// satisfies it.
type Tracer interface {
	Write(entry store.TraceEntry) error
}

// Config selects the runs of a benchmark.
type Config struct {
	Strategies []match.Strategy
	Axes       []match.Axis
	Threads    []int
	// Repeats is the number of timings per run; the fastest one is kept.
	Repeats   int
	EarlyExit bool

	// ID names the report (empty = a new UUID).
	ID string

	// Recorded in the report only.
	DataDir   string
	Prefix    string
	QueryPath string

	Tracer Tracer
	// Progress is called after each finished run with the number of runs
	// done so far and the total.
	Progress func(done, total int)
	Logger   *slog.Logger
}

type plannedRun struct {
	strategy match.Strategy
	axis     match.Axis
	threads  int
}

// plan expands the configured combinations. The over-series axis ignores
// the strategy, so it contributes one run per thread count.
func (c Config) plan() []plannedRun {
	var runs []plannedRun
	for _, axis := range c.Axes {
		if axis == match.AxisOverSeries {
			for _, t := range c.Threads {
				runs = append(runs, plannedRun{match.StrategySequential, axis, t})
			}
			continue
		}
		for _, s := range c.Strategies {
			if s == match.StrategySequential {
				continue
			}
			for _, t := range c.Threads {
				runs = append(runs, plannedRun{s, axis, t})
			}
		}
	}
	return runs
}

func (c Config) validate() error {
	for _, s := range c.Strategies {
		if _, err := s.Searcher(); err != nil {
			return err
		}
	}
	for _, a := range c.Axes {
		if !slices.Contains(match.SupportedAxes(), a) {
			return fmt.Errorf("%w: %q", match.ErrUnknownAxis, string(a))
		}
	}
	for _, t := range c.Threads {
		if t < 1 {
			return fmt.Errorf("thread count must be positive, got %d", t)
		}
	}
	return nil
}

// Run times the sequential baseline and then every planned run over ds.
// Each run is checked against the baseline match. The context is checked
// between runs; a started search always completes.
func Run(ctx context.Context, ds match.Dataset, query []float64, cfg Config) (*store.Report, error) {
	if cfg.Repeats < 1 {
		cfg.Repeats = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	runs := cfg.plan()
	total := len(runs) + 1

	baseline, baseRes, err := timeRun(cfg, ds, query, plannedRun{match.StrategySequential, match.AxisWithinSeries, 1})
	if err != nil {
		return nil, fmt.Errorf("baseline failed: %w", err)
	}
	baseline.Speedup = 1
	baseline.Agrees = true
	cfg.Logger.Info("Baseline measured",
		"elapsed", baseline.Elapsed,
		"min_sad", baseline.MinSAD,
		"series", baseline.SeriesID,
		"index", baseline.Index)
	if cfg.Progress != nil {
		cfg.Progress(1, total)
	}

	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	report := &store.Report{
		ID:        id,
		CreatedAt: time.Now(),
		Config: store.RunConfig{
			DataDir:    cfg.DataDir,
			Prefix:     cfg.Prefix,
			QueryPath:  cfg.QueryPath,
			Strategies: names(cfg.Strategies),
			Axes:       names(cfg.Axes),
			Threads:    cfg.Threads,
			Repeats:    cfg.Repeats,
			EarlyExit:  cfg.EarlyExit,
		},
		SeriesCount:    len(ds),
		SkippedSeries:  len(baseRes.Skipped),
		QueryLength:    len(query),
		TotalDataPoint: totalPoints(ds),
		Baseline:       baseline,
		Runs:           make([]store.RunRecord, 0, len(runs)),
		Environment:    CurrentEnvironment(),
	}

	for i, pr := range runs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, _, err := timeRun(cfg, ds, query, pr)
		if err != nil {
			return nil, fmt.Errorf("run %s/%s/T=%d failed: %w", pr.strategy, pr.axis, pr.threads, err)
		}
		rec.Speedup = speedup(baseline.Elapsed, rec.Elapsed)
		rec.Agrees = rec.MinSAD == baseline.MinSAD &&
			rec.Index == baseline.Index &&
			rec.SeriesIndex == baseline.SeriesIndex
		if !rec.Agrees {
			cfg.Logger.Warn("Run disagrees with baseline",
				"run", rec.Label(),
				"min_sad", rec.MinSAD,
				"index", rec.Index,
				"series", rec.SeriesID)
		}
		cfg.Logger.Info("Run measured",
			"run", rec.Label(),
			"elapsed", rec.Elapsed,
			"speedup", rec.Speedup)

		report.Runs = append(report.Runs, rec)
		if cfg.Progress != nil {
			cfg.Progress(i+2, total)
		}
	}

	return report, nil
}

// timeRun executes one run Repeats times and keeps the fastest timing.
func timeRun(cfg Config, ds match.Dataset, query []float64, pr plannedRun) (store.RunRecord, match.DatasetResult, error) {
	opts := []match.Option{match.WithThreads(pr.threads), match.WithLogger(cfg.Logger)}
	if cfg.EarlyExit {
		opts = append(opts, match.WithEarlyExit())
	}

	var best time.Duration
	var res match.DatasetResult
	for rep := range cfg.Repeats {
		start := time.Now()
		r, err := match.SearchDataset(ds, query, pr.axis, pr.strategy, opts...)
		elapsed := time.Since(start)
		if err != nil {
			return store.RunRecord{}, r, err
		}
		if rep == 0 || elapsed < best {
			best = elapsed
		}
		res = r

		if cfg.Tracer != nil {
			entry := store.TraceEntry{
				Strategy:  string(pr.strategy),
				Axis:      string(pr.axis),
				Threads:   pr.threads,
				Repeat:    rep,
				Elapsed:   elapsed,
				MinSAD:    r.MinSAD,
				Index:     r.Index,
				Timestamp: start,
			}
			if err := cfg.Tracer.Write(entry); err != nil {
				cfg.Logger.Warn("Failed to write trace entry", "error", err)
			}
		}
	}

	return store.RunRecord{
		Strategy:    string(pr.strategy),
		Axis:        string(pr.axis),
		Threads:     pr.threads,
		Elapsed:     best,
		MinSAD:      res.MinSAD,
		Index:       res.Index,
		SeriesID:    res.SeriesID,
		SeriesIndex: res.SeriesIndex,
	}, res, nil
}

// CurrentEnvironment describes the running machine.
func CurrentEnvironment() store.Environment {
	return store.Environment{
		GOOS:       runtime.GOOS,
		GOARCH:     runtime.GOARCH,
		NumCPU:     runtime.NumCPU(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
		CacheLine:  parallel.PadSize,
	}
}

func speedup(baseline, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		elapsed = 1
	}
	return float64(baseline) / float64(elapsed)
}

func totalPoints(ds match.Dataset) int {
	n := 0
	for _, s := range ds {
		n += len(s.Values)
	}
	return n
}

func names[S ~string](xs []S) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = string(x)
	}
	return out
}
