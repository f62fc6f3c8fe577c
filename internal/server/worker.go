package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/bench"
	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/match"
	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/series"
	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/store"
)

// worker executes jobs in the background. reports may be nil, in which
// case bench jobs fail instead of persisting.
type worker struct {
	jm      *JobManager
	reports store.Store
	metrics *Metrics
}

// runJob loads the job's dataset and query and runs it to completion.
func (w *worker) runJob(ctx context.Context, jobID string) error {
	job, exists := w.jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	if err := w.jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
	}); err != nil {
		return err
	}
	w.metrics.RunningJobs.Inc()
	defer w.metrics.RunningJobs.Dec()

	slog.Info("Starting job", "job_id", jobID, "kind", job.Config.Kind, "data_dir", job.Config.DataDir)

	ds, err := series.LoadDir(ctx, job.Config.DataDir, series.LoadOptions{Prefix: job.Config.Prefix})
	if err != nil {
		return w.finish(ctx, job, fmt.Errorf("failed to load dataset: %w", err))
	}
	query, err := series.ReadFile(job.Config.QueryPath)
	if err != nil {
		return w.finish(ctx, job, fmt.Errorf("failed to load query: %w", err))
	}

	// Check for cancellation before starting expensive operation
	if err := ctx.Err(); err != nil {
		return w.finish(ctx, job, err)
	}

	switch job.Config.Kind {
	case KindSearch:
		err = w.runSearch(job, ds, query)
	case KindBench:
		err = w.runBench(ctx, job, ds, query)
	default:
		err = fmt.Errorf("unknown job kind: %q", job.Config.Kind)
	}
	return w.finish(ctx, job, err)
}

func (w *worker) runSearch(job *Job, ds match.Dataset, query []float64) error {
	cfg := job.Config
	strategy := match.NormalizeStrategy(cfg.Strategy)
	axis, err := match.ParseAxis(cfg.Axis)
	if err != nil {
		return err
	}

	opts := []match.Option{match.WithThreads(cfg.Threads)}
	if cfg.EarlyExit {
		opts = append(opts, match.WithEarlyExit())
	}

	w.setProgress(job.ID, 0, 1)
	start := time.Now()
	res, err := match.SearchDataset(ds, query, axis, strategy, opts...)
	elapsed := time.Since(start)
	w.metrics.SkippedSeriesTotal.Add(float64(len(res.Skipped)))
	if err != nil {
		return err
	}
	w.metrics.SearchDuration.WithLabelValues(string(strategy), string(axis)).Observe(elapsed.Seconds())

	slog.Info("Search finished",
		"job_id", job.ID,
		"elapsed", elapsed,
		"min_sad", res.MinSAD,
		"index", res.Index,
		"series", res.SeriesID)

	return w.jm.UpdateJob(job.ID, func(j *Job) {
		j.Result = &res
		j.Progress = Progress{Done: 1, Total: 1}
	})
}

func (w *worker) runBench(ctx context.Context, job *Job, ds match.Dataset, query []float64) error {
	if w.reports == nil {
		return fmt.Errorf("no report store configured")
	}

	cfg := job.Config
	bcfg := bench.Config{
		Threads:   cfg.Bench.Threads,
		Repeats:   cfg.Bench.Repeats,
		EarlyExit: cfg.EarlyExit,
		ID:        job.ID,
		DataDir:   cfg.DataDir,
		Prefix:    cfg.Prefix,
		QueryPath: cfg.QueryPath,
		Progress: func(done, total int) {
			w.setProgress(job.ID, done, total)
		},
	}
	for _, s := range cfg.Bench.Strategies {
		bcfg.Strategies = append(bcfg.Strategies, match.NormalizeStrategy(s))
	}
	for _, a := range cfg.Bench.Axes {
		axis, err := match.ParseAxis(a)
		if err != nil {
			return err
		}
		bcfg.Axes = append(bcfg.Axes, axis)
	}

	if fs, ok := w.reports.(*store.FSStore); ok {
		tw, err := store.NewTraceWriter(fs.BaseDir(), job.ID)
		if err != nil {
			return err
		}
		defer func() {
			if err := tw.Close(); err != nil {
				slog.Warn("Failed to close trace", "job_id", job.ID, "error", err)
			}
		}()
		bcfg.Tracer = tw
	}

	report, err := bench.Run(ctx, ds, query, bcfg)
	if err != nil {
		return err
	}
	w.metrics.SearchDuration.WithLabelValues(report.Baseline.Strategy, report.Baseline.Axis).Observe(report.Baseline.Elapsed.Seconds())
	for _, run := range report.Runs {
		w.metrics.SearchDuration.WithLabelValues(run.Strategy, run.Axis).Observe(run.Elapsed.Seconds())
	}

	if err := w.reports.SaveReport(report); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	base := report.Baseline
	res := match.DatasetResult{
		Result:      match.Result{MinSAD: base.MinSAD, Index: base.Index},
		SeriesID:    base.SeriesID,
		SeriesIndex: base.SeriesIndex,
	}
	return w.jm.UpdateJob(job.ID, func(j *Job) {
		j.ReportID = report.ID
		j.Result = &res
	})
}

func (w *worker) setProgress(jobID string, done, total int) {
	w.jm.UpdateJob(jobID, func(j *Job) {
		j.Progress = Progress{Done: done, Total: total}
	})
	w.jm.broadcaster.Broadcast(ProgressEvent{
		JobID:     jobID,
		State:     StateRunning,
		Done:      done,
		Total:     total,
		Timestamp: time.Now(),
	})
}

// finish records the final state of a job. A nil err completes the job;
// an error after cancellation marks it cancelled.
func (w *worker) finish(ctx context.Context, job *Job, err error) error {
	endTime := time.Now()
	state := StateCompleted
	switch {
	case err != nil && ctx.Err() != nil:
		state = StateCancelled
	case err != nil:
		state = StateFailed
	}

	w.metrics.JobsTotal.WithLabelValues(string(job.Config.Kind), string(state)).Inc()

	var progress Progress
	w.jm.UpdateJob(job.ID, func(j *Job) {
		j.State = state
		j.EndTime = &endTime
		if state == StateFailed {
			j.Error = err.Error()
		}
		progress = j.Progress
	})

	switch state {
	case StateFailed:
		slog.Error("Job failed", "job_id", job.ID, "error", err)
	case StateCancelled:
		slog.Info("Job cancelled", "job_id", job.ID)
	default:
		slog.Info("Job completed", "job_id", job.ID, "elapsed", endTime.Sub(job.StartTime))
	}

	w.jm.broadcaster.Broadcast(ProgressEvent{
		JobID:     job.ID,
		State:     state,
		Done:      progress.Done,
		Total:     progress.Total,
		Timestamp: endTime,
	})
	return err
}
