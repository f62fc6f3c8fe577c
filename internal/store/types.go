package store

import (
	"fmt"
	"time"
)

// RunConfig records what a benchmark report was produced from.
// It is a plain copy so that this package has no dependency on the kernel.
type RunConfig struct {
	DataDir    string   `json:"dataDir"`
	Prefix     string   `json:"prefix,omitempty"`
	QueryPath  string   `json:"queryPath"`
	Strategies []string `json:"strategies"`
	Axes       []string `json:"axes"`
	Threads    []int    `json:"threads"`
	Repeats    int      `json:"repeats"`
	EarlyExit  bool     `json:"earlyExit,omitempty"`
}

// RunRecord is one timed search over the whole dataset.
type RunRecord struct {
	Strategy string        `json:"strategy"`
	Axis     string        `json:"axis"`
	Threads  int           `json:"threads"`
	Elapsed  time.Duration `json:"elapsed"`

	// Best match reported by the run
	MinSAD      float64 `json:"minSad"`
	Index       int     `json:"index"`
	SeriesID    string  `json:"seriesId"`
	SeriesIndex int     `json:"seriesIndex"`

	// Speedup is baseline elapsed / this run's elapsed (1 for the baseline)
	Speedup float64 `json:"speedup"`
	// Agrees is true when the run reproduced the baseline match exactly
	Agrees bool `json:"agrees"`
}

// Environment describes the machine a report was measured on.
type Environment struct {
	GOOS       string `json:"goos"`
	GOARCH     string `json:"goarch"`
	NumCPU     int    `json:"numCpu"`
	GOMAXPROCS int    `json:"gomaxprocs"`
	CacheLine  int    `json:"cacheLine"`
}

// Report is a persisted benchmark run: a sequential baseline followed by
// every configured (axis, strategy, threads) combination.
type Report struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Config    RunConfig `json:"config"`

	SeriesCount    int `json:"seriesCount"`
	SkippedSeries  int `json:"skippedSeries"`
	QueryLength    int `json:"queryLength"`
	TotalDataPoint int `json:"totalDataPoints"`

	Baseline    RunRecord   `json:"baseline"`
	Runs        []RunRecord `json:"runs"`
	Environment Environment `json:"environment"`
}

// ReportInfo is the listing view of a report.
type ReportInfo struct {
	ID          string        `json:"id"`
	CreatedAt   time.Time     `json:"createdAt"`
	DataDir     string        `json:"dataDir"`
	SeriesCount int           `json:"seriesCount"`
	Runs        int           `json:"runs"`
	Baseline    time.Duration `json:"baseline"`
	BestRun     string        `json:"bestRun"`
	BestSpeedup float64       `json:"bestSpeedup"`
}

// Label names a run as strategy/axis/threads.
func (r RunRecord) Label() string {
	return fmt.Sprintf("%s/%s/T=%d", r.Strategy, r.Axis, r.Threads)
}

// Fastest returns the run with the highest speedup, or false if there are
// no runs.
func (r *Report) Fastest() (RunRecord, bool) {
	if len(r.Runs) == 0 {
		return RunRecord{}, false
	}
	best := r.Runs[0]
	for _, run := range r.Runs[1:] {
		if run.Speedup > best.Speedup {
			best = run
		}
	}
	return best, true
}

// AllAgree reports whether every run matched the baseline.
func (r *Report) AllAgree() bool {
	for _, run := range r.Runs {
		if !run.Agrees {
			return false
		}
	}
	return true
}

// ToInfo converts a full Report to its listing view.
func (r *Report) ToInfo() ReportInfo {
	info := ReportInfo{
		ID:          r.ID,
		CreatedAt:   r.CreatedAt,
		DataDir:     r.Config.DataDir,
		SeriesCount: r.SeriesCount,
		Runs:        len(r.Runs),
		Baseline:    r.Baseline.Elapsed,
	}
	if best, ok := r.Fastest(); ok {
		info.BestRun = best.Label()
		info.BestSpeedup = best.Speedup
	}
	return info
}

// Validate checks that a report is complete enough to be persisted.
func (r *Report) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "ID", Reason: "cannot be empty"}
	}
	if r.CreatedAt.IsZero() {
		return &ValidationError{Field: "CreatedAt", Reason: "cannot be zero"}
	}
	if r.SeriesCount <= 0 {
		return &ValidationError{Field: "SeriesCount", Reason: "must be positive"}
	}
	if r.QueryLength <= 0 {
		return &ValidationError{Field: "QueryLength", Reason: "must be positive"}
	}
	for i, run := range r.Runs {
		if run.Threads <= 0 {
			return &ValidationError{Field: fmt.Sprintf("Runs[%d].Threads", i), Reason: "must be positive"}
		}
		if run.Elapsed < 0 {
			return &ValidationError{Field: fmt.Sprintf("Runs[%d].Elapsed", i), Reason: "cannot be negative"}
		}
	}
	return nil
}

// ValidationError represents a report validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
