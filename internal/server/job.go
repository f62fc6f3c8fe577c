package server

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/match"
)

// JobState represents the current state of a job
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// Terminal reports whether the job will not change state again.
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

var (
	// ErrJobNotFound is returned for unknown job IDs.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobActive is returned when an operation needs a finished job.
	ErrJobActive = errors.New("job is still active")
)

// JobKind selects what a job runs.
type JobKind string

const (
	// KindSearch runs a single dataset search.
	KindSearch JobKind = "search"
	// KindBench runs the benchmark harness and persists a report.
	KindBench JobKind = "bench"
)

// BenchParams holds the bench-only part of a job configuration.
type BenchParams struct {
	Strategies []string `json:"strategies,omitempty"`
	Axes       []string `json:"axes,omitempty"`
	Threads    []int    `json:"threads,omitempty"`
	Repeats    int      `json:"repeats,omitempty"`
}

// JobConfig is the request body of POST /api/v1/jobs.
type JobConfig struct {
	Kind      JobKind `json:"kind"`
	DataDir   string  `json:"dataDir"`
	Prefix    string  `json:"prefix,omitempty"`
	QueryPath string  `json:"queryPath,omitempty"`

	Strategy  string `json:"strategy,omitempty"`
	Axis      string `json:"axis,omitempty"`
	Threads   int    `json:"threads,omitempty"`
	EarlyExit bool   `json:"earlyExit,omitempty"`

	Bench BenchParams `json:"bench,omitempty"`
}

// Progress counts finished units of work (bench runs, or 1 for a search).
type Progress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// Job represents a search or benchmark job
type Job struct {
	ID        string               `json:"id"`
	State     JobState             `json:"state"`
	Config    JobConfig            `json:"config"`
	Progress  Progress             `json:"progress"`
	Result    *match.DatasetResult `json:"result,omitempty"`
	ReportID  string               `json:"reportId,omitempty"`
	StartTime time.Time            `json:"startTime"`
	EndTime   *time.Time           `json:"endTime,omitempty"`
	Error     string               `json:"error,omitempty"`
}

// Elapsed returns the running time of the job so far.
func (j *Job) Elapsed() time.Duration {
	if j.EndTime != nil {
		return j.EndTime.Sub(j.StartTime)
	}
	return time.Since(j.StartTime)
}

// JobManager manages the lifecycle of jobs
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	broadcaster *EventBroadcaster
}

// NewJobManager creates a new JobManager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		broadcaster: NewEventBroadcaster(),
	}
}

// CreateJob creates a new pending job with the given configuration
func (jm *JobManager) CreateJob(config JobConfig) *Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:        uuid.NewString(),
		State:     StatePending,
		Config:    config,
		StartTime: time.Now(),
	}

	jm.jobs[job.ID] = job
	cp := *job
	return &cp
}

// GetJob returns a snapshot of the job with the given ID.
func (jm *JobManager) GetJob(id string) (*Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists {
		return nil, false
	}
	cp := *job
	return &cp, true
}

// ListJobs returns snapshots of all jobs, oldest first.
func (jm *JobManager) ListJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]*Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		cp := *job
		jobs = append(jobs, &cp)
	}
	slices.SortFunc(jobs, func(a, b *Job) int {
		return a.StartTime.Compare(b.StartTime)
	})
	return jobs
}

// UpdateJob atomically updates a job using the provided function
func (jm *JobManager) UpdateJob(id string, updateFn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	updateFn(job)
	return nil
}

// GetRunningJobs returns all jobs currently in the running state
func (jm *JobManager) GetRunningJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	runningJobs := make([]*Job, 0)
	for _, job := range jm.jobs {
		if job.State == StateRunning {
			cp := *job
			runningJobs = append(runningJobs, &cp)
		}
	}
	return runningJobs
}

// DeleteJob removes a finished job and its stream state. Jobs that are
// still pending or running cannot be deleted.
func (jm *JobManager) DeleteJob(id string) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if !job.State.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrJobActive, id, job.State)
	}

	delete(jm.jobs, id)
	jm.broadcaster.CleanupJob(id)
	return nil
}
