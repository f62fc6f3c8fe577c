package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/config"
	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/store"
)

// Server represents the HTTP server
type Server struct {
	cfg        *config.Config
	jobManager *JobManager
	worker     *worker
	reports    store.Store
	metrics    *Metrics
	limiter    *rate.Limiter
	server     *http.Server

	// Jobs run under baseCtx so that Shutdown can stop them.
	baseCtx    context.Context
	stopJobs   context.CancelFunc
	mu         sync.Mutex
	jobCancels map[string]context.CancelFunc
	jobs       sync.WaitGroup
}

// NewServer creates a new HTTP server. reports may be nil, in which case
// bench jobs fail and the report routes answer 503.
func NewServer(cfg *config.Config, reports store.Store) *Server {
	jm := NewJobManager()
	metrics := NewMetrics()
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		cfg:        cfg,
		jobManager: jm,
		worker:     &worker{jm: jm, reports: reports, metrics: metrics},
		reports:    reports,
		metrics:    metrics,
		limiter:    rate.NewLimiter(rate.Limit(cfg.Server.JobsPerSecond), cfg.Server.Burst),
		baseCtx:    ctx,
		stopJobs:   cancel,
		jobCancels: make(map[string]context.CancelFunc),
	}
}

// Handler returns the routed and wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/jobs", s.handleJobs)
	mux.HandleFunc("/api/v1/jobs/", s.handleJobsWithID)
	mux.HandleFunc("/api/v1/reports", s.handleListReports)
	mux.HandleFunc("/api/v1/reports/", s.handleReportsWithID)
	mux.Handle("/metrics", s.metrics.Handler())

	return s.loggingMiddleware(s.corsMiddleware(mux))
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	slog.Info("Starting HTTP server", "addr", s.cfg.Server.Addr)
	return srv.ListenAndServe()
}

// Shutdown stops accepting requests, cancels running jobs and waits for
// them to record their final state.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server", "running_jobs", len(s.jobManager.GetRunningJobs()))

	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}

	s.stopJobs()
	done := make(chan struct{})
	go func() {
		s.jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return errors.Join(err, ctx.Err())
	}
	return err
}

// handleJobs handles /api/v1/jobs
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateJob(w, r)
	case http.MethodGet:
		s.handleListJobs(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleJobsWithID handles /api/v1/jobs/:id/*
func (s *Server) handleJobsWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Job ID required", http.StatusBadRequest)
		return
	}
	jobID := parts[0]

	sub := ""
	if len(parts) > 1 {
		sub = parts[1]
	}

	switch {
	case (sub == "" || sub == "status") && r.Method == http.MethodGet:
		s.handleGetJobStatus(w, r, jobID)
	case sub == "" && r.Method == http.MethodDelete:
		s.handleDeleteJob(w, r, jobID)
	case sub == "stream" && r.Method == http.MethodGet:
		s.handleJobStream(w, r, jobID)
	case sub == "cancel" && r.Method == http.MethodPost:
		s.handleCancelJob(w, r, jobID)
	case sub == "" || sub == "status" || sub == "stream" || sub == "cancel":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// handleCreateJob handles POST /api/v1/jobs
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		s.metrics.RejectedJobsTotal.Inc()
		w.Header().Set("Retry-After", "1")
		http.Error(w, "Too many jobs, retry later", http.StatusTooManyRequests)
		return
	}

	var jc JobConfig
	if err := json.NewDecoder(r.Body).Decode(&jc); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}
	applyDefaults(&jc, s.cfg)
	if err := validateJobConfig(jc); err != nil {
		http.Error(w, fmt.Sprintf("Invalid job: %v", err), http.StatusBadRequest)
		return
	}

	job := s.jobManager.CreateJob(jc)
	s.launch(job.ID)

	writeJSON(w, http.StatusCreated, job)
}

// launch runs a job in the background under its own cancellable context.
func (s *Server) launch(jobID string) {
	ctx, cancel := context.WithCancel(s.baseCtx)
	s.mu.Lock()
	s.jobCancels[jobID] = cancel
	s.mu.Unlock()

	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		defer func() {
			s.mu.Lock()
			delete(s.jobCancels, jobID)
			s.mu.Unlock()
			cancel()
		}()
		s.worker.runJob(ctx, jobID)
	}()
}

// handleListJobs handles GET /api/v1/jobs
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.jobManager.ListJobs())
}

// jobStatus is a job plus its derived timing.
type jobStatus struct {
	*Job
	Elapsed float64 `json:"elapsed"`
}

// handleGetJobStatus handles GET /api/v1/jobs/:id/status
func (s *Server) handleGetJobStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, jobStatus{Job: job, Elapsed: job.Elapsed().Seconds()})
}

// handleCancelJob handles POST /api/v1/jobs/:id/cancel
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	if job.State.Terminal() {
		http.Error(w, fmt.Sprintf("Job already %s", job.State), http.StatusConflict)
		return
	}

	s.mu.Lock()
	cancel, ok := s.jobCancels[jobID]
	s.mu.Unlock()
	if ok {
		cancel()
	}

	slog.Info("Job cancellation requested", "job_id", jobID)
	w.WriteHeader(http.StatusAccepted)
}

// handleDeleteJob handles DELETE /api/v1/jobs/:id
func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request, jobID string) {
	err := s.jobManager.DeleteJob(jobID)
	switch {
	case errors.Is(err, ErrJobNotFound):
		http.Error(w, "Job not found", http.StatusNotFound)
	case errors.Is(err, ErrJobActive):
		http.Error(w, err.Error(), http.StatusConflict)
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleListReports handles GET /api/v1/reports
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.reports == nil {
		http.Error(w, "No report store configured", http.StatusServiceUnavailable)
		return
	}

	infos, err := s.reports.ListReports()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to list reports: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

// handleReportsWithID handles /api/v1/reports/:id[/trace]
func (s *Server) handleReportsWithID(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		http.Error(w, "No report store configured", http.StatusServiceUnavailable)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v1/reports/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Report ID required", http.StatusBadRequest)
		return
	}
	id := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		report, err := s.reports.LoadReport(id)
		if err != nil {
			s.reportError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, report)

	case len(parts) == 1 && r.Method == http.MethodDelete:
		if err := s.reports.DeleteReport(id); err != nil {
			s.reportError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case len(parts) == 2 && parts[1] == "trace" && r.Method == http.MethodGet:
		fs, ok := s.reports.(*store.FSStore)
		if !ok {
			http.Error(w, "Traces not available", http.StatusNotFound)
			return
		}
		entries, err := store.ReadTrace(fs.BaseDir(), id)
		if err != nil {
			s.reportError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)

	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

func (s *Server) reportError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Report not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
