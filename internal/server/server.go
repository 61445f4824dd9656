package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cwbudde/analysisexchange/internal/analysis"
	"github.com/cwbudde/analysisexchange/internal/exchange"
	"github.com/cwbudde/analysisexchange/internal/opt"
	"github.com/cwbudde/analysisexchange/internal/problems"
	"github.com/cwbudde/analysisexchange/internal/store"
)

// maxRequestBytes limits textual analysis requests.
const maxRequestBytes = 1 << 20

// Server represents the HTTP server
type Server struct {
	jobManager *JobManager
	store      store.Store
	defaults   JobConfig
	addr       string
	server     *http.Server

	// ctx is the parent of every job context; cancel stops all jobs.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a new HTTP server. Zero fields of submitted job configs
// are taken from defaults. runStore may be nil, in which case jobs are
// neither traced nor saved.
func NewServer(addr string, runStore store.Store, defaults JobConfig) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		jobManager: NewJobManager(),
		store:      runStore,
		defaults:   defaults,
		addr:       addr,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Register UI routes
	mux.HandleFunc("/", s.handleIndex)

	// Register API routes
	mux.HandleFunc("/api/v1/jobs", s.handleJobs)
	mux.HandleFunc("/api/v1/jobs/", s.handleJobsWithID)
	mux.HandleFunc("/api/v1/problems", s.handleProblems)
	mux.HandleFunc("/api/v1/analyse", s.handleAnalyse)
	mux.HandleFunc("/api/v1/runs", s.handleRuns)
	mux.HandleFunc("/api/v1/runs/", s.handleRunWithID)
	mux.Handle("/metrics", promhttp.Handler())

	return s.loggingMiddleware(s.corsMiddleware(mux))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Starting HTTP server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown cancels running jobs and gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server", "running_jobs", len(s.jobManager.GetRunningJobs()))
	s.cancel()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleJobs handles /api/v1/jobs
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateJob(w, r)
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.jobManager.ListJobs())
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

	switch {
	case len(parts) == 1 || parts[1] == "status":
		s.handleGetJobStatus(w, r, jobID)
	case parts[1] == "cancel":
		s.handleCancelJob(w, r, jobID)
	case parts[1] == "stream":
		s.handleJobStream(w, r, jobID)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// createJobRequest is the body of POST /api/v1/jobs. ResumeFrom names a
// stored run to restart from; its config fills an empty problem.
type createJobRequest struct {
	JobConfig
	ResumeFrom string `json:"resumeFrom,omitempty"`
}

// handleCreateJob handles POST /api/v1/jobs
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	config := req.JobConfig
	if req.ResumeFrom != "" {
		if s.store == nil {
			http.Error(w, "Resuming needs a run store", http.StatusBadRequest)
			return
		}
		snapshot, err := s.store.LoadSnapshot(req.ResumeFrom)
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		} else if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if config.Problem == "" {
			config = snapshot.Config
		}
	}
	config = s.withDefaults(config)

	if err := config.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := problems.Lookup(config.Problem); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := s.jobManager.CreateJob(config)
	if req.ResumeFrom != "" {
		s.jobManager.UpdateJob(job.ID, func(j *Job) { j.ResumedFrom = req.ResumeFrom })
		job.ResumedFrom = req.ResumeFrom
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.jobManager.setCancel(job.ID, cancel)
	go runJob(ctx, s.jobManager, s.store, job.ID)

	writeJSON(w, http.StatusCreated, job)
}

// withDefaults fills the zero fields of config from the server defaults.
func (s *Server) withDefaults(config JobConfig) JobConfig {
	d := s.defaults
	if config.Problem == "" {
		config.Problem = d.Problem
	}
	if config.Iters <= 0 {
		config.Iters = d.Iters
	}
	if config.PopSize <= 0 {
		config.PopSize = d.PopSize
	}
	if config.Seed == 0 {
		config.Seed = d.Seed
	}
	if config.BarrierLength <= 0 {
		config.BarrierLength = d.BarrierLength
	}
	if config.BarrierHeight <= 0 {
		config.BarrierHeight = d.BarrierHeight
	}
	if config.EqualityTolerance <= 0 {
		config.EqualityTolerance = d.EqualityTolerance
	}
	return config
}

// handleGetJobStatus handles GET /api/v1/jobs/:id/status
func (s *Server) handleGetJobStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	var elapsed time.Duration
	if job.EndTime != nil {
		elapsed = job.EndTime.Sub(job.StartTime)
	} else {
		elapsed = time.Since(job.StartTime)
	}

	rate := float64(0)
	if elapsed.Seconds() > 0 {
		rate = float64(job.Evaluations) / elapsed.Seconds()
	}

	writeJSON(w, http.StatusOK, struct {
		Job
		Elapsed float64 `json:"elapsed"`
		Rate    float64 `json:"evaluationsPerSecond"`
	}{job, elapsed.Seconds(), rate})
}

// handleCancelJob handles POST /api/v1/jobs/:id/cancel
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request, jobID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, exists := s.jobManager.GetJob(jobID); !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	if !s.jobManager.CancelJob(jobID) {
		http.Error(w, "Job already finished", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// problemInfo describes a built-in problem.
type problemInfo struct {
	Name                   string    `json:"name"`
	Description            string    `json:"description"`
	NumParameters          int       `json:"numParameters"`
	NumConstraints         int       `json:"numConstraints"`
	NumEqualityConstraints int       `json:"numEqualityConstraints"`
	Lower                  []float64 `json:"lower"`
	Upper                  []float64 `json:"upper"`
}

// handleProblems handles GET /api/v1/problems
func (s *Server) handleProblems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	infos := []problemInfo{}
	for _, name := range problems.Names() {
		p, _ := problems.Lookup(name)
		infos = append(infos, problemInfo{
			Name:                   p.Name,
			Description:            p.Description,
			NumParameters:          p.NumParameters(),
			NumConstraints:         p.NumConstraints(),
			NumEqualityConstraints: p.NumEqualityConstraints(),
			Lower:                  p.Lower,
			Upper:                  p.Upper,
		})
	}
	writeJSON(w, http.StatusOK, infos)
}

// handleAnalyse handles POST /api/v1/analyse?problem=<name>. The body is a
// textual request message and the response is the textual result message.
// Analysis failures are reported inside the result through its error code.
func (s *Server) handleAnalyse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	p, err := problems.Lookup(r.URL.Query().Get("problem"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to read request: %v", err), http.StatusBadRequest)
		return
	}

	an, err := opt.NewAnalysis(p.Name, p, p.NumParameters(), p.NumConstraints(), p.NumEqualityConstraints())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	processor := &exchange.Processor{Analysis: an}

	text, err := processor.ProcessText(r.Context(), string(body))
	if text == "" {
		status := http.StatusInternalServerError
		if errors.Is(err, analysis.ErrParseFailure) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}
	if err != nil {
		slog.Debug("Analysis request failed", "problem", p.Name, "error", err)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, text+"\n")
}

// handleRuns handles GET /api/v1/runs
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		writeJSON(w, http.StatusOK, []store.SnapshotInfo{})
		return
	}
	infos, err := s.store.ListSnapshots()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

// handleRunWithID handles GET and DELETE /api/v1/runs/:id
func (s *Server) handleRunWithID(w http.ResponseWriter, r *http.Request) {
	runID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/runs/"), "/")
	if runID == "" || strings.Contains(runID, "/") {
		http.Error(w, "Run ID required", http.StatusBadRequest)
		return
	}
	if s.store == nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	var err error
	switch r.Method {
	case http.MethodGet:
		var snapshot *store.Snapshot
		if snapshot, err = s.store.LoadSnapshot(runID); err == nil {
			writeJSON(w, http.StatusOK, snapshot)
			return
		}
	case http.MethodDelete:
		if err = s.store.DeleteSnapshot(runID); err == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
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
