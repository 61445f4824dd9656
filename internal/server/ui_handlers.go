package server

import (
	"net/http"
	"path/filepath"

	"github.com/cwbudde/analysisexchange/internal/ui"
)

// handleIndex handles GET /
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	// Only handle exact root path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	jobs := s.jobManager.ListJobs()
	jobItems := make([]ui.JobListItem, len(jobs))
	for i, job := range jobs {
		analysisName := job.Config.Problem
		if len(job.Config.Command) > 0 {
			analysisName = filepath.Base(job.Config.Command[0])
		}
		jobItems[i] = ui.JobListItem{
			ID:          job.ID,
			State:       string(job.State),
			Problem:     job.Config.Problem,
			Analysis:    analysisName,
			Evaluations: job.Evaluations,
			BestMerit:   job.BestMerit,
			Feasible:    job.Feasible,
			StartTime:   job.StartTime,
			EndTime:     job.EndTime,
			Error:       job.Error,
		}
	}

	if err := ui.JobList(jobItems).Render(r.Context(), w); err != nil {
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
}
