package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dgallion1/docmerge/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

// handleDocument serves the merged HTML of the latest successful build.
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	res := s.orchestrator.Latest()
	if res == nil {
		jsonError(w, "no build available yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Last-Modified", res.BuiltAt.UTC().Format(http.TimeFormat))
	w.Write([]byte(res.HTML))
}

func (s *Server) handleTOC(w http.ResponseWriter, r *http.Request) {
	res := s.orchestrator.Latest()
	if res == nil {
		jsonError(w, "no build available yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"base_package": res.BasePackage,
		"built_at":     res.BuiltAt.Format(time.RFC3339),
		"entries":      res.TOC,
	})
}

// handleBuild queues a rebuild of the served folder.
func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	job := pipeline.NewJob(s.input, "", nil)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   job.ID,
		"status":   job.Snapshot().Status,
		"poll_url": fmt.Sprintf("/api/builds/%s", job.ID),
	})
}

func (s *Server) handleBuildStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
