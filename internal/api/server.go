package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dgallion1/docmerge/internal/config"
	"github.com/dgallion1/docmerge/internal/metrics"
	"github.com/dgallion1/docmerge/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the preview HTTP server for docmerge.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	metrics      *metrics.Recorder
	input        string
	log          *slog.Logger
	cfg          config.Config
}

// NewServer serves the latest build of input and accepts rebuild requests.
func NewServer(orch *pipeline.Orchestrator, rec *metrics.Recorder, input string, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		metrics:      rec,
		input:        input,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleDocument)
	r.Get("/document.html", s.handleDocument)
	r.Get("/api/toc", s.handleTOC)
	r.Get("/api/builds/{jobID}", s.handleBuildStatus)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}
		r.Post("/api/builds", s.handleBuild)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}
