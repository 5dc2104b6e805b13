package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/docoutline/internal/config"
	"github.com/dgallion1/docoutline/internal/pipeline"
	"github.com/dgallion1/docoutline/internal/stats"
	"github.com/dgallion1/docoutline/internal/store"
)

// Server is the HTTP API server for docoutline.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	worker       *pipeline.Worker
	results      *store.Store // nil when the result cache is disabled
	latency      *stats.Latency
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, w *pipeline.Worker, results *store.Store, latency *stats.Latency, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		worker:       w,
		results:      results,
		latency:      latency,
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

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey))

		r.Post("/api/outline", s.handleOutline)
		r.Post("/api/outline/jobs", s.handleSubmitJob)
		r.Post("/api/outline/jobs/batch", s.handleSubmitBatch)
		r.Get("/api/outline/jobs/{jobID}", s.handleJobStatus)

		r.Get("/api/results", s.handleListResults)
		r.Get("/api/results/{hash}", s.handleGetResult)
		r.Delete("/api/results/{hash}", s.handleDeleteResult)

		r.Get("/api/stats", s.handleStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
