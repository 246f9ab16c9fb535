// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/piloturl/test-analysis/internal/config"
	"github.com/piloturl/test-analysis/internal/pipeline"
)

const serviceName = "test-analysis"

// Server routes API requests to the pipeline orchestrator.
type Server struct {
	cfg  *config.Config
	orch *pipeline.Orchestrator
}

// New creates the server.
func New(cfg *config.Config, orch *pipeline.Orchestrator) *Server {
	return &Server{cfg: cfg, orch: orch}
}

// Router assembles the middleware chain and routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Correlation-Id", "X-API-Version"},
		MaxAge:         300,
	}))
	r.Use(withCorrelationID)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(requireAPIVersion)
		r.Use(s.requireAuth)
		r.Post("/test-analysis-recommendation", s.handleAnalyze)
	})

	return r
}

// ListenAndServe blocks serving HTTP until the listener fails.
func (s *Server) ListenAndServe() error {
	return s.HTTPServer().ListenAndServe()
}

// HTTPServer builds the configured http.Server for the router.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "ok",
		"service":     serviceName,
		"environment": s.cfg.Server.Environment,
	})
}
