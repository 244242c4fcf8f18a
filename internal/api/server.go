package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/layertree/internal/config"
	"github.com/dgallion1/layertree/internal/metrics"
	"github.com/dgallion1/layertree/internal/pipeline"
	"github.com/dgallion1/layertree/internal/present"
	"github.com/dgallion1/layertree/internal/selection"
)

// Server is the HTTP API server for layertree.
type Server struct {
	router       chi.Router
	workspace    *selection.Workspace
	orchestrator *pipeline.Orchestrator
	events       *present.Broadcaster
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(ws *selection.Workspace, orch *pipeline.Orchestrator, events *present.Broadcaster, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		workspace:    ws,
		orchestrator: orch,
		events:       events,
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
	r.Use(metrics.Middleware)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/documents", s.handleUpload)
		r.Get("/api/documents", s.handleListDocuments)
		r.Get("/api/documents/{docID}", s.handleGetDocument)
		r.Delete("/api/documents/{docID}", s.handleDeleteDocument)

		r.Put("/api/selection", s.handleSelect)
		r.Get("/api/selection", s.handleGetSelection)
		r.Delete("/api/selection", s.handleClearSelection)

		r.Post("/api/refresh", s.handleRefresh)
		r.Get("/api/options", s.handleOptions)
		r.Get("/api/runs/{runID}", s.handleGetRun)

		r.Get("/api/events", present.SSEHandler(s.events, s.log))
		r.Get("/api/ws", present.WSHandler(s.events, s.orchestrator, s.log))
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"documents":   len(s.workspace.List()),
		"subscribers": s.events.Count(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
