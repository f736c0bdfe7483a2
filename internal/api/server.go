package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/enable-health/rewordify/internal/config"
	"github.com/enable-health/rewordify/internal/llm"
	"github.com/enable-health/rewordify/internal/pipeline"
)

// Runner runs one intake submission through the rewording pipeline.
type Runner interface {
	RunWith(ctx context.Context, sub pipeline.Submission, opts pipeline.Options) (*pipeline.Outcome, error)
}

// Server is the HTTP API server for rewordify.
type Server struct {
	router chi.Router
	runner Runner
	llm    *llm.Client
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(runner Runner, client *llm.Client, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		runner: runner,
		llm:    client,
		log:    log,
		cfg:    cfg,
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

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.ServiceAPIKey, s.log))

		r.Post("/api/rewordify", s.handleRewordify)
		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
