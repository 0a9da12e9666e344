// Package server exposes the durq host over HTTP: enqueue tasks, trigger
// drains, and inspect the durable queue. It is the surface a remote test
// client drives against a sandboxed instance.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/me/durq/internal/config"
	"github.com/me/durq/internal/queue"
	"github.com/me/durq/internal/scheduler"
	"github.com/me/durq/pkg/task"
)

// Server is the durq REST API server.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.ServerConfig
	startTime time.Time
	queue     *queue.Durable
	scheduler scheduler.Scheduler
	codec     *task.Codec
}

// New creates a Server with all routes registered.
func New(cfg config.ServerConfig, q *queue.Durable, sched scheduler.Scheduler, codec *task.Codec, logger *slog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		config:    cfg,
		startTime: time.Now(),
		queue:     q,
		scheduler: sched,
		codec:     codec,
	}
	s.routes()
	return s
}

// StartScheduler begins the background drain loop in its own goroutine.
func (s *Server) StartScheduler(ctx context.Context) {
	go func() {
		if err := s.scheduler.Start(ctx); err != nil && err != context.Canceled {
			s.logger.Error("scheduler stopped", "error", err)
		}
	}()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/tasks", s.handleAddTask)
		r.Post("/run", s.handleRun)
		r.Get("/queue", s.handleQueue)
	})
}
