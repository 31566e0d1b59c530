// Package api exposes the question-answering system over HTTP.
//
// Endpoints:
//
//	POST /api/query    -> answer a question (creates a session when absent)
//	GET  /api/courses  -> course analytics
//	GET  /health       -> liveness probe
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/petasbytes/course-agent/tools"
)

const (
	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout bounds header reads to resist slow-client attacks.
	ReadHeaderTimeout = 10 * time.Second
	ReadTimeout       = 30 * time.Second
	// WriteTimeout covers the whole query round trip, model calls included.
	WriteTimeout = 120 * time.Second
	IdleTimeout  = 120 * time.Second
)

// RAG is the application surface the HTTP layer needs.
type RAG interface {
	Query(ctx context.Context, query, sessionID string) (string, []tools.Source, error)
	Analytics() (int, []string)
	CreateSession() string
}

// Server is the HTTP server for the course assistant API.
type Server struct {
	mux    *http.ServeMux
	rag    RAG
	logger zerolog.Logger
}

// NewServer registers all routes.
func NewServer(rag RAG, logger zerolog.Logger) *Server {
	s := &Server{mux: http.NewServeMux(), rag: rag, logger: logger}
	s.mux.HandleFunc("POST /api/query", s.handleQuery)
	s.mux.HandleFunc("GET /api/courses", s.handleCourses)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
