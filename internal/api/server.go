// Package api exposes the assistant over HTTP: a chat endpoint for the
// conversation loop and a retrieve endpoint for direct memory search.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/quietlake/mnemo/internal/core"
	"github.com/quietlake/mnemo/internal/logger"
)

// ConversationService is the slice of the orchestrator the API depends on.
type ConversationService interface {
	Converse(ctx context.Context, sessionID, userText string) (string, error)
	Reset(sessionID string)
}

// StatsProvider reports embedding cache statistics.
type StatsProvider interface {
	Stats() core.CacheStats
}

// Server implements the HTTP API.
type Server struct {
	agent     ConversationService
	retriever core.MemorySearcher
	stats     StatsProvider
	router    *chi.Mux
	port      string
}

// NewServer creates the HTTP API server.
func NewServer(agent ConversationService, retriever core.MemorySearcher, stats StatsProvider, port string) *Server {
	s := &Server{
		agent:     agent,
		retriever: retriever,
		stats:     stats,
		port:      port,
	}
	s.setupRouter()
	return s
}

// setupRouter configures all HTTP routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		// Chat turns can take two model round-trips.
		r.Use(middleware.Timeout(5 * time.Minute))

		r.Post("/chat", s.handleChat)
		r.Post("/chat/reset", s.handleReset)
		r.Post("/retrieve", s.handleRetrieve)
		r.Get("/cache-stats", s.handleCacheStats)
	})

	s.router = r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve starts the HTTP server and blocks until ctx is cancelled or the
// listener fails.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", s.port),
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.APIInfo("HTTP server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// handleHealth returns 200 OK if the server is running.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	successResponse(w, map[string]string{"status": "healthy"})
}

// errorResponse writes a JSON error response.
func errorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// successResponse writes a JSON success response.
func successResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(data)
}
