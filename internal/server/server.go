// Package server provides the HTTP API for clausefind.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/clausefind/internal/config"
	"github.com/hyperjump/clausefind/internal/ingest"
	"github.com/hyperjump/clausefind/internal/retrieval"
	"github.com/hyperjump/clausefind/internal/vector"
	"go.uber.org/zap"
)

// Server is the HTTP server for the search and ingestion API.
type Server struct {
	store     *vector.Store
	retriever *retrieval.Retriever
	ingester  *ingest.Ingester
	cache     ingest.DocumentCache
	config    *config.Config
	logger    *zap.Logger
	started   time.Time
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	store *vector.Store,
	retriever *retrieval.Retriever,
	ingester *ingest.Ingester,
	cache ingest.DocumentCache,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:     store,
		retriever: retriever,
		ingester:  ingester,
		cache:     cache,
		config:    cfg,
		logger:    logger,
		started:   time.Now(),
	}
}

// Router returns the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Post("/chunks", s.handleAddChunks)
		r.Post("/documents", s.handleIngestDocument)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Address()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
