package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/clausefind/internal/expand"
	"github.com/hyperjump/clausefind/internal/ingest"
	"github.com/hyperjump/clausefind/internal/models"
	"github.com/hyperjump/clausefind/internal/retrieval"
	"github.com/hyperjump/clausefind/internal/storage"
	"github.com/hyperjump/clausefind/internal/vector"
	"go.uber.org/zap"
)

const maxBodyBytes = 64 << 20

type addChunksRequest struct {
	Chunks []models.Chunk `json:"chunks"`
}

type addChunksResponse struct {
	BatchID   string `json:"batch_id"`
	Added     int    `json:"added"`
	IndexSize int    `json:"index_size"`
}

type ingestDocumentRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req models.RetrieveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(s.config.Retrieval.TopK, s.config.Retrieval.MaxTopK); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.retriever == nil {
		s.respondError(w, http.StatusServiceUnavailable, "index not loaded")
		return
	}
	s.logger.Debug("search request", zap.String("query", req.Query), zap.Int("top_k", req.TopK))
	response, err := s.retriever.Retrieve(r.Context(), req.Query, req.TopK)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, errorStatus(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleAddChunks(w http.ResponseWriter, r *http.Request) {
	var req addChunksRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Chunks) == 0 {
		s.respondError(w, http.StatusBadRequest, "chunks cannot be empty")
		return
	}
	batchID := uuid.New().String()
	s.logger.Debug("add chunks request", zap.String("batch_id", batchID), zap.Int("chunks", len(req.Chunks)))
	if err := s.ingester.Ingest(r.Context(), req.Chunks); err != nil {
		s.logger.Error("add chunks failed", zap.String("batch_id", batchID), zap.Error(err))
		s.respondError(w, errorStatus(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, addChunksResponse{
		BatchID:   batchID,
		Added:     len(req.Chunks),
		IndexSize: s.store.Size(),
	})
}

func (s *Server) handleIngestDocument(w http.ResponseWriter, r *http.Request) {
	var req ingestDocumentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	s.logger.Debug("ingest document request", zap.String("path", req.Path))
	res, err := s.ingester.IngestDocument(r.Context(), req.Path)
	if err != nil {
		s.logger.Error("ingest failed", zap.String("path", req.Path), zap.Error(err))
		s.respondError(w, errorStatus(err), err.Error())
		return
	}
	status := http.StatusCreated
	if res.Skipped {
		status = http.StatusOK
	}
	s.respondJSON(w, status, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	indexPath, metadataPath := s.store.Paths()
	resp := map[string]interface{}{
		"index_size":       s.store.Size(),
		"index_type":       s.store.Type(),
		"dimensions":       s.store.Dimensions(),
		"uptime_seconds":   int64(time.Since(s.started).Seconds()),
		"expansion_active": s.config.Expansion.Enabled,
	}
	if s.cache != nil {
		n, err := s.cache.Len()
		if err != nil {
			s.logger.Error("status: count documents failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["documents"] = n
	}
	if diskBytes, err := storage.DiskUsageBytes(indexPath, metadataPath, s.config.Storage.CacheFile()); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = map[string]interface{}{
		"index_path":    indexPath,
		"metadata_path": metadataPath,
		"cache_backend": s.config.Storage.CacheBackend,
		"embedding":     s.config.Embedding.Model,
		"heading":       s.config.Heading.Encoder,
		"top_k":         s.config.Retrieval.TopK,
		"boost_weight":  s.config.Retrieval.BoostWeightOrDefault(),
		"chunk_size":    s.config.Chunking.ChunkSize,
		"chunk_overlap": s.config.Chunking.ChunkOverlap,
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// errorStatus maps pipeline errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, vector.ErrDimensionMismatch),
		errors.Is(err, retrieval.ErrEmptyQuery),
		errors.Is(err, ingest.ErrNoContent):
		return http.StatusBadRequest
	case errors.Is(err, vector.ErrNotFound):
		return http.StatusServiceUnavailable
	case errors.Is(err, retrieval.ErrEmbeddingUnavailable),
		errors.Is(err, expand.ErrExpansionFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
