package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/clausefind/internal/chunker"
	"github.com/hyperjump/clausefind/internal/config"
	"github.com/hyperjump/clausefind/internal/embedding"
	"github.com/hyperjump/clausefind/internal/extract"
	"github.com/hyperjump/clausefind/internal/ingest"
	"github.com/hyperjump/clausefind/internal/models"
	"github.com/hyperjump/clausefind/internal/retrieval"
	"github.com/hyperjump/clausefind/internal/vector"
	"go.uber.org/zap"
)

type testEnv struct {
	dir     string
	store   *vector.Store
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.IndexPath = filepath.Join(dir, "data", "faiss_index.bin")
	cfg.Storage.MetadataPath = filepath.Join(dir, "data", "metadata.json")
	cfg.Storage.CachePath = filepath.Join(dir, "data", "processed_docs.json")
	cfg.Embedding.Dimensions = 4

	store, err := vector.NewStore(cfg.Storage.IndexPath, cfg.Storage.MetadataPath, 4)
	if err != nil {
		t.Fatal(err)
	}
	embedder := embedding.NewMockEmbedder(4)
	embedder.SetVector("coverage details", []float32{0, 1, 0, 0})
	cache := ingest.NewCache(cfg.Storage.CachePath)
	ing := ingest.NewIngester(store, cache,
		ingest.WithExtractor(extract.NewExtractor()),
		ingest.WithSplitter(chunker.NewChunker(50, 10)),
		ingest.WithEmbedder(embedder),
	)
	ret, err := retrieval.NewRetriever(store, embedder)
	if err != nil {
		t.Fatal(err)
	}
	srv := NewServer(store, ret, ing, cache, cfg, zap.NewNop())
	return &testEnv{dir: dir, store: store, handler: srv.Router()}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	r := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	return w
}

func scenarioChunks() []models.Chunk {
	return []models.Chunk{
		{Text: "first", Metadata: map[string]interface{}{"headings": []string{}}, Embedding: []float32{1, 0, 0, 0}},
		{Text: "second", Metadata: map[string]interface{}{"headings": []string{"Coverage"}}, Embedding: []float32{0, 1, 0, 0}},
		{Text: "third", Metadata: map[string]interface{}{"headings": []string{}}, Embedding: []float32{0, 0, 1, 0}},
	}
}

func TestHandleHealth(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleAddChunksThenSearch(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodPost, "/api/v1/chunks", map[string]interface{}{"chunks": scenarioChunks()})
	if w.Code != http.StatusCreated {
		t.Fatalf("add chunks status %d: %s", w.Code, w.Body.String())
	}
	var added addChunksResponse
	if err := json.NewDecoder(w.Body).Decode(&added); err != nil {
		t.Fatal(err)
	}
	if added.BatchID == "" || added.Added != 3 || added.IndexSize != 3 {
		t.Errorf("add response = %+v", added)
	}

	w = e.do(t, http.MethodPost, "/api/v1/search", models.RetrieveRequest{Query: "coverage details", TopK: 2})
	if w.Code != http.StatusOK {
		t.Fatalf("search status %d: %s", w.Code, w.Body.String())
	}
	var resp models.RetrieveResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 || resp.Results[0].Text != "second" || resp.Results[0].Rank != 1 {
		t.Errorf("search response = %+v", resp)
	}
}

func TestHandleAddChunks_DimensionMismatch(t *testing.T) {
	e := newTestEnv(t)
	bad := []models.Chunk{{Text: "x", Embedding: []float32{1, 2}}}
	w := e.do(t, http.MethodPost, "/api/v1/chunks", map[string]interface{}{"chunks": bad})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
	if e.store.Size() != 0 {
		t.Error("store should be unchanged")
	}
}

func TestHandleSearch_EmbedderDimensionMismatch(t *testing.T) {
	e := newTestEnv(t)
	if w := e.do(t, http.MethodPost, "/api/v1/chunks", map[string]interface{}{"chunks": scenarioChunks()}); w.Code != http.StatusCreated {
		t.Fatalf("add chunks status %d", w.Code)
	}
	ret, err := retrieval.NewRetriever(e.store, embedding.NewMockEmbedder(3))
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	h := NewServer(e.store, ret, nil, nil, cfg, zap.NewNop()).Router()
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(models.RetrieveRequest{Query: "coverage details", TopK: 2})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/search", &buf))
	if w.Code != http.StatusBadGateway {
		t.Errorf("status: got %d, want 502", w.Code)
	}
}

func TestHandleSearch_BadRequests(t *testing.T) {
	e := newTestEnv(t)
	if w := e.do(t, http.MethodPost, "/api/v1/search", "{"); w.Code != http.StatusBadRequest {
		t.Errorf("malformed body: got %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/api/v1/search", models.RetrieveRequest{}); w.Code != http.StatusBadRequest {
		t.Errorf("empty query: got %d", w.Code)
	}
}

func TestHandleSearch_EmptyIndex(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodPost, "/api/v1/search", models.RetrieveRequest{Query: "anything"})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var resp models.RetrieveResponse
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Results) != 0 {
		t.Errorf("expected no results, got %d", len(resp.Results))
	}
}

func TestHandleIngestDocument(t *testing.T) {
	e := newTestEnv(t)
	path := filepath.Join(e.dir, "policy.md")
	if err := os.WriteFile(path, []byte("# Exclusions\nCosmetic procedures are excluded."), 0600); err != nil {
		t.Fatal(err)
	}
	w := e.do(t, http.MethodPost, "/api/v1/documents", ingestDocumentRequest{Path: path})
	if w.Code != http.StatusCreated {
		t.Fatalf("first ingest status %d: %s", w.Code, w.Body.String())
	}
	w = e.do(t, http.MethodPost, "/api/v1/documents", ingestDocumentRequest{Path: path})
	if w.Code != http.StatusOK {
		t.Fatalf("second ingest status %d", w.Code)
	}
	var res ingest.Result
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if !res.Skipped {
		t.Error("second ingest should be skipped")
	}
	if e.store.Size() != 1 {
		t.Errorf("index size = %d, want 1", e.store.Size())
	}
	if w := e.do(t, http.MethodPost, "/api/v1/documents", ingestDocumentRequest{}); w.Code != http.StatusBadRequest {
		t.Errorf("missing path: got %d", w.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	e := newTestEnv(t)
	_ = e.do(t, http.MethodPost, "/api/v1/chunks", map[string]interface{}{"chunks": scenarioChunks()})
	w := e.do(t, http.MethodGet, "/api/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var out map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["index_size"] != float64(3) || out["dimensions"] != float64(4) || out["index_type"] != "memory" {
		t.Errorf("status = %v", out)
	}
	if out["documents"] != float64(0) {
		t.Errorf("documents = %v", out["documents"])
	}
	if n, _ := out["disk_usage_bytes"].(float64); n <= 0 {
		t.Errorf("disk usage should count the persisted index, got %v", out["disk_usage_bytes"])
	}
}

func TestErrorStatus(t *testing.T) {
	cases := map[error]int{
		vector.ErrDimensionMismatch:              http.StatusBadRequest,
		vector.ErrNotFound:                       http.StatusServiceUnavailable,
		retrieval.ErrEmbeddingUnavailable:        http.StatusBadGateway,
		fmt.Errorf("x: %w", ingest.ErrNoContent): http.StatusBadRequest,
		errors.New("other"):                      http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := errorStatus(err); got != want {
			t.Errorf("errorStatus(%v) = %d, want %d", err, got, want)
		}
	}
}
