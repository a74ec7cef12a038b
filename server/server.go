package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kbase/kbsearch/internal/models"
	"github.com/kbase/kbsearch/internal/types"
	"github.com/kbase/kbsearch/pkg/config"
	"github.com/kbase/kbsearch/pkg/ingest"
	"github.com/kbase/kbsearch/pkg/rag"
	"github.com/kbase/kbsearch/pkg/registry"
)

type Config struct {
	Port           string
	UploadDir      string
	CollectionName string
}

// Server exposes the ingestion and query pipelines over HTTP.
type Server struct {
	config   Config
	pipeline *ingest.Pipeline
	engine   *rag.Engine
	registry *registry.Registry
	index    types.VectorIndex
}

func New(cfg Config, pipeline *ingest.Pipeline, engine *rag.Engine, reg *registry.Registry, index types.VectorIndex) *Server {
	return &Server{
		config:   cfg,
		pipeline: pipeline,
		engine:   engine,
		registry: reg,
		index:    index,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/documents/upload", s.handleUpload)
	mux.HandleFunc("GET /api/documents", s.handleListDocuments)
	mux.HandleFunc("GET /api/documents/stats", s.handleStats)
	mux.HandleFunc("GET /api/documents/{id}", s.handleGetDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", s.handleDeleteDocument)

	mux.HandleFunc("POST /api/query", s.handleQuery)
	mux.HandleFunc("GET /api/query/history", s.handleHistory)
	mux.HandleFunc("DELETE /api/query/history", s.handleClearHistory)
	mux.HandleFunc("POST /api/query/test", s.handleQueryTest)

	mux.HandleFunc("GET /health", s.handleHealth)

	return mux
}

func (s *Server) ListenAndServe() error {
	addr := ":" + s.config.Port
	log.Printf("Starting server on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// documentUpload is the upload response payload.
type documentUpload struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	UploadTime time.Time `json:"upload_time"`
	Status     string    `json:"status"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// hard cap before any processing
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxFileSize+4096)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeDetail(w, http.StatusBadRequest,
				fmt.Sprintf("File size exceeds maximum limit of %d bytes", config.MaxFileSize))
			return
		}
		s.writeDetail(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		s.writeDetail(w, http.StatusBadRequest, "Only PDF files are supported")
		return
	}

	if header.Size > config.MaxFileSize {
		s.writeDetail(w, http.StatusBadRequest,
			fmt.Sprintf("File size exceeds maximum limit of %d bytes", config.MaxFileSize))
		return
	}

	dst, path, err := ingest.CreateUpload(s.config.UploadDir, filepath.Base(header.Filename))
	if err != nil {
		s.writeDetail(w, http.StatusInternalServerError, "Failed to save uploaded file")
		return
	}

	_, err = io.Copy(dst, file)
	dst.Close()
	if err != nil {
		os.Remove(path)
		s.writeDetail(w, http.StatusInternalServerError, "Failed to save uploaded file")
		return
	}

	rec, err := s.pipeline.Ingest(r.Context(), path, header.Filename)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, documentUpload{
		ID:         rec.ID,
		Filename:   rec.Filename,
		Size:       rec.SizeBytes,
		UploadTime: rec.UploadTime,
		Status:     rec.Status,
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.registry.List())
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	rec, err := s.registry.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	rec, err := s.pipeline.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Document %s deleted successfully", rec.Filename),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	totalChunks, err := s.index.Count(r.Context())
	if err != nil {
		s.writeDetail(w, http.StatusInternalServerError, "Failed to get collection statistics")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"total_chunks":    totalChunks,
		"collection_name": s.config.CollectionName,
		"total_documents": s.registry.Len(),
	})
}

type queryRequest struct {
	Question   string `json:"question"`
	MaxResults int    `json:"max_results"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.engine.Answer(r.Context(), req.Question, req.MaxResults)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeDetail(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	history := s.engine.History()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"queries":     history.Recent(limit),
		"total_count": history.Len(),
	})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	s.engine.History().Clear()
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": "Query history cleared successfully",
	})
}

// handleQueryTest is a diagnostic endpoint: it reports whether the index has
// content and runs a sample search without calling the generator.
func (s *Server) handleQueryTest(w http.ResponseWriter, r *http.Request) {
	question := r.URL.Query().Get("question")
	if question == "" {
		question = "What is this document about?"
	}

	totalChunks, err := s.index.Count(r.Context())
	if err != nil {
		s.writeDetail(w, http.StatusInternalServerError, "Failed to get collection statistics")
		return
	}

	if totalChunks == 0 {
		s.writeJSON(w, http.StatusOK, map[string]any{
			"message":      "No documents found in the knowledge base. Please upload some PDF documents first.",
			"total_chunks": 0,
		})
		return
	}

	results, err := s.index.Search(r.Context(), question, 3)
	if err != nil {
		s.writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("Query system test failed: %v", err))
		return
	}

	sample := make([]map[string]any, 0, len(results))
	for _, res := range results {
		sample = append(sample, map[string]any{
			"id":          res.ID,
			"document_id": res.Metadata.DocumentID,
			"chunk_index": res.Metadata.ChunkIndex,
			"distance":    res.Distance,
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"message":            "Query system is working",
		"total_chunks":       totalChunks,
		"test_question":      question,
		"test_results_count": len(results),
		"sample_results":     sample,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": config.Version,
	})
}

// writeError maps the error taxonomy to HTTP statuses in one place.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		validationErr *models.ValidationError
		notFoundErr   *models.NotFoundError
		extractErr    *models.ExtractionError
		emptyErr      *models.EmptyContentError
		indexErr      *models.IndexingError
	)

	switch {
	case errors.As(err, &validationErr):
		s.writeDetail(w, http.StatusBadRequest, validationErr.Message)
	case errors.As(err, &notFoundErr):
		s.writeDetail(w, http.StatusNotFound, "Document not found")
	case errors.As(err, &extractErr):
		s.writeDetail(w, http.StatusBadRequest, "Failed to extract text from PDF")
	case errors.As(err, &emptyErr):
		s.writeDetail(w, http.StatusBadRequest, "No text content found in PDF")
	case errors.As(err, &indexErr):
		s.writeDetail(w, http.StatusInternalServerError, "Failed to index document")
	default:
		log.Printf("internal error: %v", err)
		s.writeDetail(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (s *Server) writeDetail(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, map[string]string{"detail": detail})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
