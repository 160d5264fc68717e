// Package server exposes the question-answering service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kadirpekel/parley/pkg/agent"
	"github.com/kadirpekel/parley/pkg/observability"
	"github.com/kadirpekel/parley/pkg/rag"
	"github.com/kadirpekel/parley/pkg/store"
)

// QueryService answers user questions, optionally seeded with retrieved
// passages.
type QueryService interface {
	Query(ctx context.Context, question string, passages []string) (*agent.Answer, error)
}

// Options wires the server's collaborators.
type Options struct {
	Address string
	Agent   QueryService
	RAG     *rag.Service
	Store   store.EmployeeStore
	Metrics *observability.Metrics

	// MaxPassages caps the retrieved context per query.
	MaxPassages int
}

// Server is the HTTP front of the service.
type Server struct {
	address     string
	agent       QueryService
	rag         *rag.Service
	store       store.EmployeeStore
	metrics     *observability.Metrics
	maxPassages int
	logger      *slog.Logger
	httpServer  *http.Server
}

func New(opts Options) *Server {
	maxPassages := opts.MaxPassages
	if maxPassages <= 0 {
		maxPassages = 3
	}
	s := &Server{
		address:     opts.Address,
		agent:       opts.Agent,
		rag:         opts.RAG,
		store:       opts.Store,
		metrics:     opts.Metrics,
		maxPassages: maxPassages,
		logger:      slog.Default(),
	}
	s.httpServer = &http.Server{
		Addr:    opts.Address,
		Handler: s.Routes(),
	}
	return s
}

// Routes builds the router. Exposed separately so tests can drive the
// handler without a listener.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(observability.HTTPMiddleware(s.metrics))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Post("/query", s.handleQuery)
	r.Get("/employees/{id}", s.handleGetEmployee)
	r.Post("/reload", s.handleReload)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	return r
}

// Start serves until the context is cancelled, then drains in-flight
// requests.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "address", s.address)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(shutdownCtx)
}

type queryRequest struct {
	Query     string `json:"query"`
	MaxChunks int    `json:"max_chunks,omitempty"`
}

type queryResponse struct {
	Answer         string                 `json:"answer"`
	RelevantChunks []string               `json:"relevant_chunks"`
	ToolCalls      []agent.ToolCallRecord `json:"tool_calls,omitempty"`
	Degraded       bool                   `json:"degraded,omitempty"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Parley question-answering API",
		"endpoints": map[string]string{
			"query":     "/query",
			"health":    "/health",
			"employees": "/employees/{id}",
			"reload":    "/reload",
			"metrics":   "/metrics",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "healthy",
		"documents_loaded": s.rag.IsLoaded(),
		"retrieval_mode":   string(s.rag.Mode()),
		"passages":         s.rag.PassageCount(),
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if !s.rag.IsLoaded() {
		writeError(w, http.StatusServiceUnavailable, "service not initialized")
		return
	}
	maxChunks := req.MaxChunks
	if maxChunks <= 0 {
		maxChunks = s.maxPassages
	}

	started := time.Now()
	passages, err := s.rag.Retrieve(r.Context(), req.Query, maxChunks)
	if err != nil {
		s.metrics.RecordQuery(r.Context(), time.Since(started), err)
		s.logger.Error("Retrieval failed", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error processing query: %v", err))
		return
	}
	s.metrics.RecordRetrieval(r.Context(), string(s.rag.Mode()), len(passages))

	answer, err := s.agent.Query(r.Context(), req.Query, passages)
	s.metrics.RecordQuery(r.Context(), time.Since(started), err)
	if err != nil {
		s.logger.Error("Query failed", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error processing query: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Answer:         answer.Text,
		RelevantChunks: answer.Context,
		ToolCalls:      answer.ToolCalls,
		Degraded:       answer.Degraded,
	})
}

func (s *Server) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "employee store not configured")
		return
	}
	id := chi.URLParam(r, "id")
	emp, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		s.logger.Error("Employee lookup failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "employee lookup failed")
		return
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no employee found with ID %s", id))
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.rag.Load(r.Context()); err != nil {
		s.logger.Error("Reload failed", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error reloading documents: %v", err))
		return
	}
	s.metrics.RecordCorpusReload(r.Context(), string(s.rag.Mode()))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Documents reloaded successfully",
		"passages": s.rag.PassageCount(),
		"mode":     string(s.rag.Mode()),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
