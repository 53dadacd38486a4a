package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/campushq/unidex/internal/domain"
	dombatch "github.com/campushq/unidex/internal/domain/batch"
	"github.com/campushq/unidex/internal/domain/schema"
	"github.com/campushq/unidex/internal/domain/search/mode"
	"github.com/campushq/unidex/internal/domain/search/request"
	documentuc "github.com/campushq/unidex/internal/usecase/document"
	healthuc "github.com/campushq/unidex/internal/usecase/health"
	ingestuc "github.com/campushq/unidex/internal/usecase/ingest"
	searchuc "github.com/campushq/unidex/internal/usecase/search"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the engine over HTTP.
type Server struct {
	ingest        *ingestuc.Service
	documents     *documentuc.Service
	search        *searchuc.Service
	health        *healthuc.Service
	schema        schema.Schema
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	ingest *ingestuc.Service,
	documents *documentuc.Service,
	search *searchuc.Service,
	health *healthuc.Service,
	s schema.Schema,
	logger *zap.Logger,
) *Server {
	srv := &Server{
		ingest:    ingest,
		documents: documents,
		search:    search,
		health:    health,
		schema:    s,
		logger:    logger,
	}
	srv.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidDocument, http.StatusBadRequest, codeInvalidDocument),
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, codeInvalidQuery),
		sentinelHandler(domain.ErrInvalidFilter, http.StatusBadRequest, codeInvalidFilter),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeVectorDimMismatch),
		sentinelHandler(domain.ErrEmbeddingUnavailable, http.StatusBadGateway, codeEmbeddingUnavailable),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, codeStoreUnavailable),
		sentinelHandler(domain.ErrFusionInvariant, http.StatusInternalServerError, codeFusionError),
	}
	return srv
}

// Routes mounts all API routes on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/search", s.Search)
	r.Post("/ingest", s.Ingest)
	r.Post("/batch_ingest", s.BatchIngest)
	r.Get("/document", s.GetDocument)
	r.Delete("/document", s.DeleteDocument)
	r.Post("/batch_get", s.BatchGet)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	filters, err := filtersFromWire(req.Filters)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	plan, err := request.New(
		req.Query, mode.Mode(req.SearchType), filters,
		req.ExcludeIDs, req.Limit, req.SortBy, s.schema,
	)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, total, err := s.search.Search(ctx, &plan)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]searchResultItem, len(results))
	for i := range results {
		items[i] = searchResultToWire(&results[i])
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, searchResponse{
		Success: true,
		Total:   total,
		Limit:   plan.Limit(),
		Results: items,
	})
}

// Ingest handles POST /ingest.
func (s *Server) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	doc, err := s.ingest.Upsert(ctx, req.Document.ID, req.Document.Payload)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, ingestResponse{
		Success:   true,
		ID:        doc.ID(),
		IndexedAt: doc.IndexedAt().UTC().Format(time.RFC3339Nano),
	})
}

// BatchIngest handles POST /batch_ingest.
func (s *Server) BatchIngest(w http.ResponseWriter, r *http.Request) {
	var req batchIngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.Documents) == 0 || len(req.Documents) > ingestuc.MaxBatchSize {
		writeError(w, http.StatusBadRequest, codeInvalidDocument,
			"documents count must be between 1 and "+strconv.Itoa(ingestuc.MaxBatchSize))
		return
	}

	items := make([]ingestuc.BatchItem, len(req.Documents))
	for i, d := range req.Documents {
		items[i] = ingestuc.BatchItem{ID: d.ID, Payload: d.Payload}
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results := s.ingest.BatchUpsert(ctx, items)

	succeeded, failed := 0, 0
	wire := make([]batchResultItem, len(results))
	for i, res := range results {
		wire[i] = batchResultToWire(res)
		if res.Status() == dombatch.StatusOK {
			succeeded++
		} else {
			failed++
		}
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, batchIngestResponse{
		Success:   failed == 0,
		Items:     wire,
		Succeeded: succeeded,
		Failed:    failed,
	})
}

// GetDocument handles GET /document?id=.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")

	doc, err := s.documents.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, documentResponse{
		Success:  true,
		Document: documentToWire(&doc),
	})
}

// BatchGet handles POST /batch_get.
func (s *Server) BatchGet(w http.ResponseWriter, r *http.Request) {
	var req batchGetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	docs, err := s.documents.BatchGet(r.Context(), req.IDs)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	wire := make([]documentWire, len(docs))
	for i := range docs {
		wire[i] = documentToWire(&docs[i])
	}

	writeJSON(w, http.StatusOK, batchGetResponse{
		Success:   true,
		Documents: wire,
	})
}

// DeleteDocument handles DELETE /document.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := s.ingest.Delete(r.Context(), req.ID); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, deleteResponse{Success: true})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := "healthy"
	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:    status,
		Checks:    checks,
		Documents: report.Documents,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Success: false,
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidDocument,
		domain.ErrInvalidQuery,
		domain.ErrInvalidFilter,
		domain.ErrNotFound,
		domain.ErrVectorDimMismatch,
		domain.ErrEmbeddingUnavailable,
		domain.ErrStoreUnavailable,
		domain.ErrFusionInvariant,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
