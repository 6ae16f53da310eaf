// Package chi exposes the HTTP API on a go-chi router.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ovunque/nlsearch/internal/domain"
	"github.com/ovunque/nlsearch/internal/domain/audit"
	"github.com/ovunque/nlsearch/internal/domain/schema"
	healthuc "github.com/ovunque/nlsearch/internal/usecase/health"
	searchuc "github.com/ovunque/nlsearch/internal/usecase/search"
)

// Error codes returned in the JSON error body.
const (
	codeBadRequest       = "bad_request"
	codeUnauthorized     = "unauthorized"
	codeValidationFailed = "validation_failed"
	codeSchemaError      = "schema_error"
	codeParseFailed      = "parse_failed"
	codeNotFound         = "not_found"
	codeLLMRateLimited   = "llm_rate_limited"
	codeLLMUnavailable   = "llm_unavailable"
	codeInternalError    = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server wires the usecase services to HTTP handlers.
type Server struct {
	search        *searchuc.Service
	registry      *schema.Registry
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	registry *schema.Registry,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:   search,
		registry: registry,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		fieldErrorHandler,
		sentinelHandler(domain.ErrParse, http.StatusUnprocessableEntity, codeParseFailed),
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrSchema, http.StatusBadRequest, codeSchemaError),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrLLMRateLimited, http.StatusTooManyRequests, codeLLMRateLimited),
		sentinelHandler(domain.ErrLLMAuth, http.StatusBadGateway, codeLLMUnavailable),
		sentinelHandler(domain.ErrLLMUnavailable, http.StatusBadGateway, codeLLMUnavailable),
	}
	return s
}

// Routes registers all endpoints on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.Search)
		r.Get("/schema/{entity}", s.GetSchema)
		r.Get("/categories", s.ListCategories)
		r.Get("/queries/{id}", s.GetQuery)
		r.Put("/records/{entity}/{id}", s.PutRecord)
		r.Post("/records/{entity}", s.PutRecords)
		r.Delete("/records/{entity}/{id}", s.DeleteRecord)
	})
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// SearchRequest is the POST /search body.
type SearchRequest struct {
	Query    string `json:"query"`
	Category string `json:"category"`
	User     string `json:"user,omitempty"`
}

// SearchResponse is the POST /search reply. Count carries the true
// match count; Results is the capped display subset.
type SearchResponse struct {
	Success   bool            `json:"success"`
	QueryID   int64           `json:"query_id,omitempty"`
	Entity    string          `json:"entity,omitempty"`
	QueryType string          `json:"query_type,omitempty"`
	Executed  string          `json:"executed,omitempty"`
	Count     int             `json:"count"`
	Results   []searchuc.Item `json:"results"`
	Error     *ErrorBody      `json:"error,omitempty"`
}

// ErrorBody is the JSON error payload shared by all endpoints.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Search handles POST /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	out, err := s.search.Search(r.Context(), searchuc.Request{
		Text:     req.Query,
		Category: req.Category,
		User:     req.User,
	})
	if err != nil {
		s.handleSearchError(w, out.QueryID, err)
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Success:   true,
		QueryID:   out.QueryID,
		Entity:    out.Entity,
		QueryType: string(out.QueryType),
		Executed:  out.Executed,
		Count:     out.Count,
		Results:   out.Results,
	})
}

// handleSearchError renders a failed search with the audit row id so
// the caller can look up the recorded failure.
func (s *Server) handleSearchError(w http.ResponseWriter, queryID int64, err error) {
	s.logger.Warn("search failed", zap.Int64("query_id", queryID), zap.Error(err))

	status, code := statusForError(err)
	msg := safeDomainMessage(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("internal error", zap.Error(err))
	}
	writeJSON(w, status, SearchResponse{
		Success: false,
		QueryID: queryID,
		Results: []searchuc.Item{},
		Error:   &ErrorBody{Code: code, Message: msg},
	})
}

// SchemaResponse describes one entity for the debug surface.
type SchemaResponse struct {
	Entity         string        `json:"entity"`
	Description    string        `json:"description"`
	StoredFields   []SchemaField `json:"stored_fields"`
	ComputedFields []string      `json:"computed_fields"`
}

// SchemaField is one stored attribute in a SchemaResponse.
type SchemaField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Label    string `json:"label"`
	Relation string `json:"relation,omitempty"`
}

// GetSchema handles GET /api/v1/schema/{entity}.
func (s *Server) GetSchema(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "entity")
	e, ok := s.registry.Entity(name)
	if !ok {
		writeError(w, http.StatusNotFound, codeNotFound, "unknown entity "+strconv.Quote(name))
		return
	}

	fields := make([]SchemaField, 0, len(e.StoredFields()))
	for _, f := range e.StoredFields() {
		fields = append(fields, SchemaField{
			Name:     f.Name(),
			Type:     string(f.FieldType()),
			Label:    f.Label(),
			Relation: f.Relation(),
		})
	}

	writeJSON(w, http.StatusOK, SchemaResponse{
		Entity:         e.Name(),
		Description:    e.Description(),
		StoredFields:   fields,
		ComputedFields: e.ComputedFieldNames(),
	})
}

// ListCategories handles GET /api/v1/categories.
func (s *Server) ListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": s.registry.Categories(),
		"entities":   s.registry.EntityNames(),
	})
}

// QueryResponse is the audit view of one past search.
type QueryResponse struct {
	ID            int64         `json:"id"`
	Text          string        `json:"text"`
	Category      string        `json:"category,omitempty"`
	User          string        `json:"user,omitempty"`
	Entity        string        `json:"entity,omitempty"`
	QueryType     string        `json:"query_type,omitempty"`
	Status        string        `json:"status"`
	Executed      string        `json:"executed,omitempty"`
	Substitutions []string      `json:"substitutions,omitempty"`
	ResultCount   int           `json:"result_count"`
	ErrorMessage  string        `json:"error_message,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	Results       []QueryResult `json:"results"`
}

// QueryResult is one stored result row of a past search.
type QueryResult struct {
	Position    int    `json:"position"`
	RecordID    int64  `json:"record_id"`
	Entity      string `json:"entity"`
	DisplayName string `json:"display_name"`
}

// GetQuery handles GET /api/v1/queries/{id}.
func (s *Server) GetQuery(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "query id must be an integer")
		return
	}

	row, results, err := s.search.Query(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, queryToResponse(row, results))
}

func queryToResponse(row audit.SearchQuery, results []audit.SearchResult) QueryResponse {
	items := make([]QueryResult, len(results))
	for i, res := range results {
		items[i] = QueryResult{
			Position:    res.Position(),
			RecordID:    res.RecordID(),
			Entity:      res.Entity(),
			DisplayName: res.DisplayName(),
		}
	}
	return QueryResponse{
		ID:            row.ID(),
		Text:          row.Text(),
		Category:      row.Category(),
		User:          row.User(),
		Entity:        row.Entity(),
		QueryType:     string(row.QueryType()),
		Status:        string(row.Status()),
		Executed:      row.FilterText(),
		Substitutions: row.Substitutions(),
		ResultCount:   row.ResultCount(),
		ErrorMessage:  row.ErrorMessage(),
		CreatedAt:     row.CreatedAt(),
		Results:       items,
	}
}

// PutRecordRequest is the PUT /records body.
type PutRecordRequest struct {
	Values map[string]any `json:"values"`
}

// PutRecord handles PUT /api/v1/records/{entity}/{id}.
func (s *Server) PutRecord(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "record id must be an integer")
		return
	}

	var req PutRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	rec, err := s.search.PutRecord(r.Context(), entity, id, req.Values)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":           rec.ID(),
		"entity":       rec.Entity(),
		"display_name": rec.DisplayName(),
	})
}

// PutRecordsRequest is the bulk ingest body.
type PutRecordsRequest struct {
	Records []searchuc.RecordInput `json:"records"`
}

// PutRecords handles POST /api/v1/records/{entity}.
func (s *Server) PutRecords(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")

	var req PutRecordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Records) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "records must not be empty")
		return
	}

	n, err := s.search.PutRecords(r.Context(), entity, req.Records)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"stored": n})
}

// DeleteRecord handles DELETE /api/v1/records/{entity}/{id}.
func (s *Server) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "record id must be an integer")
		return
	}

	if err := s.search.DeleteRecord(r.Context(), entity, id); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorBody{Code: code, Message: message})
}

// safeDomainMessage returns a client-facing message without exposing internals.
func safeDomainMessage(err error) string {
	var fieldErr *domain.FieldError
	if errors.As(err, &fieldErr) {
		return fieldErr.Error()
	}
	var parseErr *domain.ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Error()
	}
	sentinels := []error{
		domain.ErrValidation,
		domain.ErrSchema,
		domain.ErrParse,
		domain.ErrNotFound,
		domain.ErrLLMRateLimited,
		domain.ErrLLMAuth,
		domain.ErrLLMUnavailable,
	}
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal error"
}

// statusForError maps a domain error to an HTTP status and body code.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrParse):
		return http.StatusUnprocessableEntity, codeParseFailed
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, codeValidationFailed
	case errors.Is(err, domain.ErrSchema):
		return http.StatusBadRequest, codeSchemaError
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, domain.ErrLLMRateLimited):
		return http.StatusTooManyRequests, codeLLMRateLimited
	case errors.Is(err, domain.ErrLLMAuth), errors.Is(err, domain.ErrLLMUnavailable):
		return http.StatusBadGateway, codeLLMUnavailable
	default:
		return http.StatusInternalServerError, codeInternalError
	}
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// fieldErrorHandler renders field validation errors with the stored
// alternatives so clients can correct the attribute.
func fieldErrorHandler(w http.ResponseWriter, err error, msg string) bool {
	var fieldErr *domain.FieldError
	if !errors.As(err, &fieldErr) {
		return false
	}
	status, code := statusForError(err)
	writeJSON(w, status, map[string]any{
		"code":         code,
		"message":      msg,
		"entity":       fieldErr.Entity,
		"field":        fieldErr.Field,
		"alternatives": fieldErr.Alternatives,
	})
	return true
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
