package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/solrsync/internal/domain"
	dombatch "github.com/kailas-cloud/solrsync/internal/domain/batch"
	domrec "github.com/kailas-cloud/solrsync/internal/domain/record"
	"github.com/kailas-cloud/solrsync/internal/domain/search/query"
	"github.com/kailas-cloud/solrsync/internal/domain/search/result"
	"github.com/kailas-cloud/solrsync/internal/logger"
	healthuc "github.com/kailas-cloud/solrsync/internal/usecase/health"
	searchuc "github.com/kailas-cloud/solrsync/internal/usecase/search"
)

// RecordService stores records and keeps the index in sync.
type RecordService interface {
	Save(ctx context.Context, rec domrec.Record) (created bool, err error)
	SaveMany(ctx context.Context, recordType string, recs []domrec.Record) []dombatch.Result
	Get(ctx context.Context, recordType, id string) (domrec.Record, error)
	Patch(ctx context.Context, recordType, id string, p domrec.Patch) (domrec.Record, error)
	Destroy(ctx context.Context, recordType, id string) error
	Flush(ctx context.Context) error
	StartRebuild(ctx context.Context, recordType string, batchSize int) (domrec.RebuildStatus, error)
	RebuildStatus(ctx context.Context, recordType string) (domrec.RebuildStatus, error)
}

// SearchService runs type-scoped searches.
type SearchService interface {
	Search(ctx context.Context, recordType string, spec query.Spec) (result.SearchResult, error)
	Find(ctx context.Context, recordType string, spec query.Spec) (searchuc.Found, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the solrsync HTTP API.
type Server struct {
	records       RecordService
	search        SearchService
	health        HealthChecker
	logger        *zap.Logger
	maxBatchSize  int
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	records RecordService,
	search SearchService,
	health HealthChecker,
	maxBatchSize int,
	logger *zap.Logger,
) *Server {
	s := &Server{
		records:      records,
		search:       search,
		health:       health,
		logger:       logger,
		maxBatchSize: maxBatchSize,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrUnknownType, http.StatusNotFound, CodeUnknownType, true),
		sentinelHandler(domain.ErrRecordNotFound, http.StatusNotFound, CodeRecordNotFound, false),
		sentinelHandler(domain.ErrInvalidRecord, http.StatusBadRequest, CodeValidationFailed, true),
		sentinelHandler(domain.ErrTranslation, http.StatusBadRequest, CodeInvalidQuery, true),
		sentinelHandler(domain.ErrMapping, http.StatusUnprocessableEntity, CodeMappingFailed, true),
		sentinelHandler(domain.ErrRebuildRunning, http.StatusConflict, CodeRebuildRunning, false),
		sentinelHandler(domain.ErrTransport, http.StatusBadGateway, CodeSearchUnavail, false),
		sentinelHandler(domain.ErrParse, http.StatusBadGateway, CodeBadSearchReply, false),
	}
	return s
}

// Register mounts every route on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/records/{type}", func(r chi.Router) {
			r.Post("/batch", s.BatchSave)
			r.Post("/search", s.SearchRecords)
			r.Put("/{id}", s.SaveRecord)
			r.Patch("/{id}", s.PatchRecord)
			r.Get("/{id}", s.GetRecord)
			r.Delete("/{id}", s.DeleteRecord)
		})
		r.Route("/index", func(r chi.Router) {
			r.Post("/flush", s.FlushIndex)
			r.Post("/{type}/rebuild", s.StartRebuild)
			r.Get("/{type}/rebuild", s.GetRebuildStatus)
		})
	})
}

// SaveRecord handles PUT /api/v1/records/{type}/{id}.
func (s *Server) SaveRecord(w http.ResponseWriter, r *http.Request) {
	recordType, id := chi.URLParam(r, "type"), chi.URLParam(r, "id")

	var req RecordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	rec, err := domrec.New(recordType, id, req.Fields)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	created, err := s.records.Save(r.Context(), rec)
	resp := recordToResponse(rec)
	if !s.storedOutcome(w, r, &resp, err) {
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		w.Header().Set("Location", fmt.Sprintf("/api/v1/records/%s/%s", recordType, id))
	}
	writeJSON(w, status, resp)
}

// PatchRecord handles PATCH /api/v1/records/{type}/{id}. A null field
// value removes the field.
func (s *Server) PatchRecord(w http.ResponseWriter, r *http.Request) {
	var req RecordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	p, err := domrec.NewPatch(req.Fields)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	rec, err := s.records.Patch(r.Context(), chi.URLParam(r, "type"), chi.URLParam(r, "id"), p)
	resp := recordToResponse(rec)
	if !s.storedOutcome(w, r, &resp, err) {
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// storedOutcome fills the index status of a record that may have been
// stored despite err. It writes the error response and returns false when
// the record was not stored.
func (s *Server) storedOutcome(w http.ResponseWriter, r *http.Request, resp *RecordResponse, err error) bool {
	indexed := true
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrMapping):
		indexed = false
		resp.Warning = err.Error()
	case errors.Is(err, domain.ErrTransport):
		resp.Warning = "stored; index flush pending: " + domain.ErrTransport.Error()
	default:
		s.handleDomainError(w, r, err)
		return false
	}
	resp.Indexed = &indexed
	return true
}

// GetRecord handles GET /api/v1/records/{type}/{id}.
func (s *Server) GetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.records.Get(r.Context(), chi.URLParam(r, "type"), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recordToResponse(rec))
}

// DeleteRecord handles DELETE /api/v1/records/{type}/{id}.
func (s *Server) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := s.records.Destroy(r.Context(), chi.URLParam(r, "type"), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BatchSave handles POST /api/v1/records/{type}/batch.
func (s *Server) BatchSave(w http.ResponseWriter, r *http.Request) {
	recordType := chi.URLParam(r, "type")

	var req BatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Records) == 0 || len(req.Records) > s.maxBatchSize {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			fmt.Sprintf("records count must be between 1 and %d", s.maxBatchSize))
		return
	}

	items := make([]BatchResultItem, len(req.Records))
	recs := make([]domrec.Record, 0, len(req.Records))
	idx := make([]int, 0, len(req.Records))
	for i, item := range req.Records {
		rec, err := domrec.New(recordType, item.ID, item.Fields)
		if err != nil {
			items[i] = batchResultToItem(dombatch.NewError(item.ID, err))
			continue
		}
		recs = append(recs, rec)
		idx = append(idx, i)
	}

	if len(recs) > 0 {
		for j, res := range s.records.SaveMany(r.Context(), recordType, recs) {
			items[idx[j]] = batchResultToItem(res)
		}
	}

	resp := BatchResponse{Items: items}
	for _, it := range items {
		if it.Status == string(dombatch.StatusOK) {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// SearchRecords handles POST /api/v1/records/{type}/search.
// With ?rehydrate=true the matching records are loaded from the primary store.
func (s *Server) SearchRecords(w http.ResponseWriter, r *http.Request) {
	recordType := chi.URLParam(r, "type")

	var rehydrate bool
	if err := runtime.BindQueryParameter("form", true, false, "rehydrate", r.URL.Query(), &rehydrate); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid rehydrate parameter")
		return
	}

	var req SearchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	spec, err := specFromRequest(req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	if !rehydrate {
		res, err := s.search.Search(r.Context(), recordType, spec)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		resp := searchPage(res)
		resp.Hits = make([]SearchHit, 0, res.Len())
		for h := range res.Hits() {
			resp.Hits = append(resp.Hits, hitToResponse(h))
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	found, err := s.search.Find(r.Context(), recordType, spec)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	resp := searchPage(found.Result)
	resp.Records = make([]RecordResponse, len(found.Records))
	for i, rec := range found.Records {
		resp.Records[i] = recordToResponse(rec)
	}
	resp.Stale = found.Stale
	writeJSON(w, http.StatusOK, resp)
}

// FlushIndex handles POST /api/v1/index/flush.
func (s *Server) FlushIndex(w http.ResponseWriter, r *http.Request) {
	if err := s.records.Flush(r.Context()); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StartRebuild handles POST /api/v1/index/{type}/rebuild?batch_size=N.
func (s *Server) StartRebuild(w http.ResponseWriter, r *http.Request) {
	var batchSize int
	if err := runtime.BindQueryParameter("form", true, false, "batch_size", r.URL.Query(), &batchSize); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid batch_size parameter")
		return
	}
	if batchSize < 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "batch_size must not be negative")
		return
	}

	st, err := s.records.StartRebuild(r.Context(), chi.URLParam(r, "type"), batchSize)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, rebuildToResponse(st))
}

// GetRebuildStatus handles GET /api/v1/index/{type}/rebuild.
func (s *Server) GetRebuildStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.records.RebuildStatus(r.Context(), chi.URLParam(r, "type"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rebuildToResponse(st))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:        string(report.Status),
		Checks:        checks,
		PendingWrites: report.PendingWrites,
	})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// sentinelHandler maps a sentinel to a status. detailed errors describe the
// caller's input and are returned verbatim; others expose only the sentinel.
func sentinelHandler(sentinel error, status int, code ErrorCode, detailed bool) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := sentinel.Error()
		if detailed {
			msg = err.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func batchResultToItem(r dombatch.Result) BatchResultItem {
	item := BatchResultItem{ID: r.ID(), Status: string(r.Status()), Indexed: r.Indexed()}
	if err := r.Err(); err != nil {
		item.Error = err.Error()
		item.Code = batchErrorCode(err)
	}
	return item
}

func batchErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, domain.ErrUnknownType):
		return CodeUnknownType
	case errors.Is(err, domain.ErrInvalidRecord):
		return CodeValidationFailed
	case errors.Is(err, domain.ErrMapping):
		return CodeMappingFailed
	case errors.Is(err, domain.ErrTransport):
		return CodeSearchUnavail
	default:
		return CodeInternalError
	}
}

func searchPage(res result.SearchResult) SearchResponse {
	resp := SearchResponse{
		Total:    res.TotalHits(),
		Offset:   res.Start(),
		MaxScore: res.MaxScore(),
		HasMore:  res.HasMore(),
		QTimeMs:  res.QTime(),
	}
	if resp.HasMore {
		next := res.NextOffset()
		resp.NextOffset = &next
	}
	if facets := res.Facets(); len(facets) > 0 {
		resp.Facets = make(map[string][]FacetCountJSON, len(facets))
		for name, counts := range facets {
			out := make([]FacetCountJSON, len(counts))
			for i, c := range counts {
				out[i] = FacetCountJSON{Value: c.Value, Count: c.Count}
			}
			resp.Facets[name] = out
		}
	}
	return resp
}

func hitToResponse(h result.Hit) SearchHit {
	out := SearchHit{ID: h.ID(), Fields: h.Fields()}
	if score, ok := h.Score(); ok {
		out.Score = &score
	}
	return out
}
