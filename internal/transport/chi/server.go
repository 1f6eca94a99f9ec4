package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vidsearch/internal/domain"
	domfb "github.com/kailas-cloud/vidsearch/internal/domain/feedback"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/request"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/result"
	domusage "github.com/kailas-cloud/vidsearch/internal/domain/usage"
	"github.com/kailas-cloud/vidsearch/internal/logger"
	healthuc "github.com/kailas-cloud/vidsearch/internal/usecase/health"
)

// Searcher runs the search pipeline.
type Searcher interface {
	Search(ctx context.Context, req request.Request) (result.Set, error)
}

// FeedbackRecorder appends and lists feedback.
type FeedbackRecorder interface {
	Submit(ctx context.Context, searchID, userID string, helpful bool) (domfb.Record, error)
	List(ctx context.Context, searchID string) ([]domfb.Record, error)
}

// UsageReporter builds budget reports.
type UsageReporter interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the search, feedback, usage, and health API.
type Server struct {
	search        Searcher
	feedback      FeedbackRecorder
	usage         UsageReporter
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search Searcher,
	feedback FeedbackRecorder,
	usage UsageReporter,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:   search,
		feedback: feedback,
		usage:    usage,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		validationHandler(domain.ErrInvalidQuery),
		validationHandler(domain.ErrInvalidFeedback),
		sentinelHandler(domain.ErrCorpusUnavailable,
			http.StatusServiceUnavailable, ErrorResponseCodeCorpusUnavailable),
		sentinelHandler(domain.ErrFeedbackStore,
			http.StatusServiceUnavailable, ErrorResponseCodeFeedbackStoreUnavailable),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorResponseCodeNotFound),
	}
	return s
}

// Routes registers the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.PostSearch)
		r.Get("/search", s.GetSearch)
		r.Post("/searches/{searchID}/feedback", s.SubmitFeedback)
		r.Get("/searches/{searchID}/feedback", s.ListFeedback)
		r.Get("/usage", s.GetUsage)
	})
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// PostSearch handles POST /api/v1/search.
func (s *Server) PostSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	s.runSearch(w, r, req.Query, req.Location, req.TopK, req.Limit)
}

// GetSearch handles GET /api/v1/search?q=&location=&limit=&top_k=.
func (s *Server) GetSearch(w http.ResponseWriter, r *http.Request) {
	var params SearchParams
	query := r.URL.Query()

	if err := runtime.BindQueryParameter("form", true, true, "q", query, &params.Q); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid format for parameter q: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "location", query, &params.Location); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest,
			"Invalid format for parameter location: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", query, &params.Limit); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest,
			"Invalid format for parameter limit: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "top_k", query, &params.TopK); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest,
			"Invalid format for parameter top_k: "+err.Error())
		return
	}

	s.runSearch(w, r, params.Q, params.Location, params.TopK, params.Limit)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, q string, location *string, topK, limit *int) {
	req, err := searchRequestFromParams(q, location, topK, limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	set, err := s.search.Search(ctx, req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setProviderHeaders(w, usage)
	writeJSON(w, http.StatusOK, searchSetToResponse(&set, req.Limit()))
}

// SubmitFeedback handles POST /api/v1/searches/{searchID}/feedback.
func (s *Server) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	searchID := chi.URLParam(r, "searchID")

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Helpful == nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, "helpful is required")
		return
	}

	rec, err := s.feedback.Submit(r.Context(), searchID, req.UserId, *req.Helpful)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/searches/%s/feedback", searchID))
	writeJSON(w, http.StatusCreated, feedbackToResponse(&rec))
}

// ListFeedback handles GET /api/v1/searches/{searchID}/feedback.
func (s *Server) ListFeedback(w http.ResponseWriter, r *http.Request) {
	recs, err := s.feedback.List(r.Context(), chi.URLParam(r, "searchID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]FeedbackResponse, len(recs))
	for i := range recs {
		items[i] = feedbackToResponse(&recs[i])
	}
	writeJSON(w, http.StatusOK, FeedbackListResponse{Items: items, Total: len(items)})
}

// GetUsage handles GET /api/v1/usage?period=day|month.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	var periodParam *string
	if err := runtime.BindQueryParameter("form", true, false, "period", r.URL.Query(), &periodParam); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest,
			"Invalid format for parameter period: "+err.Error())
		return
	}

	period := domusage.PeriodDay
	if periodParam != nil {
		switch domusage.Period(*periodParam) {
		case domusage.PeriodDay:
		case domusage.PeriodMonth:
			period = domusage.PeriodMonth
		default:
			writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, "period must be day or month")
			return
		}
	}

	report := s.usage.GetReport(r.Context(), period)
	b := report.Budget()

	resp := UsageResponse{
		Period:        string(report.Period()),
		Provider:      report.Provider(),
		PeriodStartAt: time.UnixMilli(report.PeriodStart()).UTC(),
		PeriodEndAt:   time.UnixMilli(report.PeriodEnd()).UTC(),
		Budget: BudgetStatus{
			TokensLimit:     b.TokensLimit(),
			TokensUsed:      b.TokensUsed(),
			TokensRemaining: b.TokensRemaining(),
			IsExhausted:     b.IsExhausted(),
		},
	}
	if ops := b.TokensByOperation(); len(ops) > 0 {
		resp.Budget.TokensByOperation = ops
	}
	if b.ResetsAt() > 0 {
		resetsAt := time.UnixMilli(b.ResetsAt()).UTC()
		resp.Budget.ResetsAt = &resetsAt
	}

	writeJSON(w, http.StatusOK, resp)
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
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// validationHandler reports the full validation message; it never carries internals.
func validationHandler(sentinel error) errorHandler {
	return func(w http.ResponseWriter, err error, _ string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, err.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	if errors.Is(err, context.Canceled) {
		log.Debug("request cancelled", zap.Error(err))
		return
	}

	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}

func searchRequestFromParams(q string, location *string, topK, limit *int) (request.Request, error) {
	// Validate explicitly provided parameters (nil means "not set").
	if topK != nil && (*topK <= 0 || *topK > request.MaxTopK) {
		return request.Request{}, fmt.Errorf("top_k must be between 1 and %d", request.MaxTopK)
	}
	if limit != nil && (*limit <= 0 || *limit > request.MaxLimit) {
		return request.Request{}, fmt.Errorf("limit must be between 1 and %d", request.MaxLimit)
	}

	r, err := request.New(q, derefString(location), derefInt(topK), derefInt(limit))
	if err != nil {
		return request.Request{}, fmt.Errorf("build search request: %w", err)
	}
	return r, nil
}

func searchSetToResponse(set *result.Set, limit int) SearchResponse {
	results := set.Results()
	items := make([]SearchResultItem, len(results))
	for i := range results {
		items[i] = searchResultToResponse(&results[i])
	}

	fallbacks := set.Fallbacks()
	if fallbacks == nil {
		fallbacks = []string{}
	}

	return SearchResponse{
		SearchId:  set.SearchID(),
		Query:     set.Query(),
		Location:  set.Location(),
		Items:     items,
		Fallbacks: fallbacks,
		Limit:     limit,
		Total:     len(items),
	}
}

func searchResultToResponse(r *result.Result) SearchResultItem {
	item := SearchResultItem{
		Id:          r.ID(),
		Score:       r.Score(),
		Title:       r.Title(),
		Description: r.Description(),
		Location:    r.Location(),
	}
	if u := r.ThumbnailURL(); u != "" {
		item.ThumbnailUrl = &u
	}
	if u := r.VideoURL(); u != "" {
		item.VideoUrl = &u
	}
	return item
}

func feedbackToResponse(rec *domfb.Record) FeedbackResponse {
	ids := rec.ItemIDs()
	if ids == nil {
		ids = []string{}
	}
	return FeedbackResponse{
		Id:        rec.ID(),
		SearchId:  rec.SearchID(),
		UserId:    rec.UserID(),
		Helpful:   rec.Helpful(),
		ItemIds:   ids,
		CreatedAt: rec.CreatedAt(),
	}
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func setProviderHeaders(w http.ResponseWriter, usage *domain.ProviderUsage) {
	if usage.Used() {
		w.Header().Set("X-Provider-Tokens", strconv.Itoa(usage.TotalTokens()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrInvalidFeedback,
		domain.ErrCorpusUnavailable,
		domain.ErrFeedbackStore,
		domain.ErrNotFound,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}
