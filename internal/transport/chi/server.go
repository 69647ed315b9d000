package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tradesearch/internal/domain"
	domhist "github.com/kailas-cloud/tradesearch/internal/domain/history"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/filter"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/mode"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/params"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/request"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/result"
	domusage "github.com/kailas-cloud/tradesearch/internal/domain/usage"
	"github.com/kailas-cloud/tradesearch/internal/logger"
	healthuc "github.com/kailas-cloud/tradesearch/internal/usecase/health"
)

// ModelTokensHeader reports the model tokens a request consumed.
const ModelTokensHeader = "X-Model-Tokens"

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, r *http.Request, err error, msg string) bool

// Server implements ServerInterface.
type Server struct {
	search        Searcher
	filters       FilterOptionsReader
	history       HistoryService
	usage         UsageReporter
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server.
func NewServer(
	search Searcher,
	filters FilterOptionsReader,
	history HistoryService,
	usage UsageReporter,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:  search,
		filters: filters,
		history: history,
		usage:   usage,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrRequestValidation, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrResponseUnusable, http.StatusUnprocessableEntity, ErrorCodeExtractionUnusable),
		sentinelHandler(domain.ErrTokenBudgetExceeded, http.StatusPaymentRequired, ErrorCodeTokenBudgetExceeded),
		sentinelHandler(domain.ErrUpstreamUnavailable, http.StatusBadGateway, ErrorCodeModelUnavailable),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, ErrorCodeStoreUnavailable),
		sentinelHandler(domain.ErrStoreQueryFailed, http.StatusInternalServerError, ErrorCodeStoreQueryFailed),
		sentinelHandler(domain.ErrQueryUnsafe, http.StatusInternalServerError, ErrorCodeQueryUnsafe),
		sentinelHandler(domain.ErrHistoryNotFound, http.StatusNotFound, ErrorCodeHistoryNotFound),
		sentinelHandler(domain.ErrUnauthorizedHistoryAccess, http.StatusForbidden, ErrorCodeHistoryForbidden),
	}
	return s
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var body SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	req, err := searchRequestFromAPI(body)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.search.Search(ctx, req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setModelHeaders(w, usage)
	writeJSON(w, http.StatusOK, searchResponseToAPI(resp))
}

// GetFilterOptions handles GET /filter-options.
func (s *Server) GetFilterOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := s.filters.FilterOptions(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FilterOptionsResponse{
		Accounts:           nonNil(opts.Accounts),
		AssetTypes:         nonNil(opts.AssetTypes),
		BookingSystems:     nonNil(opts.BookingSystems),
		AffirmationSystems: nonNil(opts.AffirmationSystems),
		ClearingHouses:     nonNil(opts.ClearingHouses),
		Statuses:           nonNil(opts.Statuses),
	})
}

// ListHistory handles GET /history.
func (s *Server) ListHistory(w http.ResponseWriter, r *http.Request, p ListHistoryParams) {
	s.listHistory(w, r, p.UserID, derefInt(p.Limit), derefBool(p.SavedOnly))
}

// ListSavedHistory handles GET /history/saved.
func (s *Server) ListSavedHistory(w http.ResponseWriter, r *http.Request, p SavedHistoryParams) {
	s.listHistory(w, r, p.UserID, derefInt(p.Limit), true)
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request, userID string, limit int, savedOnly bool) {
	records, err := s.history.List(r.Context(), userID, limit, savedOnly)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	items := make([]QueryHistory, len(records))
	for i := range records {
		items[i] = historyToAPI(records[i])
	}
	writeJSON(w, http.StatusOK, items)
}

// DeleteAllHistory handles DELETE /history.
func (s *Server) DeleteAllHistory(w http.ResponseWriter, r *http.Request, p UserParams) {
	n, err := s.history.DeleteAll(r.Context(), p.UserID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteHistoryResponse{UserID: p.UserID, DeletedCount: n})
}

// GetHistoryStats handles GET /history/stats.
func (s *Server) GetHistoryStats(w http.ResponseWriter, r *http.Request, p UserParams) {
	st, err := s.history.Stats(r.Context(), p.UserID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryStatsResponse{
		UserID:      p.UserID,
		TotalCount:  st.Total,
		SavedCount:  st.Saved,
		RecentCount: st.Recent,
	})
}

// GetHistorySuggestions handles GET /history/suggestions.
func (s *Server) GetHistorySuggestions(w http.ResponseWriter, r *http.Request, p SuggestionsParams) {
	found, err := s.history.Suggest(r.Context(), p.UserID, p.Q, derefInt(p.Limit))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	items := make([]Suggestion, len(found))
	for i, sg := range found {
		items[i] = Suggestion{Text: sg.Text, Category: sg.Category, Score: sg.Score}
	}
	writeJSON(w, http.StatusOK, items)
}

// UpdateHistory handles PUT /history/{id}.
func (s *Server) UpdateHistory(w http.ResponseWriter, r *http.Request, id int64, p UserParams) {
	var body UpdateHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	var name string
	if body.QueryName != nil {
		name = *body.QueryName
	}
	u, err := domhist.NewUpdate(body.IsSaved, name)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	rec, err := s.history.Update(r.Context(), id, p.UserID, u)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, historyToAPI(rec))
}

// UseHistory handles PUT /history/{id}/use.
func (s *Server) UseHistory(w http.ResponseWriter, r *http.Request, id int64, p UserParams) {
	if err := s.history.Touch(r.Context(), id, p.UserID); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteHistory handles DELETE /history/{id}.
func (s *Server) DeleteHistory(w http.ResponseWriter, r *http.Request, id int64, p UserParams) {
	if err := s.history.Delete(r.Context(), id, p.UserID); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetUsage handles GET /usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request, p GetUsageParams) {
	period := domusage.PeriodMonth
	if p.Period != nil {
		period = domusage.Period(*p.Period)
		if !period.IsValid() {
			writeError(w, r, http.StatusBadRequest, ErrorCodeValidationFailed,
				"period must be one of day, month, total")
			return
		}
	}

	report := s.usage.GetReport(r.Context(), period)

	resp := UsageResponse{
		Period: string(report.Period()),
		Model:  report.Model(),
		Usage: UsageMetrics{
			Requests: report.Metrics().Requests(),
			Tokens:   report.Metrics().Tokens(),
		},
		Budget: BudgetStatus{
			TokensLimit:     report.Budget().TokensLimit(),
			TokensRemaining: report.Budget().TokensRemaining(),
			IsExhausted:     report.Budget().IsExhausted(),
		},
	}

	if report.PeriodStart() > 0 {
		start := time.UnixMilli(report.PeriodStart()).UTC()
		end := time.UnixMilli(report.PeriodEnd()).UTC()
		resp.PeriodStartAt = &start
		resp.PeriodEndAt = &end
	}

	if report.Budget().ResetsAt() > 0 {
		resetsAt := time.UnixMilli(report.Budget().ResetsAt()).UTC()
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

func setModelHeaders(w http.ResponseWriter, usage *domain.ModelUsage) {
	if usage != nil && usage.Used {
		w.Header().Set(ModelTokensHeader, strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:      code,
		Message:   message,
		Path:      r.URL.Path,
		Timestamp: time.Now().UTC(),
	})
}

// safeDomainMessage returns a client-facing message without exposing internals.
// Validation errors keep their field and reason.
func safeDomainMessage(err error) string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	sentinels := []error{
		domain.ErrRequestValidation,
		domain.ErrResponseUnusable,
		domain.ErrTokenBudgetExceeded,
		domain.ErrUpstreamUnavailable,
		domain.ErrStoreUnavailable,
		domain.ErrStoreQueryFailed,
		domain.ErrQueryUnsafe,
		domain.ErrHistoryNotFound,
		domain.ErrUnauthorizedHistoryAccess,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, r *http.Request, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, r, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, r, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

func searchRequestFromAPI(body SearchRequest) (request.Request, error) {
	m := mode.Mode(body.SearchType)
	var manual *filter.Manual
	if m == mode.Manual && body.Filters != nil {
		f, err := filter.NewManual(filtersFromAPI(*body.Filters))
		if err != nil {
			return request.Request{}, err
		}
		manual = &f
	}
	var text string
	if body.QueryText != nil {
		text = *body.QueryText
	}
	return request.New(body.UserID, m, text, manual)
}

func filtersFromAPI(f ManualFilters) filter.Input {
	in := filter.Input{
		TradeID:            f.TradeID,
		Account:            derefString(f.Account),
		AssetType:          derefString(f.AssetType),
		BookingSystem:      derefString(f.BookingSystem),
		AffirmationSystem:  derefString(f.AffirmationSystem),
		ClearingHouse:      derefString(f.ClearingHouse),
		Statuses:           f.Status,
		DateFrom:           derefString(f.DateFrom),
		DateTo:             derefString(f.DateTo),
		WithExceptionsOnly: derefBool(f.WithExceptionsOnly),
		ClearedTradesOnly:  derefBool(f.ClearedTradesOnly),
	}
	if f.DateType != nil {
		in.DateField = filter.DateField(*f.DateType)
	}
	return in
}

func searchResponseToAPI(resp result.Response) SearchResponse {
	out := SearchResponse{
		QueryID:         resp.QueryID,
		SearchID:        resp.SearchID,
		TotalResults:    resp.TotalResults,
		TotalMatches:    resp.TotalMatches,
		Truncated:       resp.Truncated,
		Ranked:          resp.Ranked,
		Results:         make([]Trade, len(resp.Results)),
		SearchType:      string(resp.Mode),
		ExecutionTimeMs: resp.ExecutionTimeMs,
	}
	for i := range resp.Results {
		out.Results[i] = tradeToAPI(resp.Results[i])
	}
	if resp.ExtractedParams != nil {
		out.ExtractedParams = paramsToAPI(*resp.ExtractedParams)
	}
	return out
}

func tradeToAPI(s result.Scored) Trade {
	t := s.Trade()
	out := Trade{
		TradeID:           t.ID(),
		Account:           t.Account(),
		AssetType:         t.AssetType(),
		BookingSystem:     t.BookingSystem(),
		AffirmationSystem: t.AffirmationSystem(),
		ClearingHouse:     t.ClearingHouse(),
		Status:            t.Status(),
		CreateTime:        timePtr(t.CreateTime()),
		UpdateTime:        timePtr(t.UpdateTime()),
	}
	if s.IsScored() {
		score := s.Score()
		out.RelevanceScore = &score
	}
	return out
}

func paramsToAPI(p params.Extracted) *ExtractedParams {
	return &ExtractedParams{
		TradeID:            p.TradeID,
		Accounts:           p.Accounts,
		AssetTypes:         p.AssetTypes,
		BookingSystems:     p.BookingSystems,
		AffirmationSystems: p.AffirmationSystems,
		ClearingHouses:     p.ClearingHouses,
		Statuses:           p.Statuses,
		DateFrom:           p.DateFrom,
		DateTo:             p.DateTo,
		WithExceptionsOnly: p.WithExceptionsOnly,
		ClearedTradesOnly:  p.ClearedTradesOnly,
	}
}

func historyToAPI(rec domhist.Record) QueryHistory {
	out := QueryHistory{
		QueryID:     rec.ID(),
		UserID:      rec.UserID(),
		QueryText:   rec.QueryText(),
		SearchType:  string(rec.Mode()),
		IsSaved:     rec.IsSaved(),
		CreateTime:  rec.CreateTime().UTC(),
		LastUseTime: rec.LastUseTime().UTC(),
	}
	if name := rec.Name(); name != "" {
		out.QueryName = &name
	}
	return out
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func derefBool(p *bool) bool {
	if p == nil {
		return false
	}
	return *p
}
