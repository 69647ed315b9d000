// Package search orchestrates a trade search: parameter extraction, planning, execution,
// ranking and history logging.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tradesearch/internal/domain/search/filter"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/mode"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/params"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/plan"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/request"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/result"
	"github.com/kailas-cloud/tradesearch/internal/domain/trade"
	"github.com/kailas-cloud/tradesearch/internal/logger"
	"github.com/kailas-cloud/tradesearch/internal/metrics"
	"github.com/kailas-cloud/tradesearch/internal/usecase/query"
)

// Defaults for history logging.
const (
	DefaultHistoryWait    = 100 * time.Millisecond
	DefaultHistoryQueue   = 256
	defaultHistoryTimeout = 5 * time.Second
)

// NewHistoryPool creates the pool history writes run on. Up to queue submissions wait
// for a free worker; past that Submit fails with ants.ErrPoolOverload. A queue of zero
// or less rejects as soon as every worker is busy.
func NewHistoryPool(workers, queue int) (*ants.Pool, error) {
	if queue <= 0 {
		return ants.NewPool(workers, ants.WithNonblocking(true))
	}
	return ants.NewPool(workers, ants.WithMaxBlockingTasks(queue))
}

// Config tunes the orchestrator.
type Config struct {
	// HistoryWait bounds how long a response waits for the history id.
	HistoryWait time.Duration
}

// Service handles trade searches in natural-language and manual modes.
type Service struct {
	extractor Extractor
	planner   Planner
	executor  Executor
	history   HistoryLogger
	ranker    Ranker
	pool      Submitter
	cfg       Config
	now       func() time.Time
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for relative dates and history timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a search service.
func New(
	extractor Extractor, planner Planner, executor Executor,
	history HistoryLogger, ranker Ranker, pool Submitter,
	cfg Config, logger *zap.Logger, opts ...Option,
) *Service {
	if cfg.HistoryWait <= 0 {
		cfg.HistoryWait = DefaultHistoryWait
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		extractor: extractor,
		planner:   planner,
		executor:  executor,
		history:   history,
		ranker:    ranker,
		pool:      pool,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Search runs one search request end to end.
func (s *Service) Search(ctx context.Context, req request.Request) (resp result.Response, err error) {
	start := s.now()
	log := logger.FromContextOr(ctx, s.logger).With(
		zap.String("user_id", req.UserID()),
		zap.String("search_type", string(req.Mode())),
	)
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.SearchDuration.WithLabelValues(string(req.Mode()), outcome).Observe(time.Since(start).Seconds())
	}()

	historyID := s.logHistory(ctx, log, req, start)

	var (
		p  params.Extracted
		df = filter.UpdateTime
		qp plan.Plan
	)
	switch req.Mode() {
	case mode.NaturalLanguage:
		p, err = s.extractor.Extract(ctx, req.QueryText(), req.UserID(), start)
		if err != nil {
			return result.Response{}, err
		}
		qp = s.planner.Build(p, df)
	case mode.Manual:
		p = req.Filters().Params()
		df = req.Filters().DateField()
		qp = s.planner.BuildManual(*req.Filters())
	default:
		return result.Response{}, fmt.Errorf("unsupported search mode: %s", req.Mode())
	}
	if err = query.ValidateSafety(qp); err != nil {
		log.Error("Query plan failed safety validation", zap.Error(err))
		return result.Response{}, err
	}

	rows, err := s.executor.Execute(ctx, qp)
	if err != nil {
		return result.Response{}, fmt.Errorf("execute search: %w", err)
	}

	resp = result.Response{
		SearchID:     uuid.NewString(),
		TotalResults: len(rows),
		TotalMatches: len(rows),
		Mode:         req.Mode(),
	}
	if req.Mode() == mode.NaturalLanguage {
		extracted := p
		resp.ExtractedParams = &extracted
	}

	if !p.HasTradeID() && len(rows) >= s.planner.MaxResults() {
		resp.Truncated = true
		resp.TotalMatches = s.countMatches(ctx, log, p, df, len(rows))
	}

	resp.Results, resp.Ranked = s.rank(ctx, log, rows)
	resp.QueryID = s.awaitHistory(historyID)
	resp.ExecutionTimeMs = time.Since(start).Milliseconds()

	log.Info("Search completed",
		zap.String("search_id", resp.SearchID),
		zap.Int("results", resp.TotalResults),
		zap.Bool("ranked", resp.Ranked),
		zap.Bool("truncated", resp.Truncated),
	)
	return resp, nil
}

// rank fetches per-trade activity and reorders rows. Any failure keeps the fetched order.
func (s *Service) rank(ctx context.Context, log *zap.Logger, rows []trade.Trade) ([]result.Scored, bool) {
	if !s.ranker.Enabled() || len(rows) == 0 {
		return s.ranker.Rank(ctx, rows, nil)
	}

	ids := make([]int64, len(rows))
	for i, t := range rows {
		ids[i] = t.ID()
	}
	ep := s.planner.BuildEnrichment(ids)
	if err := query.ValidateSafety(ep); err != nil {
		log.Warn("Enrichment plan rejected, keeping store order", zap.Error(err))
		return unscored(rows), false
	}
	activity, err := s.executor.Enrichment(ctx, ep)
	if err != nil {
		log.Warn("Enrichment failed, keeping store order", zap.Error(err))
		metrics.RankingOutcomeTotal.WithLabelValues("fallback").Inc()
		return unscored(rows), false
	}
	return s.ranker.Rank(ctx, rows, activity)
}

func (s *Service) countMatches(
	ctx context.Context, log *zap.Logger, p params.Extracted, df filter.DateField, fallback int,
) int {
	cp := s.planner.BuildCount(p, df)
	if err := query.ValidateSafety(cp); err != nil {
		log.Warn("Count plan rejected", zap.Error(err))
		return fallback
	}
	n, err := s.executor.Count(ctx, cp)
	if err != nil {
		log.Warn("Count query failed", zap.Error(err))
		return fallback
	}
	return n
}

func unscored(rows []trade.Trade) []result.Scored {
	out := make([]result.Scored, len(rows))
	for i, t := range rows {
		out[i] = result.Unscored(t)
	}
	return out
}

// logHistory hands the history write to the pool without blocking the request. The
// returned channel yields the record id once written and is closed empty on failure.
func (s *Service) logHistory(ctx context.Context, log *zap.Logger, req request.Request, at time.Time) <-chan int64 {
	if s.history == nil || s.pool == nil {
		return nil
	}
	text := req.QueryText()
	if req.Mode() == mode.Manual {
		text = CanonicalFilters(*req.Filters())
	}

	done := make(chan int64, 1)
	// The write outlives the request.
	bg := context.WithoutCancel(ctx)
	task := func() {
		wctx, cancel := context.WithTimeout(bg, defaultHistoryTimeout)
		defer cancel()
		id, err := s.history.Save(wctx, req.UserID(), text, req.Mode(), at)
		if err != nil {
			metrics.HistoryLogFailuresTotal.Inc()
			log.Warn("History logging failed", zap.Error(err))
			close(done)
			return
		}
		done <- id
	}
	// Submit waits while the pool queue has room.
	go func() {
		if err := s.pool.Submit(task); err != nil {
			metrics.HistoryLogFailuresTotal.Inc()
			log.Warn("History logging dropped", zap.Error(err))
			close(done)
		}
	}()
	return done
}

// awaitHistory waits a bounded time for the history id. Zero means not ready or failed.
func (s *Service) awaitHistory(done <-chan int64) int64 {
	if done == nil {
		return 0
	}
	timer := time.NewTimer(s.cfg.HistoryWait)
	defer timer.Stop()
	select {
	case id := <-done:
		return id
	case <-timer.C:
		return 0
	}
}

// manualFilters is the canonical JSON form of a manual filter set stored in history.
type manualFilters struct {
	TradeID            *int64   `json:"trade_id,omitempty"`
	Account            string   `json:"account,omitempty"`
	AssetType          string   `json:"asset_type,omitempty"`
	BookingSystem      string   `json:"booking_system,omitempty"`
	AffirmationSystem  string   `json:"affirmation_system,omitempty"`
	ClearingHouse      string   `json:"clearing_house,omitempty"`
	Status             []string `json:"status,omitempty"`
	DateType           string   `json:"date_type"`
	DateFrom           string   `json:"date_from,omitempty"`
	DateTo             string   `json:"date_to,omitempty"`
	WithExceptionsOnly bool     `json:"with_exceptions_only,omitempty"`
	ClearedTradesOnly  bool     `json:"cleared_trades_only,omitempty"`
}

// CanonicalFilters renders m as JSON with a fixed key order.
func CanonicalFilters(m filter.Manual) string {
	data, err := json.Marshal(manualFilters{
		TradeID:            m.TradeID(),
		Account:            m.Account(),
		AssetType:          m.AssetType(),
		BookingSystem:      m.BookingSystem(),
		AffirmationSystem:  m.AffirmationSystem(),
		ClearingHouse:      m.ClearingHouse(),
		Status:             m.Statuses(),
		DateType:           string(m.DateField()),
		DateFrom:           m.DateFrom(),
		DateTo:             m.DateTo(),
		WithExceptionsOnly: m.WithExceptionsOnly(),
		ClearedTradesOnly:  m.ClearedTradesOnly(),
	})
	if err != nil {
		return "{}"
	}
	return string(data)
}
