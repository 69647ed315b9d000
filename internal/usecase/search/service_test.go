package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tradesearch/internal/domain"
	domrank "github.com/kailas-cloud/tradesearch/internal/domain/ranking"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/filter"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/mode"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/params"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/plan"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/request"
	"github.com/kailas-cloud/tradesearch/internal/domain/trade"
	"github.com/kailas-cloud/tradesearch/internal/metrics"
	"github.com/kailas-cloud/tradesearch/internal/usecase/query"
	"github.com/kailas-cloud/tradesearch/internal/usecase/ranking"
)

// --- Mocks ---

type mockExtractor struct {
	result params.Extracted
	err    error
	calls  int
	asOf   time.Time
}

func (m *mockExtractor) Extract(_ context.Context, _, _ string, asOf time.Time) (params.Extracted, error) {
	m.calls++
	m.asOf = asOf
	return m.result, m.err
}

type mockExecutor struct {
	rows        []trade.Trade
	executeErr  error
	activity    map[int64]int
	enrichErr   error
	count       int
	countErr    error
	lastPlan    plan.Plan
	enrichCalls int
	countCalls  int
}

func (m *mockExecutor) Execute(_ context.Context, p plan.Plan) ([]trade.Trade, error) {
	m.lastPlan = p
	return m.rows, m.executeErr
}

func (m *mockExecutor) Enrichment(_ context.Context, _ plan.Plan) (map[int64]int, error) {
	m.enrichCalls++
	return m.activity, m.enrichErr
}

func (m *mockExecutor) Count(_ context.Context, _ plan.Plan) (int, error) {
	m.countCalls++
	return m.count, m.countErr
}

type mockHistory struct {
	mu      sync.Mutex
	id      int64
	err     error
	block   chan struct{}
	texts   []string
	ctxLive bool
}

func (m *mockHistory) Save(ctx context.Context, _ string, text string, _ mode.Mode, _ time.Time) (int64, error) {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	m.ctxLive = ctx.Err() == nil
	return m.id, m.err
}

func (m *mockHistory) savedTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

type rejectingPool struct{}

func (rejectingPool) Submit(func()) error { return ants.ErrPoolOverload }

// --- Helpers ---

var now = time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)

func tr(id int64, status string) trade.Trade {
	return trade.Reconstruct(id, trade.Attrs{
		Account: "ACC1", AssetType: "FX", Status: status,
		CreateTime: now.Add(-time.Hour), UpdateTime: now.Add(-time.Hour),
	})
}

func newPool(t *testing.T) *ants.Pool {
	t.Helper()
	pool, err := ants.NewPool(2)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Release)
	return pool
}

type fixture struct {
	extractor *mockExtractor
	executor  *mockExecutor
	history   *mockHistory
	pool      Submitter
	rankOn    bool
	maxRes    int
	wait      time.Duration
}

func newFixture(t *testing.T) *fixture {
	return &fixture{
		extractor: &mockExtractor{},
		executor:  &mockExecutor{},
		history:   &mockHistory{id: 42},
		pool:      newPool(t),
		rankOn:    true,
		maxRes:    query.DefaultMaxResults,
		wait:      time.Second,
	}
}

func (f *fixture) service() *Service {
	engine := ranking.NewEngine(f.rankOn, ranking.NewStaticSource(domrank.Default()), zap.NewNop(),
		ranking.WithClock(func() time.Time { return now }))
	return New(
		f.extractor, query.New(f.maxRes, zap.NewNop()), f.executor, f.history, engine, f.pool,
		Config{HistoryWait: f.wait}, zap.NewNop(),
		WithClock(func() time.Time { return now }),
	)
}

func nlRequest(t *testing.T, text string) request.Request {
	t.Helper()
	req, err := request.New("user-1", mode.NaturalLanguage, text, nil)
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func manualRequest(t *testing.T, in filter.Input) request.Request {
	t.Helper()
	m, err := filter.NewManual(in)
	if err != nil {
		t.Fatal(err)
	}
	req, err := request.New("user-1", mode.Manual, "", &m)
	if err != nil {
		t.Fatal(err)
	}
	return req
}

// --- Tests ---

func TestSearch_NaturalLanguage(t *testing.T) {
	f := newFixture(t)
	f.extractor.result = params.Extracted{AssetTypes: []string{"FX"}, Statuses: []string{"CLEARED", "REJECTED"}}
	f.executor.rows = []trade.Trade{tr(1, trade.StatusCleared), tr(2, trade.StatusRejected)}
	f.executor.activity = map[int64]int{1: 1, 2: 8}

	resp, err := f.service().Search(context.Background(), nlRequest(t, "cleared or rejected fx trades"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !f.extractor.asOf.Equal(now) {
		t.Errorf("extraction asOf = %v, want %v", f.extractor.asOf, now)
	}
	if !strings.Contains(f.executor.lastPlan.Text(), "asset_type IN (SELECT value FROM json_each($1))") {
		t.Errorf("unexpected plan text: %s", f.executor.lastPlan.Text())
	}
	if !resp.Ranked || len(resp.Results) != 2 || resp.Results[0].Trade().ID() != 2 {
		t.Errorf("expected REJECTED trade ranked first, got ranked=%v %+v", resp.Ranked, resp.Results)
	}
	if resp.QueryID != 42 {
		t.Errorf("QueryID = %d, want 42", resp.QueryID)
	}
	if _, err := uuid.Parse(resp.SearchID); err != nil {
		t.Errorf("SearchID %q is not a UUID", resp.SearchID)
	}
	if resp.ExtractedParams == nil || resp.ExtractedParams.AssetTypes[0] != "FX" {
		t.Errorf("ExtractedParams = %+v", resp.ExtractedParams)
	}
	if resp.Mode != mode.NaturalLanguage || resp.TotalResults != 2 || resp.Truncated {
		t.Errorf("unexpected response header %+v", resp)
	}
	if got := f.history.savedTexts(); len(got) != 1 || got[0] != "cleared or rejected fx trades" {
		t.Errorf("history texts = %v", got)
	}
}

func TestSearch_ManualTradeID(t *testing.T) {
	f := newFixture(t)
	id := int64(77194044)
	f.executor.rows = []trade.Trade{tr(id, trade.StatusCleared)}
	req := manualRequest(t, filter.Input{TradeID: &id, AssetType: "fx", Statuses: []string{"CLEARED"}})

	resp, err := f.service().Search(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.extractor.calls != 0 {
		t.Error("manual search must not call the extractor")
	}
	if !strings.Contains(f.executor.lastPlan.Text(), "WHERE id = $1") {
		t.Errorf("unexpected plan text: %s", f.executor.lastPlan.Text())
	}
	vals := f.executor.lastPlan.Values()
	if len(vals) != 1 || vals[0] != id {
		t.Errorf("values = %v, want [%d]", vals, id)
	}
	if resp.ExtractedParams != nil {
		t.Error("manual search must not report extracted params")
	}
	want := `{"trade_id":77194044,"asset_type":"FX","status":["CLEARED"],"date_type":"update_time"}`
	if got := f.history.savedTexts(); len(got) != 1 || got[0] != want {
		t.Errorf("history texts = %v, want [%s]", got, want)
	}
}

func TestSearch_ManualCreateTimeOrdering(t *testing.T) {
	f := newFixture(t)
	req := manualRequest(t, filter.Input{DateField: filter.CreateTime, DateFrom: "2025-06-01"})

	if _, err := f.service().Search(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := f.executor.lastPlan.Text()
	if !strings.Contains(text, "create_time >= $1") || !strings.Contains(text, "ORDER BY create_time DESC") {
		t.Errorf("unexpected plan text: %s", text)
	}
}

func TestSearch_ExtractionErrorPropagates(t *testing.T) {
	f := newFixture(t)
	f.extractor.err = domain.ErrResponseUnusable

	_, err := f.service().Search(context.Background(), nlRequest(t, "gibberish query"))
	if !errors.Is(err, domain.ErrResponseUnusable) {
		t.Fatalf("expected ErrResponseUnusable, got %v", err)
	}
	if f.executor.lastPlan.Text() != "" {
		t.Error("store must not be queried after extraction failure")
	}
}

func TestSearch_StoreErrorPropagates(t *testing.T) {
	f := newFixture(t)
	f.executor.executeErr = domain.ErrStoreUnavailable

	_, err := f.service().Search(context.Background(), nlRequest(t, "fx trades"))
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestSearch_EnrichmentFailureKeepsOrder(t *testing.T) {
	f := newFixture(t)
	f.executor.rows = []trade.Trade{tr(1, trade.StatusCleared), tr(2, trade.StatusRejected)}
	f.executor.enrichErr = domain.ErrStoreQueryFailed

	resp, err := f.service().Search(context.Background(), nlRequest(t, "fx trades"))
	if err != nil {
		t.Fatalf("enrichment failure must not fail the search: %v", err)
	}
	if resp.Ranked {
		t.Error("Ranked = true after enrichment failure")
	}
	if resp.Results[0].Trade().ID() != 1 || resp.Results[1].Trade().ID() != 2 {
		t.Error("store order must be kept")
	}
}

func TestSearch_RankingDisabled(t *testing.T) {
	f := newFixture(t)
	f.rankOn = false
	f.executor.rows = []trade.Trade{tr(1, trade.StatusCleared), tr(2, trade.StatusRejected)}

	resp, err := f.service().Search(context.Background(), nlRequest(t, "fx trades"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Ranked || f.executor.enrichCalls != 0 {
		t.Errorf("ranked=%v enrichCalls=%d", resp.Ranked, f.executor.enrichCalls)
	}
	if resp.Results[0].Trade().ID() != 1 {
		t.Error("store order must be kept")
	}
}

func TestSearch_EmptyResult(t *testing.T) {
	f := newFixture(t)

	resp, err := f.service().Search(context.Background(), nlRequest(t, "fx trades"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.TotalResults != 0 || len(resp.Results) != 0 || resp.Ranked || f.executor.enrichCalls != 0 {
		t.Errorf("unexpected empty response %+v", resp)
	}
}

func TestSearch_TruncatedReportsTotalMatches(t *testing.T) {
	f := newFixture(t)
	f.maxRes = 2
	f.executor.rows = []trade.Trade{tr(1, trade.StatusCleared), tr(2, trade.StatusCleared)}
	f.executor.count = 17

	resp, err := f.service().Search(context.Background(), nlRequest(t, "fx trades"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Truncated || resp.TotalMatches != 17 || resp.TotalResults != 2 {
		t.Errorf("truncated=%v total_matches=%d total_results=%d", resp.Truncated, resp.TotalMatches, resp.TotalResults)
	}

	f.executor.countErr = domain.ErrStoreQueryFailed
	resp, err = f.service().Search(context.Background(), nlRequest(t, "fx trades"))
	if err != nil {
		t.Fatalf("count failure must not fail the search: %v", err)
	}
	if !resp.Truncated || resp.TotalMatches != 2 {
		t.Errorf("fallback total_matches = %d, want 2", resp.TotalMatches)
	}
}

func TestSearch_NotTruncatedUnderCap(t *testing.T) {
	f := newFixture(t)
	f.executor.rows = []trade.Trade{tr(1, trade.StatusCleared)}

	resp, err := f.service().Search(context.Background(), nlRequest(t, "fx trades"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Truncated || f.executor.countCalls != 0 {
		t.Errorf("truncated=%v countCalls=%d", resp.Truncated, f.executor.countCalls)
	}
}

func TestSearch_HistoryFailureIsInvisible(t *testing.T) {
	f := newFixture(t)
	f.history.err = errors.New("disk full")
	before := testutil.ToFloat64(metrics.HistoryLogFailuresTotal)

	resp, err := f.service().Search(context.Background(), nlRequest(t, "fx trades"))
	if err != nil {
		t.Fatalf("history failure must not fail the search: %v", err)
	}
	if resp.QueryID != 0 {
		t.Errorf("QueryID = %d, want 0", resp.QueryID)
	}
	if d := testutil.ToFloat64(metrics.HistoryLogFailuresTotal) - before; d != 1 {
		t.Errorf("failure counter delta = %v, want 1", d)
	}
}

func TestSearch_SlowHistoryDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	f.wait = 10 * time.Millisecond
	f.history.block = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())

	resp, err := f.service().Search(ctx, nlRequest(t, "fx trades"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.QueryID != 0 {
		t.Errorf("QueryID = %d, want 0 while history is pending", resp.QueryID)
	}

	// The write survives request cancellation.
	cancel()
	close(f.history.block)
	deadline := time.Now().Add(2 * time.Second)
	for len(f.history.savedTexts()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("history write never completed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	f.history.mu.Lock()
	live := f.history.ctxLive
	f.history.mu.Unlock()
	if !live {
		t.Error("history write saw a cancelled context")
	}
}

func TestSearch_PoolOverloadDropsHistory(t *testing.T) {
	f := newFixture(t)
	f.pool = rejectingPool{}
	before := testutil.ToFloat64(metrics.HistoryLogFailuresTotal)

	resp, err := f.service().Search(context.Background(), nlRequest(t, "fx trades"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.QueryID != 0 {
		t.Errorf("QueryID = %d, want 0", resp.QueryID)
	}
	if d := testutil.ToFloat64(metrics.HistoryLogFailuresTotal) - before; d != 1 {
		t.Errorf("failure counter delta = %v, want 1", d)
	}
}

func TestCanonicalFilters(t *testing.T) {
	m, err := filter.NewManual(filter.Input{
		Account:   " acc123 ",
		Statuses:  []string{"alleged", "rejected"},
		DateField: filter.CreateTime,
		DateFrom:  "2025-06-01",
		DateTo:    "2025-06-10",
	})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"account":"acc123","status":["ALLEGED","REJECTED"],"date_type":"create_time",` +
		`"date_from":"2025-06-01","date_to":"2025-06-10"}`
	if got := CanonicalFilters(m); got != want {
		t.Errorf("CanonicalFilters() =\n%s\nwant\n%s", got, want)
	}
}

func TestNewHistoryPool_QueuesBurst(t *testing.T) {
	pool, err := NewHistoryPool(1, 2)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Release)

	release := make(chan struct{})
	if err := pool.Submit(func() { <-release }); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	var ran sync.WaitGroup
	ran.Add(2)
	for i := 0; i < 2; i++ {
		go func() {
			if err := pool.Submit(ran.Done); err != nil {
				t.Errorf("queued submit: %v", err)
				ran.Done()
			}
		}()
	}
	deadline := time.Now().Add(2 * time.Second)
	for pool.Waiting() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("waiting = %d, want 2", pool.Waiting())
		}
		time.Sleep(time.Millisecond)
	}

	if err := pool.Submit(func() {}); !errors.Is(err, ants.ErrPoolOverload) {
		t.Errorf("submit past the queue: got %v, want ErrPoolOverload", err)
	}
	close(release)
	ran.Wait()
}

func TestNewHistoryPool_NoQueueRejects(t *testing.T) {
	pool, err := NewHistoryPool(1, 0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Release)

	release := make(chan struct{})
	defer close(release)
	if err := pool.Submit(func() { <-release }); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := pool.Submit(func() {}); !errors.Is(err, ants.ErrPoolOverload) {
		t.Errorf("got %v, want ErrPoolOverload", err)
	}
}

func TestSearch_BurstKeepsHistory(t *testing.T) {
	pool, err := NewHistoryPool(1, 16)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Release)
	f := newFixture(t)
	f.pool = pool
	f.wait = 10 * time.Millisecond
	f.history.block = make(chan struct{})
	svc := f.service()
	before := testutil.ToFloat64(metrics.HistoryLogFailuresTotal)

	// The only worker is stuck on the first write; the rest queue behind it.
	for i := 0; i < 8; i++ {
		if _, err := svc.Search(context.Background(), nlRequest(t, "fx trades")); err != nil {
			t.Fatalf("search %d: %v", i, err)
		}
	}
	close(f.history.block)

	deadline := time.Now().Add(2 * time.Second)
	for len(f.history.savedTexts()) < 8 {
		if time.Now().After(deadline) {
			t.Fatalf("saved %d history records, want 8", len(f.history.savedTexts()))
		}
		time.Sleep(5 * time.Millisecond)
	}
	if d := testutil.ToFloat64(metrics.HistoryLogFailuresTotal) - before; d != 0 {
		t.Errorf("failure counter delta = %v, want 0", d)
	}
}
