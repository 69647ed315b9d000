package tradesearch

import (
	"context"

	domhist "github.com/kailas-cloud/tradesearch/internal/domain/history"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/request"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/result"
	domtrade "github.com/kailas-cloud/tradesearch/internal/domain/trade"
	domusage "github.com/kailas-cloud/tradesearch/internal/domain/usage"
	healthuc "github.com/kailas-cloud/tradesearch/internal/usecase/health"
)

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn func(ctx context.Context, req request.Request) (result.Response, error)
}

func (m *mockSearchUC) Search(ctx context.Context, req request.Request) (result.Response, error) {
	return m.searchFn(ctx, req)
}

// --- filterUseCase mock ---

type mockFilterUC struct {
	opts domtrade.FilterOptions
	err  error
}

func (m *mockFilterUC) FilterOptions(context.Context) (domtrade.FilterOptions, error) {
	return m.opts, m.err
}

// --- historyUseCase mock ---

type mockHistoryUC struct {
	listFn      func(ctx context.Context, userID string, limit int, savedOnly bool) ([]domhist.Record, error)
	statsFn     func(ctx context.Context, userID string) (domhist.Stats, error)
	updateFn    func(ctx context.Context, id int64, userID string, u domhist.Update) (domhist.Record, error)
	touchFn     func(ctx context.Context, id int64, userID string) error
	deleteFn    func(ctx context.Context, id int64, userID string) error
	deleteAllFn func(ctx context.Context, userID string) (int, error)
	suggestFn   func(ctx context.Context, userID, partial string, limit int) ([]domhist.Suggestion, error)
}

func (m *mockHistoryUC) List(ctx context.Context, userID string, limit int, savedOnly bool) ([]domhist.Record, error) {
	return m.listFn(ctx, userID, limit, savedOnly)
}

func (m *mockHistoryUC) Stats(ctx context.Context, userID string) (domhist.Stats, error) {
	return m.statsFn(ctx, userID)
}

func (m *mockHistoryUC) Update(ctx context.Context, id int64, userID string, u domhist.Update) (domhist.Record, error) {
	return m.updateFn(ctx, id, userID, u)
}

func (m *mockHistoryUC) Touch(ctx context.Context, id int64, userID string) error {
	return m.touchFn(ctx, id, userID)
}

func (m *mockHistoryUC) Delete(ctx context.Context, id int64, userID string) error {
	return m.deleteFn(ctx, id, userID)
}

func (m *mockHistoryUC) DeleteAll(ctx context.Context, userID string) (int, error) {
	return m.deleteAllFn(ctx, userID)
}

func (m *mockHistoryUC) Suggest(ctx context.Context, userID, partial string, limit int) ([]domhist.Suggestion, error) {
	return m.suggestFn(ctx, userID, partial, limit)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

// --- usageUseCase mock ---

type mockUsageUC struct {
	report domusage.Report
}

func (m *mockUsageUC) GetReport(context.Context, domusage.Period) domusage.Report { return m.report }
