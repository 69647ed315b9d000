package chi

import (
	"context"

	domhist "github.com/kailas-cloud/tradesearch/internal/domain/history"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/request"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/result"
	domtrade "github.com/kailas-cloud/tradesearch/internal/domain/trade"
	domusage "github.com/kailas-cloud/tradesearch/internal/domain/usage"
	healthuc "github.com/kailas-cloud/tradesearch/internal/usecase/health"
)

// Searcher runs one search end to end.
type Searcher interface {
	Search(ctx context.Context, req request.Request) (result.Response, error)
}

// FilterOptionsReader lists distinct values per filterable column.
type FilterOptionsReader interface {
	FilterOptions(ctx context.Context) (domtrade.FilterOptions, error)
}

// HistoryService manages stored queries.
type HistoryService interface {
	List(ctx context.Context, userID string, limit int, savedOnly bool) ([]domhist.Record, error)
	Stats(ctx context.Context, userID string) (domhist.Stats, error)
	Update(ctx context.Context, id int64, userID string, u domhist.Update) (domhist.Record, error)
	Touch(ctx context.Context, id int64, userID string) error
	Delete(ctx context.Context, id int64, userID string) error
	DeleteAll(ctx context.Context, userID string) (int, error)
	Suggest(ctx context.Context, userID, partial string, limit int) ([]domhist.Suggestion, error)
}

// UsageReporter builds model usage reports.
type UsageReporter interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
