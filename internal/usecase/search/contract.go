package search

import (
	"context"
	"time"

	"github.com/kailas-cloud/tradesearch/internal/domain/search/filter"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/mode"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/params"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/plan"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/result"
	"github.com/kailas-cloud/tradesearch/internal/domain/trade"
)

// Extractor resolves free text into search parameters.
type Extractor interface {
	Extract(ctx context.Context, text, requesterID string, asOf time.Time) (params.Extracted, error)
}

// Planner builds parameterized query plans.
type Planner interface {
	Build(p params.Extracted, df filter.DateField) plan.Plan
	BuildManual(m filter.Manual) plan.Plan
	BuildCount(p params.Extracted, df filter.DateField) plan.Plan
	BuildEnrichment(ids []int64) plan.Plan
	MaxResults() int
}

// Executor runs plans against the record store.
type Executor interface {
	Execute(ctx context.Context, p plan.Plan) ([]trade.Trade, error)
	Enrichment(ctx context.Context, p plan.Plan) (map[int64]int, error)
	Count(ctx context.Context, p plan.Plan) (int, error)
}

// HistoryLogger records executed searches.
type HistoryLogger interface {
	Save(ctx context.Context, userID, queryText string, m mode.Mode, at time.Time) (int64, error)
}

// Ranker reorders results by relevance.
type Ranker interface {
	Enabled() bool
	Rank(ctx context.Context, records []trade.Trade, activity map[int64]int) ([]result.Scored, bool)
}

// Submitter runs tasks on a bounded worker pool (*ants.Pool).
type Submitter interface {
	Submit(task func()) error
}
