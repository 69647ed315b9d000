package history

import (
	"context"
	"time"

	domhist "github.com/kailas-cloud/tradesearch/internal/domain/history"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/mode"
)

// Repository is the storage contract for query history.
type Repository interface {
	Get(ctx context.Context, id int64) (domhist.Record, error)
	List(ctx context.Context, userID string, limit int, savedOnly bool) ([]domhist.Record, error)
	RecentTexts(ctx context.Context, userID string, m mode.Mode, limit int) ([]string, error)
	Stats(ctx context.Context, userID string, since time.Time) (domhist.Stats, error)
	Update(ctx context.Context, id int64, u domhist.Update) error
	Touch(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context, userID string) (int, error)
}

// ValueSource looks up distinct trade column values for suggestions.
type ValueSource interface {
	DistinctMatching(ctx context.Context, column, partial string, limit int) ([]string, error)
}
