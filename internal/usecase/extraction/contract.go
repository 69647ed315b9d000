package extraction

import (
	"context"

	"github.com/kailas-cloud/tradesearch/internal/domain/search/params"
)

// Cache stores validated parameters keyed by normalized query text.
// Implementations absorb their own failures: a broken backend reads as a miss.
type Cache interface {
	Get(ctx context.Context, normalized string) (params.Extracted, bool)
	Put(ctx context.Context, normalized string, p params.Extracted)
}
