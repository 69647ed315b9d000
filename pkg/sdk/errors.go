package tradesearch

import "github.com/kailas-cloud/tradesearch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidRequest            = domain.ErrRequestValidation
	ErrModelUnavailable          = domain.ErrUpstreamUnavailable
	ErrModelResponseUnusable     = domain.ErrResponseUnusable
	ErrTokenBudgetExceeded       = domain.ErrTokenBudgetExceeded
	ErrQueryUnsafe               = domain.ErrQueryUnsafe
	ErrStoreUnavailable          = domain.ErrStoreUnavailable
	ErrStoreQueryFailed          = domain.ErrStoreQueryFailed
	ErrHistoryNotFound           = domain.ErrHistoryNotFound
	ErrUnauthorizedHistoryAccess = domain.ErrUnauthorizedHistoryAccess
)
