package chi

import "time"

// ErrorCode is a machine-readable error identifier returned in ErrorResponse.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest          ErrorCode = "bad_request"
	ErrorCodeUnauthorized        ErrorCode = "unauthorized"
	ErrorCodeValidationFailed    ErrorCode = "validation_failed"
	ErrorCodeExtractionUnusable  ErrorCode = "extraction_unusable"
	ErrorCodeModelUnavailable    ErrorCode = "model_unavailable"
	ErrorCodeTokenBudgetExceeded ErrorCode = "token_budget_exceeded"
	ErrorCodeStoreUnavailable    ErrorCode = "store_unavailable"
	ErrorCodeStoreQueryFailed    ErrorCode = "store_query_failed"
	ErrorCodeQueryUnsafe         ErrorCode = "query_unsafe"
	ErrorCodeHistoryNotFound     ErrorCode = "history_not_found"
	ErrorCodeHistoryForbidden    ErrorCode = "history_forbidden"
	ErrorCodeInternalError       ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// ManualFilters is the manual search filter set.
type ManualFilters struct {
	TradeID            *int64   `json:"trade_id,omitempty"`
	Account            *string  `json:"account,omitempty"`
	AssetType          *string  `json:"asset_type,omitempty"`
	BookingSystem      *string  `json:"booking_system,omitempty"`
	AffirmationSystem  *string  `json:"affirmation_system,omitempty"`
	ClearingHouse      *string  `json:"clearing_house,omitempty"`
	Status             []string `json:"status,omitempty"`
	DateType           *string  `json:"date_type,omitempty"`
	DateFrom           *string  `json:"date_from,omitempty"`
	DateTo             *string  `json:"date_to,omitempty"`
	WithExceptionsOnly *bool    `json:"with_exceptions_only,omitempty"`
	ClearedTradesOnly  *bool    `json:"cleared_trades_only,omitempty"`
}

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	UserID     string         `json:"user_id"`
	SearchType string         `json:"search_type"`
	QueryText  *string        `json:"query_text,omitempty"`
	Filters    *ManualFilters `json:"filters,omitempty"`
}

// Trade is one search result row.
type Trade struct {
	TradeID           int64      `json:"trade_id"`
	Account           string     `json:"account"`
	AssetType         string     `json:"asset_type"`
	BookingSystem     string     `json:"booking_system"`
	AffirmationSystem string     `json:"affirmation_system"`
	ClearingHouse     string     `json:"clearing_house"`
	Status            string     `json:"status"`
	CreateTime        *time.Time `json:"create_time"`
	UpdateTime        *time.Time `json:"update_time"`
	RelevanceScore    *float64   `json:"relevance_score,omitempty"`
}

// ExtractedParams echoes the parameters extracted from a natural-language query.
type ExtractedParams struct {
	TradeID            *int64   `json:"trade_id"`
	Accounts           []string `json:"accounts"`
	AssetTypes         []string `json:"asset_types"`
	BookingSystems     []string `json:"booking_systems"`
	AffirmationSystems []string `json:"affirmation_systems"`
	ClearingHouses     []string `json:"clearing_houses"`
	Statuses           []string `json:"statuses"`
	DateFrom           *string  `json:"date_from"`
	DateTo             *string  `json:"date_to"`
	WithExceptionsOnly bool     `json:"with_exceptions_only"`
	ClearedTradesOnly  bool     `json:"cleared_trades_only"`
}

// SearchResponse is the body of a successful POST /search.
type SearchResponse struct {
	QueryID         int64            `json:"query_id"`
	SearchID        string           `json:"search_id"`
	TotalResults    int              `json:"total_results"`
	TotalMatches    int              `json:"total_matches"`
	Truncated       bool             `json:"truncated"`
	Ranked          bool             `json:"ranked"`
	Results         []Trade          `json:"results"`
	SearchType      string           `json:"search_type"`
	ExecutionTimeMs int64            `json:"execution_time_ms"`
	ExtractedParams *ExtractedParams `json:"extracted_params,omitempty"`
}

// FilterOptionsResponse lists distinct values per filterable column.
type FilterOptionsResponse struct {
	Accounts           []string `json:"accounts"`
	AssetTypes         []string `json:"asset_types"`
	BookingSystems     []string `json:"booking_systems"`
	AffirmationSystems []string `json:"affirmation_systems"`
	ClearingHouses     []string `json:"clearing_houses"`
	Statuses           []string `json:"statuses"`
}

// QueryHistory is one stored query.
type QueryHistory struct {
	QueryID     int64     `json:"query_id"`
	UserID      string    `json:"user_id"`
	QueryText   string    `json:"query_text"`
	SearchType  string    `json:"search_type"`
	IsSaved     bool      `json:"is_saved"`
	QueryName   *string   `json:"query_name"`
	CreateTime  time.Time `json:"create_time"`
	LastUseTime time.Time `json:"last_use_time"`
}

// UpdateHistoryRequest is the body of PUT /history/{id}.
type UpdateHistoryRequest struct {
	IsSaved   bool    `json:"is_saved"`
	QueryName *string `json:"query_name,omitempty"`
}

// HistoryStatsResponse summarizes a user's history.
type HistoryStatsResponse struct {
	UserID      string `json:"user_id"`
	TotalCount  int    `json:"total_count"`
	SavedCount  int    `json:"saved_count"`
	RecentCount int    `json:"recent_count"`
}

// Suggestion is one autocomplete candidate.
type Suggestion struct {
	Text     string  `json:"text"`
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// DeleteHistoryResponse is the body of DELETE /history.
type DeleteHistoryResponse struct {
	UserID       string `json:"user_id"`
	DeletedCount int    `json:"deleted_count"`
}

// UsageResponse reports model token usage for a period.
type UsageResponse struct {
	Period        string       `json:"period"`
	Model         string       `json:"model"`
	PeriodStartAt *time.Time   `json:"period_start_at,omitempty"`
	PeriodEndAt   *time.Time   `json:"period_end_at,omitempty"`
	Usage         UsageMetrics `json:"usage"`
	Budget        BudgetStatus `json:"budget"`
}

// UsageMetrics counts model calls and tokens.
type UsageMetrics struct {
	Requests int `json:"requests"`
	Tokens   int `json:"tokens"`
}

// BudgetStatus is the token budget state. Zero limit means unlimited.
type BudgetStatus struct {
	TokensLimit     int        `json:"tokens_limit"`
	TokensRemaining int        `json:"tokens_remaining"`
	IsExhausted     bool       `json:"is_exhausted"`
	ResetsAt        *time.Time `json:"resets_at,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
