package tradesearch

import "time"

// Trade is a single trade record.
type Trade struct {
	ID                int64
	Account           string
	AssetType         string
	BookingSystem     string
	AffirmationSystem string
	ClearingHouse     string
	Status            string
	CreateTime        time.Time
	// UpdateTime is zero when the trade was never updated.
	UpdateTime time.Time
}

// Result is a matched trade with its relevance score.
type Result struct {
	Trade Trade
	// Score is in [0,100]. Zero with Scored=false when ranking did not run.
	Score  float64
	Scored bool
}

// ExtractedParams are the filters the model derived from free text.
type ExtractedParams struct {
	TradeID            *int64
	Accounts           []string
	AssetTypes         []string
	BookingSystems     []string
	AffirmationSystems []string
	ClearingHouses     []string
	Statuses           []string
	DateFrom           string
	DateTo             string
	WithExceptionsOnly bool
	ClearedTradesOnly  bool
}

// SearchResponse is the outcome of one search.
type SearchResponse struct {
	// QueryID is the history record id, 0 when logging did not finish in time.
	QueryID      int64
	SearchID     string
	TotalResults int
	TotalMatches int
	Truncated    bool
	Ranked       bool
	Results      []Result
	Duration     time.Duration
	// ExtractedParams is nil for manual searches.
	ExtractedParams *ExtractedParams
	ModelTokens     int
}

// ManualFilters narrows a search without the model. Empty fields are ignored.
type ManualFilters struct {
	TradeID           *int64
	Account           string
	AssetType         string
	BookingSystem     string
	AffirmationSystem string
	ClearingHouse     string
	Statuses          []string
	// DateField is "update_time" (default) or "create_time".
	DateField          string
	DateFrom           string
	DateTo             string
	WithExceptionsOnly bool
	ClearedTradesOnly  bool
}

// FilterOptions lists the distinct values of every filterable column.
type FilterOptions struct {
	Accounts           []string
	AssetTypes         []string
	BookingSystems     []string
	AffirmationSystems []string
	ClearingHouses     []string
	Statuses           []string
}

// HistoryEntry is one stored query.
type HistoryEntry struct {
	ID          int64
	QueryText   string
	SearchType  string
	IsSaved     bool
	Name        string
	CreateTime  time.Time
	LastUseTime time.Time
}

// HistoryStats summarizes a user's history.
type HistoryStats struct {
	Total  int
	Saved  int
	Recent int
}

// Suggestion is an autocomplete candidate.
type Suggestion struct {
	Text     string
	Category string
	Score    float64
}
