// Package params holds the structured filter object produced by parameter extraction.
package params

// Parameter field names, shared by the model contract, the rule table and the cache.
const (
	FieldTradeID            = "trade_id"
	FieldAccounts           = "accounts"
	FieldAssetTypes         = "asset_types"
	FieldBookingSystems     = "booking_systems"
	FieldAffirmationSystems = "affirmation_systems"
	FieldClearingHouses     = "clearing_houses"
	FieldStatuses           = "statuses"
	FieldDateFrom           = "date_from"
	FieldDateTo             = "date_to"
	FieldWithExceptionsOnly = "with_exceptions_only"
	FieldClearedTradesOnly  = "cleared_trades_only"
)

// Extracted is a validated set of search parameters.
// Every list is either nil or non-empty. Statuses only hold closed-vocabulary values.
type Extracted struct {
	TradeID            *int64
	Accounts           []string
	AssetTypes         []string
	BookingSystems     []string
	AffirmationSystems []string
	ClearingHouses     []string
	Statuses           []string
	DateFrom           *string
	DateTo             *string
	WithExceptionsOnly bool
	ClearedTradesOnly  bool
}

// HasTradeID reports whether an exact trade id short-circuits the other fields.
func (p Extracted) HasTradeID() bool { return p.TradeID != nil }

// IsEmpty reports whether no field constrains the search.
func (p Extracted) IsEmpty() bool {
	return p.TradeID == nil &&
		len(p.Accounts) == 0 &&
		len(p.AssetTypes) == 0 &&
		len(p.BookingSystems) == 0 &&
		len(p.AffirmationSystems) == 0 &&
		len(p.ClearingHouses) == 0 &&
		len(p.Statuses) == 0 &&
		p.DateFrom == nil &&
		p.DateTo == nil &&
		!p.WithExceptionsOnly &&
		!p.ClearedTradesOnly
}

// OnlyTradeID returns the short-circuited form: the id kept, every other field null/false.
func OnlyTradeID(id int64) Extracted {
	return Extracted{TradeID: &id}
}
