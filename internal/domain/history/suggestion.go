package history

// Suggestion categories.
const (
	CategoryAccount           = "Account"
	CategoryAssetType         = "Asset type"
	CategoryBookingSystem     = "Booking system"
	CategoryAffirmationSystem = "Affirmation system"
	CategoryClearingHouse     = "Clearing house"
	CategoryStatus            = "Status"
	CategoryTradeID           = "Trade id"
	CategoryRecent            = "Recent search"
)

// Suggestion is an autocomplete candidate.
type Suggestion struct {
	Text     string
	Category string
	Score    float64
}
