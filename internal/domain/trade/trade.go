package trade

import "time"

// Closed status vocabulary.
const (
	StatusAlleged   = "ALLEGED"
	StatusCleared   = "CLEARED"
	StatusRejected  = "REJECTED"
	StatusCancelled = "CANCELLED"
)

// Statuses lists every valid trade status.
func Statuses() []string {
	return []string{StatusAlleged, StatusCleared, StatusRejected, StatusCancelled}
}

// IsValidStatus reports whether s is in the closed status vocabulary.
func IsValidStatus(s string) bool {
	switch s {
	case StatusAlleged, StatusCleared, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Filterable columns exposed to lookups and suggestions.
const (
	ColumnAccount           = "account"
	ColumnAssetType         = "asset_type"
	ColumnBookingSystem     = "booking_system"
	ColumnAffirmationSystem = "affirmation_system"
	ColumnClearingHouse     = "clearing_house"
	ColumnStatus            = "status"
	ColumnTradeID           = "trade_id"
)

// Trade is an immutable trade record read from the record store.
type Trade struct {
	id                int64
	account           string
	assetType         string
	bookingSystem     string
	affirmationSystem string
	clearingHouse     string
	status            string
	createTime        time.Time
	updateTime        time.Time
}

// Attrs groups the fields needed to hydrate a Trade.
type Attrs struct {
	Account           string
	AssetType         string
	BookingSystem     string
	AffirmationSystem string
	ClearingHouse     string
	Status            string
	CreateTime        time.Time
	UpdateTime        time.Time
}

// Reconstruct creates a Trade without validation (storage hydration).
func Reconstruct(id int64, a Attrs) Trade {
	return Trade{
		id:                id,
		account:           a.Account,
		assetType:         a.AssetType,
		bookingSystem:     a.BookingSystem,
		affirmationSystem: a.AffirmationSystem,
		clearingHouse:     a.ClearingHouse,
		status:            a.Status,
		createTime:        a.CreateTime,
		updateTime:        a.UpdateTime,
	}
}

// ID returns the trade identifier.
func (t Trade) ID() int64 { return t.id }

// Account returns the booking account.
func (t Trade) Account() string { return t.account }

// AssetType returns the asset class (FX, IRS, ...).
func (t Trade) AssetType() string { return t.assetType }

// BookingSystem returns the originating booking system.
func (t Trade) BookingSystem() string { return t.bookingSystem }

// AffirmationSystem returns the affirmation platform.
func (t Trade) AffirmationSystem() string { return t.affirmationSystem }

// ClearingHouse returns the clearing house.
func (t Trade) ClearingHouse() string { return t.clearingHouse }

// Status returns the lifecycle status.
func (t Trade) Status() string { return t.status }

// CreateTime returns the creation timestamp.
func (t Trade) CreateTime() time.Time { return t.createTime }

// UpdateTime returns the last update timestamp. Zero when unknown.
func (t Trade) UpdateTime() time.Time { return t.updateTime }

// FilterOptions holds the distinct values available for each filterable column.
type FilterOptions struct {
	Accounts           []string
	AssetTypes         []string
	BookingSystems     []string
	AffirmationSystems []string
	ClearingHouses     []string
	Statuses           []string
}
