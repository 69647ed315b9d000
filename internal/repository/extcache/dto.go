package extcache

import "github.com/kailas-cloud/tradesearch/internal/domain/search/params"

// entryDTO is the cached JSON form of validated parameters.
type entryDTO struct {
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

func fromDomain(p params.Extracted) entryDTO {
	return entryDTO{
		TradeID:            p.TradeID,
		Accounts:           p.Accounts,
		AssetTypes:         p.AssetTypes,
		BookingSystems:     p.BookingSystems,
		AffirmationSystems: p.AffirmationSystems,
		ClearingHouses:     p.ClearingHouses,
		Statuses:           p.Statuses,
		DateFrom:           p.DateFrom,
		DateTo:             p.DateTo,
		WithExceptionsOnly: p.WithExceptionsOnly,
		ClearedTradesOnly:  p.ClearedTradesOnly,
	}
}

func (d entryDTO) toDomain() params.Extracted {
	return params.Extracted{
		TradeID:            d.TradeID,
		Accounts:           nilIfEmpty(d.Accounts),
		AssetTypes:         nilIfEmpty(d.AssetTypes),
		BookingSystems:     nilIfEmpty(d.BookingSystems),
		AffirmationSystems: nilIfEmpty(d.AffirmationSystems),
		ClearingHouses:     nilIfEmpty(d.ClearingHouses),
		Statuses:           nilIfEmpty(d.Statuses),
		DateFrom:           d.DateFrom,
		DateTo:             d.DateTo,
		WithExceptionsOnly: d.WithExceptionsOnly,
		ClearedTradesOnly:  d.ClearedTradesOnly,
	}
}

func nilIfEmpty(v []string) []string {
	if len(v) == 0 {
		return nil
	}
	return v
}
