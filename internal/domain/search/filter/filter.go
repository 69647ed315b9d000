package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/tradesearch/internal/domain"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/params"
	"github.com/kailas-cloud/tradesearch/internal/domain/trade"
)

// DateField selects the timestamp column a manual date range applies to.
type DateField string

// Date field constants.
const (
	UpdateTime DateField = "update_time"
	CreateTime DateField = "create_time"
)

// IsValid checks if the date field is one of the supported columns.
func (d DateField) IsValid() bool {
	return d == UpdateTime || d == CreateTime
}

// Input is the raw manual filter set as received from a caller.
type Input struct {
	TradeID            *int64
	Account            string
	AssetType          string
	BookingSystem      string
	AffirmationSystem  string
	ClearingHouse      string
	Statuses           []string
	DateField          DateField
	DateFrom           string
	DateTo             string
	WithExceptionsOnly bool
	ClearedTradesOnly  bool
}

// Manual is a validated, single-valued filter set (statuses excepted).
type Manual struct {
	tradeID            *int64
	account            string
	assetType          string
	bookingSystem      string
	affirmationSystem  string
	clearingHouse      string
	statuses           []string
	dateField          DateField
	dateFrom           string
	dateTo             string
	withExceptionsOnly bool
	clearedTradesOnly  bool
}

// NewManual validates and normalizes a manual filter set.
// Defaults: date field = update_time. Statuses must be in the closed vocabulary.
func NewManual(in Input) (Manual, error) {
	if in.TradeID != nil && *in.TradeID <= 0 {
		return Manual{}, domain.NewValidationError("trade_id", "must be a positive integer")
	}

	df := in.DateField
	if df == "" {
		df = UpdateTime
	}
	if !df.IsValid() {
		return Manual{}, domain.NewValidationError("date_type",
			fmt.Sprintf("must be %q or %q, got %q", UpdateTime, CreateTime, df))
	}

	statuses := make([]string, 0, len(in.Statuses))
	for _, s := range in.Statuses {
		s = strings.ToUpper(strings.TrimSpace(s))
		if !trade.IsValidStatus(s) {
			return Manual{}, domain.NewValidationError("status",
				fmt.Sprintf("invalid status %q, must be one of %v", s, trade.Statuses()))
		}
		statuses = append(statuses, s)
	}

	from, err := normalizeDate("date_from", in.DateFrom)
	if err != nil {
		return Manual{}, err
	}
	to, err := normalizeDate("date_to", in.DateTo)
	if err != nil {
		return Manual{}, err
	}

	m := Manual{
		tradeID:            in.TradeID,
		account:            strings.TrimSpace(in.Account),
		assetType:          strings.ToUpper(strings.TrimSpace(in.AssetType)),
		bookingSystem:      strings.ToUpper(strings.TrimSpace(in.BookingSystem)),
		affirmationSystem:  strings.ToUpper(strings.TrimSpace(in.AffirmationSystem)),
		clearingHouse:      strings.ToUpper(strings.TrimSpace(in.ClearingHouse)),
		dateField:          df,
		dateFrom:           from,
		dateTo:             to,
		withExceptionsOnly: in.WithExceptionsOnly,
		clearedTradesOnly:  in.ClearedTradesOnly,
	}
	if len(statuses) > 0 {
		m.statuses = statuses
	}
	return m, nil
}

func normalizeDate(name, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", nil
	}
	if _, err := time.Parse("2006-01-02", v); err != nil {
		return "", domain.NewValidationError(name, fmt.Sprintf("invalid date %q, must be YYYY-MM-DD", v))
	}
	return v, nil
}

// TradeID returns the exact trade id, if any.
func (m Manual) TradeID() *int64 { return m.tradeID }

// Account returns the account filter.
func (m Manual) Account() string { return m.account }

// AssetType returns the asset type filter.
func (m Manual) AssetType() string { return m.assetType }

// BookingSystem returns the booking system filter.
func (m Manual) BookingSystem() string { return m.bookingSystem }

// AffirmationSystem returns the affirmation system filter.
func (m Manual) AffirmationSystem() string { return m.affirmationSystem }

// ClearingHouse returns the clearing house filter.
func (m Manual) ClearingHouse() string { return m.clearingHouse }

// Statuses returns the status filter (nil when unset).
func (m Manual) Statuses() []string { return m.statuses }

// DateField returns the timestamp column used for range and sort.
func (m Manual) DateField() DateField { return m.dateField }

// DateFrom returns the inclusive start date, empty when unset.
func (m Manual) DateFrom() string { return m.dateFrom }

// DateTo returns the inclusive end date, empty when unset.
func (m Manual) DateTo() string { return m.dateTo }

// WithExceptionsOnly reports the exceptions flag.
func (m Manual) WithExceptionsOnly() bool { return m.withExceptionsOnly }

// ClearedTradesOnly reports the cleared-only flag.
func (m Manual) ClearedTradesOnly() bool { return m.clearedTradesOnly }

// Params lifts the single-valued filters into the list-based parameter object.
func (m Manual) Params() params.Extracted {
	p := params.Extracted{
		TradeID:            m.tradeID,
		Accounts:           single(m.account),
		AssetTypes:         single(m.assetType),
		BookingSystems:     single(m.bookingSystem),
		AffirmationSystems: single(m.affirmationSystem),
		ClearingHouses:     single(m.clearingHouse),
		Statuses:           m.statuses,
		WithExceptionsOnly: m.withExceptionsOnly,
		ClearedTradesOnly:  m.clearedTradesOnly,
	}
	if m.dateFrom != "" {
		from := m.dateFrom
		p.DateFrom = &from
	}
	if m.dateTo != "" {
		to := m.dateTo
		p.DateTo = &to
	}
	return p
}

func single(v string) []string {
	if v == "" {
		return nil
	}
	return []string{v}
}
