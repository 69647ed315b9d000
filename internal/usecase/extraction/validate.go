package extraction

import (
	"go.uber.org/zap"

	"github.com/kailas-cloud/tradesearch/internal/domain/field"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/params"
)

// validate applies Rules to a decoded response. Invalid members and scalars are dropped
// with a warning; a valid trade id clears every other field.
func (s *Service) validate(log *zap.Logger, obj map[string]any) params.Extracted {
	var p params.Extracted

	for _, r := range Rules.Rules() {
		raw := obj[r.Name()]
		switch r.Kind() {
		case field.Int:
			v, ok := r.IntValue(raw)
			if !ok {
				log.Warn("Dropping invalid field", zap.String("field", r.Name()), zap.Any("value", raw))
			}
			if v != nil {
				return params.OnlyTradeID(*v)
			}
		case field.List:
			kept, dropped := r.ListValue(raw)
			if len(dropped) > 0 {
				log.Warn("Dropping unsupported values",
					zap.String("field", r.Name()), zap.Strings("values", dropped))
			}
			setList(&p, r.Name(), kept)
		case field.Date:
			v, ok := r.DateValue(raw)
			if !ok {
				log.Warn("Dropping invalid date", zap.String("field", r.Name()), zap.Any("value", raw))
			}
			setDate(&p, r.Name(), v)
		case field.Bool:
			v, ok := r.BoolValue(raw)
			if !ok {
				log.Warn("Defaulting invalid flag", zap.String("field", r.Name()), zap.Any("value", raw))
			}
			setBool(&p, r.Name(), v)
		}
	}
	return p
}

func setList(p *params.Extracted, name string, v []string) {
	switch name {
	case params.FieldAccounts:
		p.Accounts = v
	case params.FieldAssetTypes:
		p.AssetTypes = v
	case params.FieldBookingSystems:
		p.BookingSystems = v
	case params.FieldAffirmationSystems:
		p.AffirmationSystems = v
	case params.FieldClearingHouses:
		p.ClearingHouses = v
	case params.FieldStatuses:
		p.Statuses = v
	}
}

func setDate(p *params.Extracted, name string, v *string) {
	switch name {
	case params.FieldDateFrom:
		p.DateFrom = v
	case params.FieldDateTo:
		p.DateTo = v
	}
}

func setBool(p *params.Extracted, name string, v bool) {
	switch name {
	case params.FieldWithExceptionsOnly:
		p.WithExceptionsOnly = v
	case params.FieldClearedTradesOnly:
		p.ClearedTradesOnly = v
	}
}
