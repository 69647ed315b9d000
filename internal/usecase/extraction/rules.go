package extraction

import (
	"github.com/kailas-cloud/tradesearch/internal/domain/field"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/params"
	"github.com/kailas-cloud/tradesearch/internal/domain/trade"
)

// Rules validates every field of a decoded model response.
// Only statuses are a closed vocabulary; the other categorical fields are copied verbatim.
var Rules = mustTable(
	field.MustNew(params.FieldTradeID, field.Int, field.Nullable()),
	field.MustNew(params.FieldAccounts, field.List, field.Nullable()),
	field.MustNew(params.FieldAssetTypes, field.List, field.Nullable()),
	field.MustNew(params.FieldBookingSystems, field.List, field.Nullable()),
	field.MustNew(params.FieldAffirmationSystems, field.List, field.Nullable()),
	field.MustNew(params.FieldClearingHouses, field.List, field.Nullable()),
	field.MustNew(params.FieldStatuses, field.List, field.Nullable(), field.OneOf(trade.Statuses()...)),
	field.MustNew(params.FieldDateFrom, field.Date, field.Nullable()),
	field.MustNew(params.FieldDateTo, field.Date, field.Nullable()),
	field.MustNew(params.FieldWithExceptionsOnly, field.Bool),
	field.MustNew(params.FieldClearedTradesOnly, field.Bool),
)

func mustTable(rules ...field.Rule) field.Table {
	t, err := field.NewTable(rules...)
	if err != nil {
		panic(err)
	}
	return t
}
