// Package query compiles search parameters into parameterized record store plans.
package query

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tradesearch/internal/domain/field"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/filter"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/params"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/plan"
	"github.com/kailas-cloud/tradesearch/internal/domain/trade"
)

// DefaultMaxResults caps every search plan.
const DefaultMaxResults = 50

// TradeColumns is the projection every trade plan selects, in scan order.
const TradeColumns = "id, account, asset_type, booking_system, affirmation_system, " +
	"clearing_house, status, create_time, update_time"

// Column per list parameter. Only these names ever reach query text.
var listColumns = []struct {
	name   string
	column string
	get    func(params.Extracted) []string
}{
	{params.FieldAccounts, "account", func(p params.Extracted) []string { return p.Accounts }},
	{params.FieldAssetTypes, "asset_type", func(p params.Extracted) []string { return p.AssetTypes }},
	{params.FieldBookingSystems, "booking_system", func(p params.Extracted) []string { return p.BookingSystems }},
	{params.FieldAffirmationSystems, "affirmation_system", func(p params.Extracted) []string { return p.AffirmationSystems }},
	{params.FieldClearingHouses, "clearing_house", func(p params.Extracted) []string { return p.ClearingHouses }},
	{params.FieldStatuses, "status", func(p params.Extracted) []string { return p.Statuses }},
}

// sortColumns allow-lists ORDER BY / date-range columns.
var sortColumns = map[filter.DateField]string{
	filter.UpdateTime: "update_time",
	filter.CreateTime: "create_time",
}

// Builder produces plans whose text holds only $n placeholders; values travel separately.
type Builder struct {
	maxResults int
	logger     *zap.Logger
}

// New creates a Builder. Non-positive maxResults selects DefaultMaxResults.
func New(maxResults int, logger *zap.Logger) *Builder {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{maxResults: maxResults, logger: logger}
}

// MaxResults returns the row cap applied to search plans.
func (b *Builder) MaxResults() int { return b.maxResults }

// Build compiles p into a search plan. A trade id short-circuits to a one-row lookup.
// df selects the date column for ranges and ordering; the zero value means update_time.
func (b *Builder) Build(p params.Extracted, df filter.DateField) plan.Plan {
	if p.HasTradeID() {
		return plan.New("SELECT "+TradeColumns+" FROM trades WHERE id = $1 LIMIT 1", []any{*p.TradeID})
	}

	col := dateColumn(df)
	w := b.where(p, col)

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(TradeColumns)
	sb.WriteString(" FROM trades WHERE ")
	sb.WriteString(w.clause())
	sb.WriteString(" ORDER BY ")
	sb.WriteString(col)
	sb.WriteString(" DESC, id DESC LIMIT ")
	sb.WriteString(strconv.Itoa(b.maxResults))
	return plan.New(sb.String(), w.values)
}

// BuildManual compiles a manual filter set, honoring its date field selector.
func (b *Builder) BuildManual(m filter.Manual) plan.Plan {
	return b.Build(m.Params(), m.DateField())
}

// BuildCount compiles the uncapped match count for p, sharing Build's conditions.
func (b *Builder) BuildCount(p params.Extracted, df filter.DateField) plan.Plan {
	if p.HasTradeID() {
		return plan.New("SELECT COUNT(*) FROM trades WHERE id = $1", []any{*p.TradeID})
	}
	w := b.where(p, dateColumn(df))
	return plan.New("SELECT COUNT(*) FROM trades WHERE "+w.clause(), w.values)
}

// BuildEnrichment compiles the per-trade transaction count for ids.
// An empty id set yields an empty plan.
func (b *Builder) BuildEnrichment(ids []int64) plan.Plan {
	if len(ids) == 0 {
		return plan.Empty()
	}
	return plan.New(
		"SELECT t.id AS trade_id, COUNT(DISTINCT tr.id) AS transaction_count "+
			"FROM trades t LEFT JOIN transactions tr ON tr.trade_id = t.id "+
			"WHERE t.id IN (SELECT value FROM json_each($1)) GROUP BY t.id",
		[]any{mustJSON(ids)},
	)
}

func (b *Builder) where(p params.Extracted, dateCol string) *conditions {
	w := &conditions{}

	for _, lc := range listColumns {
		if vals := lc.get(p); len(vals) > 0 {
			w.add(lc.column+" IN (SELECT value FROM json_each(", mustJSON(vals), "))")
		}
	}

	if p.DateFrom != nil {
		w.add(dateCol+" >= ", *p.DateFrom, "")
	}
	if p.DateTo != nil {
		end, err := time.Parse(field.DateLayout, *p.DateTo)
		if err != nil {
			b.logger.Warn("Skipping unparseable upper date bound", zap.String("date_to", *p.DateTo), zap.Error(err))
		} else {
			w.add(dateCol+" < ", end.AddDate(0, 0, 1).Format(field.DateLayout), "")
		}
	}

	if p.ClearedTradesOnly {
		w.add("status = ", trade.StatusCleared, "")
	}
	if p.WithExceptionsOnly {
		// The record store has no exceptions relation to filter on.
		b.logger.Debug("with_exceptions_only requested; no exception data to filter on")
	}
	return w
}

// conditions accumulates predicates; every value gets the next positional placeholder.
type conditions struct {
	preds  []string
	values []any
}

func (c *conditions) add(prefix string, value any, suffix string) {
	c.values = append(c.values, value)
	c.preds = append(c.preds, prefix+"$"+strconv.Itoa(len(c.values))+suffix)
}

func (c *conditions) clause() string {
	if len(c.preds) == 0 {
		return "1=1"
	}
	return strings.Join(c.preds, " AND ")
}

func dateColumn(df filter.DateField) string {
	if col, ok := sortColumns[df]; ok {
		return col
	}
	return sortColumns[filter.UpdateTime]
}

// mustJSON encodes a slice of strings or ints; neither can fail to marshal.
func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
