// Package trade executes query plans against the trade record store.
package trade

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/tradesearch/internal/db/sqlite"
	"github.com/kailas-cloud/tradesearch/internal/domain"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/plan"
	domtrade "github.com/kailas-cloud/tradesearch/internal/domain/trade"
)

// distinctExpr maps lookup columns to the selected expression.
var distinctExpr = map[string]string{
	domtrade.ColumnAccount:           "account",
	domtrade.ColumnAssetType:         "asset_type",
	domtrade.ColumnBookingSystem:     "booking_system",
	domtrade.ColumnAffirmationSystem: "affirmation_system",
	domtrade.ColumnClearingHouse:     "clearing_house",
	domtrade.ColumnStatus:            "status",
	domtrade.ColumnTradeID:           "CAST(id AS TEXT)",
}

// conn is the consumer interface for the record store (ISP).
type conn interface {
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	PingContext(ctx context.Context) error
}

// Repo runs compiled plans and lookup queries over the trades table.
type Repo struct {
	conn conn
}

// New creates a trade repository.
func New(c conn) *Repo {
	return &Repo{conn: c}
}

type tradeRow struct {
	ID                int64          `db:"id"`
	Account           string         `db:"account"`
	AssetType         string         `db:"asset_type"`
	BookingSystem     string         `db:"booking_system"`
	AffirmationSystem string         `db:"affirmation_system"`
	ClearingHouse     string         `db:"clearing_house"`
	Status            string         `db:"status"`
	CreateTime        string         `db:"create_time"`
	UpdateTime        sql.NullString `db:"update_time"`
}

func (r tradeRow) toDomain() (domtrade.Trade, error) {
	created, err := sqlite.ParseTime(r.CreateTime)
	if err != nil {
		return domtrade.Trade{}, fmt.Errorf("trade %d create_time: %w", r.ID, err)
	}
	var updated = created
	if r.UpdateTime.Valid {
		if updated, err = sqlite.ParseTime(r.UpdateTime.String); err != nil {
			return domtrade.Trade{}, fmt.Errorf("trade %d update_time: %w", r.ID, err)
		}
	}
	return domtrade.Reconstruct(r.ID, domtrade.Attrs{
		Account:           r.Account,
		AssetType:         r.AssetType,
		BookingSystem:     r.BookingSystem,
		AffirmationSystem: r.AffirmationSystem,
		ClearingHouse:     r.ClearingHouse,
		Status:            r.Status,
		CreateTime:        created,
		UpdateTime:        updated,
	}), nil
}

// Execute runs a search plan. An empty plan returns no rows.
func (r *Repo) Execute(ctx context.Context, p plan.Plan) ([]domtrade.Trade, error) {
	if p.IsEmpty() {
		return nil, nil
	}
	var rows []tradeRow
	if err := r.conn.SelectContext(ctx, &rows, p.Text(), p.Values()...); err != nil {
		return nil, wrapErr("execute search plan", err)
	}

	out := make([]domtrade.Trade, 0, len(rows))
	for _, row := range rows {
		t, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrStoreQueryFailed, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// Enrichment runs a per-trade activity plan and returns transaction counts keyed by id.
func (r *Repo) Enrichment(ctx context.Context, p plan.Plan) (map[int64]int, error) {
	if p.IsEmpty() {
		return map[int64]int{}, nil
	}
	var rows []struct {
		TradeID int64 `db:"trade_id"`
		Count   int   `db:"transaction_count"`
	}
	if err := r.conn.SelectContext(ctx, &rows, p.Text(), p.Values()...); err != nil {
		return nil, wrapErr("execute enrichment plan", err)
	}
	out := make(map[int64]int, len(rows))
	for _, row := range rows {
		out[row.TradeID] = row.Count
	}
	return out, nil
}

// Count runs a count plan.
func (r *Repo) Count(ctx context.Context, p plan.Plan) (int, error) {
	if p.IsEmpty() {
		return 0, nil
	}
	var n int
	if err := r.conn.GetContext(ctx, &n, p.Text(), p.Values()...); err != nil {
		return 0, wrapErr("execute count plan", err)
	}
	return n, nil
}

// FilterOptions returns the distinct non-blank values of every filterable column.
func (r *Repo) FilterOptions(ctx context.Context) (domtrade.FilterOptions, error) {
	var opts domtrade.FilterOptions
	for _, f := range []struct {
		column string
		dest   *[]string
	}{
		{"account", &opts.Accounts},
		{"asset_type", &opts.AssetTypes},
		{"booking_system", &opts.BookingSystems},
		{"affirmation_system", &opts.AffirmationSystems},
		{"clearing_house", &opts.ClearingHouses},
		{"status", &opts.Statuses},
	} {
		vals := []string{}
		q := "SELECT DISTINCT " + f.column + " FROM trades WHERE " + f.column + " <> '' ORDER BY " + f.column
		if err := r.conn.SelectContext(ctx, &vals, q); err != nil {
			return domtrade.FilterOptions{}, wrapErr("distinct "+f.column, err)
		}
		*f.dest = vals
	}
	return opts, nil
}

// DistinctMatching returns up to limit distinct values of column containing partial,
// compared case-insensitively.
func (r *Repo) DistinctMatching(ctx context.Context, column, partial string, limit int) ([]string, error) {
	expr, ok := distinctExpr[column]
	if !ok {
		return nil, fmt.Errorf("unsupported suggestion column %q", column)
	}
	if limit <= 0 {
		return nil, nil
	}
	q := "SELECT DISTINCT " + expr + " AS v FROM trades " +
		"WHERE lower(" + expr + ") LIKE $1 ESCAPE '\\' ORDER BY v LIMIT " + strconv.Itoa(limit)

	vals := []string{}
	if err := r.conn.SelectContext(ctx, &vals, q, "%"+escapeLike(strings.ToLower(partial))+"%"); err != nil {
		return nil, wrapErr("distinct matching "+column, err)
	}
	return vals, nil
}

// Ping checks that the record store answers.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func wrapErr(op string, err error) error {
	if sqlite.IsUnavailable(err) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreQueryFailed, err)
}
