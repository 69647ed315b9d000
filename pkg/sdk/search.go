package tradesearch

import (
	"context"
	"time"

	"github.com/kailas-cloud/tradesearch/internal/domain"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/filter"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/mode"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/params"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/request"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/result"
	domtrade "github.com/kailas-cloud/tradesearch/internal/domain/trade"
)

// Search turns free text into filters with the model, runs them and ranks the matches.
func (c *Client) Search(ctx context.Context, userID, text string) (*SearchResponse, error) {
	req, err := request.New(userID, mode.NaturalLanguage, text, nil)
	if err != nil {
		return nil, err
	}
	return c.run(ctx, "search", req)
}

// SearchManual runs explicit filters without calling the model.
func (c *Client) SearchManual(ctx context.Context, userID string, f ManualFilters) (*SearchResponse, error) {
	m, err := filter.NewManual(filter.Input{
		TradeID:            f.TradeID,
		Account:            f.Account,
		AssetType:          f.AssetType,
		BookingSystem:      f.BookingSystem,
		AffirmationSystem:  f.AffirmationSystem,
		ClearingHouse:      f.ClearingHouse,
		Statuses:           f.Statuses,
		DateField:          filter.DateField(f.DateField),
		DateFrom:           f.DateFrom,
		DateTo:             f.DateTo,
		WithExceptionsOnly: f.WithExceptionsOnly,
		ClearedTradesOnly:  f.ClearedTradesOnly,
	})
	if err != nil {
		return nil, err
	}
	req, err := request.New(userID, mode.Manual, "", &m)
	if err != nil {
		return nil, err
	}
	return c.run(ctx, "search_manual", req)
}

func (c *Client) run(ctx context.Context, op string, req request.Request) (_ *SearchResponse, err error) {
	start := time.Now()
	ctx, usage := domain.NewContextWithUsage(ctx)
	defer func() { c.obs.observeTokens(op, start, usage.TotalTokens, err) }()

	resp, err := c.searchSvc.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	out := toSearchResponse(resp)
	out.ModelTokens = usage.TotalTokens
	return out, nil
}

// FilterOptions lists the distinct values of every filterable column.
func (c *Client) FilterOptions(ctx context.Context) (_ FilterOptions, err error) {
	start := time.Now()
	defer func() { c.obs.observe("filter_options", start, err) }()

	opts, err := c.filterSvc.FilterOptions(ctx)
	if err != nil {
		return FilterOptions{}, err
	}
	return FilterOptions{
		Accounts:           opts.Accounts,
		AssetTypes:         opts.AssetTypes,
		BookingSystems:     opts.BookingSystems,
		AffirmationSystems: opts.AffirmationSystems,
		ClearingHouses:     opts.ClearingHouses,
		Statuses:           opts.Statuses,
	}, nil
}

func toSearchResponse(r result.Response) *SearchResponse {
	out := &SearchResponse{
		QueryID:      r.QueryID,
		SearchID:     r.SearchID,
		TotalResults: r.TotalResults,
		TotalMatches: r.TotalMatches,
		Truncated:    r.Truncated,
		Ranked:       r.Ranked,
		Results:      make([]Result, 0, len(r.Results)),
		Duration:     time.Duration(r.ExecutionTimeMs) * time.Millisecond,
	}
	for _, s := range r.Results {
		out.Results = append(out.Results, Result{
			Trade:  toTrade(s.Trade()),
			Score:  s.Score(),
			Scored: s.IsScored(),
		})
	}
	if r.ExtractedParams != nil {
		out.ExtractedParams = toExtractedParams(*r.ExtractedParams)
	}
	return out
}

func toTrade(t domtrade.Trade) Trade {
	return Trade{
		ID:                t.ID(),
		Account:           t.Account(),
		AssetType:         t.AssetType(),
		BookingSystem:     t.BookingSystem(),
		AffirmationSystem: t.AffirmationSystem(),
		ClearingHouse:     t.ClearingHouse(),
		Status:            t.Status(),
		CreateTime:        t.CreateTime(),
		UpdateTime:        t.UpdateTime(),
	}
}

func toExtractedParams(p params.Extracted) *ExtractedParams {
	out := &ExtractedParams{
		TradeID:            p.TradeID,
		Accounts:           p.Accounts,
		AssetTypes:         p.AssetTypes,
		BookingSystems:     p.BookingSystems,
		AffirmationSystems: p.AffirmationSystems,
		ClearingHouses:     p.ClearingHouses,
		Statuses:           p.Statuses,
		WithExceptionsOnly: p.WithExceptionsOnly,
		ClearedTradesOnly:  p.ClearedTradesOnly,
	}
	if p.DateFrom != nil {
		out.DateFrom = *p.DateFrom
	}
	if p.DateTo != nil {
		out.DateTo = *p.DateTo
	}
	return out
}
