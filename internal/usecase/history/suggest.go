package history

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/xrash/smetrics"

	domhist "github.com/kailas-cloud/tradesearch/internal/domain/history"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/mode"
	"github.com/kailas-cloud/tradesearch/internal/domain/trade"
)

// Suggestion tuning.
const (
	DefaultSuggestLimit  = 10
	MaxSuggestLimit      = 50
	DefaultMaxCandidates = 200
	MinSuggestScore      = 0.3
	MaxSuggestScore      = 1.5
	minPartialLength     = 2
)

var suggestFields = []struct {
	category string
	column   string
	label    string
}{
	{domhist.CategoryAccount, trade.ColumnAccount, "account"},
	{domhist.CategoryAssetType, trade.ColumnAssetType, "asset type"},
	{domhist.CategoryBookingSystem, trade.ColumnBookingSystem, "booking system"},
	{domhist.CategoryAffirmationSystem, trade.ColumnAffirmationSystem, "affirmation system"},
	{domhist.CategoryClearingHouse, trade.ColumnClearingHouse, "clearing house"},
	{domhist.CategoryStatus, trade.ColumnStatus, "status"},
	{domhist.CategoryTradeID, trade.ColumnTradeID, "trade id"},
}

// NormalizeText lower-cases s and collapses whitespace.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Suggest returns typeahead phrases for partial, built from trade column values and
// userID's recent natural-language searches. Inputs shorter than two characters
// yield no suggestions.
func (s *Service) Suggest(ctx context.Context, userID, partial string, limit int) ([]domhist.Suggestion, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	q := NormalizeText(partial)
	if len([]rune(q)) < minPartialLength {
		return []domhist.Suggestion{}, nil
	}
	switch {
	case limit <= 0:
		limit = DefaultSuggestLimit
	case limit > MaxSuggestLimit:
		limit = MaxSuggestLimit
	}
	perField := max(5, min(25, s.maxCandidates/6))

	best := make(map[string]domhist.Suggestion)
	keep := func(sg domhist.Suggestion) {
		if sg.Score < MinSuggestScore {
			return
		}
		if cur, ok := best[sg.Text]; !ok || sg.Score > cur.Score {
			best[sg.Text] = sg
		}
	}

	for _, f := range suggestFields {
		vals, err := s.values.DistinctMatching(ctx, f.column, q, perField)
		if err != nil {
			return nil, fmt.Errorf("suggest %s: %w", f.column, err)
		}
		for _, v := range vals {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			phrase := f.label + " " + v
			keep(domhist.Suggestion{
				Text:     phrase,
				Category: f.category,
				Score:    max(similarity(q, NormalizeText(v)), similarity(q, NormalizeText(phrase))),
			})
		}
	}

	recent, err := s.repo.RecentTexts(ctx, userID, mode.NaturalLanguage, perField)
	if err != nil {
		return nil, fmt.Errorf("suggest recent: %w", err)
	}
	for _, text := range recent {
		if strings.HasPrefix(strings.TrimSpace(text), "{") {
			continue
		}
		keep(domhist.Suggestion{Text: text, Category: domhist.CategoryRecent, Score: similarity(q, NormalizeText(text))})
	}

	out := make([]domhist.Suggestion, 0, len(best))
	for _, sg := range best {
		out = append(out, sg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Text < out[j].Text
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// similarity is Jaro-Winkler plus a prefix (0.3) or substring (0.1) bonus and
// 0.2 x token Jaccard, capped at MaxSuggestScore.
func similarity(q, candidate string) float64 {
	score := smetrics.JaroWinkler(q, candidate, 0.7, 4)

	switch {
	case strings.HasPrefix(candidate, q):
		score += 0.3
	case strings.Contains(candidate, q):
		score += 0.1
	}

	qt, ct := tokens(q), tokens(candidate)
	if len(qt) > 0 && len(ct) > 0 {
		inter := 0
		for t := range qt {
			if _, ok := ct[t]; ok {
				inter++
			}
		}
		union := len(qt) + len(ct) - inter
		score += 0.2 * float64(inter) / float64(union)
	}
	return min(score, MaxSuggestScore)
}

func tokens(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, t := range strings.Fields(s) {
		out[t] = struct{}{}
	}
	return out
}
