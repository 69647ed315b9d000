package history

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	domhist "github.com/kailas-cloud/tradesearch/internal/domain/history"
	"github.com/kailas-cloud/tradesearch/internal/domain/trade"
)

// fakeValues answers DistinctMatching from a per-column value list using
// case-insensitive substring matching.
type fakeValues struct {
	columns map[string][]string
	limits  map[string]int
	err     error
}

func (f *fakeValues) DistinctMatching(_ context.Context, column, partial string, limit int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.limits == nil {
		f.limits = map[string]int{}
	}
	f.limits[column] = limit
	var out []string
	for _, v := range f.columns[column] {
		if strings.Contains(strings.ToLower(v), partial) && len(out) < limit {
			out = append(out, v)
		}
	}
	return out, nil
}

func TestSuggest_RanksPrefixMatchesFirst(t *testing.T) {
	values := &fakeValues{columns: map[string][]string{
		trade.ColumnAccount:   {"ACC123", "XACC9"},
		trade.ColumnAssetType: {"FX", "CDS"},
		trade.ColumnStatus:    {"CLEARED", "ALLEGED"},
	}}
	svc := newTestService(newMockRepo(), values)

	got, err := svc.Suggest(context.Background(), "u1", "  ACC ", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 suggestions, got %+v", got)
	}
	if got[0].Text != "account ACC123" || got[0].Category != domhist.CategoryAccount {
		t.Errorf("first suggestion = %+v", got[0])
	}
	if got[1].Text != "account XACC9" {
		t.Errorf("second suggestion = %+v", got[1])
	}
	if !(got[0].Score > got[1].Score) {
		t.Errorf("prefix match should outrank substring match: %v vs %v", got[0].Score, got[1].Score)
	}
	for _, s := range got {
		if s.Score < MinSuggestScore || s.Score > MaxSuggestScore {
			t.Errorf("score out of range: %+v", s)
		}
	}
}

func TestSuggest_IncludesRecentNaturalLanguage(t *testing.T) {
	repo := newMockRepo()
	repo.recent = []string{"alleged fx trades from last week", `{"asset_type":"FX"}`, "cds rejected today"}
	svc := newTestService(repo, &fakeValues{})

	got, err := svc.Suggest(context.Background(), "u1", "alleged fx", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) == 0 || got[0].Text != "alleged fx trades from last week" || got[0].Category != domhist.CategoryRecent {
		t.Fatalf("unexpected suggestions %+v", got)
	}
	for _, s := range got {
		if strings.HasPrefix(s.Text, "{") {
			t.Errorf("manual filter JSON leaked into suggestions: %+v", s)
		}
	}
}

func TestSuggest_ShortInput(t *testing.T) {
	values := &fakeValues{columns: map[string][]string{trade.ColumnAssetType: {"FX"}}}
	got, err := newTestService(newMockRepo(), values).Suggest(context.Background(), "u1", " f ", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 || values.limits != nil {
		t.Errorf("short input must not query: %+v", got)
	}
}

func TestSuggest_LimitAndPerFieldBudget(t *testing.T) {
	values := &fakeValues{columns: map[string][]string{
		trade.ColumnAccount: {"AB1", "AB2", "AB3", "AB4", "AB5", "AB6", "AB7"},
	}}
	svc := New(newMockRepo(), values, nil, WithMaxCandidates(12))

	got, err := svc.Suggest(context.Background(), "u1", "ab", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 suggestions, got %d", len(got))
	}
	// max(5, min(25, 12/6)) = 5
	if values.limits[trade.ColumnAccount] != 5 {
		t.Errorf("per-field limit = %d, want 5", values.limits[trade.ColumnAccount])
	}

	values.limits = nil
	if _, err := New(newMockRepo(), values, nil).Suggest(context.Background(), "u1", "ab", 3); err != nil {
		t.Fatal(err)
	}
	if values.limits[trade.ColumnAccount] != 25 {
		t.Errorf("default per-field limit = %d, want 25", values.limits[trade.ColumnAccount])
	}
}

func TestSuggest_StoreError(t *testing.T) {
	values := &fakeValues{err: errors.New("boom")}
	if _, err := newTestService(newMockRepo(), values).Suggest(context.Background(), "u1", "acc", 5); err == nil {
		t.Fatal("expected error")
	}
}

func TestSimilarity(t *testing.T) {
	if got := similarity("fx", "fx"); math.Abs(got-MaxSuggestScore) > 1e-9 {
		t.Errorf("identical = %v, want cap 1.5", got)
	}
	prefix := similarity("acc", "acc123")
	substr := similarity("acc", "xacc9")
	none := similarity("acc", "zzz")
	if !(prefix > substr && substr > none) {
		t.Errorf("expected prefix > substring > unrelated: %v %v %v", prefix, substr, none)
	}
	if none >= MinSuggestScore {
		t.Errorf("unrelated candidate scored %v", none)
	}
}
