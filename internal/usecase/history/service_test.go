package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tradesearch/internal/domain"
	domhist "github.com/kailas-cloud/tradesearch/internal/domain/history"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/mode"
)

// --- Mocks ---

type mockRepo struct {
	records     map[int64]domhist.Record
	getErr      error
	listFn      func(userID string, limit int, savedOnly bool) ([]domhist.Record, error)
	recent      []string
	recentErr   error
	statsSince  time.Time
	stats       domhist.Stats
	updated     map[int64]domhist.Update
	touched     map[int64]time.Time
	deleted     []int64
	deleteAllN  int
	deleteAllTo string
}

func newMockRepo(recs ...domhist.Record) *mockRepo {
	m := &mockRepo{
		records: map[int64]domhist.Record{},
		updated: map[int64]domhist.Update{},
		touched: map[int64]time.Time{},
	}
	for _, r := range recs {
		m.records[r.ID()] = r
	}
	return m
}

func (m *mockRepo) Get(_ context.Context, id int64) (domhist.Record, error) {
	if m.getErr != nil {
		return domhist.Record{}, m.getErr
	}
	r, ok := m.records[id]
	if !ok {
		return domhist.Record{}, domain.ErrHistoryNotFound
	}
	return r, nil
}

func (m *mockRepo) List(_ context.Context, userID string, limit int, savedOnly bool) ([]domhist.Record, error) {
	return m.listFn(userID, limit, savedOnly)
}

func (m *mockRepo) RecentTexts(_ context.Context, _ string, _ mode.Mode, _ int) ([]string, error) {
	return m.recent, m.recentErr
}

func (m *mockRepo) Stats(_ context.Context, _ string, since time.Time) (domhist.Stats, error) {
	m.statsSince = since
	return m.stats, nil
}

func (m *mockRepo) Update(_ context.Context, id int64, u domhist.Update) error {
	m.updated[id] = u
	r := m.records[id]
	m.records[id] = domhist.Reconstruct(id, domhist.Attrs{
		UserID: r.UserID(), QueryText: r.QueryText(), Mode: r.Mode(),
		IsSaved: u.IsSaved(), Name: u.Name(),
	})
	return nil
}

func (m *mockRepo) Touch(_ context.Context, id int64, at time.Time) error {
	m.touched[id] = at
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id int64) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockRepo) DeleteAll(_ context.Context, userID string) (int, error) {
	m.deleteAllTo = userID
	return m.deleteAllN, nil
}

var now = time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)

func rec(id int64, user string) domhist.Record {
	return domhist.Reconstruct(id, domhist.Attrs{
		UserID: user, QueryText: "alleged fx trades", Mode: mode.NaturalLanguage,
		CreateTime: now.Add(-time.Hour), LastUseTime: now.Add(-time.Hour),
	})
}

func newTestService(repo *mockRepo, values ValueSource) *Service {
	return New(repo, values, zap.NewNop(), WithClock(func() time.Time { return now }))
}

// --- Tests ---

func TestList_ClampsLimit(t *testing.T) {
	var gotLimit int
	var gotSaved bool
	repo := newMockRepo()
	repo.listFn = func(_ string, limit int, savedOnly bool) ([]domhist.Record, error) {
		gotLimit, gotSaved = limit, savedOnly
		return []domhist.Record{rec(1, "u1")}, nil
	}
	svc := newTestService(repo, nil)

	for _, tc := range []struct{ in, want int }{{0, 50}, {-3, 50}, {10, 10}, {500, 100}} {
		if _, err := svc.List(context.Background(), "u1", tc.in, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotLimit != tc.want || !gotSaved {
			t.Errorf("List(limit=%d) passed limit=%d saved=%v, want %d", tc.in, gotLimit, gotSaved, tc.want)
		}
	}
}

func TestList_RequiresUser(t *testing.T) {
	svc := newTestService(newMockRepo(), nil)
	if _, err := svc.List(context.Background(), "", 10, false); !errors.Is(err, domain.ErrRequestValidation) {
		t.Fatalf("expected ErrRequestValidation, got %v", err)
	}
}

func TestStats_SevenDayWindow(t *testing.T) {
	repo := newMockRepo()
	repo.stats = domhist.Stats{Total: 9, Saved: 2, Recent: 4}

	st, err := newTestService(repo, nil).Stats(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st != repo.stats {
		t.Errorf("Stats() = %+v", st)
	}
	if want := now.Add(-7 * 24 * time.Hour); !repo.statsSince.Equal(want) {
		t.Errorf("since = %v, want %v", repo.statsSince, want)
	}
}

func TestUpdate_Ownership(t *testing.T) {
	repo := newMockRepo(rec(1, "owner"))
	svc := newTestService(repo, nil)
	u, err := domhist.NewUpdate(true, "  My FX query ")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Update(context.Background(), 99, "owner", u); !errors.Is(err, domain.ErrHistoryNotFound) {
		t.Errorf("missing id: expected ErrHistoryNotFound, got %v", err)
	}
	if _, err := svc.Update(context.Background(), 1, "intruder", u); !errors.Is(err, domain.ErrUnauthorizedHistoryAccess) {
		t.Errorf("other owner: expected ErrUnauthorizedHistoryAccess, got %v", err)
	}
	if len(repo.updated) != 0 {
		t.Fatal("rejected updates must not reach the store")
	}

	got, err := svc.Update(context.Background(), 1, "owner", u)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsSaved() || got.Name() != "My FX query" {
		t.Errorf("updated record = saved %v name %q", got.IsSaved(), got.Name())
	}
}

func TestTouch(t *testing.T) {
	repo := newMockRepo(rec(1, "owner"))
	svc := newTestService(repo, nil)

	if err := svc.Touch(context.Background(), 1, "intruder"); !errors.Is(err, domain.ErrUnauthorizedHistoryAccess) {
		t.Errorf("expected ErrUnauthorizedHistoryAccess, got %v", err)
	}
	if err := svc.Touch(context.Background(), 1, "owner"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !repo.touched[1].Equal(now) {
		t.Errorf("touched at %v, want %v", repo.touched[1], now)
	}
}

func TestDelete(t *testing.T) {
	repo := newMockRepo(rec(1, "owner"))
	svc := newTestService(repo, nil)

	if err := svc.Delete(context.Background(), 0, "owner"); !errors.Is(err, domain.ErrRequestValidation) {
		t.Errorf("expected ErrRequestValidation for id 0, got %v", err)
	}
	if err := svc.Delete(context.Background(), 1, "intruder"); !errors.Is(err, domain.ErrUnauthorizedHistoryAccess) {
		t.Errorf("expected ErrUnauthorizedHistoryAccess, got %v", err)
	}
	if err := svc.Delete(context.Background(), 1, "owner"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != 1 {
		t.Errorf("deleted = %v", repo.deleted)
	}
}

func TestDelete_StoreErrorPropagates(t *testing.T) {
	repo := newMockRepo()
	repo.getErr = domain.ErrStoreUnavailable
	err := newTestService(repo, nil).Delete(context.Background(), 1, "owner")
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestDeleteAll(t *testing.T) {
	repo := newMockRepo()
	repo.deleteAllN = 7

	n, err := newTestService(repo, nil).DeleteAll(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 7 || repo.deleteAllTo != "u1" {
		t.Errorf("DeleteAll() = %d for %q", n, repo.deleteAllTo)
	}
}
