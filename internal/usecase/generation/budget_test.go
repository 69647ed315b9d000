package generation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tradesearch/internal/domain"
)

func fixedClock(t time.Time) (func() time.Time, func(time.Duration)) {
	var mu sync.Mutex
	now := t
	return func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		}, func(d time.Duration) {
			mu.Lock()
			defer mu.Unlock()
			now = now.Add(d)
		}
}

func TestBudgetTracker_RejectWhenExceeded(t *testing.T) {
	bt := NewBudgetTracker("test", 100, 0, BudgetActionReject, zap.NewNop())

	bt.Record(100)

	err := bt.Check(context.Background())
	if !errors.Is(err, domain.ErrTokenBudgetExceeded) {
		t.Fatalf("expected domain.ErrTokenBudgetExceeded, got %v", err)
	}
}

func TestBudgetTracker_WarnWhenExceeded(t *testing.T) {
	bt := NewBudgetTracker("test", 100, 0, BudgetActionWarn, zap.NewNop())

	bt.Record(200)

	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected nil error for warn action, got %v", err)
	}
}

func TestBudgetTracker_DefaultActionIsWarn(t *testing.T) {
	bt := NewBudgetTracker("test", 10, 0, "", zap.NewNop())
	bt.Record(20)
	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected warn by default, got %v", err)
	}
}

func TestBudgetTracker_MonthlyReject(t *testing.T) {
	bt := NewBudgetTracker("test", 0, 500, BudgetActionReject, zap.NewNop())

	bt.Record(500)

	if err := bt.Check(context.Background()); !errors.Is(err, domain.ErrTokenBudgetExceeded) {
		t.Fatalf("expected domain.ErrTokenBudgetExceeded for monthly limit, got %v", err)
	}
}

func TestBudgetTracker_UnlimitedWhenZero(t *testing.T) {
	bt := NewBudgetTracker("test", 0, 0, BudgetActionReject, zap.NewNop())

	bt.Record(999999999)

	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected nil error for unlimited budget, got %v", err)
	}
	if bt.RemainingDaily() != -1 || bt.RemainingMonthly() != -1 {
		t.Errorf("expected -1 remaining for unlimited budget")
	}
}

func TestBudgetTracker_Remaining(t *testing.T) {
	bt := NewBudgetTracker("test", 1000, 10000, BudgetActionWarn, zap.NewNop())

	bt.Record(300)

	if daily := bt.RemainingDaily(); daily != 700 {
		t.Errorf("expected daily remaining 700, got %d", daily)
	}
	if monthly := bt.RemainingMonthly(); monthly != 9700 {
		t.Errorf("expected monthly remaining 9700, got %d", monthly)
	}

	bt.Record(5000)
	if daily := bt.RemainingDaily(); daily != 0 {
		t.Errorf("expected daily remaining clamped to 0, got %d", daily)
	}
}

func TestBudgetTracker_IgnoresNonPositive(t *testing.T) {
	bt := NewBudgetTracker("test", 1000, 0, BudgetActionWarn, zap.NewNop())
	bt.Record(0)
	bt.Record(-5)
	if bt.DailyUsed() != 0 {
		t.Errorf("expected daily_used=0, got %d", bt.DailyUsed())
	}
}

func TestBudgetTracker_DayRollover(t *testing.T) {
	now, advance := fixedClock(time.Date(2025, 6, 30, 23, 0, 0, 0, time.UTC))
	bt := NewBudgetTracker("test", 100, 1000, BudgetActionReject, zap.NewNop()).WithClock(now)

	bt.Record(100)
	if err := bt.Check(context.Background()); err == nil {
		t.Fatal("expected daily limit hit")
	}

	advance(2 * time.Hour) // 2025-07-01 01:00, new day and new month
	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected reset after rollover, got %v", err)
	}
	if bt.DailyUsed() != 0 || bt.MonthlyUsed() != 0 {
		t.Errorf("expected zeroed counters, got daily=%d monthly=%d", bt.DailyUsed(), bt.MonthlyUsed())
	}
}

func TestBudgetTracker_DayRolloverKeepsMonth(t *testing.T) {
	now, advance := fixedClock(time.Date(2025, 6, 10, 23, 0, 0, 0, time.UTC))
	bt := NewBudgetTracker("test", 100, 1000, BudgetActionWarn, zap.NewNop()).WithClock(now)

	bt.Record(80)
	advance(2 * time.Hour)

	if bt.DailyUsed() != 0 {
		t.Errorf("expected daily reset, got %d", bt.DailyUsed())
	}
	if bt.MonthlyUsed() != 80 {
		t.Errorf("expected monthly kept at 80, got %d", bt.MonthlyUsed())
	}
}

// --- Mock BudgetStore ---

type mockBudgetStore struct {
	mu     sync.Mutex
	data   map[string]int64
	getErr error
	setErr error
}

func newMockBudgetStore() *mockBudgetStore {
	return &mockBudgetStore{data: make(map[string]int64)}
}

func (m *mockBudgetStore) IncrBy(_ context.Context, key string, val int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] += val
	return nil
}

func (m *mockBudgetStore) Get(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return 0, m.getErr
	}
	return m.data[key], nil
}

func (m *mockBudgetStore) value(key string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key]
}

// --- Persistence tests ---

func TestBudgetTracker_WithStore_LoadsValues(t *testing.T) {
	now, _ := fixedClock(time.Date(2025, 6, 20, 9, 0, 0, 0, time.UTC))
	store := newMockBudgetStore()
	store.data["tradesearch:budget:prov:daily:2025-06-20"] = 300
	store.data["tradesearch:budget:prov:monthly:2025-06"] = 5000

	bt := NewBudgetTracker("prov", 1000, 10000, BudgetActionReject, zap.NewNop()).
		WithClock(now).
		WithStore(context.Background(), store)

	if bt.DailyUsed() != 300 {
		t.Errorf("expected daily_used=300, got %d", bt.DailyUsed())
	}
	if bt.MonthlyUsed() != 5000 {
		t.Errorf("expected monthly_used=5000, got %d", bt.MonthlyUsed())
	}
}

func TestBudgetTracker_Record_PersistsToStore(t *testing.T) {
	now, _ := fixedClock(time.Date(2025, 6, 20, 9, 0, 0, 0, time.UTC))
	store := newMockBudgetStore()
	bt := NewBudgetTracker("prov", 10000, 100000, BudgetActionWarn, zap.NewNop()).
		WithClock(now).
		WithStore(context.Background(), store)

	bt.Record(100)
	bt.Record(200)
	bt.Record(300)

	if bt.DailyUsed() != 600 {
		t.Errorf("expected daily_used=600, got %d", bt.DailyUsed())
	}
	if v := store.value("tradesearch:budget:prov:daily:2025-06-20"); v != 600 {
		t.Errorf("expected store daily=600, got %d", v)
	}
	if v := store.value("tradesearch:budget:prov:monthly:2025-06"); v != 600 {
		t.Errorf("expected store monthly=600, got %d", v)
	}
}

func TestBudgetTracker_WithStore_LoadError(t *testing.T) {
	store := newMockBudgetStore()
	store.getErr = errors.New("connection refused")

	bt := NewBudgetTracker("prov", 1000, 10000, BudgetActionReject, zap.NewNop())
	bt.WithStore(context.Background(), store)

	if bt.DailyUsed() != 0 || bt.MonthlyUsed() != 0 {
		t.Errorf("expected zero counters on load error, got %d/%d", bt.DailyUsed(), bt.MonthlyUsed())
	}
}

func TestBudgetTracker_Record_StoreWriteError(t *testing.T) {
	store := newMockBudgetStore()
	bt := NewBudgetTracker("prov", 1000, 10000, BudgetActionWarn, zap.NewNop())
	bt.WithStore(context.Background(), store)

	store.mu.Lock()
	store.setErr = errors.New("write timeout")
	store.mu.Unlock()

	bt.Record(50)

	if bt.DailyUsed() != 50 {
		t.Errorf("expected daily_used=50 even with store error, got %d", bt.DailyUsed())
	}
}
