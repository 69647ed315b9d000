// Package budget persists model token counters in the cache backend.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/tradesearch/internal/db"
)

// Recommended counter lifetimes: a daily key outlives its day, a monthly key its month.
const (
	DefaultDailyTTL   = 48 * time.Hour
	DefaultMonthlyTTL = 62 * 24 * time.Hour
)

// store is the consumer interface for counter operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store keeps budget counters as INCRBY integers with a set-once expiry.
type Store struct {
	store      store
	dailyTTL   time.Duration
	monthlyTTL time.Duration
}

// New creates a budget store. Non-positive TTLs select the defaults.
func New(s store, dailyTTL, monthlyTTL time.Duration) *Store {
	if dailyTTL <= 0 {
		dailyTTL = DefaultDailyTTL
	}
	if monthlyTTL <= 0 {
		monthlyTTL = DefaultMonthlyTTL
	}
	return &Store{store: s, dailyTTL: dailyTTL, monthlyTTL: monthlyTTL}
}

// IncrBy adds val to the counter and, on first write, starts its expiry clock.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	if err := s.store.IncrBy(ctx, key, val); err != nil {
		return fmt.Errorf("budget incr %s: %w", key, err)
	}
	if err := s.store.Expire(ctx, key, s.ttlFor(key), true); err != nil {
		return fmt.Errorf("budget expire %s: %w", key, err)
	}
	return nil
}

// Get returns the counter value, 0 when the key is absent.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	data, err := s.store.Get(ctx, key)
	if errors.Is(err, db.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("budget get %s: %w", key, err)
	}

	val, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget get %s: %w", key, err)
	}
	return val, nil
}

// Keys look like <prefix>budget:<provider>:daily:<date> or :monthly:<month>.
func (s *Store) ttlFor(key string) time.Duration {
	if strings.Contains(key, ":daily:") {
		return s.dailyTTL
	}
	return s.monthlyTTL
}
