// Package extcache stores validated extraction results keyed by normalized query text.
package extcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tradesearch/internal/db"
	"github.com/kailas-cloud/tradesearch/internal/domain"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/params"
)

var keyPrefix = domain.KeyPrefix + "extraction:"

// DefaultTTL is how long a validated extraction stays cached.
const DefaultTTL = time.Hour

// minDatedTTL is the shortest lifetime worth writing for an entry with resolved dates.
const minDatedTTL = time.Second

// store is the consumer interface for the cache backend (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache is a best-effort extraction cache: backend failures are logged, never returned.
type Cache struct {
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	now        func() time.Time
	logger     *zap.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source that bounds entries carrying dates.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an extraction cache.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"); nil disables counting.
func New(s store, ttl time.Duration, cacheTotal *prometheus.CounterVec, logger *zap.Logger, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{store: s, ttl: ttl, cacheTotal: cacheTotal, now: time.Now, logger: logger}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Key derives the cache key: prefix plus the first 16 hex chars of sha256(normalized).
func Key(normalized string) string {
	h := sha256.Sum256([]byte(normalized))
	return keyPrefix + hex.EncodeToString(h[:8])
}

// Get returns cached parameters for normalized text.
func (c *Cache) Get(ctx context.Context, normalized string) (params.Extracted, bool) {
	key := Key(normalized)

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to read extraction cache", zap.String("key", key), zap.Error(err))
		}
		c.inc("miss")
		return params.Extracted{}, false
	}

	var dto entryDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		c.logger.Warn("Discarding corrupt extraction cache entry", zap.String("key", key), zap.Error(err))
		c.inc("miss")
		return params.Extracted{}, false
	}

	c.inc("hit")
	return dto.toDomain(), true
}

// Put stores validated parameters for normalized text. Entries with a date bound expire
// at the next local midnight at the latest: "last week" resolves differently tomorrow.
func (c *Cache) Put(ctx context.Context, normalized string, p params.Extracted) {
	key := Key(normalized)
	ttl := c.entryTTL(p)
	if ttl < minDatedTTL {
		c.logger.Debug("Skipping extraction cache write at day boundary", zap.String("key", key))
		return
	}

	data, err := json.Marshal(fromDomain(p))
	if err != nil {
		c.logger.Warn("Failed to encode extraction cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, ttl); err != nil {
		c.logger.Warn("Failed to write extraction cache", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) entryTTL(p params.Extracted) time.Duration {
	if p.DateFrom == nil && p.DateTo == nil {
		return c.ttl
	}
	now := c.now()
	y, m, d := now.Date()
	untilMidnight := time.Date(y, m, d+1, 0, 0, 0, 0, now.Location()).Sub(now)
	return min(c.ttl, untilMidnight)
}

func (c *Cache) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
