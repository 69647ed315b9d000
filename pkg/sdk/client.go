package tradesearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tradesearch/internal/db"
	dbBadger "github.com/kailas-cloud/tradesearch/internal/db/badger"
	dbRedis "github.com/kailas-cloud/tradesearch/internal/db/redis"
	dbSqlite "github.com/kailas-cloud/tradesearch/internal/db/sqlite"
	"github.com/kailas-cloud/tradesearch/internal/domain"
	domhist "github.com/kailas-cloud/tradesearch/internal/domain/history"
	domranking "github.com/kailas-cloud/tradesearch/internal/domain/ranking"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/request"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/result"
	domtrade "github.com/kailas-cloud/tradesearch/internal/domain/trade"
	"github.com/kailas-cloud/tradesearch/internal/metrics"
	"github.com/kailas-cloud/tradesearch/internal/repository/extcache"
	historyrepo "github.com/kailas-cloud/tradesearch/internal/repository/history"
	traderepo "github.com/kailas-cloud/tradesearch/internal/repository/trade"
	openaiGen "github.com/kailas-cloud/tradesearch/internal/transport/openai"
	"github.com/kailas-cloud/tradesearch/internal/usecase/extraction"
	"github.com/kailas-cloud/tradesearch/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/tradesearch/internal/usecase/health"
	historyuc "github.com/kailas-cloud/tradesearch/internal/usecase/history"
	"github.com/kailas-cloud/tradesearch/internal/usecase/query"
	rankinguc "github.com/kailas-cloud/tradesearch/internal/usecase/ranking"
	searchuc "github.com/kailas-cloud/tradesearch/internal/usecase/search"
	usageuc "github.com/kailas-cloud/tradesearch/internal/usecase/usage"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultMaxResults       = 1000
	defaultHistoryWorkers   = 8
	defaultHistoryQueue     = searchuc.DefaultHistoryQueue
	defaultModel            = "gpt-4o-mini"
	poolReleaseTimeout      = 5 * time.Second
)

// Внутренние интерфейсы для подмены в тестах.
type searchUseCase interface {
	Search(ctx context.Context, req request.Request) (result.Response, error)
}

type filterUseCase interface {
	FilterOptions(ctx context.Context) (domtrade.FilterOptions, error)
}

type historyUseCase interface {
	List(ctx context.Context, userID string, limit int, savedOnly bool) ([]domhist.Record, error)
	Stats(ctx context.Context, userID string) (domhist.Stats, error)
	Update(ctx context.Context, id int64, userID string, u domhist.Update) (domhist.Record, error)
	Touch(ctx context.Context, id int64, userID string) error
	Delete(ctx context.Context, id int64, userID string) error
	DeleteAll(ctx context.Context, userID string) (int, error)
	Suggest(ctx context.Context, userID, partial string, limit int) ([]domhist.Suggestion, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Client is the tradesearch SDK entry point.
type Client struct {
	conn  *sqlx.DB
	kv    db.Store
	pool  *ants.Pool
	store pinger

	searchSvc  searchUseCase
	filterSvc  filterUseCase
	historySvc historyUseCase
	healthSvc  healthUseCase
	usageSvc   usageUseCase
	obs        *observer
}

// New opens the record store and wires the search pipeline.
// The provided context bounds the initial connection and readiness checks.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{maxResults: defaultMaxResults}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.dbPath == "" {
		return nil, errors.New("tradesearch: database path required (use WithDatabase)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	conn, err := dbSqlite.Open(ctx, dbSqlite.Config{Path: cfg.dbPath})
	if err != nil {
		return nil, fmt.Errorf("tradesearch: open database: %w", err)
	}
	if cfg.seedSchema {
		if err := dbSqlite.EnsureSchema(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("tradesearch: create schema: %w", err)
		}
	}

	kv, err := createKVStore(cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if kv != nil {
		if err := kv.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			kv.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("tradesearch: cache not ready: %w", err)
		}
	}

	c, err := wireClient(conn, kv, cfg, obs)
	if err != nil {
		if kv != nil {
			kv.Close()
		}
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

func createKVStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.cache {
	case cacheNone:
		return nil, nil
	case cacheRedis:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    []string{cfg.cacheAddr},
			Password: cfg.cachePassword,
		})
		if err != nil {
			return nil, fmt.Errorf("tradesearch: create redis store: %w", err)
		}
		return s, nil
	case cacheBadger, cacheInMemory:
		s, err := dbBadger.NewStore(dbBadger.Config{
			Dir:      cfg.cacheDir,
			InMemory: cfg.cache == cacheInMemory,
		}, nil)
		if err != nil {
			return nil, fmt.Errorf("tradesearch: create badger store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("tradesearch: unknown cache driver %q", cfg.cache)
	}
}

func wireClient(conn *sqlx.DB, kv db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	log := zap.NewNop()

	// Generator: noop если не задан (manual работает, natural language вернёт ошибку)
	var (
		base         domain.Generator = noopGenerator{}
		modelChecker healthuc.ModelChecker
		provider     = "custom"
		model        = "custom"
	)
	switch {
	case cfg.generator != nil:
		base = &generatorAdapter{inner: cfg.generator}
	case cfg.openAIKey != "":
		provider = "openai"
		model = cfg.openAIModel
		if model == "" {
			model = defaultModel
		}
		g := openaiGen.NewGenerator(&openaiGen.Config{
			APIKey:   cfg.openAIKey,
			Model:    model,
			Provider: provider,
			Logger:   log,
		})
		base = g
		modelChecker = g
	}
	breaker := generation.NewBreaker(base, provider, generation.BreakerConfig{
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}, log)
	gen := generation.NewInstrumentedGenerator(breaker, provider, model, nil, log)

	var cache extraction.Cache
	if kv != nil {
		cache = extcache.New(kv, extcache.DefaultTTL, metrics.ExtractionCacheTotal, log)
	}
	extractor := extraction.New(gen, cache, extraction.Config{}, log)

	source := rankinguc.NewStaticSource(domranking.Default())
	if cfg.rankingPath != "" {
		source = rankinguc.NewSource(cfg.rankingPath, log)
	}
	ranker := rankinguc.NewEngine(!cfg.rankingDisabled, source, log)

	pool, err := searchuc.NewHistoryPool(defaultHistoryWorkers, defaultHistoryQueue)
	if err != nil {
		return nil, fmt.Errorf("tradesearch: create worker pool: %w", err)
	}

	trades := traderepo.New(conn)
	history := historyrepo.New(conn)

	searchSvc := searchuc.New(
		extractor, query.New(cfg.maxResults, log), trades,
		history, ranker, pool, searchuc.Config{}, log,
	)

	var cachePinger healthuc.Pinger
	if kv != nil {
		cachePinger = kv
	}

	return &Client{
		conn:       conn,
		kv:         kv,
		pool:       pool,
		store:      trades,
		searchSvc:  searchSvc,
		filterSvc:  trades,
		historySvc: historyuc.New(history, trades, log),
		healthSvc:  healthuc.New(trades, cachePinger, modelChecker),
		usageSvc:   usageuc.New(nil, model), // nil = unlimited mode (no budget tracking in SDK)
		obs:        obs,
	}, nil
}

// Close waits briefly for pending history writes and releases all resources.
func (c *Client) Close() {
	if c.pool != nil {
		_ = c.pool.ReleaseTimeout(poolReleaseTimeout)
	}
	if c.kv != nil {
		c.kv.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Ping checks record store connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}
