package tradesearch

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type cacheDriver string

const (
	cacheNone     cacheDriver = ""
	cacheRedis    cacheDriver = "redis"
	cacheBadger   cacheDriver = "badger"
	cacheInMemory cacheDriver = "memory"
)

type clientConfig struct {
	dbPath     string
	seedSchema bool

	cache         cacheDriver
	cacheAddr     string
	cachePassword string
	cacheDir      string

	generator   Generator
	openAIKey   string
	openAIModel string

	rankingPath     string
	rankingDisabled bool
	maxResults      int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithDatabase sets the SQLite file holding trades and query history.
// Use ":memory:" for a throwaway store.
func WithDatabase(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.dbPath = path
	})
}

// WithSchema creates the trades and query_history tables if missing.
func WithSchema() Option {
	return optionFunc(func(c *clientConfig) {
		c.seedSchema = true
	})
}

// WithRedis caches extraction results in Redis.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cache = cacheRedis
		c.cacheAddr = addr
		c.cachePassword = password
	})
}

// WithBadger caches extraction results in an embedded Badger store under dir.
func WithBadger(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cache = cacheBadger
		c.cacheDir = dir
	})
}

// WithInMemoryCache caches extraction results in process memory.
func WithInMemoryCache() Option {
	return optionFunc(func(c *clientConfig) {
		c.cache = cacheInMemory
	})
}

// WithGenerator sets the generative model used for natural-language searches.
func WithGenerator(g Generator) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = g
	})
}

// WithOpenAI uses the OpenAI chat API as the generative model.
// Ignored when WithGenerator is also given.
func WithOpenAI(apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.openAIKey = apiKey
		c.openAIModel = model
	})
}

// WithRankingConfig loads ranking weights from a YAML file.
// Built-in defaults are used otherwise.
func WithRankingConfig(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.rankingPath = path
	})
}

// WithoutRanking returns results in store order with no relevance scores.
func WithoutRanking() Option {
	return optionFunc(func(c *clientConfig) {
		c.rankingDisabled = true
	})
}

// WithMaxResults caps the number of trades returned per search. Default: 1000.
func WithMaxResults(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxResults = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts, durations and
// model tokens) on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
