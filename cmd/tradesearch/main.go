package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tradesearch/internal/config"
	"github.com/kailas-cloud/tradesearch/internal/db"
	dbBadger "github.com/kailas-cloud/tradesearch/internal/db/badger"
	dbRedis "github.com/kailas-cloud/tradesearch/internal/db/redis"
	dbSqlite "github.com/kailas-cloud/tradesearch/internal/db/sqlite"
	"github.com/kailas-cloud/tradesearch/internal/domain"
	domranking "github.com/kailas-cloud/tradesearch/internal/domain/ranking"
	logpkg "github.com/kailas-cloud/tradesearch/internal/logger"
	"github.com/kailas-cloud/tradesearch/internal/metrics"
	budgetrepo "github.com/kailas-cloud/tradesearch/internal/repository/budget"
	"github.com/kailas-cloud/tradesearch/internal/repository/extcache"
	historyrepo "github.com/kailas-cloud/tradesearch/internal/repository/history"
	traderepo "github.com/kailas-cloud/tradesearch/internal/repository/trade"
	chiTransport "github.com/kailas-cloud/tradesearch/internal/transport/chi"
	langchainGen "github.com/kailas-cloud/tradesearch/internal/transport/langchain"
	openaiGen "github.com/kailas-cloud/tradesearch/internal/transport/openai"
	"github.com/kailas-cloud/tradesearch/internal/usecase/extraction"
	"github.com/kailas-cloud/tradesearch/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/tradesearch/internal/usecase/health"
	historyuc "github.com/kailas-cloud/tradesearch/internal/usecase/history"
	"github.com/kailas-cloud/tradesearch/internal/usecase/query"
	rankinguc "github.com/kailas-cloud/tradesearch/internal/usecase/ranking"
	searchuc "github.com/kailas-cloud/tradesearch/internal/usecase/search"
	usageuc "github.com/kailas-cloud/tradesearch/internal/usecase/usage"
	"github.com/kailas-cloud/tradesearch/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting tradesearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("database_path", cfg.Database.Path),
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.String("model_provider", cfg.Model.Provider),
		zap.String("model", cfg.Model.Model),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Record store
	conn, err := dbSqlite.Open(ctx, dbSqlite.Config{
		Path:          cfg.Database.Path,
		BusyTimeoutMs: cfg.Database.BusyTimeoutMs,
		MaxOpenConns:  cfg.Database.MaxOpenConns,
	})
	if err != nil {
		logger.Fatal("Failed to open record store", zap.Error(err))
	}
	defer func() { _ = conn.Close() }()
	if cfg.Database.SeedSchema {
		if err := dbSqlite.EnsureSchema(ctx, conn); err != nil {
			logger.Fatal("Failed to apply schema", zap.Error(err))
		}
	}
	logger.Info("Connected to record store")

	// Cache KV backend (extraction cache + budget counters)
	kv, err := openKVStore(cfg.Cache, logger)
	if err != nil {
		logger.Fatal("Failed to create cache store", zap.Error(err))
	}
	if kv != nil {
		defer kv.Close()
		timeout := time.Duration(cfg.Cache.ReadinessTimeout) * time.Second
		if err := kv.WaitForReady(ctx, timeout); err != nil {
			logger.Fatal("Cache store not ready", zap.Error(err))
		}
		logger.Info("Connected to cache store", zap.String("driver", cfg.Cache.Driver))
	}

	// Register search metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	// Single BudgetTracker shared by the generator chain and the usage service.
	var budget *generation.BudgetTracker
	budgetCfg := cfg.Model.Budget
	if budgetCfg.DailyTokenLimit > 0 || budgetCfg.MonthlyTokenLimit > 0 {
		action := generation.BudgetActionWarn
		if budgetCfg.Action == string(generation.BudgetActionReject) {
			action = generation.BudgetActionReject
		}
		budget = generation.NewBudgetTracker(
			cfg.Model.Provider, budgetCfg.DailyTokenLimit, budgetCfg.MonthlyTokenLimit, action, logger,
		)
		if kv != nil {
			budget.WithStore(ctx, budgetrepo.New(kv, 48*time.Hour, 62*24*time.Hour))
		}
	}

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	var budgetChecker generation.BudgetChecker
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetChecker = budget
		budgetReader = budget
	}

	generator, modelChecker, err := buildGenerator(cfg.Model, budgetChecker, logger)
	if err != nil {
		logger.Fatal("Failed to create model generator", zap.Error(err))
	}
	logger.Info("Generator created",
		zap.String("provider", cfg.Model.Provider),
		zap.String("model", cfg.Model.Model),
	)

	var cache extraction.Cache
	if kv != nil {
		ttl := time.Duration(cfg.Cache.TTLSec) * time.Second
		cache = extcache.New(kv, ttl, metrics.ExtractionCacheTotal, logger)
	}
	extractor := extraction.New(generator, cache, extraction.Config{
		Temperature:  cfg.Model.Temperature,
		MaxTokens:    cfg.Model.MaxTokens,
		Attempts:     cfg.Model.Retry.Attempts,
		InitialDelay: time.Duration(cfg.Model.Retry.InitialDelayMs) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.Model.Retry.MaxDelayMs) * time.Millisecond,
	}, logger)

	// Ranking
	var source *rankinguc.Source
	if cfg.Ranking.ConfigPath != "" {
		source = rankinguc.NewSource(cfg.Ranking.ConfigPath, logger)
	} else {
		source = rankinguc.NewStaticSource(domranking.Default())
	}
	ranker := rankinguc.NewEngine(cfg.Ranking.IsEnabled(), source, logger)
	if cfg.Ranking.Watch && cfg.Ranking.ConfigPath != "" {
		watcher := rankinguc.NewWatcher(source, logger)
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("Ranking config watcher disabled", zap.Error(err))
		}
	}

	// History writes run on a bounded pool; past the queue a write is dropped.
	pool, err := searchuc.NewHistoryPool(cfg.Search.HistoryWorkers, cfg.Search.HistoryQueue)
	if err != nil {
		logger.Fatal("Failed to create history pool", zap.Error(err))
	}

	// Repositories
	trades := traderepo.New(conn)
	history := historyrepo.New(conn)

	// Use case services
	searchSvc := searchuc.New(
		extractor, query.New(cfg.Search.MaxResults, logger), trades,
		history, ranker, pool,
		searchuc.Config{HistoryWait: time.Duration(cfg.Search.HistoryWaitMs) * time.Millisecond},
		logger,
	)
	historySvc := historyuc.New(history, trades, logger,
		historyuc.WithMaxCandidates(cfg.Search.MaxSuggestions))
	usageSvc := usageuc.New(budgetReader, cfg.Model.Model)

	var cachePinger healthuc.Pinger
	if kv != nil {
		cachePinger = kv
	}
	healthSvc := healthuc.New(trades, cachePinger, modelChecker)

	// Create chi server
	server := chiTransport.NewServer(searchSvc, trades, historySvc, usageSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys, logger))
	r.Use(metrics.Middleware())
	chiTransport.HandlerWithOptions(server, chiTransport.RouterOptions{
		BaseRouter: r,
		ErrorHandlerFunc: func(w http.ResponseWriter, req *http.Request, err error) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
				Code:      chiTransport.ErrorCodeBadRequest,
				Message:   err.Error(),
				Path:      req.URL.Path,
				Timestamp: time.Now().UTC(),
			})
		},
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownTimeout := time.Duration(cfg.HTTP.ShutdownSec) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	// Let queued history writes finish before the store closes.
	if err := pool.ReleaseTimeout(shutdownTimeout); err != nil {
		logger.Warn("History pool did not drain", zap.Error(err))
	}
	stop()

	logger.Info("Server stopped gracefully")
}

// openKVStore returns a nil store when caching is disabled.
func openKVStore(cfg config.CacheConfig, logger *zap.Logger) (db.Store, error) {
	switch cfg.Driver {
	case config.CacheDriverRedis:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		return s, nil
	case config.CacheDriverBadger:
		s, err := dbBadger.NewStore(dbBadger.Config{
			Dir:      cfg.BadgerDir,
			InMemory: cfg.InMemory,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("badger: %w", err)
		}
		return s, nil
	case config.CacheDriverNone:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
}

// buildGenerator assembles the decorator chain: provider -> Breaker -> Instrumented.
// The bare provider is returned separately for health checks.
func buildGenerator(
	cfg config.ModelConfig,
	budget generation.BudgetChecker,
	logger *zap.Logger,
) (domain.Generator, healthuc.ModelChecker, error) {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second

	var base interface {
		domain.Generator
		healthuc.ModelChecker
	}
	switch cfg.Provider {
	case config.ProviderLangChain:
		g, err := langchainGen.NewGenerator(&langchainGen.Config{
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
			Model:    cfg.Model,
			Provider: cfg.Provider,
			Timeout:  timeout,
			Logger:   logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("langchain generator: %w", err)
		}
		base = g
	default:
		base = openaiGen.NewGenerator(&openaiGen.Config{
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
			Model:    cfg.Model,
			Provider: cfg.Provider,
			Timeout:  timeout,
			Logger:   logger,
		})
	}

	var gen domain.Generator = generation.NewBreaker(base, cfg.Provider, generation.BreakerConfig{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		OpenTimeout:      time.Duration(cfg.Breaker.OpenTimeoutSec) * time.Second,
		HalfOpenRequests: cfg.Breaker.HalfOpenRequests,
	}, logger)

	gen = generation.NewInstrumentedGenerator(gen, cfg.Provider, cfg.Model, budget, logger)
	return gen, base, nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:      chiTransport.ErrorCodeInternalError,
						Message:   "internal error",
						Path:      r.URL.Path,
						Timestamp: time.Now().UTC(),
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
				zap.String("model_tokens", ww.Header().Get(chiTransport.ModelTokensHeader)),
			)
		})
	}
}
