package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Model provider metrics.
var (
	ModelRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "model_requests_total",
			Help:      "Total number of generative model requests",
		},
		[]string{"provider", "model", "status"},
	)

	ModelRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "model_request_duration_seconds",
			Help:      "Generative model request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30},
		},
		[]string{"provider", "model"},
	)

	ModelTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "model_tokens_total",
			Help:      "Total model tokens consumed",
		},
		[]string{"provider", "model", "type"}, // prompt / completion
	)

	ModelErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "model_errors_total",
			Help:      "Total generative model errors",
		},
		[]string{"provider", "model", "error_type"},
	)

	ModelBudgetTokensRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "model_budget_tokens_remaining",
			Help:      "Remaining model token budget",
		},
		[]string{"provider", "period"},
	)

	ModelBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "model_breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open",
		},
		[]string{"provider"},
	)
)

// Search pipeline metrics.
var (
	ExtractionCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "extraction_cache_total",
			Help:      "Extraction cache hits and misses",
		},
		[]string{"result"}, // hit / miss
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"mode", "outcome"},
	)

	RankingOutcomeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ranking_outcome_total",
			Help:      "Ranking invocations by outcome",
		},
		[]string{"outcome"}, // ranked / disabled / fallback
	)

	RankingConfigReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ranking_config_reloads_total",
			Help:      "Ranking configuration reload attempts",
		},
		[]string{"result"}, // ok / error
	)

	HistoryLogFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "history_log_failures_total",
			Help:      "Query history writes that failed or were dropped",
		},
	)
)

var registerOnce sync.Once

// RegisterSearchMetrics registers model and search collectors. Safe to call more than once.
func RegisterSearchMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			ModelRequestsTotal,
			ModelRequestDuration,
			ModelTokensTotal,
			ModelErrorsTotal,
			ModelBudgetTokensRemaining,
			ModelBreakerState,
			ExtractionCacheTotal,
			SearchDuration,
			RankingOutcomeTotal,
			RankingConfigReloadsTotal,
			HistoryLogFailuresTotal,
		)
	})
}
