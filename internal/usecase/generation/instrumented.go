package generation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tradesearch/internal/domain"
	"github.com/kailas-cloud/tradesearch/internal/metrics"
)

// InstrumentedGenerator wraps a Generator with budget enforcement and logging.
// Transport metrics (requests, duration, tokens) are recorded by the transport adapters.
// This layer owns budget tracking, budget metrics and per-request usage accounting.
type InstrumentedGenerator struct {
	inner    domain.Generator
	provider string
	model    string
	budget   BudgetChecker
	logger   *zap.Logger
}

// NewInstrumentedGenerator wraps a generator. budget can be nil (unlimited).
func NewInstrumentedGenerator(
	inner domain.Generator, provider, model string,
	budget BudgetChecker, logger *zap.Logger,
) *InstrumentedGenerator {
	return &InstrumentedGenerator{
		inner:    inner,
		provider: provider,
		model:    model,
		budget:   budget,
		logger:   logger,
	}
}

// Generate checks the budget, delegates, and records token usage.
func (g *InstrumentedGenerator) Generate(
	ctx context.Context, req domain.GenerationRequest,
) (domain.GenerationResult, error) {
	if g.budget != nil {
		if err := g.budget.Check(ctx); err != nil {
			g.logger.Error("Token budget exceeded",
				zap.String("provider", g.provider),
				zap.String("model", g.model),
				zap.Error(err),
			)
			return domain.GenerationResult{}, fmt.Errorf("budget check: %w", err)
		}
	}

	start := time.Now()

	result, err := g.inner.Generate(ctx, req)

	duration := time.Since(start)

	if err != nil {
		g.logger.Warn("Model request failed",
			zap.String("provider", g.provider),
			zap.String("model", g.model),
			zap.Duration("duration", duration),
			zap.Bool("transient", domain.IsTransient(err)),
			zap.Error(err),
		)
		return domain.GenerationResult{}, fmt.Errorf("generate: %w", err)
	}

	domain.UsageFromContext(ctx).AddTokens(result.TotalTokens)

	if g.budget != nil && result.TotalTokens > 0 {
		g.budget.Record(int64(result.TotalTokens))
		remaining := metrics.ModelBudgetTokensRemaining
		remaining.WithLabelValues(g.provider, "daily").Set(float64(g.budget.RemainingDaily()))
		remaining.WithLabelValues(g.provider, "monthly").Set(float64(g.budget.RemainingMonthly()))
	}

	g.logger.Debug("Model request completed",
		zap.String("provider", g.provider),
		zap.String("model", g.model),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("completion_tokens", result.CompletionTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}
