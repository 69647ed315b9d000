package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tradesearch/internal/domain"
	"github.com/kailas-cloud/tradesearch/internal/metrics"
)

// BreakerConfig tunes the circuit breaker in front of the model provider.
type BreakerConfig struct {
	// FailureThreshold consecutive transient failures open the circuit.
	FailureThreshold int
	// OpenTimeout is how long the circuit stays open before probing.
	OpenTimeout time.Duration
	// HalfOpenRequests is the number of probe calls allowed while half-open.
	HalfOpenRequests int
}

// Breaker short-circuits model calls after repeated transient failures.
// Only domain.ErrTransient failures count against the circuit.
type Breaker struct {
	inner    domain.Generator
	cb       *gobreaker.CircuitBreaker
	provider string
}

// NewBreaker wraps inner with a circuit breaker.
func NewBreaker(inner domain.Generator, provider string, cfg BreakerConfig, logger *zap.Logger) *Breaker {
	threshold := uint32(max(cfg.FailureThreshold, 1))
	halfOpen := uint32(max(cfg.HalfOpenRequests, 1))

	metrics.ModelBreakerState.WithLabelValues(provider).Set(float64(gobreaker.StateClosed))

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        provider,
		MaxRequests: halfOpen,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !domain.IsTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.ModelBreakerState.WithLabelValues(name).Set(float64(to))
			logger.Warn("Model circuit breaker state changed",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &Breaker{inner: inner, cb: cb, provider: provider}
}

// Generate calls the inner generator unless the circuit is open.
func (b *Breaker) Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Generate(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.GenerationResult{}, fmt.Errorf("%s: %w: %w", b.provider, domain.ErrUpstreamUnavailable, err)
		}
		return domain.GenerationResult{}, err
	}
	return out.(domain.GenerationResult), nil
}

// State returns the current circuit state.
func (b *Breaker) State() gobreaker.State { return b.cb.State() }
