// Package extraction turns free-text trade queries into validated search parameters
// using a generative model behind a cache.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tradesearch/internal/domain"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/params"
	"github.com/kailas-cloud/tradesearch/internal/logger"
)

// Defaults for model invocation.
const (
	DefaultMaxTokens    = 500
	DefaultAttempts     = 3
	DefaultInitialDelay = 2 * time.Second
	DefaultMaxDelay     = 10 * time.Second
)

// Config tunes model invocation.
type Config struct {
	Temperature  float64
	MaxTokens    int
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Attempts <= 0 {
		c.Attempts = DefaultAttempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = DefaultInitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
}

// Service is the parameter extraction engine.
type Service struct {
	gen    domain.Generator
	cache  Cache
	cfg    Config
	logger *zap.Logger
}

// New creates an extraction service. cache can be nil.
func New(gen domain.Generator, cache Cache, cfg Config, logger *zap.Logger) *Service {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{gen: gen, cache: cache, cfg: cfg, logger: logger}
}

// Normalize lower-cases text, trims it and collapses internal whitespace.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Extract resolves text into validated parameters. Relative dates resolve against asOf.
// Errors wrap domain.ErrUpstreamUnavailable, domain.ErrResponseUnusable or
// domain.ErrTokenBudgetExceeded.
func (s *Service) Extract(ctx context.Context, text, requesterID string, asOf time.Time) (params.Extracted, error) {
	log := logger.FromContextOr(ctx, s.logger).With(zap.String("user_id", requesterID))

	normalized := Normalize(text)
	if normalized == "" {
		return params.Extracted{}, domain.NewValidationError("query_text", "is empty")
	}

	if s.cache != nil {
		if p, ok := s.cache.Get(ctx, normalized); ok {
			log.Debug("Extraction cache hit")
			return p, nil
		}
	}

	res, err := s.invoke(ctx, log, domain.GenerationRequest{
		System:      systemPrompt,
		Prompt:      buildUserPrompt(text, asOf),
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	})
	if err != nil {
		return params.Extracted{}, err
	}

	obj, repaired, err := decodeObject(res.Text)
	if err != nil {
		log.Warn("Unusable model response", zap.Int("length", len(res.Text)), zap.Error(err))
		return params.Extracted{}, err
	}
	if repaired {
		log.Info("Model response needed JSON repair")
	}

	p := s.validate(log, obj)

	// A cancelled request must not leave an entry behind.
	if s.cache != nil && ctx.Err() == nil {
		s.cache.Put(ctx, normalized, p)
	}
	return p, nil
}

// invoke calls the model, retrying transient failures with capped exponential backoff.
func (s *Service) invoke(
	ctx context.Context, log *zap.Logger, req domain.GenerationRequest,
) (domain.GenerationResult, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.InitialDelay
	b.Multiplier = 2
	b.MaxInterval = s.cfg.MaxDelay
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.cfg.Attempts-1)), ctx)

	var (
		res      domain.GenerationResult
		attempts int
	)
	op := func() error {
		attempts++
		out, err := s.gen.Generate(ctx, req)
		if err != nil {
			if domain.IsTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		res = out
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Warn("Retrying model call",
			zap.Int("attempt", attempts),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	err := backoff.RetryNotify(op, policy, notify)
	if err == nil {
		return res, nil
	}

	switch {
	case errors.Is(err, domain.ErrTokenBudgetExceeded),
		errors.Is(err, domain.ErrResponseUnusable),
		errors.Is(err, domain.ErrUpstreamUnavailable):
		return domain.GenerationResult{}, err
	}
	log.Error("Model unavailable", zap.Int("attempts", attempts), zap.Error(err))
	return domain.GenerationResult{}, fmt.Errorf("after %d attempts: %w: %w", attempts, domain.ErrUpstreamUnavailable, err)
}
