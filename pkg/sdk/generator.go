package tradesearch

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/tradesearch/internal/domain"
)

// Generator turns a system+user prompt into model text.
// Return an error wrapping ErrModelUnavailable when the model cannot be reached.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error)
}

// GenerationRequest is a single prompt invocation.
type GenerationRequest struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// GenerationResult is the raw model output and its token usage.
type GenerationResult struct {
	Text         string
	PromptTokens int
	TotalTokens  int
}

// generatorAdapter wraps a public Generator to satisfy domain.Generator.
type generatorAdapter struct {
	inner Generator
}

func (a *generatorAdapter) Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	r, err := a.inner.Generate(ctx, GenerationRequest{
		System:      req.System,
		Prompt:      req.Prompt,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("generate: %w", err)
	}
	return domain.GenerationResult{
		Text:             r.Text,
		PromptTokens:     r.PromptTokens,
		CompletionTokens: max(r.TotalTokens-r.PromptTokens, 0),
		TotalTokens:      r.TotalTokens,
	}, nil
}

// noopGenerator fails every call; manual searches still work without a model.
type noopGenerator struct{}

func (noopGenerator) Generate(context.Context, domain.GenerationRequest) (domain.GenerationResult, error) {
	return domain.GenerationResult{}, fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable,
		errors.New("tradesearch: generator not configured (use WithGenerator or WithOpenAI)"))
}
