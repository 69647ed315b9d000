package domain

import "context"

// KeyPrefix namespaces every key this service writes to a shared KV store.
const KeyPrefix = "tradesearch:"

// Generator is the generative model contract shared between layers.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error)
}

// HealthChecker verifies model provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// GenerationRequest is a single system+user prompt invocation.
type GenerationRequest struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// GenerationResult carries the raw model text and token usage through the decorator chain.
type GenerationResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
