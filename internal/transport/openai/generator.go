package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tradesearch/internal/domain"
	"github.com/kailas-cloud/tradesearch/internal/metrics"
)

// Generator is a chat-completion provider using the OpenAI-compatible API.
type Generator struct {
	client   *openai.Client
	model    string
	user     string
	provider string
	timeout  time.Duration
	logger   *zap.Logger
}

// Config holds the model provider settings.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	User     string
	Provider string
	Timeout  time.Duration
	Logger   *zap.Logger
}

// NewGenerator creates an OpenAI-compatible chat generator.
func NewGenerator(cfg *Config) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		user:     cfg.User,
		provider: cfg.Provider,
		timeout:  cfg.Timeout,
		logger:   logger,
	}
}

// Generate implements domain.Generator. Transport-level metrics are recorded here.
func (g *Generator) Generate(ctx context.Context, in domain.GenerationRequest) (domain.GenerationResult, error) {
	temperature := float32(in.Temperature)
	if temperature == 0 {
		// omitempty drops 0, which servers read as their default of 1.
		temperature = math.SmallestNonzeroFloat32
	}
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: in.System},
			{Role: openai.ChatMessageRoleUser, Content: in.Prompt},
		},
		Temperature: temperature,
		MaxTokens:   in.MaxTokens,
		User:        g.user,
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.ModelRequestsTotal.WithLabelValues(g.provider, g.model, "error").Inc()
		metrics.ModelErrorsTotal.WithLabelValues(g.provider, g.model, errorType(err)).Inc()
		return domain.GenerationResult{}, parseAPIError(err)
	}

	if len(resp.Choices) == 0 {
		metrics.ModelRequestsTotal.WithLabelValues(g.provider, g.model, "error").Inc()
		metrics.ModelErrorsTotal.WithLabelValues(g.provider, g.model, "empty_response").Inc()
		return domain.GenerationResult{}, fmt.Errorf("empty completion response: %w", domain.ErrResponseUnusable)
	}

	metrics.ModelRequestsTotal.WithLabelValues(g.provider, g.model, "success").Inc()
	metrics.ModelRequestDuration.WithLabelValues(g.provider, g.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.ModelTokensTotal.WithLabelValues(g.provider, g.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.ModelTokensTotal.WithLabelValues(g.provider, g.model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}

	if fr := resp.Choices[0].FinishReason; fr == openai.FinishReasonLength {
		g.logger.Warn("Completion truncated at max tokens",
			zap.String("model", g.model), zap.Int("max_tokens", in.MaxTokens))
	}

	return domain.GenerationResult{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a readable error from the API response.
// Throttling, timeouts, 5xx and network failures are marked domain.ErrTransient.
func parseAPIError(err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("completion request canceled: %w", err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return classify(reqErr.HTTPStatusCode,
			fmt.Errorf("completion API error %d: %s", reqErr.HTTPStatusCode, detail))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classify(apiErr.HTTPStatusCode,
			fmt.Errorf("completion API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message))
	}

	// No HTTP status: the request never completed (DNS, connection reset, timeout).
	return fmt.Errorf("completion request failed: %w: %w", domain.ErrTransient, err)
}

func classify(status int, err error) error {
	if IsRetryableStatus(status) {
		return fmt.Errorf("%w: %w", err, domain.ErrTransient)
	}
	return fmt.Errorf("%w: %w", err, domain.ErrUpstreamUnavailable)
}

// IsRetryableStatus reports whether an HTTP status is worth retrying.
func IsRetryableStatus(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests ||
		status >= http.StatusInternalServerError
}

func errorType(err error) string {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Sprintf("http_%d", reqErr.HTTPStatusCode)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("http_%d", apiErr.HTTPStatusCode)
	}
	return "network"
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
