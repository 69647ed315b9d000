// Package langchain adapts langchaingo chat models (OpenAI-compatible servers such as
// Ollama or vLLM) to the domain.Generator contract.
package langchain

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tradesearch/internal/domain"
	"github.com/kailas-cloud/tradesearch/internal/metrics"
)

// "none" is accepted by local OpenAI-compatible servers that don't check tokens.
const anonymousToken = "none"

var statusRe = regexp.MustCompile(`status code:? (\d{3})`)

// Generator calls a langchaingo chat model.
type Generator struct {
	model     llms.Model
	modelName string
	provider  string
	timeout   time.Duration
	logger    *zap.Logger
}

// Config holds the model provider settings.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Provider string
	Timeout  time.Duration
	Logger   *zap.Logger
}

// NewGenerator creates a generator backed by langchaingo's OpenAI-compatible client.
func NewGenerator(cfg *Config) (*Generator, error) {
	token := cfg.APIKey
	if token == "" {
		token = anonymousToken
	}
	opts := []openai.Option{openai.WithToken(token), openai.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create langchain client: %w", err)
	}
	return newWithModel(client, cfg), nil
}

func newWithModel(m llms.Model, cfg *Config) *Generator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		model:     m,
		modelName: cfg.Model,
		provider:  cfg.Provider,
		timeout:   cfg.Timeout,
		logger:    logger,
	}
}

// Generate implements domain.Generator.
func (g *Generator) Generate(ctx context.Context, in domain.GenerationRequest) (domain.GenerationResult, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, in.System),
		llms.TextParts(llms.ChatMessageTypeHuman, in.Prompt),
	}
	opts := []llms.CallOption{llms.WithTemperature(in.Temperature)}
	if in.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(in.MaxTokens))
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()

	resp, err := g.model.GenerateContent(ctx, content, opts...)

	duration := time.Since(start)

	if err != nil {
		wrapped, errType := classify(err)
		metrics.ModelRequestsTotal.WithLabelValues(g.provider, g.modelName, "error").Inc()
		metrics.ModelErrorsTotal.WithLabelValues(g.provider, g.modelName, errType).Inc()
		return domain.GenerationResult{}, wrapped
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		metrics.ModelRequestsTotal.WithLabelValues(g.provider, g.modelName, "error").Inc()
		metrics.ModelErrorsTotal.WithLabelValues(g.provider, g.modelName, "empty_response").Inc()
		return domain.GenerationResult{}, fmt.Errorf("empty completion response: %w", domain.ErrResponseUnusable)
	}

	choice := resp.Choices[0]
	res := domain.GenerationResult{
		Text:             choice.Content,
		PromptTokens:     intInfo(choice.GenerationInfo, "PromptTokens"),
		CompletionTokens: intInfo(choice.GenerationInfo, "CompletionTokens"),
		TotalTokens:      intInfo(choice.GenerationInfo, "TotalTokens"),
	}
	if res.TotalTokens == 0 {
		res.TotalTokens = res.PromptTokens + res.CompletionTokens
	}

	metrics.ModelRequestsTotal.WithLabelValues(g.provider, g.modelName, "success").Inc()
	metrics.ModelRequestDuration.WithLabelValues(g.provider, g.modelName).Observe(duration.Seconds())
	if res.TotalTokens > 0 {
		metrics.ModelTokensTotal.WithLabelValues(g.provider, g.modelName, "prompt").Add(float64(res.PromptTokens))
		metrics.ModelTokensTotal.WithLabelValues(g.provider, g.modelName, "completion").Add(float64(res.CompletionTokens))
	}

	g.logger.Debug("Completion received",
		zap.String("provider", g.provider),
		zap.String("stop_reason", choice.StopReason),
		zap.Duration("duration", duration),
	)
	return res, nil
}

// HealthCheck sends a one-token prompt.
func (g *Generator) HealthCheck(ctx context.Context) error {
	_, err := g.model.GenerateContent(ctx,
		[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, "ping")},
		llms.WithMaxTokens(1))
	if err != nil {
		return fmt.Errorf("ping model: %w", err)
	}
	return nil
}

// classify marks throttling, 5xx and network failures as transient. langchaingo
// surfaces HTTP failures as plain errors carrying the status code in the message.
func classify(err error) (error, string) {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("completion request canceled: %w", err), "canceled"
	}
	m := statusRe.FindStringSubmatch(err.Error())
	if m == nil {
		return fmt.Errorf("completion request failed: %w: %w", domain.ErrTransient, err), "network"
	}
	status, _ := strconv.Atoi(m[1])
	errType := "http_" + m[1]
	if status == 408 || status == 429 || status >= 500 {
		return fmt.Errorf("completion API error %d: %w: %w", status, domain.ErrTransient, err), errType
	}
	return fmt.Errorf("completion API error %d: %w: %w", status, domain.ErrUpstreamUnavailable, err), errType
}

func intInfo(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
