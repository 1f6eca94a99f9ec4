// Package langchain provides a domain.Generator on top of langchaingo models,
// for OpenAI-compatible servers that the go-openai driver does not fit.
package langchain

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vidsearch/internal/domain"
	"github.com/kailas-cloud/vidsearch/internal/metrics"
)

// Config holds the langchaingo model settings.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Provider string
	Logger   *zap.Logger
}

// Generator implements domain.Generator with llms.Model.GenerateContent.
type Generator struct {
	model     llms.Model
	modelName string
	provider  string
	logger    *zap.Logger
}

// NewGenerator creates a generator backed by the langchaingo OpenAI client.
func NewGenerator(cfg *Config) (*Generator, error) {
	opts := []openai.Option{
		openai.WithModel(cfg.Model),
		// Local OpenAI-compatible servers accept any token.
		openai.WithToken(orDefault(cfg.APIKey, "none")),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create langchain client: %w", err)
	}
	return NewGeneratorWithModel(client, cfg), nil
}

// NewGeneratorWithModel wraps an existing llms.Model.
func NewGeneratorWithModel(model llms.Model, cfg *Config) *Generator {
	return &Generator{
		model:     model,
		modelName: cfg.Model,
		provider:  cfg.Provider,
		logger:    cfg.Logger,
	}
}

// Generate sends one system and one human message.
func (g *Generator) Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.System),
		llms.TextParts(llms.ChatMessageTypeHuman, req.User),
	}
	opts := []llms.CallOption{llms.WithTemperature(float64(req.Temperature))}
	if req.JSON {
		opts = append(opts, llms.WithJSONMode())
	}

	op := req.Operation
	start := time.Now()

	resp, err := g.model.GenerateContent(ctx, content, opts...)

	duration := time.Since(start)

	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(g.provider, g.modelName, op, "error").Inc()
		metrics.ProviderErrorsTotal.WithLabelValues(g.provider, g.modelName, op, "api_error").Inc()
		return domain.GenerationResult{}, fmt.Errorf("generate content: %w: %w", domain.ErrGenerativeProviderError, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		metrics.ProviderRequestsTotal.WithLabelValues(g.provider, g.modelName, op, "error").Inc()
		metrics.ProviderErrorsTotal.WithLabelValues(g.provider, g.modelName, op, "empty_response").Inc()
		return domain.GenerationResult{}, fmt.Errorf("no choices returned: %w", domain.ErrGenerativeProviderError)
	}

	choice := resp.Choices[0]
	promptTokens := intInfo(choice.GenerationInfo, "PromptTokens")
	totalTokens := intInfo(choice.GenerationInfo, "TotalTokens")

	metrics.ProviderRequestsTotal.WithLabelValues(g.provider, g.modelName, op, "success").Inc()
	metrics.ProviderRequestDuration.WithLabelValues(g.provider, g.modelName, op).Observe(duration.Seconds())
	if totalTokens > 0 {
		metrics.ProviderTokensTotal.WithLabelValues(g.provider, g.modelName, op, "prompt").Add(float64(promptTokens))
		metrics.ProviderTokensTotal.WithLabelValues(g.provider, g.modelName, op, "total").Add(float64(totalTokens))
	}

	g.logger.Debug("Content generated",
		zap.String("operation", op),
		zap.String("stop_reason", choice.StopReason),
		zap.Duration("duration", duration),
	)

	return domain.GenerationResult{
		Content:      choice.Content,
		PromptTokens: promptTokens,
		TotalTokens:  totalTokens,
	}, nil
}

// intInfo reads a token counter from GenerationInfo; providers disagree on the numeric type.
func intInfo(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
