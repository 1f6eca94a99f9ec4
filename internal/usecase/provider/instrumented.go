package provider

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vidsearch/internal/domain"
	domusage "github.com/kailas-cloud/vidsearch/internal/domain/usage"
	"github.com/kailas-cloud/vidsearch/internal/metrics"
)

// OperationEmbed labels embedding calls in usage and metrics.
const OperationEmbed = "embed"

// BudgetChecker is the local interface for budget enforcement. One checker is
// shared by the embedder and the generator.
type BudgetChecker interface {
	Check(ctx context.Context, operation string) error
	Record(operation string, tokens int64)
	Snapshot(period domusage.Period) domusage.Budget
}

// guard is the budget and usage bookkeeping shared by both decorators.
// Transport metrics (requests, duration, tokens) are recorded in the drivers.
type guard struct {
	provider string
	model    string
	budget   BudgetChecker
	logger   *zap.Logger
}

func (g guard) check(ctx context.Context, operation string) error {
	if g.budget == nil {
		return nil
	}
	if err := g.budget.Check(ctx, operation); err != nil {
		g.logger.Error("Budget exceeded",
			zap.String("provider", g.provider),
			zap.String("model", g.model),
			zap.String("operation", operation),
			zap.Error(err),
		)
		return fmt.Errorf("budget check: %w", err)
	}
	return nil
}

func (g guard) record(ctx context.Context, operation string, tokens int) {
	domain.UsageFromContext(ctx).AddTokens(operation, tokens)

	if g.budget == nil || tokens <= 0 {
		return
	}
	g.budget.Record(operation, int64(tokens))
	day := g.budget.Snapshot(domusage.PeriodDay)
	month := g.budget.Snapshot(domusage.PeriodMonth)
	metrics.BudgetTokensRemaining.WithLabelValues(g.provider, "daily").Set(float64(day.TokensRemaining()))
	metrics.BudgetTokensRemaining.WithLabelValues(g.provider, "monthly").Set(float64(month.TokensRemaining()))
}

// InstrumentedEmbedder wraps Embedder with budget enforcement and logging.
type InstrumentedEmbedder struct {
	inner domain.Embedder
	guard
}

// NewInstrumentedEmbedder wraps an embedder with budget and observability.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string,
	budget BudgetChecker, logger *zap.Logger,
) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner: inner,
		guard: guard{provider: provider, model: model, budget: budget, logger: logger},
	}
}

// Embed checks budget, delegates to the inner embedder, and records usage.
func (p *InstrumentedEmbedder) Embed(
	ctx context.Context, text string,
) (domain.EmbeddingResult, error) {
	if err := p.check(ctx, OperationEmbed); err != nil {
		return domain.EmbeddingResult{}, err
	}

	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	duration := time.Since(start)

	if err != nil {
		p.logger.Debug("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.record(ctx, OperationEmbed, result.TotalTokens)

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

// InstrumentedGenerator wraps Generator with budget enforcement and logging.
type InstrumentedGenerator struct {
	inner domain.Generator
	guard
}

// NewInstrumentedGenerator wraps a generator with budget and observability.
func NewInstrumentedGenerator(
	inner domain.Generator, provider, model string,
	budget BudgetChecker, logger *zap.Logger,
) *InstrumentedGenerator {
	return &InstrumentedGenerator{
		inner: inner,
		guard: guard{provider: provider, model: model, budget: budget, logger: logger},
	}
}

// Generate checks budget, delegates to the inner generator, and records usage.
func (p *InstrumentedGenerator) Generate(
	ctx context.Context, req domain.GenerationRequest,
) (domain.GenerationResult, error) {
	if err := p.check(ctx, req.Operation); err != nil {
		return domain.GenerationResult{}, err
	}

	start := time.Now()
	result, err := p.inner.Generate(ctx, req)
	duration := time.Since(start)

	if err != nil {
		p.logger.Debug("Generation request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.String("operation", req.Operation),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.GenerationResult{}, fmt.Errorf("generate: %w", err)
	}

	p.record(ctx, req.Operation, result.TotalTokens)

	p.logger.Debug("Generation request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.String("operation", req.Operation),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}
