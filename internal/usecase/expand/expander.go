// Package expand turns one search query into a small set of paraphrases.
package expand

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vidsearch/internal/domain"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/result"
	"github.com/kailas-cloud/vidsearch/internal/logger"
	"github.com/kailas-cloud/vidsearch/internal/usecase/llmjson"
)

const (
	systemPrompt = "You are a helpful assistant that generates search variations. " +
		"Return a JSON object with a 'variations' array containing 2-3 alternative search queries."
	userPromptFmt = "Generate 2-3 semantic search variations for: %q. " +
		"Focus on key concepts and different ways to express the same intent."
)

// Expansion is the outcome of Expand. Variants[0] is always the original query.
type Expansion struct {
	Variants []string
	Fallback bool
	Reason   string
}

// Config tunes the expander.
type Config struct {
	MaxVariants int // total, original query included
	Timeout     time.Duration
	Temperature float32
}

// Expander asks the generative model for paraphrases of the query.
type Expander struct {
	gen    domain.Generator
	cfg    Config
	logger *zap.Logger
}

// New creates an expander.
func New(gen domain.Generator, cfg Config, logger *zap.Logger) *Expander {
	if cfg.MaxVariants < 1 {
		cfg.MaxVariants = 4
	}
	return &Expander{gen: gen, cfg: cfg, logger: logger}
}

type variationsPayload struct {
	Variations *[]string `json:"variations"`
}

// Expand never fails: any provider or parsing problem yields [query] with Fallback set.
func (e *Expander) Expand(ctx context.Context, query string) Expansion {
	variations, err := e.generate(ctx, query)
	if err != nil {
		e.log(ctx).Warn("Query expansion fell back to original query",
			zap.String("query", query),
			zap.Error(err),
		)
		return Expansion{Variants: []string{query}, Fallback: true, Reason: err.Error()}
	}
	return Expansion{Variants: Merge(query, variations, e.cfg.MaxVariants)}
}

func (e *Expander) generate(ctx context.Context, query string) ([]string, error) {
	if e.gen == nil {
		return nil, fmt.Errorf("no generator configured: %w", domain.ErrGenerativeProviderError)
	}

	callCtx := ctx
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	res, err := e.gen.Generate(callCtx, domain.GenerationRequest{
		Operation:   result.StageExpand,
		System:      systemPrompt,
		User:        fmt.Sprintf(userPromptFmt, query),
		Temperature: e.cfg.Temperature,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("generate variations: %w", err)
	}

	var payload variationsPayload
	if err := llmjson.Decode(result.StageExpand, res.Content, &payload); err != nil {
		return nil, err
	}
	if payload.Variations == nil {
		return nil, domain.NewMalformedResponse(result.StageExpand, `missing "variations"`, res.Content)
	}
	return *payload.Variations, nil
}

func (e *Expander) log(ctx context.Context) *zap.Logger {
	return logger.FromContextOr(ctx, e.logger)
}

// Merge puts query first, then the trimmed, non-empty variations that are not
// case-insensitive duplicates of anything before them, capped at maxTotal.
func Merge(query string, variations []string, maxTotal int) []string {
	out := make([]string, 0, min(maxTotal, len(variations)+1))
	out = append(out, query)
	seen := map[string]struct{}{strings.ToLower(strings.TrimSpace(query)): {}}

	for _, v := range variations {
		if len(out) >= maxTotal {
			break
		}
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
