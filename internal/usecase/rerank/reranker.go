// Package rerank reorders the aggregated pool with a generative model.
package rerank

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vidsearch/internal/domain"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/candidate"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/result"
	"github.com/kailas-cloud/vidsearch/internal/logger"
	"github.com/kailas-cloud/vidsearch/internal/usecase/llmjson"
)

const (
	systemPrompt = "You are a helpful assistant that ranks search results. " +
		"Return a JSON object with a 'ranked_ids' array containing video IDs in order of relevance."
	userPromptFmt = "Rank these videos by relevance to the query: %q\n\nVideos:\n%s"

	defaultTimeout = 30 * time.Second
)

// Candidate is an aggregated hit plus the text the model ranks on.
type Candidate struct {
	candidate.Candidate
	Title       string
	Description string
	Location    string
}

// Outcome is a full permutation of the pool ids.
type Outcome struct {
	IDs      []string
	Fallback bool
	Reason   string
}

// Config tunes the reranker.
type Config struct {
	Timeout     time.Duration
	Temperature float32
}

// Reranker asks the generative model to order the pool by relevance.
type Reranker struct {
	gen    domain.Generator
	cfg    Config
	logger *zap.Logger
}

// New creates a reranker. A zero timeout means 30s.
func New(gen domain.Generator, cfg Config, logger *zap.Logger) *Reranker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Reranker{gen: gen, cfg: cfg, logger: logger}
}

type rankedPayload struct {
	RankedIDs *[]string `json:"ranked_ids"`
}

// Rerank never fails. On any provider or payload problem the pool order is kept
// and Fallback is set. An empty pool skips the model call.
func (r *Reranker) Rerank(ctx context.Context, query string, pool []Candidate) Outcome {
	if len(pool) == 0 {
		return Outcome{IDs: []string{}}
	}

	poolIDs := make([]string, len(pool))
	for i := range pool {
		poolIDs[i] = pool[i].ID()
	}

	ranked, err := r.generate(ctx, query, pool)
	if err == nil {
		ranked, err = complete(ranked, poolIDs)
	}
	if err != nil {
		logger.FromContextOr(ctx, r.logger).Warn("Rerank fell back to aggregator order",
			zap.String("query", query),
			zap.Int("pool", len(pool)),
			zap.Error(err),
		)
		return Outcome{IDs: poolIDs, Fallback: true, Reason: err.Error()}
	}
	return Outcome{IDs: ranked}
}

func (r *Reranker) generate(ctx context.Context, query string, pool []Candidate) ([]string, error) {
	if r.gen == nil {
		return nil, fmt.Errorf("no generator configured: %w", domain.ErrGenerativeProviderError)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	res, err := r.gen.Generate(callCtx, domain.GenerationRequest{
		Operation:   result.StageRerank,
		System:      systemPrompt,
		User:        Prompt(query, pool),
		Temperature: r.cfg.Temperature,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("generate ranking: %w", err)
	}

	var payload rankedPayload
	if err := llmjson.Decode(result.StageRerank, res.Content, &payload); err != nil {
		return nil, err
	}
	if payload.RankedIDs == nil {
		return nil, domain.NewMalformedResponse(result.StageRerank, `missing "ranked_ids"`, res.Content)
	}
	return *payload.RankedIDs, nil
}

// Prompt renders the user message: one ID/Title/Description/Location block per candidate.
func Prompt(query string, pool []Candidate) string {
	var b strings.Builder
	for i := range pool {
		c := &pool[i]
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "ID: %s\nTitle: %s\nDescription: %s\nLocation: %s\n---",
			c.ID(),
			orDefault(c.Title, "Untitled"),
			orDefault(c.Description, "No description"),
			orDefault(c.Location, "No location"),
		)
	}
	return fmt.Sprintf(userPromptFmt, query, b.String())
}

// complete drops unknown and repeated ids, then appends the pool ids the model
// left out in pool order. No known id at all is an error.
func complete(ranked, poolIDs []string) ([]string, error) {
	known := make(map[string]bool, len(poolIDs))
	for _, id := range poolIDs {
		known[id] = false
	}

	out := make([]string, 0, len(poolIDs))
	for _, id := range ranked {
		used, ok := known[id]
		if !ok || used {
			continue
		}
		known[id] = true
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, domain.NewMalformedResponse(result.StageRerank, "no known ids in ranking", strings.Join(ranked, ","))
	}

	for _, id := range poolIDs {
		if !known[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
