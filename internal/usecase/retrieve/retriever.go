// Package retrieve scores the corpus against every query variant concurrently.
package retrieve

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vidsearch/internal/domain"
	"github.com/kailas-cloud/vidsearch/internal/domain/item"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/candidate"
	"github.com/kailas-cloud/vidsearch/internal/domain/similarity"
	"github.com/kailas-cloud/vidsearch/internal/logger"
	"github.com/kailas-cloud/vidsearch/internal/metrics"
	"github.com/kailas-cloud/vidsearch/internal/workpool"
)

// Config tunes the retriever.
type Config struct {
	TopK         int
	EmbedTimeout time.Duration
}

// Retriever fans variants out over the worker pool and joins before returning,
// unless the caller's context ends first.
type Retriever struct {
	embedder domain.Embedder
	pool     workpool.Pool
	cfg      Config
	logger   *zap.Logger
}

// New creates a retriever.
// The pool is shared by every search; it should come from workpool.New.
func New(embedder domain.Embedder, pool workpool.Pool, cfg Config, logger *zap.Logger) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	return &Retriever{embedder: embedder, pool: pool, cfg: cfg, logger: logger}
}

// Retrieve returns one candidate list per variant, index-aligned with variants.
// A dropped branch yields nil at its index. topK <= 0 uses the configured default.
// If ctx is done, partial results are discarded and ctx.Err() is returned
// without waiting for a busy pool or for branches still in flight.
func (r *Retriever) Retrieve(
	ctx context.Context, variants []string, items []item.Item, topK int,
) ([][]candidate.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = r.cfg.TopK
	}

	log := logger.FromContextOr(ctx, r.logger)
	out := make([][]candidate.Candidate, len(variants))

	var wg sync.WaitGroup
	for i, variant := range variants {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			cs, err := r.branch(ctx, variant, items, topK)
			if err != nil {
				if ctx.Err() == nil {
					log.Warn("Retrieval branch dropped",
						zap.Int("variant_index", i),
						zap.String("variant", variant),
						zap.Error(err),
					)
				}
				return
			}
			// Each branch owns its slot.
			out[i] = cs
		}
		if err := workpool.Submit(ctx, r.pool, task); err != nil {
			wg.Done()
			if ctx.Err() != nil {
				break
			}
			metrics.RetrieveBranchDropsTotal.WithLabelValues("pool").Inc()
			log.Warn("Retrieval branch not scheduled", zap.Int("variant_index", i), zap.Error(err))
		}
	}

	joined := make(chan struct{})
	go func() {
		wg.Wait()
		close(joined)
	}()
	select {
	case <-joined:
	case <-ctx.Done():
	}

	// Late branches may still write to out; it is never read once ctx is done.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Retriever) branch(
	ctx context.Context, variant string, items []item.Item, topK int,
) ([]candidate.Candidate, error) {
	embedCtx := ctx
	if r.cfg.EmbedTimeout > 0 {
		var cancel context.CancelFunc
		embedCtx, cancel = context.WithTimeout(ctx, r.cfg.EmbedTimeout)
		defer cancel()
	}

	res, err := r.embedder.Embed(embedCtx, variant)
	if err != nil {
		metrics.RetrieveBranchDropsTotal.WithLabelValues("embed_error").Inc()
		return nil, fmt.Errorf("embed variant: %w", err)
	}
	if similarity.IsDegenerate(res.Embedding) {
		metrics.RetrieveBranchDropsTotal.WithLabelValues("degenerate_query").Inc()
		return nil, fmt.Errorf("variant embedding: %w", domain.ErrDegenerateVector)
	}

	cs := Score(ctx, res.Embedding, items, variant, topK)
	return cs, nil
}

// Score ranks items with an embedding by cosine similarity to query and keeps
// the top k (score desc, id asc). Items that cannot be scored are skipped.
func Score(ctx context.Context, query []float32, items []item.Item, variant string, k int) []candidate.Candidate {
	log := logger.FromContext(ctx)
	cs := make([]candidate.Candidate, 0, len(items))

	for i := range items {
		it := &items[i]
		if !it.HasEmbedding() {
			log.Debug("Skipping item without embedding", zap.String("item_id", it.ID()))
			continue
		}
		s, err := similarity.Cosine(query, it.Embedding())
		if err != nil {
			reason := "dim_mismatch"
			if errors.Is(err, domain.ErrDegenerateVector) {
				reason = "degenerate"
			}
			metrics.RetrieveSkippedItemsTotal.WithLabelValues(reason).Inc()
			log.Debug("Skipping unscorable item", zap.String("item_id", it.ID()), zap.Error(err))
			continue
		}
		cs = append(cs, candidate.New(it.ID(), s, variant))
	}

	candidate.Sort(cs)
	if len(cs) > k {
		cs = cs[:k]
	}
	return cs
}
