// Package catalog embeds item drafts and writes them to the corpus.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vidsearch/internal/domain"
	"github.com/kailas-cloud/vidsearch/internal/domain/item"
	"github.com/kailas-cloud/vidsearch/internal/logger"
	"github.com/kailas-cloud/vidsearch/internal/workpool"
)

const (
	// MaxBatchSize is the maximum number of drafts per Ingest call.
	MaxBatchSize = 1000
	// WriteBatchSize is the number of embedded items stored per PutMany call.
	WriteBatchSize = 100
)

// Result is the per-draft outcome of an ingest.
type Result struct {
	ID  string
	Err error
}

// OK reports whether the draft was stored.
func (r Result) OK() bool { return r.Err == nil }

// ProgressFunc is called once per finished draft. Calls may be concurrent.
type ProgressFunc func(r Result)

// Service ingests drafts with per-item error reporting.
type Service struct {
	writer       Writer
	embed        domain.Embedder
	pool         workpool.Pool
	logger       *zap.Logger
	now            func() time.Time
	maxBatchSize   int
	writeBatchSize int
}

// New creates a catalog service.
func New(writer Writer, embed domain.Embedder, pool workpool.Pool, logger *zap.Logger) *Service {
	return &Service{
		writer:       writer,
		embed:        embed,
		pool:         pool,
		logger:       logger,
		now:            time.Now,
		maxBatchSize:   MaxBatchSize,
		writeBatchSize: WriteBatchSize,
	}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// WithWriteBatchSize configures how many items go into one PutMany call.
func (s *Service) WithWriteBatchSize(size int) *Service {
	if size > 0 {
		s.writeBatchSize = size
	}
	return s
}

// Ingest validates and embeds every draft concurrently, then stores the
// embedded items in PutMany batches. Results are index-aligned with drafts.
// A failed draft never aborts the batch, except that an exhausted provider
// quota fails the drafts that have not started yet.
func (s *Service) Ingest(ctx context.Context, drafts []item.Draft, progress ProgressFunc) []Result {
	results := make([]Result, len(drafts))
	log := logger.FromContextOr(ctx, s.logger)

	if len(drafts) > s.maxBatchSize {
		for i := range drafts {
			results[i] = Result{
				ID:  drafts[i].ID,
				Err: fmt.Errorf("batch size exceeds %d: %w", s.maxBatchSize, domain.ErrInvalidItem),
			}
		}
		return results
	}

	var (
		wg        sync.WaitGroup
		exhausted atomic.Bool
		seen      = make(map[string]struct{}, len(drafts))
		built     = make([]*item.Item, len(drafts))
	)
	finish := func(i int, err error) {
		results[i] = Result{ID: drafts[i].ID, Err: err}
		if progress != nil {
			progress(results[i])
		}
	}

	for i := range drafts {
		if _, dup := seen[drafts[i].ID]; dup && drafts[i].ID != "" {
			finish(i, fmt.Errorf("duplicate id %q in batch: %w", drafts[i].ID, domain.ErrInvalidItem))
			continue
		}
		seen[drafts[i].ID] = struct{}{}

		wg.Add(1)
		err := workpool.Submit(ctx, s.pool, func() {
			defer wg.Done()
			if exhausted.Load() {
				finish(i, fmt.Errorf("skipped: %w", domain.ErrProviderQuotaExceeded))
				return
			}
			it, err := s.prepare(ctx, &drafts[i])
			if err != nil {
				if errors.Is(err, domain.ErrProviderQuotaExceeded) {
					exhausted.Store(true)
				}
				finish(i, err)
				return
			}
			built[i] = it
		})
		if err != nil {
			wg.Done()
			finish(i, fmt.Errorf("submit: %w", err))
		}
	}
	wg.Wait()
	s.write(ctx, built, finish)

	failed := 0
	for i := range results {
		if results[i].Err != nil {
			failed++
		}
	}
	log.Info("Catalog ingest finished",
		zap.Int("total", len(drafts)),
		zap.Int("failed", failed),
	)
	return results
}

// write stores the prepared items in chunks. When a chunk fails, its items are
// retried one by one so a single bad item does not fail its neighbours.
func (s *Service) write(ctx context.Context, built []*item.Item, finish func(int, error)) {
	var idx []int
	for i, it := range built {
		if it != nil {
			idx = append(idx, i)
		}
	}
	log := logger.FromContextOr(ctx, s.logger)

	for start := 0; start < len(idx); start += s.writeBatchSize {
		chunk := idx[start:min(start+s.writeBatchSize, len(idx))]
		if err := ctx.Err(); err != nil {
			for _, i := range chunk {
				finish(i, err)
			}
			continue
		}

		items := make([]item.Item, len(chunk))
		for j, i := range chunk {
			items[j] = *built[i]
		}
		err := s.writer.PutMany(ctx, items)
		if err == nil {
			for _, i := range chunk {
				finish(i, nil)
			}
			continue
		}

		log.Warn("Batch write failed, retrying items individually",
			zap.Int("items", len(chunk)),
			zap.Error(err),
		)
		for _, i := range chunk {
			if err := s.writer.Put(ctx, built[i]); err != nil {
				finish(i, fmt.Errorf("put: %w", err))
				continue
			}
			finish(i, nil)
		}
	}
}

// prepare validates and embeds one draft.
func (s *Service) prepare(ctx context.Context, d *item.Draft) (*item.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := item.New(*d, nil, s.now()); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidItem, err)
	}

	emb, err := s.embed.Embed(ctx, item.EmbeddingText(*d))
	if err != nil {
		return nil, fmt.Errorf("vectorize: %w", err)
	}
	if len(emb.Embedding) == 0 {
		return nil, fmt.Errorf("vectorize: empty embedding: %w", domain.ErrEmbeddingProviderError)
	}

	it, err := item.New(*d, emb.Embedding, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidItem, err)
	}
	return &it, nil
}
