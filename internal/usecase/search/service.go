// Package search runs the query pipeline: expand, retrieve, aggregate, rerank.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vidsearch/internal/domain"
	"github.com/kailas-cloud/vidsearch/internal/domain/item"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/candidate"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/request"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/result"
	domtrace "github.com/kailas-cloud/vidsearch/internal/domain/trace"
	"github.com/kailas-cloud/vidsearch/internal/logger"
	"github.com/kailas-cloud/vidsearch/internal/metrics"
	"github.com/kailas-cloud/vidsearch/internal/usecase/aggregate"
	"github.com/kailas-cloud/vidsearch/internal/usecase/rerank"
	"github.com/kailas-cloud/vidsearch/internal/usecase/trace"
)

// Span names written to the trace sink.
const (
	SpanSearch   = "video_semantic_search"
	SpanExpand   = "generate_search_variations"
	SpanRetrieve = "vector_search"
	SpanRerank   = "rank_results"
)

// Stages are the pluggable pipeline steps.
type Stages struct {
	Expander  Expander
	Retriever Retriever
	Aggregate aggregate.Func // nil means aggregate.Max
	Reranker  Reranker
}

// Service handles semantic video search.
type Service struct {
	corpus    Corpus
	stages    Stages
	searchLog SearchLog
	tracer    *trace.Recorder
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a search service. searchLog and tracer may be nil.
func New(corpus Corpus, stages Stages, searchLog SearchLog, tracer *trace.Recorder, logger *zap.Logger) *Service {
	if stages.Aggregate == nil {
		stages.Aggregate = aggregate.Max
	}
	return &Service{
		corpus:    corpus,
		stages:    stages,
		searchLog: searchLog,
		tracer:    tracer,
		logger:    logger,
		now:       time.Now,
	}
}

// Search runs the pipeline for one request. Stage failures degrade to their
// fallback and are reported in the set; only a corpus read failure or a done
// ctx fails the call. The limit is applied after reranking.
func (s *Service) Search(ctx context.Context, req request.Request) (result.Set, error) {
	if strings.TrimSpace(req.Query()) == "" {
		return result.Set{}, fmt.Errorf("%w: query is required", domain.ErrInvalidQuery)
	}

	searchID := uuid.NewString()
	log := logger.FromContextOr(ctx, s.logger).With(zap.String("search_id", searchID))
	sm := newMachine(log)

	ctx, root := s.tracer.Start(ctx, SpanSearch, domtrace.KindChain, map[string]any{
		"search_id": searchID,
		"query":     req.Query(),
		"location":  req.Location(),
		"limit":     req.Limit(),
	})

	var fallbacks []string

	// Expand
	sm.to(StateExpanding)
	variants, expandFallback := s.expand(ctx, req.Query())
	if expandFallback {
		fallbacks = append(fallbacks, result.StageExpand)
	}
	if err := ctx.Err(); err != nil {
		return s.cancelled(root, err)
	}

	// Corpus snapshot, read once for every branch.
	sm.to(StateRetrieving)
	start := time.Now()
	items, err := s.corpus.Fetch(ctx, req.Location())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return s.cancelled(root, ctxErr)
		}
		observe(stageCorpus, start, metrics.OutcomeError)
		sm.to(StateFailed)
		root.Fail(err)
		log.Error("Corpus fetch failed", zap.Error(err))
		return result.Set{}, fmt.Errorf("%w: %w", domain.ErrCorpusUnavailable, err)
	}
	observe(stageCorpus, start, metrics.OutcomePrimary)

	lists, err := s.retrieve(ctx, variants, items, req.TopK())
	if err != nil {
		return s.cancelled(root, err)
	}

	sm.to(StateAggregating)
	start = time.Now()
	pool := s.stages.Aggregate(lists)
	observe(stageAggregate, start, metrics.OutcomePrimary)

	var ranked []string
	if len(pool) > 0 {
		sm.to(StateReranking)
		var rerankFallback bool
		ranked, rerankFallback = s.rerank(ctx, req.Query(), pool, items)
		if rerankFallback {
			fallbacks = append(fallbacks, result.StageRerank)
		}
		if err := ctx.Err(); err != nil {
			return s.cancelled(root, err)
		}
	}

	set := result.NewSet(
		searchID, req.Query(), req.Location(),
		assemble(ranked, pool, items, req.Limit()),
		fallbacks, s.now().UTC(),
	)
	sm.to(StateDone)

	s.save(ctx, log, &set)
	root.End(map[string]any{
		"item_ids":  set.IDs(),
		"fallbacks": fallbacks,
		"pool":      len(pool),
	})

	log.Info("Search completed",
		zap.Int("variants", len(variants)),
		zap.Int("corpus", len(items)),
		zap.Int("pool", len(pool)),
		zap.Int("results", set.Len()),
		zap.Strings("fallbacks", fallbacks),
	)
	return set, nil
}

func (s *Service) expand(ctx context.Context, query string) ([]string, bool) {
	start := time.Now()
	spanCtx, span := s.tracer.Start(ctx, SpanExpand, domtrace.KindLLM, map[string]any{"query": query})

	exp := s.stages.Expander.Expand(spanCtx, query)

	observe(stageExpand, start, outcomeOf(exp.Fallback))
	if exp.Fallback {
		span.Fail(fmt.Errorf("fallback: %s", exp.Reason))
	} else {
		span.End(map[string]any{"variants": exp.Variants})
	}
	return exp.Variants, exp.Fallback
}

func (s *Service) retrieve(
	ctx context.Context, variants []string, items []item.Item, topK int,
) ([][]candidate.Candidate, error) {
	start := time.Now()
	spanCtx, span := s.tracer.Start(ctx, SpanRetrieve, domtrace.KindRetriever, map[string]any{
		"variants": variants,
		"corpus":   len(items),
		"top_k":    topK,
	})

	lists, err := s.stages.Retriever.Retrieve(spanCtx, variants, items, topK)
	if err != nil {
		observe(stageRetrieve, start, metrics.OutcomeError)
		span.Fail(err)
		return nil, err
	}

	hits := make([]int, len(lists))
	for i, l := range lists {
		hits[i] = len(l)
	}
	observe(stageRetrieve, start, metrics.OutcomePrimary)
	span.End(map[string]any{"hits": hits})
	return lists, nil
}

func (s *Service) rerank(
	ctx context.Context, query string, pool []candidate.Candidate, items []item.Item,
) ([]string, bool) {
	byID := index(items)
	rc := make([]rerank.Candidate, len(pool))
	for i, c := range pool {
		rc[i] = rerank.Candidate{Candidate: c}
		if it, ok := byID[c.ID()]; ok {
			rc[i].Title = it.Title()
			rc[i].Description = it.Description()
			rc[i].Location = it.Location()
		}
	}

	start := time.Now()
	spanCtx, span := s.tracer.Start(ctx, SpanRerank, domtrace.KindLLM, map[string]any{
		"query": query,
		"pool":  candidate.IDs(pool),
	})

	out := s.stages.Reranker.Rerank(spanCtx, query, rc)

	observe(stageRerank, start, outcomeOf(out.Fallback))
	if out.Fallback {
		span.Fail(fmt.Errorf("fallback: %s", out.Reason))
	} else {
		span.End(map[string]any{"ranked_ids": out.IDs})
	}
	return out.IDs, out.Fallback
}

func (s *Service) save(ctx context.Context, log *zap.Logger, set *result.Set) {
	if s.searchLog == nil {
		return
	}
	if err := s.searchLog.Save(ctx, set); err != nil {
		log.Warn("Search log save failed", zap.Error(err))
	}
}

func (s *Service) cancelled(root *trace.Handle, err error) (result.Set, error) {
	root.Fail(err)
	return result.Set{}, err
}

// assemble truncates the ranked ids to limit and attaches item metadata and
// the aggregated score.
func assemble(ranked []string, pool []candidate.Candidate, items []item.Item, limit int) []result.Result {
	scores := make(map[string]float64, len(pool))
	for i := range pool {
		scores[pool[i].ID()] = pool[i].Score()
	}
	byID := index(items)

	out := make([]result.Result, 0, min(limit, len(ranked)))
	for _, id := range ranked {
		if len(out) == limit {
			break
		}
		it, ok := byID[id]
		if !ok {
			continue
		}
		out = append(out, result.New(
			id, scores[id], it.Title(), it.Description(), it.Location(), it.ThumbnailURL(), it.VideoURL(),
		))
	}
	return out
}

func index(items []item.Item) map[string]*item.Item {
	m := make(map[string]*item.Item, len(items))
	for i := range items {
		m[items[i].ID()] = &items[i]
	}
	return m
}
