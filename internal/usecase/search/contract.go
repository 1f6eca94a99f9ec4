package search

import (
	"context"

	"github.com/kailas-cloud/vidsearch/internal/domain/item"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/candidate"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/result"
	"github.com/kailas-cloud/vidsearch/internal/usecase/expand"
	"github.com/kailas-cloud/vidsearch/internal/usecase/rerank"
)

// Corpus reads a location-filtered snapshot of the corpus.
type Corpus interface {
	Fetch(ctx context.Context, location string) ([]item.Item, error)
}

// Expander turns the query into variants. It never fails.
type Expander interface {
	Expand(ctx context.Context, query string) expand.Expansion
}

// Retriever scores the snapshot against every variant.
type Retriever interface {
	Retrieve(ctx context.Context, variants []string, items []item.Item, topK int) ([][]candidate.Candidate, error)
}

// Reranker orders the aggregated pool. It never fails.
type Reranker interface {
	Rerank(ctx context.Context, query string, pool []rerank.Candidate) rerank.Outcome
}

// SearchLog remembers what a search showed so feedback can resolve it.
type SearchLog interface {
	Save(ctx context.Context, set *result.Set) error
}
