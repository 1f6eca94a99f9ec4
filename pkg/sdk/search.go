package vidsearch

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/vidsearch/internal/domain"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/request"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/result"
)

// Search runs the semantic search pipeline for a free-text query.
// Provider failures degrade the search and are listed in Fallbacks;
// only an unreadable corpus or a cancelled ctx return an error.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) (_ SearchResponse, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	req, err := request.New(query, opts.Location, opts.TopK, opts.Limit)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}

	set, err := c.searchSvc.Search(ctx, req)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("search: %w", err)
	}
	return setToResponse(&set), nil
}

func setToResponse(set *result.Set) SearchResponse {
	results := set.Results()
	out := make([]SearchResult, len(results))
	for i := range results {
		r := &results[i]
		out[i] = SearchResult{
			ID:           r.ID(),
			Score:        r.Score(),
			Title:        r.Title(),
			Description:  r.Description(),
			Location:     r.Location(),
			ThumbnailURL: r.ThumbnailURL(),
			VideoURL:     r.VideoURL(),
		}
	}
	return SearchResponse{
		SearchID:  set.SearchID(),
		Query:     set.Query(),
		Location:  set.Location(),
		Results:   out,
		Fallbacks: set.Fallbacks(),
		CreatedAt: set.CreatedAt(),
	}
}
