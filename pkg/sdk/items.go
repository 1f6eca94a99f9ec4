package vidsearch

import (
	"context"
	"time"

	"github.com/kailas-cloud/vidsearch/internal/domain/item"
	"github.com/kailas-cloud/vidsearch/internal/usecase/catalog"
)

// PutItems embeds and stores items, overwriting existing ids.
// Items fail independently; results are index-aligned with items.
// progress, if non-nil, is called once per item as it completes,
// possibly from several goroutines.
func (c *Client) PutItems(ctx context.Context, items []Item, progress func(PutResult)) []PutResult {
	start := time.Now()

	drafts := make([]item.Draft, len(items))
	for i, it := range items {
		drafts[i] = item.Draft(it)
	}

	var onResult catalog.ProgressFunc
	if progress != nil {
		onResult = func(r catalog.Result) { progress(putResult(r)) }
	}

	results := c.catalogSvc.Ingest(ctx, drafts, onResult)

	out := make([]PutResult, len(results))
	var firstErr error
	for i, r := range results {
		out[i] = putResult(r)
		if firstErr == nil && r.Err != nil {
			firstErr = r.Err
		}
	}
	c.obs.observe("items.put", start, firstErr)
	return out
}

func putResult(r catalog.Result) PutResult {
	return PutResult{ID: r.ID, OK: r.OK(), Err: r.Err}
}
