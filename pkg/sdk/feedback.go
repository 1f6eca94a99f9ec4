package vidsearch

import (
	"context"
	"fmt"
	"time"

	domfb "github.com/kailas-cloud/vidsearch/internal/domain/feedback"
)

// SubmitFeedback records whether a search was helpful. The shown item ids are
// attached when the search is still in the search log.
func (c *Client) SubmitFeedback(ctx context.Context, searchID, userID string, helpful bool) (_ Feedback, err error) {
	start := time.Now()
	defer func() { c.obs.observe("feedback.submit", start, err) }()

	rec, err := c.feedbackSvc.Submit(ctx, searchID, userID, helpful)
	if err != nil {
		return Feedback{}, fmt.Errorf("submit feedback: %w", err)
	}
	return feedbackFromDomain(&rec), nil
}

// Feedback lists the feedback recorded for a search, oldest first.
func (c *Client) Feedback(ctx context.Context, searchID string) (_ []Feedback, err error) {
	start := time.Now()
	defer func() { c.obs.observe("feedback.list", start, err) }()

	recs, err := c.feedbackSvc.List(ctx, searchID)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	out := make([]Feedback, len(recs))
	for i := range recs {
		out[i] = feedbackFromDomain(&recs[i])
	}
	return out, nil
}

func feedbackFromDomain(rec *domfb.Record) Feedback {
	return Feedback{
		ID:        rec.ID(),
		SearchID:  rec.SearchID(),
		UserID:    rec.UserID(),
		Helpful:   rec.Helpful(),
		ItemIDs:   rec.ItemIDs(),
		CreatedAt: rec.CreatedAt(),
	}
}
