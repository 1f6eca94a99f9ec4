package feedback

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/vidsearch/internal/db"
	"github.com/kailas-cloud/vidsearch/internal/domain"
	domfb "github.com/kailas-cloud/vidsearch/internal/domain/feedback"
)

// The {feedback} hash tag keeps every feedback list in one cluster slot,
// which MULTI/EXEC requires.
var (
	feedbackKeyPrefix = domain.KeyPrefix + "{feedback}:"
	allFeedbackKey    = feedbackKeyPrefix + "all"
)

// store is the consumer interface for feedback (ISP).
type store interface {
	RPushAtomic(ctx context.Context, pushes []db.ListPush) error
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
}

// Repo is an append-only feedback log.
type Repo struct {
	store store
}

// New creates a feedback repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Append stores a record on the per-search list and the global list in one
// transaction, so the two lists never disagree.
func (r *Repo) Append(ctx context.Context, rec *domfb.Record) error {
	data, err := json.Marshal(toDTO(rec))
	if err != nil {
		return fmt.Errorf("marshal feedback: %w", err)
	}

	key := searchKey(rec.SearchID())
	err = r.store.RPushAtomic(ctx, []db.ListPush{
		{Key: key, Values: [][]byte{data}},
		{Key: allFeedbackKey, Values: [][]byte{data}},
	})
	if err != nil {
		return fmt.Errorf("append %s: %w", key, err)
	}
	return nil
}

// List returns the records for one search in append order.
func (r *Repo) List(ctx context.Context, searchID string) ([]domfb.Record, error) {
	key := searchKey(searchID)
	raw, err := r.store.LRange(ctx, key, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", key, err)
	}

	out := make([]domfb.Record, 0, len(raw))
	for i, b := range raw {
		var d recordDTO
		if err := json.Unmarshal(b, &d); err != nil {
			return nil, fmt.Errorf("decode %s[%d]: %w", key, i, err)
		}
		out = append(out, d.toDomain())
	}
	return out, nil
}

func searchKey(searchID string) string {
	return feedbackKeyPrefix + searchID
}
