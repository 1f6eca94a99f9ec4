package corpus

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vidsearch/internal/db"
	"github.com/kailas-cloud/vidsearch/internal/domain"
	"github.com/kailas-cloud/vidsearch/internal/domain/item"
	"github.com/kailas-cloud/vidsearch/internal/logger"
)

var itemKeyPrefix = domain.KeyPrefix + "item:"

// store is the consumer interface for the corpus (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo reads and seeds the video corpus.
type Repo struct {
	store store
}

// New creates a corpus repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Fetch returns every item, or only items in location when it is non-empty.
// Order is unspecified.
func (r *Repo) Fetch(ctx context.Context, location string) ([]item.Item, error) {
	keys, err := r.store.Scan(ctx, itemKeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan corpus: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}

	log := logger.FromContext(ctx)
	items := make([]item.Item, 0, len(keys))
	for i, m := range hashes {
		// Deleted between SCAN and HGETALL.
		if len(m) == 0 {
			continue
		}
		id := strings.TrimPrefix(keys[i], itemKeyPrefix)
		it, embErr := parseHashFields(id, m)
		if embErr != nil {
			log.Warn("Ignoring undecodable item embedding", zap.String("item_id", id), zap.Error(embErr))
		}
		if !it.MatchesLocation(location) {
			continue
		}
		items = append(items, it)
	}
	return items, nil
}

// Put stores or replaces one item.
func (r *Repo) Put(ctx context.Context, it *item.Item) error {
	key := itemKey(it.ID())
	if err := r.store.HSet(ctx, key, buildHashFields(it)); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// PutMany stores items in one pipelined round-trip.
func (r *Repo) PutMany(ctx context.Context, items []item.Item) error {
	if len(items) == 0 {
		return nil
	}
	batch := make([]db.HashSetItem, len(items))
	for i := range items {
		batch[i] = db.HashSetItem{Key: itemKey(items[i].ID()), Fields: buildHashFields(&items[i])}
	}
	if err := r.store.HSetMulti(ctx, batch); err != nil {
		return fmt.Errorf("hset %d items: %w", len(items), err)
	}
	return nil
}

func itemKey(id string) string {
	return itemKeyPrefix + id
}
