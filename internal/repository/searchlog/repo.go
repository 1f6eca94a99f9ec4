package searchlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/vidsearch/internal/db"
	"github.com/kailas-cloud/vidsearch/internal/domain"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/result"
)

var searchKeyPrefix = domain.KeyPrefix + "search:"

// Entry is what a completed search showed to the user.
type Entry struct {
	SearchID  string    `json:"search_id"`
	Query     string    `json:"query"`
	Location  string    `json:"location,omitempty"`
	ItemIDs   []string  `json:"item_ids"`
	Fallbacks []string  `json:"fallbacks,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// store is the consumer interface for the search log (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Repo keeps short-lived snapshots of served result sets.
type Repo struct {
	store store
	ttl   time.Duration
}

// New creates a search log repository. Entries expire after ttl.
func New(s store, ttl time.Duration) *Repo {
	return &Repo{store: s, ttl: ttl}
}

// Save stores the snapshot of a result set.
func (r *Repo) Save(ctx context.Context, set *result.Set) error {
	ids := set.IDs()
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(Entry{
		SearchID:  set.SearchID(),
		Query:     set.Query(),
		Location:  set.Location(),
		ItemIDs:   ids,
		Fallbacks: set.Fallbacks(),
		CreatedAt: set.CreatedAt().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal search log: %w", err)
	}

	key := searchKey(set.SearchID())
	if err := r.store.SetWithTTL(ctx, key, data, r.ttl); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Get returns the snapshot for a search, or domain.ErrNotFound when missing or expired.
func (r *Repo) Get(ctx context.Context, searchID string) (Entry, error) {
	key := searchKey(searchID)
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return Entry{}, domain.ErrNotFound
		}
		return Entry{}, fmt.Errorf("get %s: %w", key, err)
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return e, nil
}

// ItemIDs returns the ids a search showed, in ranked order.
func (r *Repo) ItemIDs(ctx context.Context, searchID string) ([]string, error) {
	e, err := r.Get(ctx, searchID)
	if err != nil {
		return nil, err
	}
	return e.ItemIDs, nil
}

func searchKey(searchID string) string {
	return searchKeyPrefix + searchID
}
