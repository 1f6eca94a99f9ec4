// Package budget persists token budget counters, one per provider and period.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/vidsearch/internal/db"
	"github.com/kailas-cloud/vidsearch/internal/domain"
	domusage "github.com/kailas-cloud/vidsearch/internal/domain/usage"
)

// store is the consumer interface for budget operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrByTTL(ctx context.Context, key string, val int64, ttl time.Duration) (int64, error)
}

// Store keeps one counter per provider and period window. Counters expire on
// their own some time after the window closes.
type Store struct {
	store    store
	dailyTTL time.Duration
	monthTTL time.Duration
}

// New creates a budget store. The TTLs must outlast their window: dailyTTL
// more than a day, monthTTL more than a month.
func New(s store, dailyTTL, monthTTL time.Duration) *Store {
	return &Store{store: s, dailyTTL: dailyTTL, monthTTL: monthTTL}
}

// Add charges tokens to the window of period containing at and returns the
// window total, including spend recorded by other processes.
func (s *Store) Add(
	ctx context.Context, provider string, period domusage.Period, at time.Time, tokens int64,
) (int64, error) {
	key := Key(provider, period, at)
	total, err := s.store.IncrByTTL(ctx, key, tokens, s.ttl(period))
	if err != nil {
		return 0, fmt.Errorf("add to %s: %w", key, err)
	}
	return total, nil
}

// Load returns the window total for period containing at, or 0 if nothing
// was charged yet.
func (s *Store) Load(ctx context.Context, provider string, period domusage.Period, at time.Time) (int64, error) {
	key := Key(provider, period, at)
	data, err := s.store.Get(ctx, key)
	if errors.Is(err, db.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", key, err)
	}
	total, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("load %s: not a counter: %w", key, err)
	}
	return total, nil
}

func (s *Store) ttl(period domusage.Period) time.Duration {
	if period == domusage.PeriodMonth {
		return s.monthTTL
	}
	return s.dailyTTL
}

// Key names the counter, e.g. vidsearch:budget:openai:daily:2026-05-01 or
// vidsearch:budget:openai:monthly:2026-05.
func Key(provider string, period domusage.Period, at time.Time) string {
	at = at.UTC()
	if period == domusage.PeriodMonth {
		return fmt.Sprintf("%sbudget:%s:monthly:%s", domain.KeyPrefix, provider, at.Format("2006-01"))
	}
	return fmt.Sprintf("%sbudget:%s:daily:%s", domain.KeyPrefix, provider, at.Format("2006-01-02"))
}
