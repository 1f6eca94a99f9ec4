package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vidsearch/internal/domain"
	domusage "github.com/kailas-cloud/vidsearch/internal/domain/usage"
)

// BudgetAction defines behavior when token budget is exceeded.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning but allows the request.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject blocks the request.
	BudgetActionReject BudgetAction = "reject"
)

// BudgetStore persists window totals so restarts and sibling processes
// charge the same counters.
type BudgetStore interface {
	Add(ctx context.Context, provider string, period domusage.Period, at time.Time, tokens int64) (int64, error)
	Load(ctx context.Context, provider string, period domusage.Period, at time.Time) (int64, error)
}

const storeTimeout = 2 * time.Second

// window is one budget period: a cap, the tokens spent since start and the
// share of that spend per operation.
type window struct {
	period domusage.Period
	limit  int64
	used   int64
	byOp   map[string]int64
	start  time.Time
	warned bool
}

func newWindow(period domusage.Period, limit int64, now time.Time) *window {
	return &window{period: period, limit: limit, byOp: map[string]int64{}, start: periodStart(period, now)}
}

// roll starts a fresh window once now has moved past the current one.
func (w *window) roll(now time.Time) {
	start := periodStart(w.period, now)
	if !start.After(w.start) {
		return
	}
	w.start = start
	w.used = 0
	w.byOp = map[string]int64{}
	w.warned = false
}

func (w *window) spent() bool { return w.limit > 0 && w.used >= w.limit }

func (w *window) remaining() int64 {
	if w.limit == 0 {
		return -1
	}
	return max(w.limit-w.used, 0)
}

func (w *window) end() time.Time {
	if w.period == domusage.PeriodMonth {
		return w.start.AddDate(0, 1, 0)
	}
	return w.start.AddDate(0, 0, 1)
}

func periodStart(period domusage.Period, t time.Time) time.Time {
	t = t.UTC()
	if period == domusage.PeriodMonth {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// BudgetTracker enforces one token budget per provider. Embedding, query
// expansion and reranking all draw from the same daily and monthly windows,
// so a search that spends the budget on reranking blocks the next embedding.
//
// Check is in-memory only. Record charges memory first, then writes through
// to the store and adopts the store total when another process spent more.
type BudgetTracker struct {
	mu       sync.Mutex
	provider string
	action   BudgetAction
	day      *window
	month    *window
	store    BudgetStore
	now      func() time.Time
	logger   *zap.Logger
}

// NewBudgetTracker creates a tracker. A zero limit leaves that window uncapped.
func NewBudgetTracker(
	provider string, dailyLimit, monthlyLimit int64,
	action BudgetAction, logger *zap.Logger,
) *BudgetTracker {
	now := time.Now()
	return &BudgetTracker{
		provider: provider,
		action:   action,
		day:      newWindow(domusage.PeriodDay, dailyLimit, now),
		month:    newWindow(domusage.PeriodMonth, monthlyLimit, now),
		now:      time.Now,
		logger:   logger,
	}
}

// WithStore attaches a persistence store and loads the current window totals.
// A failed load starts the window from zero.
func (b *BudgetTracker) WithStore(ctx context.Context, store BudgetStore) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store = store
	now := b.now()
	for _, w := range b.windows() {
		w.roll(now)
		used, err := store.Load(ctx, b.provider, w.period, now)
		if err != nil {
			b.logger.Warn("Failed to load token budget",
				zap.String("provider", b.provider),
				zap.String("period", string(w.period)),
				zap.Error(err),
			)
			continue
		}
		w.used = used
	}
	b.logger.Info("Token budget loaded",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.day.used),
		zap.Int64("monthly_used", b.month.used),
	)
	return b
}

func (b *BudgetTracker) windows() [2]*window { return [2]*window{b.day, b.month} }

// Check reports whether operation may call the provider. With the reject
// action a spent window returns ErrProviderQuotaExceeded; with warn the call
// goes through and the first overrun per window is logged.
func (b *BudgetTracker) Check(_ context.Context, operation string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	for _, w := range b.windows() {
		w.roll(now)
		if !w.spent() {
			continue
		}
		if b.action == BudgetActionReject {
			return fmt.Errorf("%s: %s budget spent (%d of %d tokens): %w",
				operation, w.period, w.used, w.limit, domain.ErrProviderQuotaExceeded)
		}
		if !w.warned {
			w.warned = true
			b.logger.Warn("Token budget exceeded",
				zap.String("provider", b.provider),
				zap.String("period", string(w.period)),
				zap.String("operation", operation),
				zap.Int64("used", w.used),
				zap.Int64("limit", w.limit),
			)
		}
	}
	return nil
}

// Record charges tokens spent by operation to both windows.
func (b *BudgetTracker) Record(operation string, tokens int64) {
	if tokens <= 0 {
		return
	}
	b.mu.Lock()
	now := b.now()
	for _, w := range b.windows() {
		w.roll(now)
		w.used += tokens
		w.byOp[operation] += tokens
	}
	store := b.store
	b.mu.Unlock()

	if store == nil {
		return
	}

	// The caller's context may already be done; the charge must still land.
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	for _, period := range []domusage.Period{domusage.PeriodDay, domusage.PeriodMonth} {
		total, err := store.Add(ctx, b.provider, period, now, tokens)
		if err != nil {
			b.logger.Warn("Failed to persist token budget",
				zap.String("provider", b.provider),
				zap.String("period", string(period)),
				zap.Error(err),
			)
			continue
		}
		b.adopt(period, now, total)
	}
}

// adopt raises the in-memory total to the store total, unless the window
// rolled over since the charge.
func (b *BudgetTracker) adopt(period domusage.Period, at time.Time, total int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w := b.day
	if period == domusage.PeriodMonth {
		w = b.month
	}
	if w.start.Equal(periodStart(period, at)) && total > w.used {
		w.used = total
	}
}

// Snapshot returns the window for period; anything but PeriodMonth is the day.
func (b *BudgetTracker) Snapshot(period domusage.Period) domusage.Budget {
	b.mu.Lock()
	defer b.mu.Unlock()

	w := b.day
	if period == domusage.PeriodMonth {
		w = b.month
	}
	w.roll(b.now())
	return domusage.NewBudget(w.limit, w.used, w.remaining(), w.end().UnixMilli()).
		WithOperations(w.byOp)
}

// Provider returns the provider name the budget is tracked for.
func (b *BudgetTracker) Provider() string { return b.provider }
