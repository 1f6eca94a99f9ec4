package usage

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// Budget is the token budget state for a period. Every operation that calls
// the provider draws from the same budget; byOperation splits tokensUsed.
type Budget struct {
	tokensLimit     int64
	tokensUsed      int64
	tokensRemaining int64
	resetsAt        int64
	byOperation     map[string]int64
}

// NewBudget creates a budget snapshot. limit 0 means unlimited.
func NewBudget(limit, used, remaining, resetsAt int64) Budget {
	return Budget{tokensLimit: limit, tokensUsed: used, tokensRemaining: remaining, resetsAt: resetsAt}
}

// WithOperations returns a copy of b carrying the per-operation split.
func (b Budget) WithOperations(byOp map[string]int64) Budget {
	b.byOperation = make(map[string]int64, len(byOp))
	for op, n := range byOp {
		b.byOperation[op] = n
	}
	return b
}

// TokensByOperation returns tokens used per operation (embed, expand, rerank).
// It may sum to less than TokensUsed when part of the spend was loaded from
// the store, which keeps totals only.
func (b Budget) TokensByOperation() map[string]int64 {
	out := make(map[string]int64, len(b.byOperation))
	for op, n := range b.byOperation {
		out[op] = n
	}
	return out
}

// TokensLimit returns the cap (0 = unlimited).
func (b Budget) TokensLimit() int64 { return b.tokensLimit }

// TokensUsed returns tokens consumed in the period.
func (b Budget) TokensUsed() int64 { return b.tokensUsed }

// TokensRemaining returns tokens left (-1 = unlimited).
func (b Budget) TokensRemaining() int64 { return b.tokensRemaining }

// ResetsAt returns the period end (unix millis).
func (b Budget) ResetsAt() int64 { return b.resetsAt }

// IsExhausted reports whether a capped budget has no tokens left.
func (b Budget) IsExhausted() bool { return b.tokensLimit > 0 && b.tokensRemaining <= 0 }

// Report is a provider usage report for a time period.
type Report struct {
	period      Period
	periodStart int64
	periodEnd   int64
	provider    string
	budget      Budget
}

// NewReport creates a usage report.
func NewReport(period Period, start, end int64, provider string, b Budget) Report {
	return Report{
		period:      period,
		periodStart: start,
		periodEnd:   end,
		provider:    provider,
		budget:      b,
	}
}

// Period returns the aggregation granularity.
func (r *Report) Period() Period { return r.period }

// PeriodStart returns the period start timestamp (unix millis).
func (r *Report) PeriodStart() int64 { return r.periodStart }

// PeriodEnd returns the period end timestamp (unix millis).
func (r *Report) PeriodEnd() int64 { return r.periodEnd }

// Provider returns the provider the budget applies to.
func (r *Report) Provider() string { return r.provider }

// Budget returns the budget status.
func (r *Report) Budget() Budget { return r.budget }
