package vidsearch

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/vidsearch/internal/domain/usage"
)

// UsagePeriod is the aggregation granularity for usage reports.
type UsagePeriod string

// UsagePeriod constants.
const (
	PeriodDay   UsagePeriod = "day"
	PeriodMonth UsagePeriod = "month"
)

// UsageReport is the provider token budget for a period.
type UsageReport struct {
	Period      UsagePeriod
	Provider    string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Budget      BudgetStatus
}

// BudgetStatus tracks token quota state. TokensRemaining is -1 without a budget.
// Embedding, expansion and reranking share the budget; TokensByOperation splits
// the spend this process has recorded.
type BudgetStatus struct {
	TokensLimit       int64
	TokensUsed        int64
	TokensRemaining   int64
	TokensByOperation map[string]int64
	IsExhausted       bool
	ResetsAt          time.Time
}

// Usage returns the budget report for the given period.
// Observer always records success: the report is built in memory.
func (c *Client) Usage(ctx context.Context, period UsagePeriod) UsageReport {
	start := time.Now()
	defer func() { c.obs.observe("usage", start, nil) }()

	report := c.usageSvc.GetReport(ctx, domusage.Period(period))
	b := report.Budget()

	return UsageReport{
		Period:      UsagePeriod(report.Period()),
		Provider:    report.Provider(),
		PeriodStart: time.UnixMilli(report.PeriodStart()).UTC(),
		PeriodEnd:   time.UnixMilli(report.PeriodEnd()).UTC(),
		Budget: BudgetStatus{
			TokensLimit:       b.TokensLimit(),
			TokensUsed:        b.TokensUsed(),
			TokensRemaining:   b.TokensRemaining(),
			TokensByOperation: b.TokensByOperation(),
			IsExhausted:       b.IsExhausted(),
			ResetsAt:          time.UnixMilli(b.ResetsAt()).UTC(),
		},
	}
}

// usageUseCase is the internal interface for usage reports.
type usageUseCase interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}
