package usage

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/vidsearch/internal/domain/usage"
)

// Service handles usage reporting.
type Service struct {
	br  BudgetReader
	now func() time.Time
}

// New creates a Service. br can be nil (unlimited mode).
func New(br BudgetReader) *Service {
	return &Service{br: br, now: time.Now}
}

// GetReport builds a usage report for the given period. Anything but
// PeriodMonth reports the current day.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	now := s.now().UTC()
	var start, end time.Time
	switch period {
	case domusage.PeriodMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
	default:
		period = domusage.PeriodDay
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		end = start.Add(24 * time.Hour)
	}

	if s.br == nil {
		b := domusage.NewBudget(0, 0, -1, end.UnixMilli())
		return domusage.NewReport(period, start.UnixMilli(), end.UnixMilli(), "", b)
	}
	snap := s.br.Snapshot(period)
	b := domusage.NewBudget(snap.TokensLimit(), snap.TokensUsed(), snap.TokensRemaining(), end.UnixMilli()).
		WithOperations(snap.TokensByOperation())
	return domusage.NewReport(period, start.UnixMilli(), end.UnixMilli(), s.br.Provider(), b)
}
