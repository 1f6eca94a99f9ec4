package usage

import domusage "github.com/kailas-cloud/vidsearch/internal/domain/usage"

// BudgetReader provides read-only access to token budget state.
type BudgetReader interface {
	Provider() string
	Snapshot(period domusage.Period) domusage.Budget
}
