package search

import (
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vidsearch/internal/metrics"
)

// State is a pipeline step.
type State string

// Pipeline states. Failed is reached only when the corpus cannot be read.
const (
	StateIdle        State = "idle"
	StateExpanding   State = "expanding"
	StateRetrieving  State = "retrieving"
	StateAggregating State = "aggregating"
	StateReranking   State = "reranking"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Stage labels for pipeline metrics.
const (
	stageExpand    = "expand"
	stageCorpus    = "corpus"
	stageRetrieve  = "retrieve"
	stageAggregate = "aggregate"
	stageRerank    = "rerank"
)

type machine struct {
	state   State
	started time.Time
	logger  *zap.Logger
}

func newMachine(logger *zap.Logger) *machine {
	return &machine{state: StateIdle, started: time.Now(), logger: logger}
}

func (m *machine) to(next State) {
	m.logger.Debug("Search state changed",
		zap.String("from", string(m.state)),
		zap.String("to", string(next)),
		zap.Duration("elapsed", time.Since(m.started)),
	)
	m.state = next
}

func observe(stage string, start time.Time, outcome string) {
	metrics.StageTotal.WithLabelValues(stage, outcome).Inc()
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func outcomeOf(fallback bool) string {
	if fallback {
		return metrics.OutcomeFallback
	}
	return metrics.OutcomePrimary
}
