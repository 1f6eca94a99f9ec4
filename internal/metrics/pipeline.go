package metrics

import "github.com/prometheus/client_golang/prometheus"

// Stage outcomes.
const (
	OutcomePrimary  = "primary"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)

// Search pipeline metrics.
var (
	StageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vidsearch",
			Name:      "pipeline_stage_total",
			Help:      "Pipeline stage completions by outcome",
		},
		[]string{"stage", "outcome"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vidsearch",
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	RetrieveBranchDropsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vidsearch",
			Name:      "retrieve_branch_drops_total",
			Help:      "Retrieval branches dropped before scoring",
		},
		[]string{"reason"},
	)

	RetrieveSkippedItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vidsearch",
			Name:      "retrieve_skipped_items_total",
			Help:      "Corpus items skipped during scoring",
		},
		[]string{"reason"},
	)

	TraceDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vidsearch",
			Name:      "trace_spans_dropped_total",
			Help:      "Span records dropped because the buffer was full",
		},
	)

	TraceSinkErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vidsearch",
			Name:      "trace_sink_errors_total",
			Help:      "Span records the sink failed to write",
		},
	)

	FeedbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vidsearch",
			Name:      "feedback_total",
			Help:      "Feedback records appended",
		},
		[]string{"helpful"},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers search pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(StageTotal)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(RetrieveBranchDropsTotal)
	prometheus.MustRegister(RetrieveSkippedItemsTotal)
	prometheus.MustRegister(TraceDroppedTotal)
	prometheus.MustRegister(TraceSinkErrorsTotal)
	prometheus.MustRegister(FeedbackTotal)
	pipelineMetricsRegistered = true
}
