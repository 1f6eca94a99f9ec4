package trace

import "time"

// Status is the lifecycle state of a span.
type Status string

// Span statuses.
const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Kind classifies what a span wraps.
type Kind string

// Span kinds.
const (
	KindChain     Kind = "chain"
	KindLLM       Kind = "llm"
	KindRetriever Kind = "retriever"
)

// Span is a structured record of one pipeline stage. It is written to the trace
// sink as JSON and never read back by the pipeline.
type Span struct {
	ID        string         `json:"id"`
	TraceID   string         `json:"trace_id"`
	ParentID  string         `json:"parent_id,omitempty"`
	Name      string         `json:"name"`
	Kind      Kind           `json:"kind"`
	Inputs    map[string]any `json:"inputs,omitempty"`
	Outputs   map[string]any `json:"outputs,omitempty"`
	Error     string         `json:"error,omitempty"`
	Status    Status         `json:"status"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   *time.Time     `json:"ended_at,omitempty"`
}

// Complete returns a completed copy of the span.
func (s Span) Complete(outputs map[string]any, at time.Time) Span {
	s.Outputs = outputs
	s.Status = StatusCompleted
	s.EndedAt = &at
	return s
}

// Fail returns a failed copy of the span.
func (s Span) Fail(err error, at time.Time) Span {
	if err != nil {
		s.Error = err.Error()
	}
	s.Status = StatusFailed
	s.EndedAt = &at
	return s
}

// Duration returns the span duration (zero while running).
func (s Span) Duration() time.Duration {
	if s.EndedAt == nil {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}
