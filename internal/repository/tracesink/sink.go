package tracesink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/vidsearch/internal/domain"
	"github.com/kailas-cloud/vidsearch/internal/domain/trace"
)

// DefaultStreamKey is the capped stream span records are appended to.
var DefaultStreamKey = domain.KeyPrefix + "traces"

// store is the consumer interface for the trace stream (ISP).
type store interface {
	XAdd(ctx context.Context, key string, maxLen int64, fields map[string]string) error
}

// StreamSink appends span records to a capped stream.
type StreamSink struct {
	store  store
	key    string
	maxLen int64
}

// NewStreamSink creates a stream sink. An empty key uses DefaultStreamKey.
func NewStreamSink(s store, key string, maxLen int64) *StreamSink {
	if key == "" {
		key = DefaultStreamKey
	}
	return &StreamSink{store: s, key: key, maxLen: maxLen}
}

// Write appends one span record.
func (s *StreamSink) Write(ctx context.Context, span trace.Span) error {
	data, err := json.Marshal(span)
	if err != nil {
		return fmt.Errorf("marshal span: %w", err)
	}
	fields := map[string]string{
		"name": span.Name,
		"span": string(data),
	}
	if err := s.store.XAdd(ctx, s.key, s.maxLen, fields); err != nil {
		return fmt.Errorf("xadd %s: %w", s.key, err)
	}
	return nil
}
