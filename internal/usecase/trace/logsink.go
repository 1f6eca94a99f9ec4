package trace

import (
	"context"

	"go.uber.org/zap"

	domtrace "github.com/kailas-cloud/vidsearch/internal/domain/trace"
)

// LogSink writes span records to the logger at debug level.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a log sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Write logs one span record.
func (s *LogSink) Write(_ context.Context, span domtrace.Span) error {
	fields := []zap.Field{
		zap.String("span_id", span.ID),
		zap.String("trace_id", span.TraceID),
		zap.String("kind", string(span.Kind)),
		zap.String("status", string(span.Status)),
	}
	if span.ParentID != "" {
		fields = append(fields, zap.String("parent_id", span.ParentID))
	}
	if span.EndedAt != nil {
		fields = append(fields, zap.Duration("duration", span.Duration()))
	}
	if span.Error != "" {
		fields = append(fields, zap.String("error", span.Error))
	}
	if len(span.Outputs) > 0 {
		fields = append(fields, zap.Any("outputs", span.Outputs))
	}
	s.logger.Debug(span.Name, fields...)
	return nil
}
