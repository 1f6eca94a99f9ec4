// Package trace records pipeline spans off the request path.
package trace

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domtrace "github.com/kailas-cloud/vidsearch/internal/domain/trace"
	"github.com/kailas-cloud/vidsearch/internal/metrics"
)

const (
	defaultBufferSize = 256
	writeTimeout      = 2 * time.Second
)

// Sink persists span records.
type Sink interface {
	Write(ctx context.Context, span domtrace.Span) error
}

type spanKey struct{}

// Recorder buffers span records and hands them to the sink from a single
// background goroutine. A nil *Recorder is valid and records nothing.
type Recorder struct {
	sink   Sink
	logger *zap.Logger
	now    func() time.Time

	mu     sync.RWMutex
	closed bool
	ch     chan domtrace.Span
	done   chan struct{}
}

// NewRecorder starts the background writer. bufferSize <= 0 uses 256.
func NewRecorder(sink Sink, bufferSize int, logger *zap.Logger) *Recorder {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	r := &Recorder{
		sink:   sink,
		logger: logger,
		now:    time.Now,
		ch:     make(chan domtrace.Span, bufferSize),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// Start opens a span. The returned context carries it, so spans started from
// that context become its children. A running record is emitted immediately.
func (r *Recorder) Start(
	ctx context.Context, name string, kind domtrace.Kind, inputs map[string]any,
) (context.Context, *Handle) {
	if r == nil {
		return ctx, nil
	}

	span := domtrace.Span{
		ID:        uuid.NewString(),
		Name:      name,
		Kind:      kind,
		Inputs:    inputs,
		Status:    domtrace.StatusRunning,
		StartedAt: r.now().UTC(),
	}
	if parent, ok := ctx.Value(spanKey{}).(domtrace.Span); ok {
		span.TraceID = parent.TraceID
		span.ParentID = parent.ID
	} else {
		span.TraceID = span.ID
	}

	r.emit(span)
	return context.WithValue(ctx, spanKey{}, span), &Handle{rec: r, span: span}
}

// Close stops accepting records and waits for the buffer to drain.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.ch)
	r.mu.Unlock()
	<-r.done
}

func (r *Recorder) emit(span domtrace.Span) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		metrics.TraceDroppedTotal.Inc()
		return
	}
	select {
	case r.ch <- span:
	default:
		metrics.TraceDroppedTotal.Inc()
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for span := range r.ch {
		r.write(span)
	}
}

func (r *Recorder) write(span domtrace.Span) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := r.sink.Write(ctx, span); err != nil {
		metrics.TraceSinkErrorsTotal.Inc()
		r.logger.Debug("Trace sink write failed",
			zap.String("span", span.Name),
			zap.String("trace_id", span.TraceID),
			zap.Error(err),
		)
	}
}

// Handle closes one span. Only the first End or Fail counts.
// A nil *Handle is valid.
type Handle struct {
	rec  *Recorder
	span domtrace.Span
	once sync.Once
}

// TraceID returns the trace the span belongs to.
func (h *Handle) TraceID() string {
	if h == nil {
		return ""
	}
	return h.span.TraceID
}

// End completes the span.
func (h *Handle) End(outputs map[string]any) {
	if h == nil {
		return
	}
	h.once.Do(func() {
		h.rec.emit(h.span.Complete(outputs, h.rec.now().UTC()))
	})
}

// Fail marks the span failed.
func (h *Handle) Fail(err error) {
	if h == nil {
		return
	}
	h.once.Do(func() {
		h.rec.emit(h.span.Fail(err, h.rec.now().UTC()))
	})
}
