package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidQuery signals a rejected search request.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidFeedback signals a rejected feedback submission.
	ErrInvalidFeedback = errors.New("invalid feedback")
	// ErrInvalidItem signals a corpus item that failed validation.
	ErrInvalidItem = errors.New("invalid item")
	// ErrCorpusUnavailable signals that the corpus could not be read at all.
	ErrCorpusUnavailable = errors.New("corpus unavailable")
	// ErrFeedbackStore signals a failed feedback append.
	ErrFeedbackStore = errors.New("feedback store unavailable")

	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrDegenerateVector signals a zero-magnitude vector.
	ErrDegenerateVector = errors.New("degenerate vector")

	// ErrProviderQuotaExceeded signals an exhausted token budget.
	ErrProviderQuotaExceeded = errors.New("provider quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerativeProviderError signals a chat-completion provider failure.
	ErrGenerativeProviderError = errors.New("generative provider error")
	// ErrMalformedResponse signals a provider payload that does not match the expected shape.
	ErrMalformedResponse = errors.New("malformed provider response")
)

// MalformedResponseError wraps ErrMalformedResponse with the stage and the offending payload.
type MalformedResponseError struct {
	Stage   string
	Reason  string
	Payload string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrMalformedResponse.Error(), e.Stage, e.Reason)
}

func (e *MalformedResponseError) Unwrap() error { return ErrMalformedResponse }

// NewMalformedResponse creates a malformed response error.
// Payload is truncated so it can be logged safely.
func NewMalformedResponse(stage, reason, payload string) error {
	const maxPayload = 512
	if len(payload) > maxPayload {
		payload = payload[:maxPayload]
	}
	return &MalformedResponseError{Stage: stage, Reason: reason, Payload: payload}
}
