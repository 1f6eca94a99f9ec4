package vidsearch

import "github.com/kailas-cloud/vidsearch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrInvalidQuery           = domain.ErrInvalidQuery
	ErrInvalidFeedback        = domain.ErrInvalidFeedback
	ErrInvalidItem            = domain.ErrInvalidItem
	ErrCorpusUnavailable      = domain.ErrCorpusUnavailable
	ErrFeedbackStore          = domain.ErrFeedbackStore
	ErrProviderQuotaExceeded  = domain.ErrProviderQuotaExceeded
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
)
