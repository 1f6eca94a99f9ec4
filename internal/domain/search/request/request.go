package request

import (
	"fmt"
	"strings"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 1024
	DefaultTopK    = 5
	MaxTopK        = 100
	DefaultLimit   = 5
	MaxLimit       = 50
)

// Request is a validated search query.
type Request struct {
	query    string
	location string
	topK     int
	limit    int
}

// New validates and normalizes search parameters.
// Defaults: topK=5 per variant, limit=5. Limit is independent of topK:
// the aggregated pool across variants may exceed topK.
func New(query, location string, topK, limit int) (Request, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Request{}, fmt.Errorf("query is required")
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if topK < 0 || limit < 0 {
		return Request{}, fmt.Errorf("top_k and limit must not be negative")
	}
	if topK == 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Request{
		query:    query,
		location: strings.TrimSpace(location),
		topK:     topK,
		limit:    limit,
	}, nil
}

// Query returns the original search query text.
func (r *Request) Query() string { return r.query }

// Location returns the location filter (empty = no filter).
func (r *Request) Location() string { return r.location }

// TopK returns the number of candidates kept per query variant.
func (r *Request) TopK() int { return r.topK }

// Limit returns the maximum results to return.
func (r *Request) Limit() int { return r.limit }
