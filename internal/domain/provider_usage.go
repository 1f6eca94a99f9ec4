package domain

import (
	"context"
	"sync"
)

type providerUsageKey struct{}

// ProviderUsage collects token usage for a single search request.
// The handler puts a collector into the context before calling the service;
// the provider decorators write to it (concurrently, from the retriever fan-out);
// the handler reads it for response headers.
type ProviderUsage struct {
	mu     sync.Mutex
	tokens map[string]int
	calls  int
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *ProviderUsage) {
	u := &ProviderUsage{tokens: make(map[string]int)}
	return context.WithValue(ctx, providerUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *ProviderUsage {
	u, _ := ctx.Value(providerUsageKey{}).(*ProviderUsage)
	return u
}

// AddTokens records consumed tokens for an operation (embed, expand, rerank).
// A zero-token call still counts (cache hits).
func (u *ProviderUsage) AddTokens(operation string, n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.tokens[operation] += n
	u.calls++
	u.mu.Unlock()
}

// Tokens returns tokens consumed by one operation.
func (u *ProviderUsage) Tokens(operation string) int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.tokens[operation]
}

// TotalTokens returns tokens consumed across all operations.
func (u *ProviderUsage) TotalTokens() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	total := 0
	for _, n := range u.tokens {
		total += n
	}
	return total
}

// Used reports whether any provider call was made.
func (u *ProviderUsage) Used() bool {
	if u == nil {
		return false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls > 0
}
