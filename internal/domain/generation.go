package domain

import "context"

// Generator is the chat-completion contract used by query expansion and reranking.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error)
}

// GenerationRequest is a single system+user prompt.
// JSON asks the provider to constrain output to a JSON object.
type GenerationRequest struct {
	Operation   string
	System      string
	User        string
	Temperature float32
	JSON        bool
}

// GenerationResult carries the raw completion text and token usage.
type GenerationResult struct {
	Content      string
	PromptTokens int
	TotalTokens  int
}
