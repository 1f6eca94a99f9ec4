package vidsearch

import (
	"context"
	"strings"

	domfb "github.com/kailas-cloud/vidsearch/internal/domain/feedback"
	"github.com/kailas-cloud/vidsearch/internal/domain/item"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/request"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/result"
	"github.com/kailas-cloud/vidsearch/internal/usecase/catalog"
)

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn func(ctx context.Context, req request.Request) (result.Set, error)
}

func (m *mockSearchUC) Search(ctx context.Context, req request.Request) (result.Set, error) {
	return m.searchFn(ctx, req)
}

// --- feedbackUseCase mock ---

type mockFeedbackUC struct {
	submitFn func(ctx context.Context, searchID, userID string, helpful bool) (domfb.Record, error)
	listFn   func(ctx context.Context, searchID string) ([]domfb.Record, error)
}

func (m *mockFeedbackUC) Submit(ctx context.Context, searchID, userID string, helpful bool) (domfb.Record, error) {
	return m.submitFn(ctx, searchID, userID, helpful)
}

func (m *mockFeedbackUC) List(ctx context.Context, searchID string) ([]domfb.Record, error) {
	return m.listFn(ctx, searchID)
}

// --- catalogUseCase mock ---

type mockCatalogUC struct {
	ingestFn func(ctx context.Context, drafts []item.Draft, progress catalog.ProgressFunc) []catalog.Result
}

func (m *mockCatalogUC) Ingest(ctx context.Context, drafts []item.Draft, progress catalog.ProgressFunc) []catalog.Result {
	return m.ingestFn(ctx, drafts, progress)
}

// --- providers ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

type mockGenerator struct {
	fn func(ctx context.Context, system, user string) (GenerationResult, error)
}

func (m *mockGenerator) Generate(
	ctx context.Context, system, user string, _ float32, _ bool,
) (GenerationResult, error) {
	return m.fn(ctx, system, user)
}

// keywordEmbedder maps text onto one axis per keyword, so cosine scores are predictable.
func keywordEmbedder(keywords ...string) *mockEmbedder {
	return &mockEmbedder{fn: func(_ context.Context, text string) (EmbeddingResult, error) {
		lower := strings.ToLower(text)
		vec := make([]float32, len(keywords))
		for i, k := range keywords {
			if strings.Contains(lower, k) {
				vec[i] = 1
			}
		}
		return EmbeddingResult{Embedding: vec, PromptTokens: 3, TotalTokens: 3}, nil
	}}
}

// --- helpers ---

func testClient(searchSvc searchUseCase, feedbackSvc feedbackUseCase, catalogSvc catalogUseCase) *Client {
	return &Client{
		searchSvc:   searchSvc,
		feedbackSvc: feedbackSvc,
		catalogSvc:  catalogSvc,
	}
}
