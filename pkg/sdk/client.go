package vidsearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vidsearch/internal/db"
	dbBolt "github.com/kailas-cloud/vidsearch/internal/db/bolt"
	dbRedis "github.com/kailas-cloud/vidsearch/internal/db/redis"
	"github.com/kailas-cloud/vidsearch/internal/domain"
	domfb "github.com/kailas-cloud/vidsearch/internal/domain/feedback"
	"github.com/kailas-cloud/vidsearch/internal/domain/item"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/request"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/result"
	budgetrepo "github.com/kailas-cloud/vidsearch/internal/repository/budget"
	corpusrepo "github.com/kailas-cloud/vidsearch/internal/repository/corpus"
	"github.com/kailas-cloud/vidsearch/internal/repository/embcache"
	feedbackrepo "github.com/kailas-cloud/vidsearch/internal/repository/feedback"
	searchlogrepo "github.com/kailas-cloud/vidsearch/internal/repository/searchlog"
	openaiTransport "github.com/kailas-cloud/vidsearch/internal/transport/openai"
	"github.com/kailas-cloud/vidsearch/internal/usecase/aggregate"
	"github.com/kailas-cloud/vidsearch/internal/usecase/catalog"
	"github.com/kailas-cloud/vidsearch/internal/usecase/expand"
	feedbackuc "github.com/kailas-cloud/vidsearch/internal/usecase/feedback"
	healthuc "github.com/kailas-cloud/vidsearch/internal/usecase/health"
	"github.com/kailas-cloud/vidsearch/internal/usecase/provider"
	"github.com/kailas-cloud/vidsearch/internal/usecase/rerank"
	"github.com/kailas-cloud/vidsearch/internal/usecase/retrieve"
	searchuc "github.com/kailas-cloud/vidsearch/internal/usecase/search"
	"github.com/kailas-cloud/vidsearch/internal/usecase/trace"
	usageuc "github.com/kailas-cloud/vidsearch/internal/usecase/usage"
	"github.com/kailas-cloud/vidsearch/internal/workpool"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultEmbeddingModel   = "text-embedding-3-small"
	defaultGenerationModel  = "gpt-4o-mini"
	providerName            = "openai"
)

// Internal interfaces, swapped for fakes in tests.
type searchUseCase interface {
	Search(ctx context.Context, req request.Request) (result.Set, error)
}

type feedbackUseCase interface {
	Submit(ctx context.Context, searchID, userID string, helpful bool) (domfb.Record, error)
	List(ctx context.Context, searchID string) ([]domfb.Record, error)
}

type catalogUseCase interface {
	Ingest(ctx context.Context, drafts []item.Draft, progress catalog.ProgressFunc) []catalog.Result
}

// Client is the vidsearch SDK entry point.
type Client struct {
	store       db.Store
	pool        *ants.Pool
	tracer      *trace.Recorder
	searchSvc   searchUseCase
	feedbackSvc feedbackUseCase
	catalogSvc  catalogUseCase
	healthSvc   healthUseCase
	usageSvc    usageUseCase
	obs         *observer
}

// New creates a Client and connects to the database.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("vidsearch: database required (use WithValkey, WithRedis or WithBolt)")
	}
	if cfg.embedder == nil && cfg.apiKey == "" {
		return nil, errors.New("vidsearch: embedder required (use WithOpenAI or WithEmbedder)")
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("vidsearch: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}

	c, err := wireClient(ctx, store, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "valkey", "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:      cfg.addrs,
			Password:   cfg.password,
			Standalone: cfg.standalone,
		})
		if err != nil {
			return nil, fmt.Errorf("vidsearch: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	case "bolt":
		s, err := dbBolt.NewStore(dbBolt.Config{Path: cfg.boltPath})
		if err != nil {
			return nil, fmt.Errorf("vidsearch: create bolt store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("vidsearch: unknown driver %q", cfg.driver)
	}
}

func wireClient(ctx context.Context, store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pipeline := domain.DefaultPipelineConfig()
	if cfg.topK > 0 {
		pipeline.TopK = cfg.topK
	}
	if cfg.maxVariants > 0 {
		pipeline.MaxVariants = cfg.maxVariants
	}
	if cfg.poolSize > 0 {
		pipeline.PoolSize = cfg.poolSize
	}
	if cfg.searchLogTTL > 0 {
		pipeline.SearchLogTTL = cfg.searchLogTTL
	}
	if cfg.aggregation != "" {
		pipeline.Aggregation = cfg.aggregation
	}

	aggregateFn, err := aggregate.ByName(pipeline.Aggregation)
	if err != nil {
		return nil, fmt.Errorf("vidsearch: %w", err)
	}

	// Pass nil interfaces (not typed nil pointers) when unset.
	var (
		budgetChecker provider.BudgetChecker
		budgetReader  usageuc.BudgetReader
	)
	if cfg.dailyTokenLimit > 0 || cfg.monthlyTokenLimit > 0 {
		action := provider.BudgetActionWarn
		if cfg.rejectOverBudget {
			action = provider.BudgetActionReject
		}
		tracker := provider.NewBudgetTracker(
			providerName, cfg.dailyTokenLimit, cfg.monthlyTokenLimit, action, logger,
		).WithStore(ctx, budgetrepo.New(store, 48*time.Hour, 35*24*time.Hour))
		budgetChecker = tracker
		budgetReader = tracker
	}

	embedder, embedHealth := buildEmbedder(cfg, logger)
	embedModel := orDefault(cfg.embeddingModel, defaultEmbeddingModel)
	embedder = provider.NewInstrumentedEmbedder(
		embcache.New(embedder, store, embedModel, nil, logger),
		providerName, embedModel, budgetChecker, logger,
	)

	generator, genHealth := buildGenerator(cfg, logger)
	if generator != nil {
		generator = provider.NewInstrumentedGenerator(
			generator, providerName, orDefault(cfg.generationModel, defaultGenerationModel), budgetChecker, logger,
		)
	}

	pool, err := workpool.New(pipeline.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("vidsearch: create worker pool: %w", err)
	}

	var tracer *trace.Recorder
	if cfg.traceSpans && cfg.logger != nil {
		tracer = trace.NewRecorder(trace.NewLogSink(cfg.logger), 0, cfg.logger)
	}

	corpusRepo := corpusrepo.New(store)
	searchLog := searchlogrepo.New(store, pipeline.SearchLogTTL)

	searchSvc := searchuc.New(corpusRepo, searchuc.Stages{
		Expander: expand.New(generator, expand.Config{
			MaxVariants: pipeline.MaxVariants,
			Timeout:     pipeline.ExpandTimeout,
			Temperature: pipeline.ExpandTemp,
		}, logger),
		Retriever: retrieve.New(embedder, pool, retrieve.Config{
			TopK:         pipeline.TopK,
			EmbedTimeout: pipeline.EmbedTimeout,
		}, logger),
		Aggregate: aggregateFn,
		Reranker: rerank.New(generator, rerank.Config{
			Timeout:     pipeline.RerankTimeout,
			Temperature: pipeline.RerankTemp,
		}, logger),
	}, searchLog, tracer, logger)

	catalogSvc := catalog.New(corpusRepo, embedder, pool, logger)
	if cfg.maxBatchSize > 0 {
		catalogSvc = catalogSvc.WithMaxBatchSize(cfg.maxBatchSize)
	}

	return &Client{
		store:       store,
		pool:        pool,
		tracer:      tracer,
		searchSvc:   searchSvc,
		feedbackSvc: feedbackuc.New(feedbackrepo.New(store), searchLog, logger),
		catalogSvc:  catalogSvc,
		healthSvc:   healthuc.New(store, embedHealth, genHealth),
		usageSvc:    usageuc.New(budgetReader),
		obs:         obs,
	}, nil
}

// buildEmbedder returns the base embedder and, for the built-in driver, its health checker.
func buildEmbedder(cfg *clientConfig, logger *zap.Logger) (domain.Embedder, healthuc.ProviderChecker) {
	if cfg.embedder != nil {
		return &embedderAdapter{inner: cfg.embedder}, nil
	}
	e := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:   cfg.apiKey,
		BaseURL:  cfg.baseURL,
		Model:    orDefault(cfg.embeddingModel, defaultEmbeddingModel),
		Provider: providerName,
		Logger:   logger,
	})
	return e, e
}

// buildGenerator returns nil when no generator is configured.
func buildGenerator(cfg *clientConfig, logger *zap.Logger) (domain.Generator, healthuc.ProviderChecker) {
	if cfg.generator != nil {
		return &generatorAdapter{inner: cfg.generator}, nil
	}
	if cfg.apiKey == "" || cfg.noGeneration {
		return nil, nil
	}
	g := openaiTransport.NewGenerator(&openaiTransport.Config{
		APIKey:   cfg.apiKey,
		BaseURL:  cfg.baseURL,
		Model:    orDefault(cfg.generationModel, defaultGenerationModel),
		Provider: providerName,
		Logger:   logger,
	})
	return g, g
}

// Close releases all resources. Pending trace spans are flushed first.
func (c *Client) Close() {
	if c.tracer != nil {
		c.tracer.Close()
	}
	if c.pool != nil {
		c.pool.Release()
	}
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
