package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vidsearch/internal/config"
	"github.com/kailas-cloud/vidsearch/internal/db"
	dbBolt "github.com/kailas-cloud/vidsearch/internal/db/bolt"
	dbRedis "github.com/kailas-cloud/vidsearch/internal/db/redis"
	"github.com/kailas-cloud/vidsearch/internal/domain"
	logpkg "github.com/kailas-cloud/vidsearch/internal/logger"
	"github.com/kailas-cloud/vidsearch/internal/metrics"
	budgetrepo "github.com/kailas-cloud/vidsearch/internal/repository/budget"
	corpusrepo "github.com/kailas-cloud/vidsearch/internal/repository/corpus"
	"github.com/kailas-cloud/vidsearch/internal/repository/embcache"
	feedbackrepo "github.com/kailas-cloud/vidsearch/internal/repository/feedback"
	searchlogrepo "github.com/kailas-cloud/vidsearch/internal/repository/searchlog"
	"github.com/kailas-cloud/vidsearch/internal/repository/tracesink"
	chiTransport "github.com/kailas-cloud/vidsearch/internal/transport/chi"
	"github.com/kailas-cloud/vidsearch/internal/transport/langchain"
	openaiTransport "github.com/kailas-cloud/vidsearch/internal/transport/openai"
	"github.com/kailas-cloud/vidsearch/internal/usecase/aggregate"
	"github.com/kailas-cloud/vidsearch/internal/usecase/expand"
	feedbackuc "github.com/kailas-cloud/vidsearch/internal/usecase/feedback"
	healthuc "github.com/kailas-cloud/vidsearch/internal/usecase/health"
	"github.com/kailas-cloud/vidsearch/internal/usecase/provider"
	"github.com/kailas-cloud/vidsearch/internal/usecase/rerank"
	"github.com/kailas-cloud/vidsearch/internal/usecase/retrieve"
	searchuc "github.com/kailas-cloud/vidsearch/internal/usecase/search"
	"github.com/kailas-cloud/vidsearch/internal/usecase/trace"
	usageuc "github.com/kailas-cloud/vidsearch/internal/usecase/usage"
	"github.com/kailas-cloud/vidsearch/internal/version"
	"github.com/kailas-cloud/vidsearch/internal/workpool"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(logpkg.Options{
		Env:    env,
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting vidsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("generation_driver", cfg.Generation.Driver),
	)

	store, err := newStore(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterProviderMetrics()
	metrics.RegisterPipelineMetrics()
	metrics.RegisterHTTPMetrics()

	// Single BudgetTracker shared by the embedder, the generator and the usage service.
	budget := buildBudget(ctx, &cfg, store, logger)

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	var budgetChecker provider.BudgetChecker
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetChecker = budget
		budgetReader = budget
	}

	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	embedder := buildEmbedder(&cfg, baseEmbedder, store, budgetChecker, logger)

	generator, generatorHealth, err := buildGenerator(&cfg, budgetChecker, logger)
	if err != nil {
		logger.Fatal("Failed to create generator", zap.Error(err))
	}
	logger.Info("Providers created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.String("generation_model", cfg.Generation.Model),
	)

	pipeline := cfg.Pipeline()

	pool, err := workpool.New(pipeline.PoolSize)
	if err != nil {
		logger.Fatal("Failed to create worker pool", zap.Error(err))
	}
	defer pool.Release()

	aggregateFn, err := aggregate.ByName(pipeline.Aggregation)
	if err != nil {
		logger.Fatal("Invalid aggregation", zap.Error(err))
	}

	var tracer *trace.Recorder
	if cfg.Trace.Enabled {
		sink := tracesink.NewStreamSink(store, cfg.Trace.StreamKey, cfg.Trace.MaxLen)
		tracer = trace.NewRecorder(sink, cfg.Trace.BufferSize, logger)
		defer tracer.Close()
	}

	// Repositories
	corpusRepo := corpusrepo.New(store)
	searchLog := searchlogrepo.New(store, pipeline.SearchLogTTL)
	feedbackRepo := feedbackrepo.New(store)

	// Use case services
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
	feedbackSvc := feedbackuc.New(feedbackRepo, searchLog, logger)
	usageSvc := usageuc.New(budgetReader)
	healthSvc := healthuc.New(store, baseEmbedder, generatorHealth)

	// Create chi server
	server := chiTransport.NewServer(searchSvc, feedbackSvc, usageSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func newStore(cfg config.DatabaseConfig) (db.Store, error) {
	switch cfg.Driver {
	case config.DriverValkey, config.DriverRedis:
		return dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
		})
	case config.DriverBolt:
		return dbBolt.NewStore(dbBolt.Config{Path: cfg.Path})
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func buildBudget(ctx context.Context, cfg *config.Config, store db.Store, logger *zap.Logger) *provider.BudgetTracker {
	b := cfg.Embedding.Budget
	if b.DailyTokenLimit <= 0 && b.MonthlyTokenLimit <= 0 {
		return nil
	}

	action := provider.BudgetActionWarn
	if b.Action == string(provider.BudgetActionReject) {
		action = provider.BudgetActionReject
	}
	tracker := provider.NewBudgetTracker(
		cfg.Embedding.Provider, b.DailyTokenLimit, b.MonthlyTokenLimit, action, logger,
	)

	// Connect persistence store, loads current counters from DB.
	budgetStore := budgetrepo.New(store,
		time.Duration(cfg.Storage.BudgetDailyTTLDays)*24*time.Hour,
		time.Duration(cfg.Storage.BudgetMonthTTLDays)*24*time.Hour,
	)
	return tracker.WithStore(ctx, budgetStore)
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
func buildEmbedder(
	cfg *config.Config,
	base domain.Embedder,
	store db.Store,
	budget provider.BudgetChecker,
	logger *zap.Logger,
) domain.Embedder {
	embedder := base
	if cfg.Storage.EmbeddingCache {
		embedder = embcache.New(base, store, cfg.Embedding.Model, metrics.EmbeddingCacheTotal, logger)
	}

	// Instrumented (budget + usage); cache hits record zero tokens.
	return provider.NewInstrumentedEmbedder(
		embedder, cfg.Embedding.Provider, cfg.Embedding.Model, budget, logger,
	)
}

// buildGenerator selects the generation driver and wraps it with budget enforcement.
// The returned checker is nil when the driver has no health endpoint.
func buildGenerator(
	cfg *config.Config, budget provider.BudgetChecker, logger *zap.Logger,
) (domain.Generator, healthuc.ProviderChecker, error) {
	var (
		inner  domain.Generator
		health healthuc.ProviderChecker
	)

	switch cfg.Generation.Driver {
	case config.GenerationLangchain:
		g, err := langchain.NewGenerator(&langchain.Config{
			APIKey:   cfg.Generation.APIKey,
			BaseURL:  cfg.Generation.BaseURL,
			Model:    cfg.Generation.Model,
			Provider: cfg.Embedding.Provider,
			Logger:   logger,
		})
		if err != nil {
			return nil, nil, err
		}
		inner = g
	default:
		g := openaiTransport.NewGenerator(&openaiTransport.Config{
			APIKey:   cfg.Generation.APIKey,
			BaseURL:  cfg.Generation.BaseURL,
			Model:    cfg.Generation.Model,
			Provider: cfg.Embedding.Provider,
			Logger:   logger,
		})
		inner = g
		health = g
	}

	gen := provider.NewInstrumentedGenerator(inner, cfg.Embedding.Provider, cfg.Generation.Model, budget, logger)
	return gen, health, nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorResponseCodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request. Cancelled searches write no
			// body, so status 0 means the client went away.
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.String("provider_tokens", ww.Header().Get("X-Provider-Tokens")),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
