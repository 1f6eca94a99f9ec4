package vidsearch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver     string // "valkey", "redis" or "bolt"
	addrs      []string
	password   string
	standalone bool
	boltPath   string

	apiKey          string
	baseURL         string
	embeddingModel  string
	generationModel string

	embedder     Embedder
	generator    Generator
	noGeneration bool

	aggregation  string
	topK         int
	maxVariants  int
	poolSize     int
	searchLogTTL time.Duration
	maxBatchSize int

	dailyTokenLimit   int64
	monthlyTokenLimit int64
	rejectOverBudget  bool

	logger     *zap.Logger
	metricsReg prometheus.Registerer
	traceSpans bool
}

// WithValkey configures the client to connect to a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithBolt stores everything in a single local bbolt file.
// Suited to single-node deployments and the operator CLI.
func WithBolt(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "bolt"
		c.boltPath = path
	})
}

// WithStandalone disables cluster topology discovery.
// Use for standalone Valkey/Redis instances (not managed by cluster operator).
func WithStandalone() Option {
	return optionFunc(func(c *clientConfig) {
		c.standalone = true
	})
}

// WithOpenAI configures an OpenAI-compatible provider for both embeddings and
// chat completions. An empty baseURL uses the OpenAI API.
func WithOpenAI(apiKey, baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = apiKey
		c.baseURL = baseURL
	})
}

// WithModels overrides the embedding and generation model names.
// Defaults: text-embedding-3-small, gpt-4o-mini.
func WithModels(embedding, generation string) Option {
	return optionFunc(func(c *clientConfig) {
		c.embeddingModel = embedding
		c.generationModel = generation
	})
}

// WithEmbedder sets a custom embedding provider. It takes precedence over WithOpenAI.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithGenerator sets a custom chat-completion provider. It takes precedence over WithOpenAI.
// Without any generator, expansion and reranking always fall back.
func WithGenerator(g Generator) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = g
	})
}

// WithoutGeneration disables the chat provider configured by WithOpenAI,
// so every search reports the expand and rerank fallbacks.
func WithoutGeneration() Option {
	return optionFunc(func(c *clientConfig) {
		c.noGeneration = true
	})
}

// WithAggregation selects how variant result lists are merged: "max" (default) or "rrf".
func WithAggregation(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.aggregation = name
	})
}

// WithPipeline tunes the per-variant top-K, the variant cap and the fan-out pool size.
// Zero keeps the default.
func WithPipeline(topK, maxVariants, poolSize int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = topK
		c.maxVariants = maxVariants
		c.poolSize = poolSize
	})
}

// WithSearchLogTTL sets how long shown results are kept for feedback. Default: 7 days.
func WithSearchLogTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.searchLogTTL = ttl
	})
}

// WithMaxBatchSize sets the maximum number of items per PutItems call.
// Default: 1000.
func WithMaxBatchSize(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxBatchSize = size
	})
}

// WithBudget limits provider tokens per day and per month (0 = unlimited).
// With reject set, an exhausted budget fails provider calls instead of warning.
func WithBudget(daily, monthly int64, reject bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.dailyTokenLimit = daily
		c.monthlyTokenLimit = monthly
		c.rejectOverBudget = reject
	})
}

// WithLogger enables structured logging for SDK operations and the pipeline.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithTracing logs pipeline spans at debug level through the configured logger.
func WithTracing() Option {
	return optionFunc(func(c *clientConfig) {
		c.traceSpans = true
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
