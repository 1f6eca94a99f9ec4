package domain

import "time"

// PipelineConfig holds pipeline tuning that is not exposed to API clients.
type PipelineConfig struct {
	TopK          int
	MaxVariants   int
	ExpandTimeout time.Duration
	EmbedTimeout  time.Duration
	RerankTimeout time.Duration
	ExpandTemp    float32
	RerankTemp    float32
	PoolSize      int
	SearchLogTTL  time.Duration
	Aggregation   string
}

// DefaultPipelineConfig returns the reference tuning: top-5 per variant,
// at most four variants, bounded provider calls.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		TopK:          5,
		MaxVariants:   4,
		ExpandTimeout: 20 * time.Second,
		EmbedTimeout:  15 * time.Second,
		RerankTimeout: 30 * time.Second,
		ExpandTemp:    0.7,
		RerankTemp:    0.3,
		PoolSize:      8,
		SearchLogTTL:  7 * 24 * time.Hour,
		Aggregation:   "max",
	}
}
