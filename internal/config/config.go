package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/vidsearch/internal/domain"
)

// Database drivers.
const (
	DriverValkey = "valkey"
	DriverRedis  = "redis"
	DriverBolt   = "bolt"
)

// Generation drivers.
const (
	GenerationOpenAI    = "openai"
	GenerationLangchain = "langchain"
)

// Config holds the vidsearch configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Search     SearchConfig     `yaml:"search"`
	Trace      TraceConfig      `yaml:"trace"`
	Storage    StorageConfig    `yaml:"storage"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (default: determined by env)
	Format string `yaml:"format"` // json, console (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, bolt (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	Path             string   `yaml:"path"` // bolt only
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// BudgetConfig holds token budget settings shared by embedding and generation.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// EmbeddingConfig holds the embedding provider settings.
type EmbeddingConfig struct {
	Provider   string       `yaml:"provider"`
	APIKey     string       `yaml:"api_key"`
	BaseURL    string       `yaml:"base_url"`
	Model      string       `yaml:"model"`
	Dimensions int          `yaml:"dimensions"`
	Budget     BudgetConfig `yaml:"budget"`
}

// GenerationConfig holds the generative model settings. Empty credentials
// fall back to the embedding provider's.
type GenerationConfig struct {
	Driver  string `yaml:"driver"` // openai, langchain (default: openai)
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// SearchConfig holds pipeline tuning.
type SearchConfig struct {
	TopK              int      `yaml:"top_k"`
	MaxVariants       int      `yaml:"max_variants"`
	Aggregation       string   `yaml:"aggregation"` // max, rrf
	ExpandTimeoutSec  int      `yaml:"expand_timeout_sec"`
	EmbedTimeoutSec   int      `yaml:"embed_timeout_sec"`
	RerankTimeoutSec  int      `yaml:"rerank_timeout_sec"`
	ExpandTemperature *float32 `yaml:"expand_temperature"` // nil = default; 0 is valid
	RerankTemperature *float32 `yaml:"rerank_temperature"`
	PoolSize          int      `yaml:"pool_size"`
	SearchLogTTLHours int      `yaml:"search_log_ttl_hours"`
}

// TraceConfig holds span recording settings.
type TraceConfig struct {
	Enabled    bool   `yaml:"enabled"`
	StreamKey  string `yaml:"stream_key"`
	MaxLen     int64  `yaml:"max_len"`
	BufferSize int    `yaml:"buffer_size"`
}

// StorageConfig holds cache and counter retention settings.
type StorageConfig struct {
	EmbeddingCache     bool `yaml:"embedding_cache"`
	BudgetDailyTTLDays int  `yaml:"budget_daily_ttl_days"`
	BudgetMonthTTLDays int  `yaml:"budget_month_ttl_days"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory is loaded first when present.
func Load(env string) (Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands env variables in data, decodes it, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads variables from path without overriding the environment.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	// Rerank alone may take 30s.
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 90
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverValkey
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Generation.Driver == "" {
		c.Generation.Driver = GenerationOpenAI
	}
	if c.Generation.Model == "" {
		c.Generation.Model = "gpt-4o-mini"
	}
	if c.Generation.APIKey == "" {
		c.Generation.APIKey = c.Embedding.APIKey
	}
	if c.Generation.BaseURL == "" {
		c.Generation.BaseURL = c.Embedding.BaseURL
	}

	c.applySearchDefaults()

	// Unset ${API_KEY} entries expand to "".
	keys := c.Auth.APIKeys[:0]
	for _, k := range c.Auth.APIKeys {
		if k != "" {
			keys = append(keys, k)
		}
	}
	c.Auth.APIKeys = keys

	if c.Trace.BufferSize <= 0 {
		c.Trace.BufferSize = 256
	}
	if c.Trace.MaxLen <= 0 {
		c.Trace.MaxLen = 10000
	}
	if c.Storage.BudgetDailyTTLDays <= 0 {
		c.Storage.BudgetDailyTTLDays = 2
	}
	if c.Storage.BudgetMonthTTLDays <= 0 {
		c.Storage.BudgetMonthTTLDays = 35
	}
}

func (c *Config) applySearchDefaults() {
	def := domain.DefaultPipelineConfig()
	s := &c.Search
	if s.TopK <= 0 {
		s.TopK = def.TopK
	}
	if s.MaxVariants <= 0 {
		s.MaxVariants = def.MaxVariants
	}
	if s.Aggregation == "" {
		s.Aggregation = def.Aggregation
	}
	if s.ExpandTimeoutSec <= 0 {
		s.ExpandTimeoutSec = int(def.ExpandTimeout / time.Second)
	}
	if s.EmbedTimeoutSec <= 0 {
		s.EmbedTimeoutSec = int(def.EmbedTimeout / time.Second)
	}
	if s.RerankTimeoutSec <= 0 {
		s.RerankTimeoutSec = int(def.RerankTimeout / time.Second)
	}
	if s.ExpandTemperature == nil {
		s.ExpandTemperature = &def.ExpandTemp
	}
	if s.RerankTemperature == nil {
		s.RerankTemperature = &def.RerankTemp
	}
	if s.PoolSize <= 0 {
		s.PoolSize = def.PoolSize
	}
	if s.SearchLogTTLHours <= 0 {
		s.SearchLogTTLHours = int(def.SearchLogTTL / time.Hour)
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Database.Driver {
	case DriverValkey, DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case DriverBolt:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for driver %q", DriverBolt)
		}
	default:
		return fmt.Errorf("database.driver must be valkey, redis or bolt, got %q", c.Database.Driver)
	}

	switch c.Embedding.Budget.Action {
	case "", "warn", "reject":
	default:
		return fmt.Errorf(
			"embedding.budget.action must be \"warn\" or \"reject\", got %q",
			c.Embedding.Budget.Action,
		)
	}

	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	switch c.Generation.Driver {
	case GenerationOpenAI, GenerationLangchain:
	default:
		return fmt.Errorf("generation.driver must be openai or langchain, got %q", c.Generation.Driver)
	}

	switch c.Search.Aggregation {
	case "max", "rrf":
	default:
		return fmt.Errorf("search.aggregation must be max or rrf, got %q", c.Search.Aggregation)
	}

	for name, t := range map[string]*float32{
		"search.expand_temperature": c.Search.ExpandTemperature,
		"search.rerank_temperature": c.Search.RerankTemperature,
	} {
		if t != nil && (*t < 0 || *t > 2) {
			return fmt.Errorf("%s must be between 0 and 2, got %v", name, *t)
		}
	}

	return nil
}

// Pipeline converts the search section into pipeline tuning.
func (c *Config) Pipeline() domain.PipelineConfig {
	s := c.Search
	def := domain.DefaultPipelineConfig()
	return domain.PipelineConfig{
		TopK:          s.TopK,
		MaxVariants:   s.MaxVariants,
		ExpandTimeout: time.Duration(s.ExpandTimeoutSec) * time.Second,
		EmbedTimeout:  time.Duration(s.EmbedTimeoutSec) * time.Second,
		RerankTimeout: time.Duration(s.RerankTimeoutSec) * time.Second,
		ExpandTemp:    valueOr(s.ExpandTemperature, def.ExpandTemp),
		RerankTemp:    valueOr(s.RerankTemperature, def.RerankTemp),
		PoolSize:      s.PoolSize,
		SearchLogTTL:  time.Duration(s.SearchLogTTLHours) * time.Hour,
		Aggregation:   s.Aggregation,
	}
}

func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
