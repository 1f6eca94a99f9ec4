package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/vidsearch/internal/config"
	"github.com/kailas-cloud/vidsearch/internal/logger"
	"github.com/kailas-cloud/vidsearch/internal/version"
	vidsearch "github.com/kailas-cloud/vidsearch/pkg/sdk"
)

var (
	envFile    string
	boltPath   string
	valkeyAddr string
	dbPassword string
	apiKey     string
	baseURL    string
	noGenerate bool
	logLevel   string

	embeddingModel  string
	generationModel string
	aggregation     string
)

var rootCmd = &cobra.Command{
	Use:   "vidsearchctl",
	Short: "Seed and query a vidsearch corpus from the terminal",
	Long: `vidsearchctl loads video catalogs into a vidsearch store and runs
searches against it using the same pipeline as the HTTP service.

Example usage:
  vidsearchctl seed 'catalog/**/*.yaml'
  vidsearchctl search -q "old trams on steep streets" --location Lisbon
  vidsearchctl feedback --search-id <id> --user u-1 --helpful`,
	Version:      version.String(),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFile); err != nil {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if baseURL == "" {
			baseURL = os.Getenv("OPENAI_BASE_URL")
		}
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file to load before running")
	flags.StringVar(&boltPath, "db", "data/vidsearch.db", "bbolt database file")
	flags.StringVar(&valkeyAddr, "valkey", "", "valkey address (overrides --db)")
	flags.StringVar(&dbPassword, "db-password", "", "valkey password")
	flags.StringVar(&apiKey, "api-key", "", "OpenAI-compatible API key (default $OPENAI_API_KEY)")
	flags.StringVar(&baseURL, "base-url", "", "OpenAI-compatible base URL (default $OPENAI_BASE_URL)")
	flags.StringVar(&embeddingModel, "embedding-model", "", "embedding model (default text-embedding-3-small)")
	flags.StringVar(&generationModel, "generation-model", "", "chat model (default gpt-4o-mini)")
	flags.StringVar(&aggregation, "aggregation", "", "variant merge strategy: max or rrf")
	flags.BoolVar(&noGenerate, "no-generate", false, "skip query expansion and reranking")
	flags.StringVar(&logLevel, "log-level", "", "log pipeline events to stderr at this level (debug, info, warn, error)")
}

// clientOptions translates the persistent flags into SDK options.
func clientOptions() ([]vidsearch.Option, error) {
	if apiKey == "" {
		return nil, errors.New("an API key is required (--api-key or OPENAI_API_KEY)")
	}

	var opts []vidsearch.Option
	if valkeyAddr != "" {
		opts = append(opts, vidsearch.WithValkey(valkeyAddr, dbPassword), vidsearch.WithStandalone())
	} else {
		opts = append(opts, vidsearch.WithBolt(boltPath))
	}
	opts = append(opts,
		vidsearch.WithOpenAI(apiKey, baseURL),
		vidsearch.WithModels(embeddingModel, generationModel),
	)
	if aggregation != "" {
		opts = append(opts, vidsearch.WithAggregation(aggregation))
	}
	if noGenerate {
		opts = append(opts, vidsearch.WithoutGeneration())
	}
	if logLevel != "" {
		l, err := logger.New(logger.Options{Env: "local", Level: logLevel, Stderr: true})
		if err != nil {
			return nil, fmt.Errorf("--log-level: %w", err)
		}
		opts = append(opts, vidsearch.WithLogger(l))
	}
	return opts, nil
}

func openClient(ctx context.Context) (*vidsearch.Client, error) {
	opts, err := clientOptions()
	if err != nil {
		return nil, err
	}
	client, err := vidsearch.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open client: %w", err)
	}
	return client, nil
}
