// Package logger builds the process zap logger and carries request loggers
// through contexts.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kailas-cloud/vidsearch/internal/version"
)

// Options shapes the logger. Empty fields take the environment default.
type Options struct {
	Env    string // prod, dev, local, docker
	Level  string // debug, info, warn, error
	Format string // json, console
	// Stderr sends logs to stderr instead of stdout, for CLIs whose stdout
	// carries results.
	Stderr bool
}

// New builds a logger. prod defaults to JSON at info level with sampling;
// the other environments default to colored console output at debug level.
// Every entry carries the service name and build version.
func New(opts Options) (*zap.Logger, error) {
	var cfg zap.Config
	switch opts.Env {
	case "prod":
		cfg = zap.NewProductionConfig()
	case "local", "dev", "docker":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown environment %q for logger", opts.Env)
	}

	switch opts.Format {
	case "":
	case "json":
		cfg.Encoding = "json"
		cfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	case "console":
		cfg.Encoding = "console"
	default:
		return nil, fmt.Errorf("invalid log format %q: want json or console", opts.Format)
	}

	if opts.Level != "" {
		level, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	if opts.Stderr {
		cfg.OutputPaths = []string{"stderr"}
	}
	cfg.InitialFields = map[string]any{
		"service": "vidsearch",
		"version": version.Version,
	}

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}
