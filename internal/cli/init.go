// Package cli provides common CLI initialization utilities shared by
// cmd/insight-server, cmd/insight-worker and cmd/insightctl.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ledgerinsight/internal/backend"
	"ledgerinsight/internal/config"
	"ledgerinsight/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig loads configuration and validates it.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewLogger builds the application logger from the configured level and
// format, writing to out.
func NewLogger(cfg *config.Config, component string, out io.Writer) *log.Logger {
	return log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: component,
		Output:    out,
	})
}

// SetupLogger initializes structured logging on stdout and installs it as
// the default slog logger.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	logger := NewLogger(cfg, component, os.Stdout)
	log.SetDefault(logger)
	return logger
}

// Fatal logs err and exits.
func Fatal(logger *log.Logger, msg string, err error) {
	if logger == nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	} else {
		logger.Error(msg, log.FieldError, err)
	}
	os.Exit(1)
}

// OpenBackend creates the configured ledger backend.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger).CreateBackend(ctx, bcfg)
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
