package backend

import (
	"context"
	"fmt"

	"ledgerinsight/internal/ledger/memory"
	"ledgerinsight/internal/log"
	"ledgerinsight/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	if config.SeedFile != "" {
		if err := seed(ctx, repo, config.SeedFile); err != nil {
			repo.Close()
			return nil, err
		}
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath, "seed_file", config.SeedFile)

	return &BackendResult{
		Backend: repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := memory.NewFromFile(config.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized memory backend", "seed_file", config.SeedFile)

	return &BackendResult{Backend: store}, nil
}

// seed copies the seed file into an empty sqlite ledger.
func seed(ctx context.Context, repo *storage.SQLiteRepository, path string) error {
	n, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	src, err := memory.NewFromFile(path)
	if err != nil {
		return fmt.Errorf("load seed: %w", err)
	}
	txs, _ := src.Transactions(ctx)
	for _, tx := range txs {
		if _, err := repo.Append(ctx, tx); err != nil {
			return fmt.Errorf("seed transaction %s: %w", tx.ID, err)
		}
	}
	return nil
}
