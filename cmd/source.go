package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/study-matcher/internal/dataset"
	"github.com/spigell/study-matcher/internal/ranking"
	"github.com/spigell/study-matcher/internal/secrets"
	"github.com/spigell/study-matcher/internal/store/memory"
	"github.com/spigell/study-matcher/internal/store/sqlstore"
)

const (
	sourceDataset  = "dataset"
	sourceDatabase = "database"

	// dsnEnv is consulted when neither database.dsn-file nor an inline dsn
	// is set.
	dsnEnv = "DATABASE_URL"
)

type source interface {
	ranking.Source
	Close() error
}

// openSource returns the record source selected by config.
func openSource(ctx context.Context, config *Config, logger *zap.Logger) (source, error) {
	switch strings.ToLower(strings.TrimSpace(config.Source)) {
	case sourceDataset, "":
		ds, err := loadDataset(config.Dataset, logger)
		if err != nil {
			return nil, err
		}
		if err := ds.Validate(); err != nil {
			logger.Warn("dataset has inconsistent studies", zap.Error(err))
		}
		return memory.New(ds), nil
	case sourceDatabase:
		store, err := openDatabase(ctx, config.Database, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown source %q (expected %s or %s)", config.Source, sourceDataset, sourceDatabase)
	}
}

func loadDataset(path string, logger *zap.Logger) (*dataset.Dataset, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("dataset file is not configured (set --dataset or the 'dataset' key)")
	}

	ds, err := dataset.Load(path)
	if err != nil {
		return nil, err
	}

	logger.Info("dataset loaded",
		zap.String("file", path),
		zap.Int("users", len(ds.Accounts)),
		zap.Int("studies", len(ds.Studies)),
		zap.Int("applications", len(ds.Applications)),
		zap.Int("participations", len(ds.Participations)),
	)
	return ds, nil
}

// openDatabase connects to the configured database and brings its schema up
// to date.
func openDatabase(ctx context.Context, config *DatabaseConfig, logger *zap.Logger) (*sqlstore.Store, error) {
	if config == nil {
		return nil, errors.New("database section is required")
	}

	dsn, err := secrets.Load(secrets.Source{
		Name:  "database dsn",
		Value: config.DSN,
		File:  config.DSNFile,
		Env:   dsnEnv,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set database.dsn-file, %s or database.dsn)", err, dsnEnv)
	}

	store, err := sqlstore.Open(ctx, config.Driver, dsn, logger)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// withSource opens the configured source, runs fn and closes the source
// before returning, so callers may exit right after.
func withSource(ctx context.Context, config *Config, logger *zap.Logger, fn func(ctx context.Context, src source) error) error {
	src, err := openSource(ctx, config, logger)
	if err != nil {
		return fmt.Errorf("opening the source: %w", err)
	}

	err = fn(ctx, src)
	if closeErr := src.Close(); closeErr != nil {
		logger.Warn("closing the source", zap.Error(closeErr))
	}
	return err
}
