package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load a dataset file into the configured database, replacing its content",
	Run: func(_ *cobra.Command, _ []string) {
		runImport()
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport() {
	ctx := context.Background()
	logger, config := setup()

	ds, err := loadDataset(config.Dataset, logger)
	if err != nil {
		logger.Fatal("loading the dataset", zap.Error(err))
	}

	// Broken enrollment numbers are tolerated when matching from a file but
	// never persisted.
	if err := ds.Validate(); err != nil {
		logger.Fatal("dataset has inconsistent studies", zap.Error(err))
	}

	store, err := openDatabase(ctx, config.Database, logger)
	if err != nil {
		logger.Fatal("opening the database", zap.Error(err))
	}

	err = store.Import(ctx, ds)
	if closeErr := store.Close(); closeErr != nil {
		logger.Warn("closing the database", zap.Error(closeErr))
	}
	if err != nil {
		logger.Fatal("importing the dataset", zap.Error(err))
	}

	logger.Info("dataset imported",
		zap.String("driver", config.Database.Driver),
		zap.Int("users", len(ds.Accounts)),
		zap.Int("studies", len(ds.Studies)),
	)
}
