package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"mcp-baby-meals/internal/catalog"
	"mcp-baby-meals/internal/storage"
)

// openStorage opens the configured database and seeds the catalog when it is empty.
func openStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	stor, err := storage.NewSQLiteStorage(cfg.Storage.DBPath, storage.WithClock(now))
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	foods, rules, err := stor.CatalogSize(ctx)
	if err != nil {
		stor.Close()
		return nil, err
	}
	if foods > 0 || rules > 0 || !cfg.Catalog.ShouldSeed() {
		return stor, nil
	}

	c, err := catalog.Seed(ctx, stor, cfg.Catalog.Path)
	if err != nil {
		stor.Close()
		return nil, err
	}
	logger.Debug("seeded empty catalog", slog.Int("foods", len(c.Foods)), slog.Int("rules", len(c.Rules)))

	return stor, nil
}
