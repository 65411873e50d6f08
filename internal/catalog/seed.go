package catalog

import (
	"context"
	"fmt"

	"mcp-baby-meals/internal/models"
)

type Seeder interface {
	SeedCatalog(ctx context.Context, foods []models.Food, rules []models.SafetyRule) error
}

// Seed loads the catalog at path (or the built-in one when path is empty) into s.
func Seed(ctx context.Context, s Seeder, path string) (*Catalog, error) {
	var (
		c   *Catalog
		err error
	)
	if path == "" {
		c, err = Default()
	} else {
		c, err = LoadFromFile(path)
	}
	if err != nil {
		return nil, err
	}

	if err := s.SeedCatalog(ctx, c.Foods, c.Rules); err != nil {
		return nil, fmt.Errorf("failed to seed catalog: %w", err)
	}
	return c, nil
}
