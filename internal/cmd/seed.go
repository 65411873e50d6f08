package cmd

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mcp-baby-meals/internal/catalog"
	"mcp-baby-meals/internal/storage"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a food and rule catalog into the database",
	Long: `Upsert the foods and safety rules of a YAML catalog into the database.
Without --file the built-in catalog is used. Existing entries keep their order.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "Catalog YAML file (default: catalog.path from config, else built-in)")
}

func runSeed(cmd *cobra.Command, args []string) error {
	path := seedFile
	if path == "" {
		path = cfg.Catalog.Path
	}

	stor, err := storage.NewSQLiteStorage(cfg.Storage.DBPath, storage.WithClock(now))
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer stor.Close()

	c, err := catalog.Seed(cmd.Context(), stor, path)
	if err != nil {
		return err
	}

	foods, rules, err := stor.CatalogSize(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Seeded %d foods and %d rules\n", len(c.Foods), len(c.Rules))
	fmt.Fprintf(out, "Catalog now holds %d foods and %d rules\n", foods, rules)
	if info, err := os.Stat(cfg.Storage.DBPath); err == nil {
		fmt.Fprintf(out, "Database %s (%s)\n", cfg.Storage.DBPath, humanize.Bytes(uint64(max(0, info.Size()))))
	}

	return nil
}
