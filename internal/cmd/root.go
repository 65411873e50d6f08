package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mcp-baby-meals/internal/config"
	"mcp-baby-meals/internal/log"
)

var (
	configPath string
	logLevel   string
	logFormat  string
	dbPath     string

	cfg    *config.Config
	logger *slog.Logger

	now = time.Now
)

var rootCmd = &cobra.Command{
	Use:   "baby-meals",
	Short: "Baby meal log with feeding safety checks",
	Long: `baby-meals records what a baby eats and checks every meal against a catalog
of published infant-feeding safety rules. The log is served as MCP tools over HTTP.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.HiddenDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./"+config.ProjectConfigFile+" if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", fmt.Sprintf("Log level (%s)", strings.Join(log.Levels, ", ")))
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", fmt.Sprintf("Log format (%s)", strings.Join(log.Formats, ", ")))
	rootCmd.PersistentFlags().StringVar(&dbPath, "db-path", "", "SQLite database path (overrides config)")
}

// setup loads the config and installs the logger. Flags win over the config file and env.
func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := config.NewLoader(nil).Load(configPath)
	if err != nil {
		return err
	}

	if logLevel != "" {
		loaded.Log.Level = logLevel
	}
	if logFormat != "" {
		loaded.Log.Format = logFormat
	}
	if dbPath != "" {
		loaded.Storage.DBPath = dbPath
	}

	logger, err = log.Setup(cmd.ErrOrStderr(), log.Options{
		Level:  loaded.Log.Level,
		Format: loaded.Log.Format,
		Source: strings.EqualFold(loaded.Log.Level, "debug"),
		Prefix: "baby-meals",
	})
	if err != nil {
		return err
	}
	cfg = loaded

	return nil
}
