package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// ProjectConfigFile is looked up in the working directory when no path is given.
const ProjectConfigFile = "baby-meals.yaml"

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *slog.Logger
	lookup func(string) (string, bool)
}

func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, lookup: os.LookupEnv}
}

// Load builds the configuration from, in order:
// 1. Defaults
// 2. The file at path, or ./baby-meals.yaml when path is empty and it exists
// 3. BABY_MEALS_* environment variables
func (l *Loader) Load(path string) (*Config, error) {
	config := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = ProjectConfigFile
	}

	fileConfig, err := LoadFromFile(path)
	switch {
	case err == nil:
		l.logger.Debug("loaded config file", slog.String("path", path))
		config.Merge(fileConfig)
	case errors.Is(err, os.ErrNotExist) && !explicit:
		l.logger.Debug("no config file found", slog.String("path", path))
	default:
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := config.ApplyEnv(l.lookup); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}
