// Package config provides configuration loading for the meal log server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid config")

// Config represents the complete server configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
	Catalog CatalogConfig `yaml:"catalog"`
}

// Transports the server can speak MCP over.
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

type ServerConfig struct {
	// Transport is "http" (tool endpoint plus MCP over SSE) or "stdio"
	Transport string `yaml:"transport"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
}

type StorageConfig struct {
	// DBPath is the SQLite database file
	DBPath string `yaml:"db_path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CatalogConfig controls where the food and rule catalog comes from
type CatalogConfig struct {
	// Path is a YAML catalog file; empty uses the built-in catalog
	Path string `yaml:"path"`
	// SeedOnStart loads the catalog into storage when the server starts (default true)
	SeedOnStart *bool `yaml:"seed_on_start"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c CatalogConfig) ShouldSeed() bool {
	return c.SeedOnStart == nil || *c.SeedOnStart
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Transport: TransportHTTP,
			Host:      "0.0.0.0",
			Port:      8011,
		},
		Storage: StorageConfig{
			DBPath: "/data/baby-meals.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func (c *Config) Validate() error {
	switch c.Server.Transport {
	case TransportHTTP, TransportStdio:
	default:
		return fmt.Errorf("%w: unsupported transport %q", ErrInvalid, c.Server.Transport)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalid, c.Server.Port)
	}
	if c.Storage.DBPath == "" {
		return fmt.Errorf("%w: storage.db_path is required", ErrInvalid)
	}
	return nil
}

// Merge overlays the values set in other onto c.
func (c *Config) Merge(other *Config) {
	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.Host != "" {
		c.Server.Host = other.Server.Host
	}
	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}
	if other.Storage.DBPath != "" {
		c.Storage.DBPath = other.Storage.DBPath
	}
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}
	if other.Catalog.Path != "" {
		c.Catalog.Path = other.Catalog.Path
	}
	if other.Catalog.SeedOnStart != nil {
		seed := *other.Catalog.SeedOnStart
		c.Catalog.SeedOnStart = &seed
	}
}

func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Environment variables consulted by ApplyEnv.
const (
	EnvDBPath   = "BABY_MEALS_DB_PATH"
	EnvHost     = "BABY_MEALS_HOST"
	EnvPort     = "BABY_MEALS_PORT"
	EnvLogLevel = "BABY_MEALS_LOG_LEVEL"
)

func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDBPath); ok && v != "" {
		c.Storage.DBPath = v
	}
	if v, ok := lookup(EnvHost); ok && v != "" {
		c.Server.Host = v
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalid, EnvPort, v)
		}
		c.Server.Port = port
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	return nil
}
