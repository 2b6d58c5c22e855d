package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is the prefix of every environment variable, e.g. RETAIL_SERVER_PORT.
const EnvPrefix = "RETAIL"

// Config represents the complete application configuration.
// Field names map to variables such as RETAIL_SERVER_PORT or
// RETAIL_MODEL_TEST_RATIO. No envconfig tag is set because a tag also makes
// envconfig fall back to the unprefixed name (PATH, HOST).
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Paths   PathsConfig   `yaml:"paths"`
	Logging LoggingConfig `yaml:"logging"`
	Model   ModelConfig   `yaml:"model"`
	RunLog  RunLogConfig  `yaml:"runlog"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host         string        `yaml:"host" split_words:"true"`
	Port         int           `yaml:"port" split_words:"true"`
	ReadTimeout  time.Duration `yaml:"read_timeout" split_words:"true"`
	WriteTimeout time.Duration `yaml:"write_timeout" split_words:"true"`
	ExportRows   int           `yaml:"export_rows" split_words:"true"`
}

// PathsConfig locates the input files and the merged output.
type PathsConfig struct {
	Stores     string `yaml:"stores" split_words:"true"`
	Sales      string `yaml:"sales" split_words:"true"`
	Features   string `yaml:"features" split_words:"true"`
	Merged     string `yaml:"merged" split_words:"true"`
	DateLayout string `yaml:"date_layout" split_words:"true"`
}

// LoggingConfig selects the zap preset.
type LoggingConfig struct {
	Mode string `yaml:"mode" split_words:"true"`
}

// ModelConfig contains training parameters.
type ModelConfig struct {
	Kind          string  `yaml:"kind" split_words:"true"`
	Trees         int     `yaml:"trees" split_words:"true"`
	Seed          int64   `yaml:"seed" split_words:"true"`
	TestRatio     float64 `yaml:"test_ratio" split_words:"true"`
	MissingPolicy string  `yaml:"missing_policy" split_words:"true"`
	CacheEnabled  bool    `yaml:"cache_enabled" split_words:"true"`
	CacheSize     int     `yaml:"cache_size" split_words:"true"`
}

// RunLogConfig points at the sqlite run history. An empty path disables it.
type RunLogConfig struct {
	Path string `yaml:"path" split_words:"true"`
}

// Default returns the configuration used when neither a file nor the
// environment sets a value.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0", Port: 8080, ReadTimeout: 15 * time.Second, WriteTimeout: 5 * time.Minute, ExportRows: 1000,
		},
		Paths: PathsConfig{
			Stores:     "data/stores.csv",
			Sales:      "data/sales.csv",
			Features:   "data/features.csv",
			Merged:     "data/merged_data.csv",
			DateLayout: "02/01/2006",
		},
		Logging: LoggingConfig{Mode: "development"},
		Model: ModelConfig{
			Kind: "forest", Trees: 100, Seed: 42, TestRatio: 0.2,
			MissingPolicy: "drop", CacheEnabled: true, CacheSize: 8,
		},
		RunLog: RunLogConfig{Path: "data/runs.db"},
	}
}

// Load layers defaults, the YAML file at path (skipped when path is empty or
// the file does not exist) and RETAIL_* environment variables, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := loadFromFile(path, &cfg); err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// loadFromFile overlays the keys present in the YAML file onto cfg.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks the values the pipeline relies on.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server timeouts must be positive"))
	}
	if c.Server.ExportRows <= 0 {
		errs = append(errs, fmt.Errorf("server.export_rows must be positive"))
	}
	if c.Model.TestRatio <= 0 || c.Model.TestRatio >= 1 {
		errs = append(errs, fmt.Errorf("model.test_ratio %g must be in (0, 1)", c.Model.TestRatio))
	}
	if c.Model.Trees <= 0 {
		errs = append(errs, fmt.Errorf("model.trees must be positive"))
	}
	switch c.Model.Kind {
	case "linear", "forest":
	default:
		errs = append(errs, fmt.Errorf("model.kind %q must be linear or forest", c.Model.Kind))
	}
	switch c.Model.MissingPolicy {
	case "drop", "error":
	default:
		errs = append(errs, fmt.Errorf("model.missing_policy %q must be drop or error", c.Model.MissingPolicy))
	}
	if c.Paths.DateLayout == "" {
		errs = append(errs, fmt.Errorf("paths.date_layout is required"))
	}
	return errors.Join(errs...)
}
