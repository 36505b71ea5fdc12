package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the bag exporter
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Input   InputConfig   `yaml:"input"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServiceConfig contains service-level settings
type ServiceConfig struct {
	Name          string `yaml:"name"`
	ProgressEvery int    `yaml:"progress_every"` // log ingest progress every N messages, 0 disables
}

// InputConfig selects the bag and the topics to export
type InputConfig struct {
	Bag    string   `yaml:"bag"`
	Topics []string `yaml:"topics"` // empty means all topics
}

// OutputConfig selects where and how tables are written
type OutputConfig struct {
	Directory   string `yaml:"directory"` // empty means <bag dir>/<format>
	Format      string `yaml:"format"`
	Compression string `yaml:"compression"` // csv only
}

// LoggingConfig contains log settings
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:          "mcap2table",
			ProgressEvery: 10000,
		},
		Output: OutputConfig{
			Format:      "csv",
			Compression: "none",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from a YAML file on top of the defaults
// and then applies environment overrides. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.applyEnv()
	return config, nil
}

func (c *Config) applyEnv() {
	c.Output.Directory = getEnv("MCAP2TABLE_OUTPUT_DIR", c.Output.Directory)
	c.Output.Format = getEnv("MCAP2TABLE_FORMAT", c.Output.Format)
	c.Output.Compression = getEnv("MCAP2TABLE_COMPRESSION", c.Output.Compression)
	c.Logging.Level = getEnv("MCAP2TABLE_LOG_LEVEL", c.Logging.Level)
	c.Service.ProgressEvery = getIntEnv("MCAP2TABLE_PROGRESS_EVERY", c.Service.ProgressEvery)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Input.Bag == "" {
		return fmt.Errorf("input.bag is required")
	}
	switch c.Output.Format {
	case "csv", "parquet", "sqlite", "duckdb":
	default:
		return fmt.Errorf("output.format must be csv, parquet, sqlite or duckdb, got %q", c.Output.Format)
	}
	switch c.Output.Compression {
	case "", "none", "gzip", "zstd", "lz4":
	default:
		return fmt.Errorf("output.compression must be none, gzip, zstd or lz4, got %q", c.Output.Compression)
	}
	if c.Output.Format != "csv" && c.Output.Compression != "" && c.Output.Compression != "none" {
		return fmt.Errorf("output.compression only applies to the csv format")
	}
	if c.Service.ProgressEvery < 0 {
		return fmt.Errorf("service.progress_every must not be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
