// Package config loads settings for the wavg command.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-wavg/stats/weighted"
)

// DefaultLength is the size of the synthetic dataset.
const DefaultLength = 1_000_000

type Config struct {
	Dataset   DatasetConfig   `yaml:"dataset"`
	Reduction ReductionConfig `yaml:"reduction"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type DatasetConfig struct {
	Length int `yaml:"length"`
}

// ReductionConfig mirrors the weighted package options. Zero Workers and
// MinChunk keep the library defaults.
type ReductionConfig struct {
	Workers   int    `yaml:"workers"`
	MinChunk  int    `yaml:"min_chunk"`
	NonFinite string `yaml:"non_finite"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	File string `yaml:"file"`
}

// Load returns the defaults, overlaid with the YAML file at path (if any)
// and then with WAVG_* environment variables.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Dataset: DatasetConfig{
			Length: DefaultLength,
		},
		Reduction: ReductionConfig{
			NonFinite: weighted.NonFinitePropagate.String(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("WAVG_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Dataset.Length = n
		}
	}
	if v := os.Getenv("WAVG_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Reduction.Workers = n
		}
	}
	if v := os.Getenv("WAVG_MIN_CHUNK"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Reduction.MinChunk = n
		}
	}
	if v := os.Getenv("WAVG_NON_FINITE"); v != "" {
		cfg.Reduction.NonFinite = v
	}
	if v := os.Getenv("WAVG_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("WAVG_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("WAVG_METRICS_FILE"); v != "" {
		cfg.Metrics.File = v
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Dataset.Length < 0 {
		return fmt.Errorf("dataset length must be >= 0: %d", c.Dataset.Length)
	}
	if c.Reduction.Workers < 0 {
		return fmt.Errorf("reduction workers must be >= 0: %d", c.Reduction.Workers)
	}
	if c.Reduction.MinChunk < 0 {
		return fmt.Errorf("reduction min_chunk must be >= 0: %d", c.Reduction.MinChunk)
	}
	if _, err := c.NonFinitePolicy(); err != nil {
		return err
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	return nil
}

// NonFinitePolicy parses Reduction.NonFinite.
func (c *Config) NonFinitePolicy() (weighted.NonFinitePolicy, error) {
	return weighted.ParseNonFinitePolicy(c.Reduction.NonFinite)
}

// LogLevel parses Logging.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return level, nil
}

// Options converts the reduction settings into weighted options.
func (c *Config) Options() ([]weighted.Option, error) {
	policy, err := c.NonFinitePolicy()
	if err != nil {
		return nil, err
	}
	return []weighted.Option{
		weighted.WithWorkers(c.Reduction.Workers),
		weighted.WithMinChunk(c.Reduction.MinChunk),
		weighted.WithNonFinitePolicy(policy),
	}, nil
}
