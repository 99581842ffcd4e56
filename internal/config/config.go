package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Interval between reconciliation sweeps in milliseconds; <= 0 disables them.
	Interval    int      `yaml:"interval"`
	Validate    bool     `yaml:"validate"`
	FullName    bool     `yaml:"full_name"`
	Paths       []string `yaml:"paths"`
	Exclude     []string `yaml:"exclude"`
	StateFile   string   `yaml:"state_file"`
	MetricsAddr string   `yaml:"metrics_addr"`
	LogLevel    string   `yaml:"log_level"`
}

func DefaultConfig() *Config {
	return &Config{
		Interval:  10000,
		Validate:  false,
		FullName:  true,
		Paths:     []string{},
		StateFile: ".rewatch/state.json",
		LogLevel:  "info",
		Exclude: []string{
			".git/",
			"*.swp",
			"*.tmp",
			"*~",
			".DS_Store",
		},
	}
}

// LoadConfig reads a YAML config. A missing file yields the defaults, and keys
// absent from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	if cfg.Paths == nil {
		cfg.Paths = []string{}
	}
	if cfg.Exclude == nil {
		cfg.Exclude = []string{}
	}

	if _, err := cfg.Level(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// PollInterval converts Interval to a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Interval) * time.Millisecond
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
}
