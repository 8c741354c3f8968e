// Package config loads CLI defaults from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Output formats accepted by the dis command.
const (
	FormatAuto  = "auto"
	FormatText  = "text"
	FormatTable = "table"
	FormatJSON  = "json"
)

// Config mirrors the settings file.
type Config struct {
	Table   string `yaml:"table"`   // opcode table path; empty uses the built-in 8080 table
	Workers int    `yaml:"workers"` // 0 = NumCPU
	Format  string `yaml:"format"`
	Raw     bool   `yaml:"raw"`
	Output  string `yaml:"output"` // JSON output path
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{Format: FormatAuto}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default value.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch c.Format {
	case FormatAuto, FormatText, FormatTable, FormatJSON:
	default:
		return fmt.Errorf("unknown format %q", c.Format)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}
