// Package config provides configuration helpers and config file parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FileConfig represents the configuration file.
type FileConfig struct {
	Generate GenerateConfig `toml:"generate" yaml:"generate"`
	History  HistoryConfig  `toml:"history" yaml:"history"`
	Output   OutputConfig   `toml:"output" yaml:"output"`
}

// GenerateConfig maps generation defaults. Nil fields are unset.
type GenerateConfig struct {
	SpecType      *string  `toml:"spec-type" yaml:"spec-type"`
	LSL           *float64 `toml:"lsl" yaml:"lsl"`
	USL           *float64 `toml:"usl" yaml:"usl"`
	TargetCpk     *float64 `toml:"target" yaml:"target"`
	SampleSize    *int     `toml:"samples" yaml:"samples"`
	SubgroupSize  *int     `toml:"subgroup" yaml:"subgroup"`
	Decimals      *int     `toml:"decimals" yaml:"decimals"`
	MinVal        *float64 `toml:"min" yaml:"min"`
	MaxVal        *float64 `toml:"max" yaml:"max"`
	SigmaPercent  *float64 `toml:"sigma-pct" yaml:"sigma-pct"`
	CenterPercent *float64 `toml:"center-pct" yaml:"center-pct"`
	ForceRange    *bool    `toml:"force-range" yaml:"force-range"`
	AutoAdjust    *bool    `toml:"auto-adjust" yaml:"auto-adjust"`
	MaxAttempts   *int     `toml:"max-attempts" yaml:"max-attempts"`
	Tolerance     *float64 `toml:"tolerance" yaml:"tolerance"`
	AdjFactor     *float64 `toml:"adj-factor" yaml:"adj-factor"`
	Seed          *int     `toml:"seed" yaml:"seed"`
}

// HistoryConfig maps history listing defaults.
type HistoryConfig struct {
	Last   *int `toml:"last" yaml:"last"`
	Window *int `toml:"window" yaml:"window"`
}

// OutputConfig maps output and logging defaults.
type OutputConfig struct {
	Format    *string `toml:"format" yaml:"format"`
	LogLevel  *string `toml:"log-level" yaml:"log-level"`
	ExportDir *string `toml:"export-dir" yaml:"export-dir"`
	TUI       *bool   `toml:"tui" yaml:"tui"`
}

// LoadConfig reads a config from the given path. Missing file is not an error.
// Files ending in .yaml or .yml are decoded as YAML, anything else as TOML.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return FileConfig{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
		}
	default:
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
		}
	}
	return cfg, nil
}
