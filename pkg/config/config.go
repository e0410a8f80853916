// Package config provides configuration loading and management for octprof.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use for per-frame corrections
		NumCores int `yaml:"numCores"`
	} `yaml:"processing"`

	// Binary and sidecar format parameters
	Format struct {
		// ElementWidth is the sample width in bytes: 4 for legacy files, 8 for en-face exports
		ElementWidth int `yaml:"elementWidth"`

		// DataExtension is the extension of volume data files
		DataExtension string `yaml:"dataExtension"`

		// SidecarExtension is the extension of the XML metadata file
		SidecarExtension string `yaml:"sidecarExtension"`

		// ScanSuffixes are acquisition-subtype suffixes removed when deriving the sidecar name
		ScanSuffixes []string `yaml:"scanSuffixes"`
	} `yaml:"format"`

	// Correction toggles
	Correction struct {
		// LinearizeSinusoid resamples each row from sinusoidal to linear spacing
		LinearizeSinusoid bool `yaml:"linearizeSinusoid"`

		// AlignScanPasses registers odd rows against even rows
		AlignScanPasses bool `yaml:"alignScanPasses"`
	} `yaml:"correction"`

	// Output parameters
	Output struct {
		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`

		// LogFormat is "text" or "json"
		LogFormat string `yaml:"logFormat"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumCores = runtime.NumCPU()

	cfg.Format.ElementWidth = 4
	cfg.Format.DataExtension = ".prof"
	cfg.Format.SidecarExtension = ".xml"
	cfg.Format.ScanSuffixes = []string{"_OCTA", "_Struc"}

	cfg.Correction.LinearizeSinusoid = false
	cfg.Correction.AlignScanPasses = false

	cfg.Output.Verbose = false
	cfg.Output.LogFormat = "text"

	return cfg
}

// Validate checks the configuration for values the codec cannot work with
func (c *Config) Validate() error {
	if c.Processing.NumCores < 1 {
		return fmt.Errorf("numCores must be at least 1, got %d", c.Processing.NumCores)
	}
	if c.Format.ElementWidth != 4 && c.Format.ElementWidth != 8 {
		return fmt.Errorf("elementWidth must be 4 or 8, got %d", c.Format.ElementWidth)
	}
	if c.Format.DataExtension == "" {
		return fmt.Errorf("dataExtension must not be empty")
	}
	if c.Format.SidecarExtension == "" {
		return fmt.Errorf("sidecarExtension must not be empty")
	}
	switch c.Output.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown logFormat %q", c.Output.LogFormat)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
