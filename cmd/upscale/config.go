package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the file-based settings. Flags override file values
// where both are given.
type Config struct {
	// Quality is the default quality preference: fast, balanced, high.
	Quality string `yaml:"quality"`

	// Workers is the CPU path's worker count; 0 means one per core.
	Workers int `yaml:"workers"`

	// MemoryLimitMB caps device memory in MiB; 0 uses the detected
	// VRAM fraction.
	MemoryLimitMB uint64 `yaml:"memoryLimitMB"`

	// HostLimitMB caps host memory in MiB; 0 uses the probed system
	// memory fraction.
	HostLimitMB uint64 `yaml:"hostLimitMB"`

	// CeilingFraction is the usable fraction of total memory, in
	// (0, 1]. Zero keeps the library default.
	CeilingFraction float64 `yaml:"ceilingFraction"`

	// CPUOnly disables the accelerated path entirely.
	CPUOnly bool `yaml:"cpuOnly"`

	// MetricsAddr, when set, serves Prometheus metrics on this
	// address while a run is in flight (e.g. ":9090").
	MetricsAddr string `yaml:"metricsAddr"`
}

// LoadConfig reads a YAML config file. An empty path returns the zero
// config.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if c.Quality != "" {
		if _, err := upscaleQuality(c.Quality); err != nil {
			return err
		}
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative: %d", c.Workers)
	}
	if c.CeilingFraction < 0 || c.CeilingFraction > 1 {
		return fmt.Errorf("ceilingFraction must be in (0, 1]: %v", c.CeilingFraction)
	}
	return nil
}
