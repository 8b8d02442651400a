// Package config loads and validates the telemetry hub's configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration contract. Every field except
// StaleThresholdMs, HTTPAddr and DBPath (which Load defaults) is required;
// Load returns an error naming the first missing or out-of-range one.
type Config struct {
	PortRange       PortRange `yaml:"portRange"`
	MaxPorts        int       `yaml:"maxPorts"`
	ThreadPoolSize  int       `yaml:"threadPoolSize"`
	IdleThresholdMs int       `yaml:"idleThresholdMs"`
	ScannerTimeoutMs int      `yaml:"scannerTimeoutMs"`
	BufferSize      int       `yaml:"bufferSize"`

	// StaleThresholdMs is not named among spec.md §6's required fields but
	// is required by the state engine; defaulted rather than validated as
	// mandatory, matching the 30s the original service hard-coded.
	StaleThresholdMs int `yaml:"staleThresholdMs"`

	HTTPAddr string `yaml:"httpAddr"`
	DBPath   string `yaml:"dbPath"`
}

const defaultStaleThresholdMs = 30_000

// PortRange is the inclusive [Min, Max] range of UDP ports scanned for GCS traffic.
type PortRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Load reads a YAML file at path, applies defaults for the optional fields
// (HTTPAddr, DBPath, StaleThresholdMs), and validates the required fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "data/telemetry.db"
	}
	if cfg.StaleThresholdMs == 0 {
		cfg.StaleThresholdMs = defaultStaleThresholdMs
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every required field against spec.md §6's bounds.
func (c *Config) Validate() error {
	if c.PortRange.Min < 1 || c.PortRange.Min > 65535 {
		return fmt.Errorf("config: portRange.min must be in [1,65535], got %d", c.PortRange.Min)
	}
	if c.PortRange.Max < 1 || c.PortRange.Max > 65535 {
		return fmt.Errorf("config: portRange.max must be in [1,65535], got %d", c.PortRange.Max)
	}
	if c.PortRange.Max < c.PortRange.Min {
		return fmt.Errorf("config: portRange.max (%d) must be >= portRange.min (%d)", c.PortRange.Max, c.PortRange.Min)
	}
	if c.MaxPorts < 1 {
		return fmt.Errorf("config: maxPorts must be >= 1, got %d", c.MaxPorts)
	}
	if c.ThreadPoolSize < 1 {
		return fmt.Errorf("config: threadPoolSize must be >= 1, got %d", c.ThreadPoolSize)
	}
	if c.IdleThresholdMs < 1000 {
		return fmt.Errorf("config: idleThresholdMs must be >= 1000, got %d", c.IdleThresholdMs)
	}
	if c.ScannerTimeoutMs < 1000 {
		return fmt.Errorf("config: scannerTimeoutMs must be >= 1000, got %d", c.ScannerTimeoutMs)
	}
	if c.BufferSize < 265 {
		return fmt.Errorf("config: bufferSize must be >= 265, got %d", c.BufferSize)
	}
	return nil
}
