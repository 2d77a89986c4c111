// Package config provides configuration loading and management for
// contractspec.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/contractspec/validate"
)

// Config represents the complete contractspec configuration
type Config struct {
	Source SourceConfig `yaml:"source"`
	Rules  RulesConfig  `yaml:"rules"`
	Engine EngineConfig `yaml:"engine"`
	Output OutputConfig `yaml:"output"`
	NATS   NATSConfig   `yaml:"nats"`
}

// SourceConfig configures which source trees are analyzed
type SourceConfig struct {
	// Paths are directory paths or glob patterns ("./services/*")
	Paths []string `yaml:"paths"`
	// Languages restricts the front ends used (empty = all registered)
	Languages []string `yaml:"languages"`
	// WatchDebounce is how long the watcher waits for more changes
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// RulesConfig configures validation behavior. Pointer fields distinguish
// "unset" from an explicit false so layered configs merge correctly.
type RulesConfig struct {
	// StrictRaises escalates undocumented-raise findings to errors
	StrictRaises *bool `yaml:"strict_raises"`
	// RedundancySensitivity is "low" or "high"
	RedundancySensitivity string `yaml:"redundancy_sensitivity"`
	// ContractMandatoryForClasses requires CONTRACTS on every class
	ContractMandatoryForClasses *bool `yaml:"contract_mandatory_for_classes"`
}

// EngineConfig configures the analysis run
type EngineConfig struct {
	// Workers bounds the element worker pool (0 = number of CPUs)
	Workers int `yaml:"workers"`
}

// OutputConfig configures report rendering
type OutputConfig struct {
	// Format is "text" or "json"
	Format string `yaml:"format"`
	// ModuleMapPath is where the module map is written (empty = stdout only on request)
	ModuleMapPath string `yaml:"module_map_path"`
}

// NATSConfig configures the NATS connection for stream processing mode
type NATSConfig struct {
	// URL is the NATS server URL
	URL string `yaml:"url"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Paths:         []string{"."},
			WatchDebounce: 100 * time.Millisecond,
		},
		Rules: RulesConfig{
			RedundancySensitivity: string(validate.SensitivityLow),
		},
		Engine: EngineConfig{
			Workers: 0,
		},
		Output: OutputConfig{
			Format: "text",
		},
		NATS: NATSConfig{
			URL: "nats://localhost:4222",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if len(c.Source.Paths) == 0 {
		return fmt.Errorf("source.paths is required")
	}
	switch validate.Sensitivity(c.Rules.RedundancySensitivity) {
	case validate.SensitivityLow, validate.SensitivityHigh:
	default:
		return fmt.Errorf("rules.redundancy_sensitivity must be %q or %q",
			validate.SensitivityLow, validate.SensitivityHigh)
	}
	switch c.Output.Format {
	case "text", "json":
	default:
		return fmt.Errorf("output.format must be \"text\" or \"json\"")
	}
	if c.Engine.Workers < 0 {
		return fmt.Errorf("engine.workers must not be negative")
	}
	return nil
}

// ValidatorOptions maps the rules section onto validator options.
func (c *Config) ValidatorOptions() validate.Options {
	opts := validate.DefaultOptions()
	if c.Rules.StrictRaises != nil {
		opts.StrictRaises = *c.Rules.StrictRaises
	}
	if c.Rules.RedundancySensitivity != "" {
		opts.RedundancySensitivity = validate.Sensitivity(c.Rules.RedundancySensitivity)
	}
	if c.Rules.ContractMandatoryForClasses != nil {
		opts.ContractsMandatoryForClasses = *c.Rules.ContractMandatoryForClasses
	}
	return opts
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for
// set values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Source
	if len(other.Source.Paths) > 0 {
		c.Source.Paths = other.Source.Paths
	}
	if len(other.Source.Languages) > 0 {
		c.Source.Languages = other.Source.Languages
	}
	if other.Source.WatchDebounce != 0 {
		c.Source.WatchDebounce = other.Source.WatchDebounce
	}

	// Rules
	if other.Rules.StrictRaises != nil {
		c.Rules.StrictRaises = other.Rules.StrictRaises
	}
	if other.Rules.RedundancySensitivity != "" {
		c.Rules.RedundancySensitivity = other.Rules.RedundancySensitivity
	}
	if other.Rules.ContractMandatoryForClasses != nil {
		c.Rules.ContractMandatoryForClasses = other.Rules.ContractMandatoryForClasses
	}

	// Engine
	if other.Engine.Workers != 0 {
		c.Engine.Workers = other.Engine.Workers
	}

	// Output
	if other.Output.Format != "" {
		c.Output.Format = other.Output.Format
	}
	if other.Output.ModuleMapPath != "" {
		c.Output.ModuleMapPath = other.Output.ModuleMapPath
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
}
