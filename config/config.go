// Package config provides configuration loading and management for Spool.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spoolkit/spool/job"
)

// Config represents the complete Spool configuration
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Models   ModelsConfig   `yaml:"models"`
	Store    StoreConfig    `yaml:"store"`
	NATS     NATSConfig     `yaml:"nats"`
	Watch    WatchConfig    `yaml:"watch"`
}

// PipelineConfig tunes planning, memory and the run loop
type PipelineConfig struct {
	// MinUnits is the minimum number of units per plan
	MinUnits int `yaml:"min_units"`
	// MaxUnitSize caps a unit's target size in words
	MaxUnitSize int `yaml:"max_unit_size"`
	// MemoryBudget bounds the memory view in characters
	MemoryBudget int `yaml:"memory_budget"`
	// CompressEvery compresses working memory after this many units
	CompressEvery int `yaml:"compress_every"`
	// CompressRawLimit compresses when buffered memory exceeds this size
	CompressRawLimit int `yaml:"compress_raw_limit"`
	// Mode is the pacing policy: interactive or batch
	Mode string `yaml:"mode"`
	// InteractiveDelay is the pause between units in interactive mode
	InteractiveDelay time.Duration `yaml:"interactive_delay"`
	// BatchDelay is the pause between units in batch mode
	BatchDelay time.Duration `yaml:"batch_delay"`
	// CallsPerMinute rate-limits generation calls (0 = unlimited)
	CallsPerMinute int `yaml:"calls_per_minute"`
}

// ModelsConfig points at the model registry definition
type ModelsConfig struct {
	// RegistryPath is a JSON registry file (empty = built-in defaults)
	RegistryPath string `yaml:"registry_path"`
	// Timeout is the maximum time to wait for a generation response
	Timeout time.Duration `yaml:"timeout"`
}

// StoreConfig configures job persistence
type StoreConfig struct {
	// DataDir holds the job database (empty = ~/.spool/data)
	DataDir string `yaml:"data_dir"`
}

// NATSConfig configures the optional progress publisher
type NATSConfig struct {
	// URL is the NATS server URL (empty = progress stays local)
	URL string `yaml:"url"`
}

// WatchConfig configures the document watcher
type WatchConfig struct {
	// DebounceDelay is how long to wait for more changes before enqueueing
	DebounceDelay time.Duration `yaml:"debounce_delay"`
	// Extensions lists file extensions to watch
	Extensions []string `yaml:"extensions"`
	// ExcludeDirs lists directory names to skip
	ExcludeDirs []string `yaml:"exclude_dirs"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	runner := job.DefaultRunnerConfig()
	return &Config{
		Pipeline: PipelineConfig{
			MinUnits:         2,
			MaxUnitSize:      1500,
			MemoryBudget:     runner.MemoryBudget,
			CompressEvery:    runner.CompressEvery,
			CompressRawLimit: runner.CompressRawLimit,
			Mode:             string(runner.Mode),
			InteractiveDelay: runner.InteractiveDelay,
			BatchDelay:       runner.BatchDelay,
			CallsPerMinute:   runner.CallsPerMinute,
		},
		Models: ModelsConfig{
			RegistryPath: "",
			Timeout:      5 * time.Minute,
		},
		Store: StoreConfig{
			DataDir: "",
		},
		NATS: NATSConfig{
			URL: "",
		},
		Watch: WatchConfig{
			DebounceDelay: 500 * time.Millisecond,
			Extensions:    []string{".md", ".txt", ".html"},
			ExcludeDirs:   []string{".git", "node_modules", "vendor"},
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Pipeline.MinUnits < 1 {
		return fmt.Errorf("pipeline.min_units must be at least 1")
	}
	if c.Pipeline.MaxUnitSize < 1 {
		return fmt.Errorf("pipeline.max_unit_size must be at least 1")
	}
	if c.Pipeline.MemoryBudget < 1 {
		return fmt.Errorf("pipeline.memory_budget must be at least 1")
	}
	switch job.Mode(c.Pipeline.Mode) {
	case job.ModeInteractive, job.ModeBatch:
	default:
		return fmt.Errorf("pipeline.mode must be %q or %q", job.ModeInteractive, job.ModeBatch)
	}
	if c.Pipeline.CallsPerMinute < 0 {
		return fmt.Errorf("pipeline.calls_per_minute must not be negative")
	}
	return nil
}

// RunnerConfig maps the pipeline section onto the job runner's config.
func (c *Config) RunnerConfig() job.RunnerConfig {
	return job.RunnerConfig{
		MemoryBudget:     c.Pipeline.MemoryBudget,
		CompressEvery:    c.Pipeline.CompressEvery,
		CompressRawLimit: c.Pipeline.CompressRawLimit,
		Mode:             job.Mode(c.Pipeline.Mode),
		InteractiveDelay: c.Pipeline.InteractiveDelay,
		BatchDelay:       c.Pipeline.BatchDelay,
		CallsPerMinute:   c.Pipeline.CallsPerMinute,
	}
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

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Pipeline
	if other.Pipeline.MinUnits != 0 {
		c.Pipeline.MinUnits = other.Pipeline.MinUnits
	}
	if other.Pipeline.MaxUnitSize != 0 {
		c.Pipeline.MaxUnitSize = other.Pipeline.MaxUnitSize
	}
	if other.Pipeline.MemoryBudget != 0 {
		c.Pipeline.MemoryBudget = other.Pipeline.MemoryBudget
	}
	if other.Pipeline.CompressEvery != 0 {
		c.Pipeline.CompressEvery = other.Pipeline.CompressEvery
	}
	if other.Pipeline.CompressRawLimit != 0 {
		c.Pipeline.CompressRawLimit = other.Pipeline.CompressRawLimit
	}
	if other.Pipeline.Mode != "" {
		c.Pipeline.Mode = other.Pipeline.Mode
	}
	if other.Pipeline.InteractiveDelay != 0 {
		c.Pipeline.InteractiveDelay = other.Pipeline.InteractiveDelay
	}
	if other.Pipeline.BatchDelay != 0 {
		c.Pipeline.BatchDelay = other.Pipeline.BatchDelay
	}
	if other.Pipeline.CallsPerMinute != 0 {
		c.Pipeline.CallsPerMinute = other.Pipeline.CallsPerMinute
	}

	// Models
	if other.Models.RegistryPath != "" {
		c.Models.RegistryPath = other.Models.RegistryPath
	}
	if other.Models.Timeout != 0 {
		c.Models.Timeout = other.Models.Timeout
	}

	// Store
	if other.Store.DataDir != "" {
		c.Store.DataDir = other.Store.DataDir
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}

	// Watch
	if other.Watch.DebounceDelay != 0 {
		c.Watch.DebounceDelay = other.Watch.DebounceDelay
	}
	if len(other.Watch.Extensions) > 0 {
		c.Watch.Extensions = other.Watch.Extensions
	}
	if len(other.Watch.ExcludeDirs) > 0 {
		c.Watch.ExcludeDirs = other.Watch.ExcludeDirs
	}
}
