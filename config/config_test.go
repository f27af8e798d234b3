package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spoolkit/spool/job"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Pipeline.MinUnits != 2 {
		t.Errorf("expected min_units 2, got %d", cfg.Pipeline.MinUnits)
	}
	if cfg.Pipeline.MaxUnitSize != 1500 {
		t.Errorf("expected max_unit_size 1500, got %d", cfg.Pipeline.MaxUnitSize)
	}
	if cfg.Pipeline.Mode != string(job.ModeInteractive) {
		t.Errorf("expected interactive mode by default, got %s", cfg.Pipeline.Mode)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "zero min units",
			modify:  func(c *Config) { c.Pipeline.MinUnits = 0 },
			wantErr: true,
		},
		{
			name:    "zero max unit size",
			modify:  func(c *Config) { c.Pipeline.MaxUnitSize = 0 },
			wantErr: true,
		},
		{
			name:    "zero memory budget",
			modify:  func(c *Config) { c.Pipeline.MemoryBudget = 0 },
			wantErr: true,
		},
		{
			name:    "unknown mode",
			modify:  func(c *Config) { c.Pipeline.Mode = "turbo" },
			wantErr: true,
		},
		{
			name:    "batch mode is valid",
			modify:  func(c *Config) { c.Pipeline.Mode = string(job.ModeBatch) },
			wantErr: false,
		},
		{
			name:    "negative rate limit",
			modify:  func(c *Config) { c.Pipeline.CallsPerMinute = -1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temp file with config
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
pipeline:
  min_units: 3
  max_unit_size: 800
  mode: "batch"
  batch_delay: 10s
  calls_per_minute: 12
models:
  registry_path: "/etc/spool/models.json"
  timeout: 10m
store:
  data_dir: "/var/lib/spool"
nats:
  url: "nats://test:4222"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Pipeline.MinUnits != 3 {
		t.Errorf("expected min_units 3, got %d", cfg.Pipeline.MinUnits)
	}
	if cfg.Pipeline.Mode != "batch" {
		t.Errorf("expected mode batch, got %s", cfg.Pipeline.Mode)
	}
	if cfg.Pipeline.BatchDelay != 10*time.Second {
		t.Errorf("expected batch_delay 10s, got %v", cfg.Pipeline.BatchDelay)
	}
	if cfg.Models.Timeout != 10*time.Minute {
		t.Errorf("expected timeout 10m, got %v", cfg.Models.Timeout)
	}
	if cfg.Store.DataDir != "/var/lib/spool" {
		t.Errorf("expected data_dir /var/lib/spool, got %s", cfg.Store.DataDir)
	}
	if cfg.NATS.URL != "nats://test:4222" {
		t.Errorf("expected NATS URL nats://test:4222, got %s", cfg.NATS.URL)
	}
	// Unset fields keep their defaults.
	if cfg.Pipeline.MemoryBudget != DefaultConfig().Pipeline.MemoryBudget {
		t.Errorf("expected default memory budget, got %d", cfg.Pipeline.MemoryBudget)
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		Pipeline: PipelineConfig{
			Mode:           string(job.ModeBatch),
			CallsPerMinute: 6,
		},
		Store: StoreConfig{
			DataDir: "/override/data",
		},
	}

	base.Merge(override)

	if base.Pipeline.Mode != string(job.ModeBatch) {
		t.Errorf("expected mode batch, got %s", base.Pipeline.Mode)
	}
	if base.Pipeline.CallsPerMinute != 6 {
		t.Errorf("expected calls_per_minute 6, got %d", base.Pipeline.CallsPerMinute)
	}
	// MinUnits should remain from base since override didn't set it
	if base.Pipeline.MinUnits != 2 {
		t.Errorf("expected min_units to remain default, got %d", base.Pipeline.MinUnits)
	}
	if base.Store.DataDir != "/override/data" {
		t.Errorf("expected data_dir /override/data, got %s", base.Store.DataDir)
	}
}

func TestRunnerConfigMapping(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pipeline.Mode = string(job.ModeBatch)
	cfg.Pipeline.MemoryBudget = 2048

	rc := cfg.RunnerConfig()
	if rc.Mode != job.ModeBatch {
		t.Errorf("expected batch mode, got %s", rc.Mode)
	}
	if rc.MemoryBudget != 2048 {
		t.Errorf("expected memory budget 2048, got %d", rc.MemoryBudget)
	}
	if err := rc.Validate(); err != nil {
		t.Errorf("mapped runner config must validate: %v", err)
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Store.DataDir = "/saved/data"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	// Verify file was created
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	// Load and verify
	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Store.DataDir != "/saved/data" {
		t.Errorf("expected data_dir /saved/data, got %s", loaded.Store.DataDir)
	}
}
