package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

func TestLoad_Defaults(t *testing.T) {
	// Use a temp directory that doesn't have a config file
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HashCap != DefaultHashCap {
		t.Errorf("HashCap = %q, want %q", cfg.HashCap, DefaultHashCap)
	}

	if cfg.Format != DefaultFormat {
		t.Errorf("Format = %q, want %q", cfg.Format, DefaultFormat)
	}

	if cfg.Workers != DefaultWorkers {
		t.Errorf("Workers = %d, want %d", cfg.Workers, DefaultWorkers)
	}

	if !cfg.History.Enabled {
		t.Error("History.Enabled = false, want true")
	}

	if cfg.History.RetentionDays != DefaultRetentionDays {
		t.Errorf("History.RetentionDays = %d, want %d", cfg.History.RetentionDays, DefaultRetentionDays)
	}

	if len(cfg.Exclude) != len(DefaultExclusions) {
		t.Errorf("len(Exclude) = %d, want %d", len(cfg.Exclude), len(DefaultExclusions))
	}

	if cfg.Script.Darwin {
		t.Error("Script.Darwin = true, want false")
	}
}

func TestLoad_FromFile(t *testing.T) {
	tempDir := t.TempDir()
	configDir := filepath.Join(tempDir, ".config", "reconcile")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	configContent := `
db: /custom/catalog.db
hash_cap: 32MiB
exclude:
  - "*.tmp"
workers: 4
format: yaml
script:
  darwin: true
  output: /custom/scripts
history:
  enabled: false
  retention_days: 7
logging:
  level: debug
`
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DB != "/custom/catalog.db" {
		t.Errorf("DB = %q", cfg.DB)
	}
	if cfg.HashCap != "32MiB" {
		t.Errorf("HashCap = %q, want 32MiB", cfg.HashCap)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if cfg.Format != "yaml" {
		t.Errorf("Format = %q, want yaml", cfg.Format)
	}
	if !cfg.Script.Darwin {
		t.Error("Script.Darwin = false, want true")
	}
	if cfg.Script.Output != "/custom/scripts" {
		t.Errorf("Script.Output = %q", cfg.Script.Output)
	}
	if cfg.History.Enabled {
		t.Error("History.Enabled = true, want false")
	}
	if cfg.History.RetentionDays != 7 {
		t.Errorf("History.RetentionDays = %d, want 7", cfg.History.RetentionDays)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("RECONCILE_HASH_CAP", "1GiB")
	t.Setenv("RECONCILE_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HashCap != "1GiB" {
		t.Errorf("HashCap = %q, want 1GiB from env", cfg.HashCap)
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q, want json from env", cfg.Format)
	}
}

func TestLoad_TildeExpansion(t *testing.T) {
	tempDir := t.TempDir()
	configDir := filepath.Join(tempDir, ".config", "reconcile")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("db: ~/catalogs/main.db\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := filepath.Join(tempDir, "catalogs", "main.db")
	if cfg.DB != want {
		t.Errorf("DB = %q, want %q", cfg.DB, want)
	}
}

func TestValidate(t *testing.T) {
	valid := Config{HashCap: "10MiB", Format: "text"}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	tests := []struct {
		name string
		mut  func(*Config)
	}{
		{"bad format", func(c *Config) { c.Format = "xml" }},
		{"bad hash cap", func(c *Config) { c.HashCap = "lots" }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
		{"negative retention", func(c *Config) { c.History.RetentionDays = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mut(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestHashCapBytes(t *testing.T) {
	cfg := Config{HashCap: "10MiB"}
	got, err := cfg.HashCapBytes()
	if err != nil {
		t.Fatalf("HashCapBytes() error = %v", err)
	}
	if got != 10*types.MiB {
		t.Errorf("HashCapBytes() = %d, want %d", got, 10*types.MiB)
	}
}

func TestWriteDefault(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tempDir, "xdgconf"))

	if err := WriteDefault(); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	configPath := filepath.Join(tempDir, "xdgconf", "reconcile", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if len(data) == 0 {
		t.Error("config file is empty")
	}

	// Second call must not fail or truncate the existing file.
	if err := WriteDefault(); err != nil {
		t.Fatalf("WriteDefault() second call error = %v", err)
	}
	again, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("config file missing after second call: %v", err)
	}
	if string(again) != string(data) {
		t.Error("existing config file was modified")
	}
}
