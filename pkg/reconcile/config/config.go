package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// ScriptConfig configures reconciliation script rendering.
type ScriptConfig struct {
	// Darwin switches copy commands from cp --parents to ditto.
	Darwin bool `mapstructure:"darwin"`

	// Output is the directory scripts are written to.
	Output string `mapstructure:"output"`
}

// HistoryConfig configures run history tracking.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// Config represents the application configuration.
type Config struct {
	DB         string        `mapstructure:"db"`
	HashCap    string        `mapstructure:"hash_cap"`
	Exclude    []string      `mapstructure:"exclude"`
	Workers    int           `mapstructure:"workers"`
	Format     string        `mapstructure:"format"`
	NoProgress bool          `mapstructure:"no_progress"`
	Script     ScriptConfig  `mapstructure:"script"`
	History    HistoryConfig `mapstructure:"history"`
	Logging    LoggingConfig `mapstructure:"logging"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/reconcile/config.yaml
//   - $HOME/.config/reconcile/config.yaml
//
// Environment variables are prefixed with RECONCILE_ (e.g., RECONCILE_HASH_CAP).
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and type
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Add config paths
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "reconcile"))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "reconcile"))

	// Set environment variable prefix and enable auto env binding
	v.SetEnvPrefix("RECONCILE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	v.SetDefault("db", DefaultDBPath())
	v.SetDefault("hash_cap", DefaultHashCap)
	v.SetDefault("exclude", DefaultExclusions)
	v.SetDefault("workers", DefaultWorkers)
	v.SetDefault("format", DefaultFormat)
	v.SetDefault("no_progress", false)
	v.SetDefault("script.darwin", false)
	v.SetDefault("script.output", DefaultOutput)
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", HistoryDir())
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means use DefaultLogPath
	v.SetDefault("logging.rotation.max_size", "10MiB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"catalog": "info",
		"compare": "info",
		"plan":    "info",
		"script":  "info",
		"cli":     "info",
	})

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is acceptable; we use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Expand ~ in user-supplied paths
	for _, p := range []*string{&cfg.DB, &cfg.History.Path, &cfg.Script.Output, &cfg.Logging.Path} {
		if strings.HasPrefix(*p, "~") {
			*p = filepath.Join(homeDir, (*p)[1:])
		}
	}

	return &cfg, nil
}

// Validate checks the configuration for values no component can work with.
func (c *Config) Validate() error {
	if !slices.Contains(ValidFormats, c.Format) {
		return fmt.Errorf("unknown format %q (valid: %s)", c.Format, strings.Join(ValidFormats, ", "))
	}
	if _, err := types.ParseSize(c.HashCap); err != nil {
		return fmt.Errorf("hash_cap: %w", err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if c.History.RetentionDays < 0 {
		return fmt.Errorf("history.retention_days must be >= 0, got %d", c.History.RetentionDays)
	}
	return nil
}

// HashCapBytes returns the parsed hash cap.
func (c *Config) HashCapBytes() (int64, error) {
	return types.ParseSize(c.HashCap)
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	// Check XDG_CONFIG_HOME first
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "reconcile"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "reconcile"), nil
}

// DataDir returns $XDG_DATA_HOME/reconcile/ for the catalog database.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "reconcile")
}

// StateDir returns $XDG_STATE_HOME/reconcile/ for logs and run history.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "reconcile")
}

// HistoryDir returns the default run history directory.
func HistoryDir() string {
	return filepath.Join(StateDir(), "history")
}

// DefaultDBPath returns the default catalog database path.
func DefaultDBPath() string {
	return filepath.Join(DataDir(), "catalog.db")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "reconcile.log")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// WriteDefault writes a default config file if none exists.
// Returns nil if a config file already exists.
func WriteDefault() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	configDir, err := ConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.yaml")

	// Check if config file already exists
	if _, err := os.Stat(configPath); err == nil {
		// Config file exists, do nothing
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# Reconcile Configuration

# Catalog database directory (Badger DB)
db: %s

# Partial-hash cap: files at or above this size are identified by
# their leading bytes only. Set to 0 to always hash whole files.
hash_cap: %s

# Patterns excluded from cataloging
exclude:
  - .DS_Store
  - .sync*
  - "*Thumbs.db"

# Hash worker count (0 = automatic)
workers: %d

# Report format: text, json, yaml
format: %s

# Script rendering
script:
  # Use ditto instead of cp --parents (macOS)
  darwin: false
  # Directory generated scripts are written to
  output: %s

# Run history
history:
  enabled: true
  path: %s
  retention_days: %d

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/reconcile/reconcile.log)
  path: ""
  # Log rotation settings
  rotation:
    max_size: 10MiB
    max_age: 30       # days
    max_backups: 5
    daily: true
  # Per-component log levels
  components:
    catalog: info
    compare: info
    plan: info
    script: info
    cli: info
`, DefaultDBPath(), DefaultHashCap, DefaultWorkers, DefaultFormat, DefaultOutput, HistoryDir(), DefaultRetentionDays)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}

	return nil
}
