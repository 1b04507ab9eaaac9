package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/reconcile/pkg/reconcile/config"
	"github.com/jamesainslie/reconcile/pkg/reconcile/logging"
	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

// initializeLogging is the PersistentPreRunE hook for every command. It
// makes sure the XDG directories exist and points the logging package at
// the configured file before any command body runs.
func initializeLogging(cmd *cobra.Command, _ []string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	if err := config.EnsureDataDir(); err != nil {
		return err
	}
	if err := config.EnsureStateDir(); err != nil {
		return err
	}

	logCfg := logging.Config{
		Level: viper.GetString("logging.level"),
		Path:  viper.GetString("logging.path"),
		Rotation: parseRotationConfig(config.RotationConfig{
			MaxSize:    viper.GetString("logging.rotation.max_size"),
			MaxAge:     viper.GetInt("logging.rotation.max_age"),
			MaxBackups: viper.GetInt("logging.rotation.max_backups"),
			Daily:      viper.GetBool("logging.rotation.daily"),
		}),
		Components: viper.GetStringMapString("logging.components"),
	}
	if logCfg.Level == "" {
		logCfg.Level = "info"
	}
	if logCfg.Path == "" {
		logCfg.Path = config.DefaultLogPath()
	}

	// Verbose runs mirror component logs onto stderr, unless a TUI is
	// about to own the terminal.
	if getVerbose() {
		logCfg.Level = "debug"
		if !interactiveRequested(cmd) {
			logCfg.ConsoleLevel = "debug"
		}
	}

	return logging.Init(logCfg)
}

// interactiveRequested reports whether the command being run carries a set
// --interactive flag. Subcommands without the flag never do.
func interactiveRequested(cmd *cobra.Command) bool {
	if cmd == nil || cmd.Flags().Lookup("interactive") == nil {
		return false
	}
	interactive, _ := cmd.Flags().GetBool("interactive")
	return interactive
}

// parseRotationConfig converts the config package's string-valued rotation
// settings into the byte-valued form the logging package wants. Values
// that do not parse fall back to the defaults.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
	out := logging.DefaultRotationConfig()

	if rc.MaxSize != "" {
		if maxSize, err := types.ParseSize(rc.MaxSize); err == nil && maxSize > 0 {
			out.MaxSize = maxSize
		}
	}
	if rc.MaxAge > 0 {
		out.MaxAge = rc.MaxAge
	}
	if rc.MaxBackups > 0 {
		out.MaxBackups = rc.MaxBackups
	}
	out.Daily = rc.Daily

	return out
}
