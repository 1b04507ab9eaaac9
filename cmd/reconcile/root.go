package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/reconcile/pkg/reconcile/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "reconcile [flags] DIR_A DIR_B",
		Short: "Compare two directory trees and plan their reconciliation",
		Long: `Reconcile catalogs two directory trees by content digest, compares the
catalogs, and plans deduplication, synchronization, or consolidation as
a reviewable shell script. It never modifies files itself: every change
lives in a generated script until you run it.

Tree A is yours to change; tree B is read-only unless --mutate-source.

Examples:
  reconcile ~/photos /mnt/backup/photos      # Report the differences
  reconcile --dedup -i ~/photos /mnt/backup  # Pick dedup keepers in a TUI
  reconcile --sync --move /mnt/a /mnt/b      # Write sync.sh preferring mv
  reconcile --absorb ~/inbox /mnt/library    # What does A lack from B?
  reconcile lookup 8f3ab012                  # Which files carry this digest?
  reconcile history                          # Past runs`,
		Args:              cobra.ExactArgs(2),
		PersistentPreRunE: initializeLogging,
		RunE:              runReconcile,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/reconcile/config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "catalog database directory (default: XDG data dir)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	// Mode flags; any combination, none means --report
	rootCmd.Flags().Bool("report", false, "print the comparison report (default)")
	rootCmd.Flags().Bool("dedup", false, "plan duplicate removal, write dedup.sh")
	rootCmd.Flags().Bool("sync", false, "plan B-to-A synchronization, write sync.sh")
	rootCmd.Flags().Bool("consolidate", false, "plan a full merge into A, write consolidate.sh")
	rootCmd.Flags().Bool("absorb", false, "plan copying what A lacks from B, write absorb.sh")

	// Planning behavior
	rootCmd.Flags().Bool("move", false, "prefer mv over cp where the source is expendable")
	rootCmd.Flags().Bool("two-way", false, "sync in both directions")
	rootCmd.Flags().Bool("mutate-source", false, "allow operations that consume tree B")
	rootCmd.Flags().Bool("across-trees", false, "deduplicate across both trees")
	rootCmd.Flags().BoolP("interactive", "i", false, "pick dedup keepers in a TUI (requires --dedup)")

	// Catalog behavior
	rootCmd.Flags().Bool("rescan", false, "drop both catalogs and rehash everything")
	rootCmd.Flags().StringSliceP("exclude", "e", nil, "exclude patterns (can be specified multiple times)")
	rootCmd.Flags().IntP("workers", "w", 0, "hash worker count (0=auto)")
	rootCmd.Flags().String("hash-cap", "", "partial-hash cap, e.g. 10MiB (0 hashes whole files)")

	// Output
	rootCmd.Flags().StringP("output", "o", "", "directory generated scripts are written to")
	rootCmd.Flags().StringP("format", "f", "", "report format: text, json, yaml")
	rootCmd.Flags().Bool("no-progress", false, "disable the progress bar")

	// Bind flags to viper
	_ = viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("exclude", rootCmd.Flags().Lookup("exclude"))
	_ = viper.BindPFlag("workers", rootCmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("hash_cap", rootCmd.Flags().Lookup("hash-cap"))
	_ = viper.BindPFlag("script.output", rootCmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("format", rootCmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("no_progress", rootCmd.Flags().Lookup("no-progress"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Set config name and type
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		// Add config paths in order of precedence
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			viper.AddConfigPath(filepath.Join(xdgConfigHome, "reconcile"))
		}

		homeDir, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(homeDir, ".config", "reconcile"))
		}
	}

	// Set environment variable prefix and enable auto env binding
	viper.SetEnvPrefix("RECONCILE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// Set defaults from config package
	viper.SetDefault("db", config.DefaultDBPath())
	viper.SetDefault("hash_cap", config.DefaultHashCap)
	viper.SetDefault("exclude", config.DefaultExclusions)
	viper.SetDefault("workers", config.DefaultWorkers)
	viper.SetDefault("format", config.DefaultFormat)
	viper.SetDefault("no_progress", false)
	viper.SetDefault("script.darwin", false)
	viper.SetDefault("script.output", config.DefaultOutput)
	viper.SetDefault("history.enabled", true)
	viper.SetDefault("history.path", config.HistoryDir())
	viper.SetDefault("history.retention_days", config.DefaultRetentionDays)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.path", "")
	viper.SetDefault("logging.rotation.max_size", "10MiB")
	viper.SetDefault("logging.rotation.max_age", 30)
	viper.SetDefault("logging.rotation.max_backups", 5)
	viper.SetDefault("logging.rotation.daily", true)
	viper.SetDefault("logging.components", map[string]string{})

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
