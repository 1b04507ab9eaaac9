// Package config provides configuration management for the reconcile tool.
package config

// Default configuration values for reconcile.
const (
	// DefaultHashCap is the partial-hash cap: files at or above this size
	// are identified by their leading bytes only.
	DefaultHashCap = "10MiB"

	// DefaultFormat is the default report format.
	DefaultFormat = "text"

	// DefaultOutput is the default directory for generated scripts.
	DefaultOutput = "."

	// DefaultRetentionDays is the default number of days to retain run
	// history entries.
	DefaultRetentionDays = 30

	// DefaultWorkers selects automatic hash worker sizing.
	DefaultWorkers = 0
)

// DefaultExclusions contains file patterns that are never cataloged.
// These are sync artifacts and platform litter that would otherwise show
// up as spurious differences between trees.
var DefaultExclusions = []string{
	".DS_Store",
	".sync*",
	"*Thumbs.db",
}

// ValidFormats lists the accepted report formats.
var ValidFormats = []string{"text", "json", "yaml"}
