// Package manifest records reconcile runs as JSON entries on disk.
package manifest

import "time"

// Operation identifies what a run produced. Combined runs join modes
// with "+" (e.g. "dedup+sync").
type Operation string

const (
	// OpReport is a report-only run.
	OpReport Operation = "report"
	// OpDedup is a duplicate-removal planning run.
	OpDedup Operation = "dedup"
	// OpSync is a sync planning run.
	OpSync Operation = "sync"
	// OpConsolidate is a consolidate planning run.
	OpConsolidate Operation = "consolidate"
	// OpAbsorb is an absorb planning run.
	OpAbsorb Operation = "absorb"
)

// Roots records the two tree roots a run compared.
type Roots struct {
	A string `json:"a"`
	B string `json:"b"`
}

// Counts carries the comparison bucket sizes of a run.
type Counts struct {
	Identical       int `json:"identical"`
	Modified        int `json:"modified"`
	Moved           int `json:"moved"`
	OnlyInA         int `json:"only_in_a"`
	OnlyInB         int `json:"only_in_b"`
	DuplicateGroups int `json:"duplicate_groups"`
}

// Summary aggregates the planned work of a run.
type Summary struct {
	Operations  int   `json:"operations"`
	BytesCopied int64 `json:"bytes_copied"`
	BytesFreed  int64 `json:"bytes_freed"`
}

// Entry represents a single recorded run.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Operation Operation `json:"operation"`
	Roots     Roots     `json:"roots"`
	Counts    Counts    `json:"counts"`
	Scripts   []string  `json:"scripts,omitempty"`
	Summary   Summary   `json:"summary"`
}
