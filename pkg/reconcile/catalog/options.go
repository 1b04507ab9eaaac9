// Package catalog builds persistent file catalogs from directory trees.
// It walks a tree with parallel hash workers, stores one record per regular
// file, and converges the stored catalog to the filesystem on every run:
// unchanged files keep their records, changed files are rehashed, and
// records for vanished files are pruned.
package catalog

import (
	"runtime"

	"github.com/jamesainslie/reconcile/pkg/reconcile/hasher"
	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

// Options configures a catalog build.
type Options struct {
	// Exclude contains glob patterns for paths to skip, matched against
	// base names and tree-relative paths. The default exclusions are
	// always applied in addition to these.
	Exclude []string

	// Workers is the number of concurrent hash workers.
	// Zero selects an automatic count based on available CPUs.
	Workers int

	// HashCap is the partial-hash cap in bytes. Files at or above the cap
	// have only their leading HashCap bytes hashed. Zero hashes whole
	// files regardless of size.
	HashCap int64

	// Rescan drops the tree's existing catalog before walking, forcing
	// every file to be rehashed.
	Rescan bool

	// SizeGate, when non-nil, restricts hashing to files whose size is a
	// key of the map. Other files are cataloged without a digest. Used by
	// absorb runs, where only sizes present in the other tree can matter.
	SizeGate map[int64]bool

	// OnProgress is called periodically with build progress updates.
	// It must be safe to call from multiple goroutines.
	OnProgress func(types.Progress)
}

// DefaultOptions returns options with sensible defaults for most systems.
func DefaultOptions() Options {
	return Options{
		Workers: 0,
		HashCap: hasher.DefaultCap,
	}
}

// Validate checks the options and applies defaults for invalid values.
func (o *Options) Validate() error {
	if o.Workers < 1 {
		o.Workers = autoWorkers()
	}
	if o.HashCap < 0 {
		o.HashCap = 0
	}
	return nil
}

// autoWorkers sizes the hash worker pool from the CPU count. Hashing is
// I/O bound as often as CPU bound, so the pool is kept small.
func autoWorkers() int {
	n := runtime.NumCPU()
	if n < 2 {
		return 2
	}
	if n > 8 {
		return 8
	}
	return n
}
