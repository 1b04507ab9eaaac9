// Package types provides core data types for the reconcile catalog engine.
// It defines the tree identifiers, the cataloged file record, scan results,
// and utility functions for parsing and formatting file sizes and for
// validating catalog paths and content digests.
package types

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Size constants for binary (IEC) units.
const (
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
	TiB int64 = 1024 * GiB
)

// TreeID identifies which of the two compared trees a record belongs to.
type TreeID string

// The two trees every catalog operation works against.
const (
	// TreeA is the left-hand tree, the one reconciliation scripts modify.
	TreeA TreeID = "a"

	// TreeB is the right-hand tree, treated as read-only by default.
	TreeB TreeID = "b"
)

// ErrInvalidTree indicates a tree identifier other than TreeA or TreeB.
var ErrInvalidTree = errors.New("invalid tree id")

// ErrInvalidPath indicates a catalog path that is absolute, escapes the
// tree root, or is empty.
var ErrInvalidPath = errors.New("invalid catalog path")

// Validate returns ErrInvalidTree unless the id is TreeA or TreeB.
func (t TreeID) Validate() error {
	switch t {
	case TreeA, TreeB:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTree, string(t))
	}
}

// Other returns the opposite tree identifier.
func (t TreeID) Other() TreeID {
	if t == TreeA {
		return TreeB
	}
	return TreeA
}

// String implements fmt.Stringer.
func (t TreeID) String() string { return string(t) }

// FileRecord is one cataloged file: a snapshot of its identity within a tree.
// Records are what the store persists and what comparison operates on.
type FileRecord struct {
	// Tree identifies which tree the file was cataloged from.
	Tree TreeID `json:"tree"`

	// Path is the file's path relative to the tree root, slash-separated
	// and cleaned. Never absolute, never contains ".." segments.
	Path string `json:"path"`

	// Size is the file size in bytes at catalog time.
	Size int64 `json:"size"`

	// Digest is the lowercase hex SHA-256 of the file content, subject to
	// the hasher's partial-read cap. Empty means the file has not been
	// hashed (size-gated catalog builds leave gated-out files unhashed).
	Digest string `json:"digest,omitempty"`

	// Mtime is the file's modification time in Unix nanoseconds, used to
	// decide whether a stored digest can be reused on a later build.
	Mtime int64 `json:"mtime"`
}

// HumanSize returns the record's size formatted as a human-readable string.
func (r *FileRecord) HumanSize() string {
	return FormatSize(r.Size)
}

// Hashed reports whether the record carries a content digest.
func (r *FileRecord) Hashed() bool { return r.Digest != "" }

// ScanError represents an error encountered while walking or hashing.
// It pairs a file path with the error message for reporting; scan errors
// never abort a catalog build.
type ScanError struct {
	// Path is the file or directory path where the error occurred.
	Path string `json:"path"`

	// Error is the error message describing what went wrong.
	Error string `json:"error"`
}

// Progress reports real-time catalog build progress.
type Progress struct {
	// Tree identifies the tree being cataloged.
	Tree TreeID `json:"tree"`

	// FilesSeen is the number of files encountered by the walk so far.
	FilesSeen int64 `json:"files_seen"`

	// FilesHashed is the number of files hashed so far.
	FilesHashed int64 `json:"files_hashed"`

	// BytesHashed is the total bytes read for hashing so far.
	BytesHashed int64 `json:"bytes_hashed"`

	// CurrentPath is the path currently being processed.
	CurrentPath string `json:"current_path"`

	// WalkComplete indicates that directory traversal is finished and
	// only hash workers are still draining.
	WalkComplete bool `json:"walk_complete,omitempty"`
}

// BuildResult contains the aggregated results of one catalog build.
type BuildResult struct {
	// Tree identifies the cataloged tree.
	Tree TreeID `json:"tree"`

	// Root is the absolute root directory that was walked.
	Root string `json:"root"`

	// FilesSeen is the total number of files the walk encountered.
	FilesSeen int64 `json:"files_seen"`

	// FilesHashed is the number of files whose content was read and hashed.
	FilesHashed int64 `json:"files_hashed"`

	// FilesReused is the number of files whose stored digest was reused
	// because size and mtime were unchanged.
	FilesReused int64 `json:"files_reused"`

	// FilesRemoved is the number of stale records dropped because their
	// paths no longer exist in the tree.
	FilesRemoved int64 `json:"files_removed"`

	// BytesHashed is the total bytes read for hashing.
	BytesHashed int64 `json:"bytes_hashed"`

	// Elapsed is the total build duration.
	Elapsed time.Duration `json:"elapsed"`

	// Errors contains per-file errors that were skipped over.
	Errors []ScanError `json:"errors,omitempty"`
}

// digestPattern matches a full lowercase hex SHA-256 digest.
var digestPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// ValidDigest reports whether s is a complete lowercase hex SHA-256 digest.
func ValidDigest(s string) bool {
	return digestPattern.MatchString(s)
}

// NormalizePath cleans a tree-relative path into catalog form: forward
// slashes, no leading "./", no trailing slash. It returns ErrInvalidPath
// for empty, absolute, or root-escaping paths.
func NormalizePath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	p = filepath.ToSlash(p)
	if path.IsAbs(p) || filepath.IsAbs(p) {
		return "", fmt.Errorf("%w: absolute: %q", ErrInvalidPath, p)
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: escapes root: %q", ErrInvalidPath, p)
	}
	return cleaned, nil
}

// sizePattern matches size strings like "100M", "2G", "500K", "1.5GB", etc.
var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([KMGT]?(?:i?B)?)\s*$`)

// ErrInvalidSize indicates that the size string could not be parsed.
var ErrInvalidSize = errors.New("invalid size format")

// ErrNegativeSize indicates that a negative size value was provided.
var ErrNegativeSize = errors.New("size cannot be negative")

// ParseSize parses a human-readable size string and returns the size in bytes.
// It supports the following formats:
//   - Plain bytes: "1024", "0"
//   - With byte suffix: "512B", "512b"
//   - Kilobytes: "100K", "100k", "100KB", "100KiB"
//   - Megabytes: "50M", "50m", "50MB", "50MiB"
//   - Gigabytes: "2G", "2g", "2GB", "2GiB"
//   - Terabytes: "1T", "1t", "1TB", "1TiB"
//
// Decimal values are supported and truncated to the nearest byte.
// Leading and trailing whitespace is ignored.
//
// Returns ErrInvalidSize if the format is not recognized.
// Returns ErrNegativeSize if the value is negative.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}

	// Check for negative values
	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeSize
	}

	matches := sizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	// Parse the numeric value
	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	// Determine the multiplier based on the suffix
	suffix := strings.ToUpper(matches[2])
	// Remove 'B' or 'IB' suffix to get just the unit letter
	suffix = strings.TrimSuffix(suffix, "IB")
	suffix = strings.TrimSuffix(suffix, "B")

	var multiplier int64
	switch suffix {
	case "":
		multiplier = 1
	case "K":
		multiplier = KiB
	case "M":
		multiplier = MiB
	case "G":
		multiplier = GiB
	case "T":
		multiplier = TiB
	default:
		return 0, fmt.Errorf("%w: unknown suffix %q", ErrInvalidSize, suffix)
	}

	return int64(value * float64(multiplier)), nil
}

// FormatSize converts a size in bytes to a human-readable string.
// It uses binary (IEC) units (KiB, MiB, GiB, TiB) for consistency
// with common filesystem tools.
func FormatSize(bytes int64) string {
	return humanize.IBytes(uint64(bytes))
}
