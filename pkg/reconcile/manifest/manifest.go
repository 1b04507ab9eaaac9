package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manifest manages run history entries on the filesystem.
type Manifest struct {
	dir string
	mu  sync.Mutex
}

// New creates a new Manifest with the given directory.
// The directory is not created until EnsureDir is called.
func New(dir string) (*Manifest, error) {
	if dir == "" {
		return nil, errors.New("manifest directory cannot be empty")
	}
	return &Manifest{dir: dir}, nil
}

// EnsureDir creates the manifest directory if it does not exist.
func (m *Manifest) EnsureDir() error {
	return os.MkdirAll(m.dir, 0o755)
}

// Log assigns the entry an ID and timestamp and persists it.
func (m *Manifest) Log(entry Entry) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.Timestamp = time.Now().UTC()
	entry.ID = generateID(entry.Operation)

	if err := m.writeEntry(&entry); err != nil {
		return nil, fmt.Errorf("failed to write manifest entry: %w", err)
	}

	return &entry, nil
}

// writeEntry writes an entry to a JSON file in the manifest directory.
func (m *Manifest) writeEntry(entry *Entry) error {
	filePath := filepath.Join(m.dir, entry.ID+".json")

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	// Write atomically using a temp file and rename
	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// List returns all entries sorted by timestamp descending (newest first).
// If limit is 0 or negative, all entries are returned.
func (m *Manifest) List(limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	files, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read manifest directory: %w", err)
	}

	var entries []Entry
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}

		entry, err := m.readEntryFile(f.Name())
		if err != nil {
			// Skip files that can't be parsed
			continue
		}
		entries = append(entries, *entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	if entries == nil {
		entries = []Entry{}
	}

	return entries, nil
}

// Get retrieves an entry by ID. A unique ID prefix is accepted, so
// "dedup-2024-06-15T10-30-00" finds the run without its random suffix.
func (m *Manifest) Get(id string) (*Entry, error) {
	if id == "" {
		return nil, errors.New("entry ID cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Exact IDs map directly to their file
	if entry, err := m.readEntryFile(id + ".json"); err == nil {
		return entry, nil
	}

	files, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("entry not found: %s", id)
		}
		return nil, fmt.Errorf("failed to read manifest directory: %w", err)
	}

	var match *Entry
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		if !strings.HasPrefix(f.Name(), id) {
			continue
		}

		entry, err := m.readEntryFile(f.Name())
		if err != nil {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("ambiguous entry ID prefix: %s", id)
		}
		match = entry
	}

	if match == nil {
		return nil, fmt.Errorf("entry not found: %s", id)
	}
	return match, nil
}

// readEntryFile reads and parses a manifest entry from a JSON file.
func (m *Manifest) readEntryFile(filename string) (*Entry, error) {
	filePath := filepath.Join(m.dir, filename)

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}

	return &entry, nil
}

// Cleanup removes entries older than retentionDays.
func (m *Manifest) Cleanup(retentionDays int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	files, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read manifest directory: %w", err)
	}

	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}

		info, err := f.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			// Best effort; a locked file is retried on the next cleanup
			_ = os.Remove(filepath.Join(m.dir, f.Name()))
		}
	}

	return nil
}

// generateID creates a unique ID like "sync-2024-06-15T10-30-00-1b9d6bcd".
func generateID(op Operation) string {
	ts := time.Now().UTC().Format("2006-01-02T15-04-05")
	return fmt.Sprintf("%s-%s-%s", op, ts, uuid.NewString()[:8])
}
