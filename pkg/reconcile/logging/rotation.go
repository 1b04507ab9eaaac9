package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// RotationConfig controls when the log file rolls over and how many
// rotated files survive.
type RotationConfig struct {
	// MaxSize is the rollover threshold in bytes. Zero falls back to
	// the default.
	MaxSize int64

	// MaxAge drops rotated files older than this many days. Zero keeps
	// them indefinitely.
	MaxAge int

	// MaxBackups caps how many rotated files are kept. Zero keeps all.
	MaxBackups int

	// Daily forces a rollover on the first write of a new day.
	Daily bool
}

// DefaultRotationConfig returns the rotation settings used when the
// config file does not say otherwise.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{
		MaxSize:    10 * 1024 * 1024,
		MaxAge:     30,
		MaxBackups: 5,
		Daily:      true,
	}
}

// backupStamp is the timestamp embedded in rotated file names:
// reconcile.log rolls over to reconcile.2024-01-20-150405.log.
const backupStamp = "2006-01-02-150405"

// RotatingWriter is an io.WriteCloser that rolls its file over by size
// and, optionally, once per day. Safe for concurrent use.
type RotatingWriter struct {
	path string
	cfg  RotationConfig

	mu     sync.Mutex
	file   *os.File
	size   int64
	opened time.Time
}

// NewRotatingWriter opens or creates the log file at path, creating
// parent directories as needed, and prunes rotated files that have
// already aged out.
func NewRotatingWriter(path string, cfg RotationConfig) (*RotatingWriter, error) {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultRotationConfig().MaxSize
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	w := &RotatingWriter{path: path, cfg: cfg}
	if err := w.open(); err != nil {
		return nil, err
	}
	w.prune()
	return w, nil
}

// Write appends p to the log file, rolling it over first when p would
// push it past the size limit or a new day has started.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.due(int64(len(p))) {
		if err := w.rotate(); err != nil {
			return 0, fmt.Errorf("rotating log file: %w", err)
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	if err != nil {
		return n, fmt.Errorf("writing to log file: %w", err)
	}
	return n, nil
}

// Close syncs and closes the underlying file.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("syncing log file: %w", err)
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *RotatingWriter) open() error {
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("stat log file: %w", err)
	}

	w.file = file
	w.size = info.Size()
	w.opened = info.ModTime()
	return nil
}

// due reports whether writing n more bytes calls for a rollover.
func (w *RotatingWriter) due(n int64) bool {
	if w.size+n > w.cfg.MaxSize {
		return true
	}
	return w.cfg.Daily && !sameDay(time.Now(), w.opened)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// rotate renames the live file to its timestamped backup name and opens
// a fresh one.
func (w *RotatingWriter) rotate() error {
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			return fmt.Errorf("closing current file: %w", err)
		}
		w.file = nil
	}

	if _, err := os.Stat(w.path); err == nil {
		if err := os.Rename(w.path, w.backupPath(time.Now())); err != nil {
			return fmt.Errorf("renaming log file: %w", err)
		}
	}

	if err := w.open(); err != nil {
		return err
	}
	w.opened = time.Now()

	w.prune()
	return nil
}

func (w *RotatingWriter) backupPath(t time.Time) string {
	ext := filepath.Ext(w.path)
	return fmt.Sprintf("%s.%s%s", strings.TrimSuffix(w.path, ext), t.Format(backupStamp), ext)
}

// prune deletes rotated files beyond MaxBackups or older than MaxAge.
// Errors are swallowed: a failed cleanup must not take logging down.
func (w *RotatingWriter) prune() {
	backups := w.backups()

	// Newest first, so the MaxBackups cut keeps the most recent files.
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].mod.After(backups[j].mod)
	})

	var cutoff time.Time
	if w.cfg.MaxAge > 0 {
		cutoff = time.Now().AddDate(0, 0, -w.cfg.MaxAge)
	}

	for i, b := range backups {
		overCount := w.cfg.MaxBackups > 0 && i >= w.cfg.MaxBackups
		tooOld := !cutoff.IsZero() && b.mod.Before(cutoff)
		if overCount || tooOld {
			_ = os.Remove(b.path)
		}
	}
}

type backup struct {
	path string
	mod  time.Time
}

// backups lists the rotated siblings of the live log file.
func (w *RotatingWriter) backups() []backup {
	dir := filepath.Dir(w.path)
	base := filepath.Base(w.path)
	ext := filepath.Ext(base)
	prefix := strings.TrimSuffix(base, ext) + "."

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var out []backup
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == base {
			continue
		}
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, backup{path: filepath.Join(dir, name), mod: info.ModTime()})
	}
	return out
}
