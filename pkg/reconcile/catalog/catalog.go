package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/reconcile/pkg/reconcile/config"
	"github.com/jamesainslie/reconcile/pkg/reconcile/hasher"
	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

// Store is the catalog persistence the builder needs. *store.Store
// satisfies it.
type Store interface {
	Put(rec types.FileRecord) error
	GetAll(tree types.TreeID) ([]types.FileRecord, error)
	DeletePath(tree types.TreeID, path string) error
	DropTree(tree types.TreeID) error
}

// Builder performs one catalog build. Create a new Builder per build.
type Builder struct {
	opts    Options
	store   Store
	hasher  *hasher.Hasher
	exclude []string

	tree types.TreeID
	root string

	// Atomic counters for thread-safe progress reporting.
	filesSeen   atomic.Int64
	filesHashed atomic.Int64
	filesReused atomic.Int64
	bytesHashed atomic.Int64

	// currentPath is the path currently being processed (for progress).
	currentPath atomic.Value

	// errors collects per-file errors without stopping the build.
	errors   []types.ScanError
	errorsMu sync.Mutex

	// prior holds the tree's stored records at build start, keyed by path.
	prior map[string]types.FileRecord

	// seen tracks paths successfully cataloged during this build.
	seen   map[string]struct{}
	seenMu sync.Mutex

	// fatalErr holds the first store failure; it aborts the build.
	fatalErr error
	fatalMu  sync.Mutex

	// queue feeds walked files to the hash workers.
	queue chan walkItem

	// cancel stops the walk and workers on a fatal error.
	cancel context.CancelFunc

	// lastProgress tracks when progress was last reported.
	lastProgress atomic.Int64

	// walkComplete indicates traversal is finished (pruning may be ongoing).
	walkComplete atomic.Bool
}

// walkItem is one regular file handed from the walk to a hash worker.
type walkItem struct {
	path string
	rel  string
	d    fs.DirEntry
}

// New creates a Builder writing to the given store.
// Options are validated and defaults are applied.
func New(st Store, opts Options) *Builder {
	_ = opts.Validate()

	b := &Builder{
		opts:    opts,
		store:   st,
		hasher:  hasher.New(opts.HashCap),
		exclude: append(append([]string{}, config.DefaultExclusions...), opts.Exclude...),
		errors:  make([]types.ScanError, 0),
		prior:   make(map[string]types.FileRecord),
		seen:    make(map[string]struct{}),
	}
	b.currentPath.Store("")
	return b
}

// Build catalogs the tree rooted at root. It blocks until the walk and all
// hash workers finish or the context is cancelled. Per-file errors are
// collected on the result; store errors abort the build.
func (b *Builder) Build(ctx context.Context, tree types.TreeID, root string) (*types.BuildResult, error) {
	startTime := time.Now()

	if err := tree.Validate(); err != nil {
		return nil, err
	}
	absRoot, err := validateRoot(root)
	if err != nil {
		return nil, err
	}
	b.tree = tree
	b.root = absRoot

	if err := b.loadPrior(); err != nil {
		return nil, err
	}

	b.currentPath.Store(absRoot)
	b.reportProgressForce()

	if err := b.executeWalk(ctx); err != nil {
		return nil, err
	}
	if err := b.fatal(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		// A cancelled build leaves a partial catalog; the next run
		// converges it.
		return nil, err
	}

	b.walkComplete.Store(true)
	b.currentPath.Store("(pruning stale records)")
	b.reportProgressForce()

	removed, err := b.pruneStale()
	if err != nil {
		return nil, err
	}

	return &types.BuildResult{
		Tree:         tree,
		Root:         absRoot,
		FilesSeen:    b.filesSeen.Load(),
		FilesHashed:  b.filesHashed.Load(),
		FilesReused:  b.filesReused.Load(),
		FilesRemoved: removed,
		BytesHashed:  b.bytesHashed.Load(),
		Elapsed:      time.Since(startTime),
		Errors:       b.errors,
	}, nil
}

// loadPrior populates the prior-record map, or drops the tree on rescan.
func (b *Builder) loadPrior() error {
	if b.opts.Rescan {
		if err := b.store.DropTree(b.tree); err != nil {
			return fmt.Errorf("drop catalog %s: %w", b.tree, err)
		}
		return nil
	}

	records, err := b.store.GetAll(b.tree)
	if err != nil {
		return fmt.Errorf("load catalog %s: %w", b.tree, err)
	}
	for _, rec := range records {
		b.prior[rec.Path] = rec
	}
	return nil
}

// executeWalk runs fastwalk over the root with the hash workers attached.
func (b *Builder) executeWalk(ctx context.Context) error {
	conf := fastwalk.Config{
		Follow: false, // Don't follow symlinks.
	}

	walkCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	b.cancel = cancel

	done := make(chan struct{})
	go func() {
		<-walkCtx.Done()
		close(done)
	}()

	b.queue = make(chan walkItem, 1024)

	var wg sync.WaitGroup
	for range b.opts.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.hashWorker(walkCtx)
		}()
	}

	walkErr := fastwalk.Walk(&conf, b.root, b.walkCallback(done))
	close(b.queue)
	wg.Wait()

	if walkErr != nil && !errors.Is(walkErr, context.Canceled) && !errors.Is(walkErr, fastwalk.ErrSkipFiles) {
		return walkErr
	}
	return nil
}

// walkCallback returns the callback function for fastwalk.Walk.
func (b *Builder) walkCallback(done <-chan struct{}) fs.WalkDirFunc {
	return func(p string, d fs.DirEntry, err error) error {
		// Check for cancellation.
		select {
		case <-done:
			return fastwalk.ErrSkipFiles
		default:
		}

		// Handle errors gracefully - record and continue.
		if err != nil {
			b.addError(p, err)
			return nil
		}

		rel, relErr := b.relPath(p)
		if relErr != nil {
			b.addError(p, relErr)
			return nil
		}
		if rel == "" {
			// The root itself.
			return nil
		}

		// Check exclusions.
		if b.isExcluded(rel) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		// Directories are traversed but not cataloged.
		if d.IsDir() {
			b.currentPath.Store(p)
			b.reportProgress()
			return nil
		}

		// Symlinks, sockets, and devices are skipped.
		if !d.Type().IsRegular() {
			return nil
		}

		b.filesSeen.Add(1)
		select {
		case b.queue <- walkItem{path: p, rel: rel, d: d}:
		case <-done:
			return fastwalk.ErrSkipFiles
		}
		return nil
	}
}

// pruneStale deletes records whose paths were not seen during the walk.
func (b *Builder) pruneStale() (int64, error) {
	var removed int64
	for p := range b.prior {
		if _, ok := b.seen[p]; ok {
			continue
		}
		if err := b.store.DeletePath(b.tree, p); err != nil {
			return removed, fmt.Errorf("prune %s:%s: %w", b.tree, p, err)
		}
		removed++
	}
	return removed, nil
}

// validateRoot resolves the root path to absolute and verifies it is a
// directory.
func validateRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s: %w", abs, os.ErrInvalid)
	}

	return abs, nil
}

// relPath converts an absolute walk path into catalog form.
// The root itself maps to the empty string.
func (b *Builder) relPath(p string) (string, error) {
	if p == b.root {
		return "", nil
	}
	rel, err := filepath.Rel(b.root, p)
	if err != nil {
		return "", err
	}
	return types.NormalizePath(rel)
}

// isExcluded checks if a relative path matches any exclusion pattern.
func (b *Builder) isExcluded(rel string) bool {
	base := path.Base(rel)
	for _, pattern := range b.exclude {
		if matchesExclusionPattern(rel, base, pattern) {
			return true
		}
	}
	return false
}

// matchesExclusionPattern checks one relative path against one pattern.
func matchesExclusionPattern(rel, base, pattern string) bool {
	if pattern == "" {
		return false
	}

	// Path-prefix match (for directory patterns like "vendor" or "a/b").
	if rel == pattern || strings.HasPrefix(rel, pattern+"/") {
		return true
	}

	// Glob match against the base name.
	if matched, err := path.Match(pattern, base); err == nil && matched {
		return true
	}

	// Glob match against the full relative path.
	if matched, err := path.Match(pattern, rel); err == nil && matched {
		return true
	}

	return false
}

// markSeen records a successfully cataloged path thread-safely.
func (b *Builder) markSeen(rel string) {
	b.seenMu.Lock()
	b.seen[rel] = struct{}{}
	b.seenMu.Unlock()
}

// priorRecord looks up the stored record for a path, if any.
// The prior map is read-only during the walk.
func (b *Builder) priorRecord(rel string) (types.FileRecord, bool) {
	rec, ok := b.prior[rel]
	return rec, ok
}

// addError adds a per-file error to the error list thread-safely.
func (b *Builder) addError(p string, err error) {
	b.errorsMu.Lock()
	b.errors = append(b.errors, types.ScanError{
		Path:  p,
		Error: err.Error(),
	})
	b.errorsMu.Unlock()
}

// setFatal records the first fatal error and stops the build.
func (b *Builder) setFatal(err error) {
	b.fatalMu.Lock()
	if b.fatalErr == nil {
		b.fatalErr = err
	}
	b.fatalMu.Unlock()
	if b.cancel != nil {
		b.cancel()
	}
}

// fatal returns the recorded fatal error, if any.
func (b *Builder) fatal() error {
	b.fatalMu.Lock()
	defer b.fatalMu.Unlock()
	return b.fatalErr
}

// reportProgress calls the progress callback if configured.
// Throttles calls to avoid excessive overhead.
func (b *Builder) reportProgress() {
	if b.opts.OnProgress == nil {
		return
	}

	// Throttle progress updates to every 10ms.
	now := time.Now().UnixMilli()
	last := b.lastProgress.Load()
	if now-last < 10 {
		return
	}
	if !b.lastProgress.CompareAndSwap(last, now) {
		return // Another goroutine updated it.
	}

	b.sendProgress()
}

// reportProgressForce calls the progress callback immediately, bypassing
// the throttle. Use for state changes like build start and end.
func (b *Builder) reportProgressForce() {
	if b.opts.OnProgress == nil {
		return
	}
	b.lastProgress.Store(time.Now().UnixMilli())
	b.sendProgress()
}

// sendProgress sends the current progress to the callback.
func (b *Builder) sendProgress() {
	currentPath, _ := b.currentPath.Load().(string)

	b.opts.OnProgress(types.Progress{
		Tree:         b.tree,
		FilesSeen:    b.filesSeen.Load(),
		FilesHashed:  b.filesHashed.Load(),
		BytesHashed:  b.bytesHashed.Load(),
		CurrentPath:  currentPath,
		WalkComplete: b.walkComplete.Load(),
	})
}
