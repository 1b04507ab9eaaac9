package catalog

import (
	"context"
	"fmt"

	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

// hashWorker drains the walk queue. On cancellation it keeps draining
// without processing so the walk never blocks on a full queue.
func (b *Builder) hashWorker(ctx context.Context) {
	for item := range b.queue {
		if ctx.Err() != nil {
			continue
		}
		b.processFile(ctx, item)
	}
}

// processFile stats, hashes, and stores one walked file.
//
// The stored digest is reused when size and mtime are unchanged; records
// without a digest never qualify for reuse, so files skipped by an earlier
// size gate get hashed once a build needs them.
func (b *Builder) processFile(ctx context.Context, item walkItem) {
	info, err := item.d.Info()
	if err != nil {
		b.addError(item.path, err)
		return
	}

	size := info.Size()
	mtime := info.ModTime().UnixNano()
	b.currentPath.Store(item.path)

	if prior, ok := b.priorRecord(item.rel); ok && prior.Size == size && prior.Mtime == mtime && prior.Hashed() {
		b.markSeen(item.rel)
		b.filesReused.Add(1)
		b.reportProgress()
		return
	}

	rec := types.FileRecord{
		Tree:  b.tree,
		Path:  item.rel,
		Size:  size,
		Mtime: mtime,
	}

	if b.opts.SizeGate != nil && !b.opts.SizeGate[size] {
		// Gated out: no file in the other tree has this size, so the
		// content cannot match anything. Store the record unhashed.
		if prior, ok := b.priorRecord(item.rel); ok && prior.Size == size && prior.Mtime == mtime && !prior.Hashed() {
			b.markSeen(item.rel)
			b.reportProgress()
			return
		}
	} else {
		digest, n, err := b.hasher.Hash(ctx, item.path)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.addError(item.path, err)
			return
		}
		rec.Digest = digest
		b.filesHashed.Add(1)
		b.bytesHashed.Add(n)
	}

	if err := b.store.Put(rec); err != nil {
		b.setFatal(fmt.Errorf("store record %s:%s: %w", b.tree, item.rel, err))
		return
	}
	b.markSeen(item.rel)
	b.reportProgress()
}
