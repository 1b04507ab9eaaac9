package plan

import (
	"github.com/jamesainslie/reconcile/pkg/reconcile/compare"
	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

// PlanSync plans the operations that make tree A hold everything tree B
// holds. Files only in B are copied across at their relative paths.
// Moved pairs are recreated from A's own copy: the content is already
// there, so nothing is re-read from B. Modified pairs are left alone;
// which side wins is a human decision.
//
// With Move set, relocations become moves. A move that would consume a
// B-side source degrades to a copy unless MutateSource is set, and the
// plan's Degraded counter records it. With TwoWay set, tree B likewise
// gains what only A has; all two-way operations are copies, since a move
// in either direction would leave the trees chasing each other's layout.
func PlanSync(d *compare.Diff, opts Options) *Plan {
	p := &Plan{Mode: ModeSync}
	move := opts.Move && !opts.TwoWay

	for _, r := range d.OnlyInB {
		kind := types.OpCopy
		if move {
			if opts.MutateSource {
				kind = types.OpMove
			} else {
				p.Degraded++
			}
		}
		p.add(types.Op{
			Kind:    kind,
			SrcTree: types.TreeB,
			SrcPath: r.Path,
			DstTree: types.TreeA,
			DstPath: r.Path,
			Digest:  r.Digest,
			Size:    r.Size,
		})
	}

	for _, pr := range d.Moved {
		kind := types.OpCopy
		if move {
			kind = types.OpMove
		}
		p.add(types.Op{
			Kind:    kind,
			SrcTree: types.TreeA,
			SrcPath: pr.A.Path,
			DstTree: types.TreeA,
			DstPath: pr.B.Path,
			Digest:  pr.A.Digest,
			Size:    pr.A.Size,
		})
	}

	if !opts.TwoWay {
		return p
	}

	for _, r := range d.OnlyInA {
		p.add(types.Op{
			Kind:    types.OpCopy,
			SrcTree: types.TreeA,
			SrcPath: r.Path,
			DstTree: types.TreeB,
			DstPath: r.Path,
			Digest:  r.Digest,
			Size:    r.Size,
		})
	}

	for _, pr := range d.Moved {
		p.add(types.Op{
			Kind:    types.OpCopy,
			SrcTree: types.TreeB,
			SrcPath: pr.B.Path,
			DstTree: types.TreeB,
			DstPath: pr.A.Path,
			Digest:  pr.B.Digest,
			Size:    pr.B.Size,
		})
	}

	return p
}
