package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/reconcile/pkg/reconcile/compare"
	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

func TestPlanSync_OnlyInB(t *testing.T) {
	b := []types.FileRecord{
		rec(types.TreeB, "new/report.pdf", "d-r", 2048),
	}

	p := PlanSync(compare.Compare(nil, b), Options{})

	require.Len(t, p.Ops, 1)
	op := p.Ops[0]
	assert.Equal(t, types.OpCopy, op.Kind)
	assert.Equal(t, types.TreeB, op.SrcTree)
	assert.Equal(t, "new/report.pdf", op.SrcPath)
	assert.Equal(t, types.TreeA, op.DstTree)
	assert.Equal(t, "new/report.pdf", op.DstPath)
	assert.Equal(t, int64(2048), p.BytesCopied)
}

// A moved pair is recreated from A's own copy of the content; tree B is
// never read for it.
func TestPlanSync_MovedSourcesFromA(t *testing.T) {
	a := []types.FileRecord{rec(types.TreeA, "old/img.png", "d-m", 500)}
	b := []types.FileRecord{rec(types.TreeB, "new/img.png", "d-m", 500)}

	p := PlanSync(compare.Compare(a, b), Options{})

	require.Len(t, p.Ops, 1)
	op := p.Ops[0]
	assert.Equal(t, types.OpCopy, op.Kind)
	assert.Equal(t, types.TreeA, op.SrcTree)
	assert.Equal(t, "old/img.png", op.SrcPath)
	assert.Equal(t, types.TreeA, op.DstTree)
	assert.Equal(t, "new/img.png", op.DstPath)
}

func TestPlanSync_ModifiedUntouched(t *testing.T) {
	a := []types.FileRecord{rec(types.TreeA, "draft.md", "d-1", 10)}
	b := []types.FileRecord{rec(types.TreeB, "draft.md", "d-2", 12)}

	p := PlanSync(compare.Compare(a, b), Options{})

	assert.True(t, p.Empty(), "which side of a modified pair wins is a human decision")
}

func TestPlanSync_MoveOption(t *testing.T) {
	a := []types.FileRecord{rec(types.TreeA, "old/img.png", "d-m", 500)}
	b := []types.FileRecord{
		rec(types.TreeB, "new/img.png", "d-m", 500),
		rec(types.TreeB, "extra.dat", "d-e", 100),
	}

	// Moves within A are fine; a move out of B degrades to a copy.
	p := PlanSync(compare.Compare(a, b), Options{Move: true})
	require.Len(t, p.Ops, 2)
	assert.Equal(t, types.OpCopy, p.Ops[0].Kind)
	assert.Equal(t, "extra.dat", p.Ops[0].SrcPath)
	assert.Equal(t, 1, p.Degraded)
	assert.Equal(t, types.OpMove, p.Ops[1].Kind)
	assert.Equal(t, "old/img.png", p.Ops[1].SrcPath)

	// MutateSource lifts the restriction.
	p = PlanSync(compare.Compare(a, b), Options{Move: true, MutateSource: true})
	require.Len(t, p.Ops, 2)
	assert.Equal(t, types.OpMove, p.Ops[0].Kind)
	assert.Equal(t, types.TreeB, p.Ops[0].SrcTree)
	assert.Equal(t, 0, p.Degraded)
}

func TestPlanSync_TwoWay(t *testing.T) {
	a := []types.FileRecord{
		rec(types.TreeA, "a-only.txt", "d-a", 10),
		rec(types.TreeA, "old/img.png", "d-m", 500),
	}
	b := []types.FileRecord{
		rec(types.TreeB, "b-only.txt", "d-b", 20),
		rec(types.TreeB, "new/img.png", "d-m", 500),
	}

	p := PlanSync(compare.Compare(a, b), Options{TwoWay: true, Move: true})

	// Move is ignored two-way: each tree keeps its layout and gains the
	// other's, so every operation is a copy.
	require.Len(t, p.Ops, 4)
	for _, op := range p.Ops {
		assert.Equal(t, types.OpCopy, op.Kind)
	}
	assert.Equal(t, 0, p.Degraded)

	assert.Equal(t, "b-only.txt", p.Ops[0].SrcPath)
	assert.Equal(t, types.TreeA, p.Ops[0].DstTree)

	assert.Equal(t, "old/img.png", p.Ops[1].SrcPath)
	assert.Equal(t, "new/img.png", p.Ops[1].DstPath)

	assert.Equal(t, "a-only.txt", p.Ops[2].SrcPath)
	assert.Equal(t, types.TreeB, p.Ops[2].DstTree)

	assert.Equal(t, types.TreeB, p.Ops[3].SrcTree)
	assert.Equal(t, "new/img.png", p.Ops[3].SrcPath)
	assert.Equal(t, "old/img.png", p.Ops[3].DstPath)
}

// After applying a sync plan, tree A holds every path tree B holds.
func TestPlanSync_EndState(t *testing.T) {
	a := []types.FileRecord{
		rec(types.TreeA, "shared.txt", "d-s", 1),
		rec(types.TreeA, "was/here.bin", "d-m", 2),
		rec(types.TreeA, "mine.txt", "d-mine", 3),
	}
	b := []types.FileRecord{
		rec(types.TreeB, "shared.txt", "d-s", 1),
		rec(types.TreeB, "now/here.bin", "d-m", 2),
		rec(types.TreeB, "yours.txt", "d-y", 4),
	}

	p := PlanSync(compare.Compare(a, b), Options{})

	state := stateOf(append(a, b...)...)
	state.apply(t, p.Ops)

	treeA := state.tree(types.TreeA)
	for _, r := range b {
		digest, ok := treeA[r.Path]
		require.True(t, ok, "tree A missing %s after sync", r.Path)
		assert.Equal(t, r.Digest, digest)
	}
	assert.Contains(t, treeA, "was/here.bin", "one-way sync does not remove A paths")
}
