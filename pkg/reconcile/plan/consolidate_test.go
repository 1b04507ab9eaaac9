package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/reconcile/pkg/reconcile/compare"
	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

func TestPlanConsolidate_CopiesAndPrunes(t *testing.T) {
	a := []types.FileRecord{
		rec(types.TreeA, "keep.txt", "d-keep", 10),
	}
	b := []types.FileRecord{
		rec(types.TreeB, "new1.txt", "d-new", 20),
		rec(types.TreeB, "new2.txt", "d-new", 20),
	}

	p := PlanConsolidate(compare.Compare(a, b), Options{})

	// Both copies land, then the redundant one is removed.
	require.Len(t, p.Ops, 3)
	assert.Equal(t, types.OpCopy, p.Ops[0].Kind)
	assert.Equal(t, "new1.txt", p.Ops[0].SrcPath)
	assert.Equal(t, types.OpCopy, p.Ops[1].Kind)
	assert.Equal(t, "new2.txt", p.Ops[1].SrcPath)
	assert.Equal(t, types.OpDelete, p.Ops[2].Kind)
	assert.Equal(t, "new2.txt", p.Ops[2].SrcPath)
	assert.Equal(t, types.TreeA, p.Ops[2].SrcTree)
}

func TestPlanConsolidate_ContentAlreadyInA(t *testing.T) {
	a := []types.FileRecord{rec(types.TreeA, "old/img.png", "d-m", 500)}
	b := []types.FileRecord{rec(types.TreeB, "new/img.png", "d-m", 500)}

	p := PlanConsolidate(compare.Compare(a, b), Options{})

	// The copy is walked back entirely: A already had the content.
	require.Len(t, p.Ops, 2)
	assert.Equal(t, types.OpCopy, p.Ops[0].Kind)
	assert.Equal(t, "new/img.png", p.Ops[0].DstPath)
	assert.Equal(t, types.OpDelete, p.Ops[1].Kind)
	assert.Equal(t, "new/img.png", p.Ops[1].SrcPath)
}

func TestPlanConsolidate_ModifiedRenamed(t *testing.T) {
	a := []types.FileRecord{rec(types.TreeA, "notes.txt", "d-old", 10)}
	b := []types.FileRecord{rec(types.TreeB, "notes.txt", "d-new", 12)}

	p := PlanConsolidate(compare.Compare(a, b), Options{})

	require.Len(t, p.Ops, 1)
	op := p.Ops[0]
	assert.Equal(t, types.OpCopy, op.Kind)
	assert.Equal(t, "notes.txt", op.SrcPath)
	assert.Equal(t, "notes.txt.~1~", op.DstPath, "A's copy keeps its path; B's comes in renamed")
}

func TestPlanAbsorb_SkipsContentAHas(t *testing.T) {
	a := []types.FileRecord{
		rec(types.TreeA, "old/img.png", "d-m", 500),
		rec(types.TreeA, "keep.txt", "d-keep", 10),
	}
	b := []types.FileRecord{
		rec(types.TreeB, "new/img.png", "d-m", 500),
		rec(types.TreeB, "fresh1.txt", "d-f", 20),
		rec(types.TreeB, "fresh2.txt", "d-f", 20),
	}

	p := PlanAbsorb(compare.Compare(a, b), Options{})

	require.Len(t, p.Ops, 1)
	op := p.Ops[0]
	assert.Equal(t, types.OpCopy, op.Kind)
	assert.Equal(t, "fresh1.txt", op.SrcPath, "lexically first record carries the digest in")
	assert.Equal(t, "fresh1.txt", op.DstPath)
	assert.Equal(t, int64(20), p.BytesCopied)
}

func TestPlanAbsorb_UnhashedAlwaysCopied(t *testing.T) {
	b := []types.FileRecord{
		rec(types.TreeB, "gated.bin", "", 4096),
	}

	p := PlanAbsorb(compare.Compare(nil, b), Options{})

	require.Len(t, p.Ops, 1)
	assert.Equal(t, "gated.bin", p.Ops[0].SrcPath)
}

// Absorb must reach consolidate's end state with no more operations:
// it skips the copies consolidate walks back afterwards.
func TestConsolidateAbsorbEquivalence(t *testing.T) {
	a := []types.FileRecord{
		rec(types.TreeA, "shared.txt", "d-s", 1),
		rec(types.TreeA, "old/img.png", "d-m", 500),
		rec(types.TreeA, "notes.txt", "d-old", 10),
		rec(types.TreeA, "mine.txt", "d-mine", 5),
	}
	b := []types.FileRecord{
		rec(types.TreeB, "shared.txt", "d-s", 1),
		rec(types.TreeB, "new/img.png", "d-m", 500),
		rec(types.TreeB, "notes.txt", "d-new", 12),
		rec(types.TreeB, "fresh1.txt", "d-f", 20),
		rec(types.TreeB, "fresh2.txt", "d-f", 20),
		rec(types.TreeB, "lone.dat", "d-l", 7),
	}
	diff := compare.Compare(a, b)

	consolidate := PlanConsolidate(diff, Options{})
	absorb := PlanAbsorb(diff, Options{})

	assert.LessOrEqual(t, len(absorb.Ops), len(consolidate.Ops))

	viaConsolidate := stateOf(append(a, b...)...)
	viaConsolidate.apply(t, consolidate.Ops)
	viaAbsorb := stateOf(append(a, b...)...)
	viaAbsorb.apply(t, absorb.Ops)

	assert.Equal(t, viaConsolidate.tree(types.TreeA), viaAbsorb.tree(types.TreeA))
	assert.Equal(t, viaConsolidate.tree(types.TreeB), viaAbsorb.tree(types.TreeB),
		"neither mode touches tree B")

	// Every digest B holds must now be present in A.
	final := viaAbsorb.tree(types.TreeA)
	digests := make(map[string]bool, len(final))
	for _, digest := range final {
		digests[digest] = true
	}
	for _, r := range b {
		assert.True(t, digests[r.Digest], "digest of %s missing from A", r.Path)
	}
}

// When a B path collides with the rename variant of another copy, the
// copy absorb skips must still claim its slot, or the two modes would
// file the surviving content under different names.
func TestConsolidateAbsorbEquivalence_BackupNameCollision(t *testing.T) {
	a := []types.FileRecord{
		rec(types.TreeA, "doc", "d-a", 10),
		rec(types.TreeA, "copy/doc", "d-b", 10),
	}
	b := []types.FileRecord{
		rec(types.TreeB, "doc", "d-b", 10),
		rec(types.TreeB, "doc.~1~", "d-q", 7),
	}
	diff := compare.Compare(a, b)

	consolidate := PlanConsolidate(diff, Options{})
	absorb := PlanAbsorb(diff, Options{})

	viaConsolidate := stateOf(append(a, b...)...)
	viaConsolidate.apply(t, consolidate.Ops)
	viaAbsorb := stateOf(append(a, b...)...)
	viaAbsorb.apply(t, absorb.Ops)

	assert.Equal(t, viaConsolidate.tree(types.TreeA), viaAbsorb.tree(types.TreeA))

	require.Len(t, absorb.Ops, 1)
	assert.Equal(t, "doc.~1~.~1~", absorb.Ops[0].DstPath,
		"the skipped copy of doc still owns doc.~1~")
}

func TestPlanConsolidate_DeterministicAcrossInputOrder(t *testing.T) {
	a := []types.FileRecord{
		rec(types.TreeA, "x.txt", "d-x", 1),
	}
	b := []types.FileRecord{
		rec(types.TreeB, "m.txt", "d-1", 2),
		rec(types.TreeB, "k.txt", "d-1", 2),
		rec(types.TreeB, "z.txt", "d-2", 3),
	}

	p1 := PlanConsolidate(compare.Compare(a, b), Options{})
	p2 := PlanConsolidate(compare.Compare(a, []types.FileRecord{b[2], b[0], b[1]}), Options{})

	assert.Equal(t, p1.Ops, p2.Ops)

	// Copies in path order, then deletes in digest order.
	require.Len(t, p1.Ops, 4)
	assert.Equal(t, "k.txt", p1.Ops[0].SrcPath)
	assert.Equal(t, "m.txt", p1.Ops[1].SrcPath)
	assert.Equal(t, "z.txt", p1.Ops[2].SrcPath)
	assert.Equal(t, types.OpDelete, p1.Ops[3].Kind)
	assert.Equal(t, "m.txt", p1.Ops[3].SrcPath, "the lexically first copy of d-1 stays")
}
