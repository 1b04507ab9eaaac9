package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

func rec(tree types.TreeID, path, digest string, size int64) types.FileRecord {
	return types.FileRecord{
		Tree:   tree,
		Path:   path,
		Size:   size,
		Digest: digest,
		Mtime:  1700000000000000000,
	}
}

func TestCompare_Identical(t *testing.T) {
	a := []types.FileRecord{rec(types.TreeA, "docs/readme.md", "aaa1", 10)}
	b := []types.FileRecord{rec(types.TreeB, "docs/readme.md", "aaa1", 10)}

	d := Compare(a, b)

	require.Len(t, d.Identical, 1)
	assert.Equal(t, "docs/readme.md", d.Identical[0].A.Path)
	assert.Equal(t, types.TreeA, d.Identical[0].A.Tree)
	assert.Equal(t, types.TreeB, d.Identical[0].B.Tree)
	assert.Empty(t, d.Modified)
	assert.Empty(t, d.Moved)
	assert.Empty(t, d.OnlyInA)
	assert.Empty(t, d.OnlyInB)
	assert.True(t, d.InSync())
}

func TestCompare_Modified(t *testing.T) {
	a := []types.FileRecord{rec(types.TreeA, "notes.txt", "aaa1", 10)}
	b := []types.FileRecord{rec(types.TreeB, "notes.txt", "bbb2", 12)}

	d := Compare(a, b)

	require.Len(t, d.Modified, 1)
	assert.Equal(t, "aaa1", d.Modified[0].A.Digest)
	assert.Equal(t, "bbb2", d.Modified[0].B.Digest)
	assert.Empty(t, d.Identical)
	assert.False(t, d.InSync())
}

func TestCompare_Moved(t *testing.T) {
	a := []types.FileRecord{rec(types.TreeA, "old/img.png", "ccc3", 500)}
	b := []types.FileRecord{rec(types.TreeB, "new/img.png", "ccc3", 500)}

	d := Compare(a, b)

	require.Len(t, d.Moved, 1)
	assert.Equal(t, "old/img.png", d.Moved[0].A.Path)
	assert.Equal(t, "new/img.png", d.Moved[0].B.Path)
	assert.Empty(t, d.OnlyInA)
	assert.Empty(t, d.OnlyInB)
}

func TestCompare_OnlyIn(t *testing.T) {
	a := []types.FileRecord{rec(types.TreeA, "a-only.txt", "aaa1", 1)}
	b := []types.FileRecord{rec(types.TreeB, "b-only.txt", "bbb2", 2)}

	d := Compare(a, b)

	require.Len(t, d.OnlyInA, 1)
	require.Len(t, d.OnlyInB, 1)
	assert.Equal(t, "a-only.txt", d.OnlyInA[0].Path)
	assert.Equal(t, "b-only.txt", d.OnlyInB[0].Path)
}

// Every record must land in exactly one primary bucket: pairs count records
// on both sides, and the bucket sizes must add back up to the inputs.
func TestCompare_Partition(t *testing.T) {
	a := []types.FileRecord{
		rec(types.TreeA, "same.txt", "d-same", 10),
		rec(types.TreeA, "changed.txt", "d-old", 20),
		rec(types.TreeA, "was/here.bin", "d-move", 30),
		rec(types.TreeA, "solo-a.txt", "d-solo-a", 40),
		rec(types.TreeA, "dup1.dat", "d-dup", 50),
		rec(types.TreeA, "dup2.dat", "d-dup", 50),
	}
	b := []types.FileRecord{
		rec(types.TreeB, "same.txt", "d-same", 10),
		rec(types.TreeB, "changed.txt", "d-new", 22),
		rec(types.TreeB, "now/here.bin", "d-move", 30),
		rec(types.TreeB, "solo-b.txt", "d-solo-b", 60),
	}

	d := Compare(a, b)

	gotA := len(d.Identical) + len(d.Modified) + len(d.Moved) + len(d.OnlyInA)
	gotB := len(d.Identical) + len(d.Modified) + len(d.Moved) + len(d.OnlyInB)
	assert.Equal(t, len(a), gotA)
	assert.Equal(t, len(b), gotB)

	assert.Len(t, d.Identical, 1)
	assert.Len(t, d.Modified, 1)
	assert.Len(t, d.Moved, 1)
	// Both dup copies are loose with no B counterpart left: one pairs as a
	// move only if B had the digest, which it does not here.
	assert.Len(t, d.OnlyInA, 3)
	assert.Len(t, d.OnlyInB, 1)

	require.Len(t, d.DupGroups, 1)
	assert.Equal(t, "d-dup", d.DupGroups[0].Digest)
	assert.Equal(t, types.TreeA, d.DupGroups[0].Tree)
	assert.Len(t, d.DupGroups[0].Records, 2)
}

// When a digest appears at two unmatched paths in A and one in B, only one
// A record pairs as a move; the other stays in OnlyInA and the duplicate
// group still reports both copies.
func TestCompare_DuplicateSpillsOverMove(t *testing.T) {
	a := []types.FileRecord{
		rec(types.TreeA, "copy1.iso", "d-img", 700),
		rec(types.TreeA, "copy2.iso", "d-img", 700),
	}
	b := []types.FileRecord{
		rec(types.TreeB, "master.iso", "d-img", 700),
	}

	d := Compare(a, b)

	require.Len(t, d.Moved, 1)
	assert.Equal(t, "copy1.iso", d.Moved[0].A.Path, "lexically first record pairs")
	assert.Equal(t, "master.iso", d.Moved[0].B.Path)

	require.Len(t, d.OnlyInA, 1)
	assert.Equal(t, "copy2.iso", d.OnlyInA[0].Path)

	require.Len(t, d.DupGroups, 1)
	assert.Len(t, d.DupGroups[0].Records, 2)
}

func TestCompare_MovePairingDeterministic(t *testing.T) {
	a := []types.FileRecord{
		rec(types.TreeA, "z.txt", "d-x", 5),
		rec(types.TreeA, "m.txt", "d-x", 5),
		rec(types.TreeA, "a.txt", "d-x", 5),
	}
	b := []types.FileRecord{
		rec(types.TreeB, "q.txt", "d-x", 5),
		rec(types.TreeB, "b.txt", "d-x", 5),
	}

	d := Compare(a, b)

	require.Len(t, d.Moved, 2)
	assert.Equal(t, "a.txt", d.Moved[0].A.Path)
	assert.Equal(t, "b.txt", d.Moved[0].B.Path)
	assert.Equal(t, "m.txt", d.Moved[1].A.Path)
	assert.Equal(t, "q.txt", d.Moved[1].B.Path)
	require.Len(t, d.OnlyInA, 1)
	assert.Equal(t, "z.txt", d.OnlyInA[0].Path)

	// Input order must not matter.
	reversed := Compare(
		[]types.FileRecord{a[2], a[0], a[1]},
		[]types.FileRecord{b[1], b[0]},
	)
	assert.Equal(t, d.Moved, reversed.Moved)
	assert.Equal(t, d.OnlyInA, reversed.OnlyInA)
}

func TestCompare_UnhashedPathMatch(t *testing.T) {
	tests := []struct {
		name     string
		sizeA    int64
		sizeB    int64
		modified bool
	}{
		{name: "equal sizes treated as identical", sizeA: 100, sizeB: 100, modified: false},
		{name: "size mismatch is decisive", sizeA: 100, sizeB: 101, modified: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := []types.FileRecord{rec(types.TreeA, "big.bin", "", tt.sizeA)}
			b := []types.FileRecord{rec(types.TreeB, "big.bin", "", tt.sizeB)}

			d := Compare(a, b)

			if tt.modified {
				assert.Len(t, d.Modified, 1)
				assert.Empty(t, d.Identical)
			} else {
				assert.Len(t, d.Identical, 1)
				assert.Empty(t, d.Modified)
			}
		})
	}
}

func TestCompare_UnhashedLooseNeverPairs(t *testing.T) {
	a := []types.FileRecord{rec(types.TreeA, "gated-a.bin", "", 900)}
	b := []types.FileRecord{rec(types.TreeB, "gated-b.bin", "", 900)}

	d := Compare(a, b)

	assert.Empty(t, d.Moved, "unhashed records must not pair by digest")
	assert.Len(t, d.OnlyInA, 1)
	assert.Len(t, d.OnlyInB, 1)
}

func TestCompare_DupGroupsIncludeMatchedRecords(t *testing.T) {
	a := []types.FileRecord{
		rec(types.TreeA, "note.txt", "d-n", 10),
		rec(types.TreeA, "backup/note.txt", "d-n", 10),
	}
	b := []types.FileRecord{
		rec(types.TreeB, "note.txt", "d-n", 10),
	}

	d := Compare(a, b)

	assert.Len(t, d.Identical, 1)
	require.Len(t, d.DupGroups, 1)
	group := d.DupGroups[0]
	assert.Equal(t, types.TreeA, group.Tree)
	require.Len(t, group.Records, 2)
	assert.Equal(t, "backup/note.txt", group.Records[0].Path)
	assert.Equal(t, "note.txt", group.Records[1].Path)
}

func TestCompare_DupGroupOrdering(t *testing.T) {
	a := []types.FileRecord{
		rec(types.TreeA, "x1", "d-zz", 1),
		rec(types.TreeA, "x2", "d-zz", 1),
	}
	b := []types.FileRecord{
		rec(types.TreeB, "y1", "d-aa", 2),
		rec(types.TreeB, "y2", "d-aa", 2),
		rec(types.TreeB, "z1", "d-zz", 1),
		rec(types.TreeB, "z2", "d-zz", 1),
	}

	d := Compare(a, b)

	require.Len(t, d.DupGroups, 3)
	assert.Equal(t, "d-aa", d.DupGroups[0].Digest)
	assert.Equal(t, types.TreeB, d.DupGroups[0].Tree)
	assert.Equal(t, "d-zz", d.DupGroups[1].Digest)
	assert.Equal(t, types.TreeA, d.DupGroups[1].Tree)
	assert.Equal(t, "d-zz", d.DupGroups[2].Digest)
	assert.Equal(t, types.TreeB, d.DupGroups[2].Tree)
}

func TestCompare_BucketsSorted(t *testing.T) {
	a := []types.FileRecord{
		rec(types.TreeA, "c.txt", "d1", 1),
		rec(types.TreeA, "a.txt", "d2", 2),
		rec(types.TreeA, "b.txt", "d3", 3),
	}

	d := Compare(a, nil)

	require.Len(t, d.OnlyInA, 3)
	assert.Equal(t, "a.txt", d.OnlyInA[0].Path)
	assert.Equal(t, "b.txt", d.OnlyInA[1].Path)
	assert.Equal(t, "c.txt", d.OnlyInA[2].Path)
}

func TestCompare_Empty(t *testing.T) {
	d := Compare(nil, nil)

	assert.True(t, d.InSync())
	assert.Empty(t, d.Identical)
	assert.Empty(t, d.OnlyInA)
	assert.Empty(t, d.OnlyInB)
}

func TestDiff_InSync(t *testing.T) {
	tests := []struct {
		name   string
		diff   Diff
		inSync bool
	}{
		{name: "empty", diff: Diff{}, inSync: true},
		{name: "identical only", diff: Diff{Identical: []Pair{{}}}, inSync: true},
		{name: "modified", diff: Diff{Modified: []Pair{{}}}, inSync: false},
		{name: "moved", diff: Diff{Moved: []Pair{{}}}, inSync: false},
		{name: "only in a", diff: Diff{OnlyInA: []types.FileRecord{{}}}, inSync: false},
		{name: "only in b", diff: Diff{OnlyInB: []types.FileRecord{{}}}, inSync: false},
		{name: "duplicates", diff: Diff{DupGroups: []DupGroup{{}}}, inSync: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.inSync, tt.diff.InSync())
		})
	}
}
