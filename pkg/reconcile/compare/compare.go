// Package compare partitions two file catalogs into reconciliation buckets.
//
// The partition is pure and deterministic: records are matched first by
// path, then unmatched records are paired by content digest to detect moves.
// Duplicate groups are computed per tree over every hashed record, so a file
// can appear both in a path bucket and in a duplicate group.
package compare

import (
	"sort"

	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

// Pair is a matched pair of records, one from each tree.
type Pair struct {
	A types.FileRecord `json:"a"`
	B types.FileRecord `json:"b"`
}

// DupGroup is a set of records within one tree sharing a content digest.
type DupGroup struct {
	// Digest is the shared content digest.
	Digest string `json:"digest"`

	// Tree identifies the tree the group was found in.
	Tree types.TreeID `json:"tree"`

	// Records are the group members, sorted by path.
	Records []types.FileRecord `json:"records"`
}

// Diff is the six-way partition of two catalogs.
type Diff struct {
	// Identical holds pairs with the same path and the same digest.
	Identical []Pair `json:"identical,omitempty"`

	// Modified holds pairs with the same path but different content.
	Modified []Pair `json:"modified,omitempty"`

	// Moved holds pairs with the same digest at different paths,
	// where neither path exists in the other tree.
	Moved []Pair `json:"moved,omitempty"`

	// OnlyInA holds records whose path and content are absent from B.
	OnlyInA []types.FileRecord `json:"only_in_a,omitempty"`

	// OnlyInB holds records whose path and content are absent from A.
	OnlyInB []types.FileRecord `json:"only_in_b,omitempty"`

	// DupGroups holds per-tree groups of records sharing a digest,
	// ordered by digest then tree.
	DupGroups []DupGroup `json:"dup_groups,omitempty"`
}

// InSync reports whether the two catalogs describe the same content at the
// same paths with no within-tree duplicates.
func (d *Diff) InSync() bool {
	return len(d.Modified) == 0 && len(d.Moved) == 0 &&
		len(d.OnlyInA) == 0 && len(d.OnlyInB) == 0 && len(d.DupGroups) == 0
}

// Compare partitions catalogs a and b. Input order does not matter: the
// same records produce the same Diff, with every bucket sorted.
func Compare(a, b []types.FileRecord) *Diff {
	d := &Diff{}

	aByPath := indexByPath(a)
	bByPath := indexByPath(b)

	// Phase 1: match by path.
	matched := make(map[string]bool)
	for path, ra := range aByPath {
		rb, ok := bByPath[path]
		if !ok {
			continue
		}
		matched[path] = true

		if ra.Hashed() && rb.Hashed() {
			if ra.Digest == rb.Digest {
				d.Identical = append(d.Identical, Pair{A: ra, B: rb})
			} else {
				d.Modified = append(d.Modified, Pair{A: ra, B: rb})
			}
			continue
		}

		// A missing digest comes from a size-gated build. Gated-out
		// files have sizes absent from the other tree, so a size
		// mismatch is decisive. Equal-size pairs are rehashed by the
		// caller before comparing; if one still reaches us, sizes are
		// the only signal left.
		if ra.Size != rb.Size {
			d.Modified = append(d.Modified, Pair{A: ra, B: rb})
		} else {
			d.Identical = append(d.Identical, Pair{A: ra, B: rb})
		}
	}

	// Phase 2: pair unmatched records by digest to detect moves.
	aLoose := looseByDigest(a, matched)
	bLoose := looseByDigest(b, matched)

	for digest, as := range aLoose.byDigest {
		bs, ok := bLoose.byDigest[digest]
		if !ok {
			d.OnlyInA = append(d.OnlyInA, as...)
			continue
		}
		sortRecords(as)
		sortRecords(bs)
		n := min(len(as), len(bs))
		for i := range n {
			d.Moved = append(d.Moved, Pair{A: as[i], B: bs[i]})
		}
		d.OnlyInA = append(d.OnlyInA, as[n:]...)
		bLoose.byDigest[digest] = bs[n:]
	}
	for _, bs := range bLoose.byDigest {
		d.OnlyInB = append(d.OnlyInB, bs...)
	}
	d.OnlyInA = append(d.OnlyInA, aLoose.unhashed...)
	d.OnlyInB = append(d.OnlyInB, bLoose.unhashed...)

	// Phase 3: duplicate groups within each tree.
	d.DupGroups = append(dupGroups(types.TreeA, a), dupGroups(types.TreeB, b)...)
	sort.Slice(d.DupGroups, func(i, j int) bool {
		if d.DupGroups[i].Digest != d.DupGroups[j].Digest {
			return d.DupGroups[i].Digest < d.DupGroups[j].Digest
		}
		return d.DupGroups[i].Tree < d.DupGroups[j].Tree
	})

	sortPairs(d.Identical)
	sortPairs(d.Modified)
	sortPairs(d.Moved)
	sortRecords(d.OnlyInA)
	sortRecords(d.OnlyInB)

	return d
}

// looseRecords are one tree's records not matched by path.
type looseRecords struct {
	byDigest map[string][]types.FileRecord
	unhashed []types.FileRecord
}

func looseByDigest(records []types.FileRecord, matched map[string]bool) looseRecords {
	loose := looseRecords{byDigest: make(map[string][]types.FileRecord)}
	for _, rec := range records {
		if matched[rec.Path] {
			continue
		}
		if !rec.Hashed() {
			loose.unhashed = append(loose.unhashed, rec)
			continue
		}
		loose.byDigest[rec.Digest] = append(loose.byDigest[rec.Digest], rec)
	}
	return loose
}

// dupGroups finds digests occurring more than once within one tree.
// Matched records count: a duplicate is a duplicate even when one copy
// also exists in the other tree.
func dupGroups(tree types.TreeID, records []types.FileRecord) []DupGroup {
	byDigest := make(map[string][]types.FileRecord)
	for _, rec := range records {
		if !rec.Hashed() {
			continue
		}
		byDigest[rec.Digest] = append(byDigest[rec.Digest], rec)
	}

	var groups []DupGroup
	for digest, recs := range byDigest {
		if len(recs) < 2 {
			continue
		}
		sortRecords(recs)
		groups = append(groups, DupGroup{Digest: digest, Tree: tree, Records: recs})
	}
	return groups
}

func indexByPath(records []types.FileRecord) map[string]types.FileRecord {
	byPath := make(map[string]types.FileRecord, len(records))
	for _, rec := range records {
		byPath[rec.Path] = rec
	}
	return byPath
}

func sortRecords(records []types.FileRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Path < records[j].Path
	})
}

func sortPairs(pairs []Pair) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A.Path != pairs[j].A.Path {
			return pairs[i].A.Path < pairs[j].A.Path
		}
		return pairs[i].B.Path < pairs[j].B.Path
	})
}
