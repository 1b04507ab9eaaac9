package plan

import (
	"sort"

	"github.com/jamesainslie/reconcile/pkg/reconcile/compare"
	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

// consolidateInput returns the B records whose content tree A would lose
// if B were discarded today: files only in B, the B side of moved pairs,
// and the B side of modified pairs. Sorted by path.
func consolidateInput(d *compare.Diff) []types.FileRecord {
	recs := make([]types.FileRecord, 0, len(d.OnlyInB)+len(d.Moved)+len(d.Modified))
	recs = append(recs, d.OnlyInB...)
	for _, pr := range d.Moved {
		recs = append(recs, pr.B)
	}
	for _, pr := range d.Modified {
		recs = append(recs, pr.B)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Path < recs[j].Path })
	return recs
}

// PlanConsolidate plans a full merge of tree B's content into tree A:
// copy every candidate record to its relative path, renaming the
// destination to the first free "path.~N~" variant when A already holds
// that path, then delete the copies whose content A already had, plus
// all but the lexically first copy of each digest A lacked. Deletes
// follow every copy, so the plan never removes a path a later operation
// reads.
//
// The end state matches PlanAbsorb over the same diff; absorb just skips
// the copies this mode walks back.
func PlanConsolidate(d *compare.Diff, opts Options) *Plan {
	p := &Plan{Mode: ModeConsolidate}
	taken := aPaths(d)
	existing := aDigests(d)

	type copied struct {
		dst    string
		digest string
		size   int64
	}
	byDigest := make(map[string][]copied)
	var digests []string

	for _, r := range consolidateInput(d) {
		dst := destFor(r.Path, taken)
		taken[dst] = true
		p.add(types.Op{
			Kind:    types.OpCopy,
			SrcTree: types.TreeB,
			SrcPath: r.Path,
			DstTree: types.TreeA,
			DstPath: dst,
			Digest:  r.Digest,
			Size:    r.Size,
		})
		if !r.Hashed() {
			continue
		}
		if _, ok := byDigest[r.Digest]; !ok {
			digests = append(digests, r.Digest)
		}
		byDigest[r.Digest] = append(byDigest[r.Digest], copied{dst: dst, digest: r.Digest, size: r.Size})
	}

	sort.Strings(digests)
	for _, digest := range digests {
		// Group entries sit in source-path order, so the head is the
		// copy absorb would have made. Content A already had: every
		// copy is redundant. Content A lacked: the head stays.
		group := byDigest[digest]
		if !existing[digest] {
			group = group[1:]
		}
		for _, c := range group {
			p.add(types.Op{
				Kind:    types.OpDelete,
				SrcTree: types.TreeA,
				SrcPath: c.dst,
				Digest:  c.digest,
				Size:    c.size,
			})
		}
	}

	return p
}

// PlanAbsorb plans the minimal content merge of tree B into tree A: one
// copy per digest A lacks, taking the lexically first B record for that
// digest. Destination names follow consolidate's rename numbering
// exactly (a skipped record still reserves its destination), so applying
// either plan leaves A with the same file set. Unhashed records cannot
// short-circuit and are always copied.
func PlanAbsorb(d *compare.Diff, opts Options) *Plan {
	p := &Plan{Mode: ModeAbsorb}
	taken := aPaths(d)
	existing := aDigests(d)

	seen := make(map[string]bool)
	for _, r := range consolidateInput(d) {
		dst := destFor(r.Path, taken)
		taken[dst] = true

		if r.Hashed() {
			if existing[r.Digest] || seen[r.Digest] {
				continue
			}
			seen[r.Digest] = true
		}
		p.add(types.Op{
			Kind:    types.OpCopy,
			SrcTree: types.TreeB,
			SrcPath: r.Path,
			DstTree: types.TreeA,
			DstPath: dst,
			Digest:  r.Digest,
			Size:    r.Size,
		})
	}

	return p
}
