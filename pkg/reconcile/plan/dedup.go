package plan

import (
	"sort"

	"github.com/jamesainslie/reconcile/pkg/reconcile/compare"
	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

// DedupGroups returns the duplicate groups dedup planning operates on.
// By default only tree A groups qualify: A is the tree the generated
// scripts modify. With acrossTrees, same-digest groups from both trees
// merge into one group whose members span trees, ordered tree A first.
func DedupGroups(d *compare.Diff, acrossTrees bool) []compare.DupGroup {
	if !acrossTrees {
		var groups []compare.DupGroup
		for _, g := range d.DupGroups {
			if g.Tree == types.TreeA {
				groups = append(groups, g)
			}
		}
		return groups
	}

	merged := make(map[string]compare.DupGroup)
	for _, g := range d.DupGroups {
		m, ok := merged[g.Digest]
		if !ok {
			m = compare.DupGroup{Digest: g.Digest, Tree: g.Tree}
		}
		if g.Tree == types.TreeA {
			m.Tree = types.TreeA
		}
		m.Records = append(m.Records, g.Records...)
		merged[g.Digest] = m
	}

	groups := make([]compare.DupGroup, 0, len(merged))
	for _, g := range merged {
		sort.Slice(g.Records, func(i, j int) bool {
			if g.Records[i].Tree != g.Records[j].Tree {
				return g.Records[i].Tree < g.Records[j].Tree
			}
			return g.Records[i].Path < g.Records[j].Path
		})
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Digest < groups[j].Digest })
	return groups
}

// PlanDedup plans deletion of redundant duplicate copies. Within each
// group one set of members is kept and the rest are deleted:
//
//   - An explicit Decision wins outright.
//   - Otherwise members that participate in a cross-tree pair are
//     protected and kept; deleting them would desynchronize the trees.
//   - Otherwise the first member is kept, tree A preferred, then
//     lexical path order.
//
// Members in tree B are never deleted unless MutateSource is set.
func PlanDedup(d *compare.Diff, opts Options) *Plan {
	p := &Plan{Mode: ModeDedup}
	protected := pairedMembers(d)

	for _, g := range DedupGroups(d, opts.AcrossTrees) {
		keep := keeperSet(g, protected, opts)
		for _, r := range g.Records {
			if keep[MemberKey(r)] {
				continue
			}
			if r.Tree == types.TreeB && !opts.MutateSource {
				continue
			}
			p.add(types.Op{
				Kind:    types.OpDelete,
				SrcTree: r.Tree,
				SrcPath: r.Path,
				Digest:  r.Digest,
				Size:    r.Size,
			})
		}
	}
	return p
}

// pairedMembers returns the member keys of every record that sits in an
// identical, modified, or moved pair.
func pairedMembers(d *compare.Diff) map[string]bool {
	paired := make(map[string]bool)
	addPair := func(pr compare.Pair) {
		paired[MemberKey(pr.A)] = true
		paired[MemberKey(pr.B)] = true
	}
	for _, pr := range d.Identical {
		addPair(pr)
	}
	for _, pr := range d.Modified {
		addPair(pr)
	}
	for _, pr := range d.Moved {
		addPair(pr)
	}
	return paired
}

// keeperSet decides which members of a group survive dedup.
func keeperSet(g compare.DupGroup, protected map[string]bool, opts Options) map[string]bool {
	keep := make(map[string]bool, len(g.Records))

	if dec, ok := opts.Decisions[GroupKey(g)]; ok {
		switch {
		case dec.KeepAll:
			for _, r := range g.Records {
				keep[MemberKey(r)] = true
			}
		case dec.KeepNone:
			// Delete everything.
		default:
			keep[dec.Keeper] = true
		}
		return keep
	}

	anyProtected := false
	for _, r := range g.Records {
		if protected[MemberKey(r)] {
			keep[MemberKey(r)] = true
			anyProtected = true
		}
	}
	if anyProtected {
		return keep
	}

	// Group records arrive sorted tree-A-first, then by path.
	keep[MemberKey(g.Records[0])] = true
	return keep
}
