package plan

import (
	"fmt"
	"sort"

	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

// combineRank orders modes for combined execution: dedup first, then
// sync, consolidate, absorb.
func combineRank(m Mode) int {
	switch m {
	case ModeDedup:
		return 0
	case ModeSync:
		return 1
	case ModeConsolidate:
		return 2
	case ModeAbsorb:
		return 3
	default:
		return 4
	}
}

// Combine concatenates plans in canonical mode order and verifies the
// whole sequence is executable: no operation may read a path that an
// earlier operation deleted or moved away. A violation returns an error
// wrapping types.ErrPlanConflict that names both operations.
func Combine(plans ...*Plan) (*Plan, error) {
	ordered := make([]*Plan, 0, len(plans))
	for _, p := range plans {
		if p != nil {
			ordered = append(ordered, p)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return combineRank(ordered[i].Mode) < combineRank(ordered[j].Mode)
	})

	combined := &Plan{Mode: ModeCombined}
	gone := make(map[string]types.Op)

	for _, pl := range ordered {
		combined.Degraded += pl.Degraded
		for _, op := range pl.Ops {
			tree, path := op.Reads()
			key := string(tree) + ":" + path
			if prev, ok := gone[key]; ok {
				return nil, fmt.Errorf("%s %s reads %s, removed by earlier %s: %w",
					pl.Mode, op.Kind, key, prev.Kind, types.ErrPlanConflict)
			}
			if t, pth, ok := op.Creates(); ok {
				delete(gone, string(t)+":"+pth)
			}
			if t, pth, ok := op.Invalidates(); ok {
				gone[string(t)+":"+pth] = op
			}
			combined.add(op)
		}
	}
	return combined, nil
}
