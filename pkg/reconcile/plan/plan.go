// Package plan turns a comparison diff into ordered reconciliation
// operations. Plans are pure data: nothing here touches the filesystem,
// and the same diff with the same options always yields the same plan.
package plan

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/reconcile/pkg/reconcile/compare"
	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

// Mode identifies the reconciliation strategy that produced a plan.
type Mode string

// Planning modes, in canonical combine order.
const (
	ModeDedup       Mode = "dedup"
	ModeSync        Mode = "sync"
	ModeConsolidate Mode = "consolidate"
	ModeAbsorb      Mode = "absorb"
	ModeCombined    Mode = "combined"
)

// Options tune plan construction. The zero value plans conservatively:
// copies instead of moves, one-way sync, tree-A-only dedup, and no
// operation that consumes tree B.
type Options struct {
	// Move prefers relocating files over copying them where the source
	// is expendable. Ignored under TwoWay, where a move in either
	// direction would leave the trees chasing each other's layout.
	Move bool

	// TwoWay mirrors sync: tree B also gains what tree A has.
	TwoWay bool

	// AcrossTrees merges same-digest duplicate groups across both trees
	// before dedup planning.
	AcrossTrees bool

	// MutateSource permits operations that consume tree B: moves out of
	// it and deletes inside it. Off by default; tree B is the reference
	// copy until the user says otherwise.
	MutateSource bool

	// Decisions overrides keeper selection for individual duplicate
	// groups, keyed by GroupKey. Collected interactively.
	Decisions map[string]Decision
}

// Decision is an explicit keeper choice for one duplicate group.
type Decision struct {
	// KeepAll leaves every member in place.
	KeepAll bool

	// KeepNone deletes every member, protected or not.
	KeepNone bool

	// Keeper is the MemberKey of the single record to keep. Used when
	// neither flag is set.
	Keeper string
}

// GroupKey identifies a duplicate group for decision lookup.
func GroupKey(g compare.DupGroup) string {
	return string(g.Tree) + ":" + g.Digest
}

// MemberKey identifies one record within a duplicate group.
func MemberKey(r types.FileRecord) string {
	return string(r.Tree) + ":" + r.Path
}

// Plan is an ordered operation list for one mode. Operations are emitted
// in execution order: within a plan, no delete precedes a copy or move
// that reads the deleted path.
type Plan struct {
	Mode Mode       `json:"mode"`
	Ops  []types.Op `json:"ops"`

	// BytesCopied is the total size transferred by copies and moves.
	BytesCopied int64 `json:"bytes_copied"`

	// BytesFreed is the total size reclaimed by deletes.
	BytesFreed int64 `json:"bytes_freed"`

	// Degraded counts moves rendered as copies because the source sits
	// in tree B and MutateSource is off.
	Degraded int `json:"degraded,omitempty"`
}

func (p *Plan) add(op types.Op) {
	p.Ops = append(p.Ops, op)
	switch op.Kind {
	case types.OpCopy, types.OpMove:
		p.BytesCopied += op.Size
	case types.OpDelete:
		p.BytesFreed += op.Size
	}
}

// Empty reports whether the plan contains no operations.
func (p *Plan) Empty() bool { return len(p.Ops) == 0 }

// Counts returns the number of operations per kind.
func (p *Plan) Counts() (copies, moves, deletes int) {
	for _, op := range p.Ops {
		switch op.Kind {
		case types.OpCopy:
			copies++
		case types.OpMove:
			moves++
		case types.OpDelete:
			deletes++
		}
	}
	return copies, moves, deletes
}

// Summary returns a one-line description of the plan, for logs and the
// generated script header.
func (p *Plan) Summary() string {
	if p.Empty() {
		return fmt.Sprintf("%s: nothing to do", p.Mode)
	}

	copies, moves, deletes := p.Counts()
	var parts []string
	if copies > 0 {
		parts = append(parts, fmt.Sprintf("%d copied", copies))
	}
	if moves > 0 {
		parts = append(parts, fmt.Sprintf("%d moved", moves))
	}
	if deletes > 0 {
		parts = append(parts, fmt.Sprintf("%d deleted", deletes))
	}
	if p.BytesCopied > 0 {
		parts = append(parts, fmt.Sprintf("%s transferred", humanize.IBytes(uint64(p.BytesCopied))))
	}
	if p.BytesFreed > 0 {
		parts = append(parts, fmt.Sprintf("%s freed", humanize.IBytes(uint64(p.BytesFreed))))
	}
	return fmt.Sprintf("%s: %s", p.Mode, strings.Join(parts, ", "))
}

// aPaths collects every path tree A currently holds, according to the diff.
func aPaths(d *compare.Diff) map[string]bool {
	paths := make(map[string]bool)
	for _, pr := range d.Identical {
		paths[pr.A.Path] = true
	}
	for _, pr := range d.Modified {
		paths[pr.A.Path] = true
	}
	for _, pr := range d.Moved {
		paths[pr.A.Path] = true
	}
	for _, r := range d.OnlyInA {
		paths[r.Path] = true
	}
	return paths
}

// aDigests collects every content digest tree A currently holds.
func aDigests(d *compare.Diff) map[string]bool {
	digests := make(map[string]bool)
	addRec := func(r types.FileRecord) {
		if r.Hashed() {
			digests[r.Digest] = true
		}
	}
	for _, pr := range d.Identical {
		addRec(pr.A)
	}
	for _, pr := range d.Modified {
		addRec(pr.A)
	}
	for _, pr := range d.Moved {
		addRec(pr.A)
	}
	for _, r := range d.OnlyInA {
		addRec(r)
	}
	return digests
}

// destFor picks the destination path for a record entering tree A:
// the record's own relative path, or the first free numbered variant
// when that path is already spoken for.
func destFor(path string, taken map[string]bool) string {
	if !taken[path] {
		return path
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s.~%d~", path, n)
		if !taken[candidate] {
			return candidate
		}
	}
}
