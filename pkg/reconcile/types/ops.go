package types

import "errors"

// OpKind is the verb of a planned file operation.
type OpKind string

// The three operation kinds a reconciliation plan can contain.
const (
	OpCopy   OpKind = "copy"
	OpMove   OpKind = "move"
	OpDelete OpKind = "delete"
)

// ErrPlanConflict indicates an operation sequence that cannot be executed
// safely, such as a delete targeting a path a later operation reads.
var ErrPlanConflict = errors.New("plan conflict")

// Op is one planned file operation. Plans are the tool's only output:
// operations are rendered into a script for the user to review and run,
// never executed directly.
type Op struct {
	// Kind is the operation verb.
	Kind OpKind `json:"kind"`

	// SrcTree and SrcPath locate the file the operation reads. For
	// deletes this is the file being removed.
	SrcTree TreeID `json:"src_tree"`
	SrcPath string `json:"src_path"`

	// DstTree and DstPath locate the destination for copies and moves.
	// Empty for deletes.
	DstTree TreeID `json:"dst_tree,omitempty"`
	DstPath string `json:"dst_path,omitempty"`

	// Digest is the content digest the operation concerns.
	Digest string `json:"digest,omitempty"`

	// Size is the file size in bytes: freed by a delete, transferred by
	// a copy or move.
	Size int64 `json:"size"`
}

// Reads returns the tree and path the operation depends on existing.
func (o Op) Reads() (TreeID, string) {
	return o.SrcTree, o.SrcPath
}

// Invalidates reports the tree and path the operation removes, if any.
// Deletes remove their target; moves remove their source.
func (o Op) Invalidates() (TreeID, string, bool) {
	switch o.Kind {
	case OpDelete, OpMove:
		return o.SrcTree, o.SrcPath, true
	default:
		return "", "", false
	}
}

// Creates reports the tree and path the operation brings into existence.
func (o Op) Creates() (TreeID, string, bool) {
	switch o.Kind {
	case OpCopy, OpMove:
		return o.DstTree, o.DstPath, true
	default:
		return "", "", false
	}
}
