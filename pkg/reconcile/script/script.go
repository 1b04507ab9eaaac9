// Package script renders plans as POSIX shell scripts. The tool never
// touches tree content itself: the script is the deliverable, written
// for a human to read, edit, and run.
package script

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/jamesainslie/reconcile/pkg/reconcile/plan"
	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

// utf8BOM marks the script as UTF-8 for editors that guess encodings.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Renderer turns plans into runnable scripts for one pair of trees.
type Renderer struct {
	// RootA and RootB are the absolute tree roots, emitted once as the
	// A and B shell variables every command goes through.
	RootA string
	RootB string

	// Version names the generator in the script header.
	Version string

	// Darwin renders copies with ditto instead of cp; cp on macOS lacks
	// --parents.
	Darwin bool

	// Now stamps the header; nil means time.Now.
	Now func() time.Time
}

// Filename returns the script name for a mode: "dedup.sh", "sync.sh",
// and so on.
func Filename(mode plan.Mode) string {
	return string(mode) + ".sh"
}

// Render produces the full script body, BOM included.
func (r *Renderer) Render(p *plan.Plan) []byte {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	var sb strings.Builder
	sb.Write(utf8BOM)
	sb.WriteString("#!/bin/sh\n")
	fmt.Fprintf(&sb, "# generated by reconcile %s (%s)\n", r.Version, now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "# %s\n", p.Summary())
	sb.WriteString("set -e\n")
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "A=%s\n", quote(r.RootA))
	fmt.Fprintf(&sb, "B=%s\n", quote(r.RootB))
	sb.WriteString("\n")

	for _, op := range p.Ops {
		sb.WriteString(r.command(op))
		sb.WriteString("\n")
	}
	return []byte(sb.String())
}

// Write renders the plan into dir under its mode's filename, atomically:
// the script appears complete and executable or not at all.
func (r *Renderer) Write(dir string, p *plan.Plan) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create script directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".reconcile-*")
	if err != nil {
		return "", fmt.Errorf("create script: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(r.Render(p)); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write script: %w", err)
	}
	if err := tmp.Chmod(executable(0o644)); err != nil {
		tmp.Close()
		return "", fmt.Errorf("mark script executable: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write script: %w", err)
	}

	dst := filepath.Join(dir, Filename(p.Mode))
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("write script: %w", err)
	}
	return dst, nil
}

// executable copies the read bits of a permission set onto its execute
// bits: whoever may read the script may run it.
func executable(mode os.FileMode) os.FileMode {
	return mode | (mode&0o444)>>2
}

// command renders one operation as a shell line.
func (r *Renderer) command(op types.Op) string {
	switch op.Kind {
	case types.OpCopy:
		return r.copyCommand(op)
	case types.OpMove:
		return fmt.Sprintf("%smv -v %s %s",
			mkdirPrefix(op.DstTree, op.DstPath),
			varPath(op.SrcTree, op.SrcPath),
			varPath(op.DstTree, op.DstPath))
	case types.OpDelete:
		return fmt.Sprintf("rm -v %s", varPath(op.SrcTree, op.SrcPath))
	default:
		return "# unknown operation: " + string(op.Kind)
	}
}

func (r *Renderer) copyCommand(op types.Op) string {
	// A straight transplant keeps its relative path; cp --parents
	// recreates the directories on the far side.
	if op.SrcPath == op.DstPath && op.SrcTree != op.DstTree {
		if r.Darwin {
			return fmt.Sprintf("(cd \"$%s\" && ditto -v %s %s)",
				treeVar(op.SrcTree), quote(op.SrcPath), varPath(op.DstTree, op.DstPath))
		}
		return fmt.Sprintf("(cd \"$%s\" && cp -v --parents %s \"$%s\")",
			treeVar(op.SrcTree), quote(op.SrcPath), treeVar(op.DstTree))
	}

	// Renames and within-tree copies name both ends explicitly.
	verb := "cp -v"
	prefix := mkdirPrefix(op.DstTree, op.DstPath)
	if r.Darwin {
		verb = "ditto -v"
		prefix = "" // ditto creates intermediate directories itself
	}
	return fmt.Sprintf("%s%s %s %s",
		prefix, verb,
		varPath(op.SrcTree, op.SrcPath),
		varPath(op.DstTree, op.DstPath))
}

// mkdirPrefix returns the "mkdir -p ... && " guard for a destination, or
// nothing when the destination sits at the tree root.
func mkdirPrefix(tree types.TreeID, p string) string {
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return ""
	}
	return fmt.Sprintf("mkdir -p %s && ", varPath(tree, dir))
}

// treeVar names the shell variable holding a tree's root.
func treeVar(tree types.TreeID) string {
	if tree == types.TreeB {
		return "B"
	}
	return "A"
}

// varPath renders a tree-relative path as a double-quoted variable
// reference, e.g. "$A/docs/note.txt".
func varPath(tree types.TreeID, p string) string {
	return fmt.Sprintf("\"$%s/%s\"", treeVar(tree), dquoteEscape(p))
}

// dquoteEscape escapes the characters the shell still interprets inside
// double quotes.
func dquoteEscape(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '$', '`', '"', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// quote single-quotes a string for the shell unless it is plainly safe,
// matching the quoting style of shlex.quote.
func quote(s string) string {
	if s == "" {
		return "''"
	}
	if safeWord(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func safeWord(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("_@%+=:,./-", r):
		default:
			return false
		}
	}
	return true
}
