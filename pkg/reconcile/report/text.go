package report

import (
	"bytes"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

// TextFormatter renders a report as aligned plain text for terminals.
// No colors or styling are applied.
type TextFormatter struct{}

// Format writes the formatted report to the buffer.
func (f *TextFormatter) Format(w *bytes.Buffer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	for _, b := range r.Builds {
		fmt.Fprintf(tw, "%s\t%s\t%d files\t%s hashed\t%s\n",
			b.Tree, b.Root, b.FilesSeen,
			humanize.IBytes(uint64(b.BytesHashed)),
			b.Elapsed.Round(timeRounding))
	}
	fmt.Fprintln(tw)

	d := r.Diff
	fmt.Fprintf(tw, "identical\t%d\n", len(d.Identical))
	fmt.Fprintf(tw, "modified\t%d\n", len(d.Modified))
	fmt.Fprintf(tw, "moved\t%d\n", len(d.Moved))
	fmt.Fprintf(tw, "only in a\t%d\n", len(d.OnlyInA))
	fmt.Fprintf(tw, "only in b\t%d\n", len(d.OnlyInB))
	fmt.Fprintf(tw, "duplicate groups\t%d\t%s reclaimable\n",
		len(d.DupGroups), humanize.IBytes(uint64(r.Reclaimable())))
	if err := tw.Flush(); err != nil {
		return err
	}

	if d.InSync() {
		fmt.Fprintf(w, "\ntrees are in sync\n")
	}

	f.modified(w, r)
	f.moved(w, r)
	f.onlyIn(w, "only in a", d.OnlyInA)
	f.onlyIn(w, "only in b", d.OnlyInB)
	f.duplicates(w, r)
	f.plans(w, r)
	f.errors(w, r)

	if r.HashCap > 0 {
		fmt.Fprintf(w, "\ndigests cover at most the first %s of each file\n",
			humanize.IBytes(uint64(r.HashCap)))
	}
	return nil
}

const timeRounding = time.Millisecond

func (f *TextFormatter) modified(w *bytes.Buffer, r *Report) {
	if len(r.Diff.Modified) == 0 {
		return
	}
	fmt.Fprintf(w, "\nmodified (%d)\n", len(r.Diff.Modified))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  PATH\tSIZE A\tSIZE B\n")
	for _, pr := range r.Diff.Modified {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n",
			pr.A.Path, pr.A.HumanSize(), pr.B.HumanSize())
	}
	tw.Flush()
}

func (f *TextFormatter) moved(w *bytes.Buffer, r *Report) {
	if len(r.Diff.Moved) == 0 {
		return
	}
	fmt.Fprintf(w, "\nmoved (%d)\n", len(r.Diff.Moved))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  IN A\tIN B\tSIZE\tDIGEST\n")
	for _, pr := range r.Diff.Moved {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n",
			pr.A.Path, pr.B.Path, pr.A.HumanSize(), shortDigest(pr.A.Digest))
	}
	tw.Flush()
}

func (f *TextFormatter) onlyIn(w *bytes.Buffer, title string, recs []types.FileRecord) {
	if len(recs) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s (%d)\n", title, len(recs))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  SIZE\tPATH\n")
	for _, rec := range recs {
		fmt.Fprintf(tw, "  %s\t%s\n", rec.HumanSize(), rec.Path)
	}
	tw.Flush()
}

func (f *TextFormatter) duplicates(w *bytes.Buffer, r *Report) {
	if len(r.Diff.DupGroups) == 0 {
		return
	}
	fmt.Fprintf(w, "\nduplicates (%d groups)\n", len(r.Diff.DupGroups))
	for _, g := range r.Diff.DupGroups {
		size := int64(0)
		if len(g.Records) > 0 {
			size = g.Records[0].Size
		}
		fmt.Fprintf(w, "  %s  tree %s  %d copies of %s\n",
			shortDigest(g.Digest), g.Tree, len(g.Records), types.FormatSize(size))
		for _, rec := range g.Records {
			fmt.Fprintf(w, "    %s\n", rec.Path)
		}
	}
}

func (f *TextFormatter) plans(w *bytes.Buffer, r *Report) {
	if len(r.Plans) == 0 {
		return
	}
	fmt.Fprintf(w, "\nplans\n")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, p := range r.Plans {
		detail := fmt.Sprintf("%d copy, %d move, %d delete", p.Copies, p.Moves, p.Deletes)
		script := p.Script
		if script == "" {
			script = "-"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", p.Mode, detail, script)
	}
	tw.Flush()
}

func (f *TextFormatter) errors(w *bytes.Buffer, r *Report) {
	total := 0
	for _, b := range r.Builds {
		total += len(b.Errors)
	}
	if total == 0 {
		return
	}
	fmt.Fprintf(w, "\nscan errors (%d)\n", total)
	for _, b := range r.Builds {
		for _, e := range b.Errors {
			fmt.Fprintf(w, "  %s: %s: %s\n", b.Tree, e.Path, e.Error)
		}
	}
}

func init() {
	Register("text", func() Formatter {
		return &TextFormatter{}
	})
}

// Ensure TextFormatter implements Formatter.
var _ Formatter = (*TextFormatter)(nil)
