package main

import (
	"fmt"
	"os"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

// barTemplate shows hashed volume and throughput. Totals are unknowable
// until the walk ends, so the line is counters rather than a percentage
// bar.
var barTemplate pb.ProgressBarTemplate = `{{string . "tree" | printf "%-10s"}} {{counters . }} {{speed . }} {{string . "files"}}`

// catalogBar renders one catalog build as a progress line on stderr. A
// catalogBar without an underlying bar stays silent, so callers never
// need to branch on progressEnabled themselves.
type catalogBar struct {
	bar *pb.ProgressBar
}

func newCatalogBar(tree types.TreeID) *catalogBar {
	if !progressEnabled() {
		return &catalogBar{}
	}

	bar := barTemplate.New(0)
	bar.Set(pb.Bytes, true)
	bar.Set("tree", "catalog "+tree.String())
	bar.Set("files", "0 files")
	bar.SetWriter(os.Stderr)
	bar.SetRefreshRate(100 * time.Millisecond)
	bar.Start()

	return &catalogBar{bar: bar}
}

// update is handed to the catalog builder as its progress callback. The
// underlying bar is safe for concurrent writers.
func (c *catalogBar) update(p types.Progress) {
	if c.bar == nil {
		return
	}
	c.bar.SetCurrent(p.BytesHashed)
	c.bar.Set("files", fmt.Sprintf("%s/%s files",
		humanize.Comma(p.FilesHashed), humanize.Comma(p.FilesSeen)))
}

func (c *catalogBar) finish() {
	if c.bar == nil {
		return
	}
	c.bar.Finish()
}

// progressEnabled reports whether a progress bar should render: stderr
// must be a terminal and neither --no-progress nor --quiet set.
func progressEnabled() bool {
	if viper.GetBool("no_progress") || getQuiet() {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
