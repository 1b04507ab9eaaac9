package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/reconcile/cmd/reconcile/tui"
	"github.com/jamesainslie/reconcile/pkg/reconcile/catalog"
	"github.com/jamesainslie/reconcile/pkg/reconcile/compare"
	"github.com/jamesainslie/reconcile/pkg/reconcile/config"
	"github.com/jamesainslie/reconcile/pkg/reconcile/hasher"
	"github.com/jamesainslie/reconcile/pkg/reconcile/logging"
	"github.com/jamesainslie/reconcile/pkg/reconcile/manifest"
	"github.com/jamesainslie/reconcile/pkg/reconcile/plan"
	"github.com/jamesainslie/reconcile/pkg/reconcile/report"
	"github.com/jamesainslie/reconcile/pkg/reconcile/script"
	"github.com/jamesainslie/reconcile/pkg/reconcile/store"
	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

// runReconcile is the root command: catalog both trees, compare, then
// report and plan per the mode flags.
func runReconcile(cmd *cobra.Command, args []string) error {
	log := logging.Get("cli")

	rootA, err := resolveRoot(args[0])
	if err != nil {
		return err
	}
	rootB, err := resolveRoot(args[1])
	if err != nil {
		return err
	}

	modes, withReport := modesFromFlags(modeFlags(cmd))
	pOpts := planOptions(cmd)

	interactive, _ := cmd.Flags().GetBool("interactive")
	if interactive && !slices.Contains(modes, plan.ModeDedup) {
		return fmt.Errorf("--interactive requires --dedup")
	}
	if interactive && !stdoutIsTerminal() {
		return fmt.Errorf("--interactive needs a terminal")
	}

	catOpts, hashCap, err := catalogOptions(cmd)
	if err != nil {
		return err
	}

	// Resolve the formatter before the builds so a typo fails fast.
	format := viper.GetString("format")
	formatter, err := report.Get(format)
	if err != nil {
		return fmt.Errorf("unknown report format %q: available formats are %s",
			format, strings.Join(report.Available(), ", "))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		printVerbose("interrupt received, stopping")
		cancel()
	}()

	dbPath := viper.GetString("db")
	printVerbose("opening catalog database at %s", dbPath)
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open catalog database: %w", err)
	}
	defer func() { _ = st.Close() }()

	log.Info("run started",
		"root_a", rootA, "root_b", rootB,
		"operation", operationLabel(modes), "interactive", interactive)

	var builds []types.BuildResult
	var diff *compare.Diff

	if interactive {
		res, err := tui.Run(tui.Options{
			Store:       st,
			RootA:       rootA,
			RootB:       rootB,
			Catalog:     catOpts,
			AcrossTrees: pOpts.AcrossTrees,
			Version:     version,
		})
		if err != nil {
			return fmt.Errorf("interactive session failed: %w", err)
		}
		if res.Aborted {
			printInfo("Aborted. Catalogs stay updated; no script was written.")
			return nil
		}
		builds = res.Builds
		diff = res.Diff
		pOpts.Decisions = res.Decisions
	} else {
		builds, diff, err = buildAndCompare(ctx, st, rootA, rootB, catOpts, absorbFastPath(modes))
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				printInfo("Cataloging cancelled")
				return nil
			}
			return err
		}
	}

	logging.Get("compare").Info("catalogs compared",
		"identical", len(diff.Identical), "modified", len(diff.Modified),
		"moved", len(diff.Moved), "only_in_a", len(diff.OnlyInA),
		"only_in_b", len(diff.OnlyInB), "dup_groups", len(diff.DupGroups))

	reportScanErrors(builds)

	rep := report.New(builds, diff, hashCap)

	var plans []*plan.Plan
	var scripts []string
	if len(modes) > 0 {
		planLog := logging.Get("plan")
		for _, mode := range modes {
			p := planFor(mode, diff, pOpts)
			plans = append(plans, p)
			planLog.Info("planned", "mode", mode, "ops", len(p.Ops),
				"bytes_copied", p.BytesCopied, "bytes_freed", p.BytesFreed,
				"degraded", p.Degraded)
		}

		// Modes must agree before anything is written.
		if len(plans) > 1 {
			if _, err := plan.Combine(plans...); err != nil {
				return err
			}
		}

		renderer := &script.Renderer{
			RootA:   rootA,
			RootB:   rootB,
			Version: version,
			Darwin:  viper.GetBool("script.darwin"),
		}
		outDir := viper.GetString("script.output")
		scriptLog := logging.Get("script")
		for _, p := range plans {
			if p.Empty() {
				printInfo("%s", p.Summary())
				rep.AddPlan(p, "")
				continue
			}
			path, err := renderer.Write(outDir, p)
			if err != nil {
				return fmt.Errorf("failed to write %s: %w", script.Filename(p.Mode), err)
			}
			scriptLog.Info("script written", "path", path, "ops", len(p.Ops))
			rep.AddPlan(p, path)
			scripts = append(scripts, path)
			printInfo("wrote %s (%s)", path, p.Summary())
			if p.Degraded > 0 {
				printInfo("note: %d moves were rendered as copies; pass --mutate-source to consume tree B", p.Degraded)
			}
		}
	}

	if withReport {
		var buf bytes.Buffer
		if err := formatter.Format(&buf, rep); err != nil {
			return fmt.Errorf("failed to format report: %w", err)
		}
		fmt.Print(buf.String())
	}

	if viper.GetBool("history.enabled") {
		recordRun(operationLabel(modes), rootA, rootB, diff, plans, scripts)
	}

	log.Info("run complete", "operation", operationLabel(modes), "scripts", len(scripts))
	return nil
}

// resolveRoot expands, absolutizes, and verifies one tree root argument.
func resolveRoot(arg string) (string, error) {
	expandedPath, err := config.ExpandPath(arg)
	if err != nil {
		return "", fmt.Errorf("failed to expand path: %w", err)
	}

	absPath, err := filepath.Abs(expandedPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("path does not exist: %s", absPath)
		}
		return "", fmt.Errorf("cannot access path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", absPath)
	}

	return absPath, nil
}

// modeFlags reads the five mode flags off the command.
func modeFlags(cmd *cobra.Command) (report, dedup, syncMode, consolidate, absorb bool) {
	report, _ = cmd.Flags().GetBool("report")
	dedup, _ = cmd.Flags().GetBool("dedup")
	syncMode, _ = cmd.Flags().GetBool("sync")
	consolidate, _ = cmd.Flags().GetBool("consolidate")
	absorb, _ = cmd.Flags().GetBool("absorb")
	return report, dedup, syncMode, consolidate, absorb
}

// modesFromFlags maps mode flags to plan modes in canonical order and
// reports whether the textual report should print. No mode flags at all
// means report-only.
func modesFromFlags(report, dedup, syncMode, consolidate, absorb bool) ([]plan.Mode, bool) {
	var modes []plan.Mode
	if dedup {
		modes = append(modes, plan.ModeDedup)
	}
	if syncMode {
		modes = append(modes, plan.ModeSync)
	}
	if consolidate {
		modes = append(modes, plan.ModeConsolidate)
	}
	if absorb {
		modes = append(modes, plan.ModeAbsorb)
	}
	return modes, report || len(modes) == 0
}

// absorbFastPath reports whether the size-gated build order applies:
// absorb must be the only requested mode.
func absorbFastPath(modes []plan.Mode) bool {
	return len(modes) == 1 && modes[0] == plan.ModeAbsorb
}

// operationLabel names a run for its history entry: the planned modes
// joined with "+", or "report" when only the report ran.
func operationLabel(modes []plan.Mode) manifest.Operation {
	if len(modes) == 0 {
		return manifest.OpReport
	}
	parts := make([]string, len(modes))
	for i, m := range modes {
		parts[i] = string(m)
	}
	return manifest.Operation(strings.Join(parts, "+"))
}

// planOptions assembles planner options from the behavior flags.
func planOptions(cmd *cobra.Command) plan.Options {
	move, _ := cmd.Flags().GetBool("move")
	twoWay, _ := cmd.Flags().GetBool("two-way")
	mutate, _ := cmd.Flags().GetBool("mutate-source")
	across, _ := cmd.Flags().GetBool("across-trees")
	return plan.Options{
		Move:         move,
		TwoWay:       twoWay,
		MutateSource: mutate,
		AcrossTrees:  across,
	}
}

// planFor dispatches one mode to its planner.
func planFor(mode plan.Mode, d *compare.Diff, opts plan.Options) *plan.Plan {
	switch mode {
	case plan.ModeDedup:
		return plan.PlanDedup(d, opts)
	case plan.ModeSync:
		return plan.PlanSync(d, opts)
	case plan.ModeConsolidate:
		return plan.PlanConsolidate(d, opts)
	case plan.ModeAbsorb:
		return plan.PlanAbsorb(d, opts)
	}
	return &plan.Plan{Mode: mode}
}

// catalogOptions assembles build options from flags and config.
func catalogOptions(cmd *cobra.Command) (catalog.Options, int64, error) {
	hashCapStr := viper.GetString("hash_cap")
	hashCap, err := types.ParseSize(hashCapStr)
	if err != nil {
		return catalog.Options{}, 0, fmt.Errorf("invalid hash cap %q: %w", hashCapStr, err)
	}

	rescan, _ := cmd.Flags().GetBool("rescan")

	return catalog.Options{
		Exclude: viper.GetStringSlice("exclude"),
		Workers: viper.GetInt("workers"),
		HashCap: hashCap,
		Rescan:  rescan,
	}, hashCap, nil
}

// buildAndCompare refreshes both tree catalogs and compares them. Build
// results come back tree A first regardless of build order.
//
// The absorb fast path catalogs B first and gates A's hashing on B's size
// set: a file whose size matches nothing in B cannot share content with
// B, so its bytes never need reading. Equal-size path pairs the gate left
// digestless are rehashed before the comparison.
func buildAndCompare(ctx context.Context, st *store.Store, rootA, rootB string, opts catalog.Options, absorbOnly bool) ([]types.BuildResult, *compare.Diff, error) {
	if !absorbOnly {
		resA, err := buildTree(ctx, st, types.TreeA, rootA, opts)
		if err != nil {
			return nil, nil, err
		}
		resB, err := buildTree(ctx, st, types.TreeB, rootB, opts)
		if err != nil {
			return nil, nil, err
		}

		recsA, err := st.GetAll(types.TreeA)
		if err != nil {
			return nil, nil, fmt.Errorf("load catalog a: %w", err)
		}
		recsB, err := st.GetAll(types.TreeB)
		if err != nil {
			return nil, nil, fmt.Errorf("load catalog b: %w", err)
		}

		return []types.BuildResult{*resA, *resB}, compare.Compare(recsA, recsB), nil
	}

	resB, err := buildTree(ctx, st, types.TreeB, rootB, opts)
	if err != nil {
		return nil, nil, err
	}
	recsB, err := st.GetAll(types.TreeB)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog b: %w", err)
	}

	gate := make(map[int64]bool, len(recsB))
	for _, rec := range recsB {
		gate[rec.Size] = true
	}
	printVerbose("absorb fast path: gating tree a hashing on %d distinct sizes", len(gate))

	optsA := opts
	optsA.SizeGate = gate
	resA, err := buildTree(ctx, st, types.TreeA, rootA, optsA)
	if err != nil {
		return nil, nil, err
	}
	recsA, err := st.GetAll(types.TreeA)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog a: %w", err)
	}

	roots := map[types.TreeID]string{types.TreeA: rootA, types.TreeB: rootB}
	errsA, errsB, err := repairUnhashed(ctx, st, opts.HashCap, roots, recsA, recsB)
	if err != nil {
		return nil, nil, err
	}
	resA.Errors = append(resA.Errors, errsA...)
	resB.Errors = append(resB.Errors, errsB...)

	return []types.BuildResult{*resA, *resB}, compare.Compare(recsA, recsB), nil
}

// buildTree runs one catalog build with a progress bar attached.
func buildTree(ctx context.Context, st *store.Store, tree types.TreeID, root string, opts catalog.Options) (*types.BuildResult, error) {
	bar := newCatalogBar(tree)
	opts.OnProgress = bar.update

	res, err := catalog.New(st, opts).Build(ctx, tree, root)
	bar.finish()
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", tree, err)
	}

	logging.Get("catalog").Info("catalog built",
		"tree", tree, "root", root,
		"seen", res.FilesSeen, "hashed", res.FilesHashed,
		"reused", res.FilesReused, "removed", res.FilesRemoved,
		"bytes_hashed", res.BytesHashed, "elapsed", res.Elapsed,
		"errors", len(res.Errors))
	printVerbose("catalog %s: %d seen, %d hashed, %d reused, %d removed, %s in %s",
		tree, res.FilesSeen, res.FilesHashed, res.FilesReused, res.FilesRemoved,
		humanize.IBytes(uint64(res.BytesHashed)), res.Elapsed.Round(time.Millisecond))

	return res, nil
}

// repairUnhashed rehashes the files a size-gated build left digestless
// where their path pair has equal sizes. Path comparison needs real
// digests there; every other record can stay unhashed.
func repairUnhashed(ctx context.Context, st *store.Store, hashCap int64, roots map[types.TreeID]string, recsA, recsB []types.FileRecord) ([]types.ScanError, []types.ScanError, error) {
	byPathB := make(map[string]*types.FileRecord, len(recsB))
	for i := range recsB {
		byPathB[recsB[i].Path] = &recsB[i]
	}

	h := hasher.New(hashCap)
	var errsA, errsB []types.ScanError

	for i := range recsA {
		a := &recsA[i]
		b, ok := byPathB[a.Path]
		if !ok || a.Size != b.Size || (a.Hashed() && b.Hashed()) {
			continue
		}

		for _, rec := range []*types.FileRecord{a, b} {
			if rec.Hashed() {
				continue
			}
			if err := ctx.Err(); err != nil {
				return errsA, errsB, err
			}

			abs := filepath.Join(roots[rec.Tree], filepath.FromSlash(rec.Path))
			digest, _, err := h.Hash(ctx, abs)
			if err != nil {
				if ctx.Err() != nil {
					return errsA, errsB, ctx.Err()
				}
				scanErr := types.ScanError{Path: abs, Error: err.Error()}
				if rec.Tree == types.TreeA {
					errsA = append(errsA, scanErr)
				} else {
					errsB = append(errsB, scanErr)
				}
				continue
			}

			rec.Digest = digest
			if err := st.Put(*rec); err != nil {
				return errsA, errsB, fmt.Errorf("store record %s:%s: %w", rec.Tree, rec.Path, err)
			}
		}
	}

	return errsA, errsB, nil
}

// reportScanErrors lists per-file errors on stderr. They never change the
// exit code; the report carries the counts.
func reportScanErrors(builds []types.BuildResult) {
	for _, b := range builds {
		for _, e := range b.Errors {
			fmt.Fprintf(os.Stderr, "scan error (%s): %s: %s\n", b.Tree, e.Path, e.Error)
		}
	}
}

// recordRun stores the run in history. History failures only warn; the
// run itself already succeeded.
func recordRun(op manifest.Operation, rootA, rootB string, d *compare.Diff, plans []*plan.Plan, scripts []string) {
	m, err := manifest.New(viper.GetString("history.path"))
	if err != nil {
		printVerbose("history disabled: %v", err)
		return
	}
	if err := m.EnsureDir(); err != nil {
		printVerbose("history disabled: %v", err)
		return
	}

	entry := manifest.Entry{
		Operation: op,
		Roots:     manifest.Roots{A: rootA, B: rootB},
		Counts: manifest.Counts{
			Identical:       len(d.Identical),
			Modified:        len(d.Modified),
			Moved:           len(d.Moved),
			OnlyInA:         len(d.OnlyInA),
			OnlyInB:         len(d.OnlyInB),
			DuplicateGroups: len(d.DupGroups),
		},
		Scripts: scripts,
	}
	for _, p := range plans {
		entry.Summary.Operations += len(p.Ops)
		entry.Summary.BytesCopied += p.BytesCopied
		entry.Summary.BytesFreed += p.BytesFreed
	}

	logged, err := m.Log(entry)
	if err != nil {
		logging.Get("cli").Warn("history write failed", "err", err)
		return
	}
	printVerbose("run recorded as %s", logged.ID)

	if days := viper.GetInt("history.retention_days"); days > 0 {
		if err := m.Cleanup(days); err != nil {
			printVerbose("history cleanup failed: %v", err)
		}
	}
}
