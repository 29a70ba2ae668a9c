// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/SNH48Live/KVM48/internal/config"
	"github.com/SNH48Live/KVM48/internal/downloader"
	"github.com/SNH48Live/KVM48/internal/filter"
	"github.com/SNH48Live/KVM48/internal/koudai"
	"github.com/SNH48Live/KVM48/internal/naming"
	"github.com/SNH48Live/KVM48/internal/peek"
	"github.com/SNH48Live/KVM48/internal/planner"
)

// app carries the state shared by the std and perf pipelines.
type app struct {
	cfg      *config.Config
	filter   *filter.Filter
	cacheDir string
	dataDir  string
	dry      bool
	logger   zerolog.Logger
}

func (a *app) walkOptions() koudai.WalkOptions {
	return koudai.WalkOptions{
		GroupID: a.cfg.GroupID(),
		// Feedback for slow walks only; fast walks stay quiet.
		Progress:      func() { fmt.Fprint(os.Stderr, ".") },
		ProgressDelay: 2 * time.Second,
	}
}

// runStd is the standard pipeline: walk the member VOD listing, keep
// monitored members, derive paths, plan and hand off downloads.
func (a *app) runStd(ctx context.Context, dr dateRange) error {
	fmt.Fprintf(os.Stderr, "Searching for VODs in the date range %s to %s for: %s\n",
		dr.From.Format("2006-01-02"), dr.To.Format("2006-01-02"),
		strings.Join(a.cfg.Names, ", "))

	client := koudai.New()
	vods, err := client.CollectVODs(ctx, dr.From, dr.To.AddDate(0, 0, 1), a.walkOptions())
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	monitored := make(map[string]struct{}, len(a.cfg.Names))
	for _, n := range a.cfg.Names {
		monitored[n] = struct{}{}
	}

	namer := a.cfg.Namer()
	alloc := naming.NewAllocator()
	var entries []planner.Entry
	excluded := 0
	// The walk yields newest first; downloads go oldest first so that
	// collision counters follow broadcast order.
	for i := len(vods) - 1; i >= 0; i-- {
		v := vods[i]
		if _, ok := monitored[v.Name]; !ok {
			continue
		}
		p, err := namer.Filepath(v)
		if err != nil {
			return err
		}
		p = swapOutputExtension(p, v.VODURL)
		p, ok := a.filter.Apply(p)
		if !ok {
			excluded++
			continue
		}
		entries = append(entries, planner.Entry{URL: v.VODURL, Path: alloc.Allocate(p)})
	}
	if excluded > 0 {
		fmt.Fprintf(os.Stderr, "%d VOD(s) excluded by path filter\n", excluded)
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "No VODs found")
		return nil
	}

	plan := planner.Build(a.cfg.Directory(), entries)
	return a.executePlan(ctx, plan)
}

// swapOutputExtension replaces a path's final extension with the output
// container extension implied by the source URL, so segmented sources
// end up as mp4 files.
func swapOutputExtension(p, srcURL string) string {
	srcExt := naming.ExtensionFromURL(srcURL)
	outExt := naming.OutputExtension(srcExt)
	if srcExt == "" || outExt == srcExt || !strings.HasSuffix(p, "."+srcExt) {
		return p
	}
	return strings.TrimSuffix(p, "."+srcExt) + "." + outExt
}

// executePlan prints the listing, probes sizes, writes manifests, runs
// the external downloaders and reports the outcome. The summary line is
// printed even when nothing is handed off; dry runs skip the handoff
// but still report the counts.
func (a *app) executePlan(ctx context.Context, plan *planner.Plan) error {
	for _, t := range plan.Targets {
		fmt.Printf("%s\t%s\n", t.URL, t.Path)
	}

	direct := plan.Unfinished(planner.BucketDirect)
	segmented := plan.Unfinished(planner.BucketSegmented)
	alreadyComplete := len(plan.Targets) - len(direct) - len(segmented)
	if alreadyComplete > 0 {
		fmt.Fprintf(os.Stderr, "%d VOD(s) already downloaded\n", alreadyComplete)
	}

	if len(direct) > 0 {
		urls := make([]string, 0, len(direct))
		for _, t := range direct {
			urls = append(urls, t.URL)
		}
		if total, ok := peek.TotalSize(ctx, urls); ok {
			fmt.Fprintf(os.Stderr, "Total direct download size: %d bytes\n", total)
		} else {
			fmt.Fprintln(os.Stderr, "[WARNING] cannot determine total direct download size")
		}
	}

	var failures []error
	if !a.dry && len(direct)+len(segmented) > 0 {
		if err := plan.EnsureDirs(); err != nil {
			return err
		}
		if len(segmented) > 0 {
			if err := a.runSegmented(ctx, plan); err != nil {
				failures = append(failures, err)
			}
		}
		if len(direct) > 0 {
			if err := a.runDirect(ctx, plan); err != nil {
				failures = append(failures, err)
			}
		}
	}

	a.printSummary(plan, alreadyComplete)
	return errors.Join(failures...)
}

// runSegmented hands the m3u8 targets to caterpillar. A missing or
// outdated caterpillar is not fatal; the manifest stays behind for
// manual consumption.
func (a *app) runSegmented(ctx context.Context, plan *planner.Plan) error {
	manifest := filepath.Join(plan.Dir, "m3u8.txt")
	targets, err := plan.WriteCaterpillarManifest(manifest)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Info of %d M3U8 VOD(s) written to %q (could be consumed by caterpillar)\n",
		len(targets), manifest)

	if err := downloader.CheckCaterpillar(ctx); err != nil {
		if errors.Is(err, downloader.ErrToolMissing) || errors.Is(err, downloader.ErrToolTooOld) {
			fmt.Fprintf(os.Stderr, "[WARNING] %v; skipping M3U8 downloads\n", err)
			return nil
		}
		return err
	}
	status, err := downloader.RunCaterpillar(ctx, manifest)
	if err != nil {
		return err
	}
	if status != 0 {
		return fmt.Errorf("caterpillar exited with status %d", status)
	}
	return nil
}

// runDirect hands the direct targets to aria2 through a transient
// manifest in the cache directory.
func (a *app) runDirect(ctx context.Context, plan *planner.Plan) error {
	manifest := filepath.Join(a.cacheDir, "aria2.txt")
	if _, err := plan.WriteAria2Manifest(manifest); err != nil {
		return err
	}
	defer os.Remove(manifest)

	status, err := downloader.RunAria2(ctx, manifest)
	if errors.Is(err, downloader.ErrToolMissing) {
		return errors.New("aria2c not found; please install aria2 <https://aria2.github.io/>")
	}
	if err != nil {
		return err
	}
	if status != 0 {
		return fmt.Errorf("aria2c exited with status %d", status)
	}
	return nil
}

// printSummary re-classifies the plan against the filesystem and
// reports what this run achieved.
func (a *app) printSummary(plan *planner.Plan, alreadyComplete int) {
	entries := make([]planner.Entry, 0, len(plan.Targets))
	for _, t := range plan.Targets {
		entries = append(entries, planner.Entry{URL: t.URL, Path: t.Path})
	}
	after := planner.Build(plan.Dir, entries)
	complete := len(after.Complete(planner.BucketDirect)) + len(after.Complete(planner.BucketSegmented))
	downloaded := complete - alreadyComplete
	failed := len(after.Targets) - complete
	fmt.Fprintf(os.Stderr, "%d VOD(s) downloaded, %d already complete, %d failed or unfinished\n",
		downloaded, alreadyComplete, failed)
}
