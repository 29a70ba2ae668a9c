// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/SNH48Live/KVM48/internal/koudai"
	"github.com/SNH48Live/KVM48/internal/ledger"
	"github.com/SNH48Live/KVM48/internal/naming"
	"github.com/SNH48Live/KVM48/internal/planner"
	"github.com/SNH48Live/KVM48/internal/review"
)

// runPerf is the performance pipeline: walk the group performance
// listing, let the user review the download list in an editor, resolve
// stream URLs for the surviving entries and hand off downloads.
func (a *app) runPerf(ctx context.Context, dr dateRange) error {
	fmt.Fprintf(os.Stderr, "Searching for performance VODs in the date range %s to %s\n",
		dr.From.Format("2006-01-02"), dr.To.Format("2006-01-02"))

	client := koudai.New()
	vods, err := client.CollectPerfVODs(ctx, dr.From, dr.To.AddDate(0, 0, 1), a.walkOptions())
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	if len(vods) == 0 {
		fmt.Fprintln(os.Stderr, "No VODs found")
		return nil
	}

	led, err := ledger.Open(filepath.Join(a.dataDir, "perf_ledger"))
	if err != nil {
		return err
	}
	defer led.Close()

	namer := a.cfg.Namer()
	alloc := naming.NewAllocator()
	byID := make(map[string]koudai.VOD, len(vods))
	knownIDs := make(map[string]struct{}, len(vods))
	var entries []review.Entry
	// Chronological order in the draft; the walk yields newest first.
	for i := len(vods) - 1; i >= 0; i-- {
		v := vods[i]
		p, err := namer.Filepath(v)
		if err != nil {
			return err
		}
		marker := review.Active
		if filtered, ok := a.filter.Apply(p); !ok {
			marker = review.Excluded
		} else {
			p = filtered
		}
		if marker == review.Active {
			seen, err := led.Contains(v.ID)
			if err != nil {
				return err
			}
			if seen {
				marker = review.Downloaded
			}
		}
		if marker == review.Active {
			p = alloc.Allocate(p)
		}
		byID[v.ID] = v
		knownIDs[v.ID] = struct{}{}
		entries = append(entries, review.Entry{ID: v.ID, Path: p, Marker: marker})
	}

	draftPath := filepath.Join(a.cacheDir, "review.txt")
	if err := review.WriteDraft(draftPath, entries, a.cfg.PerfInstructions); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Opening download list %q for review...\n", draftPath)
	if err := review.LaunchEditor(draftPath, a.cfg.Editor, a.cfg.EditorOpts); err != nil {
		return err
	}
	surviving, err := review.ParseDraft(draftPath, knownIDs, "mp4")
	if err != nil {
		return err
	}
	if len(surviving) == 0 {
		fmt.Fprintln(os.Stderr, "Nothing selected, exiting")
		return nil
	}

	selected := make([]*koudai.VOD, 0, len(surviving))
	for _, e := range surviving {
		v := byID[e.ID]
		v.Filepath = e.Path
		selected = append(selected, &v)
	}

	fmt.Fprintf(os.Stderr, "Resolving stream URLs of %d VOD(s)\n", len(selected))
	err = client.ResolvePerfVODs(ctx, selected, koudai.ResolveOptions{
		Progress:      func() { fmt.Fprint(os.Stderr, ".") },
		ProgressDelay: 2 * time.Second,
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	// The ledger records what was offered for download, not what
	// finished; resolved ids go in before the handoff.
	if !a.dry {
		ids := make([]string, 0, len(selected))
		for _, v := range selected {
			ids = append(ids, v.ID)
		}
		if err := led.InsertMany(ids); err != nil {
			return err
		}
	}

	planEntries := make([]planner.Entry, 0, len(selected))
	for _, v := range selected {
		planEntries = append(planEntries, planner.Entry{URL: v.VODURL, Path: v.Filepath})
	}
	plan := planner.Build(a.cfg.Directory(), planEntries)
	return a.executePlan(ctx, plan)
}
