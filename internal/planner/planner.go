// SPDX-License-Identifier: MIT

// Package planner partitions resolved VOD targets into downloader
// buckets, classifies their on-disk completion state, and writes the
// manifests consumed by the external downloaders.
package planner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/SNH48Live/KVM48/internal/naming"
)

// Bucket selects the external downloader responsible for a target.
type Bucket int

const (
	// BucketDirect targets are single-file downloads handed to aria2.
	BucketDirect Bucket = iota
	// BucketSegmented targets are HLS/M3U8 playlists handed to
	// caterpillar for reassembly.
	BucketSegmented
)

// Status is the on-disk completion state of a target.
type Status int

const (
	StatusMissing Status = iota
	// StatusPartial means a sidecar partial-download marker exists
	// beside the destination (aria2's ".aria2" control file).
	StatusPartial
	StatusComplete
)

// Target is one (url, path) download pair. Path is relative to the
// plan's directory, slash-separated.
type Target struct {
	URL    string
	Path   string
	Bucket Bucket
	Status Status
}

// Entry is an unclassified (url, path) pair.
type Entry struct {
	URL  string
	Path string
}

// Plan holds the classified targets for one run.
type Plan struct {
	Dir     string
	Targets []Target
}

// Build classifies entries against the destination directory. Targets
// whose source URL carries the segmented-stream extension go to the
// segmented bucket; everything else is direct.
func Build(dir string, entries []Entry) *Plan {
	p := &Plan{Dir: dir}
	for _, e := range entries {
		bucket := BucketDirect
		if naming.ExtensionFromURL(e.URL) == "m3u8" {
			bucket = BucketSegmented
		}
		p.Targets = append(p.Targets, Target{
			URL:    e.URL,
			Path:   e.Path,
			Bucket: bucket,
			Status: classify(dir, e.Path, bucket),
		})
	}
	return p
}

func classify(dir, relPath string, bucket Bucket) Status {
	dest := filepath.Join(dir, filepath.FromSlash(relPath))
	if _, err := os.Stat(dest); err != nil {
		return StatusMissing
	}
	if bucket == BucketDirect {
		// aria2 leaves a ".aria2" control file beside unfinished
		// downloads; caterpillar does not use sidecar markers.
		if _, err := os.Stat(dest + ".aria2"); err == nil {
			return StatusPartial
		}
	}
	return StatusComplete
}

// Unfinished returns the targets of a bucket that still need
// downloading. Already-complete targets stay listed for display but are
// excluded from manifests, so reruns do not re-download.
func (p *Plan) Unfinished(bucket Bucket) []Target {
	var out []Target
	for _, t := range p.Targets {
		if t.Bucket == bucket && t.Status != StatusComplete {
			out = append(out, t)
		}
	}
	return out
}

// Complete returns the already-complete targets of a bucket.
func (p *Plan) Complete(bucket Bucket) []Target {
	var out []Target
	for _, t := range p.Targets {
		if t.Bucket == bucket && t.Status == StatusComplete {
			out = append(out, t)
		}
	}
	return out
}

// EnsureDirs creates every directory implied by unfinished target
// paths. The external downloaders do not reliably create nested
// directories themselves.
func (p *Plan) EnsureDirs() error {
	for _, t := range p.Targets {
		if t.Status == StatusComplete {
			continue
		}
		dir := filepath.Dir(filepath.Join(p.Dir, filepath.FromSlash(t.Path)))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("planner: cannot create %s: %w", dir, err)
		}
	}
	return nil
}

// WriteAria2Manifest writes the direct-download manifest: for each
// unfinished direct target, the URL followed by indented dir= and out=
// option lines. Returns the targets written.
func (p *Plan) WriteAria2Manifest(path string) ([]Target, error) {
	targets := p.Unfinished(BucketDirect)
	var b strings.Builder
	for _, t := range targets {
		abs := filepath.Join(p.Dir, filepath.FromSlash(t.Path))
		b.WriteString(t.URL)
		b.WriteByte('\n')
		if dir := filepath.Dir(abs); dir != "." {
			fmt.Fprintf(&b, "\tdir=%s\n", dir)
		}
		fmt.Fprintf(&b, "\tout=%s\n", filepath.Base(abs))
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return nil, fmt.Errorf("planner: write manifest %s: %w", path, err)
	}
	return targets, nil
}

// WriteCaterpillarManifest writes the segmented-stream manifest:
// tab-separated URL and destination path per line. Returns the targets
// written.
func (p *Plan) WriteCaterpillarManifest(path string) ([]Target, error) {
	targets := p.Unfinished(BucketSegmented)
	var b strings.Builder
	for _, t := range targets {
		abs := filepath.Join(p.Dir, filepath.FromSlash(t.Path))
		fmt.Fprintf(&b, "%s\t%s\n", t.URL, abs)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return nil, fmt.Errorf("planner: write manifest %s: %w", path, err)
	}
	return targets, nil
}
