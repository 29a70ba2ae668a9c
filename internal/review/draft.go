// SPDX-License-Identifier: MIT

// Package review implements the interactive review pipeline used in
// perf mode: a human-editable draft of candidate downloads is written,
// handed to an external editor, then strictly re-parsed and validated
// before any stream URL is resolved.
//
// States: Listed -> Drafted -> Edited -> Validated -> Resolved.
package review

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	commentPrefix = "#"

	// markerExcluded comments out lines rejected by the path filter;
	// markerDownloaded comments out lines already in the dedup ledger.
	// Both can be restored by hand during editing.
	markerExcluded   = "#excluded# "
	markerDownloaded = "#downloaded# "
)

// Marker classifies a draft line.
type Marker int

const (
	Active Marker = iota
	Excluded
	Downloaded
)

// Entry is one candidate VOD in the draft.
type Entry struct {
	ID     string
	Path   string
	Marker Marker
}

const instructions = `Review the download list below. Each active line is "{id} {path}".
Delete a line (or comment it out with #) to skip that VOD; edit the
path to rename the destination. Restore an #excluded# or #downloaded#
line by removing the marker. Save and close the editor to continue.`

// WriteDraft renders the draft file. Entries keep their listing order;
// marked entries are emitted commented out.
func WriteDraft(path string, entries []Entry, withInstructions bool) error {
	var b strings.Builder
	if withInstructions {
		for _, line := range strings.Split(instructions, "\n") {
			b.WriteString(commentPrefix + " " + line + "\n")
		}
		b.WriteString("\n")
	}
	for _, e := range entries {
		switch e.Marker {
		case Excluded:
			b.WriteString(markerExcluded)
		case Downloaded:
			b.WriteString(markerDownloaded)
		}
		b.WriteString(e.ID + " " + e.Path + "\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("review: write draft %s: %w", path, err)
	}
	return nil
}

// ValidationError is fatal for the whole run: a half-resolved plan
// could silently skip real content, so partial commitment is not
// allowed.
type ValidationError struct {
	Line   int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("review: draft line %d: %s", e.Line, e.Reason)
}

// ParseDraft re-reads the edited draft. Blank lines and comment lines
// are dropped; every surviving line must be "{id} {path}" with a known,
// not-yet-seen id, a relative path, and the expected final extension.
func ParseDraft(path string, knownIDs map[string]struct{}, wantExt string) ([]Entry, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("review: open draft %s: %w", path, err)
	}
	defer fp.Close()

	var entries []Entry
	seen := make(map[string]struct{})
	sc := bufio.NewScanner(fp)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := strings.TrimRight(sc.Text(), " \t\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}
		id, entryPath, ok := strings.Cut(line, " ")
		if !ok || id == "" || strings.TrimSpace(entryPath) == "" {
			return nil, &ValidationError{Line: lineno, Reason: fmt.Sprintf("malformed line %q; expected \"{id} {path}\"", line)}
		}
		entryPath = strings.TrimSpace(entryPath)
		if _, known := knownIDs[id]; !known {
			return nil, &ValidationError{Line: lineno, Reason: fmt.Sprintf("unknown id %q", id)}
		}
		if _, dup := seen[id]; dup {
			return nil, &ValidationError{Line: lineno, Reason: fmt.Sprintf("duplicate id %q", id)}
		}
		if filepath.IsAbs(entryPath) || strings.HasPrefix(entryPath, "/") {
			return nil, &ValidationError{Line: lineno, Reason: fmt.Sprintf("absolute path %q; paths must be relative to the download directory", entryPath)}
		}
		if ext := strings.TrimPrefix(filepath.Ext(entryPath), "."); ext != wantExt {
			return nil, &ValidationError{Line: lineno, Reason: fmt.Sprintf("path %q must end in .%s", entryPath, wantExt)}
		}
		seen[id] = struct{}{}
		entries = append(entries, Entry{ID: id, Path: entryPath})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("review: read draft %s: %w", path, err)
	}
	return entries, nil
}
