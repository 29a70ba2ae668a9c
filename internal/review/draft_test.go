// SPDX-License-Identifier: MIT

package review

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempDraft(t *testing.T, entries []Entry, withInstructions bool) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "review.txt")
	require.NoError(t, WriteDraft(path, entries, withInstructions))
	return path
}

func known(ids ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func TestDraftRoundTrip(t *testing.T) {
	entries := []Entry{
		{ID: "a1", Path: "20190101 公演.mp4"},
		{ID: "b2", Path: "20190102 公演.mp4", Marker: Excluded},
		{ID: "c3", Path: "20190103 公演.mp4", Marker: Downloaded},
		{ID: "d4", Path: "20190104 公演.mp4"},
	}
	path := writeTempDraft(t, entries, true)

	// An unedited draft parses back to exactly the active set.
	got, err := ParseDraft(path, known("a1", "b2", "c3", "d4"), "mp4")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Entry{ID: "a1", Path: "20190101 公演.mp4"}, got[0])
	assert.Equal(t, Entry{ID: "d4", Path: "20190104 公演.mp4"}, got[1])
}

func TestDraftMarkers(t *testing.T) {
	entries := []Entry{
		{ID: "a1", Path: "x.mp4"},
		{ID: "b2", Path: "y.mp4", Marker: Excluded},
		{ID: "c3", Path: "z.mp4", Marker: Downloaded},
	}
	path := writeTempDraft(t, entries, false)
	buf, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a1 x.mp4\n#excluded# b2 y.mp4\n#downloaded# c3 z.mp4\n", string(buf))
}

func TestParseDraftRestoredMarkerLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "review.txt")
	// The user removed the "#excluded# " marker to restore the line.
	require.NoError(t, os.WriteFile(path, []byte("b2 y.mp4\n"), 0o644))
	got, err := ParseDraft(path, known("b2"), "mp4")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b2", got[0].ID)
}

func TestParseDraftEditedPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "review.txt")
	require.NoError(t, os.WriteFile(path, []byte("a1 renamed dir/show.mp4\n"), 0o644))
	got, err := ParseDraft(path, known("a1"), "mp4")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "renamed dir/show.mp4", got[0].Path)
}

func TestParseDraftValidationFailures(t *testing.T) {
	cases := []struct {
		name    string
		content string
		ids     map[string]struct{}
		reason  string
	}{
		{"malformed line", "justoneword\n", known("a1"), "malformed"},
		{"unknown id", "zz x.mp4\n", known("a1"), "unknown id"},
		{"duplicate id", "a1 x.mp4\na1 y.mp4\n", known("a1"), "duplicate id"},
		{"absolute path", "a1 /tmp/x.mp4\n", known("a1"), "absolute path"},
		{"wrong extension", "a1 x.m3u8\n", known("a1"), "must end in .mp4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "review.txt")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o644))
			_, err := ParseDraft(path, tc.ids, "mp4")
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, err.Error(), tc.reason)
		})
	}
}

func TestParseDraftIgnoresBlankAndCommentLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "review.txt")
	content := "# header comment\n\n   \na1 x.mp4\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	got, err := ParseDraft(path, known("a1"), "mp4")
	require.NoError(t, err)
	require.Len(t, got, 1)
}
