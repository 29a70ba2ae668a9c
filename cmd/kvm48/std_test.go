// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SNH48Live/KVM48/internal/planner"
)

// captureStderr collects what fn writes to stderr.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stderr
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stderr = w
	defer func() { os.Stderr = old }()
	fn()
	require.NoError(t, w.Close())
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(b)
}

func TestSwapOutputExtension(t *testing.T) {
	assert.Equal(t, "莫寒/x.mp4",
		swapOutputExtension("莫寒/x.m3u8", "https://ts.48.cn/live/a.m3u8"))
	assert.Equal(t, "x.mp4",
		swapOutputExtension("x.mp4", "https://source.48.cn/live/a.mp4"))
	assert.Equal(t, "custom.mkv",
		swapOutputExtension("custom.mkv", "https://ts.48.cn/live/a.m3u8"),
		"a path that does not carry the source extension stays put")
	assert.Equal(t, "x", swapOutputExtension("x", ""))
}

func TestExecutePlanSummaryWithNothingToDo(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mp4"), []byte("x"), 0o644))

	a := &app{}
	plan := planner.Build(dir, []planner.Entry{
		{URL: "https://ts.48.cn/live/a.mp4", Path: "a.mp4"},
	})
	out := captureStderr(t, func() {
		require.NoError(t, a.executePlan(context.Background(), plan))
	})
	assert.Contains(t, out, "1 VOD(s) already downloaded")
	assert.Contains(t, out, "0 VOD(s) downloaded, 1 already complete, 0 failed or unfinished")
}

func TestExecutePlanSummaryOnDryRun(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "42")
	}))
	defer ts.Close()

	a := &app{dry: true}
	plan := planner.Build(t.TempDir(), []planner.Entry{
		{URL: ts.URL + "/a.mp4", Path: "a.mp4"},
	})
	out := captureStderr(t, func() {
		require.NoError(t, a.executePlan(context.Background(), plan))
	})
	assert.Contains(t, out, "Total direct download size: 42 bytes")
	assert.Contains(t, out, "0 VOD(s) downloaded, 0 already complete, 1 failed or unfinished")
}
