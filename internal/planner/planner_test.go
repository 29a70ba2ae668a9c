// SPDX-License-Identifier: MIT

package planner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestBuildBucketsBySourceExtension(t *testing.T) {
	dir := t.TempDir()
	plan := Build(dir, []Entry{
		{URL: "https://source.48.cn/live/a.mp4", Path: "a.mp4"},
		{URL: "https://source.48.cn/hls/b.m3u8", Path: "b.mp4"},
	})
	require.Len(t, plan.Targets, 2)
	assert.Equal(t, BucketDirect, plan.Targets[0].Bucket)
	assert.Equal(t, BucketSegmented, plan.Targets[1].Bucket)
}

func TestClassifyStatuses(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "complete.mp4"))
	touch(t, filepath.Join(dir, "partial.mp4"))
	touch(t, filepath.Join(dir, "partial.mp4.aria2"))
	touch(t, filepath.Join(dir, "seg.mp4"))

	plan := Build(dir, []Entry{
		{URL: "https://x/a.mp4", Path: "complete.mp4"},
		{URL: "https://x/b.mp4", Path: "partial.mp4"},
		{URL: "https://x/c.mp4", Path: "missing.mp4"},
		{URL: "https://x/d.m3u8", Path: "seg.mp4"},
	})
	assert.Equal(t, StatusComplete, plan.Targets[0].Status)
	assert.Equal(t, StatusPartial, plan.Targets[1].Status)
	assert.Equal(t, StatusMissing, plan.Targets[2].Status)
	// Sidecar markers only apply to the direct bucket; an existing
	// segmented destination counts as complete.
	assert.Equal(t, StatusComplete, plan.Targets[3].Status)

	unfinished := plan.Unfinished(BucketDirect)
	require.Len(t, unfinished, 2)
	assert.Equal(t, "partial.mp4", unfinished[0].Path)
	assert.Equal(t, "missing.mp4", unfinished[1].Path)
	assert.Empty(t, plan.Unfinished(BucketSegmented))
	assert.Len(t, plan.Complete(BucketDirect), 1)
}

func TestEnsureDirs(t *testing.T) {
	dir := t.TempDir()
	plan := Build(dir, []Entry{
		{URL: "https://x/a.mp4", Path: "莫寒/nested/a.mp4"},
	})
	require.NoError(t, plan.EnsureDirs())
	info, err := os.Stat(filepath.Join(dir, "莫寒", "nested"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWriteAria2Manifest(t *testing.T) {
	dir := t.TempDir()
	plan := Build(dir, []Entry{
		{URL: "https://x/a.mp4", Path: "sub/a.mp4"},
		{URL: "https://x/b.m3u8", Path: "b.mp4"},
	})
	manifest := filepath.Join(t.TempDir(), "aria2.txt")
	targets, err := plan.WriteAria2Manifest(manifest)
	require.NoError(t, err)
	require.Len(t, targets, 1, "segmented targets stay out of the aria2 manifest")

	buf, err := os.ReadFile(manifest)
	require.NoError(t, err)
	want := "https://x/a.mp4\n\tdir=" + filepath.Join(dir, "sub") + "\n\tout=a.mp4\n"
	assert.Equal(t, want, string(buf))
}

func TestWriteCaterpillarManifest(t *testing.T) {
	dir := t.TempDir()
	plan := Build(dir, []Entry{
		{URL: "https://x/a.mp4", Path: "a.mp4"},
		{URL: "https://x/b.m3u8", Path: "b.mp4"},
	})
	manifest := filepath.Join(t.TempDir(), "m3u8.txt")
	targets, err := plan.WriteCaterpillarManifest(manifest)
	require.NoError(t, err)
	require.Len(t, targets, 1)

	buf, err := os.ReadFile(manifest)
	require.NoError(t, err)
	assert.Equal(t, "https://x/b.m3u8\t"+filepath.Join(dir, "b.mp4")+"\n", string(buf))
}

func TestManifestsSkipCompleteTargets(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "done.mp4"))
	plan := Build(dir, []Entry{
		{URL: "https://x/a.mp4", Path: "done.mp4"},
	})
	manifest := filepath.Join(t.TempDir(), "aria2.txt")
	targets, err := plan.WriteAria2Manifest(manifest)
	require.NoError(t, err)
	assert.Empty(t, targets)
	buf, err := os.ReadFile(manifest)
	require.NoError(t, err)
	assert.Empty(t, buf)
}
