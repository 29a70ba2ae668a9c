// SPDX-License-Identifier: MIT

package lock

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()
	l, err := Acquire(dir)
	require.NoError(t, err)
	require.NotNil(t, l)

	buf, err := os.ReadFile(filepath.Join(dir, pidFileName))
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(buf))

	l.Release()
	_, err = os.Stat(filepath.Join(dir, pidFileName))
	assert.True(t, os.IsNotExist(err))
}

func TestAcquireRefusesLiveInstance(t *testing.T) {
	dir := t.TempDir()
	// Our own PID is definitely alive.
	require.NoError(t, os.WriteFile(filepath.Join(dir, pidFileName),
		[]byte(strconv.Itoa(os.Getpid())), 0o644))

	_, err := Acquire(dir)
	assert.Error(t, err)
}

func TestAcquireIgnoresStalePIDFile(t *testing.T) {
	dir := t.TempDir()
	for _, content := range []string{"garbage", "-5", "999999999"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, pidFileName), []byte(content), 0o644))
		l, err := Acquire(dir)
		require.NoError(t, err, "content %q", content)
		require.NotNil(t, l)
		l.Release()
	}
}

func TestReleaseNilSafe(t *testing.T) {
	var l *Lock
	assert.NotPanics(t, func() { l.Release() })
}
