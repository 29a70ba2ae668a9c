// SPDX-License-Identifier: MIT

// Package lock implements the advisory single-instance PID file. It is
// best-effort: failure to acquire refuses a second instance, but no
// data depends on it.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

const pidFileName = "kvm48.pid"

// Lock is a held PID file.
type Lock struct {
	path string
}

// Acquire writes the PID file under cacheDir, refusing to start when a
// live instance already holds it. Stale or unreadable PID files are
// ignored.
func Acquire(cacheDir string) (*Lock, error) {
	path := filepath.Join(cacheDir, pidFileName)
	if buf, err := os.ReadFile(path); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(string(buf))); err == nil && pidAlive(pid) {
			return nil, fmt.Errorf("lock: another instance of kvm48 is already running (pid %d)", pid)
		}
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, nil // best effort
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return nil, nil
	}
	return &Lock{path: path}, nil
}

// Release removes the PID file.
func (l *Lock) Release() {
	if l != nil && l.path != "" {
		_ = os.Remove(l.path)
	}
}

func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
