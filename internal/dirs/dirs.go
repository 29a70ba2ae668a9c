// SPDX-License-Identifier: MIT

// Package dirs resolves the per-user directories used by kvm48 for
// configuration, durable data and cache files.
package dirs

import (
	"os"
	"path/filepath"
)

const appName = "kvm48"

// Config returns the user configuration directory for kvm48.
func Config() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appName), nil
}

// Data returns the user data directory for kvm48 (durable state such as
// the perf dedup ledger).
func Data() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName), nil
}

// Cache returns the user cache directory for kvm48 (PID file, update
// check stamp).
func Cache() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appName), nil
}
