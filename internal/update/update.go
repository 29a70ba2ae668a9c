// SPDX-License-Identifier: MIT

// Package update performs the daily release check. Every failure is
// silent: an update check must never break a run.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
)

const (
	checkEndpoint = "https://v.tcl.sh/pypi/KVM48/new_version"
	stampFileName = "last_check.txt"
	checkTimeout  = 5 * time.Second
)

func lastCheckDate(cacheDir string) (string, bool) {
	buf, err := os.ReadFile(filepath.Join(cacheDir, stampFileName))
	if err != nil {
		return "", false
	}
	return string(buf), true
}

func writeLastCheckDate(cacheDir, date string) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return
	}
	_ = renameio.WriteFile(filepath.Join(cacheDir, stampFileName), []byte(date), 0o644)
}

// Check queries the release endpoint at most once per civil day and
// prints an upgrade hint to stderr when a newer version exists.
func Check(ctx context.Context, cacheDir, currentVersion string, force bool) {
	today := time.Now().Format("2006-01-02")
	if !force {
		if last, ok := lastCheckDate(cacheDir); ok && last == today {
			return
		}
		writeLastCheckDate(cacheDir, today)
	}
	fmt.Fprintln(os.Stderr, "Checking for updates for KVM48...")

	reqCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	u := checkEndpoint + "?" + url.Values{"current_version": {currentVersion}}.Encode()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		return
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return
	}
	defer res.Body.Close()
	var resp struct {
		NewVersion   *string `json:"new_version"`
		IsPrerelease bool    `json:"is_prerelease"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return
	}
	if resp.NewVersion == nil {
		fmt.Fprintln(os.Stderr, "KVM48 is up-to-date.")
		return
	}
	fmt.Fprintf(os.Stderr,
		"KVM48 %s is available. You are running version %s.\nSee https://github.com/SNH48Live/KVM48/releases for upgrade instructions.\n",
		*resp.NewVersion, currentVersion)
}
