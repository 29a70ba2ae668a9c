// SPDX-License-Identifier: MIT

package downloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// aria2Opts override some bad aria2c defaults; most options should be
// configured in the user's aria2 config file.
var aria2Opts = []string{
	"--max-connection-per-server=16",
	"--allow-overwrite=false",
	"--auto-file-renaming=false",
	"--check-certificate=false",
	"--remote-time=true",
}

// RunAria2 invokes aria2c on the manifest, blocking until it exits, and
// returns the subprocess exit status.
func RunAria2(ctx context.Context, manifest string) (int, error) {
	args := append(append([]string{}, aria2Opts...), "--input-file", manifest)
	cmd := exec.CommandContext(ctx, "aria2c", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	fmt.Fprintln(os.Stderr, "aria2c "+strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		if errors.Is(err, exec.ErrNotFound) {
			return -1, fmt.Errorf("%w: aria2c(1)", ErrToolMissing)
		}
		return -1, fmt.Errorf("downloader: aria2c: %w", err)
	}
	return 0, nil
}
