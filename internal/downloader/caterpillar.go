// SPDX-License-Identifier: MIT

package downloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"

	goversion "github.com/hashicorp/go-version"

	"github.com/SNH48Live/KVM48/internal/log"
)

// MinimumCaterpillarVersion is the oldest caterpillar release that
// supports --exist-ok.
const MinimumCaterpillarVersion = "1.0b1"

// caterpillar reports Python-style version strings such as "1.0b1" or
// "2.0.dev1", which go-version cannot order: the dev form fails to
// parse outright, and an alphabetic pre-release tag would sort dev
// above b. translateVersion rewrites the release-cycle suffix into a
// numeric pre-release rank so that dev < a < b < rc < final holds
// under go-version's numeric identifier comparison. A bare "dev"
// suffix counts as dev1. Strings outside the scheme pass through
// unchanged.
var pyVersionRe = regexp.MustCompile(`^(\d+(?:\.\d+)*)[-._]?(dev|alpha|beta|rc|a|b|c)?\.?(\d*)$`)

var cycleRank = map[string]string{
	"dev":   "0",
	"a":     "1",
	"alpha": "1",
	"b":     "2",
	"beta":  "2",
	"c":     "3",
	"rc":    "3",
}

func translateVersion(v string) string {
	m := pyVersionRe.FindStringSubmatch(v)
	if m == nil {
		return v
	}
	if m[2] == "" {
		return m[1]
	}
	n := m[3]
	if n == "" {
		n = "1"
	}
	return m[1] + "-" + cycleRank[m[2]] + "." + n
}

// CheckCaterpillar verifies that the caterpillar binary is present and
// at or above the minimum version. An unparseable version string is
// accepted with a warning rather than rejected.
func CheckCaterpillar(ctx context.Context) error {
	out, err := exec.CommandContext(ctx, "caterpillar", "--version").Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%w: caterpillar(1); see https://github.com/zmwangx/caterpillar", ErrToolMissing)
		}
		return fmt.Errorf("downloader: caterpillar --version failed: %w", err)
	}
	raw := strings.TrimSpace(string(out))
	tooOld, ok := versionTooOld(raw)
	if !ok {
		logger := log.WithComponent("downloader")
		logger.Warn().
			Str("version", raw).
			Msgf("failed to recognize caterpillar version; upgrade to at least v%s if you run into problems",
				MinimumCaterpillarVersion)
		return nil
	}
	if tooOld {
		return fmt.Errorf("%w: caterpillar %s < %s", ErrToolTooOld, raw, MinimumCaterpillarVersion)
	}
	return nil
}

// versionTooOld reports whether raw is below the minimum supported
// version. ok is false when raw cannot be interpreted at all.
func versionTooOld(raw string) (tooOld, ok bool) {
	version, err := goversion.NewVersion(translateVersion(raw))
	if err != nil {
		return false, false
	}
	minimum := goversion.Must(goversion.NewVersion(translateVersion(MinimumCaterpillarVersion)))
	return version.LessThan(minimum), true
}

// RunCaterpillar invokes caterpillar in batch mode on the manifest,
// blocking until it exits, and returns the subprocess exit status.
func RunCaterpillar(ctx context.Context, manifest string) (int, error) {
	args := []string{"--batch", "--exist-ok", manifest}
	cmd := exec.CommandContext(ctx, "caterpillar", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	fmt.Fprintln(os.Stderr, "caterpillar "+strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		if errors.Is(err, exec.ErrNotFound) {
			return -1, fmt.Errorf("%w: caterpillar(1)", ErrToolMissing)
		}
		return -1, fmt.Errorf("downloader: caterpillar: %w", err)
	}
	return 0, nil
}
