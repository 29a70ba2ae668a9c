// SPDX-License-Identifier: MIT

package version

import "fmt"

var (
	// Version is the current application version.
	// Populated by the build system (ldflags); the literal is the fallback.
	Version = "v1.1.0"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// String renders the full version line for --version output.
func String() string {
	return fmt.Sprintf("KVM48 %s (commit: %s, built: %s)", Version, Commit, Date)
}
