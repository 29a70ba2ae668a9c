// SPDX-License-Identifier: MIT

// Package downloader hands manifests off to the external downloader
// processes: aria2 for direct files and caterpillar for segmented
// (HLS/M3U8) streams.
package downloader

import "errors"

var (
	// ErrToolMissing means the downloader binary was not found. The
	// manifest stays on disk so the user can act manually.
	ErrToolMissing = errors.New("downloader: external tool not found")

	// ErrToolTooOld means the downloader is below the minimum supported
	// version.
	ErrToolTooOld = errors.New("downloader: external tool version too old")
)
