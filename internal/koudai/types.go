// SPDX-License-Identifier: MIT

// Package koudai implements the client for the Koudai48 live-platform
// internal API: paginated VOD listing walks, record normalization and
// stream URL resolution.
package koudai

import "time"

// CST is the fixed civil timezone (UTC+08:00) all VOD timestamps are
// normalized to. Range comparisons and filename date components always
// use this zone, never the machine's wall clock.
var CST = time.FixedZone("UTC+8", 8*60*60)

// VODType is the broadcast type of a standard-mode VOD.
type VODType string

const (
	TypeLive  VODType = "直播"
	TypeRadio VODType = "电台"
)

// VOD is the canonical record emitted by the listing walks. Raw API
// payloads never travel past this package's normalization boundary.
type VOD struct {
	// ID is the server-assigned alphanumeric VOD id, the primary
	// identity for deduplication.
	ID       string
	MemberID int64
	RoomID   int64
	Type     VODType

	// Name is the member name (standard mode) or the stage title
	// extracted from 《...》 brackets (perf mode; empty if absent).
	Name     string
	Title    string
	Subtitle string

	// StartTime is normalized to CST.
	StartTime time.Time

	// VODURL is empty for perf-mode records until resolved.
	VODURL     string
	DanmakuURL string

	// Filename/Filepath are explicit overrides. Once set (e.g. by the
	// interactive review step) they win over template-derived names.
	Filename string
	Filepath string
}
