// SPDX-License-Identifier: MIT

package naming

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/SNH48Live/KVM48/internal/koudai"
)

// FallbackSubdir is the named-subdirectory segment used when a record
// has no usable name.
const FallbackSubdir = "其它"

// Namer derives sanitized relative file paths for VODs from a naming
// pattern. An explicit per-record Filename/Filepath override always wins
// over template derivation.
type Namer struct {
	Pattern      string
	NamedSubdirs bool
	NonBMP       NonBMP
}

// Filename renders and sanitizes the file name for a VOD.
func (n *Namer) Filename(v koudai.VOD) (string, error) {
	if v.Filename != "" {
		return v.Filename, nil
	}
	// Perf-mode records have no stream URL until after review; their
	// final container is always mp4.
	ext := ExtensionFromURL(v.VODURL)
	if ext == "" {
		ext = "mp4"
	}
	t := v.StartTime.In(koudai.CST)
	raw, err := Render(n.Pattern, map[string]string{
		"date":       t.Format("2006-01-02"),
		"date_c":     t.Format("20060102"),
		"datetime":   t.Format("2006-01-02 15.04.05"),
		"datetime_c": t.Format("20060102150405"),
		"id":         v.ID,
		"name":       v.Name,
		"type":       string(v.Type),
		"title":      strings.TrimSpace(v.Title),
		"ext":        ext,
	})
	if err != nil {
		return "", err
	}
	return SanitizeFilename(raw, n.NonBMP), nil
}

// Filepath renders the relative destination path, prefixing a sanitized
// name segment when named subdirectories are enabled.
func (n *Namer) Filepath(v koudai.VOD) (string, error) {
	if v.Filepath != "" {
		return v.Filepath, nil
	}
	name, err := n.Filename(v)
	if err != nil {
		return "", err
	}
	if !n.NamedSubdirs {
		return name, nil
	}
	dir := v.Name
	if dir == "" {
		dir = FallbackSubdir
	}
	return SanitizeFilename(dir, n.NonBMP) + "/" + name, nil
}

// SelfTest renders the pattern against a fixture VOD so that a broken
// pattern fails at config load.
func (n *Namer) SelfTest() error {
	fixture := koudai.VOD{
		ID:        "5a80219c0cf29aa343fbe009",
		MemberID:  35,
		RoomID:    3872010,
		Type:      koudai.TypeLive,
		Name:      "莫寒",
		Title:     "一人吃火锅的人生成就(๑˙ー˙๑)",
		StartTime: time.Date(2018, 2, 11, 18, 57, 32, 0, koudai.CST),
		VODURL:    "https://mp4.48.cn/live/82b50b91-28f8-4182-8ac0-3ca4d0202636.mp4",
	}
	if _, err := n.Filename(fixture); err != nil {
		return fmt.Errorf("bad naming pattern %q: %w", n.Pattern, err)
	}
	return nil
}

// Allocator resolves path collisions within one run: the first
// allocation of a base path is never suffixed; the k-th collision gets a
// bracketed counter " (k)" before the extension.
type Allocator struct {
	taken map[string]struct{}
}

func NewAllocator() *Allocator {
	return &Allocator{taken: make(map[string]struct{})}
}

// Allocate claims a unique variant of the requested path.
func (a *Allocator) Allocate(p string) string {
	ext := path.Ext(p)
	base := strings.TrimSuffix(p, ext)
	candidate := p
	for number := 1; ; number++ {
		if _, exists := a.taken[candidate]; !exists {
			a.taken[candidate] = struct{}{}
			return candidate
		}
		candidate = fmt.Sprintf("%s (%d)%s", base, number, ext)
	}
}
