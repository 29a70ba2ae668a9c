// SPDX-License-Identifier: MIT

// Package naming derives sanitized, collision-free destination paths for
// VOD downloads from a user-configurable naming pattern.
package naming

import (
	"fmt"
	"strings"
)

// Illegal filename characters are mapped to their fullwidth Unicode
// homoglyphs (Halfwidth and Fullwidth Forms block) rather than deleted
// or transliterated: titles here are predominantly non-Latin script and
// information loss is unacceptable.
//
//	" -> U+FF02  * -> U+FF0A  / -> U+FF0F  : -> U+FF1A  < -> U+FF1C
//	> -> U+FF1E  ? -> U+FF1F  \ -> U+FF3C  | -> U+FF5C
var homoglyphs = map[rune]rune{
	'"':  '＂',
	'*':  '＊',
	'/':  '／',
	':':  '：',
	'<':  '＜',
	'>':  '＞',
	'?':  '？',
	'\\': '＼',
	'|':  '｜',
}

type nonBMPMode int

const (
	nonBMPKeep nonBMPMode = iota
	nonBMPStrip
	nonBMPCustom
)

// NonBMP is the policy for code points beyond the Basic Multilingual
// Plane. Folding them is only necessary for legacy filesystems limited
// to a 16-bit character representation (e.g. FAT32); the default keeps
// them intact.
type NonBMP struct {
	mode nonBMPMode
	repl rune
}

// KeepNonBMP is the default policy.
var KeepNonBMP = NonBMP{mode: nonBMPKeep}

// ParseNonBMP parses a policy spec: "keep", "strip", "replace",
// "question_mark", or a single BMP replacement character.
func ParseNonBMP(spec string) (NonBMP, error) {
	switch spec {
	case "", "keep":
		return NonBMP{mode: nonBMPKeep}, nil
	case "strip":
		return NonBMP{mode: nonBMPStrip}, nil
	case "replace":
		return NonBMP{mode: nonBMPCustom, repl: '�'}, nil
	case "question_mark":
		return NonBMP{mode: nonBMPCustom, repl: '?'}, nil
	}
	runes := []rune(spec)
	if len(runes) != 1 {
		return NonBMP{}, fmt.Errorf("naming: unrecognized convert_non_bmp_chars %q", spec)
	}
	r := runes[0]
	if r <= 0x1F || r == 0x7F || r > 0xFFFF {
		return NonBMP{}, fmt.Errorf("naming: invalid replacement character %q", spec)
	}
	return NonBMP{mode: nonBMPCustom, repl: r}, nil
}

// SanitizeFilename makes a single path segment safe on the common
// "illegal character" set across target filesystems. Control characters
// are stripped, the nine illegal characters map to fullwidth homoglyphs,
// other whitespace controls become plain spaces, space runs collapse,
// and a space immediately before the final extension is dropped.
// The function is idempotent.
func SanitizeFilename(unsanitized string, nb NonBMP) string {
	var b strings.Builder
	b.Grow(len(unsanitized))
	for _, r := range unsanitized {
		switch {
		case r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v':
			b.WriteRune(' ')
		case r <= 0x1F || r == 0x7F:
			// control character, dropped
		default:
			if h, ok := homoglyphs[r]; ok {
				r = h
			}
			if r > 0xFFFF && nb.mode != nonBMPKeep {
				if nb.mode == nonBMPStrip {
					continue
				}
				r = nb.repl
			}
			b.WriteRune(r)
		}
	}
	return collapseSpaces(b.String())
}

// SanitizeFilepath sanitizes every segment of a slash-separated relative
// path, preserving the separators.
func SanitizeFilepath(unsanitized string, nb NonBMP) string {
	segs := strings.Split(unsanitized, "/")
	for i, seg := range segs {
		segs[i] = SanitizeFilename(seg, nb)
	}
	return strings.Join(segs, "/")
}

func collapseSpaces(s string) string {
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	// Drop the space before the file extension, if any.
	if i := strings.LastIndexByte(s, '.'); i > 0 && i < len(s)-1 && s[i-1] == ' ' &&
		!strings.ContainsRune(s[i+1:], '.') {
		s = s[:i-1] + s[i:]
	}
	return s
}
