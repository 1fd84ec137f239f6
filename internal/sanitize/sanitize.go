// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sanitize cleans user supplied text before it reaches a renderer.
package sanitize

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Text drops invalid UTF-8 and surrogate code points, applies NFC
// normalization, and removes C0/C1 control characters other than tab,
// newline, and carriage return.
func Text(s string) string {
	if s == "" {
		return ""
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	s = norm.NFC.String(s)
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case r <= 0x08, r == 0x0B, r == 0x0C, r >= 0x0E && r <= 0x1F:
			return -1
		case r >= 0x7F && r <= 0x9F:
			return -1
		case r >= 0xD800 && r <= 0xDFFF, r == utf8.RuneError:
			return -1
		}
		return r
	}, s)
}
