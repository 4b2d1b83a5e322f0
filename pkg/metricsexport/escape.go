// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-statsfs.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metricsexport

import "strings"

// Escape applies a three-character escaping: backslash escapes itself,
// space, and newline becomes the two-byte sequence `\n`. This is
// deliberately not delegated to
// github.com/influxdata/line-protocol/v2/lineprotocol's own escaper:
// that library escapes commas, equals signs and quotes for tag/field
// syntax, an incompatible grammar from this one (see bulkimport.go and
// DESIGN.md).
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case ' ':
			b.WriteString(`\ `)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Unescape reverses Escape. An unpaired trailing backslash is emitted
// literally.
func Unescape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '\\' || i == len(runes)-1 {
			b.WriteRune(runes[i])
			continue
		}
		switch runes[i+1] {
		case '\\':
			b.WriteByte('\\')
			i++
		case ' ':
			b.WriteByte(' ')
			i++
		case 'n':
			b.WriteByte('\n')
			i++
		default:
			b.WriteRune(runes[i])
		}
	}
	return b.String()
}
