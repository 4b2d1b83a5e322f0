// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-statsfs.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statstree

import (
	"strconv"
	"strings"
)

// RenderSchema formats source's labels and value descriptors into the
// ".schema" file body:
//
//	LABEL
//	<key> <value>
//	…
//
//	METRIC
//	NAME <name>
//	FLAG <CUMULATIVE|GAUGE>
//	TYPE INT
//	DESC <description>
//
//	METRIC
//	…
//
// Labels are emitted leaf-first then ancestors in order (see DESIGN.md's
// Open Question resolution): source.labels is already stored that way,
// because AddSubordinate appends a snapshot of the parent's full label
// list to the end of the child's own.
func RenderSchema(source *Source) string {
	var b strings.Builder

	labels := source.snapshotLabels()
	b.WriteString("LABEL\n")
	for _, l := range labels {
		b.WriteString(l.Key)
		b.WriteByte(' ')
		b.WriteString(l.Value)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	for _, binding := range source.snapshotBindings() {
		for _, d := range *binding.Values {
			b.WriteString("METRIC\n")
			b.WriteString("NAME ")
			b.WriteString(d.Name)
			b.WriteByte('\n')
			b.WriteString("FLAG ")
			b.WriteString(d.Flag.String())
			b.WriteByte('\n')
			b.WriteString("TYPE INT\n")
			b.WriteString("DESC ")
			b.WriteString(d.Description)
			b.WriteByte('\n')
			b.WriteByte('\n')
		}
	}

	return b.String()
}

// FormatValue renders the u64 bit pattern produced by GetValue as the
// decimal ASCII line a value file's read() returns: signed %lld for
// signed descriptor kinds, unsigned %llu otherwise, newline-terminated.
func FormatValue(v uint64, typ Kind) string {
	if typ.Signed() {
		return strconv.FormatInt(asInt64(v, typ), 10) + "\n"
	}
	return strconv.FormatUint(v, 10) + "\n"
}
