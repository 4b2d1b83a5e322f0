// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-statsfs.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statstree

import "unsafe"

// ValueBinding attaches a ValueArray schema to a source at a given base
// address. Base == nil marks a pure-aggregate binding: it has no data of
// its own, and every descriptor in Values is expected to have an
// AggrKind other than AggrNone.
type ValueBinding struct {
	Values *ValueArray
	Base   unsafe.Pointer

	// filesCreated makes AddBinding idempotent with respect to
	// publication: the publisher is only asked to materialise files
	// for this binding once, the first time it is attached to an
	// already-published source.
	filesCreated bool
	files        []any // opaque per-descriptor handles from the Publisher
}

// sameAs implements the AddBinding uniqueness check: two bindings on one
// source conflict only if both their array pointer and their base match.
func (b *ValueBinding) sameAs(values *ValueArray, base unsafe.Pointer) bool {
	return b.Values == values && b.Base == base
}

// read interprets the raw bytes at b.Base+d.Offset as d.Type and widens
// the result to a u64 bit pattern: the returned word is the bit-pattern
// of the numeric result, signed results obtained by reinterpreting.
func (b *ValueBinding) read(d *ValueDescriptor) uint64 {
	return readMemory(b.Base, d.Offset, d.Type)
}

// write zeroes the field described by d in b's backing memory. Only
// used by Clear; there is no other write path into a binding's storage.
func (b *ValueBinding) writeZero(d *ValueDescriptor) {
	writeMemory(b.Base, d.Offset, d.Type, 0)
}
