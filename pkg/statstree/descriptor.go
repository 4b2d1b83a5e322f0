// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-statsfs.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statstree

import "os"

// ValueDescriptor is an immutable schema row describing one field of a
// producer's struct: its name, where it lives relative to a base
// address, its primitive type, and how it should be aggregated (if at
// all) when it has no storage of its own.
//
// A ValueDescriptor is never mutated after construction. Two
// descriptors with the same Name are allowed to coexist in a single
// ValueArray; GetValueByName resolves the first match, mirroring a
// simple value shadowing an aggregate of the same name.
type ValueDescriptor struct {
	Name        string
	Description string
	Offset      uintptr
	Type        Kind
	Aggr        AggrKind
	Flag        ValueFlag
	Mode        os.FileMode
}

// NewValueDescriptor builds a descriptor, substituting DefaultMode
// (0644) when mode is 0.
func NewValueDescriptor(name, description string, offset uintptr, typ Kind, aggr AggrKind, flag ValueFlag, mode os.FileMode) ValueDescriptor {
	if mode == 0 {
		mode = DefaultMode
	}
	return ValueDescriptor{
		Name:        name,
		Description: description,
		Offset:      offset,
		Type:        typ,
		Aggr:        aggr,
		Flag:        flag,
		Mode:        mode,
	}
}

// Simple reports whether d has its own storage (no aggregation).
func (d *ValueDescriptor) Simple() bool {
	return d.Aggr == AggrNone
}

// ValueArray is a schema: a fixed ordered set of descriptors shared by
// every struct shape it describes. Its identity (the pointer to the
// ValueArray itself, not its contents) is what AddBinding's uniqueness
// check and the aggregator's "which values contribute" rule compare —
// the same ValueArray is typically bound once per leaf (with a real
// Base) and once more on an ancestor as a pure aggregate (Base == nil).
type ValueArray []ValueDescriptor

// find returns a pointer to the descriptor in a whose address equals
// needle, or nil. Pointer identity, not value equality, is the
// contract: callers must pass back a *ValueDescriptor obtained from a
// binding on this exact source (see Source.Lookup).
func (a ValueArray) find(needle *ValueDescriptor) *ValueDescriptor {
	for i := range a {
		if &a[i] == needle {
			return &a[i]
		}
	}
	return nil
}

// findByName returns the first descriptor named name, or nil.
func (a ValueArray) findByName(name string) *ValueDescriptor {
	for i := range a {
		if a[i].Name == name {
			return &a[i]
		}
	}
	return nil
}
