// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-statsfs.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statstree

import "math"

// accumulator collects one subtree walk's worth of contributions. It
// keeps both a signed and an unsigned set of fields; the descriptor
// being resolved fixes the signedness for the whole walk, and each
// contribution updates the set that signedness selects.
type accumulator struct {
	signed bool
	count  uint64

	countZero uint64

	sumU uint64
	minU uint64
	maxU uint64

	sumS int64
	minS int64
	maxS int64
}

// newAccumulator seeds min/max with the extremes of typ's own width, so
// an empty walk reduces to typ's TypeMax/TypeMin sentinel.
func newAccumulator(typ Kind) *accumulator {
	shift := uint(64 - 8*typ.widthBytes())
	return &accumulator{
		signed: typ.Signed(),
		minU:   math.MaxUint64 >> shift,
		maxU:   0,
		minS:   math.MaxInt64 >> shift,
		maxS:   math.MinInt64 >> shift,
	}
}

func (a *accumulator) update(raw uint64, typ Kind) {
	a.count++
	if raw == 0 {
		a.countZero++
	}
	if a.signed {
		v := asInt64(raw, typ)
		a.sumS += v
		if v < a.minS {
			a.minS = v
		}
		if v > a.maxS {
			a.maxS = v
		}
		return
	}
	a.sumU += raw
	if raw < a.minU {
		a.minU = raw
	}
	if raw > a.maxU {
		a.maxU = raw
	}
}

// reduce produces the final u64 bit pattern for kind. MIN/MAX on an
// empty contribution set return the type's sentinel (TypeMax/TypeMin),
// preserved rather than surfaced as NotFound (see DESIGN.md Open
// Question resolution).
func (a *accumulator) reduce(kind AggrKind) uint64 {
	switch kind {
	case AggrSum:
		if a.signed {
			return uint64(a.sumS)
		}
		return a.sumU
	case AggrMin:
		if a.signed {
			return uint64(a.minS)
		}
		return a.minU
	case AggrMax:
		if a.signed {
			return uint64(a.maxS)
		}
		return a.maxU
	case AggrCountZero:
		return a.countZero
	case AggrAvg:
		if a.count == 0 {
			return 0
		}
		if a.signed {
			return uint64(a.sumS / int64(a.count))
		}
		return a.sumU / a.count
	default:
		return 0
	}
}

// walk visits node and every descendant, each under its own read lock,
// accumulating contributions from bindings whose Base is live and whose
// ValueArray is identical (by pointer) to refArray. Lock discipline
// mirrors internal/memorystore's Level.findBuffers: a node's read lock
// is held for the duration of its entire subtree's traversal, nested
// one level per depth, parent-before-child.
func walk(node *Source, refArray *ValueArray, descriptor *ValueDescriptor, acc *accumulator) {
	node.mu.RLock()
	defer node.mu.RUnlock()

	for _, b := range node.bindings {
		if b.Base != nil && b.Values == refArray {
			acc.update(b.read(descriptor), descriptor.Type)
		}
	}
	for _, child := range node.subordinates {
		walk(child, refArray, descriptor, acc)
	}
}

// GetValue resolves descriptor on source and returns its u64 bit
// pattern: locate on source, direct-read if simple and live, otherwise
// walk the subtree rooted at source and reduce by descriptor.Aggr.
func GetValue(source *Source, descriptor *ValueDescriptor) (uint64, error) {
	binding, found := source.Lookup(descriptor)
	if found == nil {
		return 0, newError(ErrNotFound, "descriptor not bound on source "+source.name)
	}

	if binding.Base != nil && found.Aggr == AggrNone {
		source.mu.RLock()
		v := binding.read(found)
		source.mu.RUnlock()
		return v, nil
	}

	acc := newAccumulator(found.Type)
	walk(source, binding.Values, found, acc)
	return acc.reduce(found.Aggr), nil
}

// GetValueByName scans source's own bindings (not subordinates) for a
// descriptor named name, then delegates to GetValue. A descriptor is
// never searched for by name in subordinates.
func GetValueByName(source *Source, name string) (uint64, error) {
	_, d := source.LookupByName(name)
	if d == nil {
		return 0, newError(ErrNotFound, "no value named "+name+" on source "+source.name)
	}
	return GetValue(source, d)
}

// Clear zeroes descriptor's contribution: if it is simple, the single
// backing field is zeroed; if it is an aggregate, every simple value
// reachable through the subtree that shares its ValueArray is zeroed.
// Aggregates themselves are never written to — they have no storage.
func Clear(source *Source, descriptor *ValueDescriptor) error {
	binding, found := source.Lookup(descriptor)
	if found == nil {
		return newError(ErrNotFound, "descriptor not bound on source "+source.name)
	}

	if binding.Base != nil && found.Aggr == AggrNone {
		source.mu.Lock()
		binding.writeZero(found)
		source.mu.Unlock()
		return nil
	}

	clearSubtree(source, binding.Values, found)
	return nil
}

func clearSubtree(node *Source, refArray *ValueArray, descriptor *ValueDescriptor) {
	node.mu.Lock()
	for _, b := range node.bindings {
		if b.Base != nil && b.Values == refArray {
			b.writeZero(descriptor)
		}
	}
	children := make([]*Source, len(node.subordinates))
	copy(children, node.subordinates)
	node.mu.Unlock()

	for _, child := range children {
		clearSubtree(child, refArray, descriptor)
	}
}

// Revoke sets every binding's Base to nil on source only (never on
// children): the producer's promise that the backing object is about
// to be freed. After Revoke, reads of source's own simple values return
// 0, and aggregates rooted at an ancestor silently stop counting
// source's contributions.
func Revoke(source *Source) {
	source.mu.Lock()
	for _, b := range source.bindings {
		b.Base = nil
	}
	source.mu.Unlock()
}
