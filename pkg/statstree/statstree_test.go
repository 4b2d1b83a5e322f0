// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-statsfs.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statstree

import (
	"math"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// leafStruct is the producer's own backing struct shared by several tests below.
type leafStruct struct {
	u64  uint64
	s32  int32
	bo   uint8
	u8   uint8
	s16  int16
}

func leafArray() *ValueArray {
	arr := ValueArray{
		NewValueDescriptor("u64", "", unsafe.Offsetof(leafStruct{}.u64), KindU64, AggrSum, FlagCumulative, 0),
		NewValueDescriptor("s32", "", unsafe.Offsetof(leafStruct{}.s32), KindS32, AggrMin, FlagGauge, 0),
		NewValueDescriptor("bo", "", unsafe.Offsetof(leafStruct{}.bo), KindBool, AggrCountZero, FlagGauge, 0),
		NewValueDescriptor("u8", "", unsafe.Offsetof(leafStruct{}.u8), KindU8, AggrAvg, FlagGauge, 0),
		NewValueDescriptor("s16", "", unsafe.Offsetof(leafStruct{}.s16), KindS16, AggrMax, FlagGauge, 0),
	}
	return &arr
}

// Single node, all descriptors NONE (this test uses an array whose
// descriptors are NONE regardless of what leafArray() declares, since
// this test is specifically about simple, non-aggregated reads).
func TestSimpleReadsNoAggregation(t *testing.T) {
	backing := leafStruct{u64: 64, s32: math.MinInt32, bo: 1, u8: 127, s16: 10000}
	arr := ValueArray{
		NewValueDescriptor("u64", "", unsafe.Offsetof(leafStruct{}.u64), KindU64, AggrNone, FlagCumulative, 0),
		NewValueDescriptor("s32", "", unsafe.Offsetof(leafStruct{}.s32), KindS32, AggrNone, FlagGauge, 0),
		NewValueDescriptor("bo", "", unsafe.Offsetof(leafStruct{}.bo), KindBool, AggrNone, FlagGauge, 0),
		NewValueDescriptor("u8", "", unsafe.Offsetof(leafStruct{}.u8), KindU8, AggrNone, FlagGauge, 0),
		NewValueDescriptor("s16", "", unsafe.Offsetof(leafStruct{}.s16), KindS16, AggrNone, FlagGauge, 0),
	}

	s := Create("node", "name")
	require.NoError(t, s.AddBinding(&arr, unsafe.Pointer(&backing)))

	v, err := GetValueByName(s, "u64")
	require.NoError(t, err)
	assert.Equal(t, uint64(64), v)

	v, err = GetValueByName(s, "s32")
	require.NoError(t, err)
	assert.Equal(t, int32(math.MinInt32), int32(v))

	v, err = GetValueByName(s, "bo")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)

	_, err = GetValueByName(s, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

// Two siblings, each with their own backing struct bound through the
// SAME ValueArray; the parent binds that same array with a nil base,
// turning every descriptor in it into an aggregate read.
func TestSubtreeAggregationSharedArray(t *testing.T) {
	arr := leafArray()

	childA := leafStruct{u64: 64, s32: math.MinInt32, bo: 1, u8: 127, s16: 10000}
	childB := leafStruct{u64: 64, s32: 32767, bo: 0, u8: 255, s16: -20000}

	parent := Create("parent", "name")
	sibA := Create("a", "name")
	sibB := Create("b", "name")

	require.NoError(t, sibA.AddBinding(arr, unsafe.Pointer(&childA)))
	require.NoError(t, sibB.AddBinding(arr, unsafe.Pointer(&childB)))
	require.NoError(t, parent.AddBinding(arr, nil))

	parent.AddSubordinate(sibA)
	parent.AddSubordinate(sibB)

	u64, err := GetValueByName(parent, "u64")
	require.NoError(t, err)
	assert.Equal(t, uint64(128), u64)

	s32, err := GetValueByName(parent, "s32")
	require.NoError(t, err)
	assert.Equal(t, int32(math.MinInt32), int32(s32))

	bo, err := GetValueByName(parent, "bo")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), bo)

	u8, err := GetValueByName(parent, "u8")
	require.NoError(t, err)
	assert.Equal(t, uint64(191), u8)

	s16, err := GetValueByName(parent, "s16")
	require.NoError(t, err)
	assert.Equal(t, int16(10000), int16(s16))
}

// Adding the exact same (array, base) pair twice fails the second
// time and leaves the first binding in place.
func TestDuplicateBindingRejected(t *testing.T) {
	arr := leafArray()
	backing := leafStruct{}
	s := Create("node", "name")

	require.NoError(t, s.AddBinding(arr, unsafe.Pointer(&backing)))
	err := s.AddBinding(arr, unsafe.Pointer(&backing))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.Len(t, s.snapshotBindings(), 1)
}

// Removing a subordinate that contributed to a SUM aggregate drops
// the parent's aggregate result by exactly the removed subtree's total.
func TestRemoveSubordinateAdjustsSum(t *testing.T) {
	arr := leafArray()
	childA := leafStruct{u64: 10}
	childB := leafStruct{u64: 32}

	parent := Create("parent", "name")
	sibA := Create("a", "name")
	sibB := Create("b", "name")
	require.NoError(t, sibA.AddBinding(arr, unsafe.Pointer(&childA)))
	require.NoError(t, sibB.AddBinding(arr, unsafe.Pointer(&childB)))
	require.NoError(t, parent.AddBinding(arr, nil))

	parent.AddSubordinate(sibA)
	parent.AddSubordinate(sibB)

	before, err := GetValueByName(parent, "u64")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), before)

	parent.RemoveSubordinate(sibB)

	after, err := GetValueByName(parent, "u64")
	require.NoError(t, err)
	assert.Equal(t, before-32, after)
}

// Lookup locality: a name absent from a source's own
// bindings is NotFound even if present on a child.
func TestLookupLocality(t *testing.T) {
	arr := leafArray()
	backing := leafStruct{u64: 7}
	parent := Create("parent", "name")
	child := Create("child", "name")
	require.NoError(t, child.AddBinding(arr, unsafe.Pointer(&backing)))
	parent.AddSubordinate(child)

	_, err := GetValueByName(parent, "u64")
	assert.ErrorIs(t, err, ErrNotFound)

	v, err := GetValueByName(child, "u64")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v)
}

// Binding uniqueness across two distinct bases bound to the same array.
func TestBindingUniquenessDistinctBase(t *testing.T) {
	arr := leafArray()
	backingA := leafStruct{}
	backingB := leafStruct{}
	s := Create("node", "name")
	require.NoError(t, s.AddBinding(arr, unsafe.Pointer(&backingA)))
	require.NoError(t, s.AddBinding(arr, unsafe.Pointer(&backingB)))
	assert.Len(t, s.snapshotBindings(), 2)
}

// Round-trip clear, simple and aggregate.
func TestRoundTripClear(t *testing.T) {
	arrSimple := ValueArray{
		NewValueDescriptor("u64", "", unsafe.Offsetof(leafStruct{}.u64), KindU64, AggrNone, FlagCumulative, 0),
	}
	backing := leafStruct{u64: 99}
	s := Create("node", "name")
	require.NoError(t, s.AddBinding(&arrSimple, unsafe.Pointer(&backing)))

	_, d := s.LookupByName("u64")
	require.NotNil(t, d)
	require.NoError(t, Clear(s, d))

	v, err := GetValueByName(s, "u64")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), v)

	// Aggregate clear: both children's values zeroed.
	arr := leafArray()
	childA := leafStruct{u64: 10}
	childB := leafStruct{u64: 32}
	parent := Create("parent", "name")
	sibA := Create("a", "name")
	sibB := Create("b", "name")
	require.NoError(t, sibA.AddBinding(arr, unsafe.Pointer(&childA)))
	require.NoError(t, sibB.AddBinding(arr, unsafe.Pointer(&childB)))
	require.NoError(t, parent.AddBinding(arr, nil))
	parent.AddSubordinate(sibA)
	parent.AddSubordinate(sibB)

	_, aggD := parent.LookupByName("u64")
	require.NotNil(t, aggD)
	require.NoError(t, Clear(parent, aggD))

	vA, err := GetValueByName(sibA, "u64")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), vA)
	vB, err := GetValueByName(sibB, "u64")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), vB)
}

// Revoke neutralises a source's own reads and its
// contribution to an ancestor's aggregate.
func TestRevokeNeutralises(t *testing.T) {
	arr := leafArray()
	childA := leafStruct{u64: 10}
	childB := leafStruct{u64: 32}
	parent := Create("parent", "name")
	sibA := Create("a", "name")
	sibB := Create("b", "name")
	require.NoError(t, sibA.AddBinding(arr, unsafe.Pointer(&childA)))
	require.NoError(t, sibB.AddBinding(arr, unsafe.Pointer(&childB)))
	require.NoError(t, parent.AddBinding(arr, nil))
	parent.AddSubordinate(sibA)
	parent.AddSubordinate(sibB)

	Revoke(sibB)

	v, err := GetValueByName(sibB, "u64")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), v)

	total, err := GetValueByName(parent, "u64")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), total)
}

// Label monotonicity: a child has exactly one more label
// than its parent, and leaf-first ordering means the child's LAST label
// equals the parent's last label (the common root-most ancestor).
func TestLabelMonotonicity(t *testing.T) {
	root := Create("cluster", "cluster")
	mid := Create("host", "host")
	leaf := Create("cpu", "cpu")

	root.AddSubordinate(mid)
	mid.AddSubordinate(leaf)

	rootLabels := root.snapshotLabels()
	midLabels := mid.snapshotLabels()
	leafLabels := leaf.snapshotLabels()

	require.Len(t, rootLabels, 1)
	require.Len(t, midLabels, 2)
	require.Len(t, leafLabels, 3)

	assert.Equal(t, rootLabels[len(rootLabels)-1], midLabels[len(midLabels)-1])
	assert.Equal(t, midLabels[len(midLabels)-1], leafLabels[len(leafLabels)-1])

	// Leaf-first: own label first.
	assert.Equal(t, Label{Key: "cpu", Value: "cpu"}, leafLabels[0])
	assert.Equal(t, Label{Key: "host", Value: "host"}, leafLabels[1])
	assert.Equal(t, Label{Key: "cluster", Value: "cluster"}, leafLabels[2])
}

func TestSentinelOnEmptySubtree(t *testing.T) {
	arr := leafArray()
	parent := Create("parent", "name")
	require.NoError(t, parent.AddBinding(arr, nil))

	v, err := GetValueByName(parent, "s32") // AggrMin
	require.NoError(t, err)
	assert.Equal(t, int32(math.MaxInt32), int32(v))

	v, err = GetValueByName(parent, "s16") // AggrMax
	require.NoError(t, err)
	assert.Equal(t, int16(math.MinInt16), int16(v))
}

func TestRefcountDestroysOnLastPut(t *testing.T) {
	s := Create("node", "name")
	assert.True(t, s.TryGet())
	s.Put()
	s.Put()
	assert.False(t, s.TryGet())
}

func TestGetValueByNameFirstMatchWins(t *testing.T) {
	arr := ValueArray{
		NewValueDescriptor("x", "simple", 0, KindU8, AggrNone, FlagGauge, 0),
	}
	aggArr := ValueArray{
		NewValueDescriptor("x", "aggregate", 0, KindU8, AggrSum, FlagGauge, 0),
	}
	backing := uint8(5)
	s := Create("node", "name")
	require.NoError(t, s.AddBinding(&arr, unsafe.Pointer(&backing)))
	require.NoError(t, s.AddBinding(&aggArr, nil))

	v, err := GetValueByName(s, "x")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), v)
}
